package webhook

import (
	"regexp"

	"github.com/google/go-github/v66/github"

	"github.com/oakline-labs/warden/pkg/alert"
)

// Decision is what the engine does with a classified event.
type Decision int

const (
	DecisionIgnore Decision = iota
	DecisionAlert
	DecisionEnforce
	DecisionDryRun
)

// Classification is the outcome of running one event through the §4.7
// event table: what to do, at what severity, and (for enforce/dry-run)
// enough of the payload to act on.
type Classification struct {
	Decision Decision
	Severity alert.Severity
	Title    string
	Detail   string
	Suppress bool // self-event suppression per spec
}

// releaseLineBranchPattern matches a release-line branch name such as
// "12-4-x" or "12-x-y" — deleting one of these is always critical
// regardless of who did it. classifyDelete applies it to a branch
// deletion in any repository; which repository it is is not checked.
var releaseLineBranchPattern = regexp.MustCompile(`(^[0-9]+-[0-9]+-x$)|(^[0-9]+-x-y$)`)

// selfEventSuppressed events never alert when the sender is the
// controller's own bot login, matching spec.md §4.7's carve-out for
// repository.deleted/.archived and public.
var selfEventSuppressed = map[string]bool{
	"repository.deleted":  true,
	"repository.archived": true,
	"public":              true,
}

// Classify maps a decoded go-github event to a Classification per the
// §4.7 event table. eventName is the X-Github-Event header value
// ("delete", "member", "release", ...); selfLogin is SHERIFF_SELF_LOGIN.
// Release events get their final severity later from EvaluateRelease,
// via Server.applyReleasePolicy.
func Classify(eventName string, event interface{}, selfLogin, importantBranch string) Classification {
	sender := eventSender(event)
	suppress := sender != "" && sender == selfLogin && selfEventSuppressed[eventKey(eventName, event)]

	switch e := event.(type) {
	case *github.DeleteEvent:
		return classifyDelete(e, importantBranch, suppress)
	case *github.DeployKeyEvent:
		return classifyDeployKey(e, suppress)
	case *github.MemberEvent:
		return Classification{Decision: DecisionEnforce, Severity: alert.SeverityCritical, Title: "Member Change", Suppress: suppress}
	case *github.MetaEvent:
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityCritical, Title: "Webhook Deleted", Suppress: suppress}
	case *github.OrganizationEvent:
		return classifyOrganization(e, suppress)
	case *github.RepositoryEvent:
		return classifyRepository(e, suppress)
	case *github.PublicEvent:
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityWarning, Title: "Repository Made Public", Suppress: suppress}
	case *github.ReleaseEvent:
		// Final severity and suppression for a release event depend on
		// the §4.7.2 trusted-releaser policy, which needs a platform
		// client to check for a companion release; that lookup happens
		// in Server.applyReleasePolicy once this classification reaches
		// the async dispatch path, not here.
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Release Event", Suppress: suppress}
	case *github.PersonalAccessTokenRequestEvent:
		return classifyPAT(e, suppress)
	case *github.PullRequestEvent:
		return classifyPullRequest(e, suppress)
	default:
		return Classification{Decision: DecisionIgnore, Suppress: suppress}
	}
}

func classifyDelete(e *github.DeleteEvent, importantBranch string, suppress bool) Classification {
	refType := e.GetRefType()
	ref := e.GetRef()
	if refType == "tag" {
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityWarning, Title: "Tag Deleted", Detail: ref, Suppress: suppress}
	}
	if refType == "branch" && releaseLineBranchPattern.MatchString(ref) {
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityCritical, Title: "Release Branch Deleted", Detail: ref, Suppress: suppress}
	}
	_ = importantBranch
	return Classification{Decision: DecisionIgnore, Suppress: suppress}
}

func classifyDeployKey(e *github.DeployKeyEvent, suppress bool) Classification {
	readOnly := e.Key != nil && e.Key.GetReadOnly()
	if !readOnly {
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityCritical, Title: "Deploy Key Added", Suppress: suppress}
	}
	if e.Repo != nil && e.Repo.GetPrivate() {
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityWarning, Title: "Deploy Key Added", Suppress: suppress}
	}
	return Classification{Decision: DecisionIgnore, Suppress: suppress}
}

func classifyOrganization(e *github.OrganizationEvent, suppress bool) Classification {
	switch e.GetAction() {
	case "member_invited", "member_added":
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Org Membership Change", Suppress: suppress}
	case "member_removed":
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Org Member Removed", Suppress: suppress}
	case "renamed":
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityCritical, Title: "Org Renamed", Suppress: suppress}
	default:
		return Classification{Decision: DecisionIgnore, Suppress: suppress}
	}
}

func classifyRepository(e *github.RepositoryEvent, suppress bool) Classification {
	switch e.GetAction() {
	case "deleted":
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityCritical, Title: "Repository Deleted", Suppress: suppress}
	case "archived":
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityWarning, Title: "Repository Archived", Suppress: suppress}
	default:
		return Classification{Decision: DecisionIgnore, Suppress: suppress}
	}
}

func classifyPAT(e *github.PersonalAccessTokenRequestEvent, suppress bool) Classification {
	switch e.GetAction() {
	case "created":
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Fine-Grained Token Requested", Suppress: suppress}
	case "approved":
		return Classification{Decision: DecisionAlert, Severity: alert.SeverityWarning, Title: "Fine-Grained Token Approved", Suppress: suppress}
	default:
		return Classification{Decision: DecisionIgnore, Suppress: suppress}
	}
}

func classifyPullRequest(e *github.PullRequestEvent, suppress bool) Classification {
	switch e.GetAction() {
	case "opened", "synchronize":
		return Classification{Decision: DecisionDryRun, Suppress: suppress}
	default:
		return Classification{Decision: DecisionIgnore, Suppress: suppress}
	}
}

func eventSender(event interface{}) string {
	type senderHaver interface {
		GetSender() *github.User
	}
	if s, ok := event.(senderHaver); ok {
		if u := s.GetSender(); u != nil {
			return u.GetLogin()
		}
	}
	return ""
}

func eventKey(eventName string, event interface{}) string {
	type actionHaver interface{ GetAction() string }
	if a, ok := event.(actionHaver); ok && a.GetAction() != "" {
		return eventName + "." + a.GetAction()
	}
	return eventName
}
