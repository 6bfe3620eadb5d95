package policy

// githubLevel is the upstream platform's own permission vocabulary.
type githubLevel string

const (
	githubPull     githubLevel = "pull"
	githubTriage   githubLevel = "triage"
	githubPush     githubLevel = "push"
	githubMaintain githubLevel = "maintain"
	githubAdmin    githubLevel = "admin"
)

var toGitHub = map[AccessLevel]githubLevel{
	AccessRead:     githubPull,
	AccessTriage:   githubTriage,
	AccessWrite:    githubPush,
	AccessMaintain: githubMaintain,
	AccessAdmin:    githubAdmin,
}

var fromGitHub = map[githubLevel]AccessLevel{
	githubPull:     AccessRead,
	githubTriage:   AccessTriage,
	githubPush:     AccessWrite,
	githubMaintain: AccessMaintain,
	githubAdmin:    AccessAdmin,
}

// ToGitHubPermission maps a declared AccessLevel to the upstream platform's
// permission string. The mapping is total.
func ToGitHubPermission(level AccessLevel) string {
	return string(toGitHub[level])
}

// FromGitHubPermission maps the upstream platform's permission string back
// to an AccessLevel. The mapping is total on every value toGitHub produces,
// making ToGitHubPermission/FromGitHubPermission a round trip.
func FromGitHubPermission(permission string) (AccessLevel, bool) {
	level, ok := fromGitHub[githubLevel(permission)]
	return level, ok
}

// Permissions mirrors the boolean bitmap the platform's repository and
// collaborator-permission APIs return.
type Permissions struct {
	Admin    bool
	Maintain bool
	Push     bool
	Triage   bool
	Pull     bool
}

// FromPermissionsBitmap decodes a {admin, maintain, push, triage, pull}
// bitmap into the highest-true flag in that priority order.
func FromPermissionsBitmap(p Permissions) (AccessLevel, bool) {
	switch {
	case p.Admin:
		return AccessAdmin, true
	case p.Maintain:
		return AccessMaintain, true
	case p.Push:
		return AccessWrite, true
	case p.Triage:
		return AccessTriage, true
	case p.Pull:
		return AccessRead, true
	default:
		return "", false
	}
}

// ToPermissionsBitmap is the left-inverse companion used by the testable
// round-trip property: every flag at or below the level's own rank is true.
func ToPermissionsBitmap(level AccessLevel) Permissions {
	switch level {
	case AccessAdmin:
		return Permissions{Admin: true, Maintain: true, Push: true, Triage: true, Pull: true}
	case AccessMaintain:
		return Permissions{Maintain: true, Push: true, Triage: true, Pull: true}
	case AccessWrite:
		return Permissions{Push: true, Triage: true, Pull: true}
	case AccessTriage:
		return Permissions{Triage: true, Pull: true}
	case AccessRead:
		return Permissions{Pull: true}
	default:
		return Permissions{}
	}
}
