// Package ruleset normalizes declared branch/tag protection rulesets into
// the upstream platform's wire shape and diffs that shape against the
// observed ruleset. The wire types here are adapted from
// katiem0-gh-migrate-rulesets/internal/data/rules.go, which already
// encodes this exact ruleset JSON shape for the same platform.
package ruleset

// BypassActor is one entry of a ruleset's bypass_actors list.
type BypassActor struct {
	ActorID    int64  `json:"actor_id"`
	ActorType  string `json:"actor_type"`
	BypassMode string `json:"bypass_mode"`
}

const (
	ActorTypeTeam        = "Team"
	ActorTypeIntegration = "Integration"
)

// RefPatterns is conditions.ref_name.
type RefPatterns struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// Conditions is the wire shape's conditions block. Only ref_name is
// populated; repository_name/repository_property scoping is not part of
// the declared model.
type Conditions struct {
	RefName *RefPatterns `json:"ref_name,omitempty"`
}

// Rule is one normalized entry of a ruleset's rules list.
type Rule struct {
	Type       string      `json:"type"`
	Parameters interface{} `json:"parameters,omitempty"`
}

// PullRequestParameters backs a "pull_request" rule entry.
type PullRequestParameters struct {
	DismissStaleReviewsOnPush     bool     `json:"dismiss_stale_reviews_on_push"`
	RequireCodeOwnerReview        bool     `json:"require_code_owner_review"`
	RequireLastPushApproval       bool     `json:"require_last_push_approval"`
	RequiredApprovingReviewCount  int      `json:"required_approving_review_count"`
	RequiredReviewThreadResolution bool    `json:"required_review_thread_resolution"`
	AllowedMergeMethods           []string `json:"allowed_merge_methods,omitempty"`

	// AutomaticCopilotCodeReviewEnabled is upstream-only noise: the
	// platform echoes it back on read but it is never part of the
	// declared shape, so the differ strips it before comparing.
	AutomaticCopilotCodeReviewEnabled *bool `json:"automatic_copilot_code_review_enabled,omitempty"`
}

// StatusCheck backs a "required_status_checks" rule entry's check list.
type StatusCheck struct {
	Context       string `json:"context"`
	IntegrationID int64  `json:"integration_id,omitempty"`
}

// StatusChecksParameters backs a "required_status_checks" rule entry.
type StatusChecksParameters struct {
	RequiredStatusChecks             []StatusCheck `json:"required_status_checks"`
	StrictRequiredStatusChecksPolicy bool          `json:"strict_required_status_checks_policy"`
}

// Wire is the fully normalized ruleset shape sent to (and compared
// against what is read from) the platform's ruleset API.
type Wire struct {
	Name         string        `json:"name"`
	Target       string        `json:"target"`
	Enforcement  string        `json:"enforcement"`
	BypassActors []BypassActor `json:"bypass_actors,omitempty"`
	Conditions   *Conditions   `json:"conditions,omitempty"`
	Rules        []Rule        `json:"rules"`
}

// Rule type tokens, mapped from the declared policy.RuleToken vocabulary.
const (
	TypeCreation              = "creation"
	TypeUpdate                = "update"
	TypeDeletion              = "deletion"
	TypeRequiredLinearHistory = "required_linear_history"
	TypeRequiredSignatures    = "required_signatures"
	TypeNonFastForward        = "non_fast_forward"
	TypePullRequest           = "pull_request"
	TypeRequiredStatusChecks  = "required_status_checks"
)

var ruleTokenToType = map[string]string{
	"restrict_creation":      TypeCreation,
	"restrict_update":        TypeUpdate,
	"restrict_deletion":      TypeDeletion,
	"require_linear_history": TypeRequiredLinearHistory,
	"require_signed_commits": TypeRequiredSignatures,
	"restrict_force_push":    TypeNonFastForward,
}
