// Package policy holds the declarative configuration model: the document
// shape a team commits to describe the desired state of one or more
// organizations, plus the loader and validator that turn raw YAML into a
// checked, normalized value the reconciler can trust.
package policy

// AccessLevel is a platform-agnostic permission level. The bidirectional
// mapping to the upstream platform's own permission vocabulary lives in
// access_level.go.
type AccessLevel string

const (
	AccessRead     AccessLevel = "read"
	AccessTriage   AccessLevel = "triage"
	AccessWrite    AccessLevel = "write"
	AccessMaintain AccessLevel = "maintain"
	AccessAdmin    AccessLevel = "admin"
)

func (a AccessLevel) valid() bool {
	switch a {
	case AccessRead, AccessTriage, AccessWrite, AccessMaintain, AccessAdmin:
		return true
	default:
		return false
	}
}

// GSuitePrivacy constrains TeamConfig.GSuite.Privacy.
type GSuitePrivacy string

const (
	GSuitePrivacyInternal GSuitePrivacy = "internal"
	GSuitePrivacyExternal GSuitePrivacy = "external"
)

// Visibility constrains RepositoryConfig.Visibility. VisibilityCurrent means
// "leave the observed visibility untouched".
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityCurrent Visibility = "current"
)

// Enforcement constrains Ruleset.Enforcement.
type Enforcement string

const (
	EnforcementDisabled Enforcement = "disabled"
	EnforcementActive   Enforcement = "active"
	EnforcementEvaluate Enforcement = "evaluate"
)

// RuleToken is one member of Ruleset.Rules, the declared-shape rule set
// before normalization to the upstream wire shape (see pkg/ruleset).
type RuleToken string

const (
	RuleRestrictCreation     RuleToken = "restrict_creation"
	RuleRestrictUpdate       RuleToken = "restrict_update"
	RuleRestrictDeletion     RuleToken = "restrict_deletion"
	RuleRequireLinearHistory RuleToken = "require_linear_history"
	RuleRequireSignedCommits RuleToken = "require_signed_commits"
	RuleRestrictForcePush    RuleToken = "restrict_force_push"
)

func (r RuleToken) valid() bool {
	switch r {
	case RuleRestrictCreation, RuleRestrictUpdate, RuleRestrictDeletion,
		RuleRequireLinearHistory, RuleRequireSignedCommits, RuleRestrictForcePush:
		return true
	default:
		return false
	}
}

// GSuiteSettings is TeamConfig's optional gsuite block.
type GSuiteSettings struct {
	Privacy GSuitePrivacy `yaml:"privacy"`
}

// SlackSetting models TeamConfig.Slack, which is declared either as the
// bare boolean `true` (create a channel named after the team) or as an
// explicit channel name string. UnmarshalYAML sets Enabled from a boolean,
// and sets Enabled to true plus Channel from a string.
type SlackSetting struct {
	Enabled bool
	Channel string
}

// TeamDecl is the raw, not-yet-normalized shape of a team declaration: the
// tagged sum of a concrete team and its two legacy aliases. Exactly one of
// the three non-name fields may be set; Normalize resolves every
// TeamDecl in a PermissionsConfig down to a single Concrete-only form before
// validation ever runs.
type TeamDecl struct {
	Name string `yaml:"name"`

	// Concrete shape.
	Members     []string        `yaml:"members,omitempty"`
	Maintainers []string        `yaml:"maintainers,omitempty"`
	Parent      string          `yaml:"parent,omitempty"`
	Secret      bool            `yaml:"secret,omitempty"`
	DisplayName string          `yaml:"displayName,omitempty"`
	GSuite      *GSuiteSettings `yaml:"gsuite,omitempty"`
	Slack       *SlackSetting   `yaml:"slack,omitempty"`

	// Legacy shapes, resolved away by normalization.
	Formation []string `yaml:"formation,omitempty"`
	Reference string   `yaml:"reference,omitempty"`
}

// TeamConfig is a fully normalized (formation/reference-resolved) team
// declaration, safe to feed into validation and the reconciler.
type TeamConfig struct {
	Name        string
	Members     []string
	Maintainers []string
	Parent      string
	Secret      bool
	DisplayName string
	GSuite      *GSuiteSettings
	Slack       *SlackSetting
}

// RequirePullRequest mirrors the declared require_pull_request block.
// Unset pointer fields are backfilled by the normalizer in pkg/ruleset.
type RequirePullRequest struct {
	DismissStaleReviewsOnPush     *bool    `yaml:"dismiss_stale_reviews_on_push,omitempty"`
	RequireCodeOwnerReview        *bool    `yaml:"require_code_owner_review,omitempty"`
	RequireLastPushApproval       *bool    `yaml:"require_last_push_approval,omitempty"`
	RequiredApprovingReviewCount  *int     `yaml:"required_approving_review_count,omitempty"`
	RequiredReviewThreadResolution *bool   `yaml:"required_review_thread_resolution,omitempty"`
	AllowedMergeMethods           []string `yaml:"allowed_merge_methods,omitempty"`
}

// StatusCheck is one entry of require_status_checks.
type StatusCheck struct {
	Context   string `yaml:"context"`
	AppID     int64  `yaml:"app_id,omitempty"`
}

// BypassActors is the declared bypass block of a Ruleset.
type BypassActors struct {
	Teams []string `yaml:"teams,omitempty"`
	Apps  []int64  `yaml:"apps,omitempty"`
}

// RefNamePattern is Ruleset.RefName.
type RefNamePattern struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// RulesetTarget constrains Ruleset.Target.
type RulesetTarget string

const (
	RulesetTargetBranch RulesetTarget = "branch"
	RulesetTargetTag    RulesetTarget = "tag"
)

// Ruleset is the declared (pre-normalization) shape of a branch/tag
// protection rule set.
type Ruleset struct {
	Name               string               `yaml:"name"`
	Target             RulesetTarget        `yaml:"target"`
	Enforcement        Enforcement          `yaml:"enforcement,omitempty"`
	Bypass             *BypassActors        `yaml:"bypass,omitempty"`
	RefName            RefNamePattern       `yaml:"ref_name"`
	Rules              []RuleToken          `yaml:"rules,omitempty"`
	RequirePullRequest *RequirePullRequest  `yaml:"require_pull_request,omitempty"`
	RequireStatusChecks []StatusCheck       `yaml:"require_status_checks,omitempty"`
}

// RulesetRef is a string reference to a Ruleset defined in
// OrganizationConfig.CommonRulesets, as declared in a repo's rulesets list.
type RulesetRef struct {
	Name      string
	Reference bool
}

// RepositorySettings is RepositoryConfig.Settings.
type RepositorySettings struct {
	HasWiki                     *bool `yaml:"has_wiki,omitempty"`
	ForksNeedActionsApproval    *bool `yaml:"forks_need_actions_approval,omitempty"`
}

// PropertyValue is either a scalar string or a string slice, matching
// CustomProperty's string/single_select vs. multi_select shapes.
type PropertyValue struct {
	Scalar string
	List   []string
	IsList bool
}

// RepositoryConfig is one declared repository.
type RepositoryConfig struct {
	Name                  string
	Teams                 map[string]AccessLevel
	ExternalCollaborators map[string]AccessLevel
	Settings              RepositorySettings
	Visibility            Visibility
	Properties            map[string]PropertyValue
	Rulesets              []Ruleset // after resolving RulesetRef against CommonRulesets

	rawRulesets []rawRulesetEntry // set by the YAML decoder, resolved by Normalize
}

type rawRulesetEntry struct {
	inline *Ruleset
	ref    string
}

// CustomPropertyType constrains CustomProperty.ValueType.
type CustomPropertyType string

const (
	PropertyTypeString       CustomPropertyType = "string"
	PropertyTypeSingleSelect CustomPropertyType = "single_select"
	PropertyTypeMultiSelect  CustomPropertyType = "multi_select"
)

// CustomProperty is an org-level custom-property definition.
type CustomProperty struct {
	PropertyName  string             `yaml:"property_name"`
	ValueType     CustomPropertyType `yaml:"value_type"`
	Required      bool               `yaml:"required,omitempty"`
	DefaultValue  *PropertyValue     `yaml:"default_value,omitempty"`
	Description   string             `yaml:"description,omitempty"`
	AllowedValues []string           `yaml:"allowed_values,omitempty"`
}

// RepositoryDefaults backs RepositoryConfig.Settings field-by-field.
type RepositoryDefaults struct {
	HasWiki                  bool `yaml:"has_wiki"`
	ForksNeedActionsApproval bool `yaml:"forks_need_actions_approval,omitempty"`
}

// OrganizationConfig is the validated, fully normalized configuration for a
// single organization.
type OrganizationConfig struct {
	Organization       string
	RepositoryDefaults  RepositoryDefaults
	Teams               []TeamConfig
	Repositories        []RepositoryConfig
	CommonRulesets      map[string]Ruleset
	CustomProperties    []CustomProperty

	rawTeams []TeamDecl // resolved into Teams by Normalize
}

// PermissionsConfig is the top-level document: one organization or an
// ordered list of them.
type PermissionsConfig struct {
	Organizations []OrganizationConfig
}

// TeamByName looks up a declared team by name.
func (o *OrganizationConfig) TeamByName(name string) (*TeamConfig, bool) {
	for i := range o.Teams {
		if o.Teams[i].Name == name {
			return &o.Teams[i], true
		}
	}
	return nil, false
}

// RepoByName looks up a declared repository by name.
func (o *OrganizationConfig) RepoByName(name string) (*RepositoryConfig, bool) {
	for i := range o.Repositories {
		if o.Repositories[i].Name == name {
			return &o.Repositories[i], true
		}
	}
	return nil, false
}

// PropertyByName looks up an org-level custom property definition by name.
func (o *OrganizationConfig) PropertyByName(name string) (*CustomProperty, bool) {
	for i := range o.CustomProperties {
		if o.CustomProperties[i].PropertyName == name {
			return &o.CustomProperties[i], true
		}
	}
	return nil, false
}
