package ruleset

import (
	"fmt"
	"sort"

	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

// TeamResolver maps a declared team name to the upstream team ID the
// bypass_actors list needs. The observed team listing already carries
// this; reconcile wires it in.
type TeamResolver func(teamName string) (int64, bool)

// Normalize converts a declared Ruleset into the upstream wire shape:
// rules sorted by type, bypass actors concatenated and sorted by
// (actor_type, actor_id), and default backfills applied to
// require_pull_request / require_status_checks.
func Normalize(rs policy.Ruleset, resolveTeam TeamResolver) (Wire, error) {
	enforcement := string(rs.Enforcement)
	if enforcement == "" {
		enforcement = string(policy.EnforcementActive)
	}

	wire := Wire{
		Name:        rs.Name,
		Target:      string(rs.Target),
		Enforcement: enforcement,
		Conditions: &Conditions{
			RefName: &RefPatterns{
				Include: append([]string(nil), rs.RefName.Include...),
				Exclude: append([]string(nil), rs.RefName.Exclude...),
			},
		},
	}
	if wire.Conditions.RefName.Exclude == nil {
		wire.Conditions.RefName.Exclude = []string{}
	}

	rules := make([]Rule, 0, len(rs.Rules)+2)
	for _, token := range rs.Rules {
		typ, ok := ruleTokenToType[string(token)]
		if !ok {
			return Wire{}, fmt.Errorf("ruleset %q: unknown rule token %q", rs.Name, token)
		}
		rules = append(rules, Rule{Type: typ})
	}

	if rs.RequirePullRequest != nil {
		rules = append(rules, Rule{Type: TypePullRequest, Parameters: pullRequestParameters(rs.RequirePullRequest)})
	}

	if len(rs.RequireStatusChecks) > 0 {
		checks := make([]StatusCheck, 0, len(rs.RequireStatusChecks))
		for _, c := range rs.RequireStatusChecks {
			checks = append(checks, StatusCheck{Context: c.Context, IntegrationID: c.AppID})
		}
		rules = append(rules, Rule{
			Type: TypeRequiredStatusChecks,
			Parameters: StatusChecksParameters{
				RequiredStatusChecks:             checks,
				StrictRequiredStatusChecksPolicy: false,
			},
		})
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].Type < rules[j].Type })
	wire.Rules = rules

	if rs.Bypass != nil {
		actors := make([]BypassActor, 0, len(rs.Bypass.Apps)+len(rs.Bypass.Teams))
		for _, appID := range rs.Bypass.Apps {
			actors = append(actors, BypassActor{ActorID: appID, ActorType: ActorTypeIntegration, BypassMode: "always"})
		}
		for _, teamName := range rs.Bypass.Teams {
			id, ok := resolveTeam(teamName)
			if !ok {
				return Wire{}, fmt.Errorf("ruleset %q: bypass team %q has no known upstream id", rs.Name, teamName)
			}
			actors = append(actors, BypassActor{ActorID: id, ActorType: ActorTypeTeam, BypassMode: "always"})
		}
		sort.Slice(actors, func(i, j int) bool {
			if actors[i].ActorType != actors[j].ActorType {
				return actors[i].ActorType < actors[j].ActorType
			}
			return actors[i].ActorID < actors[j].ActorID
		})
		wire.BypassActors = actors
	}

	return wire, nil
}

func pullRequestParameters(rpr *policy.RequirePullRequest) PullRequestParameters {
	p := PullRequestParameters{
		AllowedMergeMethods: rpr.AllowedMergeMethods,
	}
	if rpr.DismissStaleReviewsOnPush != nil {
		p.DismissStaleReviewsOnPush = *rpr.DismissStaleReviewsOnPush
	}
	if rpr.RequireCodeOwnerReview != nil {
		p.RequireCodeOwnerReview = *rpr.RequireCodeOwnerReview
	}
	if rpr.RequireLastPushApproval != nil {
		p.RequireLastPushApproval = *rpr.RequireLastPushApproval
	}
	if rpr.RequiredApprovingReviewCount != nil {
		p.RequiredApprovingReviewCount = *rpr.RequiredApprovingReviewCount
	}
	if rpr.RequiredReviewThreadResolution != nil {
		p.RequiredReviewThreadResolution = *rpr.RequiredReviewThreadResolution
	}
	if len(p.AllowedMergeMethods) == 0 {
		p.AllowedMergeMethods = []string{"squash"}
	}
	return p
}

// IDFromRaw extracts the upstream ruleset id platform.Client embeds in
// every RulesetRaw it returns.
func IDFromRaw(raw platform.RulesetRaw) (int64, bool) {
	switch v := raw["id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// NameFromRaw extracts the ruleset name platform.Client embeds in every
// RulesetRaw it returns.
func NameFromRaw(raw platform.RulesetRaw) (string, bool) {
	v, ok := raw["name"].(string)
	return v, ok
}

// FromRaw projects an observed platform.RulesetRaw into the same
// normalized Wire shape, so the differ can compare like with like. Noise
// fields the platform echoes back but that are never part of the
// declared shape (automatic_copilot_code_review_enabled) are stripped.
func FromRaw(raw platform.RulesetRaw) (Wire, error) {
	var wire Wire
	if err := remarshal(raw, &wire); err != nil {
		return Wire{}, fmt.Errorf("projecting observed ruleset: %w", err)
	}

	for i := range wire.Rules {
		if wire.Rules[i].Type != TypePullRequest {
			continue
		}
		params, ok := wire.Rules[i].Parameters.(map[string]interface{})
		if !ok {
			continue
		}
		delete(params, "automatic_copilot_code_review_enabled")
		var pr PullRequestParameters
		if err := remarshal(params, &pr); err == nil {
			wire.Rules[i].Parameters = pr
		}
	}
	for i := range wire.Rules {
		if wire.Rules[i].Type != TypeRequiredStatusChecks {
			continue
		}
		params, ok := wire.Rules[i].Parameters.(map[string]interface{})
		if !ok {
			continue
		}
		var sc StatusChecksParameters
		if err := remarshal(params, &sc); err == nil {
			wire.Rules[i].Parameters = sc
		}
	}

	sort.Slice(wire.Rules, func(i, j int) bool { return wire.Rules[i].Type < wire.Rules[j].Type })
	if wire.BypassActors != nil {
		sort.Slice(wire.BypassActors, func(i, j int) bool {
			if wire.BypassActors[i].ActorType != wire.BypassActors[j].ActorType {
				return wire.BypassActors[i].ActorType < wire.BypassActors[j].ActorType
			}
			return wire.BypassActors[i].ActorID < wire.BypassActors[j].ActorID
		})
	}
	if wire.Conditions != nil && wire.Conditions.RefName != nil && wire.Conditions.RefName.Exclude == nil {
		wire.Conditions.RefName.Exclude = []string{}
	}
	return wire, nil
}
