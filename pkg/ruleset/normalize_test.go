package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

func noTeams(string) (int64, bool) { return 0, false }

func TestNormalize_DefaultEnforcementAndMergeMethod(t *testing.T) {
	rs := policy.Ruleset{
		Name:   "main-protection",
		Target: policy.RulesetTargetBranch,
		RefName: policy.RefNamePattern{
			Include: []string{"~DEFAULT_BRANCH"},
		},
		RequirePullRequest: &policy.RequirePullRequest{},
	}

	wire, err := Normalize(rs, noTeams)
	require.NoError(t, err)

	assert.Equal(t, string(policy.EnforcementActive), wire.Enforcement)
	require.Len(t, wire.Rules, 1)
	params, ok := wire.Rules[0].Parameters.(PullRequestParameters)
	require.True(t, ok)
	assert.Equal(t, []string{"squash"}, params.AllowedMergeMethods)
	assert.Equal(t, []string{}, wire.Conditions.RefName.Exclude)
}

func TestNormalize_RuleTokensSortedByType(t *testing.T) {
	rs := policy.Ruleset{
		Name:    "tag-protection",
		Target:  policy.RulesetTargetTag,
		RefName: policy.RefNamePattern{Include: []string{"~ALL"}},
		Rules:   []policy.RuleToken{"restrict_deletion", "restrict_creation", "require_linear_history"},
	}

	wire, err := Normalize(rs, noTeams)
	require.NoError(t, err)
	require.Len(t, wire.Rules, 3)

	for i := 1; i < len(wire.Rules); i++ {
		assert.LessOrEqual(t, wire.Rules[i-1].Type, wire.Rules[i].Type, "rules must be sorted by type")
	}
}

func TestNormalize_UnknownRuleTokenErrors(t *testing.T) {
	rs := policy.Ruleset{
		Name:    "bad",
		Target:  policy.RulesetTargetBranch,
		RefName: policy.RefNamePattern{Include: []string{"~ALL"}},
		Rules:   []policy.RuleToken{"nonexistent_token"},
	}

	_, err := Normalize(rs, noTeams)
	assert.Error(t, err)
}

func TestNormalize_BypassActorsSortedAndResolved(t *testing.T) {
	rs := policy.Ruleset{
		Name:    "protected",
		Target:  policy.RulesetTargetBranch,
		RefName: policy.RefNamePattern{Include: []string{"~ALL"}},
		Bypass: &policy.BypassActors{
			Teams: []string{"release-managers"},
			Apps:  []int64{42},
		},
	}

	resolve := func(name string) (int64, bool) {
		if name == "release-managers" {
			return 7, true
		}
		return 0, false
	}

	wire, err := Normalize(rs, resolve)
	require.NoError(t, err)
	require.Len(t, wire.BypassActors, 2)
	assert.Equal(t, ActorTypeIntegration, wire.BypassActors[0].ActorType)
	assert.Equal(t, ActorTypeTeam, wire.BypassActors[1].ActorType)
}

func TestNormalize_UnresolvableBypassTeamErrors(t *testing.T) {
	rs := policy.Ruleset{
		Name:    "protected",
		Target:  policy.RulesetTargetBranch,
		RefName: policy.RefNamePattern{Include: []string{"~ALL"}},
		Bypass:  &policy.BypassActors{Teams: []string{"ghost-team"}},
	}

	_, err := Normalize(rs, noTeams)
	assert.Error(t, err)
}

func TestNormalizeThenFromRaw_RoundTripEqual(t *testing.T) {
	rs := policy.Ruleset{
		Name:    "protected",
		Target:  policy.RulesetTargetBranch,
		RefName: policy.RefNamePattern{Include: []string{"~DEFAULT_BRANCH"}},
		Rules:   []policy.RuleToken{"restrict_force_push"},
		RequirePullRequest: &policy.RequirePullRequest{
			RequiredApprovingReviewCount: intPtr(2),
		},
	}

	declared, err := Normalize(rs, noTeams)
	require.NoError(t, err)

	raw := toRawForTest(t, declared)
	raw["id"] = int64(99)
	raw["automatic_copilot_code_review_enabled"] = true
	if rules, ok := raw["rules"].([]interface{}); ok {
		for _, r := range rules {
			rule, ok := r.(map[string]interface{})
			if !ok {
				continue
			}
			if rule["type"] == TypePullRequest {
				if params, ok := rule["parameters"].(map[string]interface{}); ok {
					params["automatic_copilot_code_review_enabled"] = true
				}
			}
		}
	}

	observed, err := FromRaw(platform.RulesetRaw(raw))
	require.NoError(t, err)

	assert.True(t, Equal(declared, observed), "round-tripping through FromRaw should strip noise and stay equal: %v", Compare(declared, observed))
}

func intPtr(v int) *int { return &v }

func toRawForTest(t *testing.T, w Wire) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	require.NoError(t, remarshal(w, &raw))
	return raw
}
