package ruleset

import (
	"context"
	"fmt"

	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

// Observed pairs a platform ruleset's id with its raw JSON body, as
// returned by platform.APIClient.GetRuleset.
type Observed struct {
	ID  int64
	Raw platform.RulesetRaw
}

// Plan is the outcome of reconciling one repo's declared rulesets
// against its observed rulesets: what to create, update, and delete.
type Plan struct {
	Create []policy.Ruleset
	Update []UpdateAction
	Delete []int64
}

// UpdateAction names an observed ruleset (by id) whose normalized shape
// differs from its declared counterpart, along with the rendered diff
// that should accompany the alert.
type UpdateAction struct {
	ID       int64
	Ruleset  policy.Ruleset
	DiffText string
}

// BuildPlan computes the create/update/delete sets for one repo's
// declared rulesets against its observed ones. resolveTeam maps a
// declared team name to its upstream team id for bypass_actors.
func BuildPlan(declared []policy.Ruleset, observed map[string]Observed, resolveTeam TeamResolver) (Plan, error) {
	var plan Plan

	seen := map[string]bool{}
	for _, rs := range declared {
		seen[rs.Name] = true
		wire, err := Normalize(rs, resolveTeam)
		if err != nil {
			return Plan{}, err
		}

		obs, ok := observed[rs.Name]
		if !ok {
			plan.Create = append(plan.Create, rs)
			continue
		}

		observedWire, err := FromRaw(obs.Raw)
		if err != nil {
			return Plan{}, fmt.Errorf("ruleset %q: %w", rs.Name, err)
		}
		diffs := Compare(wire, observedWire)
		if len(diffs) == 0 {
			continue
		}
		plan.Update = append(plan.Update, UpdateAction{
			ID:       obs.ID,
			Ruleset:  rs,
			DiffText: Render(diffs, nil, false),
		})
	}

	for name, obs := range observed {
		if !seen[name] {
			plan.Delete = append(plan.Delete, obs.ID)
		}
	}

	return plan, nil
}

// Apply executes a Plan against the platform client for one repo. It
// honors the client's own dry-run gate (readOnly clients reject writes);
// callers in pkg/reconcile are expected to have already narrowed the
// client appropriately and to log/alert around each mutation themselves.
func Apply(ctx context.Context, client platform.APIClient, org, repo string, plan Plan, resolveTeam TeamResolver) error {
	for _, rs := range plan.Create {
		wire, err := Normalize(rs, resolveTeam)
		if err != nil {
			return err
		}
		raw, err := toRaw(wire)
		if err != nil {
			return err
		}
		if err := client.CreateRuleset(ctx, org, repo, raw); err != nil {
			return fmt.Errorf("creating ruleset %q: %w", rs.Name, err)
		}
	}
	for _, action := range plan.Update {
		wire, err := Normalize(action.Ruleset, resolveTeam)
		if err != nil {
			return err
		}
		raw, err := toRaw(wire)
		if err != nil {
			return err
		}
		if err := client.UpdateRuleset(ctx, org, repo, action.ID, raw); err != nil {
			return fmt.Errorf("updating ruleset %q: %w", action.Ruleset.Name, err)
		}
	}
	for _, id := range plan.Delete {
		if err := client.DeleteRuleset(ctx, org, repo, id); err != nil {
			return fmt.Errorf("deleting ruleset id %d: %w", id, err)
		}
	}
	return nil
}

func toRaw(wire Wire) (platform.RulesetRaw, error) {
	var raw platform.RulesetRaw
	if err := remarshal(wire, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
