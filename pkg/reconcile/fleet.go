package reconcile

import (
	"context"

	"github.com/oakline-labs/warden/pkg/policy"
)

// FleetSummary mirrors the teacher's MultiRepoSummary shape one level
// up: per-org counts instead of per-repo.
type FleetSummary struct {
	TotalOrganizations int
	SuccessCount       int
	FailureCount       int
}

// FleetResult aggregates the outcome of reconciling every organization
// in a PermissionsConfig, grounded on the teacher's
// MultiRepoResult{Succeeded, Failed, Skipped}.
type FleetResult struct {
	Succeeded []string
	Failed    map[string]error
	Summary   FleetSummary
}

// FleetReconciler drives an ordered list of OrganizationConfig values
// through Reconciler.Run one at a time. Org-to-org ordering stays
// strictly sequential — spec.md never asks for cross-org concurrency,
// and each org owns its own platform client cache, so running two orgs
// concurrently would only add synchronization cost for no benefit.
type FleetReconciler struct {
	Reconciler *Reconciler
}

func NewFleetReconciler(r *Reconciler) *FleetReconciler {
	return &FleetReconciler{Reconciler: r}
}

// Run reconciles every organization in cfg in order, continuing past a
// failed org so one broken org's config does not block the rest of the
// fleet, and returns an aggregated FleetResult.
func (f *FleetReconciler) Run(ctx context.Context, cfg *policy.PermissionsConfig) *FleetResult {
	result := &FleetResult{
		Failed: make(map[string]error, len(cfg.Organizations)),
	}

	for i := range cfg.Organizations {
		org := &cfg.Organizations[i]
		if err := f.Reconciler.Run(ctx, org); err != nil {
			result.Failed[org.Organization] = err
			continue
		}
		result.Succeeded = append(result.Succeeded, org.Organization)
	}

	result.Summary = FleetSummary{
		TotalOrganizations: len(cfg.Organizations),
		SuccessCount:       len(result.Succeeded),
		FailureCount:       len(result.Failed),
	}
	return result
}
