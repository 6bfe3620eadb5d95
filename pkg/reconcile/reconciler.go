// Package reconcile drives one organization's declared configuration to
// match the observed GitHub state, following the eight-step sequence
// laid out for the permissions controller: custom properties, pending
// org invitations, missing-repo warnings, orphan teams, team state,
// repository creation, a bounded read-only prefetch, and finally the
// per-repository reconcile.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

// Reconciler owns one reconcile pass's collaborators: the credential
// provider and cache the platform client comes from, the alert sink
// every mutation narrates through, and whichever plugins are configured
// for this deployment.
type Reconciler struct {
	Provider *platform.CredentialProvider
	cache    *platform.Cache
	Sink     alert.Sink
	Plugins  *FanOut
	DryRun   bool
	Logger   *zap.Logger
}

// NewReconciler builds a Reconciler. A nil sink is replaced with a
// NopSink so callers never need to nil-check before alerting, and a nil
// logger falls back to zap's no-op logger.
func NewReconciler(provider *platform.CredentialProvider, sink alert.Sink, dryRun bool, logger *zap.Logger) *Reconciler {
	if sink == nil {
		sink = alert.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		Provider: provider,
		cache:    platform.NewCache(),
		Sink:     sink,
		Plugins:  &FanOut{},
		DryRun:   dryRun,
		Logger:   logger,
	}
}

func (r *Reconciler) logAction(org, action, detail string) {
	r.Logger.Info("reconcile action",
		zap.String("org", org),
		zap.String("action", action),
		zap.String("detail", detail),
		zap.Bool("dry_run", r.DryRun),
	)
}

func (r *Reconciler) alertf(severity alert.Severity, title, format string, args ...interface{}) {
	msg := alert.NewMessageBuilder(title, severity).Body(fmt.Sprintf(format, args...)).Build()
	if err := r.Sink.Send(context.Background(), msg); err != nil {
		r.Logger.Warn("alert delivery failed", zap.Error(err), zap.String("title", title))
	}
}

// Run drives org through the full eight-step reconcile sequence. It
// narrows the platform client to read-only whenever r.DryRun is set, so
// every mutating call below is defense-in-depth on top of the explicit
// DryRun branches each step already takes.
func (r *Reconciler) Run(ctx context.Context, org *policy.OrganizationConfig) error {
	client, err := r.cache.ClientFor(ctx, r.Provider, org.Organization, r.DryRun)
	if err != nil {
		return fmt.Errorf("acquiring client for %q: %w", org.Organization, err)
	}

	// Step 1: custom property definitions.
	if err := r.syncCustomProperties(ctx, client, org); err != nil {
		return fmt.Errorf("syncing custom properties for %q: %w", org.Organization, err)
	}

	// Step 2: pending org invitations for any login declared on a team
	// that isn't already a member. A halt here stops every later step.
	pendingInvites, orgOwners, err := r.syncInvitations(ctx, client, org)
	if err != nil {
		if _, halted := err.(*haltErr); halted {
			return err
		}
		return fmt.Errorf("syncing invitations for %q: %w", org.Organization, err)
	}

	observedRepos, err := r.cache.Repositories(ctx, client, org.Organization)
	if err != nil {
		return fmt.Errorf("listing repositories for %q: %w", org.Organization, err)
	}
	observedByName := make(map[string]platform.Repository, len(observedRepos))
	for _, repo := range observedRepos {
		if SkipRepo(repo.Name) {
			continue
		}
		observedByName[repo.Name] = repo
	}

	// Step 3: warn about every declared repo that does not exist upstream.
	// Step 6 below creates them; there is no second check afterwards.
	for _, repo := range org.Repositories {
		if SkipRepo(repo.Name) {
			continue
		}
		if _, ok := observedByName[repo.Name]; !ok {
			r.alertf(alert.SeverityWarning, "Repository Not Found",
				"Declared repository `%s/%s` does not exist upstream", org.Organization, repo.Name)
		}
	}

	// Step 4: delete teams that exist upstream but are not declared.
	if err := r.pruneOrphanTeams(ctx, client, org); err != nil {
		return fmt.Errorf("pruning orphan teams for %q: %w", org.Organization, err)
	}

	// Step 5: reconcile every declared team's existence, privacy,
	// parent, and membership.
	for i := range org.Teams {
		team := org.Teams[i]
		if err := r.reconcileTeam(ctx, client, org, team, pendingInvites, orgOwners); err != nil {
			return fmt.Errorf("reconciling team %q in %q: %w", team.Name, org.Organization, err)
		}
		if errs := r.Plugins.HandleTeam(ctx, org.Organization, team, r.Sink); len(errs) > 0 {
			for _, e := range errs {
				r.Logger.Warn("team plugin error", zap.Error(e))
			}
		}
	}

	// Step 6: create any declared repository missing upstream.
	for _, repo := range org.Repositories {
		if SkipRepo(repo.Name) {
			continue
		}
		if _, ok := observedByName[repo.Name]; ok {
			continue
		}
		created, err := r.createRepository(ctx, client, org, repo)
		if err != nil {
			return fmt.Errorf("creating repository %q in %q: %w", repo.Name, org.Organization, err)
		}
		observedByName[repo.Name] = created
	}

	// Step 7: bounded-concurrency read-only prefetch of per-repo
	// metadata, consumed lock-free by step 8.
	metadata := prefetchRepoMetadata(ctx, client, org.Organization, org.Repositories, observedByName)

	// Step 8: reconcile every declared, non-skipped repository. Archived
	// repos skip permission reconcile (they have no prefetched metadata)
	// but still receive the plugin fan-out below.
	for i := range org.Repositories {
		repo := org.Repositories[i]
		if SkipRepo(repo.Name) {
			continue
		}
		observed, ok := observedByName[repo.Name]
		if !ok {
			continue
		}
		if md, ok := metadata[repo.Name]; ok {
			if err := r.reconcileRepo(ctx, client, org, &repo, observed, md); err != nil {
				return fmt.Errorf("reconciling repository %q in %q: %w", repo.Name, org.Organization, err)
			}
		}
		if errs := r.Plugins.HandleRepo(ctx, org.Organization, repo, org.Teams, "", r.Sink); len(errs) > 0 {
			for _, e := range errs {
				r.Logger.Warn("repo plugin error", zap.Error(e))
			}
		}
	}

	return nil
}

func (r *Reconciler) pruneOrphanTeams(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig) error {
	observedTeams, err := r.cache.Teams(ctx, client, org.Organization)
	if err != nil {
		return err
	}
	for _, t := range observedTeams {
		if _, declared := org.TeamByName(t.Name); declared {
			continue
		}
		r.logAction(org.Organization, "delete_team", t.Name)
		if r.DryRun {
			r.alertf(alert.SeverityNormal, "Deleting Team", "Would delete undeclared team `%s/%s`", org.Organization, t.Name)
			continue
		}
		r.alertf(alert.SeverityWarning, "Deleting Team", "Deleting undeclared team `%s/%s`", org.Organization, t.Name)
		if err := client.DeleteTeam(ctx, org.Organization, t.Slug); err != nil {
			return fmt.Errorf("deleting team %q: %w", t.Name, err)
		}
		r.cache.InvalidateTeams(org.Organization)
	}
	return nil
}

func (r *Reconciler) createRepository(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo policy.RepositoryConfig) (platform.Repository, error) {
	private := repo.Visibility == policy.VisibilityPrivate
	r.logAction(org.Organization, "create_repository", repo.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Creating Repository", "Would create repository `%s/%s`", org.Organization, repo.Name)
		return platform.Repository{Name: repo.Name, Private: private}, nil
	}
	r.alertf(alert.SeverityNormal, "Creating Repository", "Creating repository `%s/%s`", org.Organization, repo.Name)
	created, err := client.CreateRepository(ctx, org.Organization, repo.Name, private)
	if err != nil {
		return platform.Repository{}, fmt.Errorf("creating repository %q: %w", repo.Name, err)
	}
	r.cache.InvalidateRepositories(org.Organization)
	return created, nil
}
