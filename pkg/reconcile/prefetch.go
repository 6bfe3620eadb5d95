package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
	"github.com/oakline-labs/warden/pkg/ruleset"
)

// prefetchConcurrency is the bounded worker-pool size for §4.2 step 7 /
// §5: "a worker pool bounded at 8 workers consuming a queue of prefetch
// tasks."
const prefetchConcurrency = 8

// repoMetadata is the per-repo read-only snapshot fetched during step 7
// and consumed, lock-free, by step 8.
type repoMetadata struct {
	Teams               []platform.TeamAccess
	PendingInvites       []platform.Invitation
	DirectCollaborators  []platform.CollaboratorAccess
	Rulesets             map[string]ruleset.Observed // nil if repo declares none
	Err                  error
}

// prefetchRepoMetadata fans the read-only per-repo fetches for every
// non-archived declared repo out across a bounded worker pool, using
// gammazero/workerpool as every relevant corpus repo reaches for when it
// needs bounded fan-out (pkg/dryrun's FIFO queue uses the same library
// configured with a single worker). The pool must fully drain before
// the caller proceeds to step 8; results are written once per repo and
// read lock-free afterward.
func prefetchRepoMetadata(ctx context.Context, client platform.APIClient, org string, repos []policy.RepositoryConfig, observedRepos map[string]platform.Repository) map[string]*repoMetadata {
	wp := workerpool.New(prefetchConcurrency)

	results := make(map[string]*repoMetadata, len(repos))
	var mu sync.Mutex

	for i := range repos {
		repo := repos[i]
		observed, known := observedRepos[repo.Name]
		if !known || observed.Archived {
			continue
		}

		wp.Submit(func() {
			md := fetchOneRepoMetadata(ctx, client, org, repo)
			mu.Lock()
			results[repo.Name] = md
			mu.Unlock()
		})
	}

	wp.StopWait()
	return results
}

func fetchOneRepoMetadata(ctx context.Context, client platform.APIClient, org string, repo policy.RepositoryConfig) *repoMetadata {
	md := &repoMetadata{}

	teams, err := client.ListRepoTeams(ctx, org, repo.Name)
	if err != nil {
		md.Err = fmt.Errorf("listing teams on %q: %w", repo.Name, err)
		return md
	}
	md.Teams = teams

	invites, err := client.ListPendingRepoInvitations(ctx, org, repo.Name)
	if err != nil {
		md.Err = fmt.Errorf("listing pending invitations on %q: %w", repo.Name, err)
		return md
	}
	md.PendingInvites = invites

	collabs, err := client.ListDirectCollaborators(ctx, org, repo.Name)
	if err != nil {
		md.Err = fmt.Errorf("listing collaborators on %q: %w", repo.Name, err)
		return md
	}
	md.DirectCollaborators = collabs

	if len(repo.Rulesets) == 0 {
		return md
	}

	raws, err := client.ListRepoRulesets(ctx, org, repo.Name)
	if err != nil {
		md.Err = fmt.Errorf("listing rulesets on %q: %w", repo.Name, err)
		return md
	}
	observed := make(map[string]ruleset.Observed, len(raws))
	for _, raw := range raws {
		name, ok := ruleset.NameFromRaw(raw)
		if !ok {
			continue
		}
		id, _ := ruleset.IDFromRaw(raw)
		observed[name] = ruleset.Observed{ID: id, Raw: raw}
	}
	md.Rulesets = observed
	return md
}
