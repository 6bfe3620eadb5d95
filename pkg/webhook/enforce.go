package webhook

import (
	"context"
	"fmt"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

// CollaboratorChange is the subset of a member webhook payload the
// §4.7.1 enforcement state machine needs.
type CollaboratorChange struct {
	OrgLogin   string
	RepoName   string
	Login      string
	Action     string // "added", "edited", "removed"
}

// EnforceCollaboratorChange runs the §4.7.1 state machine against the
// current config and observed collaborator state, returning the outcome
// and, for everything but ALLOW, a message ready to hand to the alert
// sink. The caller supplies the already-loaded OrganizationConfig; a
// webhook handler re-loads and re-validates it on every delivery per
// spec so a stale in-memory copy never drives enforcement.
func EnforceCollaboratorChange(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, change CollaboratorChange) (alert.Outcome, string, error) {
	if org == nil || org.Organization != change.OrgLogin {
		return alert.OutcomeAllow, "", nil
	}

	repo, ok := org.RepoByName(change.RepoName)
	if !ok {
		return alert.OutcomeAllow, "", nil
	}

	members, err := client.ListOrgMembers(ctx, change.OrgLogin)
	if err != nil {
		return alert.OutcomeAllow, "", err
	}
	for _, m := range members {
		if m.Login == change.Login && m.IsOwner {
			return alert.OutcomeAllow, "", nil
		}
	}

	expectedLevel, declared := repo.ExternalCollaborators[change.Login]

	if !declared && change.Action == "removed" {
		return alert.OutcomeAllow, "", nil
	}
	if !declared {
		if err := client.RemoveCollaborator(ctx, change.OrgLogin, change.RepoName, change.Login); err != nil {
			return alert.OutcomeAllow, "", fmt.Errorf("reverting undeclared collaborator %q on %q: %w", change.Login, change.RepoName, err)
		}
		return alert.OutcomeRevert, "automatically reverted", nil
	}

	collaborators, err := client.ListDirectCollaborators(ctx, change.OrgLogin, change.RepoName)
	if err != nil {
		return alert.OutcomeAllow, "", err
	}
	var observedLevel policy.AccessLevel
	found := false
	for _, c := range collaborators {
		if c.Login == change.Login {
			found = true
			observedLevel, _ = policy.FromGitHubPermission(c.Permission)
			break
		}
	}

	if !found || observedLevel != expectedLevel {
		if err := client.AddCollaborator(ctx, change.OrgLogin, change.RepoName, change.Login, policy.ToGitHubPermission(expectedLevel)); err != nil {
			return alert.OutcomeAllow, "", fmt.Errorf("restoring collaborator %q on %q to %q: %w", change.Login, change.RepoName, expectedLevel, err)
		}
		if change.Action == "removed" {
			return alert.OutcomeRevert, "automatically reverted", nil
		}
		return alert.OutcomeAdjust, fmt.Sprintf("adjusted to the correct state of `%s`", expectedLevel), nil
	}

	return alert.OutcomeAllow, "", nil
}
