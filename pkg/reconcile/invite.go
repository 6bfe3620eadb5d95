package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

// haltErr marks an error that must stop all further mutation for the
// org, per the PolicyViolation error kind: a login-case mismatch or an
// unresolvable login.
type haltErr struct{ err error }

func (h *haltErr) Error() string { return h.err.Error() }
func (h *haltErr) Unwrap() error { return h.err }

// syncInvitations is §4.2 step 2: every login declared as a member or
// maintainer of any team that is not already an org member gets
// resolved against the platform's canonical login and, if no invitation
// is already pending, invited as a direct_member.
//
// Returns the set of logins with a pending invitation (used by team
// reconcile to skip adding/promoting them) and org owner logins.
func (r *Reconciler) syncInvitations(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig) (pending map[string]bool, owners map[string]bool, err error) {
	members, err := r.cache.Members(ctx, client, org.Organization)
	if err != nil {
		return nil, nil, err
	}
	memberSet := map[string]bool{}
	owners = map[string]bool{}
	for _, m := range members {
		memberSet[m.Login] = true
		if m.IsOwner {
			owners[m.Login] = true
		}
	}

	invites, err := client.ListPendingOrgInvitations(ctx, org.Organization)
	if err != nil {
		return nil, nil, err
	}
	pending = map[string]bool{}
	for _, inv := range invites {
		pending[inv.Login] = true
	}

	declared := map[string]struct{}{}
	for _, t := range org.Teams {
		for _, login := range t.Members {
			declared[login] = struct{}{}
		}
		for _, login := range t.Maintainers {
			declared[login] = struct{}{}
		}
	}
	logins := make([]string, 0, len(declared))
	for login := range declared {
		logins = append(logins, login)
	}
	sort.Strings(logins)

	for _, login := range logins {
		if memberSet[login] || pending[login] {
			continue
		}

		canonical, lookupErr := client.GetCanonicalLogin(ctx, login)
		if lookupErr != nil {
			r.alertf(alert.SeverityCritical, "User Not Found", "Could not resolve login `%s` in org `%s`: %v", login, org.Organization, lookupErr)
			return pending, owners, &haltErr{fmt.Errorf("resolving login %q: %w", login, lookupErr)}
		}
		if canonical != login {
			r.alertf(alert.SeverityCritical, "Login Case Mismatch", "Declared login `%s` does not exactly match canonical login `%s` in org `%s`", login, canonical, org.Organization)
			return pending, owners, &haltErr{fmt.Errorf("login %q does not match canonical login %q", login, canonical)}
		}

		r.logAction(org.Organization, "create_org_invitation", login)
		if r.DryRun {
			r.alertf(alert.SeverityNormal, "Inviting User", "Would invite `%s` to org `%s`", login, org.Organization)
			pending[login] = true
			continue
		}
		if err := client.CreateOrgInvitation(ctx, org.Organization, login); err != nil {
			return pending, owners, fmt.Errorf("inviting %q to org %q: %w", login, org.Organization, err)
		}
		pending[login] = true
	}

	return pending, owners, nil
}
