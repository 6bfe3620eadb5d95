package reconcile

import (
	"context"
	"fmt"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

const sentinelDryRunTeamID int64 = -1

// role is a team membership role as the transition table in the
// specification names it.
type role string

const (
	roleAbsent     role = "absent"
	roleMember     role = "member"
	roleMaintainer role = "maintainer"
)

// teamAction is one membership mutation the state machine decided to
// take for a single (team, login) pair.
type teamAction struct {
	Login string
	From  role
	To    role
}

func (a teamAction) describe() string {
	switch {
	case a.To == roleAbsent:
		return fmt.Sprintf("evicting %s from team", a.Login)
	case a.From == roleAbsent:
		return fmt.Sprintf("adding %s as %s", a.Login, a.To)
	default:
		return fmt.Sprintf("changing %s from %s to %s", a.Login, a.From, a.To)
	}
}

// reconcileTeam drives one declared team through the §4.3 state machine:
// ensure exists, sync privacy, sync parent, then sync membership via the
// absent/member/maintainer transition table.
func (r *Reconciler) reconcileTeam(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, team policy.TeamConfig, pendingInvites map[string]bool, orgOwners map[string]bool) error {
	observedTeams, err := r.cache.Teams(ctx, client, org.Organization)
	if err != nil {
		return err
	}

	var matches []platform.Team
	for _, t := range observedTeams {
		if t.Name == team.Name {
			matches = append(matches, t)
		}
	}
	if len(matches) > 1 {
		return fmt.Errorf("team %q: %d ambiguous matches upstream", team.Name, len(matches))
	}

	var observed platform.Team
	exists := len(matches) == 1
	if exists {
		observed = matches[0]
	} else {
		observed, err = r.createTeam(ctx, client, org.Organization, team)
		if err != nil {
			return err
		}
	}

	if err := r.syncTeamPrivacy(ctx, client, org.Organization, team, observed); err != nil {
		return err
	}
	if err := r.syncTeamParent(ctx, client, org, team, observed); err != nil {
		return err
	}

	return r.syncTeamMembership(ctx, client, org.Organization, team, observed, pendingInvites, orgOwners)
}

func (r *Reconciler) createTeam(ctx context.Context, client platform.APIClient, org string, team policy.TeamConfig) (platform.Team, error) {
	r.logAction(org, "create_team", team.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Creating Team", "Would create team `%s/%s`", org, team.Name)
		return platform.Team{ID: sentinelDryRunTeamID, Name: team.Name, Slug: team.Name}, nil
	}
	r.alertf(alert.SeverityNormal, "Creating Team", "Creating team `%s/%s`", org, team.Name)
	created, err := client.CreateTeam(ctx, org, team.Name, team.Secret)
	if err != nil {
		return platform.Team{}, fmt.Errorf("creating team %q: %w", team.Name, err)
	}
	r.cache.InvalidateTeams(org)
	return created, nil
}

func (r *Reconciler) syncTeamPrivacy(ctx context.Context, client platform.APIClient, org string, team policy.TeamConfig, observed platform.Team) error {
	wantSecret := team.Secret
	wantPrivacy := "closed"
	if wantSecret {
		wantPrivacy = "secret"
	}
	if observed.Privacy == wantPrivacy || observed.ID == sentinelDryRunTeamID {
		return nil
	}

	r.logAction(org, "update_team_privacy", team.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Updating Team Privacy", "Would set `%s/%s` privacy to `%s`", org, team.Name, wantPrivacy)
		return nil
	}
	if err := client.UpdateTeamPrivacy(ctx, org, observed.Slug, wantSecret); err != nil {
		return fmt.Errorf("updating privacy for team %q: %w", team.Name, err)
	}
	return nil
}

func (r *Reconciler) syncTeamParent(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, team policy.TeamConfig, observed platform.Team) error {
	if team.Parent == "" || observed.ID == sentinelDryRunTeamID {
		return nil
	}

	parentTeams, err := r.cache.Teams(ctx, client, org.Organization)
	if err != nil {
		return err
	}
	var parentID int64
	found := false
	for _, t := range parentTeams {
		if t.Name == team.Parent {
			parentID = t.ID
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("team %q: parent team %q not found upstream", team.Name, team.Parent)
	}
	if observed.ParentID == parentID {
		return nil
	}

	r.logAction(org.Organization, "update_team_parent", team.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Updating Team Parent", "Would set `%s/%s` parent to `%s`", org.Organization, team.Name, team.Parent)
		return nil
	}
	if err := client.UpdateTeamParent(ctx, org.Organization, observed.Slug, parentID); err != nil {
		return fmt.Errorf("updating parent for team %q: %w", team.Name, err)
	}
	return nil
}

func (r *Reconciler) syncTeamMembership(ctx context.Context, client platform.APIClient, org string, team policy.TeamConfig, observed platform.Team, pendingInvites map[string]bool, orgOwners map[string]bool) error {
	if observed.ID == sentinelDryRunTeamID {
		for _, login := range team.Maintainers {
			r.alertf(alert.SeverityNormal, "Adding Team Member", "Would add %s as maintainer of `%s/%s`", login, org, team.Name)
		}
		for _, login := range team.Members {
			r.alertf(alert.SeverityNormal, "Adding Team Member", "Would add %s as member of `%s/%s`", login, org, team.Name)
		}
		return nil
	}

	maintainers, err := client.ListTeamMembersByRole(ctx, org, observed.Slug, "MAINTAINER")
	if err != nil {
		return err
	}
	members, err := client.ListTeamMembersByRole(ctx, org, observed.Slug, "MEMBER")
	if err != nil {
		return err
	}

	observedRole := map[string]role{}
	for _, m := range maintainers {
		observedRole[m.Login] = roleMaintainer
	}
	for _, m := range members {
		if _, already := observedRole[m.Login]; !already {
			observedRole[m.Login] = roleMember
		}
	}

	desiredRole := map[string]role{}
	for _, login := range team.Members {
		desiredRole[login] = roleMember
	}
	for _, login := range team.Maintainers {
		desiredRole[login] = roleMaintainer
	}

	logins := map[string]struct{}{}
	for login := range observedRole {
		logins[login] = struct{}{}
	}
	for login := range desiredRole {
		logins[login] = struct{}{}
	}

	for login := range logins {
		from := observedRole[login]
		if from == "" {
			from = roleAbsent
		}
		to := desiredRole[login]
		if to == "" {
			to = roleAbsent
		}
		action, ok := planMembershipAction(login, from, to, orgOwners[login], team)
		if !ok {
			continue
		}
		if err := r.applyMembershipAction(ctx, client, org, team.Name, observed.Slug, action, pendingInvites); err != nil {
			return err
		}
	}
	return nil
}

// planMembershipAction implements the §4.3 transition table. It returns
// ok=false for a no-op.
func planMembershipAction(login string, from, to role, isOwner bool, team policy.TeamConfig) (teamAction, bool) {
	switch {
	case to == roleMaintainer && from == roleMaintainer:
		return teamAction{}, false
	case to == roleMaintainer:
		return teamAction{Login: login, From: from, To: roleMaintainer}, true
	case to == roleMember && from == roleMaintainer:
		if isOwner {
			return teamAction{}, false
		}
		return teamAction{Login: login, From: from, To: roleMember}, true
	case to == roleMember && from == roleMember:
		return teamAction{}, false
	case to == roleMember:
		return teamAction{Login: login, From: from, To: roleMember}, true
	case to == roleAbsent && from == roleAbsent:
		return teamAction{}, false
	case to == roleAbsent && from == roleMaintainer:
		if isOwner && declaredMember(team, login) {
			return teamAction{}, false
		}
		return teamAction{Login: login, From: from, To: roleAbsent}, true
	case to == roleAbsent:
		return teamAction{Login: login, From: from, To: roleAbsent}, true
	default:
		return teamAction{}, false
	}
}

func declaredMember(team policy.TeamConfig, login string) bool {
	for _, m := range team.Members {
		if m == login {
			return true
		}
	}
	return false
}

func (r *Reconciler) applyMembershipAction(ctx context.Context, client platform.APIClient, org, teamName, slug string, action teamAction, pendingInvites map[string]bool) error {
	if action.To != roleAbsent && pendingInvites[action.Login] {
		return nil
	}

	r.logAction(org, "team_membership", fmt.Sprintf("%s/%s: %s", teamName, action.Login, action.describe()))
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Updating Team Membership", "Would apply to `%s/%s`: %s", org, teamName, action.describe())
		return nil
	}

	if action.To == roleAbsent {
		if err := client.RemoveTeamMembership(ctx, org, slug, action.Login); err != nil {
			return fmt.Errorf("evicting %s from team %q: %w", action.Login, teamName, err)
		}
		return nil
	}

	ghRole := "member"
	if action.To == roleMaintainer {
		ghRole = "maintainer"
	}
	if err := client.AddTeamMembership(ctx, org, slug, action.Login, ghRole); err != nil {
		return fmt.Errorf("setting %s to %s on team %q: %w", action.Login, action.To, teamName, err)
	}
	return nil
}
