package reconcile

import (
	"context"
	"fmt"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
	"github.com/oakline-labs/warden/pkg/ruleset"
)

const stargazerVisibilityGuard = 100

// reconcileRepo is §4.4: the full per-repo reconcile sequence, using the
// metadata step 7 already fetched.
func (r *Reconciler) reconcileRepo(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, observed platform.Repository, md *repoMetadata) error {
	if md.Err != nil {
		return md.Err
	}

	if err := r.syncRepoTeams(ctx, client, org, repo, md); err != nil {
		return err
	}
	if err := r.syncRepoCollaborators(ctx, client, org, repo, md); err != nil {
		return err
	}
	if err := r.syncRepoSettings(ctx, client, org, repo, observed); err != nil {
		return err
	}
	if err := r.syncForkApproval(ctx, client, org, repo, observed); err != nil {
		return err
	}
	if err := r.syncRepoVisibility(ctx, client, org, repo, observed); err != nil {
		return err
	}
	if err := r.syncRepoProperties(ctx, client, org, repo, observed); err != nil {
		return err
	}
	return r.syncRepoRulesets(ctx, client, org, repo, md)
}

func (r *Reconciler) syncRepoTeams(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, md *repoMetadata) error {
	observedByTeam := map[string]platform.TeamAccess{}
	for _, t := range md.Teams {
		observedByTeam[t.Slug] = t
	}

	teamsBySlug := map[string]policy.TeamConfig{}
	if teams, err := r.cache.Teams(ctx, client, org.Organization); err == nil {
		for _, t := range teams {
			if declared, ok := org.TeamByName(t.Name); ok {
				teamsBySlug[t.Slug] = *declared
			}
		}
	}

	for slug, access := range observedByTeam {
		team, declared := teamsBySlug[slug]
		if !declared {
			r.logAction(org.Organization, "remove_team_from_repo", fmt.Sprintf("%s/%s", repo.Name, slug))
			if r.DryRun {
				r.alertf(alert.SeverityNormal, "Removing Team", "Would remove team `%s` from repo `%s/%s`", slug, org.Organization, repo.Name)
				continue
			}
			if err := client.RemoveTeamFromRepo(ctx, org.Organization, repo.Name, slug); err != nil {
				return fmt.Errorf("removing team %q from %q: %w", slug, repo.Name, err)
			}
			continue
		}

		wantLevel, wanted := repo.Teams[team.Name]
		if !wanted {
			continue
		}
		observedLevel, known := policy.FromGitHubPermission(access.Permission)
		if known && observedLevel == wantLevel {
			continue
		}
		if err := r.setTeamOnRepo(ctx, client, org, repo, team.Name, slug, wantLevel); err != nil {
			return err
		}
	}

	for teamName, level := range repo.Teams {
		team, ok := org.TeamByName(teamName)
		if !ok {
			continue
		}
		slug := teamSlugFor(teamsBySlug, *team)
		if slug == "" {
			continue
		}
		if _, already := observedByTeam[slug]; already {
			continue
		}
		if err := r.setTeamOnRepo(ctx, client, org, repo, teamName, slug, level); err != nil {
			return err
		}
	}
	return nil
}

func teamSlugFor(bySlug map[string]policy.TeamConfig, team policy.TeamConfig) string {
	for slug, t := range bySlug {
		if t.Name == team.Name {
			return slug
		}
	}
	return team.Name
}

func (r *Reconciler) setTeamOnRepo(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, teamName, slug string, level policy.AccessLevel) error {
	r.logAction(org.Organization, "add_team_to_repo", fmt.Sprintf("%s/%s@%s", repo.Name, teamName, level))
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Adding Team To Repo", "Would add team `%s` to repo `%s/%s` at `%s`", teamName, org.Organization, repo.Name, level)
		return nil
	}
	r.alertf(alert.SeverityNormal, "Adding Team To Repo", "Adding %s team to repo %s at base access level %s", teamName, repo.Name, level)
	if err := client.AddTeamToRepo(ctx, org.Organization, repo.Name, slug, policy.ToGitHubPermission(level)); err != nil {
		return fmt.Errorf("attaching team %q to %q: %w", teamName, repo.Name, err)
	}
	return nil
}

// syncRepoCollaborators covers pending invitations, direct collaborators,
// and adding missing external collaborators (§4.4 three sub-steps,
// applying the same add/update/no-op rules across both sources).
func (r *Reconciler) syncRepoCollaborators(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, md *repoMetadata) error {
	declared := repo.ExternalCollaborators

	haveInvite := map[string]bool{}
	for _, inv := range md.PendingInvites {
		wantLevel, wanted := declared[inv.Login]
		haveInvite[inv.Login] = true
		if !wanted {
			r.logAction(org.Organization, "remove_repo_invitation", fmt.Sprintf("%s/%s", repo.Name, inv.Login))
			if r.DryRun {
				r.alertf(alert.SeverityNormal, "Removing Invitation", "Would remove invitation for `%s` on `%s/%s`", inv.Login, org.Organization, repo.Name)
				continue
			}
			if err := client.RemoveRepoInvitation(ctx, org.Organization, repo.Name, inv.ID); err != nil {
				return fmt.Errorf("removing invitation for %q on %q: %w", inv.Login, repo.Name, err)
			}
			continue
		}
		if observedLevel, ok := policy.FromGitHubPermission(inv.Permission); ok && observedLevel == wantLevel {
			continue
		}
		r.logAction(org.Organization, "update_repo_invitation", fmt.Sprintf("%s/%s", repo.Name, inv.Login))
		if r.DryRun {
			r.alertf(alert.SeverityNormal, "Updating Invitation", "Would update invitation for `%s` on `%s/%s` to `%s`", inv.Login, org.Organization, repo.Name, wantLevel)
			continue
		}
		if err := client.UpdateRepoInvitation(ctx, org.Organization, repo.Name, inv.ID, policy.ToGitHubPermission(wantLevel)); err != nil {
			return fmt.Errorf("updating invitation for %q on %q: %w", inv.Login, repo.Name, err)
		}
	}

	haveDirect := map[string]bool{}
	for _, collab := range md.DirectCollaborators {
		haveDirect[collab.Login] = true
		wantLevel, wanted := declared[collab.Login]
		if !wanted {
			r.logAction(org.Organization, "remove_collaborator", fmt.Sprintf("%s/%s", repo.Name, collab.Login))
			if r.DryRun {
				r.alertf(alert.SeverityNormal, "Removing Collaborator", "Would remove collaborator `%s` from `%s/%s`", collab.Login, org.Organization, repo.Name)
				continue
			}
			if err := client.RemoveCollaborator(ctx, org.Organization, repo.Name, collab.Login); err != nil {
				return fmt.Errorf("removing collaborator %q from %q: %w", collab.Login, repo.Name, err)
			}
			continue
		}
		if observedLevel, ok := policy.FromGitHubPermission(collab.Permission); ok && observedLevel == wantLevel {
			continue
		}
		if err := r.addCollaborator(ctx, client, org, repo, collab.Login, wantLevel); err != nil {
			return err
		}
	}

	for login, level := range declared {
		if haveInvite[login] || haveDirect[login] {
			continue
		}
		if err := r.addCollaborator(ctx, client, org, repo, login, level); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) addCollaborator(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, login string, level policy.AccessLevel) error {
	r.logAction(org.Organization, "add_collaborator", fmt.Sprintf("%s/%s@%s", repo.Name, login, level))
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Adding Collaborator", "Would add `%s` to `%s/%s` at `%s`", login, org.Organization, repo.Name, level)
		return nil
	}
	if err := client.AddCollaborator(ctx, org.Organization, repo.Name, login, policy.ToGitHubPermission(level)); err != nil {
		return fmt.Errorf("adding collaborator %q to %q: %w", login, repo.Name, err)
	}
	return nil
}

func (r *Reconciler) syncRepoSettings(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, observed platform.Repository) error {
	wantWiki := org.RepositoryDefaults.HasWiki
	if repo.Settings.HasWiki != nil {
		wantWiki = *repo.Settings.HasWiki
	}
	if wantWiki == observed.HasWiki {
		return nil
	}

	r.logAction(org.Organization, "update_repo_settings", repo.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Updating Repo Settings", "Would set has_wiki=%v on `%s/%s`", wantWiki, org.Organization, repo.Name)
		return nil
	}
	return client.UpdateRepositorySettings(ctx, org.Organization, repo.Name, platform.RepoSettings{HasWiki: &wantWiki})
}

func (r *Reconciler) syncForkApproval(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, observed platform.Repository) error {
	wantApproval := org.RepositoryDefaults.ForksNeedActionsApproval
	if repo.Settings.ForksNeedActionsApproval != nil {
		wantApproval = *repo.Settings.ForksNeedActionsApproval
	}
	if !wantApproval || repo.Visibility == policy.VisibilityPrivate {
		return nil
	}

	current, err := client.GetApprovalPolicy(ctx, org.Organization, repo.Name)
	if err != nil {
		return err
	}
	const wantPolicy = "all_external_contributors"
	if current == wantPolicy {
		return nil
	}

	r.logAction(org.Organization, "update_fork_approval", repo.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Updating Fork Approval", "Would set approval_policy=%s on `%s/%s`", wantPolicy, org.Organization, repo.Name)
		return nil
	}
	return client.SetApprovalPolicy(ctx, org.Organization, repo.Name, wantPolicy)
}

func (r *Reconciler) syncRepoVisibility(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, observed platform.Repository) error {
	visibility := repo.Visibility
	if visibility == "" {
		visibility = policy.VisibilityPublic
	}
	if visibility == policy.VisibilityCurrent {
		return nil
	}

	shouldBePrivate := visibility == policy.VisibilityPrivate
	if shouldBePrivate == observed.Private {
		return nil
	}

	if observed.StargazerCount >= stargazerVisibilityGuard {
		r.alertf(alert.SeverityCritical, "Visibility Change Refused",
			"Aborting repository visibility update on `%s/%s` as repo has `%d` stargazers", org.Organization, repo.Name, observed.StargazerCount)
		return nil
	}

	r.logAction(org.Organization, "update_repo_visibility", repo.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Updating Repo Visibility", "Would set private=%v on `%s/%s`", shouldBePrivate, org.Organization, repo.Name)
		return nil
	}
	return client.UpdateRepositorySettings(ctx, org.Organization, repo.Name, platform.RepoSettings{Private: &shouldBePrivate})
}

func (r *Reconciler) syncRepoProperties(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, observed platform.Repository) error {
	declared := effectivePropertyValues(org, repo)
	current, err := client.ListRepoProperties(ctx, org.Organization, repo.Name)
	if err != nil {
		return err
	}
	if propertySetsEqual(declared, current) {
		return nil
	}

	r.logAction(org.Organization, "update_repo_properties", repo.Name)
	if r.DryRun {
		r.alertf(alert.SeverityNormal, "Updating Custom Properties", "Would upsert properties on `%s/%s`", org.Organization, repo.Name)
		return nil
	}
	wire := make(map[string]interface{}, len(declared))
	for name, v := range declared {
		wire[name] = propertyValueToWire(v)
	}
	return client.SetRepoProperties(ctx, org.Organization, repo.Name, wire)
}

func (r *Reconciler) syncRepoRulesets(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig, repo *policy.RepositoryConfig, md *repoMetadata) error {
	if len(repo.Rulesets) == 0 && len(md.Rulesets) == 0 {
		return nil
	}

	teamsByName := map[string]policy.TeamConfig{}
	for _, t := range org.Teams {
		teamsByName[t.Name] = t
	}
	resolveTeam := func(teamName string) (int64, bool) {
		teams, err := r.cache.Teams(ctx, client, org.Organization)
		if err != nil {
			return 0, false
		}
		for _, t := range teams {
			if t.Name == teamName {
				return t.ID, true
			}
		}
		return 0, false
	}

	plan, err := ruleset.BuildPlan(repo.Rulesets, md.Rulesets, resolveTeam)
	if err != nil {
		return fmt.Errorf("planning rulesets for %q: %w", repo.Name, err)
	}
	if len(plan.Create) == 0 && len(plan.Update) == 0 && len(plan.Delete) == 0 {
		return nil
	}

	for _, rs := range plan.Create {
		r.alertf(alert.SeverityNormal, "Creating Ruleset", "Creating ruleset `%s` on `%s/%s`", rs.Name, org.Organization, repo.Name)
	}
	for _, action := range plan.Update {
		r.alertf(alert.SeverityNormal, "Updating Ruleset", "Ruleset `%s` on `%s/%s` drifted:\n%s", action.Ruleset.Name, org.Organization, repo.Name, action.DiffText)
	}
	for range plan.Delete {
		r.alertf(alert.SeverityNormal, "Deleting Ruleset", "Deleting an undeclared ruleset on `%s/%s`", org.Organization, repo.Name)
	}

	r.logAction(org.Organization, "sync_rulesets", repo.Name)
	if r.DryRun {
		return nil
	}
	return ruleset.Apply(ctx, client, org.Organization, repo.Name, plan, resolveTeam)
}
