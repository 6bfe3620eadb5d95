package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

func TestSyncRepoTeams_RemovesUndeclaredTeamLive(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("ListTeams", mock.Anything, "acme").Return([]platform.Team{}, nil)
	client.On("RemoveTeamFromRepo", mock.Anything, "acme", "widgets", "leftover").Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets"}
	md := &repoMetadata{Teams: []platform.TeamAccess{{Slug: "leftover", Permission: "push"}}}

	require.NoError(t, r.syncRepoTeams(context.Background(), client, org, repo, md))
	client.AssertExpectations(t)
}

func TestSyncRepoTeams_AddsMissingDeclaredTeam(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("ListTeams", mock.Anything, "acme").Return([]platform.Team{{Name: "platform", Slug: "platform"}}, nil)
	client.On("AddTeamToRepo", mock.Anything, "acme", "widgets", "platform", "push").Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme", Teams: []policy.TeamConfig{{Name: "platform"}}}
	repo := &policy.RepositoryConfig{Name: "widgets", Teams: map[string]policy.AccessLevel{"platform": policy.AccessWrite}}
	md := &repoMetadata{}

	require.NoError(t, r.syncRepoTeams(context.Background(), client, org, repo, md))
	client.AssertExpectations(t)
}

func TestSyncRepoTeams_MatchingLevelIsNoOp(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("ListTeams", mock.Anything, "acme").Return([]platform.Team{{Name: "platform", Slug: "platform"}}, nil)

	org := &policy.OrganizationConfig{Organization: "acme", Teams: []policy.TeamConfig{{Name: "platform"}}}
	repo := &policy.RepositoryConfig{Name: "widgets", Teams: map[string]policy.AccessLevel{"platform": policy.AccessWrite}}
	md := &repoMetadata{Teams: []platform.TeamAccess{{Slug: "platform", Permission: "push"}}}

	require.NoError(t, r.syncRepoTeams(context.Background(), client, org, repo, md))
	client.AssertNotCalled(t, "AddTeamToRepo", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "RemoveTeamFromRepo", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncRepoCollaborators_RemovesUndeclaredInvite(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("RemoveRepoInvitation", mock.Anything, "acme", "widgets", int64(5)).Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets"}
	md := &repoMetadata{PendingInvites: []platform.Invitation{{ID: 5, Login: "carol", Permission: "push"}}}

	require.NoError(t, r.syncRepoCollaborators(context.Background(), client, org, repo, md))
	client.AssertExpectations(t)
}

func TestSyncRepoCollaborators_AddsMissingDeclaredCollaborator(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("AddCollaborator", mock.Anything, "acme", "widgets", "alice", "push").Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets", ExternalCollaborators: map[string]policy.AccessLevel{"alice": policy.AccessWrite}}
	md := &repoMetadata{}

	require.NoError(t, r.syncRepoCollaborators(context.Background(), client, org, repo, md))
	client.AssertExpectations(t)
}

func TestSyncRepoCollaborators_RemovesUndeclaredDirectCollaborator(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("RemoveCollaborator", mock.Anything, "acme", "widgets", "carol").Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets"}
	md := &repoMetadata{DirectCollaborators: []platform.CollaboratorAccess{{Login: "carol", Permission: "push"}}}

	require.NoError(t, r.syncRepoCollaborators(context.Background(), client, org, repo, md))
	client.AssertExpectations(t)
}

func TestSyncRepoCollaborators_MatchingDirectCollaboratorIsNoOp(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets", ExternalCollaborators: map[string]policy.AccessLevel{"alice": policy.AccessWrite}}
	md := &repoMetadata{DirectCollaborators: []platform.CollaboratorAccess{{Login: "alice", Permission: "push"}}}

	require.NoError(t, r.syncRepoCollaborators(context.Background(), client, org, repo, md))
	client.AssertNotCalled(t, "AddCollaborator", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "RemoveCollaborator", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncRepoProperties_MatchingIsNoOp(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("ListRepoProperties", mock.Anything, "acme", "widgets").Return(map[string]interface{}{"team": "platform"}, nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets", Properties: map[string]policy.PropertyValue{"team": {Scalar: "platform"}}}

	require.NoError(t, r.syncRepoProperties(context.Background(), client, org, repo, platform.Repository{Name: "widgets"}))
	client.AssertNotCalled(t, "SetRepoProperties", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncRepoProperties_DriftUpdatesLive(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("ListRepoProperties", mock.Anything, "acme", "widgets").Return(map[string]interface{}{"team": "other"}, nil)
	client.On("SetRepoProperties", mock.Anything, "acme", "widgets", map[string]interface{}{"team": "platform"}).Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets", Properties: map[string]policy.PropertyValue{"team": {Scalar: "platform"}}}

	require.NoError(t, r.syncRepoProperties(context.Background(), client, org, repo, platform.Repository{Name: "widgets"}))
	client.AssertExpectations(t)
}

func TestSyncRepoRulesets_NoneDeclaredOrObservedIsNoOp(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{Name: "widgets"}
	md := &repoMetadata{}

	require.NoError(t, r.syncRepoRulesets(context.Background(), client, org, repo, md))
	client.AssertExpectations(t)
}

func TestSyncRepoRulesets_DeclaredMissingRulesetCreatedLive(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("CreateRuleset", mock.Anything, "acme", "widgets", mock.Anything).Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{
		Name: "widgets",
		Rulesets: []policy.Ruleset{{
			Name:    "main-protection",
			Target:  policy.RulesetTargetBranch,
			RefName: policy.RefNamePattern{Include: []string{"~DEFAULT_BRANCH"}},
			Rules:   []policy.RuleToken{"restrict_force_push"},
		}},
	}
	md := &repoMetadata{}

	require.NoError(t, r.syncRepoRulesets(context.Background(), client, org, repo, md))
	client.AssertExpectations(t)
}

func TestSyncRepoRulesets_DryRunDoesNotApply(t *testing.T) {
	r := newTestReconciler(true)
	client := platform.NewMockAPIClient(true)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo := &policy.RepositoryConfig{
		Name: "widgets",
		Rulesets: []policy.Ruleset{{
			Name:    "main-protection",
			Target:  policy.RulesetTargetBranch,
			RefName: policy.RefNamePattern{Include: []string{"~DEFAULT_BRANCH"}},
			Rules:   []policy.RuleToken{"restrict_force_push"},
		}},
	}
	md := &repoMetadata{}

	require.NoError(t, r.syncRepoRulesets(context.Background(), client, org, repo, md))
	client.AssertNotCalled(t, "CreateRuleset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
