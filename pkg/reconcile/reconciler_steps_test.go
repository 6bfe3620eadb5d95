package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

func TestPruneOrphanTeams_DeclaredTeamKept(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("ListTeams", mock.Anything, "acme").Return([]platform.Team{{Name: "platform", Slug: "platform"}}, nil)

	org := &policy.OrganizationConfig{Organization: "acme", Teams: []policy.TeamConfig{{Name: "platform"}}}
	require.NoError(t, r.pruneOrphanTeams(context.Background(), client, org))
	client.AssertNotCalled(t, "DeleteTeam", mock.Anything, mock.Anything, mock.Anything)
}

func TestPruneOrphanTeams_UndeclaredTeamDeletedLive(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("ListTeams", mock.Anything, "acme").Return([]platform.Team{{Name: "leftover", Slug: "leftover"}}, nil)
	client.On("DeleteTeam", mock.Anything, "acme", "leftover").Return(nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	require.NoError(t, r.pruneOrphanTeams(context.Background(), client, org))
	client.AssertExpectations(t)
}

func TestPruneOrphanTeams_DryRunDoesNotDelete(t *testing.T) {
	r := newTestReconciler(true)
	client := platform.NewMockAPIClient(true)
	client.On("ListTeams", mock.Anything, "acme").Return([]platform.Team{{Name: "leftover", Slug: "leftover"}}, nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	require.NoError(t, r.pruneOrphanTeams(context.Background(), client, org))
	client.AssertNotCalled(t, "DeleteTeam", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRepository_DryRunDoesNotCallClient(t *testing.T) {
	r := newTestReconciler(true)
	client := platform.NewMockAPIClient(true)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo, err := r.createRepository(context.Background(), client, org, policy.RepositoryConfig{Name: "widgets", Visibility: policy.VisibilityPrivate})
	require.NoError(t, err)
	assert.True(t, repo.Private)
	client.AssertNotCalled(t, "CreateRepository", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRepository_LiveCreatesAndInvalidatesCache(t *testing.T) {
	r := newTestReconciler(false)
	client := platform.NewMockAPIClient(false)
	client.On("CreateRepository", mock.Anything, "acme", "widgets", false).
		Return(platform.Repository{ID: 7, Name: "widgets"}, nil)

	org := &policy.OrganizationConfig{Organization: "acme"}
	repo, err := r.createRepository(context.Background(), client, org, policy.RepositoryConfig{Name: "widgets"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), repo.ID)
	client.AssertExpectations(t)
}
