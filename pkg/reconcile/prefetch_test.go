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

func TestPrefetchRepoMetadata_SkipsArchivedAndUnknownRepos(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListRepoTeams", mock.Anything, "acme", "widgets").Return([]platform.TeamAccess{}, nil)
	client.On("ListPendingRepoInvitations", mock.Anything, "acme", "widgets").Return([]platform.Invitation{}, nil)
	client.On("ListDirectCollaborators", mock.Anything, "acme", "widgets").Return([]platform.CollaboratorAccess{}, nil)

	repos := []policy.RepositoryConfig{
		{Name: "widgets"},
		{Name: "archived-repo"},
		{Name: "not-yet-created"},
	}
	observed := map[string]platform.Repository{
		"widgets":       {Name: "widgets"},
		"archived-repo": {Name: "archived-repo", Archived: true},
	}

	results := prefetchRepoMetadata(context.Background(), client, "acme", repos, observed)

	require.Contains(t, results, "widgets")
	assert.NotContains(t, results, "archived-repo")
	assert.NotContains(t, results, "not-yet-created")
	assert.NoError(t, results["widgets"].Err)
}

func TestPrefetchRepoMetadata_FetchErrorCapturedPerRepo(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListRepoTeams", mock.Anything, "acme", "widgets").Return([]platform.TeamAccess{}, assert.AnError)

	repos := []policy.RepositoryConfig{{Name: "widgets"}}
	observed := map[string]platform.Repository{"widgets": {Name: "widgets"}}

	results := prefetchRepoMetadata(context.Background(), client, "acme", repos, observed)
	require.Contains(t, results, "widgets")
	assert.Error(t, results["widgets"].Err)
}

func TestPrefetchRepoMetadata_SkipsRulesetFetchWhenNoneDeclared(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListRepoTeams", mock.Anything, "acme", "widgets").Return([]platform.TeamAccess{}, nil)
	client.On("ListPendingRepoInvitations", mock.Anything, "acme", "widgets").Return([]platform.Invitation{}, nil)
	client.On("ListDirectCollaborators", mock.Anything, "acme", "widgets").Return([]platform.CollaboratorAccess{}, nil)

	repos := []policy.RepositoryConfig{{Name: "widgets"}}
	observed := map[string]platform.Repository{"widgets": {Name: "widgets"}}

	results := prefetchRepoMetadata(context.Background(), client, "acme", repos, observed)
	require.Contains(t, results, "widgets")
	assert.Nil(t, results["widgets"].Rulesets)
	client.AssertNotCalled(t, "ListRepoRulesets", mock.Anything, mock.Anything, mock.Anything)
}
