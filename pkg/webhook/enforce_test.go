package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

func baseOrg() *policy.OrganizationConfig {
	return &policy.OrganizationConfig{
		Organization: "acme",
		Repositories: []policy.RepositoryConfig{
			{
				Name: "widgets",
				ExternalCollaborators: map[string]policy.AccessLevel{
					"alice": policy.AccessWrite,
				},
			},
		},
	}
}

func TestEnforceCollaboratorChange_WrongOrgAllows(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	outcome, _, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "other-org", RepoName: "widgets", Login: "bob", Action: "added",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeAllow, outcome)
	client.AssertNotCalled(t, "ListOrgMembers")
}

func TestEnforceCollaboratorChange_UnknownRepoAllows(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	outcome, _, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "acme", RepoName: "ghost-repo", Login: "bob", Action: "added",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeAllow, outcome)
}

func TestEnforceCollaboratorChange_OrgOwnerAlwaysAllowed(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListOrgMembers", mock.Anything, "acme").Return([]platform.Member{
		{Login: "bob", IsOwner: true},
	}, nil)

	outcome, _, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "acme", RepoName: "widgets", Login: "bob", Action: "added",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeAllow, outcome)
}

func TestEnforceCollaboratorChange_UndeclaredRemovalAllowed(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListOrgMembers", mock.Anything, "acme").Return([]platform.Member{}, nil)

	outcome, _, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "acme", RepoName: "widgets", Login: "mallory", Action: "removed",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeAllow, outcome)
}

func TestEnforceCollaboratorChange_UndeclaredAdditionReverted(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListOrgMembers", mock.Anything, "acme").Return([]platform.Member{}, nil)
	client.On("RemoveCollaborator", mock.Anything, "acme", "widgets", "mallory").Return(nil)

	outcome, msg, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "acme", RepoName: "widgets", Login: "mallory", Action: "added",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeRevert, outcome)
	assert.NotEmpty(t, msg)
	client.AssertCalled(t, "RemoveCollaborator", mock.Anything, "acme", "widgets", "mallory")
}

func TestEnforceCollaboratorChange_DeclaredCorrectLevelAllowed(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListOrgMembers", mock.Anything, "acme").Return([]platform.Member{}, nil)
	client.On("ListDirectCollaborators", mock.Anything, "acme", "widgets").Return([]platform.CollaboratorAccess{
		{Login: "alice", Permission: "push"},
	}, nil)

	outcome, _, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "acme", RepoName: "widgets", Login: "alice", Action: "edited",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeAllow, outcome)
}

func TestEnforceCollaboratorChange_DeclaredButRemovedIsReverted(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListOrgMembers", mock.Anything, "acme").Return([]platform.Member{}, nil)
	client.On("ListDirectCollaborators", mock.Anything, "acme", "widgets").Return([]platform.CollaboratorAccess{}, nil)
	client.On("AddCollaborator", mock.Anything, "acme", "widgets", "alice", "push").Return(nil)

	outcome, _, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "acme", RepoName: "widgets", Login: "alice", Action: "removed",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeRevert, outcome)
}

func TestEnforceCollaboratorChange_DeclaredWrongLevelIsAdjusted(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("ListOrgMembers", mock.Anything, "acme").Return([]platform.Member{}, nil)
	client.On("ListDirectCollaborators", mock.Anything, "acme", "widgets").Return([]platform.CollaboratorAccess{
		{Login: "alice", Permission: "pull"},
	}, nil)
	client.On("AddCollaborator", mock.Anything, "acme", "widgets", "alice", "push").Return(nil)

	outcome, msg, err := EnforceCollaboratorChange(context.Background(), client, baseOrg(), CollaboratorChange{
		OrgLogin: "acme", RepoName: "widgets", Login: "alice", Action: "edited",
	})
	require.NoError(t, err)
	assert.Equal(t, alert.OutcomeAdjust, outcome)
	assert.Contains(t, msg, "write")
}
