package platform

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAPIClient implements APIClient via testify/mock for use in reconciler,
// webhook, and dry-run harness tests.
type MockAPIClient struct {
	mock.Mock
	readOnly bool
}

func NewMockAPIClient(readOnly bool) *MockAPIClient {
	return &MockAPIClient{readOnly: readOnly}
}

func (m *MockAPIClient) ReadOnly() bool { return m.readOnly }

func (m *MockAPIClient) ListOrgMembers(ctx context.Context, org string) ([]Member, error) {
	args := m.Called(ctx, org)
	return castMembers(args.Get(0)), args.Error(1)
}

func (m *MockAPIClient) GetCanonicalLogin(ctx context.Context, login string) (string, error) {
	args := m.Called(ctx, login)
	return args.String(0), args.Error(1)
}

func (m *MockAPIClient) ListPendingOrgInvitations(ctx context.Context, org string) ([]Invitation, error) {
	args := m.Called(ctx, org)
	return castInvitations(args.Get(0)), args.Error(1)
}

func (m *MockAPIClient) CreateOrgInvitation(ctx context.Context, org, login string) error {
	return m.Called(ctx, org, login).Error(0)
}

func (m *MockAPIClient) ListCustomProperties(ctx context.Context, org string) ([]CustomPropertyDef, error) {
	args := m.Called(ctx, org)
	if v, ok := args.Get(0).([]CustomPropertyDef); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) UpsertCustomProperty(ctx context.Context, org string, def CustomPropertyDef) error {
	return m.Called(ctx, org, def).Error(0)
}

func (m *MockAPIClient) DeleteCustomProperty(ctx context.Context, org, name string) error {
	return m.Called(ctx, org, name).Error(0)
}

func (m *MockAPIClient) ListTeams(ctx context.Context, org string) ([]Team, error) {
	args := m.Called(ctx, org)
	if v, ok := args.Get(0).([]Team); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) CreateTeam(ctx context.Context, org, name string, secret bool) (Team, error) {
	args := m.Called(ctx, org, name, secret)
	if v, ok := args.Get(0).(Team); ok {
		return v, args.Error(1)
	}
	return Team{}, args.Error(1)
}

func (m *MockAPIClient) UpdateTeamPrivacy(ctx context.Context, org, slug string, secret bool) error {
	return m.Called(ctx, org, slug, secret).Error(0)
}

func (m *MockAPIClient) UpdateTeamParent(ctx context.Context, org, slug string, parentTeamID int64) error {
	return m.Called(ctx, org, slug, parentTeamID).Error(0)
}

func (m *MockAPIClient) DeleteTeam(ctx context.Context, org, slug string) error {
	return m.Called(ctx, org, slug).Error(0)
}

func (m *MockAPIClient) ListTeamMembersByRole(ctx context.Context, org, slug, role string) ([]TeamMember, error) {
	args := m.Called(ctx, org, slug, role)
	if v, ok := args.Get(0).([]TeamMember); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) AddTeamMembership(ctx context.Context, org, slug, login, role string) error {
	return m.Called(ctx, org, slug, login, role).Error(0)
}

func (m *MockAPIClient) RemoveTeamMembership(ctx context.Context, org, slug, login string) error {
	return m.Called(ctx, org, slug, login).Error(0)
}

func (m *MockAPIClient) ListRepositories(ctx context.Context, org string) ([]Repository, error) {
	args := m.Called(ctx, org)
	if v, ok := args.Get(0).([]Repository); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) CreateRepository(ctx context.Context, org, name string, private bool) (Repository, error) {
	args := m.Called(ctx, org, name, private)
	if v, ok := args.Get(0).(Repository); ok {
		return v, args.Error(1)
	}
	return Repository{}, args.Error(1)
}

func (m *MockAPIClient) UpdateRepositorySettings(ctx context.Context, org, name string, settings RepoSettings) error {
	return m.Called(ctx, org, name, settings).Error(0)
}

func (m *MockAPIClient) GetApprovalPolicy(ctx context.Context, org, name string) (string, error) {
	args := m.Called(ctx, org, name)
	return args.String(0), args.Error(1)
}

func (m *MockAPIClient) SetApprovalPolicy(ctx context.Context, org, name, policy string) error {
	return m.Called(ctx, org, name, policy).Error(0)
}

func (m *MockAPIClient) ListRepoTeams(ctx context.Context, org, name string) ([]TeamAccess, error) {
	args := m.Called(ctx, org, name)
	if v, ok := args.Get(0).([]TeamAccess); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) AddTeamToRepo(ctx context.Context, org, name, teamSlug, permission string) error {
	return m.Called(ctx, org, name, teamSlug, permission).Error(0)
}

func (m *MockAPIClient) RemoveTeamFromRepo(ctx context.Context, org, name, teamSlug string) error {
	return m.Called(ctx, org, name, teamSlug).Error(0)
}

func (m *MockAPIClient) ListPendingRepoInvitations(ctx context.Context, org, name string) ([]Invitation, error) {
	args := m.Called(ctx, org, name)
	return castInvitations(args.Get(0)), args.Error(1)
}

func (m *MockAPIClient) UpdateRepoInvitation(ctx context.Context, org, name string, invitationID int64, permission string) error {
	return m.Called(ctx, org, name, invitationID, permission).Error(0)
}

func (m *MockAPIClient) RemoveRepoInvitation(ctx context.Context, org, name string, invitationID int64) error {
	return m.Called(ctx, org, name, invitationID).Error(0)
}

func (m *MockAPIClient) ListDirectCollaborators(ctx context.Context, org, name string) ([]CollaboratorAccess, error) {
	args := m.Called(ctx, org, name)
	if v, ok := args.Get(0).([]CollaboratorAccess); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) AddCollaborator(ctx context.Context, org, name, login, permission string) error {
	return m.Called(ctx, org, name, login, permission).Error(0)
}

func (m *MockAPIClient) RemoveCollaborator(ctx context.Context, org, name, login string) error {
	return m.Called(ctx, org, name, login).Error(0)
}

func (m *MockAPIClient) ListRepoProperties(ctx context.Context, org, name string) (map[string]interface{}, error) {
	args := m.Called(ctx, org, name)
	if v, ok := args.Get(0).(map[string]interface{}); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) SetRepoProperties(ctx context.Context, org, name string, props map[string]interface{}) error {
	return m.Called(ctx, org, name, props).Error(0)
}

func (m *MockAPIClient) ListRepoRulesets(ctx context.Context, org, name string) ([]RulesetRaw, error) {
	args := m.Called(ctx, org, name)
	if v, ok := args.Get(0).([]RulesetRaw); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) GetRuleset(ctx context.Context, org, name string, id int64) (RulesetRaw, error) {
	args := m.Called(ctx, org, name, id)
	if v, ok := args.Get(0).(RulesetRaw); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) CreateRuleset(ctx context.Context, org, name string, ruleset RulesetRaw) error {
	return m.Called(ctx, org, name, ruleset).Error(0)
}

func (m *MockAPIClient) UpdateRuleset(ctx context.Context, org, name string, id int64, ruleset RulesetRaw) error {
	return m.Called(ctx, org, name, id, ruleset).Error(0)
}

func (m *MockAPIClient) DeleteRuleset(ctx context.Context, org, name string, id int64) error {
	return m.Called(ctx, org, name, id).Error(0)
}

func (m *MockAPIClient) GetReleaseByTag(ctx context.Context, org, name, tag string) (*Release, error) {
	args := m.Called(ctx, org, name, tag)
	if v, ok := args.Get(0).(*Release); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error) {
	args := m.Called(ctx, org, repo, path, ref)
	if v, ok := args.Get(0).([]byte); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func castMembers(v interface{}) []Member {
	if m, ok := v.([]Member); ok {
		return m
	}
	return nil
}

func castInvitations(v interface{}) []Invitation {
	if m, ok := v.([]Invitation); ok {
		return m
	}
	return nil
}
