package platform

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/go-github/v66/github"
	"github.com/shurcooL/graphql"
	"golang.org/x/oauth2"
)

// Member is a minimal org-member projection.
type Member struct {
	Login   string
	IsOwner bool
}

// Invitation is a pending org- or repo-level invitation.
type Invitation struct {
	ID         int64
	Login      string
	Permission string
}

// Team is the upstream team projection the reconciler operates on.
type Team struct {
	ID       int64
	Name     string
	Slug     string
	Privacy  string
	ParentID int64
}

// TeamMember is one (login, role) pair returned by team membership queries.
type TeamMember struct {
	Login string
	Role  string // "MEMBER" or "MAINTAINER"
}

// Repository is the upstream repository projection.
type Repository struct {
	ID             int64
	Name           string
	Private        bool
	Archived       bool
	HasWiki        bool
	StargazerCount int
}

// RepoSettings groups the subset of repository settings the reconciler
// writes.
type RepoSettings struct {
	HasWiki *bool
	Private *bool
}

// CollaboratorAccess is a direct collaborator and their resolved level.
type CollaboratorAccess struct {
	Login      string
	Permission string // upstream permission string, e.g. "push"
}

// TeamAccess is a team attached to a repository and its permission.
type TeamAccess struct {
	Slug       string
	Permission string
}

// CustomPropertyDef mirrors the upstream org custom-property schema API.
type CustomPropertyDef struct {
	PropertyName  string
	ValueType     string
	Required      bool
	Description   string
	DefaultValue  interface{}
	AllowedValues []string
}

// RulesetRaw is the upstream ruleset wire shape, decoded to a generic map
// so pkg/ruleset can normalize/diff it without this package depending on
// ruleset's types (avoids an import cycle; platform stays the transport).
type RulesetRaw map[string]interface{}

// Release is a minimal release projection used by the trusted-releaser
// policy check.
type Release struct {
	TagName string
}

// APIClient is the full platform surface the reconciler, webhook engine,
// and dry-run harness depend on. pkg/platform's Client implements it
// against the real upstream platform; tests substitute a mock.
type APIClient interface {
	ReadOnly() bool

	// Organization
	ListOrgMembers(ctx context.Context, org string) ([]Member, error)
	GetCanonicalLogin(ctx context.Context, login string) (string, error)
	ListPendingOrgInvitations(ctx context.Context, org string) ([]Invitation, error)
	CreateOrgInvitation(ctx context.Context, org, login string) error

	// Custom properties
	ListCustomProperties(ctx context.Context, org string) ([]CustomPropertyDef, error)
	UpsertCustomProperty(ctx context.Context, org string, def CustomPropertyDef) error
	DeleteCustomProperty(ctx context.Context, org, name string) error

	// Teams
	ListTeams(ctx context.Context, org string) ([]Team, error)
	CreateTeam(ctx context.Context, org, name string, secret bool) (Team, error)
	UpdateTeamPrivacy(ctx context.Context, org, slug string, secret bool) error
	UpdateTeamParent(ctx context.Context, org, slug string, parentTeamID int64) error
	DeleteTeam(ctx context.Context, org, slug string) error
	ListTeamMembersByRole(ctx context.Context, org, slug, role string) ([]TeamMember, error)
	AddTeamMembership(ctx context.Context, org, slug, login, role string) error
	RemoveTeamMembership(ctx context.Context, org, slug, login string) error

	// Repositories
	ListRepositories(ctx context.Context, org string) ([]Repository, error)
	CreateRepository(ctx context.Context, org, name string, private bool) (Repository, error)
	UpdateRepositorySettings(ctx context.Context, org, name string, settings RepoSettings) error
	GetApprovalPolicy(ctx context.Context, org, name string) (string, error)
	SetApprovalPolicy(ctx context.Context, org, name, policy string) error

	ListRepoTeams(ctx context.Context, org, name string) ([]TeamAccess, error)
	AddTeamToRepo(ctx context.Context, org, name, teamSlug, permission string) error
	RemoveTeamFromRepo(ctx context.Context, org, name, teamSlug string) error

	ListPendingRepoInvitations(ctx context.Context, org, name string) ([]Invitation, error)
	UpdateRepoInvitation(ctx context.Context, org, name string, invitationID int64, permission string) error
	RemoveRepoInvitation(ctx context.Context, org, name string, invitationID int64) error

	ListDirectCollaborators(ctx context.Context, org, name string) ([]CollaboratorAccess, error)
	AddCollaborator(ctx context.Context, org, name, login, permission string) error
	RemoveCollaborator(ctx context.Context, org, name, login string) error

	ListRepoProperties(ctx context.Context, org, name string) (map[string]interface{}, error)
	SetRepoProperties(ctx context.Context, org, name string, props map[string]interface{}) error

	ListRepoRulesets(ctx context.Context, org, name string) ([]RulesetRaw, error)
	GetRuleset(ctx context.Context, org, name string, id int64) (RulesetRaw, error)
	CreateRuleset(ctx context.Context, org, name string, ruleset RulesetRaw) error
	UpdateRuleset(ctx context.Context, org, name string, id int64, ruleset RulesetRaw) error
	DeleteRuleset(ctx context.Context, org, name string, id int64) error

	GetReleaseByTag(ctx context.Context, org, name, tag string) (*Release, error)

	GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error)
}

// Client implements APIClient against the real source-hosting platform,
// using go-github for REST calls (ruleset listing included) and
// shurcooL/graphql for the role-filtered team membership query.
type Client struct {
	rest     *github.Client
	gql      *graphql.Client
	ctx      context.Context
	readOnly bool
}

// NewClient builds a Client authenticated with token. readOnly narrows
// every mutating method to a no-op error, implementing the credential
// provider's dry-run narrowing (§4.2's "Credential Provider").
func NewClient(ctx context.Context, token string, readOnly bool) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &Client{
		rest:     github.NewClient(tc),
		gql:      graphql.NewClient("https://api.github.com/graphql", tc),
		ctx:      ctx,
		readOnly: readOnly,
	}
}

func (c *Client) ReadOnly() bool { return c.readOnly }

func (c *Client) guardWrite(resource string) error {
	if c.readOnly {
		return New(ErrAuthInsufficient, "client is read-only (dry-run); refused mutating call against "+resource, nil)
	}
	return nil
}

func (c *Client) ListOrgMembers(ctx context.Context, org string) ([]Member, error) {
	opts := &github.ListMembersOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var out []Member
	err := WithRetry(func() error {
		out = nil
		opts.Page = 0
		for {
			members, resp, err := c.rest.Organizations.ListMembers(ctx, org, opts)
			if err != nil {
				return Wrap(err, "org members "+org)
			}
			for _, m := range members {
				role, _, err := c.rest.Organizations.GetOrgMembership(ctx, m.GetLogin(), org)
				isOwner := err == nil && role != nil && role.GetRole() == "admin"
				out = append(out, Member{Login: m.GetLogin(), IsOwner: isOwner})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func (c *Client) GetCanonicalLogin(ctx context.Context, login string) (string, error) {
	var user *github.User
	err := WithRetry(func() error {
		var err error
		user, _, err = c.rest.Users.Get(ctx, login)
		if err != nil {
			return Wrap(err, "user "+login)
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return "", err
	}
	return user.GetLogin(), nil
}

func (c *Client) ListPendingOrgInvitations(ctx context.Context, org string) ([]Invitation, error) {
	opts := &github.ListOptions{PerPage: 100}
	var out []Invitation
	err := WithRetry(func() error {
		out = nil
		opts.Page = 0
		for {
			invites, resp, err := c.rest.Organizations.ListPendingOrgInvitations(ctx, org, &github.ListOrgMembershipsOptions{})
			if err != nil {
				return Wrap(err, "pending invitations "+org)
			}
			for _, inv := range invites {
				out = append(out, Invitation{ID: inv.GetID(), Login: inv.GetLogin()})
			}
			if resp == nil || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func (c *Client) CreateOrgInvitation(ctx context.Context, org, login string) error {
	if err := c.guardWrite("org invitation " + login); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Organizations.CreateOrgInvitation(ctx, org, &github.CreateOrgInvitationOptions{
			Invitee: &login,
			Role:    github.String("direct_member"),
		})
		if err != nil {
			return Wrap(err, "org invitation "+login)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) ListCustomProperties(ctx context.Context, org string) ([]CustomPropertyDef, error) {
	var defs []CustomPropertyDef
	err := WithRetry(func() error {
		props, _, err := c.rest.Organizations.GetAllCustomProperties(ctx, org)
		if err != nil {
			return Wrap(err, "custom properties "+org)
		}
		for _, p := range props {
			defs = append(defs, CustomPropertyDef{
				PropertyName:  p.GetPropertyName(),
				ValueType:     p.GetValueType(),
				Required:      p.GetRequired(),
				Description:   p.GetDescription(),
				DefaultValue:  p.DefaultValue,
				AllowedValues: p.AllowedValues,
			})
		}
		return nil
	}, DefaultRetryConfig())
	return defs, err
}

func (c *Client) UpsertCustomProperty(ctx context.Context, org string, def CustomPropertyDef) error {
	if err := c.guardWrite("custom property " + def.PropertyName); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Organizations.CreateOrUpdateCustomProperty(ctx, org, def.PropertyName, &github.CustomProperty{
			PropertyName:  def.PropertyName,
			ValueType:     def.ValueType,
			Required:      &def.Required,
			Description:   &def.Description,
			DefaultValue:  def.DefaultValue,
			AllowedValues: def.AllowedValues,
		})
		if err != nil {
			return Wrap(err, "custom property "+def.PropertyName)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) DeleteCustomProperty(ctx context.Context, org, name string) error {
	if err := c.guardWrite("custom property " + name); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Organizations.RemoveCustomProperty(ctx, org, name)
		if err != nil {
			return Wrap(err, "custom property "+name)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) ListTeams(ctx context.Context, org string) ([]Team, error) {
	opts := &github.ListOptions{PerPage: 100}
	var out []Team
	err := WithRetry(func() error {
		out = nil
		opts.Page = 0
		for {
			teams, resp, err := c.rest.Teams.ListTeams(ctx, org, opts)
			if err != nil {
				return Wrap(err, "teams "+org)
			}
			for _, t := range teams {
				var parentID int64
				if t.Parent != nil {
					parentID = t.Parent.GetID()
				}
				out = append(out, Team{ID: t.GetID(), Name: t.GetName(), Slug: t.GetSlug(), Privacy: t.GetPrivacy(), ParentID: parentID})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func (c *Client) CreateTeam(ctx context.Context, org, name string, secret bool) (Team, error) {
	if err := c.guardWrite("team " + name); err != nil {
		return Team{}, err
	}
	privacy := "closed"
	if secret {
		privacy = "secret"
	}
	var created *github.Team
	err := WithRetry(func() error {
		var err error
		created, _, err = c.rest.Teams.CreateTeam(ctx, org, github.NewTeam{Name: name, Privacy: github.String(privacy)})
		if err != nil {
			return Wrap(err, "team "+name)
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return Team{}, err
	}
	return Team{ID: created.GetID(), Name: created.GetName(), Slug: created.GetSlug(), Privacy: created.GetPrivacy()}, nil
}

func (c *Client) UpdateTeamPrivacy(ctx context.Context, org, slug string, secret bool) error {
	if err := c.guardWrite("team " + slug); err != nil {
		return err
	}
	privacy := "closed"
	if secret {
		privacy = "secret"
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Teams.EditTeamBySlug(ctx, org, slug, github.NewTeam{Name: slug, Privacy: github.String(privacy)}, false)
		if err != nil {
			return Wrap(err, "team "+slug)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) UpdateTeamParent(ctx context.Context, org, slug string, parentTeamID int64) error {
	if err := c.guardWrite("team " + slug); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Teams.EditTeamBySlug(ctx, org, slug, github.NewTeam{Name: slug, ParentTeamID: &parentTeamID}, false)
		if err != nil {
			return Wrap(err, "team "+slug)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) DeleteTeam(ctx context.Context, org, slug string) error {
	if err := c.guardWrite("team " + slug); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Teams.DeleteTeamBySlug(ctx, org, slug)
		if err != nil {
			return Wrap(err, "team "+slug)
		}
		return nil
	}, DefaultRetryConfig())
}

// teamMembersQuery mirrors organization(login).team(slug).members(...) for
// ListTeamMembersByRole, capped at 100 per the specification.
type teamMembersQuery struct {
	Organization struct {
		Team struct {
			Members struct {
				Nodes []struct {
					Login graphql.String
				}
				PageInfo struct {
					EndCursor   graphql.String
					HasNextPage graphql.Boolean
				}
			} `graphql:"members(membership: IMMEDIATE, role: $role, first: 100, after: $cursor)"`
		} `graphql:"team(slug: $slug)"`
	} `graphql:"organization(login: $login)"`
}

func (c *Client) ListTeamMembersByRole(ctx context.Context, org, slug, role string) ([]TeamMember, error) {
	var out []TeamMember
	var cursor graphql.String
	err := WithRetry(func() error {
		out = nil
		cursor = ""
		for {
			var q teamMembersQuery
			vars := map[string]interface{}{
				"login":  graphql.String(org),
				"slug":   graphql.String(slug),
				"role":   graphql.String(role),
				"cursor": cursorOrNull(cursor),
			}
			if err := c.gql.Query(ctx, &q, vars); err != nil {
				return Wrap(err, fmt.Sprintf("team members %s/%s", org, slug))
			}
			for _, n := range q.Organization.Team.Members.Nodes {
				out = append(out, TeamMember{Login: string(n.Login), Role: role})
			}
			if !bool(q.Organization.Team.Members.PageInfo.HasNextPage) {
				break
			}
			cursor = q.Organization.Team.Members.PageInfo.EndCursor
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func cursorOrNull(cursor graphql.String) *graphql.String {
	if cursor == "" {
		return nil
	}
	return &cursor
}

func (c *Client) AddTeamMembership(ctx context.Context, org, slug, login, role string) error {
	if err := c.guardWrite("team membership " + slug + "/" + login); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Teams.AddTeamMembershipBySlug(ctx, org, slug, login, &github.TeamAddTeamMembershipOptions{Role: role})
		if err != nil {
			return Wrap(err, "team membership "+slug+"/"+login)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) RemoveTeamMembership(ctx context.Context, org, slug, login string) error {
	if err := c.guardWrite("team membership " + slug + "/" + login); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Teams.RemoveTeamMembershipBySlug(ctx, org, slug, login)
		if err != nil {
			return Wrap(err, "team membership "+slug+"/"+login)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) ListRepositories(ctx context.Context, org string) ([]Repository, error) {
	opts := &github.RepositoryListByOrgOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var out []Repository
	err := WithRetry(func() error {
		out = nil
		opts.Page = 0
		for {
			repos, resp, err := c.rest.Repositories.ListByOrg(ctx, org, opts)
			if err != nil {
				return Wrap(err, "repositories "+org)
			}
			for _, r := range repos {
				out = append(out, Repository{
					ID: r.GetID(), Name: r.GetName(), Private: r.GetPrivate(),
					Archived: r.GetArchived(), HasWiki: r.GetHasWiki(), StargazerCount: r.GetStargazersCount(),
				})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func (c *Client) CreateRepository(ctx context.Context, org, name string, private bool) (Repository, error) {
	if err := c.guardWrite("repository " + name); err != nil {
		return Repository{}, err
	}
	var created *github.Repository
	err := WithRetry(func() error {
		var err error
		created, _, err = c.rest.Repositories.Create(ctx, org, &github.Repository{
			Name: github.String(name), Private: github.Bool(private), HasWiki: github.Bool(false),
		})
		if err != nil {
			return Wrap(err, "repository "+name)
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return Repository{}, err
	}
	return Repository{ID: created.GetID(), Name: created.GetName(), Private: created.GetPrivate()}, nil
}

func (c *Client) UpdateRepositorySettings(ctx context.Context, org, name string, settings RepoSettings) error {
	if err := c.guardWrite("repository " + name); err != nil {
		return err
	}
	update := &github.Repository{Name: github.String(name)}
	if settings.HasWiki != nil {
		update.HasWiki = settings.HasWiki
	}
	if settings.Private != nil {
		update.Private = settings.Private
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Repositories.Edit(ctx, org, name, update)
		if err != nil {
			return Wrap(err, "repository "+name)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) GetApprovalPolicy(ctx context.Context, org, name string) (string, error) {
	req, err := c.rest.NewRequest("GET", fmt.Sprintf("repos/%s/%s/actions/permissions/fork-pr-contributor-approval", org, name), nil)
	if err != nil {
		return "", Wrap(err, "fork approval policy "+name)
	}
	var result struct {
		ApprovalPolicy string `json:"approval_policy"`
	}
	_, err = c.rest.Do(ctx, req, &result)
	if err != nil {
		return "", Wrap(err, "fork approval policy "+name)
	}
	return result.ApprovalPolicy, nil
}

func (c *Client) SetApprovalPolicy(ctx context.Context, org, name, policy string) error {
	if err := c.guardWrite("fork approval policy " + name); err != nil {
		return err
	}
	body := struct {
		ApprovalPolicy string `json:"approval_policy"`
	}{ApprovalPolicy: policy}
	req, err := c.rest.NewRequest("PUT", fmt.Sprintf("repos/%s/%s/actions/permissions/fork-pr-contributor-approval", org, name), body)
	if err != nil {
		return Wrap(err, "fork approval policy "+name)
	}
	_, err = c.rest.Do(ctx, req, nil)
	if err != nil {
		return Wrap(err, "fork approval policy "+name)
	}
	return nil
}

func (c *Client) ListRepoTeams(ctx context.Context, org, name string) ([]TeamAccess, error) {
	opts := &github.ListOptions{PerPage: 100}
	var out []TeamAccess
	err := WithRetry(func() error {
		out = nil
		opts.Page = 0
		for {
			teams, resp, err := c.rest.Repositories.ListTeams(ctx, org, name, opts)
			if err != nil {
				return Wrap(err, "repo teams "+name)
			}
			for _, t := range teams {
				out = append(out, TeamAccess{Slug: t.GetSlug(), Permission: t.GetPermission()})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func (c *Client) AddTeamToRepo(ctx context.Context, org, name, teamSlug, permission string) error {
	if err := c.guardWrite("repo team " + teamSlug); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Teams.AddTeamRepoBySlug(ctx, org, teamSlug, org, name, &github.TeamAddTeamRepoOptions{Permission: permission})
		if err != nil {
			return Wrap(err, "repo team "+teamSlug)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) RemoveTeamFromRepo(ctx context.Context, org, name, teamSlug string) error {
	if err := c.guardWrite("repo team " + teamSlug); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Teams.RemoveTeamRepoBySlug(ctx, org, teamSlug, org, name)
		if err != nil {
			return Wrap(err, "repo team "+teamSlug)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) ListPendingRepoInvitations(ctx context.Context, org, name string) ([]Invitation, error) {
	opts := &github.ListOptions{PerPage: 100}
	var out []Invitation
	err := WithRetry(func() error {
		out = nil
		opts.Page = 0
		for {
			invites, resp, err := c.rest.Repositories.ListInvitations(ctx, org, name, opts)
			if err != nil {
				return Wrap(err, "repo invitations "+name)
			}
			for _, inv := range invites {
				out = append(out, Invitation{ID: inv.GetID(), Login: inv.GetInvitee().GetLogin(), Permission: inv.GetPermissions()})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func (c *Client) UpdateRepoInvitation(ctx context.Context, org, name string, invitationID int64, permission string) error {
	if err := c.guardWrite("repo invitation"); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Repositories.UpdateInvitation(ctx, org, name, invitationID, permission)
		if err != nil {
			return Wrap(err, "repo invitation")
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) RemoveRepoInvitation(ctx context.Context, org, name string, invitationID int64) error {
	if err := c.guardWrite("repo invitation"); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Repositories.DeleteInvitation(ctx, org, name, invitationID)
		if err != nil {
			return Wrap(err, "repo invitation")
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) ListDirectCollaborators(ctx context.Context, org, name string) ([]CollaboratorAccess, error) {
	opts := &github.ListCollaboratorsOptions{ListOptions: github.ListOptions{PerPage: 100}, Affiliation: "direct"}
	var out []CollaboratorAccess
	err := WithRetry(func() error {
		out = nil
		opts.Page = 0
		for {
			collabs, resp, err := c.rest.Repositories.ListCollaborators(ctx, org, name, opts)
			if err != nil {
				return Wrap(err, "collaborators "+name)
			}
			for _, collab := range collabs {
				out = append(out, CollaboratorAccess{Login: collab.GetLogin(), Permission: collab.GetRoleName()})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	return out, err
}

func (c *Client) AddCollaborator(ctx context.Context, org, name, login, permission string) error {
	if err := c.guardWrite("collaborator " + login); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, _, err := c.rest.Repositories.AddCollaborator(ctx, org, name, login, &github.RepositoryAddCollaboratorOptions{Permission: permission})
		if err != nil {
			return Wrap(err, "collaborator "+login)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) RemoveCollaborator(ctx context.Context, org, name, login string) error {
	if err := c.guardWrite("collaborator " + login); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Repositories.RemoveCollaborator(ctx, org, name, login)
		if err != nil {
			return Wrap(err, "collaborator "+login)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) ListRepoProperties(ctx context.Context, org, name string) (map[string]interface{}, error) {
	var props []*github.CustomPropertyValue
	err := WithRetry(func() error {
		var err error
		props, _, err = c.rest.Repositories.GetAllCustomPropertyValues(ctx, org, name)
		if err != nil {
			return Wrap(err, "repo properties "+name)
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(props))
	for _, p := range props {
		out[p.PropertyName] = p.Value
	}
	return out, nil
}

func (c *Client) SetRepoProperties(ctx context.Context, org, name string, props map[string]interface{}) error {
	if err := c.guardWrite("repo properties " + name); err != nil {
		return err
	}
	values := make([]*github.CustomPropertyValue, 0, len(props))
	for k, v := range props {
		values = append(values, &github.CustomPropertyValue{PropertyName: k, Value: v})
	}
	return WithRetry(func() error {
		_, err := c.rest.Repositories.CreateOrUpdateCustomPropertyValues(ctx, org, name, &github.CustomPropertyValues{Properties: values})
		if err != nil {
			return Wrap(err, "repo properties "+name)
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) ListRepoRulesets(ctx context.Context, org, name string) ([]RulesetRaw, error) {
	var rulesets []*github.RepositoryRuleset
	err := WithRetry(func() error {
		var err error
		rulesets, _, err = c.rest.Repositories.GetAllRulesets(ctx, org, name, false)
		if err != nil {
			return Wrap(err, "rulesets "+name)
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	out := make([]RulesetRaw, 0, len(rulesets))
	for _, rs := range rulesets {
		full, _, err := c.rest.Repositories.GetRuleset(ctx, org, name, rs.GetID(), false)
		if err != nil {
			return nil, Wrap(err, "ruleset "+rs.GetName())
		}
		out = append(out, rulesetToRaw(full))
	}
	return out, nil
}

func (c *Client) GetRuleset(ctx context.Context, org, name string, id int64) (RulesetRaw, error) {
	var rs *github.RepositoryRuleset
	err := WithRetry(func() error {
		var err error
		rs, _, err = c.rest.Repositories.GetRuleset(ctx, org, name, id, false)
		if err != nil {
			return Wrap(err, "ruleset")
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	return rulesetToRaw(rs), nil
}

func (c *Client) CreateRuleset(ctx context.Context, org, name string, ruleset RulesetRaw) error {
	if err := c.guardWrite("ruleset " + name); err != nil {
		return err
	}
	rs := rawToRuleset(ruleset)
	return WithRetry(func() error {
		_, _, err := c.rest.Repositories.CreateRuleset(ctx, org, name, *rs)
		if err != nil {
			return Wrap(err, "ruleset create")
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) UpdateRuleset(ctx context.Context, org, name string, id int64, ruleset RulesetRaw) error {
	if err := c.guardWrite("ruleset " + name); err != nil {
		return err
	}
	rs := rawToRuleset(ruleset)
	return WithRetry(func() error {
		_, _, err := c.rest.Repositories.UpdateRuleset(ctx, org, name, id, *rs)
		if err != nil {
			return Wrap(err, "ruleset update")
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) DeleteRuleset(ctx context.Context, org, name string, id int64) error {
	if err := c.guardWrite("ruleset " + name); err != nil {
		return err
	}
	return WithRetry(func() error {
		_, err := c.rest.Repositories.DeleteRuleset(ctx, org, name, id)
		if err != nil {
			return Wrap(err, "ruleset delete")
		}
		return nil
	}, DefaultRetryConfig())
}

func (c *Client) GetReleaseByTag(ctx context.Context, org, name, tag string) (*Release, error) {
	var rel *github.RepositoryRelease
	err := WithRetry(func() error {
		var err error
		rel, _, err = c.rest.Repositories.GetReleaseByTag(ctx, org, name, tag)
		if err != nil {
			if perr := Wrap(err, "release "+tag); perr.Kind == ErrNotFound {
				return nil
			}
			return Wrap(err, "release "+tag)
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, nil
	}
	return &Release{TagName: rel.GetTagName()}, nil
}

func (c *Client) GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error) {
	var content *github.RepositoryContent
	err := WithRetry(func() error {
		var err error
		content, _, _, err = c.rest.Repositories.GetContents(ctx, org, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
		if err != nil {
			return Wrap(err, fmt.Sprintf("file %s/%s@%s/%s", org, repo, ref, path))
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	if content.Content == nil {
		return nil, New(ErrNotFound, "file has no content: "+path, nil)
	}
	if content.GetEncoding() == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(*content.Content)
		if err != nil {
			return nil, New(ErrUnknown, "decoding base64 content", err)
		}
		return decoded, nil
	}
	return []byte(*content.Content), nil
}

func rulesetToRaw(rs *github.RepositoryRuleset) RulesetRaw {
	return RulesetRaw{
		"id":          rs.GetID(),
		"name":        rs.GetName(),
		"target":      rs.GetTarget(),
		"enforcement": rs.GetEnforcement(),
		"conditions":  rs.Conditions,
		"rules":       rs.Rules,
		"bypass_actors": rs.BypassActors,
	}
}

func rawToRuleset(raw RulesetRaw) *github.RepositoryRuleset {
	rs := &github.RepositoryRuleset{}
	if v, ok := raw["name"].(string); ok {
		rs.Name = v
	}
	if v, ok := raw["target"].(string); ok {
		t := github.RepositoryRulesetTarget(v)
		rs.Target = &t
	}
	if v, ok := raw["enforcement"].(string); ok {
		rs.Enforcement = github.RepositoryRulesetEnforcement(v)
	}
	if v, ok := raw["conditions"].(*github.RepositoryRulesetConditions); ok {
		rs.Conditions = v
	}
	if v, ok := raw["rules"].(*github.RepositoryRulesetRules); ok {
		rs.Rules = v
	}
	if v, ok := raw["bypass_actors"].([]*github.BypassActor); ok {
		rs.BypassActors = v
	}
	return rs
}
