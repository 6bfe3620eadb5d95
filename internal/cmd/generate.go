package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/oakline-labs/warden/internal/logging"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

var generateOrg string

var redHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Read an organization's live state and emit a canonical YAML document",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOrg, "org", "", "organization login to read (required)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := logging.Init(debugLogs); err != nil {
		return err
	}
	defer logging.Sync()

	if generateOrg == "" {
		fmt.Println(redHeader.Render("generate requires --org"))
		return fmt.Errorf("--org is required")
	}

	token, err := platform.TokenFromEnv()
	if err != nil {
		fmt.Println(redHeader.Render(err.Error()))
		return err
	}

	ctx := context.Background()
	client := platform.NewClient(ctx, token, true)

	doc, err := generateOrganizationConfig(ctx, client, generateOrg)
	if err != nil {
		fmt.Println(redHeader.Render(err.Error()))
		return err
	}

	out, err := policy.Generate(*doc)
	if err != nil {
		fmt.Println(redHeader.Render(err.Error()))
		return err
	}

	fmt.Print(string(out))
	return nil
}

// generateOrganizationConfig reads an org's teams, team memberships,
// repositories, per-repo teams and direct collaborators, and org-level
// custom property definitions, and projects them into the declarative
// shape policy.Generate renders as canonical YAML. Repository rulesets
// and per-repo custom property values are not read.
func generateOrganizationConfig(ctx context.Context, client platform.APIClient, org string) (*policy.OrganizationConfig, error) {
	doc := &policy.OrganizationConfig{Organization: org}

	teams, err := client.ListTeams(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	for _, t := range teams {
		maintainers, err := client.ListTeamMembersByRole(ctx, org, t.Slug, "MAINTAINER")
		if err != nil {
			return nil, fmt.Errorf("listing maintainers of %q: %w", t.Name, err)
		}
		members, err := client.ListTeamMembersByRole(ctx, org, t.Slug, "MEMBER")
		if err != nil {
			return nil, fmt.Errorf("listing members of %q: %w", t.Name, err)
		}

		team := policy.TeamConfig{
			Name:   t.Name,
			Secret: t.Privacy == "secret",
		}
		for _, m := range maintainers {
			team.Maintainers = append(team.Maintainers, m.Login)
		}
		for _, m := range members {
			team.Members = append(team.Members, m.Login)
		}
		if t.ParentID != 0 {
			for _, parent := range teams {
				if parent.ID == t.ParentID {
					team.Parent = parent.Name
					break
				}
			}
		}
		doc.Teams = append(doc.Teams, team)
	}

	properties, err := client.ListCustomProperties(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("listing custom properties: %w", err)
	}
	for _, p := range properties {
		doc.CustomProperties = append(doc.CustomProperties, policy.CustomProperty{
			PropertyName:  p.PropertyName,
			ValueType:     policy.CustomPropertyType(p.ValueType),
			Required:      p.Required,
			Description:   p.Description,
			AllowedValues: p.AllowedValues,
		})
	}

	repos, err := client.ListRepositories(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	for _, r := range repos {
		repo := policy.RepositoryConfig{Name: r.Name, Visibility: policy.VisibilityPublic}
		if r.Private {
			repo.Visibility = policy.VisibilityPrivate
		}

		teamAccess, err := client.ListRepoTeams(ctx, org, r.Name)
		if err != nil {
			return nil, fmt.Errorf("listing teams on %q: %w", r.Name, err)
		}
		repo.Teams = map[string]policy.AccessLevel{}
		for _, ta := range teamAccess {
			if level, ok := policy.FromGitHubPermission(ta.Permission); ok {
				repo.Teams[ta.Slug] = level
			}
		}

		collaborators, err := client.ListDirectCollaborators(ctx, org, r.Name)
		if err != nil {
			return nil, fmt.Errorf("listing collaborators on %q: %w", r.Name, err)
		}
		repo.ExternalCollaborators = map[string]policy.AccessLevel{}
		for _, c := range collaborators {
			if level, ok := policy.FromGitHubPermission(c.Permission); ok {
				repo.ExternalCollaborators[c.Login] = level
			}
		}

		doc.Repositories = append(doc.Repositories, repo)
	}

	return doc, nil
}
