package policy

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// Generate renders an OrganizationConfig back into the canonical YAML
// document shape the config generator CLI emits: sorted map keys, teams
// sorted by name, repositories sorted by name. Per-repo settings, rulesets
// and team Slack settings are not rendered, so re-loading the output and
// reconciling it against the same org produces zero mutations only when
// org carries none of those and matches the live state in every rendered
// field.
func Generate(org OrganizationConfig) ([]byte, error) {
	teams := append([]TeamConfig(nil), org.Teams...)
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })

	repos := append([]RepositoryConfig(nil), org.Repositories...)
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })

	doc := canonicalOrg{
		Organization:       org.Organization,
		RepositoryDefaults: org.RepositoryDefaults,
		Teams:              make([]canonicalTeam, 0, len(teams)),
		Repositories:       make([]canonicalRepo, 0, len(repos)),
		CustomProperties:   org.CustomProperties,
	}

	for _, t := range teams {
		members := append([]string(nil), t.Members...)
		sort.Strings(members)
		maintainers := append([]string(nil), t.Maintainers...)
		sort.Strings(maintainers)
		doc.Teams = append(doc.Teams, canonicalTeam{
			Name:        t.Name,
			Members:     members,
			Maintainers: maintainers,
			Parent:      t.Parent,
			Secret:      t.Secret,
			DisplayName: t.DisplayName,
			GSuite:      t.GSuite,
		})
	}

	for _, r := range repos {
		doc.Repositories = append(doc.Repositories, canonicalRepo{
			Name:                  r.Name,
			Teams:                 r.Teams,
			ExternalCollaborators: r.ExternalCollaborators,
			Visibility:            r.Visibility,
			Properties:            r.Properties,
		})
	}

	return yaml.Marshal(doc)
}

type canonicalTeam struct {
	Name        string          `yaml:"name"`
	Members     []string        `yaml:"members,omitempty"`
	Maintainers []string        `yaml:"maintainers"`
	Parent      string          `yaml:"parent,omitempty"`
	Secret      bool            `yaml:"secret,omitempty"`
	DisplayName string          `yaml:"displayName,omitempty"`
	GSuite      *GSuiteSettings `yaml:"gsuite,omitempty"`
}

type canonicalRepo struct {
	Name                  string                   `yaml:"name"`
	Teams                 map[string]AccessLevel   `yaml:"teams,omitempty"`
	ExternalCollaborators map[string]AccessLevel   `yaml:"external_collaborators,omitempty"`
	Visibility            Visibility               `yaml:"visibility,omitempty"`
	Properties            map[string]PropertyValue `yaml:"properties,omitempty"`
}

type canonicalOrg struct {
	Organization       string           `yaml:"organization"`
	RepositoryDefaults RepositoryDefaults `yaml:"repository_defaults"`
	Teams              []canonicalTeam  `yaml:"teams"`
	Repositories       []canonicalRepo  `yaml:"repositories"`
	CustomProperties   []CustomProperty `yaml:"customProperties,omitempty"`
}

// MarshalYAML implements the scalar-or-list inverse of UnmarshalYAML.
func (p PropertyValue) MarshalYAML() (interface{}, error) {
	if p.IsList {
		return p.List, nil
	}
	return p.Scalar, nil
}
