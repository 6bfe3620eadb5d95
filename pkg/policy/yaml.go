package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML implements the `true | "channel-name"` shape of
// TeamConfig.Slack.
func (s *SlackSetting) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := node.Decode(&b); err == nil {
			s.Enabled = b
			return nil
		}
		var str string
		if err := node.Decode(&str); err != nil {
			return fmt.Errorf("slack: expected bool or string, got %q", node.Value)
		}
		s.Enabled = true
		s.Channel = str
		return nil
	default:
		return fmt.Errorf("slack: expected scalar node, got kind %d", node.Kind)
	}
}

// UnmarshalYAML implements the scalar-or-list shape of property values.
func (p *PropertyValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		p.Scalar = s
		p.IsList = false
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		p.List = list
		p.IsList = true
		return nil
	default:
		return fmt.Errorf("property value: unsupported node kind %d", node.Kind)
	}
}

// rulesetEntryYAML is the wire shape of one RepositoryConfig.rulesets[*]
// element: either an inline ruleset mapping or a bare string name reference.
type rulesetEntryYAML struct {
	inline Ruleset
	isRef  bool
	ref    string
}

func (r *rulesetEntryYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		r.isRef = true
		r.ref = name
		return nil
	}
	if node.Kind == yaml.MappingNode {
		var rs Ruleset
		if err := node.Decode(&rs); err != nil {
			return err
		}
		r.inline = rs
		return nil
	}
	return fmt.Errorf("ruleset entry: unsupported node kind %d", node.Kind)
}

// repositoryConfigYAML mirrors RepositoryConfig's wire shape; the
// non-exported fields of RepositoryConfig are not directly decodable by
// yaml.v3 so decoding happens through this shim and decodeRepository below.
type repositoryConfigYAML struct {
	Name                  string                     `yaml:"name"`
	Teams                 map[string]AccessLevel     `yaml:"teams,omitempty"`
	ExternalCollaborators map[string]AccessLevel     `yaml:"external_collaborators,omitempty"`
	Settings              RepositorySettings         `yaml:"settings,omitempty"`
	Visibility            Visibility                 `yaml:"visibility,omitempty"`
	Properties            map[string]PropertyValue   `yaml:"properties,omitempty"`
	Rulesets              []rulesetEntryYAML         `yaml:"rulesets,omitempty"`
}

func (r *RepositoryConfig) UnmarshalYAML(node *yaml.Node) error {
	var shim repositoryConfigYAML
	if err := node.Decode(&shim); err != nil {
		return err
	}
	r.Name = shim.Name
	r.Teams = shim.Teams
	r.ExternalCollaborators = shim.ExternalCollaborators
	r.Settings = shim.Settings
	r.Visibility = shim.Visibility
	r.Properties = shim.Properties
	for _, entry := range shim.Rulesets {
		if entry.isRef {
			r.rawRulesets = append(r.rawRulesets, rawRulesetEntry{ref: entry.ref})
		} else {
			rs := entry.inline
			r.rawRulesets = append(r.rawRulesets, rawRulesetEntry{inline: &rs})
		}
	}
	return nil
}

// organizationConfigYAML mirrors OrganizationConfig's document shape.
type organizationConfigYAML struct {
	Organization       string                  `yaml:"organization"`
	RepositoryDefaults RepositoryDefaults      `yaml:"repository_defaults"`
	Teams              []TeamDecl              `yaml:"teams,omitempty"`
	Repositories       []RepositoryConfig      `yaml:"repositories,omitempty"`
	CommonRulesets     map[string]Ruleset      `yaml:"common_rulesets,omitempty"`
	CustomProperties   []CustomProperty        `yaml:"customProperties,omitempty"`
}

func (o *OrganizationConfig) UnmarshalYAML(node *yaml.Node) error {
	var shim organizationConfigYAML
	if err := node.Decode(&shim); err != nil {
		return err
	}
	o.Organization = shim.Organization
	o.RepositoryDefaults = shim.RepositoryDefaults
	o.CommonRulesets = shim.CommonRulesets
	o.CustomProperties = shim.CustomProperties
	o.Repositories = shim.Repositories
	o.rawTeams = shim.Teams
	return nil
}

// decodeDocument decodes PermissionsConfig's document shape: one org, or a
// bare YAML sequence of orgs.
func decodeDocument(data []byte) (PermissionsConfig, error) {
	var asList []OrganizationConfig
	if err := yaml.Unmarshal(data, &asList); err == nil && len(asList) > 0 {
		return PermissionsConfig{Organizations: asList}, nil
	}

	var single OrganizationConfig
	if err := yaml.Unmarshal(data, &single); err != nil {
		return PermissionsConfig{}, fmt.Errorf("decoding permissions document: %w", err)
	}
	return PermissionsConfig{Organizations: []OrganizationConfig{single}}, nil
}
