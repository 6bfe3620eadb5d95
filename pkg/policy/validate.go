package policy

import (
	"fmt"
	"regexp"
)

var teamNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Validate runs schema and cross-entity integrity checks against an
// already-normalized PermissionsConfig (see Normalize) and returns a
// ConfigInvalid-flavored ValidationErrors on any failure.
func Validate(doc *PermissionsConfig) error {
	var errs ValidationErrors
	for i := range doc.Organizations {
		validateOrg(&doc.Organizations[i], &errs)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateOrg(org *OrganizationConfig, errs *ValidationErrors) {
	if org.Organization == "" {
		errs.Add("organization", "", "organization name is required")
		return
	}

	seenTeams := map[string]bool{}
	for _, t := range org.Teams {
		if seenTeams[t.Name] {
			errs.Add(org.Organization+".teams", t.Name, "duplicate team name")
		}
		seenTeams[t.Name] = true
	}

	seenRepos := map[string]bool{}
	for _, r := range org.Repositories {
		if seenRepos[r.Name] {
			errs.Add(org.Organization+".repositories", r.Name, "duplicate repository name")
		}
		seenRepos[r.Name] = true
	}

	for _, t := range org.Teams {
		validateTeam(org, &t, errs)
	}
	for _, r := range org.Repositories {
		validateRepo(org, &r, errs)
	}
	for _, p := range org.CustomProperties {
		validateCustomProperty(org, &p, errs)
	}
}

func validateTeam(org *OrganizationConfig, t *TeamConfig, errs *ValidationErrors) {
	field := fmt.Sprintf("%s.teams.%s", org.Organization, t.Name)

	if t.Name == "" || !teamNamePattern.MatchString(t.Name) {
		errs.Add(field, t.Name, "team name must be non-empty and contain only alphanumerics, '.', '_', '-'")
	}
	if len(t.Maintainers) == 0 {
		errs.Add(field, "", "team must have at least one maintainer")
	}

	memberSet := map[string]bool{}
	for _, m := range t.Members {
		memberSet[m] = true
	}
	for _, m := range t.Maintainers {
		if memberSet[m] {
			errs.Add(field, m, "user cannot be both a member and a maintainer")
		}
	}

	if t.GSuite != nil {
		if t.GSuite.Privacy != GSuitePrivacyInternal && t.GSuite.Privacy != GSuitePrivacyExternal {
			errs.Add(field, string(t.GSuite.Privacy), "gsuite.privacy must be 'internal' or 'external'")
		}
		if t.DisplayName == "" {
			errs.Add(field, "", "gsuite requires displayName")
		}
	}

	if t.Parent == "" {
		return
	}
	if t.Parent == t.Name {
		errs.Add(field, t.Parent, "team cannot be its own parent")
		return
	}
	if t.Secret {
		errs.Add(field, "", "secret team cannot have a parent")
	}
	if err := checkNoParentCycle(org, t.Name); err != nil {
		errs.Add(field, t.Parent, err.Error())
	}
	parent, ok := org.TeamByName(t.Parent)
	if !ok {
		errs.Add(field, t.Parent, "parent team is not declared in this org")
		return
	}
	if parent.Secret {
		errs.Add(field, t.Parent, "parent team cannot be secret")
	}
}

func checkNoParentCycle(org *OrganizationConfig, start string) error {
	visited := map[string]bool{start: true}
	cur := start
	for {
		t, ok := org.TeamByName(cur)
		if !ok || t.Parent == "" {
			return nil
		}
		if visited[t.Parent] {
			return fmt.Errorf("cycle detected in parent chain at %q", t.Parent)
		}
		visited[t.Parent] = true
		cur = t.Parent
	}
}

func validateRepo(org *OrganizationConfig, r *RepositoryConfig, errs *ValidationErrors) {
	field := fmt.Sprintf("%s.repositories.%s", org.Organization, r.Name)

	if r.Name == "" {
		errs.Add(field, "", "repository name is required")
	}

	for teamName, level := range r.Teams {
		if !level.valid() {
			errs.Add(field+".teams."+teamName, string(level), "invalid access level")
		}
		if _, ok := org.TeamByName(teamName); !ok {
			errs.Add(field+".teams", teamName, "team is not declared in this org")
		}
	}
	for login, level := range r.ExternalCollaborators {
		if !level.valid() {
			errs.Add(field+".external_collaborators."+login, string(level), "invalid access level")
		}
	}

	switch r.Visibility {
	case "", VisibilityPublic, VisibilityPrivate, VisibilityCurrent:
	default:
		errs.Add(field+".visibility", string(r.Visibility), "visibility must be 'public', 'private', or 'current'")
	}

	for _, rs := range r.Rulesets {
		validateRuleset(org, r, &rs, errs)
	}

	for propName, val := range r.Properties {
		prop, ok := org.PropertyByName(propName)
		if !ok {
			errs.Add(field+".properties", propName, "property is not declared in customProperties")
			continue
		}
		validatePropertyValueAgainst(field, prop, val, errs)
	}
}

func validateRuleset(org *OrganizationConfig, r *RepositoryConfig, rs *Ruleset, errs *ValidationErrors) {
	field := fmt.Sprintf("%s.repositories.%s.rulesets.%s", org.Organization, r.Name, rs.Name)

	if rs.Name == "" {
		errs.Add(field, "", "ruleset name is required")
	}
	if rs.Target != RulesetTargetBranch && rs.Target != RulesetTargetTag {
		errs.Add(field+".target", string(rs.Target), "target must be 'branch' or 'tag'")
	}
	switch rs.Enforcement {
	case "", EnforcementDisabled, EnforcementActive, EnforcementEvaluate:
	default:
		errs.Add(field+".enforcement", string(rs.Enforcement), "invalid enforcement value")
	}
	if rs.Bypass != nil && len(rs.Bypass.Teams) == 0 && len(rs.Bypass.Apps) == 0 {
		errs.Add(field+".bypass", "", "bypass block requires at least one of teams or apps")
	}
	if rs.Bypass != nil {
		for _, teamName := range rs.Bypass.Teams {
			if _, ok := org.TeamByName(teamName); !ok {
				errs.Add(field+".bypass.teams", teamName, "team is not declared in this org")
			}
		}
	}
	if len(rs.RefName.Include) == 0 {
		errs.Add(field+".ref_name.include", "", "ref_name.include must be non-empty")
	}
	seen := map[RuleToken]bool{}
	for _, rule := range rs.Rules {
		if !rule.valid() {
			errs.Add(field+".rules", string(rule), "unknown rule token")
		}
		if seen[rule] {
			errs.Add(field+".rules", string(rule), "duplicate rule token")
		}
		seen[rule] = true
	}
}

func validateCustomProperty(org *OrganizationConfig, p *CustomProperty, errs *ValidationErrors) {
	field := fmt.Sprintf("%s.customProperties.%s", org.Organization, p.PropertyName)

	switch p.ValueType {
	case PropertyTypeString, PropertyTypeSingleSelect, PropertyTypeMultiSelect:
	default:
		errs.Add(field+".value_type", string(p.ValueType), "invalid value_type")
		return
	}

	needsAllowed := p.ValueType == PropertyTypeSingleSelect || p.ValueType == PropertyTypeMultiSelect
	if needsAllowed && len(p.AllowedValues) == 0 {
		errs.Add(field+".allowed_values", "", "allowed_values is required for select types")
	}
	if !needsAllowed && len(p.AllowedValues) > 0 {
		errs.Add(field+".allowed_values", "", "allowed_values is only valid for select types")
	}

	if p.DefaultValue == nil {
		return
	}
	validatePropertyValueAgainst(field, p, *p.DefaultValue, errs)
}

func validatePropertyValueAgainst(field string, p *CustomProperty, val PropertyValue, errs *ValidationErrors) {
	wantList := p.ValueType == PropertyTypeMultiSelect
	if val.IsList != wantList {
		if wantList {
			errs.Add(field, "", "multi_select property value must be an array")
		} else {
			errs.Add(field, "", "property value must be a scalar")
		}
		return
	}

	if len(p.AllowedValues) == 0 {
		return
	}
	allowed := map[string]bool{}
	for _, v := range p.AllowedValues {
		allowed[v] = true
	}
	if val.IsList {
		for _, v := range val.List {
			if !allowed[v] {
				errs.Add(field, v, "value is not a member of allowed_values")
			}
		}
	} else if !allowed[val.Scalar] {
		errs.Add(field, val.Scalar, "value is not a member of allowed_values")
	}
}
