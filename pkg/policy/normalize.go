package policy

import (
	"fmt"
	"sort"
)

// Normalize runs the two ordered passes described by the configuration
// loader: formation expansion, then reference expansion, followed by
// resolution of named ruleset references against each org's
// common_rulesets. It mutates doc in place and must run before Validate.
func Normalize(doc *PermissionsConfig) error {
	byOrg := make(map[string]*OrganizationConfig, len(doc.Organizations))
	for i := range doc.Organizations {
		byOrg[doc.Organizations[i].Organization] = &doc.Organizations[i]
	}

	for i := range doc.Organizations {
		org := &doc.Organizations[i]
		if err := expandFormations(org); err != nil {
			return err
		}
	}
	for i := range doc.Organizations {
		org := &doc.Organizations[i]
		if err := expandReferences(org, byOrg); err != nil {
			return err
		}
	}
	for i := range doc.Organizations {
		org := &doc.Organizations[i]
		if err := resolveRulesetRefs(org); err != nil {
			return err
		}
	}
	return nil
}

// expandFormations replaces every formation-shaped TeamDecl in org with its
// concrete union. Formation references must name teams declared in the
// same org (possibly other formations or references, resolved to whatever
// concrete state they currently hold — formation expansion runs before
// reference expansion, so a formation over a not-yet-resolved reference
// team only sees that team's own declared formation/reference fields, not
// its eventual concrete membership; this ordering matches the
// specification's stated pass order).
func expandFormations(org *OrganizationConfig) error {
	byName := make(map[string]*TeamDecl, len(org.rawTeams))
	for i := range org.rawTeams {
		byName[org.rawTeams[i].Name] = &org.rawTeams[i]
	}

	for i := range org.rawTeams {
		decl := &org.rawTeams[i]
		if len(decl.Formation) == 0 {
			continue
		}
		maintainers := map[string]struct{}{}
		members := map[string]struct{}{}
		for _, refName := range decl.Formation {
			ref, ok := byName[refName]
			if !ok {
				return fmt.Errorf("team %q: formation references undeclared team %q", decl.Name, refName)
			}
			for _, m := range ref.Maintainers {
				maintainers[m] = struct{}{}
			}
			for _, m := range ref.Members {
				members[m] = struct{}{}
			}
		}
		decl.Maintainers = setToSortedSlice(maintainers)
		delete(members, "") // drop an empty login, if any
		for m := range maintainers {
			delete(members, m)
		}
		decl.Members = setToSortedSlice(members)
		decl.Formation = nil
	}
	return nil
}

// expandReferences mirrors maintainers/members/displayName/gsuite/slack from
// the referenced "<org>/<team>" team. Per the specification, an unresolved
// org or team at this stage is left in place for later error reporting
// rather than failing immediately — Validate surfaces it as ConfigInvalid.
func expandReferences(org *OrganizationConfig, byOrg map[string]*OrganizationConfig) error {
	for i := range org.rawTeams {
		decl := &org.rawTeams[i]
		if decl.Reference == "" {
			continue
		}
		refOrgName, refTeamName, ok := splitReference(decl.Reference)
		if !ok {
			continue // left for Validate
		}
		refOrg, ok := byOrg[refOrgName]
		if !ok {
			continue // left for Validate
		}
		var refTeam *TeamDecl
		for j := range refOrg.rawTeams {
			if refOrg.rawTeams[j].Name == refTeamName {
				refTeam = &refOrg.rawTeams[j]
				break
			}
		}
		if refTeam == nil {
			continue // left for Validate
		}
		decl.Maintainers = append([]string(nil), refTeam.Maintainers...)
		decl.Members = append([]string(nil), refTeam.Members...)
		decl.DisplayName = refTeam.DisplayName
		decl.GSuite = refTeam.GSuite
		decl.Slack = refTeam.Slack
		decl.Reference = ""
	}

	org.Teams = make([]TeamConfig, 0, len(org.rawTeams))
	for _, decl := range org.rawTeams {
		org.Teams = append(org.Teams, TeamConfig{
			Name:        decl.Name,
			Members:     decl.Members,
			Maintainers: decl.Maintainers,
			Parent:      decl.Parent,
			Secret:      decl.Secret,
			DisplayName: decl.DisplayName,
			GSuite:      decl.GSuite,
			Slack:       decl.Slack,
		})
	}
	return nil
}

func splitReference(ref string) (org, team string, ok bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '/' {
			return ref[:i], ref[i+1:], true
		}
	}
	return "", "", false
}

// resolveRulesetRefs replaces each RepositoryConfig's raw ruleset entries
// (inline declarations or string references into common_rulesets) with
// concrete Ruleset values.
func resolveRulesetRefs(org *OrganizationConfig) error {
	for i := range org.Repositories {
		repo := &org.Repositories[i]
		repo.Rulesets = make([]Ruleset, 0, len(repo.rawRulesets))
		for _, entry := range repo.rawRulesets {
			if entry.inline != nil {
				repo.Rulesets = append(repo.Rulesets, *entry.inline)
				continue
			}
			rs, ok := org.CommonRulesets[entry.ref]
			if !ok {
				return fmt.Errorf("repo %q: ruleset reference %q not found in common_rulesets", repo.Name, entry.ref)
			}
			repo.Rulesets = append(repo.Rulesets, rs)
		}
	}
	return nil
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
