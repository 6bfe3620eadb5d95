package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

// syncCustomProperties is §4.2 step 1: upsert every declared property
// whose shape differs from upstream, delete every upstream property not
// declared.
func (r *Reconciler) syncCustomProperties(ctx context.Context, client platform.APIClient, org *policy.OrganizationConfig) error {
	observed, err := client.ListCustomProperties(ctx, org.Organization)
	if err != nil {
		return err
	}
	observedByName := make(map[string]platform.CustomPropertyDef, len(observed))
	for _, d := range observed {
		observedByName[d.PropertyName] = d
	}

	declared := map[string]struct{}{}
	for _, p := range org.CustomProperties {
		declared[p.PropertyName] = struct{}{}
		want := toPropertyDef(p)
		have, exists := observedByName[p.PropertyName]
		if exists && propertyDefsEqual(want, have) {
			continue
		}

		r.logAction(org.Organization, "upsert_custom_property", p.PropertyName)
		if r.DryRun {
			r.alertf(alert.SeverityNormal, "Updating Custom Property", "Would upsert property `%s` on `%s`", p.PropertyName, org.Organization)
			continue
		}
		if err := client.UpsertCustomProperty(ctx, org.Organization, want); err != nil {
			return fmt.Errorf("upserting custom property %q: %w", p.PropertyName, err)
		}
	}

	for name := range observedByName {
		if _, ok := declared[name]; ok {
			continue
		}
		r.logAction(org.Organization, "delete_custom_property", name)
		if r.DryRun {
			r.alertf(alert.SeverityNormal, "Deleting Custom Property", "Would delete property `%s` on `%s`", name, org.Organization)
			continue
		}
		if err := client.DeleteCustomProperty(ctx, org.Organization, name); err != nil {
			return fmt.Errorf("deleting custom property %q: %w", name, err)
		}
	}
	return nil
}

func toPropertyDef(p policy.CustomProperty) platform.CustomPropertyDef {
	def := platform.CustomPropertyDef{
		PropertyName:  p.PropertyName,
		ValueType:     string(p.ValueType),
		Required:      p.Required,
		Description:   p.Description,
		AllowedValues: append([]string(nil), p.AllowedValues...),
	}
	if p.DefaultValue != nil {
		if p.DefaultValue.IsList {
			def.DefaultValue = append([]string(nil), p.DefaultValue.List...)
		} else {
			def.DefaultValue = p.DefaultValue.Scalar
		}
	}
	return def
}

func propertyDefsEqual(a, b platform.CustomPropertyDef) bool {
	if a.ValueType != b.ValueType || a.Required != b.Required || a.Description != b.Description {
		return false
	}
	aAllowed := append([]string(nil), a.AllowedValues...)
	bAllowed := append([]string(nil), b.AllowedValues...)
	sort.Strings(aAllowed)
	sort.Strings(bAllowed)
	if !reflect.DeepEqual(aAllowed, bAllowed) {
		return false
	}
	return reflect.DeepEqual(a.DefaultValue, b.DefaultValue)
}

// effectivePropertyValues computes a repo's declared property values
// augmented with org-level defaults for properties the repo does not
// override, sorted by property_name for comparison against the
// observed set.
func effectivePropertyValues(org *policy.OrganizationConfig, repo *policy.RepositoryConfig) map[string]policy.PropertyValue {
	out := map[string]policy.PropertyValue{}
	for _, p := range org.CustomProperties {
		if p.DefaultValue != nil {
			out[p.PropertyName] = *p.DefaultValue
		}
	}
	for name, v := range repo.Properties {
		out[name] = v
	}
	return out
}

func propertyValueToWire(v policy.PropertyValue) interface{} {
	if v.IsList {
		return append([]string(nil), v.List...)
	}
	return v.Scalar
}

func propertySetsEqual(declared map[string]policy.PropertyValue, observed map[string]interface{}) bool {
	names := make([]string, 0, len(declared))
	for n := range declared {
		names = append(names, n)
	}
	observedNames := make([]string, 0, len(observed))
	for n := range observed {
		observedNames = append(observedNames, n)
	}
	sort.Strings(names)
	sort.Strings(observedNames)
	if !reflect.DeepEqual(names, observedNames) {
		return false
	}
	for _, n := range names {
		if !reflect.DeepEqual(propertyValueToWire(declared[n]), normalizePropertyWire(observed[n])) {
			return false
		}
	}
	return true
}

func normalizePropertyWire(v interface{}) interface{} {
	if list, ok := v.([]interface{}); ok {
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return v
}
