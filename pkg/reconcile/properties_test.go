package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

func TestEffectivePropertyValues_RepoOverridesOrgDefault(t *testing.T) {
	org := &policy.OrganizationConfig{
		CustomProperties: []policy.CustomProperty{
			{PropertyName: "team", DefaultValue: &policy.PropertyValue{Scalar: "platform"}},
			{PropertyName: "tier", DefaultValue: &policy.PropertyValue{Scalar: "gold"}},
		},
	}
	repo := &policy.RepositoryConfig{
		Properties: map[string]policy.PropertyValue{
			"team": {Scalar: "payments"},
		},
	}

	effective := effectivePropertyValues(org, repo)
	assert.Equal(t, "payments", effective["team"].Scalar)
	assert.Equal(t, "gold", effective["tier"].Scalar)
}

func TestPropertySetsEqual_ScalarMatch(t *testing.T) {
	declared := map[string]policy.PropertyValue{"team": {Scalar: "payments"}}
	observed := map[string]interface{}{"team": "payments"}
	assert.True(t, propertySetsEqual(declared, observed))
}

func TestPropertySetsEqual_ListMatchIgnoringUpstreamJSONDecoding(t *testing.T) {
	declared := map[string]policy.PropertyValue{
		"tags": {IsList: true, List: []string{"a", "b"}},
	}
	observed := map[string]interface{}{
		"tags": []interface{}{"a", "b"},
	}
	assert.True(t, propertySetsEqual(declared, observed))
}

func TestPropertySetsEqual_MissingPropertyNotEqual(t *testing.T) {
	declared := map[string]policy.PropertyValue{"team": {Scalar: "payments"}}
	observed := map[string]interface{}{}
	assert.False(t, propertySetsEqual(declared, observed))
}

func TestPropertySetsEqual_DifferentValueNotEqual(t *testing.T) {
	declared := map[string]policy.PropertyValue{"team": {Scalar: "payments"}}
	observed := map[string]interface{}{"team": "platform"}
	assert.False(t, propertySetsEqual(declared, observed))
}

func TestPropertyDefsEqual_AllowedValuesOrderIndependent(t *testing.T) {
	a := platform.CustomPropertyDef{ValueType: "single_select", AllowedValues: []string{"a", "b"}}
	b := platform.CustomPropertyDef{ValueType: "single_select", AllowedValues: []string{"b", "a"}}
	assert.True(t, propertyDefsEqual(a, b))
}

func TestPropertyDefsEqual_RequiredMismatchNotEqual(t *testing.T) {
	a := platform.CustomPropertyDef{ValueType: "string", Required: true}
	b := platform.CustomPropertyDef{ValueType: "string", Required: false}
	assert.False(t, propertyDefsEqual(a, b))
}

func TestToPropertyDef_ListDefaultValue(t *testing.T) {
	p := policy.CustomProperty{
		PropertyName: "tags",
		ValueType:    policy.PropertyTypeMultiSelect,
		DefaultValue: &policy.PropertyValue{IsList: true, List: []string{"x", "y"}},
	}
	def := toPropertyDef(p)
	assert.Equal(t, []string{"x", "y"}, def.DefaultValue)
}
