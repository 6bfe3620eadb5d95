package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oakline-labs/warden/pkg/policy"
)

func TestPlanMembershipAction_NoOps(t *testing.T) {
	team := policy.TeamConfig{Name: "core"}

	_, ok := planMembershipAction("alice", roleMaintainer, roleMaintainer, false, team)
	assert.False(t, ok, "maintainer staying maintainer is a no-op")

	_, ok = planMembershipAction("bob", roleMember, roleMember, false, team)
	assert.False(t, ok, "member staying member is a no-op")

	_, ok = planMembershipAction("carol", roleAbsent, roleAbsent, false, team)
	assert.False(t, ok, "absent staying absent is a no-op")
}

func TestPlanMembershipAction_Promotions(t *testing.T) {
	team := policy.TeamConfig{Name: "core"}

	action, ok := planMembershipAction("alice", roleAbsent, roleMaintainer, false, team)
	assert.True(t, ok)
	assert.Equal(t, roleMaintainer, action.To)

	action, ok = planMembershipAction("bob", roleMember, roleMaintainer, false, team)
	assert.True(t, ok)
	assert.Equal(t, roleMaintainer, action.To)

	action, ok = planMembershipAction("carol", roleAbsent, roleMember, false, team)
	assert.True(t, ok)
	assert.Equal(t, roleMember, action.To)
}

func TestPlanMembershipAction_Demotion(t *testing.T) {
	team := policy.TeamConfig{Name: "core"}

	action, ok := planMembershipAction("alice", roleMaintainer, roleMember, false, team)
	assert.True(t, ok)
	assert.Equal(t, roleMember, action.To)
}

func TestPlanMembershipAction_DemotionOrgOwnerNoOp(t *testing.T) {
	team := policy.TeamConfig{Name: "core"}
	_, ok := planMembershipAction("alice", roleMaintainer, roleMember, true, team)
	assert.False(t, ok, "an org owner demoted to member stays maintainer upstream, so this is a no-op")
}

func TestPlanMembershipAction_Eviction(t *testing.T) {
	team := policy.TeamConfig{Name: "core"}

	action, ok := planMembershipAction("bob", roleMember, roleAbsent, false, team)
	assert.True(t, ok)
	assert.Equal(t, roleAbsent, action.To)
}

func TestPlanMembershipAction_EvictionOrgOwnerDeclaredMemberNoOp(t *testing.T) {
	team := policy.TeamConfig{Name: "core", Members: []string{"alice"}}
	_, ok := planMembershipAction("alice", roleMaintainer, roleAbsent, true, team)
	assert.False(t, ok)
}

func TestPlanMembershipAction_EvictionOrgOwnerNotDeclaredMember(t *testing.T) {
	team := policy.TeamConfig{Name: "core"}
	action, ok := planMembershipAction("alice", roleMaintainer, roleAbsent, true, team)
	assert.True(t, ok)
	assert.Equal(t, roleAbsent, action.To)
}

func TestTeamActionDescribe(t *testing.T) {
	assert.Contains(t, teamAction{Login: "bob", To: roleAbsent}.describe(), "evicting")
	assert.Contains(t, teamAction{Login: "bob", From: roleAbsent, To: roleMember}.describe(), "adding")
	assert.Contains(t, teamAction{Login: "bob", From: roleMember, To: roleMaintainer}.describe(), "changing")
}
