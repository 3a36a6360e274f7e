package access

import (
	"testing"

	"callcenter_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestNewRoleSetDropsUnknownRoles(t *testing.T) {
	set := NewRoleSet("Agent", " warehouse ", "superuser", "")

	if set.Len() != 2 {
		t.Fatalf("expected 2 roles, got %v", set.Strings())
	}
	if !set.Has(RoleAgent) || !set.Has(RoleWarehouse) {
		t.Fatalf("expected agent and warehouse, got %v", set.Strings())
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		name       string
		roles      RoleSet
		adminOrMgr bool
		warehouse  bool
		agent      bool
		dual       bool
	}{
		{"empty", RoleSet{}, false, false, false, false},
		{"admin", RolesOf(RoleAdmin), true, false, false, false},
		{"manager", RolesOf(RoleManager), true, false, false, false},
		{"pending agent", RolesOf(RolePendingAgent), false, false, true, false},
		{"prediction agent", RolesOf(RolePredictionAgent), false, false, true, false},
		{"warehouse", RolesOf(RoleWarehouse), false, true, false, false},
		{"agent and warehouse", RolesOf(RoleAgent, RoleWarehouse), false, true, true, false},
		{"admin and agent", RolesOf(RoleAdmin, RoleAgent), true, false, true, true},
		{"admin and prediction agent", RolesOf(RoleAdmin, RolePredictionAgent), true, false, true, false},
		{"ads admin", RolesOf(RoleAdsAdmin), false, false, false, false},
	}

	for _, tc := range cases {
		if got := IsAdminOrManager(tc.roles); got != tc.adminOrMgr {
			t.Fatalf("%s: IsAdminOrManager = %v", tc.name, got)
		}
		if got := IsWarehouse(tc.roles); got != tc.warehouse {
			t.Fatalf("%s: IsWarehouse = %v", tc.name, got)
		}
		if got := IsAgent(tc.roles); got != tc.agent {
			t.Fatalf("%s: IsAgent = %v", tc.name, got)
		}
		if got := IsDualRole(tc.roles); got != tc.dual {
			t.Fatalf("%s: IsDualRole = %v", tc.name, got)
		}
	}
}

func TestGuardSelfForbidsAdminsToo(t *testing.T) {
	admin := Actor{ID: uuid.New(), Name: "Root", Roles: RolesOf(RoleAdmin)}

	for _, action := range []SelfAction{SelfActionChangeRoles, SelfActionSuspend, SelfActionDelete} {
		err := GuardSelf(admin, admin.ID, action)
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("%s: expected forbidden, got %v", action, err)
		}
	}

	if err := GuardSelf(admin, uuid.New(), SelfActionDelete); err != nil {
		t.Fatalf("expected other user to be allowed, got %v", err)
	}
}

func TestActorDisplayName(t *testing.T) {
	if got := SystemActor("").DisplayName(); got != "System" {
		t.Fatalf("expected System, got %q", got)
	}
	if got := SystemActor("System (from Prediction Lead)").DisplayName(); got != "System (from Prediction Lead)" {
		t.Fatalf("unexpected name %q", got)
	}
	if SystemActor("x").UserID() != nil {
		t.Fatal("expected nil user id for system actor")
	}
}
