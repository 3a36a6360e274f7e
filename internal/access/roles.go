// Package access holds the authorization matrix: the role vocabulary, the role
// predicates used by every module, and the self-protection rules for user
// administration. It performs no I/O.
package access

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Role is a single capability grant. A user holds a set of roles.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleManager         Role = "manager"
	RoleAgent           Role = "agent"
	RolePendingAgent    Role = "pending_agent"
	RolePredictionAgent Role = "prediction_agent"
	RoleWarehouse       Role = "warehouse"
	RoleAdsAdmin        Role = "ads_admin"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:           {},
	RoleManager:         {},
	RoleAgent:           {},
	RolePendingAgent:    {},
	RolePredictionAgent: {},
	RoleWarehouse:       {},
	RoleAdsAdmin:        {},
}

// ParseRole returns the role for name, reporting false for unknown names.
func ParseRole(name string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(name)))
	_, ok := knownRoles[role]
	return role, ok
}

// AllRoles returns every known role in a stable order.
func AllRoles() []Role {
	roles := make([]Role, 0, len(knownRoles))
	for role := range knownRoles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// RoleSet is an immutable set of roles. The zero value is the empty set.
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a set from role names. Unknown names are dropped.
func NewRoleSet(names ...string) RoleSet {
	set := RoleSet{roles: make(map[Role]struct{}, len(names))}
	for _, name := range names {
		if role, ok := ParseRole(name); ok {
			set.roles[role] = struct{}{}
		}
	}
	return set
}

// RolesOf builds a set from typed roles.
func RolesOf(roles ...Role) RoleSet {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return NewRoleSet(names...)
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s.roles[role]
	return ok
}

// HasAny reports whether the set contains at least one of roles.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, role := range roles {
		if s.Has(role) {
			return true
		}
	}
	return false
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	return len(s.roles)
}

// Slice returns the roles sorted by name.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s.roles))
	for role := range s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the role names sorted.
func (s RoleSet) Strings() []string {
	roles := s.Slice()
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}

// IsAdminOrManager reports whether the set bypasses the per-role status tables.
func IsAdminOrManager(s RoleSet) bool {
	return s.HasAny(RoleAdmin, RoleManager)
}

// IsWarehouse reports whether the set includes the fulfillment role.
func IsWarehouse(s RoleSet) bool {
	return s.Has(RoleWarehouse)
}

// IsAgent reports whether the set includes any agent-type role.
func IsAgent(s RoleSet) bool {
	return s.HasAny(RoleAgent, RolePendingAgent, RolePredictionAgent)
}

// IsDualRole reports whether an admin also works calls as an agent. Dual-role
// users see their personal metrics next to the admin-wide ones.
func IsDualRole(s RoleSet) bool {
	return s.Has(RoleAdmin) && s.Has(RoleAgent)
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Roles RoleSet
}

// NewActor builds an actor from identity values.
func NewActor(id uuid.UUID, name string, roles []string) Actor {
	return Actor{ID: id, Name: strings.TrimSpace(name), Roles: NewRoleSet(roles...)}
}

// IsSystem reports whether the actor is an automated process rather than a user.
func (a Actor) IsSystem() bool {
	return a.ID == uuid.Nil
}

// UserID returns the actor's id, or nil for the system actor.
func (a Actor) UserID() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}

// DisplayName returns the name stored on audit rows.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.IsSystem() {
		return "System"
	}
	return a.ID.String()
}

// SystemActor returns an actor with no user id and the given display name.
func SystemActor(name string) Actor {
	return Actor{Name: name}
}

// Principal is the authenticated caller as seen by the HTTP layer.
type Principal interface {
	UserID() uuid.UUID
	DisplayName() string
	Roles() []string
}

// FromPrincipal builds the actor for an authenticated request.
func FromPrincipal(p Principal) Actor {
	return NewActor(p.UserID(), p.DisplayName(), p.Roles())
}
