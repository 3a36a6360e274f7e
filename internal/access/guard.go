package access

import (
	"callcenter_backend/platform/apperr"

	"github.com/google/uuid"
)

// SelfAction names a user-administration operation an actor may never apply to themselves.
type SelfAction string

const (
	SelfActionChangeRoles SelfAction = "change your own roles"
	SelfActionSuspend     SelfAction = "suspend yourself"
	SelfActionDelete      SelfAction = "delete yourself"
)

// GuardSelf rejects action when the actor targets their own account.
// It applies to every role, admin included.
func GuardSelf(actor Actor, targetID uuid.UUID, action SelfAction) error {
	if !actor.IsSystem() && actor.ID == targetID {
		return apperr.Forbidden("you cannot " + string(action))
	}
	return nil
}

// RequireAdminOrManager rejects actors without an admin or manager role.
func RequireAdminOrManager(actor Actor) error {
	if IsAdminOrManager(actor.Roles) {
		return nil
	}
	return apperr.Forbidden("admin or manager role required")
}

// RequireAdmin rejects actors without the admin role.
func RequireAdmin(actor Actor) error {
	if actor.Roles.Has(RoleAdmin) {
		return nil
	}
	return apperr.Forbidden("admin role required")
}

// RequireStockManager rejects actors that may not restock or adjust inventory.
func RequireStockManager(actor Actor) error {
	if IsAdminOrManager(actor.Roles) || IsWarehouse(actor.Roles) {
		return nil
	}
	return apperr.Forbidden("warehouse, admin or manager role required")
}
