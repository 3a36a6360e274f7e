package service

import (
	"strings"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/platform/apperr"
)

// ContactDetailsClass is the field class named when the completeness gate fails.
const ContactDetailsClass = "customer contact details"

// CheckRole rejects a target outside the actor's allowed set. The error lists
// the statuses the actor may set.
func CheckRole(order domain.Order, target domain.Status, roles access.RoleSet) error {
	if domain.CanSet(order.Status, target, roles) {
		return nil
	}

	allowed := domain.Strings(domain.RoleTargets(roles))
	if len(allowed) == 0 {
		return apperr.Forbidden("your role cannot change order status").
			WithDetails(map[string]interface{}{"allowedStatuses": allowed})
	}
	return apperr.Forbidden("you can only set status to: " + strings.Join(allowed, ", ")).
		WithDetails(map[string]interface{}{"allowedStatuses": allowed})
}

// CheckCompleteness rejects targets that need contact details the order lacks.
func CheckCompleteness(order domain.Order, target domain.Status) error {
	if !domain.RequiresCompleteness(target) {
		return nil
	}
	missing := order.Customer.MissingFields()
	if len(missing) == 0 {
		return nil
	}
	return apperr.Validation(ContactDetailsClass + " are required for status " + string(target)).
		WithDetails(map[string]interface{}{"missingFields": missing})
}
