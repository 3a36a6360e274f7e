// Package domain holds the order state machine tables: which statuses a role
// set may request, which targets need complete customer details, and which
// transitions move stock.
package domain

import (
	"strings"

	"callcenter_backend/internal/access"
)

// Status is an order lifecycle stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusTake      Status = "take"
	StatusCallAgain Status = "call_again"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusPaid      Status = "paid"
	StatusReturned  Status = "returned"
	StatusTrashed   Status = "trashed"
	StatusCancelled Status = "cancelled"
)

// allStatuses is in pipeline order; AllowedTargets keeps this order.
var allStatuses = []Status{
	StatusPending, StatusTake, StatusCallAgain, StatusConfirmed, StatusShipped,
	StatusDelivered, StatusPaid, StatusReturned, StatusTrashed, StatusCancelled,
}

var (
	agentTargets     = setOf(StatusPending, StatusTake, StatusCallAgain, StatusConfirmed)
	warehouseTargets = setOf(StatusConfirmed, StatusShipped, StatusPaid)

	completenessTargets = setOf(StatusConfirmed, StatusShipped, StatusReturned, StatusPaid, StatusCancelled)

	// Stock for these orders has left the shelf, so the product line is frozen.
	deductedStatuses = setOf(StatusConfirmed, StatusShipped, StatusDelivered, StatusPaid)
)

// ParseStatus returns the status named by value.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == status {
			return s, true
		}
	}
	return "", false
}

// AllStatuses returns every status in pipeline order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// RoleTargets returns the statuses a role set may request. Admins and managers
// may request any status; other roles contribute the union of their tables.
func RoleTargets(roles access.RoleSet) []Status {
	if access.IsAdminOrManager(roles) {
		return AllStatuses()
	}

	allowed := make(map[Status]struct{})
	if access.IsAgent(roles) {
		for s := range agentTargets {
			allowed[s] = struct{}{}
		}
	}
	if access.IsWarehouse(roles) {
		for s := range warehouseTargets {
			allowed[s] = struct{}{}
		}
	}
	return ordered(allowed)
}

// AllowedTargets returns the statuses an order in current may be moved to by
// roles. Every status is reachable from every other; current is always
// included because re-asserting it changes nothing.
func AllowedTargets(current Status, roles access.RoleSet) []Status {
	allowed := make(map[Status]struct{})
	for _, s := range RoleTargets(roles) {
		allowed[s] = struct{}{}
	}
	if _, ok := ParseStatus(string(current)); ok {
		allowed[current] = struct{}{}
	}
	return ordered(allowed)
}

// CanSet reports whether target is in AllowedTargets(current, roles).
func CanSet(current, target Status, roles access.RoleSet) bool {
	for _, s := range AllowedTargets(current, roles) {
		if s == target {
			return true
		}
	}
	return false
}

// RequiresCompleteness reports whether moving to target needs complete customer contact details.
func RequiresCompleteness(target Status) bool {
	_, ok := completenessTargets[target]
	return ok
}

// DeductsStock reports whether the transition books the order's quantity out of stock.
// Only entering confirmed from another status does.
func DeductsStock(from, to Status) bool {
	return to == StatusConfirmed && from != StatusConfirmed
}

// StockDeducted reports whether an order in status has already had its stock booked out.
func StockDeducted(status Status) bool {
	_, ok := deductedStatuses[status]
	return ok
}

// Strings converts statuses to their names.
func Strings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func setOf(statuses ...Status) map[Status]struct{} {
	set := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

func ordered(set map[Status]struct{}) []Status {
	out := make([]Status, 0, len(set))
	for _, s := range allStatuses {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
