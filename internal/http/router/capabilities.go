package router

import (
	"callcenter_backend/internal/access"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// CapabilitiesResponse tells the client which screens and actions to offer.
type CapabilitiesResponse struct {
	UserID           string   `json:"userId"`
	Name             string   `json:"name"`
	Roles            []string `json:"roles"`
	IsAdminOrManager bool     `json:"isAdminOrManager"`
	IsWarehouse      bool     `json:"isWarehouse"`
	IsAgent          bool     `json:"isAgent"`
	IsDualRole       bool     `json:"isDualRole"`
	SettableStatuses []string `json:"settableStatuses"`
}

// GET /api/v1/me/capabilities
func handleCapabilities(c *gin.Context) {
	actor := access.FromPrincipal(httpkit.MustGetIdentity(c))
	roles := actor.Roles

	resp := CapabilitiesResponse{
		Name:             actor.DisplayName(),
		Roles:            roles.Strings(),
		IsAdminOrManager: access.IsAdminOrManager(roles),
		IsWarehouse:      access.IsWarehouse(roles),
		IsAgent:          access.IsAgent(roles),
		IsDualRole:       access.IsDualRole(roles),
		SettableStatuses: domain.Strings(domain.RoleTargets(roles)),
	}
	if id := actor.UserID(); id != nil {
		resp.UserID = id.String()
	}
	httpkit.OK(c, resp)
}
