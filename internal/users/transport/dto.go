package transport

import "github.com/google/uuid"

type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=254"`
	FullName string   `json:"fullName" validate:"required,notblank,max=200"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=admin manager agent pending_agent prediction_agent warehouse ads_admin"`
}

type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=admin manager agent pending_agent prediction_agent warehouse ads_admin"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	Roles       []string  `json:"roles"`
	IsSuspended bool      `json:"isSuspended"`
	CreatedAt   string    `json:"createdAt"`
}

type AgentResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Roles    []string  `json:"roles"`
}
