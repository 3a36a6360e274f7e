// Package service implements staff account administration.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/users/domain"
	"callcenter_backend/internal/users/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Repository persists staff accounts.
type Repository interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListAgents(ctx context.Context) ([]domain.User, error)
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) (domain.User, error)
	SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service administers staff accounts.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// New creates the users service.
func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword reports whether plain matches hash.
func ComparePassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Create adds an account with a hashed password. Admin only.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateUserRequest) (transport.UserResponse, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return transport.UserResponse{}, err
	}
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return transport.UserResponse{}, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return transport.UserResponse{}, apperr.Internal("failed to hash password")
	}

	user, err := s.repo.CreateUser(ctx, domain.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Roles:        roles,
	})
	if db.IsUniqueViolation(err, "") {
		return transport.UserResponse{}, apperr.Conflict("a user with this email already exists")
	}
	if err != nil {
		return transport.UserResponse{}, db.NormalizeError("users.create", err)
	}
	s.log.Info("user created", "userId", user.ID, "by", actor.ID, "roles", roles)
	return toUserResponse(user), nil
}

// List returns every live account. Admin only.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]transport.UserResponse, error) {
	if err := access.RequireAdminOrManager(actor); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, db.NormalizeError("users.list", err)
	}
	result := make([]transport.UserResponse, len(users))
	for i, u := range users {
		result[i] = toUserResponse(u)
	}
	return result, nil
}

// ListAgents returns the agents work can be assigned to.
func (s *Service) ListAgents(ctx context.Context, actor access.Actor) ([]transport.AgentResponse, error) {
	if err := access.RequireAdminOrManager(actor); err != nil {
		return nil, err
	}
	agents, err := s.repo.ListAgents(ctx)
	if err != nil {
		return nil, db.NormalizeError("users.agents", err)
	}
	result := make([]transport.AgentResponse, len(agents))
	for i, a := range agents {
		result[i] = transport.AgentResponse{ID: a.ID, FullName: a.FullName, Roles: a.Roles}
	}
	return result, nil
}

// SetRoles replaces another user's role set.
func (s *Service) SetRoles(ctx context.Context, actor access.Actor, targetID uuid.UUID, req transport.SetRolesRequest) (transport.UserResponse, error) {
	if err := access.GuardSelf(actor, targetID, access.SelfActionChangeRoles); err != nil {
		return transport.UserResponse{}, err
	}
	if err := access.RequireAdmin(actor); err != nil {
		return transport.UserResponse{}, err
	}
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return transport.UserResponse{}, err
	}

	user, err := s.repo.SetRoles(ctx, targetID, roles)
	if err != nil {
		return transport.UserResponse{}, notFoundOr("users.set_roles", err)
	}
	s.log.Info("user roles changed", "userId", targetID, "by", actor.ID, "roles", roles)
	return toUserResponse(user), nil
}

// Suspend blocks another user from signing in.
func (s *Service) Suspend(ctx context.Context, actor access.Actor, targetID uuid.UUID) error {
	return s.setSuspended(ctx, actor, targetID, true)
}

// Unsuspend reinstates a suspended user.
func (s *Service) Unsuspend(ctx context.Context, actor access.Actor, targetID uuid.UUID) error {
	return s.setSuspended(ctx, actor, targetID, false)
}

func (s *Service) setSuspended(ctx context.Context, actor access.Actor, targetID uuid.UUID, suspended bool) error {
	if err := access.GuardSelf(actor, targetID, access.SelfActionSuspend); err != nil {
		return err
	}
	if err := access.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.SetSuspended(ctx, targetID, suspended); err != nil {
		return notFoundOr("users.suspend", err)
	}
	s.log.Info("user suspension changed", "userId", targetID, "by", actor.ID, "suspended", suspended)
	return nil
}

// Delete soft-deletes another user.
func (s *Service) Delete(ctx context.Context, actor access.Actor, targetID uuid.UUID) error {
	if err := access.GuardSelf(actor, targetID, access.SelfActionDelete); err != nil {
		return err
	}
	if err := access.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, targetID); err != nil {
		return notFoundOr("users.delete", err)
	}
	s.log.Info("user deleted", "userId", targetID, "by", actor.ID)
	return nil
}

func normalizeRoles(names []string) ([]string, error) {
	set := access.NewRoleSet(names...)
	if set.Len() == 0 || set.Len() != len(uniqueNames(names)) {
		return nil, apperr.Validation("unknown role").WithDetails(map[string]interface{}{
			"validRoles": access.RolesOf(access.AllRoles()...).Strings(),
		})
	}
	return set.Strings(), nil
}

func uniqueNames(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return out
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperr.NotFound("user not found")
	}
	return db.NormalizeError(op, err)
}

func toUserResponse(u domain.User) transport.UserResponse {
	return transport.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Roles:       u.Roles,
		IsSuspended: u.IsSuspended,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}
