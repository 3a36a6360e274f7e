package service

import (
	"context"
	"testing"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/users/domain"
	"callcenter_backend/internal/users/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	users map[uuid.UUID]domain.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[uuid.UUID]domain.User)}
}

func (r *fakeRepo) add(name string, roles ...string) domain.User {
	u := domain.User{ID: uuid.New(), Email: name + "@example.com", FullName: name, Roles: roles}
	r.users[u.ID] = u
	return u
}

func (r *fakeRepo) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	u.ID = uuid.New()
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeRepo) GetUser(_ context.Context, id uuid.UUID) (domain.User, error) {
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeRepo) ListUsers(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeRepo) ListAgents(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0)
	for _, u := range r.users {
		if u.IsActive() && access.IsAgent(u.RoleSet()) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeRepo) SetRoles(ctx context.Context, id uuid.UUID, roles []string) (domain.User, error) {
	u, err := r.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	u.Roles = roles
	r.users[id] = u
	return u, nil
}

func (r *fakeRepo) SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error {
	u, err := r.GetUser(ctx, id)
	if err != nil {
		return err
	}
	u.IsSuspended = suspended
	r.users[id] = u
	return nil
}

func (r *fakeRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	u, err := r.GetUser(ctx, id)
	if err != nil {
		return err
	}
	now := u.CreatedAt
	u.DeletedAt = &now
	r.users[id] = u
	return nil
}

func actorFor(u domain.User) access.Actor {
	return access.NewActor(u.ID, u.FullName, u.Roles)
}

func TestAdminCannotTargetThemselves(t *testing.T) {
	repo := newFakeRepo()
	admin := repo.add("root", "admin", "agent")
	svc := New(repo, logger.Discard())
	actor := actorFor(admin)
	ctx := context.Background()

	if _, err := svc.SetRoles(ctx, actor, admin.ID, transport.SetRolesRequest{Roles: []string{"agent"}}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden role change, got %v", err)
	}
	if err := svc.Suspend(ctx, actor, admin.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden suspend, got %v", err)
	}
	if err := svc.Delete(ctx, actor, admin.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}

	got := repo.users[admin.ID]
	if got.IsSuspended || got.DeletedAt != nil || len(got.Roles) != 2 {
		t.Fatalf("expected account untouched, got %+v", got)
	}
}

func TestAdminManagesOtherUsers(t *testing.T) {
	repo := newFakeRepo()
	admin := repo.add("root", "admin")
	agent := repo.add("ana", "agent")
	svc := New(repo, logger.Discard())
	actor := actorFor(admin)
	ctx := context.Background()

	updated, err := svc.SetRoles(ctx, actor, agent.ID, transport.SetRolesRequest{Roles: []string{"Agent", "warehouse"}})
	if err != nil {
		t.Fatalf("set roles: %v", err)
	}
	if len(updated.Roles) != 2 || updated.Roles[0] != "agent" || updated.Roles[1] != "warehouse" {
		t.Fatalf("expected normalized roles, got %v", updated.Roles)
	}
	if err := svc.Suspend(ctx, actor, agent.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if !repo.users[agent.ID].IsSuspended {
		t.Fatalf("expected agent suspended")
	}
	if err := svc.Delete(ctx, actor, agent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Unsuspend(ctx, actor, agent.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected deleted user to be gone, got %v", err)
	}
}

func TestManagersCannotAdministerUsers(t *testing.T) {
	repo := newFakeRepo()
	manager := repo.add("mia", "manager")
	agent := repo.add("ana", "agent")
	svc := New(repo, logger.Discard())

	if err := svc.Suspend(context.Background(), actorFor(manager), agent.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.ListAgents(context.Background(), actorFor(manager)); err != nil {
		t.Fatalf("managers read the agents directory: %v", err)
	}
}

func TestCreateHashesPasswordAndRejectsUnknownRoles(t *testing.T) {
	repo := newFakeRepo()
	admin := repo.add("root", "admin")
	svc := New(repo, logger.Discard())
	ctx := context.Background()

	created, err := svc.Create(ctx, actorFor(admin), transport.CreateUserRequest{
		Email:    " New@Example.com ",
		FullName: "New Agent",
		Password: "correct horse",
		Roles:    []string{"agent"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stored := repo.users[created.ID]
	if stored.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", stored.Email)
	}
	if stored.PasswordHash == "correct horse" || !ComparePassword(stored.PasswordHash, "correct horse") {
		t.Fatalf("expected bcrypt hash of the password")
	}

	_, err = svc.Create(ctx, actorFor(admin), transport.CreateUserRequest{
		Email: "x@example.com", FullName: "X", Password: "long enough", Roles: []string{"agent", "wizard"},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
