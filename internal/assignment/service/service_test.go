package service

import (
	"context"
	"testing"
	"time"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/assignment/transport"
	orderdomain "callcenter_backend/internal/orders/domain"
	usersdomain "callcenter_backend/internal/users/domain"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	users       map[uuid.UUID]usersdomain.User
	orders      map[uuid.UUID]orderdomain.Assignment
	leads       map[uuid.UUID]orderdomain.Assignment
	leadList    map[uuid.UUID]uuid.UUID
	assigned    map[uuid.UUID]int
	open        map[uuid.UUID]int
	recountRuns int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]usersdomain.User),
		orders:   make(map[uuid.UUID]orderdomain.Assignment),
		leads:    make(map[uuid.UUID]orderdomain.Assignment),
		leadList: make(map[uuid.UUID]uuid.UUID),
		assigned: make(map[uuid.UUID]int),
		open:     make(map[uuid.UUID]int),
	}
}

func (s *fakeStore) addUser(name string, roles ...string) usersdomain.User {
	u := usersdomain.User{ID: uuid.New(), FullName: name, Roles: roles}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) ShareUser(_ context.Context, id uuid.UUID) (usersdomain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return usersdomain.User{}, usersdomain.ErrUserNotFound
	}
	return u, nil
}

func assignInto(rows map[uuid.UUID]orderdomain.Assignment, ids []uuid.UUID, a orderdomain.Assignment) []uuid.UUID {
	var updated []uuid.UUID
	for _, id := range ids {
		if _, ok := rows[id]; ok {
			rows[id] = a
			updated = append(updated, id)
		}
	}
	return updated
}

func (s *fakeStore) AssignOrders(_ context.Context, ids []uuid.UUID, a orderdomain.Assignment) ([]uuid.UUID, error) {
	return assignInto(s.orders, ids, a), nil
}

func (s *fakeStore) AssignLeads(_ context.Context, ids []uuid.UUID, a orderdomain.Assignment) ([]uuid.UUID, error) {
	return assignInto(s.leads, ids, a), nil
}

func (s *fakeStore) RecountAssigned(_ context.Context, _ []uuid.UUID) error {
	s.recountRuns++
	s.assigned = make(map[uuid.UUID]int)
	for id, a := range s.leads {
		if a.AgentID != nil {
			s.assigned[s.leadList[id]]++
		}
	}
	return nil
}

func (s *fakeStore) OpenWorkload(_ context.Context, _ Kind, agentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int)
	for _, id := range agentIDs {
		out[id] = s.open[id]
	}
	return out, nil
}

type fakeRepo struct {
	store *fakeStore
}

func (r fakeRepo) InTx(_ context.Context, fn func(Store) error) error {
	orders := make(map[uuid.UUID]orderdomain.Assignment, len(r.store.orders))
	for k, v := range r.store.orders {
		orders[k] = v
	}
	leads := make(map[uuid.UUID]orderdomain.Assignment, len(r.store.leads))
	for k, v := range r.store.leads {
		leads[k] = v
	}
	if err := fn(r.store); err != nil {
		r.store.orders, r.store.leads = orders, leads
		return err
	}
	return nil
}

func newTestService(store *fakeStore) *Service {
	svc := New(fakeRepo{store: store}, logger.Discard())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestAssignOrdersRecordsWhoAndWhen(t *testing.T) {
	store := newFakeStore()
	agent := store.addUser("Ana", "agent")
	manager := store.addUser("Mia", "manager")
	orderID := uuid.New()
	store.orders[orderID] = orderdomain.Assignment{}
	svc := newTestService(store)

	resp, err := svc.AssignOrders(context.Background(), access.NewActor(manager.ID, manager.FullName, manager.Roles),
		transport.AssignOrdersRequest{OrderIDs: []uuid.UUID{orderID, orderID}, AgentID: agent.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(resp.ItemIDs) != 1 || resp.AgentName != "Ana" {
		t.Fatalf("unexpected response %+v", resp)
	}
	got := store.orders[orderID]
	if got.AgentID == nil || *got.AgentID != agent.ID || *got.AgentName != "Ana" {
		t.Fatalf("expected order assigned to Ana, got %+v", got)
	}
	if got.AssignedBy == nil || *got.AssignedBy != manager.ID || got.AssignedAt == nil || got.AssignedAt.Day() != 1 {
		t.Fatalf("expected assigned_by and assigned_at recorded, got %+v", got)
	}
}

func TestAssignRevalidatesAgent(t *testing.T) {
	store := newFakeStore()
	admin := store.addUser("Ada", "admin")
	warehouse := store.addUser("Wes", "warehouse")
	suspended := store.addUser("Sam", "agent")
	suspended.IsSuspended = true
	store.users[suspended.ID] = suspended
	orderID := uuid.New()
	store.orders[orderID] = orderdomain.Assignment{}
	svc := newTestService(store)
	actor := access.NewActor(admin.ID, admin.FullName, admin.Roles)

	cases := []struct {
		agentID uuid.UUID
		kind    apperr.Kind
	}{
		{uuid.New(), apperr.KindNotFound},
		{warehouse.ID, apperr.KindValidation},
		{suspended.ID, apperr.KindValidation},
	}
	for _, tc := range cases {
		_, err := svc.AssignOrders(context.Background(), actor, transport.AssignOrdersRequest{OrderIDs: []uuid.UUID{orderID}, AgentID: tc.agentID})
		if !apperr.Is(err, tc.kind) {
			t.Fatalf("agent %s: expected %v, got %v", tc.agentID, tc.kind, err)
		}
	}
	if store.orders[orderID].AgentID != nil {
		t.Fatalf("expected order to stay unassigned")
	}
}

func TestAssignRejectsAgentsAndMissingItems(t *testing.T) {
	store := newFakeStore()
	agent := store.addUser("Ana", "agent")
	admin := store.addUser("Ada", "admin")
	known := uuid.New()
	store.orders[known] = orderdomain.Assignment{}
	svc := newTestService(store)

	_, err := svc.AssignOrders(context.Background(), access.NewActor(agent.ID, agent.FullName, agent.Roles),
		transport.AssignOrdersRequest{OrderIDs: []uuid.UUID{known}, AgentID: agent.ID})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for agent actor, got %v", err)
	}

	_, err = svc.AssignOrders(context.Background(), access.NewActor(admin.ID, admin.FullName, admin.Roles),
		transport.AssignOrdersRequest{OrderIDs: []uuid.UUID{known, uuid.New()}, AgentID: agent.ID})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if store.orders[known].AgentID != nil {
		t.Fatalf("expected partial assignment rolled back")
	}
}

func TestAssignLeadsRecountsLists(t *testing.T) {
	store := newFakeStore()
	agent := store.addUser("Ana", "prediction_agent")
	admin := store.addUser("Ada", "admin")
	list := uuid.New()
	leads := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range leads {
		store.leads[id] = orderdomain.Assignment{}
		store.leadList[id] = list
	}
	svc := newTestService(store)

	_, err := svc.AssignLeads(context.Background(), access.NewActor(admin.ID, admin.FullName, admin.Roles),
		transport.AssignLeadsRequest{LeadIDs: leads[:2], AgentID: agent.ID})
	if err != nil {
		t.Fatalf("assign leads: %v", err)
	}
	if store.assigned[list] != 2 || store.recountRuns != 1 {
		t.Fatalf("expected assigned_count 2 after one recount, got %d (%d runs)", store.assigned[list], store.recountRuns)
	}
}

func TestBalanceUsesStoredWorkload(t *testing.T) {
	store := newFakeStore()
	busy := store.addUser("Busy", "agent")
	idle := store.addUser("Idle", "agent")
	admin := store.addUser("Ada", "admin")
	store.open[busy.ID] = 4
	items := make([]uuid.UUID, 4)
	for i := range items {
		items[i] = uuid.New()
		store.orders[items[i]] = orderdomain.Assignment{}
	}
	svc := newTestService(store)

	resp, err := svc.Balance(context.Background(), access.NewActor(admin.ID, admin.FullName, admin.Roles), transport.BalanceRequest{
		Kind: "orders", ItemIDs: items, AgentIDs: []uuid.UUID{busy.ID, idle.ID},
	})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if len(resp.Assignments) != 1 || resp.Assignments[0].AgentID != idle.ID || len(resp.Assignments[0].ItemIDs) != 4 {
		t.Fatalf("expected every order to go to the idle agent, got %+v", resp.Assignments)
	}
	for _, id := range items {
		if a := store.orders[id]; a.AgentID == nil || *a.AgentID != idle.ID {
			t.Fatalf("expected %s assigned to idle agent", id)
		}
	}
}
