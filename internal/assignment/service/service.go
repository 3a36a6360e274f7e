// Package service assigns orders and prediction leads to agents.
package service

import (
	"context"
	"errors"
	"time"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/assignment/transport"
	orderdomain "callcenter_backend/internal/orders/domain"
	usersdomain "callcenter_backend/internal/users/domain"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

// Kind names the type of work item being assigned.
type Kind string

const (
	KindOrders Kind = "orders"
	KindLeads  Kind = "prediction_leads"
)

// Store is the transactional surface for assignment writes.
type Store interface {
	// ShareUser reads a live user and keeps the row unchanged until commit.
	ShareUser(ctx context.Context, id uuid.UUID) (usersdomain.User, error)
	// AssignOrders writes a to the orders in ids and returns the ids it updated.
	AssignOrders(ctx context.Context, ids []uuid.UUID, a orderdomain.Assignment) ([]uuid.UUID, error)
	// AssignLeads writes a to the prediction leads in ids and returns the ids it updated.
	AssignLeads(ctx context.Context, ids []uuid.UUID, a orderdomain.Assignment) ([]uuid.UUID, error)
	// RecountAssigned recomputes assigned_count for the lists holding leadIDs.
	RecountAssigned(ctx context.Context, leadIDs []uuid.UUID) error
	OpenWorkload(ctx context.Context, kind Kind, agentIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type Repository interface {
	InTx(ctx context.Context, fn func(store Store) error) error
}

type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// AssignOrders hands orders to one agent.
func (s *Service) AssignOrders(ctx context.Context, actor access.Actor, req transport.AssignOrdersRequest) (transport.AssignmentResponse, error) {
	return s.assign(ctx, actor, KindOrders, req.OrderIDs, req.AgentID)
}

// AssignLeads hands prediction leads to one agent.
func (s *Service) AssignLeads(ctx context.Context, actor access.Actor, req transport.AssignLeadsRequest) (transport.AssignmentResponse, error) {
	return s.assign(ctx, actor, KindLeads, req.LeadIDs, req.AgentID)
}

func (s *Service) assign(ctx context.Context, actor access.Actor, kind Kind, itemIDs []uuid.UUID, agentID uuid.UUID) (transport.AssignmentResponse, error) {
	if err := access.RequireAdminOrManager(actor); err != nil {
		return transport.AssignmentResponse{}, err
	}
	ids := uniqueIDs(itemIDs)

	var resp transport.AssignmentResponse
	err := s.repo.InTx(ctx, func(store Store) error {
		agent, err := loadAgent(ctx, store, agentID)
		if err != nil {
			return err
		}
		if err := s.write(ctx, store, kind, ids, agent, actor); err != nil {
			return err
		}
		resp = transport.AssignmentResponse{AgentID: agent.ID, AgentName: agent.FullName, ItemIDs: ids}
		return nil
	})
	if err != nil {
		return transport.AssignmentResponse{}, db.NormalizeError("assignment.assign", err)
	}
	s.log.Info("work assigned", "kind", kind, "agentId", agentID, "count", len(ids), "by", actor.ID)
	return resp, nil
}

// Balance spreads items across agents, least-loaded first.
func (s *Service) Balance(ctx context.Context, actor access.Actor, req transport.BalanceRequest) (transport.BalanceResponse, error) {
	if err := access.RequireAdminOrManager(actor); err != nil {
		return transport.BalanceResponse{}, err
	}
	kind := Kind(req.Kind)
	if kind != KindOrders && kind != KindLeads {
		return transport.BalanceResponse{}, apperr.Validation("kind must be orders or prediction_leads")
	}
	items := uniqueIDs(req.ItemIDs)
	agentIDs := uniqueIDs(req.AgentIDs)

	resp := transport.BalanceResponse{Kind: string(kind)}
	err := s.repo.InTx(ctx, func(store Store) error {
		agents := make(map[uuid.UUID]usersdomain.User, len(agentIDs))
		for _, id := range agentIDs {
			agent, err := loadAgent(ctx, store, id)
			if err != nil {
				return err
			}
			agents[id] = agent
		}

		open, err := store.OpenWorkload(ctx, kind, agentIDs)
		if err != nil {
			return err
		}
		loads := make([]AgentLoad, len(agentIDs))
		for i, id := range agentIDs {
			loads[i] = AgentLoad{AgentID: id, Open: open[id]}
		}

		plan := Plan(items, loads)
		for _, id := range agentIDs {
			batch := plan[id]
			if len(batch) == 0 {
				continue
			}
			if err := s.write(ctx, store, kind, batch, agents[id], actor); err != nil {
				return err
			}
			resp.Assignments = append(resp.Assignments, transport.AssignmentResponse{
				AgentID: id, AgentName: agents[id].FullName, ItemIDs: batch,
			})
		}
		return nil
	})
	if err != nil {
		return transport.BalanceResponse{}, db.NormalizeError("assignment.balance", err)
	}
	s.log.Info("work balanced", "kind", kind, "items", len(items), "agents", len(agentIDs), "by", actor.ID)
	return resp, nil
}

func (s *Service) write(ctx context.Context, store Store, kind Kind, ids []uuid.UUID, agent usersdomain.User, actor access.Actor) error {
	now := s.now().UTC()
	agentID, name := agent.ID, agent.FullName
	a := orderdomain.Assignment{AgentID: &agentID, AgentName: &name, AssignedAt: &now, AssignedBy: actor.UserID()}

	var (
		updated []uuid.UUID
		err     error
	)
	switch kind {
	case KindOrders:
		updated, err = store.AssignOrders(ctx, ids, a)
	default:
		updated, err = store.AssignLeads(ctx, ids, a)
	}
	if err != nil {
		return err
	}
	if missing := difference(ids, updated); len(missing) > 0 {
		return apperr.NotFound("some items were not found").WithDetails(map[string]interface{}{"missingIds": missing})
	}
	if kind == KindLeads {
		return store.RecountAssigned(ctx, ids)
	}
	return nil
}

// loadAgent reads the target under a share lock, so a suspension or role
// change either committed before the read or waits for the assignment.
func loadAgent(ctx context.Context, store Store, id uuid.UUID) (usersdomain.User, error) {
	agent, err := store.ShareUser(ctx, id)
	if errors.Is(err, usersdomain.ErrUserNotFound) {
		return usersdomain.User{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return usersdomain.User{}, err
	}
	if agent.IsSuspended {
		return usersdomain.User{}, apperr.Validation("agent is suspended")
	}
	if !access.IsAgent(agent.RoleSet()) {
		return usersdomain.User{}, apperr.Validation("user does not have an agent role")
	}
	return agent, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func difference(want, got []uuid.UUID) []uuid.UUID {
	have := make(map[uuid.UUID]struct{}, len(got))
	for _, id := range got {
		have[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
