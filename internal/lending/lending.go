// Package lending implements the lifecycle of a lendable resource:
//
//	available --request--> requested --approve--> borrowed --return--> available
//	                           |
//	                           +--decline--> declined --request--> requested
//
// A resource holds at most one pending or active borrower. Every operation
// either moves the resource to its next state through a single conditional
// write or returns a *Rejection naming why it could not.
package lending

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/soseska/internal/model"
)

// Operation names a lending transition.
type Operation string

// Operations.
const (
	OpRequest Operation = "request"
	OpApprove Operation = "approve"
	OpDecline Operation = "decline"
	OpReturn  Operation = "return"
)

// Operations lists every transition in lifecycle order.
var Operations = []Operation{OpRequest, OpApprove, OpDecline, OpReturn}

// Actor is the verified identity performing an operation.
type Actor struct {
	UserID      int64
	Role        string
	ApartmentID *int64
}

// Repository loads resources and applies conditional lending updates.
//
// UpdateResourceIf must write to only if the stored status and borrower still
// equal from, as a single atomic statement. When they do not, or the resource
// no longer exists, it returns nil, nil.
type Repository interface {
	GetResource(ctx context.Context, id int64) (*model.Resource, error)
	UpdateResourceIf(ctx context.Context, id int64, from, to model.LendingState) (*model.Resource, error)
}

// Manager runs lending operations against a repository.
//
// Each call performs one read and at most one conditional write, and yields
// either the updated resource or a *Rejection. A write that loses a race to a
// concurrent transition is reported as ErrConflict and never retried here.
type Manager struct {
	repo Repository
}

// NewManager returns a manager backed by repo.
func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

// Request asks to borrow an available (or previously declined) resource.
func (m *Manager) Request(ctx context.Context, id int64, actor Actor) (*model.Resource, error) {
	return m.apply(ctx, OpRequest, id, actor)
}

// Approve lends a requested resource to its requester. Only the owner may approve.
func (m *Manager) Approve(ctx context.Context, id int64, actor Actor) (*model.Resource, error) {
	return m.apply(ctx, OpApprove, id, actor)
}

// Decline refuses a pending request. The owner or an admin of the resource's
// apartment may decline.
func (m *Manager) Decline(ctx context.Context, id int64, actor Actor) (*model.Resource, error) {
	return m.apply(ctx, OpDecline, id, actor)
}

// Return hands a borrowed resource back. Only the current borrower may return it.
func (m *Manager) Return(ctx context.Context, id int64, actor Actor) (*model.Resource, error) {
	return m.apply(ctx, OpReturn, id, actor)
}

// Do runs op by name.
func (m *Manager) Do(ctx context.Context, op Operation, id int64, actor Actor) (*model.Resource, error) {
	if _, ok := rules[op]; !ok {
		return nil, reject(ErrValidation, fmt.Sprintf("unknown operation %q", op))
	}
	return m.apply(ctx, op, id, actor)
}

func (m *Manager) apply(ctx context.Context, op Operation, id int64, actor Actor) (*model.Resource, error) {
	rule := rules[op]

	r, err := m.repo.GetResource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading resource %d: %w", id, err)
	}
	if r == nil {
		return nil, m.rejected(op, id, actor, reject(ErrNotFound, "resource not found"))
	}

	if !rule.accepts(r.Status) {
		return nil, m.rejected(op, id, actor, reject(ErrInvalidState, rule.stateReason))
	}
	if err := rule.authorize(actor, r); err != nil {
		return nil, m.rejected(op, id, actor, err)
	}

	updated, err := m.repo.UpdateResourceIf(ctx, id, r.State(), rule.next(actor, r))
	if err != nil {
		return nil, fmt.Errorf("updating resource %d: %w", id, err)
	}
	if updated == nil {
		return nil, m.rejected(op, id, actor, reject(ErrConflict, "resource was changed by someone else, try again"))
	}

	slog.Info("resource "+string(op), "resource", id, "actor", actor.UserID, "status", updated.Status)
	return updated, nil
}

func (m *Manager) rejected(op Operation, id int64, actor Actor, err error) error {
	slog.Warn("lending operation rejected", "op", op, "resource", id, "actor", actor.UserID, "reason", err.Error())
	return err
}

// Allowed returns the operations actor could currently perform on r.
func Allowed(actor Actor, r *model.Resource) []Operation {
	var ops []Operation
	for _, op := range Operations {
		rule := rules[op]
		if rule.accepts(r.Status) && rule.authorize(actor, r) == nil {
			ops = append(ops, op)
		}
	}
	return ops
}
