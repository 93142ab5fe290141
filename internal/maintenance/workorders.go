package maintenance

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus normalises s; empty means pending.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return OrderPending, true
	case OrderPending, OrderInProgress, OrderCompleted, OrderCancelled:
		return st, true
	}
	return "", false
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderCompleted, OrderCancelled},
}

// CanTransition reports whether a work order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return slices.Contains(orderTransitions[from], to)
}

type WorkOrder struct {
	ID            string      `json:"id"`
	CondominiumID string      `json:"condominium_id"`
	DefectID      string      `json:"defect_id,omitempty"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Priority      Priority    `json:"priority"`
	Status        OrderStatus `json:"status"`
	AssignedTo    string      `json:"assigned_to,omitempty"`
	DueDate       *time.Time  `json:"due_date,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (w WorkOrder) RecordID() string      { return w.ID }
func (w WorkOrder) RecordTime() time.Time { return w.CreatedAt }

// WorkOrderUpdate carries optional changes; nil fields are left untouched.
type WorkOrderUpdate struct {
	Title       *string
	Description *string
	Priority    *string
	AssignedTo  *string
	DueDate     *time.Time
}

// WorkOrderFilter narrows ListWorkOrders.
type WorkOrderFilter struct {
	CondominiumID string
	DefectID      string
	Status        OrderStatus
	Priority      Priority
	AssignedTo    string
	Query         string
}

// CreateWorkOrder stores a pending work order. When DefectID is set the
// defect must exist; its condominium, title and priority fill blanks and it
// moves to in_progress.
func (s *Service) CreateWorkOrder(ctx context.Context, w WorkOrder, createdBy string) (WorkOrder, error) {
	w.DefectID = strings.TrimSpace(w.DefectID)
	var defect *Defect
	if w.DefectID != "" {
		d, err := s.GetDefect(ctx, w.DefectID)
		if err != nil {
			return WorkOrder{}, err
		}
		defect = &d
		if strings.TrimSpace(w.CondominiumID) == "" {
			w.CondominiumID = d.CondominiumID
		}
		if strings.TrimSpace(w.Title) == "" {
			w.Title = d.Title
		}
		if w.Priority == "" {
			w.Priority = d.Priority
		}
		if w.Description == "" {
			w.Description = d.Description
		}
	}
	w.CondominiumID = strings.TrimSpace(w.CondominiumID)
	w.Title = strings.TrimSpace(w.Title)
	if w.CondominiumID == "" {
		return WorkOrder{}, fmt.Errorf("%w: condominium_id is required", ErrInvalidInput)
	}
	if w.Title == "" {
		return WorkOrder{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	p, ok := ParsePriority(string(w.Priority))
	if !ok {
		return WorkOrder{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, w.Priority)
	}
	now := s.now().UTC()
	w.ID = ids.New()
	w.Priority = p
	w.Status = OrderPending
	w.Description = strings.TrimSpace(w.Description)
	w.AssignedTo = strings.TrimSpace(w.AssignedTo)
	w.CompletedAt = nil
	w.CreatedBy = createdBy
	w.CreatedAt, w.UpdatedAt = now, now
	if err := s.orders.Put(ctx, w); err != nil {
		return WorkOrder{}, err
	}
	if defect != nil && defect.Status == DefectOpen {
		st := string(DefectInProgress)
		if _, err := s.UpdateDefect(ctx, defect.ID, DefectUpdate{Status: &st}); err != nil {
			return w, err
		}
	}
	return w, nil
}

func (s *Service) GetWorkOrder(ctx context.Context, id string) (WorkOrder, error) {
	w, err := s.orders.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return WorkOrder{}, notFound(err, "work order", id)
	}
	return w, nil
}

// UpdateWorkOrder edits descriptive fields; status changes go through Transition.
func (s *Service) UpdateWorkOrder(ctx context.Context, id string, upd WorkOrderUpdate) (WorkOrder, error) {
	w, err := s.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrder{}, err
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return WorkOrder{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		w.Title = title
	}
	if upd.Description != nil {
		w.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Priority != nil {
		p, ok := ParsePriority(*upd.Priority)
		if !ok {
			return WorkOrder{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *upd.Priority)
		}
		w.Priority = p
	}
	if upd.AssignedTo != nil {
		w.AssignedTo = strings.TrimSpace(*upd.AssignedTo)
	}
	if upd.DueDate != nil {
		due := upd.DueDate.UTC()
		w.DueDate = &due
	}
	w.UpdatedAt = s.now().UTC()
	if err := s.orders.Put(ctx, w); err != nil {
		return WorkOrder{}, err
	}
	return w, nil
}

// Transition moves a work order along pending → in_progress → completed, or
// to cancelled from any non-final state. Completing stamps CompletedAt and
// resolves the linked defect.
func (s *Service) Transition(ctx context.Context, id, status string) (WorkOrder, error) {
	to, ok := ParseOrderStatus(status)
	if !ok || strings.TrimSpace(status) == "" {
		return WorkOrder{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	w, err := s.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrder{}, err
	}
	if !CanTransition(w.Status, to) {
		return WorkOrder{}, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, w.Status, to)
	}
	now := s.now().UTC()
	w.Status = to
	if to == OrderCompleted {
		w.CompletedAt = &now
	}
	w.UpdatedAt = now
	if err := s.orders.Put(ctx, w); err != nil {
		return WorkOrder{}, err
	}
	if to == OrderCompleted && w.DefectID != "" {
		st := string(DefectResolved)
		if _, err := s.UpdateDefect(ctx, w.DefectID, DefectUpdate{Status: &st}); err != nil && !isNotFound(err) {
			return w, err
		}
	}
	return w, nil
}

func (s *Service) DeleteWorkOrder(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return notFound(err, "work order", id)
	}
	return nil
}

// ListWorkOrders returns matching orders; open ones first, then by due date.
func (s *Service) ListWorkOrders(ctx context.Context, f WorkOrderFilter) ([]WorkOrder, error) {
	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]WorkOrder, 0, len(all))
	for _, w := range all {
		switch {
		case f.CondominiumID != "" && w.CondominiumID != f.CondominiumID,
			f.DefectID != "" && w.DefectID != f.DefectID,
			f.Status != "" && w.Status != f.Status,
			f.Priority != "" && w.Priority != f.Priority,
			f.AssignedTo != "" && w.AssignedTo != f.AssignedTo,
			q != "" && !containsFold(q, w.Title, w.Description, w.AssignedTo):
			continue
		}
		out = append(out, w)
	}
	slices.SortFunc(out, compareOrders)
	return out, nil
}

func (w WorkOrder) open() bool { return w.Status == OrderPending || w.Status == OrderInProgress }

func compareOrders(a, b WorkOrder) int {
	if a.open() != b.open() {
		if a.open() {
			return -1
		}
		return 1
	}
	switch {
	case a.DueDate != nil && b.DueDate != nil:
		if c := a.DueDate.Compare(*b.DueDate); c != 0 {
			return c
		}
	case a.DueDate != nil:
		return -1
	case b.DueDate != nil:
		return 1
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}
