// Package maintenance tracks building defects and the work orders raised to
// fix them.
package maintenance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/remote"
)

var (
	ErrNotFound          = errors.New("maintenance: not found")
	ErrInvalidInput      = errors.New("maintenance: invalid input")
	ErrInvalidTransition = errors.New("maintenance: invalid status transition")
)

// Local collection names.
const (
	DefectsCollection    = "defects"
	WorkOrdersCollection = "work_orders"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority normalises s; empty means medium.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, true
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, true
	}
	return "", false
}

// Service owns defects and work orders.
type Service struct {
	defects remote.Repo[Defect]
	orders  remote.Repo[WorkOrder]
	now     func() time.Time
}

func NewService(defects remote.Repo[Defect], orders remote.Repo[WorkOrder]) *Service {
	return &Service{defects: defects, orders: orders, now: time.Now}
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func notFound(err error, kind, id string) error {
	if remote.IsNotFound(err) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return err
}
