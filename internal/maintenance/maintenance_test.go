package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/remote"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := localstore.New(localstore.NewMemory())
	return NewService(
		remote.NewMirror[Defect](nil, localstore.NewCollection[Defect](store, DefectsCollection)),
		remote.NewMirror[WorkOrder](nil, localstore.NewCollection[WorkOrder](store, WorkOrdersCollection)),
	)
}

func TestDefectLifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateDefect(ctx, Defect{Title: "Vazamento"}, "u1")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateDefect(ctx, Defect{CondominiumID: "c1", Title: "Vazamento", Priority: "whenever"}, "u1")
	require.ErrorIs(t, err, ErrInvalidInput)

	d, err := svc.CreateDefect(ctx, Defect{CondominiumID: "c1", Title: "Vazamento", Location: "Garagem"}, "u1")
	require.NoError(t, err)
	require.Equal(t, PriorityMedium, d.Priority)
	require.Equal(t, DefectOpen, d.Status)
	require.Nil(t, d.ResolvedAt)
	require.Equal(t, "u1", d.ReportedBy)

	resolved := "resolved"
	d, err = svc.UpdateDefect(ctx, d.ID, DefectUpdate{Status: &resolved})
	require.NoError(t, err)
	require.NotNil(t, d.ResolvedAt)

	reopen := "open"
	d, err = svc.UpdateDefect(ctx, d.ID, DefectUpdate{Status: &reopen})
	require.NoError(t, err)
	require.Nil(t, d.ResolvedAt)

	require.NoError(t, svc.DeleteDefect(ctx, d.ID))
	require.ErrorIs(t, svc.DeleteDefect(ctx, d.ID), ErrNotFound)
}

func TestListDefects(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, d := range []Defect{
		{CondominiumID: "c1", Title: "Lâmpada queimada", Priority: "low", Category: "eletrica"},
		{CondominiumID: "c1", Title: "Portão travado", Priority: "urgent", Category: "acesso"},
		{CondominiumID: "c2", Title: "Infiltração", Priority: "high", Status: "in_progress"},
	} {
		_, err := svc.CreateDefect(ctx, d, "u1")
		require.NoError(t, err)
	}
	c1, err := svc.ListDefects(ctx, DefectFilter{CondominiumID: "c1"})
	require.NoError(t, err)
	require.Len(t, c1, 2)
	urgent, err := svc.ListDefects(ctx, DefectFilter{Priority: PriorityUrgent})
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	require.Equal(t, "Portão travado", urgent[0].Title)
	inProgress, err := svc.ListDefects(ctx, DefectFilter{Status: DefectInProgress})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	q, err := svc.ListDefects(ctx, DefectFilter{Query: "LÂMPADA", Category: "Eletrica"})
	require.NoError(t, err)
	require.Len(t, q, 1)
}

func TestWorkOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderInProgress, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderCompleted, false},
		{OrderInProgress, OrderCompleted, true},
		{OrderInProgress, OrderCancelled, true},
		{OrderInProgress, OrderPending, false},
		{OrderCompleted, OrderCancelled, false},
		{OrderCompleted, OrderInProgress, false},
		{OrderCancelled, OrderPending, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s → %s", tc.from, tc.to)
	}
}

func TestWorkOrderFromDefect(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, err := svc.CreateDefect(ctx, Defect{CondominiumID: "c1", Title: "Bomba d'água", Priority: "high"}, "u1")
	require.NoError(t, err)

	_, err = svc.CreateWorkOrder(ctx, WorkOrder{DefectID: "missing"}, "u2")
	require.ErrorIs(t, err, ErrNotFound)

	w, err := svc.CreateWorkOrder(ctx, WorkOrder{DefectID: d.ID, AssignedTo: "tech-1"}, "u2")
	require.NoError(t, err)
	require.Equal(t, "c1", w.CondominiumID)
	require.Equal(t, "Bomba d'água", w.Title)
	require.Equal(t, PriorityHigh, w.Priority)
	require.Equal(t, OrderPending, w.Status)
	require.Equal(t, "u2", w.CreatedBy)

	d, err = svc.GetDefect(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, DefectInProgress, d.Status)

	_, err = svc.Transition(ctx, w.ID, "completed")
	require.ErrorIs(t, err, ErrInvalidTransition)

	w, err = svc.Transition(ctx, w.ID, "in_progress")
	require.NoError(t, err)
	require.Nil(t, w.CompletedAt)
	w, err = svc.Transition(ctx, w.ID, "completed")
	require.NoError(t, err)
	require.NotNil(t, w.CompletedAt)

	_, err = svc.Transition(ctx, w.ID, "cancelled")
	require.ErrorIs(t, err, ErrInvalidTransition)

	d, err = svc.GetDefect(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, DefectResolved, d.Status)
	require.NotNil(t, d.ResolvedAt)
}

func TestWorkOrderValidationAndList(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateWorkOrder(ctx, WorkOrder{Title: "x"}, "u1")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Transition(ctx, "missing", "in_progress")
	require.ErrorIs(t, err, ErrNotFound)

	soon := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	later := soon.Add(72 * time.Hour)
	a, err := svc.CreateWorkOrder(ctx, WorkOrder{CondominiumID: "c1", Title: "Pintura", DueDate: &later}, "u1")
	require.NoError(t, err)
	b, err := svc.CreateWorkOrder(ctx, WorkOrder{CondominiumID: "c1", Title: "Elevador", DueDate: &soon}, "u1")
	require.NoError(t, err)
	c, err := svc.CreateWorkOrder(ctx, WorkOrder{CondominiumID: "c1", Title: "Jardim"}, "u1")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, c.ID, "cancelled")
	require.NoError(t, err)

	list, err := svc.ListWorkOrders(ctx, WorkOrderFilter{CondominiumID: "c1"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, b.ID, list[0].ID)
	require.Equal(t, a.ID, list[1].ID)
	require.Equal(t, c.ID, list[2].ID)

	pending, err := svc.ListWorkOrders(ctx, WorkOrderFilter{Status: OrderPending})
	require.NoError(t, err)
	require.Len(t, pending, 2)

	who := "tech-9"
	up, err := svc.UpdateWorkOrder(ctx, a.ID, WorkOrderUpdate{AssignedTo: &who})
	require.NoError(t, err)
	require.Equal(t, "tech-9", up.AssignedTo)

	mine, err := svc.ListWorkOrders(ctx, WorkOrderFilter{AssignedTo: "tech-9"})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, svc.DeleteWorkOrder(ctx, a.ID))
	_, err = svc.GetWorkOrder(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
