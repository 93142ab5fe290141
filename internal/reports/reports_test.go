package reports

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
	return NewService(remote.NewMirror[SecurityReport](nil, localstore.NewCollection[SecurityReport](store, Collection)))
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, SecurityReport{Title: "x"}, "u1")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, SecurityReport{CondominiumID: "c1"}, "u1")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, SecurityReport{CondominiumID: "c1", Title: "x", Severity: "apocalyptic"}, "u1")
	require.ErrorIs(t, err, ErrInvalidInput)

	r, err := svc.Create(ctx, SecurityReport{
		CondominiumID: "c1", Title: " Portão aberto ", Category: "Access",
		Tags: []string{"Portao", "portao", " noite "},
	}, "u1")
	require.NoError(t, err)
	require.Equal(t, "Portão aberto", r.Title)
	require.Equal(t, SeverityMedium, r.Severity)
	require.Equal(t, StatusOpen, r.Status)
	require.Equal(t, "access", r.Category)
	require.Equal(t, []string{"portao", "noite"}, r.Tags)
	require.Equal(t, "u1", r.CreatedBy)
	require.False(t, r.OccurredAt.IsZero())
}

func TestUpdateStatusAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, SecurityReport{CondominiumID: "c1", Title: "x"}, "u1")
	require.NoError(t, err)

	up, err := svc.UpdateStatus(ctx, r.ID, "Investigating")
	require.NoError(t, err)
	require.Equal(t, StatusInvestigating, up.Status)
	require.True(t, up.Status.Pending())

	_, err = svc.UpdateStatus(ctx, r.ID, "forgotten")
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, r.ID))
	_, err = svc.Get(ctx, r.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateStatus(ctx, r.ID, "closed")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFilters(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2026, 5, d, 12, 0, 0, 0, time.UTC) }
	for _, r := range []SecurityReport{
		{CondominiumID: "c1", Title: "Furto bicicleta", Severity: "high", Category: "theft", OccurredAt: day(1)},
		{CondominiumID: "c1", Title: "Câmera offline", Severity: "low", Category: "equipment", OccurredAt: day(5), Tags: []string{"cftv"}},
		{CondominiumID: "c2", Title: "Invasão", Severity: "critical", Category: "intrusion", OccurredAt: day(10), Status: "resolved"},
	} {
		_, err := svc.Create(ctx, r, "u1")
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, []string{"Invasão", "Câmera offline", "Furto bicicleta"}, titles(all))

	c1, err := svc.List(ctx, Filter{CondominiumID: "c1", Severity: SeverityHigh})
	require.NoError(t, err)
	require.Equal(t, []string{"Furto bicicleta"}, titles(c1))

	from, to := day(2), day(10)
	ranged, err := svc.List(ctx, Filter{From: &from, To: &to})
	require.NoError(t, err)
	require.Equal(t, []string{"Invasão", "Câmera offline"}, titles(ranged))

	resolved, err := svc.List(ctx, Filter{Status: StatusResolved})
	require.NoError(t, err)
	require.Equal(t, []string{"Invasão"}, titles(resolved))

	tagged, err := svc.List(ctx, Filter{Query: "CFTV"})
	require.NoError(t, err)
	require.Equal(t, []string{"Câmera offline"}, titles(tagged))

	cat, err := svc.List(ctx, Filter{Category: "Theft"})
	require.NoError(t, err)
	require.Len(t, cat, 1)
}

func titles(list []SecurityReport) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.Title
	}
	return out
}
