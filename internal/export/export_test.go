package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/devices"
	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/maintenance"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := localstore.New(localstore.NewMemory())
	return NewService(localstore.NewCollection[Record](store, HistoryCollection))
}

func TestWriteUsersCSV(t *testing.T) {
	svc := newService(t)
	var buf bytes.Buffer
	tbl := UsersTable([]auth.User{
		{ID: "u1", Name: "Ana, Síndica", Email: "ana@example.com", Profile: auth.ProfileManager, Permissions: []string{"export", "logos.manage"}, Active: true},
		{ID: "u2", Name: "Bruno", Email: "bruno@example.com", Profile: auth.ProfileDoorman},
	})
	require.NoError(t, svc.Write(context.Background(), &buf, Users, tbl, "admin"))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "email", rows[0][2])
	require.Equal(t, "Ana, Síndica", rows[1][1])
	require.Equal(t, "export;logos.manage", rows[1][5])
	require.Equal(t, "false", rows[2][6])
	require.NotContains(t, buf.String(), "password")

	hist, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, Users, hist[0].Collection)
	require.Equal(t, 2, hist[0].Rows)
	require.Equal(t, "admin", hist[0].RequestedBy)
}

func TestWriteCSVNeutralizesFormulas(t *testing.T) {
	var buf bytes.Buffer
	tbl := Table{
		Header: []string{"id", "name"},
		Rows: [][]string{
			{"r1", "=HYPERLINK(\"http://evil\")"},
			{"r2", "+55 11 4000-1000"},
			{"r3", "-2+3"},
			{"r4", "@SUM(A1)"},
			{"r5", "Bloco A"},
			{"r6", ""},
		},
	}
	require.NoError(t, WriteCSV(&buf, tbl))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, rows[0])
	require.Equal(t, "'=HYPERLINK(\"http://evil\")", rows[1][1])
	require.Equal(t, "'+55 11 4000-1000", rows[2][1])
	require.Equal(t, "'-2+3", rows[3][1])
	require.Equal(t, "'@SUM(A1)", rows[4][1])
	require.Equal(t, "Bloco A", rows[5][1])
	require.Equal(t, "", rows[6][1])
}

func TestWriteRejectsUnknownCollection(t *testing.T) {
	svc := newService(t)
	err := svc.Write(context.Background(), &bytes.Buffer{}, "sessions", Table{}, "admin")
	require.ErrorIs(t, err, ErrUnknownCollection)
}

func TestHistoryKeepsNewest(t *testing.T) {
	svc := newService(t)
	svc.limit = 3
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	svc.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Minute) }
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Write(context.Background(), &bytes.Buffer{}, Devices, Table{Header: []string{"id"}}, fmt.Sprint("u", i)))
	}
	hist, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.Equal(t, "u4", hist[0].RequestedBy)
	require.Equal(t, "u2", hist[2].RequestedBy)
}

func TestTables(t *testing.T) {
	seen := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	dev := DevicesTable([]devices.Device{{ID: "d1", IP: "10.0.0.1", Hostname: "cam", CustomName: "Portão", LastSeen: &seen}})
	require.Equal(t, "Portão", dev.Rows[0][1])
	require.Equal(t, "2026-02-03T04:05:06Z", dev.Rows[0][9])
	require.Len(t, dev.Rows[0], len(dev.Header))

	wo := WorkOrdersTable([]maintenance.WorkOrder{{ID: "w1", Title: "x"}})
	require.Equal(t, "", wo.Rows[0][7])
	require.Len(t, wo.Rows[0], len(wo.Header))

	def := DefectsTable([]maintenance.Defect{{ID: "x"}})
	require.Len(t, def.Rows[0], len(def.Header))
}
