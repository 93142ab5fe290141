package devices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/remote"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := localstore.New(localstore.NewMemory())
	return NewService(remote.NewMirror[Device](nil, localstore.NewCollection[Device](store, Collection)))
}

func TestNormalizeMAC(t *testing.T) {
	cases := map[string]string{
		"aa:bb:cc:dd:ee:ff": "AA:BB:CC:DD:EE:FF",
		"AA-BB-CC-DD-EE-FF": "AA:BB:CC:DD:EE:FF",
		"aabb.ccdd.eeff":    "AA:BB:CC:DD:EE:FF",
		"aabbccddeeff":      "AA:BB:CC:DD:EE:FF",
	}
	for in, want := range cases {
		got, err := NormalizeMAC(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	for _, bad := range []string{"", "aa:bb:cc", "gg:bb:cc:dd:ee:ff", "aa:bb:cc:dd:ee:ff:00"} {
		_, err := NormalizeMAC(bad)
		require.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestInferType(t *testing.T) {
	cases := []struct {
		hostname, mac string
		want          Type
		vendor        string
	}{
		{"cam-portaria-01", "00:00:00:00:00:01", TypeCamera, ""},
		{"NVR-Garagem", "00:00:00:00:00:02", TypeDVR, ""},
		{"access-point-hall", "", TypeAccessPoint, ""},
		{"catraca-bloco-a", "", TypeAccessControl, ""},
		{"interfone-guarita", "", TypeIntercom, ""},
		{"", "44:19:B6:12:34:56", TypeCamera, "Hikvision"},
		{"unnamed", "24:A4:3C:00:00:01", TypeAccessPoint, "Ubiquiti"},
		{"printer-adm", "44:19:B6:12:34:56", TypePrinter, "Hikvision"},
		{"", "", TypeUnknown, ""},
	}
	for _, tc := range cases {
		got, vendor := InferType(tc.hostname, tc.mac)
		require.Equal(t, tc.want, got, "%s/%s", tc.hostname, tc.mac)
		require.Equal(t, tc.vendor, vendor)
	}
}

func TestRegister(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Device{IP: "999.1.1.1", MAC: "aa:bb:cc:dd:ee:ff"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, Device{IP: "10.0.0.2", MAC: "nope"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, Device{IP: "10.0.0.2", MAC: "aa:bb:cc:dd:ee:ff", Status: "broken"})
	require.ErrorIs(t, err, ErrInvalidInput)

	d, err := svc.Register(ctx, Device{IP: "10.0.0.2", MAC: "44-19-b6-00-00-01", Hostname: "gate", Status: "online"})
	require.NoError(t, err)
	require.Equal(t, "44:19:B6:00:00:01", d.MAC)
	require.Equal(t, TypeCamera, d.Type)
	require.Equal(t, "Hikvision", d.Vendor)
	require.NotNil(t, d.LastSeen)

	_, err = svc.Register(ctx, Device{IP: "10.0.0.3", MAC: "44:19:b6:00:00:01"})
	require.ErrorIs(t, err, ErrConflict)

	explicit, err := svc.Register(ctx, Device{IP: "10.0.0.4", MAC: "44:19:b6:00:00:02", Type: "printer"})
	require.NoError(t, err)
	require.Equal(t, TypePrinter, explicit.Type, "explicit type wins")
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, err := svc.Register(ctx, Device{IP: "10.0.0.2", MAC: "aa:bb:cc:dd:ee:ff"})
	require.NoError(t, err)
	require.Equal(t, StatusUnknown, d.Status)

	name, condo, status := "Portão", "c1", "online"
	up, err := svc.Update(ctx, d.ID, Update{CustomName: &name, CondominiumID: &condo, Status: &status})
	require.NoError(t, err)
	require.Equal(t, "Portão", up.DisplayName())
	require.Equal(t, StatusOnline, up.Status)
	require.NotNil(t, up.LastSeen)

	bad := "exploded"
	_, err = svc.Update(ctx, d.ID, Update{Status: &bad})
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, d.ID))
	require.ErrorIs(t, svc.Delete(ctx, d.ID), ErrNotFound)
	_, err = svc.Get(ctx, d.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFilters(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, d := range []Device{
		{IP: "10.0.0.10", MAC: "00:00:00:00:00:0a", Hostname: "cam-1", CondominiumID: "c1", Status: "online"},
		{IP: "10.0.0.9", MAC: "00:00:00:00:00:09", Hostname: "cam-2", CondominiumID: "c1", Status: "offline"},
		{IP: "10.0.0.2", MAC: "00:00:00:00:00:02", Hostname: "router", CondominiumID: "c2", Status: "online"},
	} {
		_, err := svc.Register(ctx, d)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.2", "10.0.0.9", "10.0.0.10"}, ips(all))

	c1, err := svc.List(ctx, Filter{CondominiumID: "c1", Status: StatusOnline})
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.10"}, ips(c1))

	cams, err := svc.List(ctx, Filter{Type: TypeCamera})
	require.NoError(t, err)
	require.Len(t, cams, 2)

	q, err := svc.List(ctx, Filter{Query: "ROUT"})
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.2"}, ips(q))
}

func TestImportUpsertsByMAC(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	name := "Câmera portaria"
	d, err := svc.Register(ctx, Device{IP: "10.0.0.2", MAC: "44:19:b6:00:00:01", CustomName: name, CondominiumID: "c1"})
	require.NoError(t, err)

	res, err := svc.Import(ctx, []Device{
		{IP: "10.0.0.20", MAC: "44-19-B6-00-00-01", Hostname: "ipc-gate", Status: "online"},
		{IP: "10.0.0.21", MAC: "aa:bb:cc:dd:ee:01", Hostname: "switch-core", Status: "online"},
		{IP: "bogus", MAC: "aa:bb:cc:dd:ee:02"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	require.Equal(t, 1, res.Updated)
	require.Len(t, res.Errors, 1)
	require.Equal(t, 2, res.Errors[0].Index)

	got, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.20", got.IP)
	require.Equal(t, name, got.CustomName)
	require.Equal(t, "c1", got.CondominiumID)
	require.Equal(t, StatusOnline, got.Status)

	all, err := svc.List(ctx, Filter{Type: TypeSwitch})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func ips(list []Device) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.IP
	}
	return out
}
