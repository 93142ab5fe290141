// Package devices keeps the registry of network devices found in
// condominium networks.
package devices

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
	"github.com/upsolucions/up-control-access/internal/remote"
)

var (
	ErrNotFound     = errors.New("devices: not found")
	ErrInvalidInput = errors.New("devices: invalid input")
	ErrConflict     = errors.New("devices: duplicate mac")
)

// Collection is the local collection name for devices.
const Collection = "devices"

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

func parseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StatusUnknown, true
	case StatusOnline, StatusOffline, StatusUnknown:
		return st, true
	}
	return "", false
}

type Device struct {
	ID            string     `json:"id"`
	IP            string     `json:"ip"`
	MAC           string     `json:"mac"`
	Hostname      string     `json:"hostname"`
	Type          Type       `json:"type"`
	Status        Status     `json:"status"`
	CustomName    string     `json:"custom_name,omitempty"`
	CondominiumID string     `json:"condominium_id,omitempty"`
	Vendor        string     `json:"vendor,omitempty"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (d Device) RecordID() string      { return d.ID }
func (d Device) RecordTime() time.Time { return d.CreatedAt }

// DisplayName prefers the custom name over the hostname.
func (d Device) DisplayName() string {
	if d.CustomName != "" {
		return d.CustomName
	}
	if d.Hostname != "" {
		return d.Hostname
	}
	return d.IP
}

// Update carries optional changes; nil fields are left untouched.
type Update struct {
	CustomName    *string
	CondominiumID *string
	Status        *string
	Type          *string
}

// Filter narrows List.
type Filter struct {
	CondominiumID string
	Status        Status
	Type          Type
	Query         string
}

type Service struct {
	repo remote.Repo[Device]
	now  func() time.Time
}

func NewService(repo remote.Repo[Device]) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register validates d, infers its type when not given and stores it.
func (s *Service) Register(ctx context.Context, d Device) (Device, error) {
	if err := s.normalize(&d); err != nil {
		return Device{}, err
	}
	existing, err := s.findByMAC(ctx, d.MAC)
	if err != nil {
		return Device{}, err
	}
	if existing != nil {
		return Device{}, fmt.Errorf("%w: %s", ErrConflict, d.MAC)
	}
	now := s.now().UTC()
	d.ID = ids.New()
	d.CreatedAt, d.UpdatedAt = now, now
	if d.Status == StatusOnline && d.LastSeen == nil {
		d.LastSeen = &now
	}
	if err := s.repo.Put(ctx, d); err != nil {
		return Device{}, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (Device, error) {
	d, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if remote.IsNotFound(err) {
			return Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Device{}, err
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, id string, upd Update) (Device, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return Device{}, err
	}
	if upd.CustomName != nil {
		d.CustomName = strings.TrimSpace(*upd.CustomName)
	}
	if upd.CondominiumID != nil {
		d.CondominiumID = strings.TrimSpace(*upd.CondominiumID)
	}
	now := s.now().UTC()
	if upd.Status != nil {
		st, ok := parseStatus(*upd.Status)
		if !ok {
			return Device{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
		}
		d.Status = st
		if st == StatusOnline {
			d.LastSeen = &now
		}
	}
	if upd.Type != nil {
		t, ok := ParseType(*upd.Type)
		if !ok {
			return Device{}, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, *upd.Type)
		}
		if t == TypeUnknown {
			t, _ = InferType(d.Hostname, d.MAC)
		}
		d.Type = t
	}
	d.UpdatedAt = now
	if err := s.repo.Put(ctx, d); err != nil {
		return Device{}, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if remote.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// List returns devices matching f, ordered by IP address.
func (s *Service) List(ctx context.Context, f Filter) ([]Device, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Device, 0, len(all))
	for _, d := range all {
		if f.CondominiumID != "" && d.CondominiumID != f.CondominiumID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		if q != "" && !matches(q, d) {
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, compareIP)
	return out, nil
}

// ImportError describes one rejected entry of a bulk import.
type ImportError struct {
	Index  int    `json:"index"`
	MAC    string `json:"mac,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Errors  []ImportError `json:"errors,omitempty"`
}

// Import upserts scan results by MAC. Known devices get fresh network data
// while keeping operator-set fields unless the entry sets them.
func (s *Service) Import(ctx context.Context, scanned []Device) (ImportResult, error) {
	var res ImportResult
	for i, d := range scanned {
		if err := s.normalize(&d); err != nil {
			res.Errors = append(res.Errors, ImportError{Index: i, MAC: d.MAC, Reason: err.Error()})
			continue
		}
		existing, err := s.findByMAC(ctx, d.MAC)
		if err != nil {
			return res, err
		}
		now := s.now().UTC()
		if d.Status == StatusOnline && d.LastSeen == nil {
			d.LastSeen = &now
		}
		if existing == nil {
			d.ID = ids.New()
			d.CreatedAt, d.UpdatedAt = now, now
			if err := s.repo.Put(ctx, d); err != nil {
				return res, err
			}
			res.Created++
			continue
		}
		merged := *existing
		merged.IP, merged.Hostname, merged.Status = d.IP, d.Hostname, d.Status
		merged.Type = d.Type
		if d.Vendor != "" {
			merged.Vendor = d.Vendor
		}
		if d.LastSeen != nil {
			merged.LastSeen = d.LastSeen
		}
		if d.CustomName != "" {
			merged.CustomName = d.CustomName
		}
		if d.CondominiumID != "" {
			merged.CondominiumID = d.CondominiumID
		}
		merged.UpdatedAt = now
		if err := s.repo.Put(ctx, merged); err != nil {
			return res, err
		}
		res.Updated++
	}
	return res, nil
}

func (s *Service) normalize(d *Device) error {
	ip := strings.TrimSpace(d.IP)
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("%w: invalid ip %q", ErrInvalidInput, d.IP)
	}
	d.IP = addr.String()
	mac, err := NormalizeMAC(d.MAC)
	if err != nil {
		return err
	}
	d.MAC = mac
	d.Hostname = strings.TrimSpace(d.Hostname)
	d.CustomName = strings.TrimSpace(d.CustomName)
	d.CondominiumID = strings.TrimSpace(d.CondominiumID)
	st, ok := parseStatus(string(d.Status))
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, d.Status)
	}
	d.Status = st
	t, ok := ParseType(string(d.Type))
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, d.Type)
	}
	inferred, vendor := InferType(d.Hostname, d.MAC)
	if t == TypeUnknown {
		t = inferred
	}
	d.Type = t
	if d.Vendor == "" {
		d.Vendor = vendor
	}
	return nil
}

func (s *Service) findByMAC(ctx context.Context, mac string) (*Device, error) {
	list, err := s.repo.Find(ctx, "mac", mac, func(d Device) bool { return d.MAC == mac })
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].MAC == mac {
			return &list[i], nil
		}
	}
	return nil, nil
}

func matches(q string, d Device) bool {
	for _, f := range []string{d.IP, d.MAC, d.Hostname, d.CustomName, d.Vendor} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func compareIP(a, b Device) int {
	ia, errA := netip.ParseAddr(a.IP)
	ib, errB := netip.ParseAddr(b.IP)
	if errA != nil || errB != nil {
		return strings.Compare(a.IP, b.IP)
	}
	return ia.Compare(ib)
}
