// Package dashboard aggregates per-condominium counters for the landing page.
package dashboard

import (
	"context"

	"github.com/upsolucions/up-control-access/internal/condo"
	"github.com/upsolucions/up-control-access/internal/devices"
	"github.com/upsolucions/up-control-access/internal/maintenance"
	"github.com/upsolucions/up-control-access/internal/reports"
)

// Counters summarises one condominium. The entry with an empty
// CondominiumID collects records not linked to any condominium.
type Counters struct {
	CondominiumID        string `json:"condominium_id"`
	Name                 string `json:"name"`
	DevicesOnline        int    `json:"devices_online"`
	DevicesOffline       int    `json:"devices_offline"`
	DevicesUnknown       int    `json:"devices_unknown"`
	OpenSecurityReports  int    `json:"open_security_reports"`
	OpenDefects          int    `json:"open_defects"`
	PendingWorkOrders    int    `json:"pending_work_orders"`
	InProgressWorkOrders int    `json:"in_progress_work_orders"`
	People               int    `json:"people"`
	Apartments           int    `json:"apartments"`
}

// Summary is the whole dashboard.
type Summary struct {
	Totals       Counters   `json:"totals"`
	Condominiums []Counters `json:"condominiums"`
}

type Service struct {
	condos  *condo.Service
	devices *devices.Service
	reports *reports.Service
	maint   *maintenance.Service
}

func NewService(c *condo.Service, d *devices.Service, r *reports.Service, m *maintenance.Service) *Service {
	return &Service{condos: c, devices: d, reports: r, maint: m}
}

// Summary computes counters. A non-empty scope limits the result to one condominium.
func (s *Service) Summary(ctx context.Context, scope string) (Summary, error) {
	list, err := s.condos.ListCondominiums(ctx, condo.Filter{Scope: scope})
	if err != nil {
		return Summary{}, err
	}
	byID := make(map[string]*Counters, len(list)+1)
	order := make([]string, 0, len(list)+1)
	get := func(id string) *Counters {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &Counters{CondominiumID: id}
		byID[id] = c
		order = append(order, id)
		return c
	}
	for _, c := range list {
		entry := get(c.ID)
		entry.Name = c.Name
		entry.Apartments = c.TotalApartments()
	}
	inScope := func(id string) bool { return scope == "" || id == scope }

	devs, err := s.devices.List(ctx, devices.Filter{CondominiumID: scope})
	if err != nil {
		return Summary{}, err
	}
	for _, d := range devs {
		c := get(d.CondominiumID)
		switch d.Status {
		case devices.StatusOnline:
			c.DevicesOnline++
		case devices.StatusOffline:
			c.DevicesOffline++
		default:
			c.DevicesUnknown++
		}
	}

	reps, err := s.reports.List(ctx, reports.Filter{CondominiumID: scope})
	if err != nil {
		return Summary{}, err
	}
	for _, r := range reps {
		if r.Status.Pending() && inScope(r.CondominiumID) {
			get(r.CondominiumID).OpenSecurityReports++
		}
	}

	defects, err := s.maint.ListDefects(ctx, maintenance.DefectFilter{CondominiumID: scope})
	if err != nil {
		return Summary{}, err
	}
	for _, d := range defects {
		if !d.Status.Done() {
			get(d.CondominiumID).OpenDefects++
		}
	}

	orders, err := s.maint.ListWorkOrders(ctx, maintenance.WorkOrderFilter{CondominiumID: scope})
	if err != nil {
		return Summary{}, err
	}
	for _, w := range orders {
		switch w.Status {
		case maintenance.OrderPending:
			get(w.CondominiumID).PendingWorkOrders++
		case maintenance.OrderInProgress:
			get(w.CondominiumID).InProgressWorkOrders++
		}
	}

	people, err := s.condos.ListPeople(ctx, condo.PeopleFilter{CondominiumID: scope})
	if err != nil {
		return Summary{}, err
	}
	for _, p := range people {
		get(p.CondominiumID).People++
	}

	out := Summary{Condominiums: make([]Counters, 0, len(order))}
	for _, id := range order {
		c := *byID[id]
		out.Condominiums = append(out.Condominiums, c)
		t := &out.Totals
		t.DevicesOnline += c.DevicesOnline
		t.DevicesOffline += c.DevicesOffline
		t.DevicesUnknown += c.DevicesUnknown
		t.OpenSecurityReports += c.OpenSecurityReports
		t.OpenDefects += c.OpenDefects
		t.PendingWorkOrders += c.PendingWorkOrders
		t.InProgressWorkOrders += c.InProgressWorkOrders
		t.People += c.People
		t.Apartments += c.Apartments
	}
	return out, nil
}
