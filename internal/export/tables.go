package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/condo"
	"github.com/upsolucions/up-control-access/internal/devices"
	"github.com/upsolucions/up-control-access/internal/maintenance"
	"github.com/upsolucions/up-control-access/internal/reports"
)

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func tsPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return ts(*t)
}

func UsersTable(list []auth.User) Table {
	t := Table{Header: []string{"id", "name", "email", "profile", "condominium_id", "permissions", "active", "created_at"}}
	for _, u := range list {
		t.Rows = append(t.Rows, []string{
			u.ID, u.Name, u.Email, string(u.Profile), u.CondominiumID,
			strings.Join(u.Permissions, ";"), strconv.FormatBool(u.Active), ts(u.CreatedAt),
		})
	}
	return t
}

func CondominiumsTable(list []condo.Condominium) Table {
	t := Table{Header: []string{
		"id", "name", "cnpj", "street", "number", "complement", "district", "city", "state",
		"zip_code", "phone", "email", "manager_name", "blocks", "apartments", "active",
	}}
	for _, c := range list {
		t.Rows = append(t.Rows, []string{
			c.ID, c.Name, c.CNPJ, c.Street, c.Number, c.Complement, c.District, c.City, c.State,
			c.ZipCode, c.Phone, c.Email, c.ManagerName, strconv.Itoa(len(c.Blocks)),
			strconv.Itoa(c.TotalApartments()), strconv.FormatBool(c.Active),
		})
	}
	return t
}

func PeopleTable(list []condo.Person) Table {
	t := Table{Header: []string{"id", "condominium_id", "name", "document", "kind", "block", "apartment", "phone", "email"}}
	for _, p := range list {
		t.Rows = append(t.Rows, []string{
			p.ID, p.CondominiumID, p.Name, p.Document, string(p.Kind), p.Block, p.Apartment, p.Phone, p.Email,
		})
	}
	return t
}

func DevicesTable(list []devices.Device) Table {
	t := Table{Header: []string{"id", "name", "ip", "mac", "hostname", "type", "status", "vendor", "condominium_id", "last_seen"}}
	for _, d := range list {
		t.Rows = append(t.Rows, []string{
			d.ID, d.DisplayName(), d.IP, d.MAC, d.Hostname, string(d.Type), string(d.Status),
			d.Vendor, d.CondominiumID, tsPtr(d.LastSeen),
		})
	}
	return t
}

func SecurityReportsTable(list []reports.SecurityReport) Table {
	t := Table{Header: []string{
		"id", "condominium_id", "title", "category", "tags", "severity", "status",
		"location", "occurred_at", "created_by", "description",
	}}
	for _, r := range list {
		t.Rows = append(t.Rows, []string{
			r.ID, r.CondominiumID, r.Title, r.Category, strings.Join(r.Tags, ";"), string(r.Severity),
			string(r.Status), r.Location, ts(r.OccurredAt), r.CreatedBy, r.Description,
		})
	}
	return t
}

func DefectsTable(list []maintenance.Defect) Table {
	t := Table{Header: []string{
		"id", "condominium_id", "title", "category", "location", "priority", "status",
		"reported_by", "created_at", "resolved_at", "description",
	}}
	for _, d := range list {
		t.Rows = append(t.Rows, []string{
			d.ID, d.CondominiumID, d.Title, d.Category, d.Location, string(d.Priority), string(d.Status),
			d.ReportedBy, ts(d.CreatedAt), tsPtr(d.ResolvedAt), d.Description,
		})
	}
	return t
}

func WorkOrdersTable(list []maintenance.WorkOrder) Table {
	t := Table{Header: []string{
		"id", "condominium_id", "defect_id", "title", "priority", "status", "assigned_to",
		"due_date", "completed_at", "created_by", "created_at",
	}}
	for _, w := range list {
		t.Rows = append(t.Rows, []string{
			w.ID, w.CondominiumID, w.DefectID, w.Title, string(w.Priority), string(w.Status), w.AssignedTo,
			tsPtr(w.DueDate), tsPtr(w.CompletedAt), w.CreatedBy, ts(w.CreatedAt),
		})
	}
	return t
}
