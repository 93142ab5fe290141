package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/audit"
	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/maintenance"
	"github.com/upsolucions/up-control-access/internal/reports"
)

type updateReportRequest struct {
	Title       *string   `json:"title"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	Severity    *string   `json:"severity"`
	Status      *string   `json:"status"`
	Description *string   `json:"description"`
	Location    *string   `json:"location"`
}

type updateDefectRequest struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	Description *string `json:"description"`
}

type updateWorkOrderRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

// Security reports.

func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermReportsView) {
		return
	}
	f, err := reportFilter(r)
	if err != nil {
		writeFilterError(w, r, err)
		return
	}
	list, err := a.deps.Reports.List(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"security_reports": list})
}

func (a *API) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermReportsCreate) {
		return
	}
	var rep reports.SecurityReport
	if err := decodeJSON(r, &rep); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !assignCondominium(w, r, &rep.CondominiumID) {
		return
	}
	if !a.condominiumExists(w, r, rep.CondominiumID) {
		return
	}
	created, err := a.deps.Reports.Create(r.Context(), rep, currentPrincipal(r).User.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection": "security_reports",
		"id":         created.ID,
		"severity":   string(created.Severity),
	})
	w.Header().Set("Location", "/v1/security-reports/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermReportsView) {
		return
	}
	rep, ok := a.scopedReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermReportsManage) {
		return
	}
	cur, ok := a.scopedReport(w, r)
	if !ok {
		return
	}
	var req updateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.deps.Reports.Update(r.Context(), cur.ID, reports.Update{
		Title:       req.Title,
		Category:    req.Category,
		Tags:        req.Tags,
		Severity:    req.Severity,
		Status:      req.Status,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "security_reports",
		"id":         updated.ID,
		"status":     string(updated.Status),
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermReportsManage) {
		return
	}
	rep, ok := a.scopedReport(w, r)
	if !ok {
		return
	}
	if err := a.deps.Reports.Delete(r.Context(), rep.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "security_reports",
		"id":         rep.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) scopedReport(w http.ResponseWriter, r *http.Request) (reports.SecurityReport, bool) {
	rep, err := a.deps.Reports.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return reports.SecurityReport{}, false
	}
	if !ensureCondominium(w, r, rep.CondominiumID) {
		return reports.SecurityReport{}, false
	}
	return rep, true
}

// Defects.

func (a *API) handleListDefects(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceView) {
		return
	}
	f, err := defectFilter(r)
	if err != nil {
		writeFilterError(w, r, err)
		return
	}
	list, err := a.deps.Maintenance.ListDefects(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"defects": list})
}

func (a *API) handleCreateDefect(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceCreate) {
		return
	}
	var d maintenance.Defect
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !assignCondominium(w, r, &d.CondominiumID) {
		return
	}
	if !a.condominiumExists(w, r, d.CondominiumID) {
		return
	}
	created, err := a.deps.Maintenance.CreateDefect(r.Context(), d, currentPrincipal(r).User.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection": "defects",
		"id":         created.ID,
		"priority":   string(created.Priority),
	})
	w.Header().Set("Location", "/v1/defects/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetDefect(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceView) {
		return
	}
	d, ok := a.scopedDefect(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleUpdateDefect(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceManage) {
		return
	}
	cur, ok := a.scopedDefect(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var req updateDefectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.deps.Maintenance.UpdateDefect(r.Context(), cur.ID, maintenance.DefectUpdate{
		Title:       req.Title,
		Category:    req.Category,
		Location:    req.Location,
		Priority:    req.Priority,
		Status:      req.Status,
		Description: req.Description,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "defects",
		"id":         updated.ID,
		"status":     string(updated.Status),
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteDefect(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceManage) {
		return
	}
	d, ok := a.scopedDefect(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := a.deps.Maintenance.DeleteDefect(r.Context(), d.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "defects",
		"id":         d.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) scopedDefect(w http.ResponseWriter, r *http.Request, id string) (maintenance.Defect, bool) {
	d, err := a.deps.Maintenance.GetDefect(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return maintenance.Defect{}, false
	}
	if !ensureCondominium(w, r, d.CondominiumID) {
		return maintenance.Defect{}, false
	}
	return d, true
}

// Work orders.

func (a *API) handleListWorkOrders(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceView) {
		return
	}
	f, err := workOrderFilter(r)
	if err != nil {
		writeFilterError(w, r, err)
		return
	}
	list, err := a.deps.Maintenance.ListWorkOrders(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"work_orders": list})
}

func (a *API) handleCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceManage) {
		return
	}
	var wo maintenance.WorkOrder
	if err := decodeJSON(r, &wo); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if wo.DefectID != "" {
		d, ok := a.scopedDefect(w, r, wo.DefectID)
		if !ok {
			return
		}
		if wo.CondominiumID == "" {
			wo.CondominiumID = d.CondominiumID
		}
	}
	if !assignCondominium(w, r, &wo.CondominiumID) {
		return
	}
	if !a.condominiumExists(w, r, wo.CondominiumID) {
		return
	}
	created, err := a.deps.Maintenance.CreateWorkOrder(r.Context(), wo, currentPrincipal(r).User.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection": "work_orders",
		"id":         created.ID,
		"defect_id":  created.DefectID,
	})
	w.Header().Set("Location", "/v1/work-orders/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceView) {
		return
	}
	wo, ok := a.scopedWorkOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wo)
}

func (a *API) handleUpdateWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceManage) {
		return
	}
	cur, ok := a.scopedWorkOrder(w, r)
	if !ok {
		return
	}
	var req updateWorkOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.deps.Maintenance.UpdateWorkOrder(r.Context(), cur.ID, maintenance.WorkOrderUpdate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "work_orders",
		"id":         updated.ID,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleTransitionWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceManage) {
		return
	}
	cur, ok := a.scopedWorkOrder(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.deps.Maintenance.Transition(r.Context(), cur.ID, req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "work_orders",
		"id":         updated.ID,
		"from":       string(cur.Status),
		"to":         string(updated.Status),
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMaintenanceManage) {
		return
	}
	wo, ok := a.scopedWorkOrder(w, r)
	if !ok {
		return
	}
	if err := a.deps.Maintenance.DeleteWorkOrder(r.Context(), wo.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "work_orders",
		"id":         wo.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) scopedWorkOrder(w http.ResponseWriter, r *http.Request) (maintenance.WorkOrder, bool) {
	wo, err := a.deps.Maintenance.GetWorkOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return maintenance.WorkOrder{}, false
	}
	if !ensureCondominium(w, r, wo.CondominiumID) {
		return maintenance.WorkOrder{}, false
	}
	return wo, true
}
