package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/audit"
	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/export"
)

// exportViewPermission is the list permission an export of each collection needs.
var exportViewPermission = map[string]string{
	export.Users:           auth.PermUsersView,
	export.Condominiums:    auth.PermCondominiumsView,
	export.People:          auth.PermPeopleView,
	export.Devices:         auth.PermDevicesView,
	export.SecurityReports: auth.PermReportsView,
	export.Defects:         auth.PermMaintenanceView,
	export.WorkOrders:      auth.PermMaintenanceView,
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]
	view, ok := exportViewPermission[collection]
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("unknown collection %q", collection))
		return
	}
	if !a.ensurePermissions(w, r, auth.PermExport, view) {
		return
	}
	table, err := a.exportTable(r, collection)
	var svc serviceErr
	switch {
	case errors.As(err, &svc):
		handleError(w, r, svc.err)
		return
	case err != nil:
		writeFilterError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := a.deps.Exports.Write(r.Context(), &buf, collection, table, currentPrincipal(r).User.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventExport, map[string]any{
		"collection": collection,
		"rows":       len(table.Rows),
	})
	name := fmt.Sprintf("%s-%s.csv", collection, time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// exportTable loads the collection with the list endpoint's filters. Service
// failures are wrapped in serviceErr; anything else is a bad query.
func (a *API) exportTable(r *http.Request, collection string) (export.Table, error) {
	ctx := r.Context()
	switch collection {
	case export.Users:
		f, err := userFilter(r)
		if err != nil {
			return export.Table{}, err
		}
		list, err := a.deps.Directory.ListUsers(ctx, f)
		if err != nil {
			return export.Table{}, serviceErr{err}
		}
		return export.UsersTable(list), nil
	case export.Condominiums:
		f, err := condominiumFilter(r)
		if err != nil {
			return export.Table{}, err
		}
		list, err := a.deps.Condos.ListCondominiums(ctx, f)
		if err != nil {
			return export.Table{}, serviceErr{err}
		}
		return export.CondominiumsTable(list), nil
	case export.People:
		f, err := peopleFilter(r)
		if err != nil {
			return export.Table{}, err
		}
		list, err := a.deps.Condos.ListPeople(ctx, f)
		if err != nil {
			return export.Table{}, serviceErr{err}
		}
		return export.PeopleTable(list), nil
	case export.Devices:
		f, err := deviceFilter(r)
		if err != nil {
			return export.Table{}, err
		}
		list, err := a.deps.Devices.List(ctx, f)
		if err != nil {
			return export.Table{}, serviceErr{err}
		}
		return export.DevicesTable(list), nil
	case export.SecurityReports:
		f, err := reportFilter(r)
		if err != nil {
			return export.Table{}, err
		}
		list, err := a.deps.Reports.List(ctx, f)
		if err != nil {
			return export.Table{}, serviceErr{err}
		}
		return export.SecurityReportsTable(list), nil
	case export.Defects:
		f, err := defectFilter(r)
		if err != nil {
			return export.Table{}, err
		}
		list, err := a.deps.Maintenance.ListDefects(ctx, f)
		if err != nil {
			return export.Table{}, serviceErr{err}
		}
		return export.DefectsTable(list), nil
	case export.WorkOrders:
		f, err := workOrderFilter(r)
		if err != nil {
			return export.Table{}, err
		}
		list, err := a.deps.Maintenance.ListWorkOrders(ctx, f)
		if err != nil {
			return export.Table{}, serviceErr{err}
		}
		return export.WorkOrdersTable(list), nil
	}
	return export.Table{}, fmt.Errorf("%w: %s", export.ErrUnknownCollection, collection)
}

// serviceErr marks a failure of the backing service rather than of the query.
type serviceErr struct{ err error }

func (e serviceErr) Error() string { return e.err.Error() }
func (e serviceErr) Unwrap() error { return e.err }

func (a *API) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermExport) {
		return
	}
	list, err := a.deps.Exports.History(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": list})
}
