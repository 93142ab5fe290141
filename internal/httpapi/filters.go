package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/condo"
	"github.com/upsolucions/up-control-access/internal/devices"
	"github.com/upsolucions/up-control-access/internal/maintenance"
	"github.com/upsolucions/up-control-access/internal/reports"
)

// Query-string filters shared by the list and export endpoints.

var errOutOfScope = errors.New("condominium outside of your scope")

func writeFilterError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errOutOfScope) {
		writeError(w, r, http.StatusForbidden, err.Error())
		return
	}
	writeError(w, r, http.StatusBadRequest, err.Error())
}

func condominiumParam(r *http.Request) (string, error) {
	id, ok := scopedCondominium(r, queryString(r, "condominium_id"))
	if !ok {
		return "", errOutOfScope
	}
	return id, nil
}

func userFilter(r *http.Request) (auth.UserFilter, error) {
	condoID, err := condominiumParam(r)
	if err != nil {
		return auth.UserFilter{}, err
	}
	active, err := queryBool(r, "active")
	if err != nil {
		return auth.UserFilter{}, err
	}
	f := auth.UserFilter{CondominiumID: condoID, Active: active, Query: queryString(r, "q")}
	if raw := queryString(r, "profile"); raw != "" {
		profile, ok := auth.ParseProfile(raw)
		if !ok {
			return auth.UserFilter{}, fmt.Errorf("unknown profile %q", raw)
		}
		f.Profile = profile
	}
	return f, nil
}

func condominiumFilter(r *http.Request) (condo.Filter, error) {
	active, err := queryBool(r, "active")
	if err != nil {
		return condo.Filter{}, err
	}
	return condo.Filter{
		Query:  queryString(r, "q"),
		Active: active,
		Scope:  currentPrincipal(r).Scope(),
	}, nil
}

func peopleFilter(r *http.Request) (condo.PeopleFilter, error) {
	condoID, err := condominiumParam(r)
	if err != nil {
		return condo.PeopleFilter{}, err
	}
	return condo.PeopleFilter{
		CondominiumID: condoID,
		Kind:          condo.PersonKind(queryString(r, "kind")),
		Query:         queryString(r, "q"),
	}, nil
}

func deviceFilter(r *http.Request) (devices.Filter, error) {
	condoID, err := condominiumParam(r)
	if err != nil {
		return devices.Filter{}, err
	}
	f := devices.Filter{
		CondominiumID: condoID,
		Status:        devices.Status(queryString(r, "status")),
		Query:         queryString(r, "q"),
	}
	if raw := queryString(r, "type"); raw != "" {
		typ, ok := devices.ParseType(raw)
		if !ok {
			return devices.Filter{}, fmt.Errorf("unknown device type %q", raw)
		}
		f.Type = typ
	}
	return f, nil
}

func reportFilter(r *http.Request) (reports.Filter, error) {
	condoID, err := condominiumParam(r)
	if err != nil {
		return reports.Filter{}, err
	}
	from, to, err := queryRange(r)
	if err != nil {
		return reports.Filter{}, err
	}
	f := reports.Filter{
		CondominiumID: condoID,
		Category:      queryString(r, "category"),
		From:          from,
		To:            to,
		Query:         queryString(r, "q"),
	}
	if raw := queryString(r, "severity"); raw != "" {
		sev, ok := reports.ParseSeverity(raw)
		if !ok {
			return reports.Filter{}, fmt.Errorf("unknown severity %q", raw)
		}
		f.Severity = sev
	}
	if raw := queryString(r, "status"); raw != "" {
		st, ok := reports.ParseStatus(raw)
		if !ok {
			return reports.Filter{}, fmt.Errorf("unknown status %q", raw)
		}
		f.Status = st
	}
	return f, nil
}

func defectFilter(r *http.Request) (maintenance.DefectFilter, error) {
	condoID, err := condominiumParam(r)
	if err != nil {
		return maintenance.DefectFilter{}, err
	}
	from, to, err := queryRange(r)
	if err != nil {
		return maintenance.DefectFilter{}, err
	}
	f := maintenance.DefectFilter{
		CondominiumID: condoID,
		Category:      queryString(r, "category"),
		From:          from,
		To:            to,
		Query:         queryString(r, "q"),
	}
	if raw := queryString(r, "priority"); raw != "" {
		p, ok := maintenance.ParsePriority(raw)
		if !ok {
			return maintenance.DefectFilter{}, fmt.Errorf("unknown priority %q", raw)
		}
		f.Priority = p
	}
	if raw := queryString(r, "status"); raw != "" {
		st, ok := maintenance.ParseDefectStatus(raw)
		if !ok {
			return maintenance.DefectFilter{}, fmt.Errorf("unknown status %q", raw)
		}
		f.Status = st
	}
	return f, nil
}

func workOrderFilter(r *http.Request) (maintenance.WorkOrderFilter, error) {
	condoID, err := condominiumParam(r)
	if err != nil {
		return maintenance.WorkOrderFilter{}, err
	}
	f := maintenance.WorkOrderFilter{
		CondominiumID: condoID,
		DefectID:      queryString(r, "defect_id"),
		AssignedTo:    queryString(r, "assigned_to"),
		Query:         queryString(r, "q"),
	}
	if raw := queryString(r, "priority"); raw != "" {
		p, ok := maintenance.ParsePriority(raw)
		if !ok {
			return maintenance.WorkOrderFilter{}, fmt.Errorf("unknown priority %q", raw)
		}
		f.Priority = p
	}
	if raw := queryString(r, "status"); raw != "" {
		st, ok := maintenance.ParseOrderStatus(raw)
		if !ok {
			return maintenance.WorkOrderFilter{}, fmt.Errorf("unknown status %q", raw)
		}
		f.Status = st
	}
	return f, nil
}
