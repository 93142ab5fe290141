package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/audit"
	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/devices"
)

type updateDeviceRequest struct {
	CustomName    *string `json:"custom_name"`
	CondominiumID *string `json:"condominium_id"`
	Status        *string `json:"status"`
	Type          *string `json:"type"`
}

type importDevicesRequest struct {
	Devices []devices.Device `json:"devices"`
}

func (a *API) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermDevicesView) {
		return
	}
	f, err := deviceFilter(r)
	if err != nil {
		writeFilterError(w, r, err)
		return
	}
	list, err := a.deps.Devices.List(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": list})
}

func (a *API) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermDevicesManage) {
		return
	}
	var d devices.Device
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !assignCondominium(w, r, &d.CondominiumID) {
		return
	}
	created, err := a.deps.Devices.Register(r.Context(), d)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection": "devices",
		"id":         created.ID,
		"mac":        created.MAC,
		"type":       string(created.Type),
	})
	w.Header().Set("Location", "/v1/devices/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleImportDevices(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermDevicesManage) {
		return
	}
	var req importDevicesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Devices) == 0 {
		writeError(w, r, http.StatusBadRequest, "devices are required")
		return
	}
	for i := range req.Devices {
		if !assignCondominium(w, r, &req.Devices[i].CondominiumID) {
			return
		}
	}
	res, err := a.deps.Devices.Import(r.Context(), req.Devices)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventImport, map[string]any{
		"collection": "devices",
		"created":    res.Created,
		"updated":    res.Updated,
		"errors":     len(res.Errors),
	})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermDevicesView) {
		return
	}
	d, ok := a.scopedDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermDevicesManage) {
		return
	}
	cur, ok := a.scopedDevice(w, r)
	if !ok {
		return
	}
	var req updateDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.CondominiumID != nil && !assignCondominium(w, r, req.CondominiumID) {
		return
	}
	updated, err := a.deps.Devices.Update(r.Context(), cur.ID, devices.Update{
		CustomName:    req.CustomName,
		CondominiumID: req.CondominiumID,
		Status:        req.Status,
		Type:          req.Type,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "devices",
		"id":         updated.ID,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermDevicesManage) {
		return
	}
	d, ok := a.scopedDevice(w, r)
	if !ok {
		return
	}
	if err := a.deps.Devices.Delete(r.Context(), d.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "devices",
		"id":         d.ID,
		"mac":        d.MAC,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) scopedDevice(w http.ResponseWriter, r *http.Request) (devices.Device, bool) {
	d, err := a.deps.Devices.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return devices.Device{}, false
	}
	if !ensureCondominium(w, r, d.CondominiumID) {
		return devices.Device{}, false
	}
	return d, true
}
