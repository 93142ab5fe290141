package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/audit"
	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/logos"
)

type uploadLogoRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Data     string `json:"data"`
	Activate bool   `json:"activate"`
}

// handleListLogos omits the inline image data; fetch it through /image.
func (a *API) handleListLogos(w http.ResponseWriter, r *http.Request) {
	var typ logos.Type
	if raw := queryString(r, "type"); raw != "" {
		t, ok := logos.ParseType(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown logo type %q", raw))
			return
		}
		typ = t
	}
	list, err := a.deps.Logos.List(r.Context(), typ)
	if err != nil {
		handleError(w, r, err)
		return
	}
	for i := range list {
		list[i].Data = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"logos": list})
}

func (a *API) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermLogosManage) {
		return
	}
	var req uploadLogoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.deps.Logos.Upload(r.Context(), logos.UploadInput{
		Name:     req.Name,
		Type:     req.Type,
		Data:     req.Data,
		Activate: req.Activate,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection": "logos",
		"id":         l.ID,
		"type":       string(l.Type),
		"bytes":      l.SizeBytes,
		"active":     l.Active,
	})
	w.Header().Set("Location", "/v1/logos/"+l.ID)
	writeJSON(w, http.StatusCreated, l)
}

func (a *API) handleGetLogo(w http.ResponseWriter, r *http.Request) {
	l, err := a.deps.Logos.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleActiveLogo(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["type"]
	typ, ok := logos.ParseType(raw)
	if !ok {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown logo type %q", raw))
		return
	}
	l, err := a.deps.Logos.Active(r.Context(), typ)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleActivateLogo(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermLogosManage) {
		return
	}
	l, err := a.deps.Logos.Activate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventLogoActivate, map[string]any{
		"id":   l.ID,
		"type": string(l.Type),
	})
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermLogosManage) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := a.deps.Logos.Delete(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "logos",
		"id":         id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLogoImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := a.deps.Logos.Image(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
