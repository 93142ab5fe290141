package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/audit"
	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/condo"
)

func (a *API) handleListCondominiums(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermCondominiumsView) {
		return
	}
	f, err := condominiumFilter(r)
	if err != nil {
		writeFilterError(w, r, err)
		return
	}
	list, err := a.deps.Condos.ListCondominiums(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"condominiums": list})
}

func (a *API) handleCreateCondominium(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermCondominiumsManage) {
		return
	}
	if currentPrincipal(r).Scope() != "" {
		writeError(w, r, http.StatusForbidden, "only unscoped users can create condominiums")
		return
	}
	c := condo.Condominium{Active: true}
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.deps.Condos.CreateCondominium(r.Context(), c)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection": "condominiums",
		"id":         created.ID,
		"name":       created.Name,
	})
	w.Header().Set("Location", "/v1/condominiums/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetCondominium(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermCondominiumsView) {
		return
	}
	c, ok := a.scopedCondominiumRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleUpdateCondominium(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermCondominiumsManage) {
		return
	}
	cur, ok := a.scopedCondominiumRecord(w, r)
	if !ok {
		return
	}
	c := condo.Condominium{Active: cur.Active, Blocks: cur.Blocks}
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.deps.Condos.UpdateCondominium(r.Context(), cur.ID, c)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "condominiums",
		"id":         updated.ID,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteCondominium(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermCondominiumsManage) {
		return
	}
	if currentPrincipal(r).Scope() != "" {
		writeError(w, r, http.StatusForbidden, "only unscoped users can delete condominiums")
		return
	}
	id := mux.Vars(r)["id"]
	if err := a.deps.Condos.DeleteCondominium(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "condominiums",
		"id":         id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddBlock(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermCondominiumsManage) {
		return
	}
	cur, ok := a.scopedCondominiumRecord(w, r)
	if !ok {
		return
	}
	var b condo.Block
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.deps.Condos.AddBlock(r.Context(), cur.ID, b)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "condominiums",
		"id":         updated.ID,
		"block":      b.Name,
		"action":     "add_block",
	})
	writeJSON(w, http.StatusCreated, updated)
}

func (a *API) handleRemoveBlock(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermCondominiumsManage) {
		return
	}
	cur, ok := a.scopedCondominiumRecord(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	updated, err := a.deps.Condos.RemoveBlock(r.Context(), cur.ID, name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "condominiums",
		"id":         updated.ID,
		"block":      name,
		"action":     "remove_block",
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) scopedCondominiumRecord(w http.ResponseWriter, r *http.Request) (condo.Condominium, bool) {
	id := mux.Vars(r)["id"]
	if !currentPrincipal(r).CanAccessCondominium(id) {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return condo.Condominium{}, false
	}
	c, err := a.deps.Condos.GetCondominium(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return condo.Condominium{}, false
	}
	return c, true
}

func (a *API) handleListPeople(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermPeopleView) {
		return
	}
	f, err := peopleFilter(r)
	if err != nil {
		writeFilterError(w, r, err)
		return
	}
	list, err := a.deps.Condos.ListPeople(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": list})
}

func (a *API) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermPeopleManage) {
		return
	}
	var p condo.Person
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !assignCondominium(w, r, &p.CondominiumID) {
		return
	}
	if !a.condominiumExists(w, r, p.CondominiumID) {
		return
	}
	created, err := a.deps.Condos.CreatePerson(r.Context(), p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection":     "people",
		"id":             created.ID,
		"condominium_id": created.CondominiumID,
	})
	w.Header().Set("Location", "/v1/people/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermPeopleView) {
		return
	}
	p, err := a.deps.Condos.GetPerson(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !ensureCondominium(w, r, p.CondominiumID) {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermPeopleManage) {
		return
	}
	cur, err := a.deps.Condos.GetPerson(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !ensureCondominium(w, r, cur.CondominiumID) {
		return
	}
	p := condo.Person{CondominiumID: cur.CondominiumID}
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !assignCondominium(w, r, &p.CondominiumID) {
		return
	}
	if p.CondominiumID != cur.CondominiumID && !a.condominiumExists(w, r, p.CondominiumID) {
		return
	}
	updated, err := a.deps.Condos.UpdatePerson(r.Context(), cur.ID, p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "people",
		"id":         updated.ID,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermPeopleManage) {
		return
	}
	p, err := a.deps.Condos.GetPerson(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !ensureCondominium(w, r, p.CondominiumID) {
		return
	}
	if err := a.deps.Condos.DeletePerson(r.Context(), p.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "people",
		"id":         p.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// condominiumExists rejects references to unknown condominiums with 400.
func (a *API) condominiumExists(w http.ResponseWriter, r *http.Request, id string) bool {
	if id == "" {
		return true
	}
	if _, err := a.deps.Condos.GetCondominium(r.Context(), id); err != nil {
		if isAny(err, notFoundErrs) {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown condominium %q", id))
			return false
		}
		handleError(w, r, err)
		return false
	}
	return true
}
