package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/audit"
	"github.com/upsolucions/up-control-access/internal/auth"
)

type createUserRequest struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	Profile       string   `json:"profile"`
	CondominiumID string   `json:"condominium_id"`
	Permissions   []string `json:"permissions"`
	Active        *bool    `json:"active"`
}

type updateUserRequest struct {
	Name          *string   `json:"name"`
	Email         *string   `json:"email"`
	Password      *string   `json:"password"`
	Profile       *string   `json:"profile"`
	CondominiumID *string   `json:"condominium_id"`
	Permissions   *[]string `json:"permissions"`
	Active        *bool     `json:"active"`
}

type changePasswordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermUsersView) {
		return
	}
	f, err := userFilter(r)
	if err != nil {
		writeFilterError(w, r, err)
		return
	}
	list, err := a.deps.Directory.ListUsers(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, viewUser(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermUsersManage) {
		return
	}
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !a.ensureProfileGrant(w, r, req.Profile) || !a.ensurePermissionGrant(w, r, req.Permissions) {
		return
	}
	if !assignCondominium(w, r, &req.CondominiumID) {
		return
	}
	user, err := a.deps.Directory.CreateUser(r.Context(), auth.NewUserInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Profile:       req.Profile,
		CondominiumID: req.CondominiumID,
		Permissions:   req.Permissions,
		Active:        req.Active,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventCreate, map[string]any{
		"collection": "users",
		"id":         user.ID,
		"email":      user.Email,
		"profile":    string(user.Profile),
	})
	w.Header().Set("Location", "/v1/users/"+user.ID)
	writeJSON(w, http.StatusCreated, viewUser(user))
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != currentPrincipal(r).User.ID && !a.ensurePermissions(w, r, auth.PermUsersView) {
		return
	}
	user, ok := a.scopedUser(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewUser(user))
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermUsersManage) {
		return
	}
	user, ok := a.scopedUser(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !a.ensureProfileGrant(w, r, string(user.Profile)) {
		return
	}
	caller := currentPrincipal(r)
	if user.ID == caller.User.ID && !caller.IsAdmin() && (req.Profile != nil || req.Permissions != nil) {
		writeError(w, r, http.StatusForbidden, "cannot change your own profile or permissions")
		return
	}
	if req.Profile != nil && !a.ensureProfileGrant(w, r, *req.Profile) {
		return
	}
	if req.Permissions != nil && !a.ensurePermissionGrant(w, r, *req.Permissions) {
		return
	}
	if req.CondominiumID != nil && !assignCondominium(w, r, req.CondominiumID) {
		return
	}
	updated, err := a.deps.Directory.UpdateUser(r.Context(), user.ID, auth.UserUpdate{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Profile:       req.Profile,
		CondominiumID: req.CondominiumID,
		Permissions:   req.Permissions,
		Active:        req.Active,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "users",
		"id":         updated.ID,
		"active":     updated.Active,
	})
	writeJSON(w, http.StatusOK, viewUser(updated))
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermUsersManage) {
		return
	}
	user, ok := a.scopedUser(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if user.ID == currentPrincipal(r).User.ID {
		writeError(w, r, http.StatusConflict, "cannot delete your own user")
		return
	}
	if !a.ensureProfileGrant(w, r, string(user.Profile)) {
		return
	}
	if err := a.deps.Directory.DeleteUser(r.Context(), user.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventDelete, map[string]any{
		"collection": "users",
		"id":         user.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword lets a user replace their own password.
func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != currentPrincipal(r).User.ID {
		writeError(w, r, http.StatusForbidden, "only the account owner can change its password")
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err := a.deps.Directory.ChangePassword(r.Context(), id, req.Current, req.New)
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusForbidden, "current password is incorrect")
		return
	case err != nil:
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventUpdate, map[string]any{
		"collection": "users",
		"id":         id,
		"field":      "password",
	})
	w.WriteHeader(http.StatusNoContent)
}

// scopedUser loads a user the caller is allowed to see; others read as 404.
func (a *API) scopedUser(w http.ResponseWriter, r *http.Request, id string) (auth.User, bool) {
	user, err := a.deps.Directory.GetUser(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return auth.User{}, false
	}
	scope := currentPrincipal(r).Scope()
	if scope != "" && user.CondominiumID != scope {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return auth.User{}, false
	}
	return user, true
}

// ensureProfileGrant keeps non-admin managers from creating or editing admins.
func (a *API) ensureProfileGrant(w http.ResponseWriter, r *http.Request, profile string) bool {
	p, _ := auth.ParseProfile(profile)
	if p == auth.ProfileAdmin && !currentPrincipal(r).IsAdmin() {
		writeError(w, r, http.StatusForbidden, "only administrators can manage administrators")
		return false
	}
	return true
}

// ensurePermissionGrant rejects explicit permissions the caller does not hold.
// Unknown keys pass through so the directory reports them as invalid input.
func (a *API) ensurePermissionGrant(w http.ResponseWriter, r *http.Request, perms []string) bool {
	p := currentPrincipal(r)
	for _, k := range perms {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || !auth.KnownPermission(k) || p.HasPermission(k) {
			continue
		}
		writeError(w, r, http.StatusForbidden, "cannot grant permission "+k)
		return false
	}
	return true
}
