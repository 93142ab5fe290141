package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/audit"
	"github.com/upsolucions/up-control-access/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Browser  string `json:"browser"`
}

type loginResponse struct {
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	SessionID   string       `json:"session_id"`
	User        userView     `json:"user"`
	Permissions []string     `json:"permissions"`
	Session     auth.Session `json:"session"`
}

type meResponse struct {
	User        userView     `json:"user"`
	Permissions []string     `json:"permissions"`
	Session     auth.Session `json:"session"`
}

// userView is a user without its password hash.
type userView struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Profile       auth.Profile `json:"profile"`
	CondominiumID string       `json:"condominium_id,omitempty"`
	Permissions   []string     `json:"permissions"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func viewUser(u auth.User) userView {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return userView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Profile:       u.Profile,
		CondominiumID: u.CondominiumID,
		Permissions:   perms,
		Active:        u.Active,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	browser := strings.TrimSpace(req.Browser)
	if browser == "" {
		browser = r.UserAgent()
	}
	res, err := a.deps.Auth.Login(r.Context(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		Browser:  browser,
		IP:       clientIP(r),
	})
	if err != nil {
		audit.Record(r.Context(), audit.EventLoginRejected, map[string]any{
			"email":  strings.ToLower(strings.TrimSpace(req.Email)),
			"ip":     clientIP(r),
			"reason": err.Error(),
		})
		handleError(w, r, err)
		return
	}
	p := res.Principal
	ctx := auth.ContextWithPrincipal(r.Context(), p)
	audit.Record(ctx, audit.EventLogin, map[string]any{
		"ip":      p.Session.IP,
		"browser": p.Session.Browser,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt,
		SessionID:   p.Session.ID,
		User:        viewUser(p.User),
		Permissions: p.Permissions,
		Session:     p.Session,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := currentPrincipal(r)
	if err := a.deps.Auth.Logout(r.Context(), p.Session.ID); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventLogout, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p := currentPrincipal(r)
	writeJSON(w, http.StatusOK, meResponse{
		User:        viewUser(p.User),
		Permissions: p.Permissions,
		Session:     p.Session,
	})
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermSessionsManage) {
		return
	}
	var (
		list []auth.Session
		err  error
	)
	if userID := queryString(r, "user_id"); userID != "" {
		list, err = a.deps.Auth.UserSessions(r.Context(), userID)
	} else {
		list, err = a.deps.Auth.ListSessions(r.Context())
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	if scope := currentPrincipal(r).Scope(); scope != "" {
		users, err := a.deps.Directory.ListUsers(r.Context(), auth.UserFilter{CondominiumID: scope})
		if err != nil {
			handleError(w, r, err)
			return
		}
		visible := make(map[string]bool, len(users))
		for _, u := range users {
			visible[u.ID] = true
		}
		filtered := list[:0]
		for _, s := range list {
			if visible[s.UserID] {
				filtered = append(filtered, s)
			}
		}
		list = filtered
	}
	if list == nil {
		list = []auth.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (a *API) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p := currentPrincipal(r)
	if id != p.Session.ID {
		if !a.ensurePermissions(w, r, auth.PermSessionsManage) {
			return
		}
		if !p.IsAdmin() {
			sess, err := a.deps.Auth.Session(r.Context(), id)
			if err != nil {
				handleError(w, r, err)
				return
			}
			owner, ok := a.scopedUser(w, r, sess.UserID)
			if !ok || !a.ensureProfileGrant(w, r, string(owner.Profile)) {
				return
			}
		}
	}
	if err := a.deps.Auth.RevokeSession(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventSessionRevoke, map[string]any{"revoked_session_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermSessionsManage) {
		return
	}
	user, ok := a.scopedUser(w, r, mux.Vars(r)["id"])
	if !ok || !a.ensureProfileGrant(w, r, string(user.Profile)) {
		return
	}
	n, err := a.deps.Auth.RevokeUserSessions(r.Context(), user.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	audit.Record(r.Context(), audit.EventSessionRevoke, map[string]any{
		"target_user_id": user.ID,
		"count":          n,
	})
	writeJSON(w, http.StatusOK, map[string]any{"revoked": n})
}
