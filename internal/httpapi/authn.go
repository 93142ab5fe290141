package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/upsolucions/up-control-access/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth resolves the bearer token into a principal for every route of
// the protected subrouter.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="up-control-access"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				w.Header().Set("WWW-Authenticate", `Bearer realm="up-control-access", error="invalid_token"`)
				writeError(w, r, http.StatusUnauthorized, "invalid or expired session")
			default:
				handleError(w, r, err)
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensurePermissions writes 403 and returns false unless every key is granted.
func (a *API) ensurePermissions(w http.ResponseWriter, r *http.Request, keys ...string) bool {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if !p.HasAll(keys...) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

// ensureCondominium writes 404 and returns false when the record belongs
// to a condominium outside the caller's scope.
func ensureCondominium(w http.ResponseWriter, r *http.Request, condominiumID string) bool {
	if currentPrincipal(r).CanAccessCondominium(condominiumID) {
		return true
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
	return false
}

// scopedCondominium resolves the condominium filter for a list request.
// Scoped callers may only ask for their own condominium.
func scopedCondominium(r *http.Request, requested string) (string, bool) {
	scope := currentPrincipal(r).Scope()
	if scope == "" {
		return requested, true
	}
	if requested != "" && requested != scope {
		return "", false
	}
	return scope, true
}

// assignCondominium fills or checks the condominium of a record being
// written by a scoped caller.
func assignCondominium(w http.ResponseWriter, r *http.Request, id *string) bool {
	scope := currentPrincipal(r).Scope()
	if scope == "" {
		return true
	}
	if *id == "" {
		*id = scope
		return true
	}
	if *id != scope {
		writeError(w, r, http.StatusForbidden, "condominium outside of your scope")
		return false
	}
	return true
}

func currentPrincipal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
