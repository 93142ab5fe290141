// Package httpapi exposes the condominium services over REST under /v1.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/condo"
	"github.com/upsolucions/up-control-access/internal/dashboard"
	"github.com/upsolucions/up-control-access/internal/devices"
	"github.com/upsolucions/up-control-access/internal/export"
	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/logos"
	"github.com/upsolucions/up-control-access/internal/maintenance"
	"github.com/upsolucions/up-control-access/internal/obs"
	"github.com/upsolucions/up-control-access/internal/reports"
)

// ReadyProbe checks the local store and, when configured, the remote database.
type ReadyProbe struct {
	Local interface{ Ping(context.Context) error }
	DB    *sql.DB
}

// Check fails only when the local store is unreachable; a remote outage is
// reported separately because reads and writes fall back to the local copy.
func (rp ReadyProbe) Check(ctx context.Context) (remoteOK bool, err error) {
	if rp.Local != nil {
		if err := rp.Local.Ping(ctx); err != nil {
			return false, err
		}
	}
	if rp.DB == nil {
		return true, nil
	}
	return rp.DB.PingContext(ctx) == nil, nil
}

// Deps are the services behind the routes.
type Deps struct {
	Auth        *auth.Service
	Directory   *auth.Directory
	Condos      *condo.Service
	Devices     *devices.Service
	Reports     *reports.Service
	Maintenance *maintenance.Service
	Logos       *logos.Service
	Exports     *export.Service
	Dashboard   *dashboard.Service
	Storage     *localstore.Store
}

// API is the HTTP layer.
type API struct {
	router      *mux.Router
	deps        Deps
	readyProbe  ReadyProbe
	version     string
	rateBurst   int
	ratePerSec  int
	maxBody     int64
	corsOrigins []string
	proxies     []netip.Prefix
}

// Option tunes the middleware chain.
type Option func(*API)

// WithRateLimit sets the per-IP token bucket; zero disables limiting.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSec = perSecond
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) { a.maxBody = n }
}

// WithTrustedProxies lists the reverse proxies whose X-Forwarded-For is believed.
func WithTrustedProxies(proxies []netip.Prefix) Option {
	return func(a *API) { a.proxies = proxies }
}

// WithCORSOrigins lists the browser origins allowed besides localhost.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.corsOrigins = origins }
}

func New(deps Deps, rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		router:     mux.NewRouter(),
		deps:       deps,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
		maxBody:    8 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/info", a.Info).Methods(http.MethodGet)
	v1.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)

	p := v1.NewRoute().Subrouter()
	p.Use(a.withAuth)

	p.HandleFunc("/auth/logout", a.handleLogout).Methods(http.MethodPost)
	p.HandleFunc("/auth/me", a.handleMe).Methods(http.MethodGet)
	p.HandleFunc("/sessions", a.handleListSessions).Methods(http.MethodGet)
	p.HandleFunc("/sessions/{id}", a.handleRevokeSession).Methods(http.MethodDelete)

	p.HandleFunc("/users", a.handleListUsers).Methods(http.MethodGet)
	p.HandleFunc("/users", a.handleCreateUser).Methods(http.MethodPost)
	p.HandleFunc("/users/{id}", a.handleGetUser).Methods(http.MethodGet)
	p.HandleFunc("/users/{id}", a.handleUpdateUser).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/users/{id}", a.handleDeleteUser).Methods(http.MethodDelete)
	p.HandleFunc("/users/{id}/password", a.handleChangePassword).Methods(http.MethodPost)
	p.HandleFunc("/users/{id}/sessions", a.handleRevokeUserSessions).Methods(http.MethodDelete)

	p.HandleFunc("/condominiums", a.handleListCondominiums).Methods(http.MethodGet)
	p.HandleFunc("/condominiums", a.handleCreateCondominium).Methods(http.MethodPost)
	p.HandleFunc("/condominiums/{id}", a.handleGetCondominium).Methods(http.MethodGet)
	p.HandleFunc("/condominiums/{id}", a.handleUpdateCondominium).Methods(http.MethodPut)
	p.HandleFunc("/condominiums/{id}", a.handleDeleteCondominium).Methods(http.MethodDelete)
	p.HandleFunc("/condominiums/{id}/blocks", a.handleAddBlock).Methods(http.MethodPost)
	p.HandleFunc("/condominiums/{id}/blocks/{name}", a.handleRemoveBlock).Methods(http.MethodDelete)

	p.HandleFunc("/people", a.handleListPeople).Methods(http.MethodGet)
	p.HandleFunc("/people", a.handleCreatePerson).Methods(http.MethodPost)
	p.HandleFunc("/people/{id}", a.handleGetPerson).Methods(http.MethodGet)
	p.HandleFunc("/people/{id}", a.handleUpdatePerson).Methods(http.MethodPut)
	p.HandleFunc("/people/{id}", a.handleDeletePerson).Methods(http.MethodDelete)

	p.HandleFunc("/devices", a.handleListDevices).Methods(http.MethodGet)
	p.HandleFunc("/devices", a.handleRegisterDevice).Methods(http.MethodPost)
	p.HandleFunc("/devices/import", a.handleImportDevices).Methods(http.MethodPost)
	p.HandleFunc("/devices/{id}", a.handleGetDevice).Methods(http.MethodGet)
	p.HandleFunc("/devices/{id}", a.handleUpdateDevice).Methods(http.MethodPatch)
	p.HandleFunc("/devices/{id}", a.handleDeleteDevice).Methods(http.MethodDelete)

	p.HandleFunc("/security-reports", a.handleListReports).Methods(http.MethodGet)
	p.HandleFunc("/security-reports", a.handleCreateReport).Methods(http.MethodPost)
	p.HandleFunc("/security-reports/{id}", a.handleGetReport).Methods(http.MethodGet)
	p.HandleFunc("/security-reports/{id}", a.handleUpdateReport).Methods(http.MethodPatch)
	p.HandleFunc("/security-reports/{id}", a.handleDeleteReport).Methods(http.MethodDelete)

	p.HandleFunc("/defects", a.handleListDefects).Methods(http.MethodGet)
	p.HandleFunc("/defects", a.handleCreateDefect).Methods(http.MethodPost)
	p.HandleFunc("/defects/{id}", a.handleGetDefect).Methods(http.MethodGet)
	p.HandleFunc("/defects/{id}", a.handleUpdateDefect).Methods(http.MethodPatch)
	p.HandleFunc("/defects/{id}", a.handleDeleteDefect).Methods(http.MethodDelete)

	p.HandleFunc("/work-orders", a.handleListWorkOrders).Methods(http.MethodGet)
	p.HandleFunc("/work-orders", a.handleCreateWorkOrder).Methods(http.MethodPost)
	p.HandleFunc("/work-orders/{id}", a.handleGetWorkOrder).Methods(http.MethodGet)
	p.HandleFunc("/work-orders/{id}", a.handleUpdateWorkOrder).Methods(http.MethodPatch)
	p.HandleFunc("/work-orders/{id}", a.handleDeleteWorkOrder).Methods(http.MethodDelete)
	p.HandleFunc("/work-orders/{id}/status", a.handleTransitionWorkOrder).Methods(http.MethodPost)

	p.HandleFunc("/logos", a.handleListLogos).Methods(http.MethodGet)
	p.HandleFunc("/logos", a.handleUploadLogo).Methods(http.MethodPost)
	p.HandleFunc("/logos/active/{type}", a.handleActiveLogo).Methods(http.MethodGet)
	p.HandleFunc("/logos/{id}", a.handleGetLogo).Methods(http.MethodGet)
	p.HandleFunc("/logos/{id}", a.handleDeleteLogo).Methods(http.MethodDelete)
	p.HandleFunc("/logos/{id}/activate", a.handleActivateLogo).Methods(http.MethodPost)
	p.HandleFunc("/logos/{id}/image", a.handleLogoImage).Methods(http.MethodGet)

	p.HandleFunc("/exports", a.handleExportHistory).Methods(http.MethodGet)
	p.HandleFunc("/exports/{collection}.csv", a.handleExport).Methods(http.MethodGet)

	p.HandleFunc("/dashboard", a.handleDashboard).Methods(http.MethodGet)
	p.HandleFunc("/storage", a.handleStorage).Methods(http.MethodGet)
}

// Handler returns the router wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = TrustedProxies(h, a.proxies)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "up-control-access",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	remoteOK, err := a.readyProbe.Check(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	remote := "ok"
	switch {
	case a.readyProbe.DB == nil:
		remote = "disabled"
	case !remoteOK:
		remote = "unavailable"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"remote": remote,
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "up-control-access",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopedCondominium(r, queryString(r, "condominium_id"))
	if !ok {
		writeError(w, r, http.StatusForbidden, "condominium outside of your scope")
		return
	}
	sum, err := a.deps.Dashboard.Summary(r.Context(), scope)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) handleStorage(w http.ResponseWriter, r *http.Request) {
	if !currentPrincipal(r).IsAdmin() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	usage, err := a.deps.Storage.Usage(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
