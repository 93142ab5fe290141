// Package app assembles the domain services over the local store and the
// optional remote database.
package app

import (
	"time"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/blob"
	"github.com/upsolucions/up-control-access/internal/condo"
	"github.com/upsolucions/up-control-access/internal/dashboard"
	"github.com/upsolucions/up-control-access/internal/devices"
	"github.com/upsolucions/up-control-access/internal/export"
	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/logos"
	"github.com/upsolucions/up-control-access/internal/maintenance"
	"github.com/upsolucions/up-control-access/internal/remote"
	"github.com/upsolucions/up-control-access/internal/reports"
	"github.com/upsolucions/up-control-access/internal/store/pg"
)

// Options tune the services. Zero values fall back to package defaults.
type Options struct {
	Secret           string
	TokenTTL         time.Duration
	IdleTimeout      time.Duration
	LogoMaxDimension int
	Blobs            blob.Store
	Clock            func() time.Time
}

// Services is the wired service graph.
type Services struct {
	Store       *localstore.Store
	Auth        *auth.Service
	Directory   *auth.Directory
	Condos      *condo.Service
	Devices     *devices.Service
	Reports     *reports.Service
	Maintenance *maintenance.Service
	Logos       *logos.Service
	Exports     *export.Service
	Dashboard   *dashboard.Service
}

// New wires every service. A nil db runs all tables local-only.
func New(store *localstore.Store, db *pg.Store, opts Options) (*Services, error) {
	users, err := mirror[auth.User](store, db, remote.TableUsers)
	if err != nil {
		return nil, err
	}
	sessions, err := mirror[auth.Session](store, db, remote.TableSessions)
	if err != nil {
		return nil, err
	}
	condos, err := mirror[condo.Condominium](store, db, remote.TableCondominiums)
	if err != nil {
		return nil, err
	}
	people, err := mirror[condo.Person](store, db, remote.TablePeople)
	if err != nil {
		return nil, err
	}
	logoRepo, err := mirror[logos.Logo](store, db, remote.TableLogos)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokens(opts.Secret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	var authOpts []auth.ServiceOption
	if opts.Clock != nil {
		authOpts = append(authOpts, auth.WithClock(opts.Clock))
	}
	if opts.IdleTimeout > 0 {
		authOpts = append(authOpts, auth.WithIdleTimeout(opts.IdleTimeout))
	}
	authSvc, err := auth.NewService(users, sessions, tokens, authOpts...)
	if err != nil {
		return nil, err
	}

	var logoOpts []logos.Option
	if opts.Blobs != nil {
		logoOpts = append(logoOpts, logos.WithBlobStore(opts.Blobs))
	}
	if opts.LogoMaxDimension > 0 {
		logoOpts = append(logoOpts, logos.WithMaxDimension(opts.LogoMaxDimension))
	}

	s := &Services{
		Store:     store,
		Auth:      authSvc,
		Directory: auth.NewDirectory(users, authSvc),
		Condos:    condo.NewService(condos, people),
		Devices:   devices.NewService(local[devices.Device](store, devices.Collection)),
		Reports:   reports.NewService(local[reports.SecurityReport](store, reports.Collection)),
		Maintenance: maintenance.NewService(
			local[maintenance.Defect](store, maintenance.DefectsCollection),
			local[maintenance.WorkOrder](store, maintenance.WorkOrdersCollection),
		),
		Logos:   logos.NewService(logoRepo, logoOpts...),
		Exports: export.NewService(localstore.NewCollection[export.Record](store, export.HistoryCollection)),
	}
	s.Dashboard = dashboard.NewService(s.Condos, s.Devices, s.Reports, s.Maintenance)
	return s, nil
}

// mirror binds a remote-backed table; without db it is local-only.
func mirror[T localstore.Record](store *localstore.Store, db *pg.Store, name string) (*remote.Mirror[T], error) {
	col := localstore.NewCollection[T](store, name)
	if db == nil {
		return remote.NewMirror[T](nil, col), nil
	}
	table, err := pg.NewTable[T](db, name)
	if err != nil {
		return nil, err
	}
	return remote.NewMirror[T](table, col), nil
}

// local binds a collection that only lives in the local store.
func local[T localstore.Record](store *localstore.Store, name string) *remote.Mirror[T] {
	return remote.NewMirror[T](nil, localstore.NewCollection[T](store, name))
}
