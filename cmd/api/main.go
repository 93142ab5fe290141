package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/upsolucions/up-control-access/internal/app"
	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/blob"
	"github.com/upsolucions/up-control-access/internal/config"
	"github.com/upsolucions/up-control-access/internal/httpapi"
	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/migrate"
	"github.com/upsolucions/up-control-access/internal/obs"
	"github.com/upsolucions/up-control-access/internal/store/pg"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile     string
		autoMigrate bool
	)
	cmd := &cobra.Command{
		Use:          "up-control-access",
		Short:        "Condominium administration API",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, autoMigrate)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./condo.yaml or /etc/up-control-access/condo.yaml)")
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply remote schema migrations before serving")
	config.RegisterFlags(cmd)
	return cmd
}

func run(parent context.Context, cfg config.Config, autoMigrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	backend, err := localstore.OpenSQLite(ctx, cfg.Local.Path)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	store := localstore.New(backend, localstore.WithQuota(cfg.Local.QuotaBytes))
	defer store.Close()

	var (
		db    *pg.Store
		sqlDB *sql.DB
	)
	if cfg.Remote.DSN != "" {
		db, err = pg.Open(cfg.Remote.DSN)
		if err != nil {
			return fmt.Errorf("open remote database: %w", err)
		}
		defer db.Close()
		sqlDB = db.DB()
		if autoMigrate {
			if err := applyMigrations(ctx, sqlDB); err != nil {
				return err
			}
		}
	} else {
		obs.Warn("no remote database configured, running local-only")
	}

	opts := app.Options{
		Secret:           cfg.Auth.Secret,
		TokenTTL:         cfg.Auth.TokenTTL,
		IdleTimeout:      cfg.Auth.IdleTimeout,
		LogoMaxDimension: cfg.Logos.MaxDimension,
	}
	if cfg.S3.Bucket != "" {
		bucket, err := blob.NewS3(ctx, blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return err
		}
		opts.Blobs = bucket
	}

	proxies, err := cfg.HTTP.Proxies()
	if err != nil {
		return err
	}

	svc, err := app.New(store, db, opts)
	if err != nil {
		return err
	}

	if cfg.Auth.SeedFile != "" {
		users, err := auth.LoadSeed(cfg.Auth.SeedFile)
		if err != nil {
			return err
		}
		n, err := svc.Directory.Seed(ctx, users)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		obs.Info("seed applied", "created", n)
	}

	go svc.Auth.RunSweeper(ctx, cfg.Auth.SweepInterval)

	api := httpapi.New(httpapi.Deps{
		Auth:        svc.Auth,
		Directory:   svc.Directory,
		Condos:      svc.Condos,
		Devices:     svc.Devices,
		Reports:     svc.Reports,
		Maintenance: svc.Maintenance,
		Logos:       svc.Logos,
		Exports:     svc.Exports,
		Dashboard:   svc.Dashboard,
		Storage:     store,
	}, httpapi.ReadyProbe{Local: backend, DB: sqlDB}, version,
		httpapi.WithRateLimit(cfg.HTTP.RateBurst, int(cfg.HTTP.RateLimit)),
		httpapi.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		httpapi.WithTrustedProxies(proxies),
	)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting up-control-access %s on %s", version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("Stopped")
	return nil
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	mgr, err := migrate.NewManager(db, pg.Migrations)
	if err != nil {
		return err
	}
	if err := mgr.Up(ctx); err != nil {
		return err
	}
	v, err := mgr.Version(ctx)
	if err != nil {
		return err
	}
	obs.Info("remote schema ready", "version", v)
	return nil
}
