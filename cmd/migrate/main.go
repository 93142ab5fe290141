package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/upsolucions/up-control-access/internal/config"
	"github.com/upsolucions/up-control-access/internal/migrate"
	"github.com/upsolucions/up-control-access/internal/store/pg"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		timeout time.Duration
	)
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the remote PostgreSQL schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./condo.yaml)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	root.PersistentFlags().String("pg-dsn", "", "PostgreSQL DSN (CONDO_REMOTE_DSN)")

	withManager := func(fn func(context.Context, *migrate.Manager) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return err
			}
			if cfg.Remote.DSN == "" {
				return errors.New("missing DSN: provide --pg-dsn or CONDO_REMOTE_DSN")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := pg.Open(cfg.Remote.DSN)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			mgr, err := migrate.NewManager(db.DB(), pg.Migrations)
			if err != nil {
				return err
			}
			return fn(ctx, mgr)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withManager(func(ctx context.Context, m *migrate.Manager) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withManager(func(ctx context.Context, m *migrate.Manager) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withManager(func(ctx context.Context, m *migrate.Manager) error {
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			}),
		},
	)
	return root
}
