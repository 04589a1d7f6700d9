package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/ledger"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/seed"
	"storefront/migrations"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Administrative commands for the storefront database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd(), newStatusCmd(), newSeedCmd())
	return root
}

// env is the configuration, logger and database a command runs against
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  database.Service
}

func openEnv() (*env, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.New(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	_ = e.db.Close()
	_ = e.log.Sync()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			return database.RunMigrations(cmd.Context(), e.db.DB(), migrations.FS, e.log)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			statuses, err := database.MigrationStatus(cmd.Context(), e.db.DB(), migrations.FS)
			if err != nil {
				return err
			}
			printMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
}

func printMigrationStatus(out io.Writer, statuses []*goose.MigrationStatus) {
	fmt.Fprintf(out, "%-8s %-10s %-20s %s\n", "VERSION", "STATE", "APPLIED AT", "FILE")
	for _, st := range statuses {
		applied := "-"
		if st.State == goose.StateApplied {
			applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%-8d %-10s %-20s %s\n", st.Source.Version, st.State, applied, filepath.Base(st.Source.Path))
	}
}

func newSeedCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo sellers, buyers, products, carts and orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			db := e.db.DB()

			if err := database.RunMigrations(ctx, db, migrations.FS, e.log); err != nil {
				return err
			}
			if reset {
				e.log.Info("Clearing existing data")
				if err := seed.Reset(ctx, db); err != nil {
					return err
				}
			}

			stock := ledger.New(repository.NewStockEventRepository(db), ledger.Options{
				StrictSigns: e.cfg.Ledger.StrictSigns,
			})
			sum, err := seed.Run(ctx, seed.NewServices(db, stock, e.log), e.log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seed completed: %d sellers, %d buyers, %d products, %d orders\n",
				len(sum.Sellers), len(sum.Buyers), len(sum.Products), len(sum.Orders))
			for _, u := range append(sum.Sellers, sum.Buyers...) {
				fmt.Fprintf(out, "  %-8s %-22s %s\n", u.Role, u.Email, u.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "delete all existing data before seeding")
	return cmd
}
