package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"priority-todo-backend/internal/config"
	"priority-todo-backend/internal/db"
	"priority-todo-backend/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is what every subcommand needs: validated config and a logger.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "api",
		Short: "Priority todo API server",
		Long: `Serves the priority todo REST API.

CONFIGURATION:
  DATABASE_URL         postgres://... or sqlite://path (default sqlite://todo.db)
  HTTP_ADDR            listen address (default :8080)
  JWT_SECRET           token signing secret, required in production
  REDIS_URL            token revocation store (in-memory when unset)
  RABBITMQ_URL         analytics event broker (events are only stored when unset)
  LOG_LEVEL/LOG_FORMAT debug|info|warn|error, text|json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.logger = logging.New(logging.Options{
				Level:   a.cfg.LogLevel,
				Format:  a.cfg.LogFormat,
				Service: "todo-api",
			})
			slog.SetDefault(a.logger)
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newResetDBCmd(a),
	)
	return root
}

func (a *app) openDB(ctx context.Context) (*db.DB, error) {
	conn, err := db.Open(ctx, a.cfg.DSN())
	if err != nil {
		return nil, err
	}
	a.logger.Info("connected to database", "dialect", conn.Dialect)
	return conn, nil
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := db.Migrate(ctx, conn)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				a.logger.Info("database is up to date")
				return nil
			}
			a.logger.Info("migrations applied", "versions", applied)
			return nil
		},
	}
}

func newResetDBCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop all tables and re-create the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.IsProduction() {
				return fmt.Errorf("reset-db is disabled in production")
			}
			if !yes {
				return fmt.Errorf("reset-db deletes all data; pass --yes to confirm")
			}

			ctx := cmd.Context()
			conn, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Reset(ctx, conn); err != nil {
				return err
			}
			a.logger.Info("database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm that all data will be deleted")
	return cmd
}
