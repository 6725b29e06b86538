package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"priority-todo-backend/internal/analytics"
	"priority-todo-backend/internal/auth"
	"priority-todo-backend/internal/db"
	"priority-todo-backend/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	conn, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	applied, err := db.Migrate(ctx, conn)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		a.logger.Info("migrations applied", "versions", applied)
	}

	revocations, closeRevocations, err := a.revocationStore(ctx)
	if err != nil {
		return err
	}
	defer closeRevocations()

	publisher, err := a.publisher()
	if err != nil {
		return err
	}
	recorder := analytics.NewRecorder(conn, publisher, a.logger)
	defer recorder.Close()

	srv := server.New(a.cfg, server.Deps{
		DB:          conn,
		Revocations: revocations,
		Recorder:    recorder,
	}, a.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// revocationStore uses Redis when REDIS_URL is set. Outside development an
// unreachable Redis is fatal; in development it falls back to memory.
func (a *app) revocationStore(ctx context.Context) (auth.RevocationStore, func(), error) {
	noop := func() {}
	if a.cfg.RedisURL == "" {
		a.logger.Info("REDIS_URL not set, token revocations are kept in memory")
		return auth.NewMemoryRevocations(), noop, nil
	}

	client, err := auth.DialRedis(ctx, a.cfg.RedisURL)
	if err != nil {
		if a.cfg.IsDevelopment() {
			a.logger.Warn("Redis not available, using in-memory revocations", "error", err)
			return auth.NewMemoryRevocations(), noop, nil
		}
		return nil, noop, fmt.Errorf("connect to redis: %w", err)
	}
	a.logger.Info("connected to redis")
	return auth.NewRedisRevocations(client), func() { _ = client.Close() }, nil
}

// publisher uses RabbitMQ behind a circuit breaker when RABBITMQ_URL is set.
func (a *app) publisher() (analytics.Publisher, error) {
	if a.cfg.RabbitMQURL == "" {
		return analytics.NewNoopPublisher(a.logger), nil
	}

	rabbit, err := analytics.NewRabbitMQPublisher(a.cfg.RabbitMQURL, a.logger)
	if err != nil {
		if a.cfg.IsDevelopment() {
			a.logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			return analytics.NewNoopPublisher(a.logger), nil
		}
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return analytics.NewBreakerPublisher(rabbit, analytics.DefaultBreakerSettings(), a.logger), nil
}
