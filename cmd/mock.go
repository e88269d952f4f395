package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/server"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// MockServe runs the in-memory API on server.host:server.port until interrupted.
func (r *Runner) MockServe(ctx context.Context, cmd *cli.Command) error {
	logger := shared.WithLogger(r.logger, "component", "mock")
	prefix := mockPrefix(r.config.API.BaseURL)

	api := server.NewMockAPI(server.MockOpts{
		Prefix: prefix,
		Seed:   cmd.Bool("seed"),
		Logger: logger,
	})

	addr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewMockServer(api, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("mock API listening", "addr", addr, "prefix", prefix)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	r.writePlain("→ Mock API on http://%s%s\n", addr, prefix)
	if cmd.Bool("seed") {
		r.writePlain("  Demo account: %s / %s\n", server.DemoEmail, server.DemoPassword)
	}
	r.writePlain("  Press Ctrl+C to stop\n")

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("%w: mock server: %w", shared.ErrNetworkUnavailable, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down mock server: %w", err)
	}
	logger.Info("mock API stopped")
	return nil
}
