package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/router"
	"github.com/pandeptwidyaop/homelab-remote/internal/version"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, status poller and backup scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Printf("Database: %s", a.db.Path())
	if a.cfg.Auth.PasswordHash == "" {
		log.Println("Warning: auth.password_hash is not set, remote callers cannot run actions")
	}
	if usesDocker(a.cfg) && !a.docker.Ping(ctx) {
		log.Println("Warning: Docker daemon is not reachable, container services will report down")
	}

	a.poller.Start()
	defer a.poller.Stop()
	a.backups.Start()
	defer a.backups.Stop()

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.New(a.cfg, a.services()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Homelab Remote %s starting on %s", version.Version, addr)
		log.Printf("Access at: http://%s:%d", a.auth.ServerIP(), a.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-sigCtx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

func usesDocker(cfg *config.Config) bool {
	for _, svc := range cfg.Services {
		if svc.Kind == config.KindDocker {
			return true
		}
	}
	return false
}
