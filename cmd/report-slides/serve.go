package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/spf13/cobra"

	"github.com/yourusername/report-slides-app/pkg/api"
	"github.com/yourusername/report-slides-app/pkg/cron"
	"github.com/yourusername/report-slides-app/pkg/store"
)

// services is the long-running half of the app: store, scheduler and API.
type services struct {
	store     *store.Store
	scheduler *cron.Scheduler
	handler   *api.Handler
}

func (a *app) startServices() (*services, error) {
	if dir := filepath.Dir(a.cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	st, err := store.NewStore(a.cfg.DBPath, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	scheduler := cron.NewScheduler(st, a.planner, cron.Options{
		MaxConcurrent: a.cfg.MaxConcurrent,
		MaxRetries:    a.cfg.MaxRetries,
	}, a.log)
	if err := scheduler.Start(); err != nil {
		st.Close()
		return nil, err
	}

	handler := api.NewHandler(api.Deps{
		Store:     st,
		Scheduler: scheduler,
		Templates: a.templates,
		Slides:    a.dispatcher,
		Batches:   a.planner,
	}, a.log)

	// fail fast on a broken template; later reloads report through the API
	if _, err := a.templates.Load(); err != nil {
		a.log.Error("template configuration failed to load", "error", err.Error())
	}
	return &services{store: st, scheduler: scheduler, handler: handler}, nil
}

func (s *services) stop() {
	s.scheduler.Stop()
	s.store.Close()
}

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the export scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.ListenAddr = listen
			}
			svc, err := a.startServices()
			if err != nil {
				return err
			}
			defer svc.stop()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           svc.handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Info("listening", "addr", a.cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down", "timeout", a.cfg.ShutdownTimeout.String())
			shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer done()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from REPORT_SLIDES_LISTEN_ADDR)")
	return cmd
}

func newPluginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plugin",
		Short: "Run as a Grafana app plugin backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.startServices()
			if err != nil {
				return err
			}
			defer svc.stop()

			return backend.Manage(pluginID, backend.ServeOpts{
				CallResourceHandler: svc.handler,
				CheckHealthHandler:  svc.handler,
			})
		},
	}
}
