package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/access"
	"github.com/bcnelson/oxidized-inventory-sync/internal/api"
	"github.com/bcnelson/oxidized-inventory-sync/internal/config"
	"github.com/bcnelson/oxidized-inventory-sync/internal/service"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync loop and serve /devices.csv",
	Long: `Starts the HTTP server. In store mode a reconciliation cycle runs
immediately and then every SYNC_INTERVAL; in inline mode every request
to /devices.csv queries NetBox directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var lister service.DeviceLister
	var scheduler *service.Scheduler
	switch cfg.Sync.ServeMode {
	case config.ServeModeInline:
		lister = service.NewLiveLister(a.source, cfg.NetBox.Timeout)
	default:
		lister = service.NewStoreLister(a.store)
		scheduler, err = service.NewScheduler(a.syncService, cfg.Sync.Interval, cfg.Sync.Timeout, logger)
		if err != nil {
			return err
		}
	}

	allow := access.ParseAllowList(cfg.Access.Entries(), logger)
	if !allow.Enabled() {
		logger.Warn("ALLOWED_IPS is empty; /devices.csv is readable by any client")
	}

	router := api.NewRouter(api.Deps{
		Lister:      lister,
		SyncService: a.syncService,
		AllowList:   allow,
		SyncTimeout: cfg.Sync.Timeout,
		APIToken:    cfg.Access.APIToken,
		Logger:      logger,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Sync.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if scheduler != nil {
		scheduler.Start(ctx)
	}

	logger.Info("starting oxidized inventory sync",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("serve_mode", cfg.Sync.ServeMode),
		zap.Duration("interval", cfg.Sync.Interval))

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a failed listener
	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-serverErr:
		if scheduler != nil {
			scheduler.Stop()
		}
		return fmt.Errorf("server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	logger.Info("server stopped")
	return nil
}
