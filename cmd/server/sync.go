package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation cycle and exit",
	Long: `Fetches NetBox once, replaces the stored snapshot if it changed and
notifies Oxidized. Exits non-zero when the cycle fails. Suitable for
running from an external scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

func runSync(ctx context.Context) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Sync.Timeout)
	defer cancel()

	result, err := a.syncService.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	logger.Info("sync complete",
		zap.String("sync_id", result.ID),
		zap.String("status", result.Status),
		zap.Int("devices", result.Devices),
		zap.Bool("notified", result.Notified))
	return nil
}
