package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/config"
	"github.com/bcnelson/oxidized-inventory-sync/internal/netbox"
	"github.com/bcnelson/oxidized-inventory-sync/internal/notify"
	"github.com/bcnelson/oxidized-inventory-sync/internal/service"
	"github.com/bcnelson/oxidized-inventory-sync/internal/storage"
	"github.com/bcnelson/oxidized-inventory-sync/internal/storage/memory"
	"github.com/bcnelson/oxidized-inventory-sync/internal/storage/sql"
)

// app holds the components shared by every subcommand.
type app struct {
	source      netbox.Source
	store       storage.Storage
	syncService *service.SyncService
	closers     []func() error
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	// Initialize NetBox client (or file shim for testing)
	if cfg.UseFileShim() {
		logger.Info("using file shim for NetBox API", zap.String("path", cfg.NetBox.FileShim))
		a.source = netbox.NewFileShim(cfg.NetBox.FileShim)
	} else {
		client, err := netbox.New(netbox.Config{
			BaseURL:            cfg.NetBox.URL,
			Token:              cfg.NetBox.Token,
			Status:             cfg.NetBox.DeviceStatus,
			PageSize:           cfg.NetBox.PageSize,
			Timeout:            cfg.NetBox.Timeout,
			InsecureSkipVerify: cfg.NetBox.InsecureSkipVerify(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing NetBox client: %w", err)
		}
		a.source = client
	}

	// Initialize storage
	store, err := openStore(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	notifier := a.buildNotifier(cfg, logger)

	a.syncService = service.NewSyncService(a.source, a.store, notifier, logger, service.Options{
		ServeMode:   cfg.Sync.ServeMode,
		HistoryKeep: cfg.Sync.HistoryKeep,
	})
	return a, nil
}

func openStore(db config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	switch db.Driver {
	case "memory":
		logger.Warn("using in-memory storage; the snapshot is lost on restart")
		return memory.New(), nil
	case "sqlite3":
		// Create data directory if needed. A failure here surfaces again on
		// each cycle until the directory becomes writable.
		if err := os.MkdirAll(filepath.Dir(db.DSN), 0o755); err != nil {
			logger.Warn("creating data directory", zap.String("dsn", db.DSN), zap.Error(err))
		}
	}

	// The database is contacted on first use, so an unreachable server
	// fails cycles rather than startup.
	store, err := sql.New(db.Driver, db.ConnString(), logger)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// buildNotifier wires the optional change notifiers. A notifier that cannot
// be set up is logged and left out.
func (a *app) buildNotifier(cfg *config.Config, logger *zap.Logger) notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Oxidized.URL != "" {
		reloader, err := notify.NewReloader(cfg.Oxidized.URL, cfg.Oxidized.Username, cfg.Oxidized.Password, cfg.Oxidized.Timeout)
		if err != nil {
			logger.Warn("oxidized reload disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, notify.Instrument(reloader, logger))
		}
	}

	if cfg.MQTT.Enabled() {
		pub, err := notify.ConnectMQTT(notify.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			logger.Warn("mqtt change events disabled", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
		} else {
			notifiers = append(notifiers, notify.Instrument(pub, logger))
			a.closers = append(a.closers, pub.Close)
		}
	}

	if len(notifiers) == 0 {
		logger.Info("no change notifiers configured")
	}
	return notify.NewMulti(notifiers...)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
