package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/config"
	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

const appDeviceFile = `{"results":[{"id":1,"name":"core","primary_ip4":{"address":"10.0.0.1/24"},
  "platform":{"slug":"ios"},"custom_fields":{"oxidized_username":"a","oxidized_password":"b","ssh_port":22}}]}`

func TestNewApp_UnreachableDatabaseFailsCycleNotStartup(t *testing.T) {
	shim := filepath.Join(t.TempDir(), "devices.json")
	if err := os.WriteFile(shim, []byte(appDeviceFile), 0o600); err != nil {
		t.Fatal(err)
	}
	for k, v := range map[string]string{
		"NETBOX_FILE_SHIM": shim,
		"DB_DRIVER":        "postgres",
		"DB_HOST":          "127.0.0.1",
		"DB_PORT":          "1",
		"DB_NAME":          "oxidized",
		"DB_USER":          "oxidized",
		"DB_PASS":          "secret",
	} {
		t.Setenv(k, v)
	}

	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	a, err := newApp(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp should not fail on an unreachable database: %v", err)
	}
	defer a.Close()

	result, err := a.syncService.RunCycle(context.Background())
	if !errors.Is(err, domain.ErrSink) {
		t.Fatalf("expected ErrSink, got %v", err)
	}
	if result.Status != domain.SyncStatusFailed {
		t.Errorf("expected failed cycle, got %s", result.Status)
	}
}

func TestNewApp_MemoryStore(t *testing.T) {
	shim := filepath.Join(t.TempDir(), "devices.json")
	if err := os.WriteFile(shim, []byte(appDeviceFile), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NETBOX_FILE_SHIM", shim)
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, err := newApp(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	result, err := a.syncService.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Status != domain.SyncStatusReplaced || result.Devices != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}
