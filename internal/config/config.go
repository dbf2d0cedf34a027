package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Serve modes for GET /devices.csv.
const (
	ServeModeStore  = "store"
	ServeModeInline = "inline"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	NetBox   NetBoxConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Oxidized OxidizedConfig
	Access   AccessConfig
	MQTT     MQTTConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"5000"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// NetBoxConfig holds NetBox API configuration.
type NetBoxConfig struct {
	URL          string        `env:"NETBOX_URL"`
	Token        string        `env:"NETBOX_TOKEN"`
	DeviceStatus string        `env:"NETBOX_DEVICE_STATUS" envDefault:"active"`
	PageSize     int           `env:"NETBOX_PAGE_SIZE" envDefault:"1000"`
	Timeout      time.Duration `env:"NETBOX_TIMEOUT" envDefault:"30s"`
	VerifyTLS    bool          `env:"NETBOX_VERIFY_TLS" envDefault:"false"`
	FileShim     string        `env:"NETBOX_FILE_SHIM"` // Path to a device list file (disables real API)
}

// InsecureSkipVerify reports whether TLS verification is bypassed for an
// https NetBox URL.
func (c *NetBoxConfig) InsecureSkipVerify() bool {
	return strings.HasPrefix(strings.ToLower(c.URL), "https://") && !c.VerifyTLS
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver  string `env:"DB_DRIVER" envDefault:"postgres"`
	Host    string `env:"DB_HOST"`
	Port    int    `env:"DB_PORT" envDefault:"5432"`
	Name    string `env:"DB_NAME"`
	User    string `env:"DB_USER"`
	Pass    string `env:"DB_PASS"`
	SSLMode string `env:"DB_SSLMODE" envDefault:"disable"`
	DSN     string `env:"DB_DSN" envDefault:"data/oxidized-sync.db"`
}

// ConnString returns the driver-specific connection string.
func (c *DatabaseConfig) ConnString() string {
	if c.Driver != "postgres" {
		return c.DSN
	}
	parts := []string{
		"host=" + quoteDSNValue(c.Host),
		fmt.Sprintf("port=%d", c.Port),
		"dbname=" + quoteDSNValue(c.Name),
		"user=" + quoteDSNValue(c.User),
		"password=" + quoteDSNValue(c.Pass),
		"sslmode=" + quoteDSNValue(c.SSLMode),
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a libpq keyword/value when it is empty or contains
// spaces, quotes or backslashes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// SyncConfig holds reconciliation loop configuration.
type SyncConfig struct {
	Interval    time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	Timeout     time.Duration `env:"SYNC_TIMEOUT" envDefault:"2m"`
	ServeMode   string        `env:"SERVE_MODE" envDefault:"store"`
	HistoryKeep int           `env:"SYNC_HISTORY_KEEP" envDefault:"500"`
}

// OxidizedConfig holds the reload notification target.
type OxidizedConfig struct {
	URL      string        `env:"OXIDIZED_URL"`
	Username string        `env:"OXIDIZED_USERNAME"`
	Password string        `env:"OXIDIZED_PASSWORD"`
	Timeout  time.Duration `env:"OXIDIZED_TIMEOUT" envDefault:"10s"`
}

// AccessConfig holds the read endpoint allow-list.
type AccessConfig struct {
	AllowedIPs string `env:"ALLOWED_IPS"`
	APIToken   string `env:"API_TOKEN"` // Bearer token for POST /api/v1/sync (optional)
}

// MQTTConfig holds the optional change event publisher.
type MQTTConfig struct {
	Broker   string `env:"MQTT_BROKER"`
	Topic    string `env:"MQTT_TOPIC" envDefault:"oxidized/inventory/changed"`
	ClientID string `env:"MQTT_CLIENT_ID" envDefault:"oxidized-inventory-sync"`
	Username string `env:"MQTT_USERNAME"`
	Password string `env:"MQTT_PASSWORD"`
}

// Enabled reports whether a broker is configured.
func (c *MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"false"`
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables
// take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name string
		v    any
	}{
		{"server", &cfg.Server},
		{"netbox", &cfg.NetBox},
		{"database", &cfg.Database},
		{"sync", &cfg.Sync},
		{"oxidized", &cfg.Oxidized},
		{"access", &cfg.Access},
		{"mqtt", &cfg.MQTT},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := env.Parse(s.v); err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid. Every problem found is
// reported in the returned FieldErrors.
func (c *Config) Validate() error {
	var errs FieldErrors

	// If using file shim, NetBox credentials are not required
	if c.NetBox.FileShim == "" {
		if c.NetBox.URL == "" {
			errs.Add("NETBOX_URL", "is required (or set NETBOX_FILE_SHIM for testing)")
		} else {
			validateHTTPURL(&errs, "NETBOX_URL", c.NetBox.URL)
		}
		if c.NetBox.Token == "" {
			errs.Add("NETBOX_TOKEN", "is required (or set NETBOX_FILE_SHIM for testing)")
		}
	}
	if c.NetBox.PageSize <= 0 {
		errs.Add("NETBOX_PAGE_SIZE", "must be positive")
	}

	switch c.Database.Driver {
	case "postgres":
		for _, req := range []struct{ key, val string }{
			{"DB_HOST", c.Database.Host},
			{"DB_NAME", c.Database.Name},
			{"DB_USER", c.Database.User},
			{"DB_PASS", c.Database.Pass},
		} {
			if req.val == "" {
				errs.Add(req.key, "is required when DB_DRIVER is postgres")
			}
		}
	case "sqlite3":
		if c.Database.DSN == "" {
			errs.Add("DB_DSN", "is required when DB_DRIVER is sqlite3")
		}
	case "memory":
	default:
		errs.Add("DB_DRIVER", "must be postgres, sqlite3 or memory, got %q", c.Database.Driver)
	}

	if c.Sync.Interval <= 0 {
		errs.Add("SYNC_INTERVAL", "must be positive")
	}
	if c.Sync.Timeout <= 0 {
		errs.Add("SYNC_TIMEOUT", "must be positive")
	}
	if c.Sync.ServeMode != ServeModeStore && c.Sync.ServeMode != ServeModeInline {
		errs.Add("SERVE_MODE", "must be %q or %q, got %q", ServeModeStore, ServeModeInline, c.Sync.ServeMode)
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs.Add("SERVER_SHUTDOWN_TIMEOUT", "must be positive")
	}

	if c.Oxidized.URL != "" {
		validateHTTPURL(&errs, "OXIDIZED_URL", c.Oxidized.URL)
	}
	if c.MQTT.Enabled() && c.MQTT.Topic == "" {
		errs.Add("MQTT_TOPIC", "is required when MQTT_BROKER is set")
	}

	return errs.Err()
}

func validateHTTPURL(errs *FieldErrors, key, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add(key, "must be an http(s) URL, got %q", raw)
	}
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.NetBox.FileShim != ""
}

// Entries returns the configured allow-list entries.
func (c *AccessConfig) Entries() []string {
	if strings.TrimSpace(c.AllowedIPs) == "" {
		return nil
	}
	entries := strings.Split(c.AllowedIPs, ",")
	for i := range entries {
		entries[i] = strings.TrimSpace(entries[i])
	}
	return entries
}
