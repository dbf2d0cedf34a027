// Package netbox fetches device inventory from NetBox.
package netbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/inventory"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 1000
	defaultStatus   = "active"

	// maxPages bounds pagination if NetBox keeps returning a next link.
	maxPages = 10000
)

// Source provides the raw device records of one reconciliation cycle.
type Source interface {
	FetchDevices(ctx context.Context) ([]inventory.Record, error)
	Name() string
}

// Config configures the NetBox client.
type Config struct {
	BaseURL            string
	Token              string
	Status             string
	PageSize           int
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client reads devices from the NetBox REST API.
type Client struct {
	cfg    Config
	base   *url.URL
	client *http.Client
	logger *zap.Logger
}

// Ensure Client implements Source.
var _ Source = (*Client)(nil)

// New creates a new NetBox client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing netbox url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("netbox url must be http or https, got %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Status == "" {
		cfg.Status = defaultStatus
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		// #nosec G402 -- opt-in for NetBox instances with self-signed certificates
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		logger.Warn("TLS verification disabled for NetBox", zap.String("url", base.String()))
	}

	return &Client{
		cfg:    cfg,
		base:   base,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger: logger.Named("netbox"),
	}, nil
}

// Name identifies the source in status output.
func (c *Client) Name() string {
	return "netbox"
}

// FetchDevices lists every device with the configured status, following
// pagination until NetBox reports no next page.
func (c *Client) FetchDevices(ctx context.Context) ([]inventory.Record, error) {
	next := c.firstPageURL()
	var devices []Device

	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("netbox pagination exceeded %d pages", maxPages)
		}
		list, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		devices = append(devices, list.Results...)

		next = ""
		if list.Next != nil && *list.Next != "" {
			if next, err = c.nextPageURL(*list.Next); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Debug("fetched devices", zap.Int("count", len(devices)))
	return records(devices), nil
}

func (c *Client) devicesURL() url.URL {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/api/dcim/devices/"
	return u
}

func (c *Client) firstPageURL() string {
	u := c.devicesURL()
	q := url.Values{}
	q.Set("status", c.cfg.Status)
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

// nextPageURL keeps only the query of NetBox's next link and applies it to
// the configured endpoint, so the token is never sent to another origin.
func (c *Client) nextPageURL(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("netbox returned an invalid next link %q: %w", raw, err)
	}
	if ref.Host != "" && (ref.Host != c.base.Host || ref.Scheme != c.base.Scheme) {
		c.logger.Debug("next link points at another origin, using configured URL",
			zap.String("next", ref.Redacted()), zap.String("base", c.base.Redacted()))
	}
	u := c.devicesURL()
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*DeviceList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("NetBox API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return decodeDeviceList(data)
}
