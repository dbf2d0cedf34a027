package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

const defaultReloadTimeout = 10 * time.Second

// Reloader asks Oxidized to re-read its source via GET {base}/reload.
type Reloader struct {
	reloadURL string
	username  string
	password  string
	client    *http.Client
}

// NewReloader creates a reload notifier. Credentials are optional; when a
// username is set the request carries HTTP basic auth.
func NewReloader(baseURL, username, password string, timeout time.Duration) (*Reloader, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing oxidized url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("oxidized url must be http or https, got %q", baseURL)
	}
	u.Path += "/reload"

	if timeout <= 0 {
		timeout = defaultReloadTimeout
	}
	return &Reloader{
		reloadURL: u.String(),
		username:  username,
		password:  password,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (r *Reloader) Name() string { return "oxidized" }

// Notify succeeds only on HTTP 200.
func (r *Reloader) Notify(ctx context.Context, _ Change) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.reloadURL, nil)
	if err != nil {
		return fmt.Errorf("%w: oxidized request: %w", domain.ErrNotify, err)
	}
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: oxidized reload: %w", domain.ErrNotify, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: oxidized returned %d: %s", domain.ErrNotify, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
