// Package access decides which clients may read the rendered inventory.
package access

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

// AllowList is an immutable set of permitted networks and addresses.
type AllowList struct {
	configured int
	prefixes   []netip.Prefix
	invalid    []string
	logger     *zap.Logger
}

// ParseAllowList builds an AllowList from configuration entries. Each entry is
// a CIDR prefix (host bits are masked) or a single address. Invalid entries are
// skipped and reported by Invalid. Blank entries are ignored entirely.
func ParseAllowList(entries []string, logger *zap.Logger) *AllowList {
	if logger == nil {
		logger = zap.NewNop()
	}
	al := &AllowList{logger: logger.Named("access")}

	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		al.configured++

		p, err := parseEntry(entry)
		if err != nil {
			al.logger.Warn("ignoring invalid allow-list entry", zap.String("entry", entry), zap.Error(err))
			al.invalid = append(al.invalid, entry)
			continue
		}
		al.prefixes = append(al.prefixes, p)
	}

	if al.configured > 0 && len(al.prefixes) == 0 {
		al.logger.Warn("no valid allow-list entries; every client will be denied")
	}
	return al
}

// ParseAllowListString splits a comma-separated list and parses it.
func ParseAllowListString(list string, logger *zap.Logger) *AllowList {
	if strings.TrimSpace(list) == "" {
		return ParseAllowList(nil, logger)
	}
	return ParseAllowList(strings.Split(list, ","), logger)
}

func parseEntry(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		p, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		if p.Addr().Is4In6() && p.Bits() >= 96 {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Allowed reports whether client may read the inventory. With no configured
// entries every client is allowed. An unparsable client is denied.
func (a *AllowList) Allowed(client string) bool {
	return a.Check(client) == nil
}

// Check is Allowed returning domain.ErrAccessDenied, naming the client, on
// denial.
func (a *AllowList) Check(client string) error {
	if a == nil || a.configured == 0 {
		return nil
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(client))
	if err != nil {
		a.logger.Warn("denying unparsable client address", zap.String("client", client), zap.Error(err))
		return fmt.Errorf("%w: unparsable client address %q", domain.ErrAccessDenied, client)
	}
	addr = addr.Unmap().WithZone("")

	for _, p := range a.prefixes {
		if p.Contains(addr) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not in the allow-list", domain.ErrAccessDenied, addr)
}

// Enabled reports whether any entries were configured.
func (a *AllowList) Enabled() bool {
	return a != nil && a.configured > 0
}

// Invalid returns the configured entries that could not be parsed.
func (a *AllowList) Invalid() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.invalid...)
}

// Prefixes returns the parsed entries in configuration order.
func (a *AllowList) Prefixes() []netip.Prefix {
	if a == nil {
		return nil
	}
	return append([]netip.Prefix(nil), a.prefixes...)
}

// ClientAddress resolves the requesting client: the first X-Forwarded-For
// entry when present, otherwise the host part of the transport peer.
func ClientAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
