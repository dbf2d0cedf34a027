package inventory

import (
	"strconv"
	"strings"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

// Render formats a snapshot as Oxidized's CSV source expects it: one
// "ip:platform:username:password:port" line per device, ordered by address,
// joined with newlines and without a trailing newline.
func Render(s domain.Snapshot) string {
	devices := s.Devices()
	lines := make([]string, 0, len(devices))
	for _, d := range devices {
		lines = append(lines, strings.Join([]string{
			d.IP,
			d.Platform,
			d.Username,
			d.Password,
			strconv.Itoa(d.Port),
		}, ":"))
	}
	return strings.Join(lines, "\n")
}
