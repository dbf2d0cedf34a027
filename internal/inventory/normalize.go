package inventory

import (
	"fmt"
	"strings"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

const maxPort = 65535

// Normalize maps one raw record to a Device.
//
// It returns ok=false without an error when a required field (address,
// platform, username, password or port) is missing, so one bad entity never
// aborts a cycle. A port that is present but not an integer returns an error
// wrapping domain.ErrSchema: that points at the source schema, not the record.
func Normalize(rec Record) (domain.Device, bool, error) {
	address, hasAddress := rec.String(FieldAddress)
	platform, hasPlatform := rec.String(FieldPlatform)
	username, hasUsername := rec.String(FieldUsername)
	password, hasPassword := rec.String(FieldPassword)
	if !hasAddress || !hasPlatform || !hasUsername || !hasPassword {
		return domain.Device{}, false, nil
	}

	port, hasPort, err := rec.integer(FieldPort)
	if err != nil {
		return domain.Device{}, false, fmt.Errorf("%w: %w", domain.ErrSchema, err)
	}
	// A zero port is as good as no port.
	if !hasPort || port == 0 {
		return domain.Device{}, false, nil
	}
	if port < 0 || port > maxPort {
		return domain.Device{}, false, fmt.Errorf("%w: %s: %d out of range", domain.ErrSchema, FieldPort, port)
	}

	ip, _, _ := strings.Cut(address, "/")
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return domain.Device{}, false, nil
	}

	device := domain.Device{
		Name:     ip,
		IP:       ip,
		Platform: platform,
		Port:     port,
		Username: username,
		Password: password,
		Group:    domain.DefaultGroup,
	}
	if name, ok := rec.String(FieldName); ok {
		device.Name = name
	}
	if rec.Bool(FieldUseEnable) {
		enable := domain.EnableWithoutSecret
		if secret, ok := rec.String(FieldEnablePassword); ok {
			enable = secret
		}
		device.Enable = &enable
	}
	if input, ok := rec.String(FieldInput); ok {
		device.Input = &input
	}
	if group, ok := rec.String(FieldGroup); ok {
		device.Group = group
	}

	return device, true, nil
}

// NormalizeResult is the outcome of normalizing a whole fetch.
type NormalizeResult struct {
	Snapshot   domain.Snapshot
	Fetched    int
	Skipped    int      // records missing a required field
	Duplicates []string // addresses seen more than once; first occurrence wins
}

// NormalizeAll normalizes every record into a snapshot. It fails only on a
// schema error; incomplete records and duplicate addresses are counted.
func NormalizeAll(records []Record) (*NormalizeResult, error) {
	result := &NormalizeResult{
		Snapshot: make(domain.Snapshot, len(records)),
		Fetched:  len(records),
	}
	for i, rec := range records {
		device, ok, err := Normalize(rec)
		if err != nil {
			name, _ := rec.String(FieldName)
			return nil, fmt.Errorf("record %d (%s): %w", i, name, err)
		}
		if !ok {
			result.Skipped++
			continue
		}
		if !result.Snapshot.Add(device) {
			result.Duplicates = append(result.Duplicates, device.IP)
		}
	}
	return result, nil
}
