package netbox

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bcnelson/oxidized-inventory-sync/internal/inventory"
)

// Custom fields read from each NetBox device.
const (
	CustomFieldUsername       = "oxidized_username"
	CustomFieldPassword       = "oxidized_password"
	CustomFieldPort           = "ssh_port"
	CustomFieldEnable         = "oxidized_enable"
	CustomFieldEnablePassword = "oxidized_enable_password"
	CustomFieldInput          = "oxidized_input"
)

// Device is the subset of a NetBox dcim device this service reads.
type Device struct {
	ID           int            `json:"id"`
	Name         *string        `json:"name"`
	PrimaryIP4   *IPAddress     `json:"primary_ip4"`
	Platform     *NestedObject  `json:"platform"`
	Role         *NestedObject  `json:"role"`
	DeviceRole   *NestedObject  `json:"device_role"` // NetBox < 3.6
	CustomFields map[string]any `json:"custom_fields"`
}

// IPAddress is a nested NetBox IP address. Address carries its prefix length.
type IPAddress struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
}

// NestedObject is a brief nested NetBox object (platform, role).
type NestedObject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DeviceList is one page of the NetBox device list endpoint.
type DeviceList struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Device `json:"results"`
}

// Record converts a NetBox device into the normalizer's field accessor.
// Only fields NetBox actually provides are set.
func (d Device) Record() inventory.Record {
	rec := inventory.Record{}
	if d.Name != nil {
		rec[inventory.FieldName] = *d.Name
	}
	if d.PrimaryIP4 != nil {
		rec[inventory.FieldAddress] = d.PrimaryIP4.Address
	}
	if d.Platform != nil {
		rec[inventory.FieldPlatform] = d.Platform.Slug
	}
	switch {
	case d.Role != nil:
		rec[inventory.FieldGroup] = d.Role.Slug
	case d.DeviceRole != nil:
		rec[inventory.FieldGroup] = d.DeviceRole.Slug
	}

	fields := map[string]string{
		CustomFieldUsername:       inventory.FieldUsername,
		CustomFieldPassword:       inventory.FieldPassword,
		CustomFieldPort:           inventory.FieldPort,
		CustomFieldEnable:         inventory.FieldUseEnable,
		CustomFieldEnablePassword: inventory.FieldEnablePassword,
		CustomFieldInput:          inventory.FieldInput,
	}
	for cf, field := range fields {
		if v, ok := d.CustomFields[cf]; ok && v != nil {
			rec[field] = v
		}
	}
	return rec
}

// decodeDeviceList decodes a device list page. Numbers are kept as
// json.Number so integer custom fields survive untouched. A bare JSON array
// of devices is accepted as a single page.
func decodeDeviceList(data []byte) (*DeviceList, error) {
	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var devices []Device
		if err := dec.Decode(&devices); err != nil {
			return nil, fmt.Errorf("decoding device array: %w", err)
		}
		return &DeviceList{Count: len(devices), Results: devices}, nil
	}

	var list DeviceList
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding device list: %w", err)
	}
	return &list, nil
}

func records(devices []Device) []inventory.Record {
	recs := make([]inventory.Record, 0, len(devices))
	for _, d := range devices {
		recs = append(recs, d.Record())
	}
	return recs
}
