package domain

import (
	"net/netip"
	"sort"
)

// Snapshot is the full set of devices representing desired state, keyed by IP.
// Iteration order is never significant; only membership and per-key equality are.
type Snapshot map[string]Device

// NewSnapshot builds a snapshot from devices. Later duplicates of an IP are dropped.
func NewSnapshot(devices ...Device) Snapshot {
	s := make(Snapshot, len(devices))
	for _, d := range devices {
		s.Add(d)
	}
	return s
}

// Add inserts d and reports whether its IP was not already present.
func (s Snapshot) Add(d Device) bool {
	if _, exists := s[d.IP]; exists {
		return false
	}
	s[d.IP] = d
	return true
}

// Get returns the device with the given IP.
func (s Snapshot) Get(ip string) (Device, bool) {
	d, ok := s[ip]
	return d, ok
}

// Len returns the number of devices.
func (s Snapshot) Len() int {
	return len(s)
}

// Devices returns the devices ordered by address.
func (s Snapshot) Devices() []Device {
	devices := make([]Device, 0, len(s))
	for _, d := range s {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return addressLess(devices[i].IP, devices[j].IP)
	})
	return devices
}

// addressLess orders parseable addresses numerically and anything else lexically after them.
func addressLess(a, b string) bool {
	aa, aErr := netip.ParseAddr(a)
	ba, bErr := netip.ParseAddr(b)
	switch {
	case aErr == nil && bErr == nil:
		return aa.Less(ba)
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// Differs reports whether candidate holds a different device set than current.
// Two snapshots are equal iff they have the same IP keys and every shared key
// maps to an Equal device. The comparison is symmetric and order-insensitive.
func Differs(current, candidate Snapshot) bool {
	if len(current) != len(candidate) {
		return true
	}
	for ip, cur := range current {
		cand, ok := candidate[ip]
		if !ok || !cur.Equal(cand) {
			return true
		}
	}
	return false
}
