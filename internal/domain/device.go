package domain

// Sentinel values applied by the normalizer.
const (
	// DefaultGroup is used when the source provides no role/classification.
	DefaultGroup = "default"

	// EnableWithoutSecret marks a device that needs enable mode but has no
	// separate enable secret.
	EnableWithoutSecret = "true"
)

// Device is one network-managed host as served to Oxidized.
// IP is the natural key: it is unique within a Snapshot and in storage.
type Device struct {
	Name     string  `json:"name" db:"name"`
	IP       string  `json:"ip" db:"ip"`
	Platform string  `json:"platform" db:"model"`
	Port     int     `json:"port" db:"port"`
	Username string  `json:"username" db:"username"`
	Password string  `json:"-" db:"password"`
	Enable   *string `json:"-" db:"enable"` // nil when enable mode is not used
	Input    *string `json:"input,omitempty" db:"input"`
	Group    string  `json:"group" db:"device_group"`
}

// Equal reports whether two devices are identical in every field.
// Optional fields are equal when both are absent or both hold the same value.
func (d Device) Equal(o Device) bool {
	return d.Name == o.Name &&
		d.IP == o.IP &&
		d.Platform == o.Platform &&
		d.Port == o.Port &&
		d.Username == o.Username &&
		d.Password == o.Password &&
		optionalEqual(d.Enable, o.Enable) &&
		optionalEqual(d.Input, o.Input) &&
		d.Group == o.Group
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns a pointer to s. Handy for building optional fields.
func StringPtr(s string) *string {
	return &s
}
