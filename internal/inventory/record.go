// Package inventory turns raw source-of-truth entities into canonical devices
// and renders snapshots in the format Oxidized consumes.
package inventory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field names understood by Normalize. Source adapters populate a Record
// using these keys and leave out anything the source does not provide.
const (
	FieldName           = "name"
	FieldAddress        = "address"
	FieldPlatform       = "platform"
	FieldUsername       = "username"
	FieldPassword       = "password"
	FieldPort           = "port"
	FieldUseEnable      = "use_enable"
	FieldEnablePassword = "enable_password"
	FieldInput          = "input"
	FieldGroup          = "group"
)

// Record is a loosely-typed source entity. A field that is missing or null is
// absent; the accessors make that state explicit instead of failing at use.
type Record map[string]any

// Lookup returns the raw value of field and whether it is present and non-null.
func (r Record) Lookup(field string) (any, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns field as a string. It reports false when the field is absent
// or empty. Numbers are formatted in their JSON form.
func (r Record) String(field string) (string, bool) {
	v, ok := r.Lookup(field)
	if !ok {
		return "", false
	}
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	case fmt.Stringer:
		s = val.String()
	case int, int64, float64, bool:
		s = fmt.Sprint(val)
	default:
		return "", false
	}
	return s, s != ""
}

// Bool reports whether field is set to a true value. Strings are parsed with
// strconv.ParseBool; anything unparseable counts as false.
func (r Record) Bool(field string) bool {
	v, ok := r.Lookup(field)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	case json.Number:
		n, err := val.Int64()
		return err == nil && n != 0
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return false
	}
}

// integer converts a present field value to an int. It reports ok=false when
// the value is empty, and an error when the value cannot be read as an integer.
func (r Record) integer(field string) (n int, ok bool, err error) {
	v, present := r.Lookup(field)
	if !present {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int:
		return val, true, nil
	case int64:
		return int(val), true, nil
	case float64:
		if val != float64(int(val)) {
			return 0, true, fmt.Errorf("%s: %v is not an integer", field, val)
		}
		return int(val), true, nil
	case json.Number:
		i, err := strconv.Atoi(val.String())
		if err != nil {
			return 0, true, fmt.Errorf("%s: %q is not an integer", field, val.String())
		}
		return i, true, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, true, fmt.Errorf("%s: %q is not an integer", field, val)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: unsupported type %T", field, v)
	}
}
