package inventory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

func validRecord() Record {
	return Record{
		FieldName:     "core-sw1",
		FieldAddress:  "10.0.0.1/24",
		FieldPlatform: "ios",
		FieldUsername: "a",
		FieldPassword: "b",
		FieldPort:     json.Number("22"),
	}
}

func TestNormalize_Valid(t *testing.T) {
	d, ok, err := Normalize(validRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be accepted")
	}

	want := domain.Device{
		Name:     "core-sw1",
		IP:       "10.0.0.1",
		Platform: "ios",
		Port:     22,
		Username: "a",
		Password: "b",
		Group:    domain.DefaultGroup,
	}
	if !d.Equal(want) {
		t.Errorf("got %+v, want %+v", d, want)
	}
	if d.Enable != nil {
		t.Error("enable should be absent when use_enable is not set")
	}
	if d.Input != nil {
		t.Error("input should be absent when not provided")
	}
}

func TestNormalize_MissingRequiredField(t *testing.T) {
	required := []string{FieldAddress, FieldPlatform, FieldUsername, FieldPassword, FieldPort}

	for _, field := range required {
		for _, variant := range []string{"missing", "null", "empty"} {
			t.Run(field+"/"+variant, func(t *testing.T) {
				rec := validRecord()
				switch variant {
				case "missing":
					delete(rec, field)
				case "null":
					rec[field] = nil
				case "empty":
					rec[field] = ""
				}

				d, ok, err := Normalize(rec)
				if err != nil {
					t.Fatalf("missing field should not be an error, got %v", err)
				}
				if ok {
					t.Errorf("expected record to be skipped, got %+v", d)
				}
			})
		}
	}
}

func TestNormalize_ZeroPortSkipped(t *testing.T) {
	for _, port := range []any{0, float64(0), json.Number("0"), "0"} {
		rec := validRecord()
		rec[FieldPort] = port
		_, ok, err := Normalize(rec)
		if err != nil || ok {
			t.Errorf("port %#v: expected soft skip, got ok=%v err=%v", port, ok, err)
		}
	}
}

func TestNormalize_MalformedPortIsSchemaError(t *testing.T) {
	tests := []struct {
		name string
		port any
	}{
		{"text", "ssh"},
		{"fraction", float64(22.5)},
		{"json fraction", json.Number("22.5")},
		{"negative", json.Number("-1")},
		{"too large", 70000},
		{"object", map[string]any{"value": 22}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec[FieldPort] = tt.port
			_, ok, err := Normalize(rec)
			if !errors.Is(err, domain.ErrSchema) {
				t.Errorf("expected ErrSchema, got %v", err)
			}
			if ok {
				t.Error("expected ok=false alongside the error")
			}
		})
	}
}

func TestNormalize_PortTypes(t *testing.T) {
	for _, port := range []any{22, float64(22), json.Number("22"), "22", " 22 "} {
		rec := validRecord()
		rec[FieldPort] = port
		d, ok, err := Normalize(rec)
		if err != nil || !ok {
			t.Fatalf("port %#v: ok=%v err=%v", port, ok, err)
		}
		if d.Port != 22 {
			t.Errorf("port %#v: got %d", port, d.Port)
		}
	}
}

func TestNormalize_StripsPrefix(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"10.0.0.1/24", "10.0.0.1"},
		{"10.0.0.1/32", "10.0.0.1"},
		{"192.168.5.9", "192.168.5.9"},
	}

	for _, tt := range tests {
		rec := validRecord()
		rec[FieldAddress] = tt.address
		d, ok, err := Normalize(rec)
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", tt.address, ok, err)
		}
		if d.IP != tt.want {
			t.Errorf("%s: got ip %q, want %q", tt.address, d.IP, tt.want)
		}
	}
}

func TestNormalize_Enable(t *testing.T) {
	tests := []struct {
		name      string
		useEnable any
		secret    any
		want      *string
	}{
		{"not set", nil, "ignored", nil},
		{"false", false, "ignored", nil},
		{"true with secret", true, "s3cret", domain.StringPtr("s3cret")},
		{"true without secret", true, nil, domain.StringPtr(domain.EnableWithoutSecret)},
		{"true with empty secret", true, "", domain.StringPtr(domain.EnableWithoutSecret)},
		{"string true", "true", "s3cret", domain.StringPtr("s3cret")},
		{"string false", "false", "s3cret", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec[FieldUseEnable] = tt.useEnable
			rec[FieldEnablePassword] = tt.secret

			d, ok, err := Normalize(rec)
			if err != nil || !ok {
				t.Fatalf("ok=%v err=%v", ok, err)
			}
			switch {
			case tt.want == nil && d.Enable != nil:
				t.Errorf("expected enable absent, got %q", *d.Enable)
			case tt.want != nil && d.Enable == nil:
				t.Errorf("expected enable %q, got absent", *tt.want)
			case tt.want != nil && *d.Enable != *tt.want:
				t.Errorf("expected enable %q, got %q", *tt.want, *d.Enable)
			}
		})
	}
}

func TestNormalize_InputGroupAndName(t *testing.T) {
	rec := validRecord()
	rec[FieldInput] = "telnet"
	rec[FieldGroup] = "core-switches"
	delete(rec, FieldName)

	d, ok, err := Normalize(rec)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if d.Input == nil || *d.Input != "telnet" {
		t.Errorf("expected input telnet, got %v", d.Input)
	}
	if d.Group != "core-switches" {
		t.Errorf("expected group core-switches, got %q", d.Group)
	}
	if d.Name != "10.0.0.1" {
		t.Errorf("expected name to fall back to ip, got %q", d.Name)
	}
}

func TestNormalizeAll(t *testing.T) {
	missingPassword := validRecord()
	missingPassword[FieldAddress] = "10.0.0.2/24"
	delete(missingPassword, FieldPassword)

	duplicate := validRecord()
	duplicate[FieldName] = "shadow"

	result, err := NormalizeAll([]Record{validRecord(), missingPassword, duplicate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Fetched != 3 {
		t.Errorf("expected 3 fetched, got %d", result.Fetched)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}
	if len(result.Duplicates) != 1 || result.Duplicates[0] != "10.0.0.1" {
		t.Errorf("expected duplicate 10.0.0.1, got %v", result.Duplicates)
	}
	if result.Snapshot.Len() != 1 {
		t.Fatalf("expected 1 device, got %d", result.Snapshot.Len())
	}
	if d, _ := result.Snapshot.Get("10.0.0.1"); d.Name != "core-sw1" {
		t.Errorf("first occurrence should win, got %q", d.Name)
	}
}

func TestNormalizeAll_SchemaErrorAborts(t *testing.T) {
	bad := validRecord()
	bad[FieldAddress] = "10.0.0.9/24"
	bad[FieldPort] = "twenty-two"

	result, err := NormalizeAll([]Record{validRecord(), bad})
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if result != nil {
		t.Error("expected no result on schema error")
	}
}

func TestRender(t *testing.T) {
	s := domain.NewSnapshot(
		domain.Device{Name: "b", IP: "10.0.0.10", Platform: "junos", Port: 830, Username: "u", Password: "p", Group: "default"},
		domain.Device{Name: "a", IP: "10.0.0.1", Platform: "ios", Port: 22, Username: "a", Password: "b", Group: "default"},
	)

	got := Render(s)
	want := "10.0.0.1:ios:a:b:22\n10.0.0.10:junos:u:p:830"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if Render(domain.Snapshot{}) != "" {
		t.Error("empty snapshot should render as empty body")
	}
}
