package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

func testChange() Change {
	return Change{SyncID: "abc", Devices: 3, ChangedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestReloader_Success(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet || r.URL.Path != "/oxidized/reload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("expected basic auth, got %q/%q ok=%v", user, pass, ok)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r, err := NewReloader(srv.URL+"/oxidized/", "admin", "secret", 0)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	if err := r.Notify(context.Background(), testChange()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one reload call, got %d", calls.Load())
	}
}

func TestReloader_NoAuthWhenUsernameEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			t.Error("did not expect basic auth")
		}
	}))
	defer srv.Close()

	r, _ := NewReloader(srv.URL, "", "", time.Second)
	if err := r.Notify(context.Background(), testChange()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}

func TestReloader_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"no content is not success", http.StatusNoContent},
		{"unauthorized", http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			r, _ := NewReloader(srv.URL, "", "", time.Second)
			err := r.Notify(context.Background(), testChange())
			if !errors.Is(err, domain.ErrNotify) {
				t.Errorf("expected ErrNotify, got %v", err)
			}
		})
	}
}

func TestReloader_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r, _ := NewReloader(srv.URL, "", "", 50*time.Millisecond)
	start := time.Now()
	err := r.Notify(context.Background(), testChange())
	if !errors.Is(err, domain.ErrNotify) {
		t.Fatalf("expected ErrNotify, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("notify should be bounded by its timeout")
	}
}

func TestNewReloader_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "oxidized:8888", "ftp://host"} {
		if _, err := NewReloader(u, "", "", 0); err == nil {
			t.Errorf("%q: expected error", u)
		}
	}
}

type fakeToken struct {
	done    chan struct{}
	err     error
	timeout bool
}

func newFakeToken(err error, timeout bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err, timeout: timeout}
	if !timeout {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	topic        string
	qos          byte
	retained     bool
	payload      []byte
	token        pahomqtt.Token
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	p.topic, p.qos, p.retained = topic, qos, retained
	p.payload, _ = payload.([]byte)
	return p.token
}

func (p *fakePublisher) Disconnect(uint) { p.disconnected = true }

func TestMQTTPublisher_Notify(t *testing.T) {
	fp := &fakePublisher{token: newFakeToken(nil, false)}
	pub := newMQTTPublisher(fp, "oxidized/inventory/changed")

	if err := pub.Notify(context.Background(), testChange()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if fp.topic != "oxidized/inventory/changed" || !fp.retained || fp.qos != 1 {
		t.Errorf("unexpected publish topic=%s qos=%d retained=%v", fp.topic, fp.qos, fp.retained)
	}

	var got Change
	if err := json.Unmarshal(fp.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Devices != 3 || got.SyncID != "abc" || !got.ChangedAt.Equal(testChange().ChangedAt) {
		t.Errorf("unexpected payload %+v", got)
	}

	pub.Close()
	if !fp.disconnected {
		t.Error("Close should disconnect")
	}
}

func TestMQTTPublisher_Failures(t *testing.T) {
	for name, token := range map[string]pahomqtt.Token{
		"broker error": newFakeToken(errors.New("not authorized"), false),
		"timeout":      newFakeToken(nil, true),
	} {
		t.Run(name, func(t *testing.T) {
			pub := newMQTTPublisher(&fakePublisher{token: token}, "t")
			if err := pub.Notify(context.Background(), testChange()); !errors.Is(err, domain.ErrNotify) {
				t.Errorf("expected ErrNotify, got %v", err)
			}
		})
	}
}

type recordingNotifier struct {
	name  string
	err   error
	calls int
}

func (r *recordingNotifier) Name() string { return r.name }
func (r *recordingNotifier) Notify(context.Context, Change) error {
	r.calls++
	return r.err
}

func TestMulti(t *testing.T) {
	ok := &recordingNotifier{name: "ok"}
	failing := &recordingNotifier{name: "broken", err: errors.New("boom")}
	last := &recordingNotifier{name: "last"}

	n := NewMulti(ok, nil, failing, last)
	err := n.Notify(context.Background(), testChange())
	if !errors.Is(err, domain.ErrNotify) {
		t.Fatalf("expected ErrNotify, got %v", err)
	}
	if ok.calls != 1 || failing.calls != 1 || last.calls != 1 {
		t.Errorf("every notifier should be attempted once: %d %d %d", ok.calls, failing.calls, last.calls)
	}

	if _, isNop := NewMulti().(Nop); !isNop {
		t.Error("empty multi should be Nop")
	}
	if single := NewMulti(nil, ok); single != Notifier(ok) {
		t.Error("single notifier should be returned as-is")
	}
	if err := (Nop{}).Notify(context.Background(), testChange()); err != nil {
		t.Errorf("Nop should never fail: %v", err)
	}
}

func TestInstrument(t *testing.T) {
	inner := &recordingNotifier{name: "inner", err: errors.New("nope")}
	n := Instrument(inner, nil)

	if n.Name() != "inner" {
		t.Errorf("instrumented notifier should keep its name, got %q", n.Name())
	}
	if err := n.Notify(context.Background(), testChange()); err == nil {
		t.Error("error should pass through")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}
