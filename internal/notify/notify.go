// Package notify tells downstream consumers that the inventory changed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

// Change describes a committed snapshot replacement.
type Change struct {
	SyncID    string    `json:"sync_id"`
	Devices   int       `json:"devices"`
	ChangedAt time.Time `json:"changed_at"`
}

// Notifier delivers a change notification.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
	Name() string
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Change) error { return nil }
func (Nop) Name() string                          { return "nop" }

// Multi fans a change out to every notifier. All notifiers are attempted;
// failures are joined and wrapped with domain.ErrNotify.
type Multi []Notifier

// NewMulti drops nil entries. It returns Nop when nothing remains and the
// single notifier when only one does.
func NewMulti(notifiers ...Notifier) Notifier {
	var m Multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	switch len(m) {
	case 0:
		return Nop{}
	case 1:
		return m[0]
	}
	return m
}

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, change Change) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, change); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrNotify, errors.Join(errs...))
}

// Members returns the notifiers Multi dispatches to.
func (m Multi) Members() []Notifier {
	return append([]Notifier(nil), m...)
}
