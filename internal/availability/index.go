// Package availability tracks which slots are currently claimed. It is the
// single source of truth for booking conflicts.
package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

var (
	ErrAlreadyHeld     = errors.New("slot already held")
	ErrLockNotAcquired = errors.New("slot lock not acquired")
	ErrMalformedKey    = errors.New("malformed slot key")
)

const keySep = "|"

// Key identifies one slot: a doctor, a calendar day and a time of day.
type Key struct {
	DoctorID  string
	Date      time.Time
	TimeOfDay string
}

func NewKey(doctorID string, date time.Time, timeOfDay string) Key {
	return Key{DoctorID: doctorID, Date: calendar.Normalize(date), TimeOfDay: timeOfDay}
}

func (k Key) String() string {
	return k.DoctorID + keySep + calendar.FormatDate(k.Date) + keySep + k.TimeOfDay
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, keySep, 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	d, err := calendar.ParseDate(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return Key{DoctorID: parts[0], Date: d, TimeOfDay: parts[2]}, nil
}

// Index records held slots. Hold is an insert-if-absent: for concurrent
// callers on the same key exactly one gets nil and the rest ErrAlreadyHeld.
// Release of an unheld key is a no-op.
type Index interface {
	IsHeld(ctx context.Context, key Key) (bool, error)
	Hold(ctx context.Context, key Key) error
	Release(ctx context.Context, key Key) error
	// Holds lists every key currently held, in no particular order.
	Holds(ctx context.Context) ([]Key, error)
}

// Locker serialises writers of a single key. fn runs while the lock is held.
// Acquisition is bounded: a key that stays busy yields ErrLockNotAcquired and
// a cancelled ctx stops the wait with ctx.Err().
type Locker interface {
	WithLock(ctx context.Context, key Key, fn func(ctx context.Context) error) error
}
