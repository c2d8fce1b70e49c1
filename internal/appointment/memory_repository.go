package appointment

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

// MemoryRepository keeps appointments in process. It enforces the same
// one-scheduled-appointment-per-slot rule as the Postgres schema.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Appointment
	events []EventLog
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[uuid.UUID]*Appointment),
		now:  time.Now,
	}
}

func clone(a *Appointment) *Appointment {
	c := *a
	if a.Notes != nil {
		n := *a.Notes
		c.Notes = &n
	}
	return &c
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := a.Key()
	if a.Status == StatusScheduled {
		for _, existing := range r.byID {
			if existing.Status == StatusScheduled && existing.Key() == key {
				return nil, ErrSlotTaken
			}
		}
	}

	stored := clone(a)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.Date = calendar.Normalize(stored.Date)
	now := r.now()
	stored.CreatedAt, stored.UpdatedAt = now, now

	r.byID[stored.ID] = stored
	return clone(stored), nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = r.now()
	return clone(a), nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.byID {
		if a.PatientID != patientID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		result = append(result, *clone(a))
	}

	slices.SortFunc(result, func(a, b Appointment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) ListClaimingFrom(_ context.Context, from time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	from = calendar.Normalize(from)
	var result []Appointment
	for _, a := range r.byID {
		if claims(a.Status) && !a.Date.Before(from) {
			result = append(result, *clone(a))
		}
	}
	return result, nil
}

func (r *MemoryRepository) GetClaimingAppointmentForSlot(_ context.Context, key availability.Key) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if claims(a.Status) && a.Key() == key {
			return clone(a), nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns the audit log in insertion order.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events)
}
