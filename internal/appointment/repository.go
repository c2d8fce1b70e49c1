package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrSlotTaken is the store's own uniqueness guard on scheduled slots.
	ErrSlotTaken = errors.New("slot already has a scheduled appointment")
)

// Repository contains all storage interactions needed by the service.
type Repository interface {
	// CreateAppointment inserts a. It returns ErrSlotTaken when another
	// scheduled appointment already claims the same slot.
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateAppointmentStatus moves id from one status to another and
	// returns ErrAppointmentNotFound if no row is currently in from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// Read side. Results are ordered by date only; callers order times.
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error)

	// Reconciliation
	ListClaimingFrom(ctx context.Context, from time.Time) ([]Appointment, error)
	GetClaimingAppointmentForSlot(ctx context.Context, key availability.Key) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// claims reports whether an appointment in status s keeps its slot held.
func claims(s AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusCompleted:
		return true
	case StatusCancelled:
		return false
	}
	return false
}
