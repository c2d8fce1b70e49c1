package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
)

type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  string
	Date      time.Time
	TimeOfDay string
	Reason    string
	Notes     *string
}

// Book claims a slot for a patient and records the appointment.
//
// Checks run in a fixed order and the first failure wins: missing fields,
// the doctor's template, the calendar, the doctor itself. The slot is then
// held in the availability index and the appointment persisted while the
// key lock is held. If persisting fails the hold is released again.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	appt, err := s.book(ctx, req)
	s.metrics.RecordBooking(outcome(err))
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"patient_id":  appt.PatientID.String(),
		"doctor_id":   appt.DoctorID,
		"date":        calendar.FormatDate(appt.Date),
		"time_of_day": appt.TimeOfDay,
	})
	return appt, nil
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	reason := strings.TrimSpace(req.Reason)
	switch {
	case reason == "":
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	case req.PatientID == uuid.Nil:
		return nil, fmt.Errorf("%w: patient is required", ErrInvalidInput)
	case strings.TrimSpace(req.DoctorID) == "":
		return nil, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	case strings.TrimSpace(req.TimeOfDay) == "":
		return nil, fmt.Errorf("%w: time is required", ErrInvalidInput)
	case req.Date.IsZero():
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	doc, err := s.validateSlot(ctx, req.DoctorID, req.Date, req.TimeOfDay)
	if err != nil {
		return nil, err
	}

	var notes *string
	if req.Notes != nil && strings.TrimSpace(*req.Notes) != "" {
		n := strings.TrimSpace(*req.Notes)
		notes = &n
	}

	draft := &Appointment{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		DoctorID:        doc.ID,
		DoctorName:      doc.Name,
		DoctorSpecialty: doc.Specialty,
		Date:            calendar.Normalize(req.Date),
		TimeOfDay:       req.TimeOfDay,
		Reason:          reason,
		Notes:           notes,
		Status:          StatusScheduled,
	}
	key := draft.Key()

	var created *Appointment
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		if err := s.index.Hold(lockCtx, key); err != nil {
			if errors.Is(err, availability.ErrAlreadyHeld) {
				return fmt.Errorf("%w: %s", ErrSlotConflict, key)
			}
			return persistenceFailure("hold slot", err)
		}

		appt, err := s.repo.CreateAppointment(lockCtx, draft)
		if err != nil {
			// The store already has a scheduled appointment on this key, so
			// the hold we just took belongs to it.
			if errors.Is(err, ErrSlotTaken) {
				return fmt.Errorf("%w: %s", ErrSlotConflict, key)
			}
			s.compensate(lockCtx, key, err)
			return persistenceFailure("create appointment", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrLockNotAcquired):
			return nil, s.busySlotError(ctx, key)
		case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrPersistenceFailure):
			return nil, err
		default:
			return nil, persistenceFailure("lock slot", err)
		}
	}

	return created, nil
}

// validateSlot resolves the doctor and checks the requested slot against
// the doctor's template and the calendar. For an unknown doctor the
// calendar checks that need no doctor still run first.
func (s *Service) validateSlot(ctx context.Context, doctorID string, date time.Time, timeOfDay string) (*catalog.Doctor, error) {
	today := s.Today()
	day := calendar.Normalize(date)

	doc, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if !errors.Is(err, catalog.ErrDoctorNotFound) {
			return nil, persistenceFailure("load doctor", err)
		}
		if day.Before(today) {
			return nil, fmt.Errorf("%w: %s is in the past", ErrInvalidSlot, calendar.FormatDate(day))
		}
		if catalog.ClosedOn(day.Weekday()) {
			return nil, fmt.Errorf("%w: the clinic is closed on %s", ErrInvalidSlot, day.Weekday())
		}
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorID)
	}

	if !doc.OffersTime(timeOfDay) {
		return nil, fmt.Errorf("%w: %s is not one of %s's times", ErrInvalidSlot, timeOfDay, doc.Name)
	}
	if day.Before(today) {
		return nil, fmt.Errorf("%w: %s is in the past", ErrInvalidSlot, calendar.FormatDate(day))
	}
	if !doc.WorksOn(day.Weekday()) {
		return nil, fmt.Errorf("%w: %s does not work on %s", ErrInvalidSlot, doc.Name, day.Weekday())
	}

	return doc, nil
}

// busySlotError decides what a busy slot lock means for the caller. A held
// slot is lost to another patient. Otherwise the lock belongs to a cancel or
// a reconciliation pass and the booking can be retried.
func (s *Service) busySlotError(ctx context.Context, key availability.Key) error {
	held, err := s.index.IsHeld(ctx, key)
	if err != nil {
		return persistenceFailure("check slot hold", err)
	}
	if held {
		return fmt.Errorf("%w: %s", ErrSlotConflict, key)
	}
	return persistenceFailure("lock slot", fmt.Errorf("%s is busy: %w", key, availability.ErrLockNotAcquired))
}

// compensate undoes a hold whose appointment could not be written. A failed
// release leaves a ghost hold for ReconcileHolds.
func (s *Service) compensate(ctx context.Context, key availability.Key, cause error) {
	if err := s.index.Release(context.WithoutCancel(ctx), key); err != nil {
		s.log.Error().Err(err).
			AnErr("cause", cause).
			Str("slot", key.String()).
			Msg("release hold after failed booking; left for reconciliation")
	}
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, ErrDoctorNotFound):
		return "doctor_not_found"
	case errors.Is(err, ErrSlotConflict):
		return "conflict"
	case errors.Is(err, ErrAppointmentNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "failure"
	}
}
