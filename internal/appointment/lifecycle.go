package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

// Cancel moves a patient's scheduled appointment to cancelled and frees its
// slot. The status change and the release happen under the slot's lock, so
// a concurrent booking sees the slot either still held or fully free.
func (s *Service) Cancel(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	appt, err := s.cancel(ctx, id, patientID)
	s.metrics.RecordTransition(string(StatusCancelled), outcome(err))
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
		"patient_id": patientID.String(),
		"slot":       appt.Key().String(),
	})
	return appt, nil
}

func (s *Service) cancel(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrForbidden
	}
	if !canTransition(appt.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, appt.Status)
	}

	key := appt.Key()
	var updated *Appointment
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		u, err := s.repo.UpdateAppointmentStatus(lockCtx, appt.ID, StatusScheduled, StatusCancelled)
		if err != nil {
			return s.transitionError(err)
		}
		updated = u

		if err := s.index.Release(context.WithoutCancel(lockCtx), key); err != nil {
			s.log.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Str("slot", key.String()).
				Msg("release hold after cancellation; left for reconciliation")
		}
		return nil
	})
	if err != nil {
		return nil, s.lockError(err)
	}

	return updated, nil
}

// Complete marks a scheduled appointment as seen. Only appointments dated
// today or earlier can be completed; the slot stays held, which can no
// longer block a future booking.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.complete(ctx, id)
	s.metrics.RecordTransition(string(StatusCompleted), outcome(err))
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{})
	return appt, nil
}

func (s *Service) complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(appt.Status, StatusCompleted) {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, appt.Status)
	}
	if appt.Date.After(s.Today()) {
		return nil, fmt.Errorf("%w: appointment on %s has not taken place yet",
			ErrInvalidTransition, calendar.FormatDate(appt.Date))
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCompleted)
	if err != nil {
		return nil, s.transitionError(err)
	}
	return updated, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, persistenceFailure("load appointment", err)
	}
	return appt, nil
}

// transitionError maps a failed conditional update. No row in the expected
// status means another writer moved the appointment first.
func (s *Service) transitionError(err error) error {
	if errors.Is(err, ErrAppointmentNotFound) {
		return fmt.Errorf("%w: appointment is no longer scheduled", ErrInvalidTransition)
	}
	return persistenceFailure("update status", err)
}

// lockError passes domain errors from inside the lock through. A busy lock
// is reported as a retryable failure.
func (s *Service) lockError(err error) error {
	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrPersistenceFailure) {
		return err
	}
	return persistenceFailure("lock slot", err)
}
