package appointment

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

// ListForPatient returns the patient's appointments in calendar order: by
// date, then by time of day.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, filter)
	if err != nil {
		return nil, persistenceFailure("list appointments", err)
	}
	sortChronologically(appts)
	return appts, nil
}

// GetForPatient returns one appointment if the patient owns it.
func (s *Service) GetForPatient(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrForbidden
	}
	return appt, nil
}

// UpcomingCount counts scheduled appointments on or after now's calendar day.
func (s *Service) UpcomingCount(ctx context.Context, patientID uuid.UUID, now time.Time) (int, error) {
	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, ListFilter{Status: StatusScheduled})
	if err != nil {
		return 0, persistenceFailure("list appointments", err)
	}

	today := calendar.Day(now, s.loc)
	n := 0
	for _, a := range appts {
		if isUpcoming(a, today) {
			n++
		}
	}
	return n, nil
}

// DashboardSummary is recomputed on every call and has no side effects.
func (s *Service) DashboardSummary(ctx context.Context, patientID uuid.UUID) (Summary, error) {
	appts, err := s.ListForPatient(ctx, patientID, ListFilter{})
	if err != nil {
		return Summary{}, err
	}

	today := s.Today()
	summary := Summary{Total: len(appts), Nearest: []Appointment{}}
	for _, a := range appts {
		if !isUpcoming(a, today) {
			continue
		}
		summary.Upcoming++
		if len(summary.Nearest) < s.nearest {
			summary.Nearest = append(summary.Nearest, a)
		}
	}
	return summary, nil
}

func isUpcoming(a Appointment, today time.Time) bool {
	return a.Status == StatusScheduled && !calendar.Normalize(a.Date).Before(today)
}

func sortChronologically(appts []Appointment) {
	slices.SortStableFunc(appts, func(a, b Appointment) int {
		if c := calendar.Normalize(a.Date).Compare(calendar.Normalize(b.Date)); c != 0 {
			return c
		}
		if c := calendar.CompareTimeOfDay(a.TimeOfDay, b.TimeOfDay); c != 0 {
			return c
		}
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
}
