package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

const defaultDashboardNearest = 4

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidSlot        = errors.New("invalid slot")
	ErrDoctorNotFound     = catalog.ErrDoctorNotFound
	ErrSlotConflict       = errors.New("slot is no longer available")
	ErrForbidden          = errors.New("appointment belongs to another patient")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPersistenceFailure = errors.New("persistence failure")
)

type ServiceConfig struct {
	Repo    Repository
	Doctors catalog.Catalog
	Index   availability.Index
	Locker  availability.Locker

	// Location decides which calendar day "today" is.
	Location         *time.Location
	DashboardNearest int

	Metrics *metrics.Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Service is the scheduling core: booking, lifecycle transitions, patient
// queries and index reconciliation all go through it.
type Service struct {
	repo    Repository
	doctors catalog.Catalog
	index   availability.Index
	locker  availability.Locker

	loc     *time.Location
	nearest int

	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:    cfg.Repo,
		doctors: cfg.Doctors,
		index:   cfg.Index,
		locker:  cfg.Locker,
		loc:     cfg.Location,
		nearest: cfg.DashboardNearest,
		metrics: cfg.Metrics,
		log:     cfg.Logger.With().Str("component", "appointment").Logger(),
		now:     cfg.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.nearest <= 0 {
		s.nearest = defaultDashboardNearest
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Today is the current calendar day at the clinic.
func (s *Service) Today() time.Time {
	return calendar.Day(s.now(), s.loc)
}

func persistenceFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistenceFailure, op, err)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
