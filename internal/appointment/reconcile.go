package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

type ReconcileReport struct {
	Reheld   int // claiming appointments whose hold was missing
	Released int // holds with no claiming appointment
	Failed   int // keys that could not be repaired this round
}

// ReconcileHolds brings the availability index back in line with the store.
// Appointments from today on that claim a slot get their hold back, and
// holds nobody claims are dropped. Every key is re-checked under its lock
// before it is touched.
func (s *Service) ReconcileHolds(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	today := s.Today()

	claiming, err := s.repo.ListClaimingFrom(ctx, today)
	if err != nil {
		return report, fmt.Errorf("list claiming appointments: %w", err)
	}
	holds, err := s.index.Holds(ctx)
	if err != nil {
		return report, fmt.Errorf("list holds: %w", err)
	}

	held := make(map[string]struct{}, len(holds))
	for _, k := range holds {
		held[k.String()] = struct{}{}
	}

	claimed := make(map[string]struct{}, len(claiming))
	for _, a := range claiming {
		key := a.Key()
		if _, dup := claimed[key.String()]; dup {
			continue
		}
		claimed[key.String()] = struct{}{}
		if _, ok := held[key.String()]; ok {
			continue
		}

		repaired, err := s.rehold(ctx, key)
		if err != nil {
			report.Failed++
			s.log.Warn().Err(err).Str("slot", key.String()).Msg("re-hold slot")
			continue
		}
		if repaired {
			report.Reheld++
		}
	}

	for _, key := range holds {
		if _, ok := claimed[key.String()]; ok {
			continue
		}

		released, err := s.releaseGhost(ctx, key, key.Date.Before(today))
		if err != nil {
			report.Failed++
			s.log.Warn().Err(err).Str("slot", key.String()).Msg("release ghost hold")
			continue
		}
		if released {
			report.Released++
		}
	}

	s.metrics.RecordRepair("rehold", report.Reheld)
	s.metrics.RecordRepair("release", report.Released)

	if report.Reheld > 0 || report.Released > 0 || report.Failed > 0 {
		s.log.Info().
			Int("reheld", report.Reheld).
			Int("released", report.Released).
			Int("failed", report.Failed).
			Msg("availability index reconciled")
	}
	return report, nil
}

func (s *Service) rehold(ctx context.Context, key availability.Key) (bool, error) {
	var repaired bool
	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		if _, err := s.repo.GetClaimingAppointmentForSlot(lockCtx, key); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return nil
			}
			return err
		}

		err := s.index.Hold(lockCtx, key)
		switch {
		case err == nil:
			repaired = true
			return nil
		case errors.Is(err, availability.ErrAlreadyHeld):
			return nil
		default:
			return err
		}
	})
	return repaired, err
}

// releaseGhost drops a hold with no owner. Past holds can no longer block a
// booking and are dropped without looking at the store.
func (s *Service) releaseGhost(ctx context.Context, key availability.Key, past bool) (bool, error) {
	var released bool
	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		if !past {
			_, err := s.repo.GetClaimingAppointmentForSlot(lockCtx, key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
		}

		if err := s.index.Release(lockCtx, key); err != nil {
			return err
		}
		released = true
		return nil
	})
	return released, err
}
