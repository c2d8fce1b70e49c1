// Package catalog is the read-only doctor directory the scheduler books
// against, plus the slot derivation that turns a doctor's template into
// concrete bookable slots.
package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

var ErrDoctorNotFound = errors.New("doctor not found")

// DefaultSlotTemplate is the clinic's standard day: two morning and two
// afternoon hours in half-hour steps.
var DefaultSlotTemplate = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
}

type Doctor struct {
	ID              string
	Name            string
	Specialty       string
	ExperienceYears int
	Rating          float64
	ImageURL        string
	Bio             string
	WorkingDays     []time.Weekday
	SlotTemplate    []string
	ConsultationFee float64
}

// Catalog is the collaborator the scheduler reads doctors from.
type Catalog interface {
	Get(ctx context.Context, id string) (*Doctor, error)
	// List returns every doctor, or only those whose specialty matches
	// case-insensitively when specialty is non-empty.
	List(ctx context.Context, specialty string) ([]Doctor, error)
}

// ClosedOn reports the clinic-wide closing day.
func ClosedOn(wd time.Weekday) bool {
	return wd == time.Sunday
}

// WorksOn reports whether the doctor sees patients on wd. A doctor with no
// working days configured works every day the clinic is open.
func (d Doctor) WorksOn(wd time.Weekday) bool {
	if ClosedOn(wd) {
		return false
	}
	if len(d.WorkingDays) == 0 {
		return true
	}
	return slices.Contains(d.WorkingDays, wd)
}

func (d Doctor) Template() []string {
	if len(d.SlotTemplate) == 0 {
		return DefaultSlotTemplate
	}
	return d.SlotTemplate
}

func (d Doctor) OffersTime(timeOfDay string) bool {
	return slices.Contains(d.Template(), timeOfDay)
}

// DayNames renders working days the way the directory has always shown them.
func (d Doctor) DayNames() []string {
	names := make([]string, 0, len(d.WorkingDays))
	for _, wd := range d.WorkingDays {
		names = append(names, wd.String())
	}
	return names
}

// ParseWeekday accepts full English day names in any case.
func ParseWeekday(name string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), strings.TrimSpace(name)) {
			return wd, true
		}
	}
	return 0, false
}

func matchesSpecialty(d Doctor, specialty string) bool {
	return specialty == "" || strings.EqualFold(d.Specialty, strings.TrimSpace(specialty))
}
