package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

var ErrInvalidRange = errors.New("invalid date range")

// Slot is a bookable coordinate. It is derived, never stored.
type Slot struct {
	DoctorID  string
	Date      time.Time
	TimeOfDay string
}

func (s Slot) Key() availability.Key {
	return availability.NewKey(s.DoctorID, s.Date, s.TimeOfDay)
}

// Slots yields every template slot for doc between from and to inclusive,
// skipping days before today and days the doctor does not work. The
// sequence can be ranged over any number of times.
func Slots(doc Doctor, from, to, today time.Time) iter.Seq[Slot] {
	from, to, today = calendar.Normalize(from), calendar.Normalize(to), calendar.Normalize(today)
	template := doc.Template()

	return func(yield func(Slot) bool) {
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			if day.Before(today) || !doc.WorksOn(day.Weekday()) {
				continue
			}
			for _, tod := range template {
				if !yield(Slot{DoctorID: doc.ID, Date: day, TimeOfDay: tod}) {
					return
				}
			}
		}
	}
}

// SlotCatalog resolves doctors and derives their slots against the clinic
// clock. It never looks at occupancy.
type SlotCatalog struct {
	doctors Catalog
	loc     *time.Location
	now     func() time.Time
	maxDays int
}

func NewSlotCatalog(doctors Catalog, loc *time.Location, maxDays int, now func() time.Time) *SlotCatalog {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &SlotCatalog{doctors: doctors, loc: loc, now: now, maxDays: maxDays}
}

// Today is the current calendar day in the clinic's time zone.
func (c *SlotCatalog) Today() time.Time {
	return calendar.Day(c.now(), c.loc)
}

func (c *SlotCatalog) AvailableSlots(ctx context.Context, doctorID string, from, to time.Time) (iter.Seq[Slot], error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, calendar.FormatDate(from), calendar.FormatDate(to))
	}
	if c.maxDays > 0 && int(calendar.Normalize(to).Sub(calendar.Normalize(from)).Hours()/24) >= c.maxDays {
		return nil, fmt.Errorf("%w: at most %d days per request", ErrInvalidRange, c.maxDays)
	}

	doc, err := c.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	return Slots(*doc, from, to, c.Today()), nil
}
