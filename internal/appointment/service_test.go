package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

// Friday 16 October 2026, mid-morning at the clinic.
var clock = time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)

var (
	nextMonday = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	yesterday  = time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)
	nextSunday = time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)
)

func testDoctors() []catalog.Doctor {
	return []catalog.Doctor{
		{
			ID:        "dr-a",
			Name:      "Dr. A",
			Specialty: "General Medicine",
			WorkingDays: []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
			},
			ConsultationFee: 100,
		},
		{
			ID:           "dr-b",
			Name:         "Dr. B",
			Specialty:    "Cardiology",
			WorkingDays:  []time.Weekday{time.Tuesday, time.Thursday},
			SlotTemplate: []string{"10:00 AM", "11:00 AM"},
		},
	}
}

type fixture struct {
	svc     *Service
	repo    *MemoryRepository
	index   *availability.MemoryIndex
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, repo Repository, index availability.Index) fixture {
	t.Helper()

	mem := NewMemoryRepository()
	mem.now = func() time.Time { return clock }
	if repo == nil {
		repo = mem
	}
	memIndex := availability.NewMemoryIndex()
	if index == nil {
		index = memIndex
	}
	m := metrics.New(prometheus.NewRegistry())

	svc := NewService(ServiceConfig{
		Repo:    repo,
		Doctors: catalog.NewStaticCatalog(testDoctors()),
		Index:   index,
		Locker:  availability.NewMemoryLocker(),
		Metrics: m,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return clock },
	})
	return fixture{svc: svc, repo: mem, index: memIndex, metrics: m}
}

func checkup(patient uuid.UUID, date time.Time, tod string) BookingRequest {
	return BookingRequest{
		PatientID: patient,
		DoctorID:  "dr-a",
		Date:      date,
		TimeOfDay: tod,
		Reason:    "checkup",
	}
}

func TestBook_ConflictCancelRebook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	p1, p2 := uuid.New(), uuid.New()

	appt, err := f.svc.Book(ctx, checkup(p1, nextMonday, "09:00 AM"))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, "Dr. A", appt.DoctorName)
	assert.Equal(t, "General Medicine", appt.DoctorSpecialty)
	assert.Equal(t, nextMonday, appt.Date)

	held, err := f.index.IsHeld(ctx, appt.Key())
	require.NoError(t, err)
	assert.True(t, held)

	_, err = f.svc.Book(ctx, checkup(p2, nextMonday, "09:00 AM"))
	assert.ErrorIs(t, err, ErrSlotConflict)

	cancelled, err := f.svc.Cancel(ctx, appt.ID, p1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	held, err = f.index.IsHeld(ctx, appt.Key())
	require.NoError(t, err)
	assert.False(t, held)

	rebooked, err := f.svc.Book(ctx, checkup(p2, nextMonday, "09:00 AM"))
	require.NoError(t, err)
	assert.Equal(t, p2, rebooked.PatientID)
	assert.NotEqual(t, appt.ID, rebooked.ID)
}

func TestBook_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	p := uuid.New()

	tests := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{"blank reason", BookingRequest{PatientID: p, DoctorID: "dr-a", Date: nextMonday, TimeOfDay: "09:00 AM", Reason: "  "}, ErrInvalidInput},
		{"no patient", BookingRequest{DoctorID: "dr-a", Date: nextMonday, TimeOfDay: "09:00 AM", Reason: "x"}, ErrInvalidInput},
		{"no time", BookingRequest{PatientID: p, DoctorID: "dr-a", Date: nextMonday, Reason: "x"}, ErrInvalidInput},
		{"no date", BookingRequest{PatientID: p, DoctorID: "dr-a", TimeOfDay: "09:00 AM", Reason: "x"}, ErrInvalidInput},
		{"time outside template", checkup(p, nextMonday, "08:00 AM"), ErrInvalidSlot},
		{"yesterday", checkup(p, yesterday, "09:00 AM"), ErrInvalidSlot},
		{"sunday", checkup(p, nextSunday, "09:00 AM"), ErrInvalidSlot},
		{"doctor day off", BookingRequest{PatientID: p, DoctorID: "dr-b", Date: nextMonday, TimeOfDay: "10:00 AM", Reason: "x"}, ErrInvalidSlot},
		{"unknown doctor", BookingRequest{PatientID: p, DoctorID: "dr-z", Date: nextMonday, TimeOfDay: "09:00 AM", Reason: "x"}, ErrDoctorNotFound},
		{"unknown doctor in the past", BookingRequest{PatientID: p, DoctorID: "dr-z", Date: yesterday, TimeOfDay: "09:00 AM", Reason: "x"}, ErrInvalidSlot},
		{"blank reason beats bad slot", BookingRequest{PatientID: p, DoctorID: "dr-a", Date: yesterday, TimeOfDay: "08:00 AM"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	holds, err := f.index.Holds(ctx)
	require.NoError(t, err)
	assert.Empty(t, holds)
	assert.Empty(t, f.repo.Events())
}

func TestBook_TodayIsBookable(t *testing.T) {
	f := newFixture(t, nil, nil)

	appt, err := f.svc.Book(context.Background(), checkup(uuid.New(), clock, "04:30 PM"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC), appt.Date)
}

func TestBook_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(ctx, checkup(uuid.New(), nextMonday, "10:30 AM"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

type failingCreateRepo struct {
	*MemoryRepository
	err error
}

func (r failingCreateRepo) CreateAppointment(context.Context, *Appointment) (*Appointment, error) {
	return nil, r.err
}

func TestBook_PersistenceFailureReleasesHold(t *testing.T) {
	ctx := context.Background()
	repo := failingCreateRepo{MemoryRepository: NewMemoryRepository(), err: errors.New("connection reset")}
	f := newFixture(t, repo, nil)

	req := checkup(uuid.New(), nextMonday, "09:00 AM")
	_, err := f.svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	held, err := f.index.IsHeld(ctx, availability.NewKey(req.DoctorID, req.Date, req.TimeOfDay))
	require.NoError(t, err)
	assert.False(t, held)
}

func TestBook_StoreUniquenessKeepsHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	first, err := f.svc.Book(ctx, checkup(uuid.New(), nextMonday, "09:00 AM"))
	require.NoError(t, err)

	// Index lost its entry; the store still guards the slot.
	require.NoError(t, f.index.Release(ctx, first.Key()))

	_, err = f.svc.Book(ctx, checkup(uuid.New(), nextMonday, "09:00 AM"))
	assert.ErrorIs(t, err, ErrSlotConflict)

	held, err := f.index.IsHeld(ctx, first.Key())
	require.NoError(t, err)
	assert.True(t, held)
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, availability.Key, func(context.Context) error) error {
	return availability.ErrLockNotAcquired
}

func TestBook_BusyLock(t *testing.T) {
	ctx := context.Background()
	index := availability.NewMemoryIndex()
	svc := NewService(ServiceConfig{
		Repo:    NewMemoryRepository(),
		Doctors: catalog.NewStaticCatalog(testDoctors()),
		Index:   index,
		Locker:  busyLocker{},
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return clock },
	})
	req := checkup(uuid.New(), nextMonday, "09:00 AM")

	// free slot, lock taken by another writer: retryable
	_, err := svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.NotErrorIs(t, err, ErrSlotConflict)

	// held slot: lost to another patient
	require.NoError(t, index.Hold(ctx, availability.NewKey(req.DoctorID, req.Date, req.TimeOfDay)))
	_, err = svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCancel_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner, other := uuid.New(), uuid.New()

	appt, err := f.svc.Book(ctx, checkup(owner, nextMonday, "09:00 AM"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = f.svc.Cancel(ctx, appt.ID, other)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, stored.Status)
	held, err := f.index.IsHeld(ctx, appt.Key())
	require.NoError(t, err)
	assert.True(t, held)

	_, err = f.svc.Cancel(ctx, appt.ID, owner)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, appt.ID, owner)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Complete(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestComplete_KeepsHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	p := uuid.New()

	appt, err := f.svc.Book(ctx, checkup(p, clock, "11:00 AM"))
	require.NoError(t, err)

	done, err := f.svc.Complete(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	held, err := f.index.IsHeld(ctx, appt.Key())
	require.NoError(t, err)
	assert.True(t, held)

	_, err = f.svc.Cancel(ctx, appt.ID, p)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// reconciliation keeps the completed appointment's hold
	report, err := f.svc.ReconcileHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{}, report)

	var types []string
	for _, ev := range f.repo.Events() {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{EventAppointmentBooked, EventAppointmentCompleted}, types)
}

func TestComplete_FutureAppointmentRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	p1, p2 := uuid.New(), uuid.New()

	appt, err := f.svc.Book(ctx, checkup(p1, nextMonday, "09:00 AM"))
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, stored.Status)

	// the patient can still cancel, and the slot opens up again
	_, err = f.svc.Cancel(ctx, appt.ID, p1)
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, checkup(p2, nextMonday, "09:00 AM"))
	require.NoError(t, err)
}

func TestListForPatient_OrderAndIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	p, other := uuid.New(), uuid.New()
	tuesday := nextMonday.AddDate(0, 0, 1)

	for _, req := range []BookingRequest{
		checkup(p, tuesday, "09:00 AM"),
		checkup(p, nextMonday, "02:00 PM"),
		checkup(p, nextMonday, "09:30 AM"),
		checkup(other, nextMonday, "10:00 AM"),
	} {
		_, err := f.svc.Book(ctx, req)
		require.NoError(t, err)
	}

	list, err := f.svc.ListForPatient(ctx, p, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)

	var got []string
	for _, a := range list {
		assert.Equal(t, p, a.PatientID)
		got = append(got, a.Date.Format("Mon")+" "+a.TimeOfDay)
	}
	assert.Equal(t, []string{"Mon 09:30 AM", "Mon 02:00 PM", "Tue 09:00 AM"}, got)

	_, err = f.svc.GetForPatient(ctx, list[0].ID, other)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	p := uuid.New()

	var booked []*Appointment
	for _, tod := range []string{"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM"} {
		a, err := f.svc.Book(ctx, checkup(p, nextMonday, tod))
		require.NoError(t, err)
		booked = append(booked, a)
	}
	_, err := f.svc.Cancel(ctx, booked[0].ID, p)
	require.NoError(t, err)

	summary, err := f.svc.DashboardSummary(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 5, summary.Upcoming)
	require.Len(t, summary.Nearest, defaultDashboardNearest)
	assert.Equal(t, "09:30 AM", summary.Nearest[0].TimeOfDay)

	n, err := f.svc.UpcomingCount(ctx, p, clock)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.svc.UpcomingCount(ctx, p, nextMonday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Zero(t, n)

	empty, err := f.svc.DashboardSummary(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Nearest)
}

func TestReconcileHolds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	lost, err := f.svc.Book(ctx, checkup(uuid.New(), nextMonday, "09:00 AM"))
	require.NoError(t, err)
	kept, err := f.svc.Book(ctx, checkup(uuid.New(), nextMonday, "09:30 AM"))
	require.NoError(t, err)

	require.NoError(t, f.index.Release(ctx, lost.Key()))
	ghost := availability.NewKey("dr-a", nextMonday, "10:00 AM")
	stale := availability.NewKey("dr-a", yesterday, "10:00 AM")
	require.NoError(t, f.index.Hold(ctx, ghost))
	require.NoError(t, f.index.Hold(ctx, stale))

	report, err := f.svc.ReconcileHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Reheld: 1, Released: 2}, report)

	for key, want := range map[availability.Key]bool{
		lost.Key(): true,
		kept.Key(): true,
		ghost:      false,
		stale:      false,
	} {
		held, err := f.index.IsHeld(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, held, key.String())
	}

	again, err := f.svc.ReconcileHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{}, again)
}
