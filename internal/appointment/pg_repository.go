package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

const uniqueViolation = "23505"

var pgDialect = goqu.Dialect("postgres")

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, patient_id, doctor_id, doctor_name, doctor_specialty,
		appointment_date, time_of_day, reason, notes, status, created_at, updated_at`

var appointmentColumnList = []any{
	"id", "patient_id", "doctor_id", "doctor_name", "doctor_specialty",
	"appointment_date", "time_of_day", "reason", "notes", "status", "created_at", "updated_at",
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.DoctorName,
		&a.DoctorSpecialty,
		&a.Date,
		&a.TimeOfDay,
		&a.Reason,
		&notes,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Notes = notes
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns,
		id, a.PatientID, a.DoctorID, a.DoctorName, a.DoctorSpecialty,
		a.Date, a.TimeOfDay, a.Reason, a.Notes, a.Status)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, insertError(err)
	}
	return created, nil
}

// insertError maps a violation of the scheduled-slot unique index to
// ErrSlotTaken.
func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlotTaken
	}
	return fmt.Errorf("insert appointment: %w", err)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	query, args, err := patientListingQuery(patientID, filter)
	if err != nil {
		return nil, fmt.Errorf("build patient listing: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func patientListingQuery(patientID uuid.UUID, filter ListFilter) (string, []any, error) {
	ds := pgDialect.From("appointments").
		Prepared(true).
		Select(appointmentColumnList...).
		Where(goqu.C("patient_id").Eq(patientID.String())).
		Order(goqu.C("appointment_date").Asc(), goqu.C("created_at").Asc())

	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}

	return ds.ToSQL()
}

func (r *PgRepository) ListClaimingFrom(ctx context.Context, from time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('scheduled', 'completed')
		  AND appointment_date >= $1
	`, from)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) GetClaimingAppointmentForSlot(ctx context.Context, key availability.Key) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND time_of_day = $3
		  AND status IN ('scheduled', 'completed')
		ORDER BY status DESC
		LIMIT 1
	`, key.DoctorID, key.Date, key.TimeOfDay)
	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
