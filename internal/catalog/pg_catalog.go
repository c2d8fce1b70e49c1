package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgCatalog reads the doctors table maintained by the directory service.
type PgCatalog struct {
	pool *pgxpool.Pool
}

func NewPgCatalog(pool *pgxpool.Pool) *PgCatalog {
	return &PgCatalog{pool: pool}
}

const doctorColumns = `id, name, specialty, experience_years, rating, image_url, bio,
		working_days, slot_template, consultation_fee`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var days []string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.ExperienceYears,
		&d.Rating,
		&d.ImageURL,
		&d.Bio,
		&days,
		&d.SlotTemplate,
		&d.ConsultationFee,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	for _, name := range days {
		wd, ok := ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("doctor %s: unknown working day %q", d.ID, name)
		}
		d.WorkingDays = append(d.WorkingDays, wd)
	}

	return &d, nil
}

func (c *PgCatalog) Get(ctx context.Context, id string) (*Doctor, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)

	d, err := scanDoctor(row)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return d, nil
}

func (c *PgCatalog) List(ctx context.Context, specialty string) ([]Doctor, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE $1 = '' OR lower(specialty) = lower($1)
		ORDER BY id
	`, strings.TrimSpace(specialty))
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Upsert writes d into the doctors table. Used by cmd/seed.
func (c *PgCatalog) Upsert(ctx context.Context, d Doctor) error {
	days := make([]string, 0, len(d.WorkingDays))
	for _, wd := range d.WorkingDays {
		days = append(days, wd.String())
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO doctors (`+doctorColumns+`, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			specialty = EXCLUDED.specialty,
			experience_years = EXCLUDED.experience_years,
			rating = EXCLUDED.rating,
			image_url = EXCLUDED.image_url,
			bio = EXCLUDED.bio,
			working_days = EXCLUDED.working_days,
			slot_template = EXCLUDED.slot_template,
			consultation_fee = EXCLUDED.consultation_fee,
			updated_at = EXCLUDED.updated_at
	`, d.ID, d.Name, d.Specialty, d.ExperienceYears, d.Rating, d.ImageURL, d.Bio,
		days, d.Template(), d.ConsultationFee, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert doctor %s: %w", d.ID, err)
	}
	return nil
}
