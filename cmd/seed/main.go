package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/catalog"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Medicine",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	logger := logging.New("seed", os.Getenv("APP_ENV"), "info")
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	count := 20
	if v := os.Getenv("SEED_DOCTORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Fatal().Str("SEED_DOCTORS", v).Msg("SEED_DOCTORS must be a non-negative integer")
		}
		count = n
	}

	if err := db.MigrateUp(dsn); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctors := catalog.NewPgCatalog(pool)
	if err := seedDoctors(context.Background(), doctors, count, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}

	logger.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, doctors *catalog.PgCatalog, count int, logger zerolog.Logger) error {
	defaults := catalog.DefaultDoctors()
	logger.Info().Int("default", len(defaults)).Int("generated", count).Msg("seeding doctors")

	for _, d := range defaults {
		if err := doctors.Upsert(ctx, d); err != nil {
			return err
		}
	}

	for i := 0; i < count; i++ {
		if err := doctors.Upsert(ctx, fakeDoctor(i)); err != nil {
			return err
		}
	}

	logger.Info().Msg("doctors seeded")
	return nil
}

func fakeDoctor(i int) catalog.Doctor {
	specialty := specialties[gofakeit.Number(0, len(specialties)-1)]

	var days []time.Weekday
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		if gofakeit.Number(0, 1) == 1 {
			days = append(days, wd)
		}
	}
	if len(days) == 0 {
		days = []time.Weekday{time.Monday}
	}

	return catalog.Doctor{
		ID:              fmt.Sprintf("doc-gen-%03d", i+1),
		Name:            "Dr. " + gofakeit.Name(),
		Specialty:       specialty,
		ExperienceYears: gofakeit.Number(2, 35),
		Rating:          float64(gofakeit.Number(35, 50)) / 10,
		WorkingDays:     days,
		SlotTemplate:    catalog.DefaultSlotTemplate,
		ConsultationFee: float64(gofakeit.Number(50, 250)),
		Bio:             specialty + " specialist.",
	}
}
