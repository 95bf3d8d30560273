package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/bunpmc/clinic-scheduling/internal/booking"
	"github.com/bunpmc/clinic-scheduling/internal/db"
)

var log zerolog.Logger

func main() {
	log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()

	doctorIDs, err := seedDoctors(seedCtx, pool, 30)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	categoryIDs, err := seedCategories(seedCtx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("seed categories")
	}
	patientIDs, err := seedPatients(seedCtx, pool, 2000)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	guestIDs, err := seedGuests(seedCtx, pool, 400)
	if err != nil {
		log.Fatal().Err(err).Msg("seed guests")
	}
	assignmentIDs, err := seedSlotsAndAssignments(seedCtx, pool, doctorIDs, 30)
	if err != nil {
		log.Fatal().Err(err).Msg("seed slots")
	}
	if err := seedAppointments(seedCtx, pool, patientIDs, guestIDs, doctorIDs, categoryIDs, assignmentIDs, 3000); err != nil {
		log.Fatal().Err(err).Msg("seed appointments")
	}

	log.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	specialties := []string{
		"Obstetrics",
		"Gynecology",
		"Endocrinology",
		"Dermatology",
		"General Practice",
		"Urology",
		"Psychiatry",
		"Reproductive Health",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, full_name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("doctors seeded")
	return ids, nil
}

func seedCategories(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	names := []string{
		"General Checkup",
		"Prenatal Care",
		"Hormone Therapy",
		"Counseling",
		"Lab Testing",
		"Vaccination",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		id := uuid.New()
		desc := gofakeit.Sentence(8)

		_, err := tx.Exec(ctx, `
			INSERT INTO categories (id, name, description, created_at)
			VALUES ($1, $2, $3, now())
		`, id, name, desc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Int("count", len(ids)).Msg("categories seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			dob := gofakeit.DateRange(
				time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2007, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, full_name, phone, email, date_of_birth, gender, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, id, gofakeit.Name(), gofakeit.Phone(), gofakeit.Email(), dob, gofakeit.Gender())
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return ids, nil
}

func seedGuests(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding guests")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO guests (id, full_name, phone, email, date_of_birth, gender, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, id, gofakeit.Name(), gofakeit.Phone(), gofakeit.Email(), nil, gofakeit.Gender())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("guests seeded")
	return ids, nil
}

func seedSlotsAndAssignments(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID, days int) ([]uuid.UUID, error) {
	log.Info().Int("days", days).Msg("seeding slots and assignments")

	times := []string{"08:00", "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var assignmentIDs []uuid.UUID
	start := time.Now().Truncate(24 * time.Hour)

	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)

		for _, slotTime := range times {
			slotID := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO slots (id, slot_date, slot_time, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, true, now(), now())
			`, slotID, date, slotTime)
			if err != nil {
				return nil, err
			}

			// A handful of doctors claim each slot with small capacities so
			// contention actually happens.
			claimed := gofakeit.Number(1, 4)
			for i := 0; i < claimed; i++ {
				asgID := uuid.New()
				doctorID := doctorIDs[gofakeit.Number(0, len(doctorIDs)-1)]
				maxAppts := gofakeit.Number(1, 5)

				_, err := tx.Exec(ctx, `
					INSERT INTO doctor_slot_assignments
						(id, doctor_id, slot_id, appointments_count, max_appointments, created_at, updated_at)
					VALUES ($1, $2, $3, 0, $4, now(), now())
					ON CONFLICT DO NOTHING
				`, asgID, doctorID, slotID, maxAppts)
				if err != nil {
					return nil, err
				}
				assignmentIDs = append(assignmentIDs, asgID)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Int("assignments", len(assignmentIDs)).Msg("slots seeded")
	return assignmentIDs, nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, patientIDs, guestIDs, doctorIDs, categoryIDs, assignmentIDs []uuid.UUID, count int) error {
	log.Info().Int("count", count).Msg("seeding appointments")

	visitTypes := []booking.VisitType{
		booking.VisitConsultation,
		booking.VisitFollowUp,
		booking.VisitEmergency,
		booking.VisitRoutine,
	}
	schedules := []booking.Schedule{
		booking.ScheduleMorning,
		booking.ScheduleAfternoon,
		booking.ScheduleEvening,
	}

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			table := "appointments"
			subjectCol := "patient_id"
			subjectID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
			if gofakeit.Number(0, 4) == 0 { // roughly one in five is a walk-in
				table = "guest_appointments"
				subjectCol = "guest_id"
				subjectID = guestIDs[gofakeit.Number(0, len(guestIDs)-1)]
			}

			doctorID := doctorIDs[gofakeit.Number(0, len(doctorIDs)-1)]
			categoryID := categoryIDs[gofakeit.Number(0, len(categoryIDs)-1)]
			assignmentID := assignmentIDs[gofakeit.Number(0, len(assignmentIDs)-1)]
			apptDate := time.Now().AddDate(0, 0, gofakeit.Number(-10, 30))

			_, err := tx.Exec(ctx, `
				INSERT INTO `+table+` (id, `+subjectCol+`, doctor_id, slot_assignment_id, category_id,
					phone, email, visit_type, status, schedule, message,
					appointment_date, appointment_time, preferred_date, preferred_time,
					created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
			`, uuid.New(), subjectID, doctorID, assignmentID, categoryID,
				gofakeit.Phone(), gofakeit.Email(),
				visitTypes[gofakeit.Number(0, len(visitTypes)-1)],
				booking.StatusPending,
				schedules[gofakeit.Number(0, len(schedules)-1)],
				gofakeit.Sentence(6),
				apptDate, "09:00", apptDate, "09:00")
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("appointments seeded")
	}

	return nil
}
