// capacity-sim drives concurrent approvals against a single doctor slot
// assignment and verifies the occupancy counter never exceeds capacity. It
// needs a reachable Postgres (POSTGRES_DSN) and seeds its own fixture rows.
package main

import (
	"context"
	"errors"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/bunpmc/clinic-scheduling/internal/booking"
	"github.com/bunpmc/clinic-scheduling/internal/db"
)

type simConfig struct {
	PostgresDSN   string
	Contenders    int // concurrent approval attempts
	MaxCapacity   int // max_appointments on the fixture assignment
	Rounds        int
	RoundInterval time.Duration
}

type metrics struct {
	mu        sync.Mutex
	success   int
	slotFull  int
	errs      int
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == nil:
		m.success++
	case errors.Is(err, booking.ErrSlotFull):
		m.slotFull++
	default:
		m.errs++
	}
	m.latencies = append(m.latencies, latency)
}

func (m *metrics) percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

var log zerolog.Logger

func main() {
	log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "capacity-sim").Logger()
	log.Info().Msg("capacity simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	repo := booking.NewPgRepository(pool)
	svc := booking.NewService(repo, nil, log)

	for round := 1; round <= cfg.Rounds; round++ {
		if err := runRound(context.Background(), pool, repo, svc, cfg, round); err != nil {
			log.Fatal().Err(err).Int("round", round).Msg("round failed")
		}
		if round < cfg.Rounds {
			time.Sleep(cfg.RoundInterval)
		}
	}

	log.Info().Msg("capacity simulator done")
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		Contenders:    envInt("SIM_CONTENDERS", 16),
		MaxCapacity:   envInt("SIM_MAX_CAPACITY", 3),
		Rounds:        envInt("SIM_ROUNDS", 5),
		RoundInterval: time.Second,
	}
	if cfg.PostgresDSN == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}
	if cfg.Contenders <= cfg.MaxCapacity {
		log.Fatal().Msg("SIM_CONTENDERS must exceed SIM_MAX_CAPACITY for the race to mean anything")
	}
	return cfg
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func runRound(ctx context.Context, pool *pgxpool.Pool, repo *booking.PgRepository, svc *booking.Service, cfg simConfig, round int) error {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	asgID, apptIDs, err := seedFixture(runCtx, pool, cfg)
	if err != nil {
		return err
	}

	actor := booking.Actor{ID: uuid.New(), Role: booking.RoleReceptionist}
	var m metrics
	var wg sync.WaitGroup

	start := time.Now()
	for _, apptID := range apptIDs {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			began := time.Now()
			_, err := svc.Approve(runCtx, actor, booking.KindPatient, id)
			m.record(time.Since(began), err)
		}(apptID)
	}
	wg.Wait()

	asg, err := repo.GetAssignmentByID(runCtx, asgID)
	if err != nil {
		return err
	}

	log.Info().
		Int("round", round).
		Int("contenders", cfg.Contenders).
		Int("capacity", cfg.MaxCapacity).
		Int("succeeded", m.success).
		Int("slot_full", m.slotFull).
		Int("errors", m.errs).
		Int("final_count", asg.AppointmentsCount).
		Dur("elapsed", time.Since(start)).
		Dur("p50", m.percentile(50)).
		Dur("p95", m.percentile(95)).
		Msg("round complete")

	if asg.AppointmentsCount > asg.MaxAppointments {
		log.Fatal().
			Int("count", asg.AppointmentsCount).
			Int("max", asg.MaxAppointments).
			Msg("CAPACITY INVARIANT VIOLATED")
	}
	if m.success != cfg.MaxCapacity {
		log.Warn().
			Int("succeeded", m.success).
			Int("capacity", cfg.MaxCapacity).
			Msg("successes did not exactly fill capacity")
	}

	return nil
}

// seedFixture creates one doctor, one slot, one assignment with the
// configured capacity, and a pending appointment per contender.
func seedFixture(ctx context.Context, pool *pgxpool.Pool, cfg simConfig) (uuid.UUID, []uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, nil, err
	}
	defer tx.Rollback(ctx)

	doctorID := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO doctors (id, full_name, specialty, created_at, updated_at)
		VALUES ($1, 'Dr. Simulation', 'Load Testing', now(), now())
	`, doctorID); err != nil {
		return uuid.Nil, nil, err
	}

	slotID := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO slots (id, slot_date, slot_time, is_active, created_at, updated_at)
		VALUES ($1, now()::date, '09:00', true, now(), now())
	`, slotID); err != nil {
		return uuid.Nil, nil, err
	}

	asgID := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO doctor_slot_assignments
			(id, doctor_id, slot_id, appointments_count, max_appointments, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, now(), now())
	`, asgID, doctorID, slotID, cfg.MaxCapacity); err != nil {
		return uuid.Nil, nil, err
	}

	apptIDs := make([]uuid.UUID, 0, cfg.Contenders)
	for i := 0; i < cfg.Contenders; i++ {
		patientID := uuid.New()
		if _, err := tx.Exec(ctx, `
			INSERT INTO patients (id, full_name, phone, email, date_of_birth, gender, created_at, updated_at)
			VALUES ($1, 'Sim Patient', '555-0000', null, null, null, now(), now())
		`, patientID); err != nil {
			return uuid.Nil, nil, err
		}

		apptID := uuid.New()
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, patient_id, doctor_id, slot_assignment_id, category_id,
				phone, email, visit_type, status, schedule, message,
				appointment_date, appointment_time, preferred_date, preferred_time,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, null, '555-0000', null, 'consultation', 'pending',
				'morning', null, now()::date, '09:00', now()::date, '09:00', now(), now())
		`, apptID, patientID, doctorID, asgID); err != nil {
			return uuid.Nil, nil, err
		}
		apptIDs = append(apptIDs, apptID)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, nil, err
	}

	return asgID, apptIDs, nil
}
