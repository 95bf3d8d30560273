package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Phone,
		&p.Email,
		&p.DateOfBirth,
		&p.Gender,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanGuest(row pgx.Row) (*Guest, error) {
	var g Guest

	err := row.Scan(
		&g.ID,
		&g.FullName,
		&g.Phone,
		&g.Email,
		&g.DateOfBirth,
		&g.Gender,
		&g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}

	return &g, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.FullName,
		&d.Specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	return &c, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.SlotDate,
		&s.SlotTime,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAssignment(row pgx.Row) (*DoctorSlotAssignment, error) {
	var a DoctorSlotAssignment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.SlotID,
		&a.AppointmentsCount,
		&a.MaxAppointments,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// appointmentColumns is the shared column list; only the subject column name
// differs between the two tables.
func appointmentColumns(kind Kind) string {
	subject := "patient_id"
	if kind == KindGuest {
		subject = "guest_id"
	}
	return fmt.Sprintf(
		"id, %s, doctor_id, slot_assignment_id, category_id, phone, email, "+
			"visit_type, status, schedule, message, appointment_date, "+
			"appointment_time, preferred_date, preferred_time, created_at, updated_at",
		subject,
	)
}

func scanAppointment(row pgx.Row, kind Kind) (*Appointment, error) {
	a := Appointment{Kind: kind}

	err := row.Scan(
		&a.ID,
		&a.SubjectID,
		&a.DoctorID,
		&a.SlotAssignmentID,
		&a.CategoryID,
		&a.Phone,
		&a.Email,
		&a.VisitType,
		&a.Status,
		&a.Schedule,
		&a.Message,
		&a.AppointmentDate,
		&a.AppointmentTime,
		&a.PreferredDate,
		&a.PreferredTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, phone, email, date_of_birth, gender, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetGuestByID(ctx context.Context, id uuid.UUID) (*Guest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, phone, email, date_of_birth, gender, created_at
		FROM guests
		WHERE id = $1
	`, id)
	return scanGuest(row)
}

func (r *PgRepository) FindGuestByContact(ctx context.Context, phone string, email *string) (*Guest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, phone, email, date_of_birth, gender, created_at
		FROM guests
		WHERE phone = $1
		   OR ($2::text IS NOT NULL AND email = $2)
		ORDER BY created_at
		LIMIT 1
	`, phone, email)
	return scanGuest(row)
}

func (r *PgRepository) CreateGuest(ctx context.Context, g Guest) (*Guest, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO guests (id, full_name, phone, email, date_of_birth, gender, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, full_name, phone, email, date_of_birth, gender, created_at
	`, id, g.FullName, g.Phone, g.Email, g.DateOfBirth, g.Gender)

	return scanGuest(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at
		FROM categories
		WHERE id = $1
	`, id)
	return scanCategory(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, slot_date, slot_time, is_active, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) GetAssignmentByID(ctx context.Context, id uuid.UUID) (*DoctorSlotAssignment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, slot_id, appointments_count, max_appointments, created_at, updated_at
		FROM doctor_slot_assignments
		WHERE id = $1
	`, id)
	return scanAssignment(row)
}

// TryReserve is the capacity check and increment as one conditional update.
// Two concurrent callers racing on the last free place serialize inside
// Postgres; exactly one sees an affected row.
func (r *PgRepository) TryReserve(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctor_slot_assignments
		SET appointments_count = appointments_count + 1,
		    updated_at = now()
		WHERE id = $1
		  AND appointments_count < max_appointments
	`, assignmentID)
	if err != nil {
		return false, fmt.Errorf("reserve slot assignment: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) Release(ctx context.Context, assignmentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE doctor_slot_assignments
		SET appointments_count = GREATEST(appointments_count - 1, 0),
		    updated_at = now()
		WHERE id = $1
	`, assignmentID)
	if err != nil {
		return fmt.Errorf("release slot assignment: %w", err)
	}

	return nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := uuid.New()
	cols := appointmentColumns(a.Kind)

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		RETURNING %s
	`, a.Kind.Table(), cols, cols),
		id, a.SubjectID, a.DoctorID, a.SlotAssignmentID, a.CategoryID,
		a.Phone, a.Email, a.VisitType, a.Status, a.Schedule, a.Message,
		a.AppointmentDate, a.AppointmentTime, a.PreferredDate, a.PreferredTime)

	return scanAppointment(row, a.Kind)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, kind Kind, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, appointmentColumns(kind), kind.Table()), id)
	return scanAppointment(row, kind)
}

// UpdateAppointmentFields never touches status; that column only moves
// through UpdateAppointmentStatus, so a stale snapshot cannot drag a record
// back to an earlier lifecycle state.
func (r *PgRepository) UpdateAppointmentFields(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s
		SET doctor_id = $2,
		    slot_assignment_id = $3,
		    category_id = $4,
		    phone = $5,
		    email = $6,
		    visit_type = $7,
		    schedule = $8,
		    message = $9,
		    appointment_date = $10,
		    appointment_time = $11,
		    preferred_date = $12,
		    preferred_time = $13,
		    updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, a.Kind.Table(), appointmentColumns(a.Kind)),
		a.ID, a.DoctorID, a.SlotAssignmentID, a.CategoryID, a.Phone, a.Email,
		a.VisitType, a.Schedule, a.Message, a.AppointmentDate,
		a.AppointmentTime, a.PreferredDate, a.PreferredTime)

	return scanAppointment(row, a.Kind)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, kind Kind, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING %s
	`, kind.Table(), appointmentColumns(kind)), id, to, from)

	return scanAppointment(row, kind)
}

// DeleteAppointment removes the row and releases its slot assignment in one
// transaction when the record had consumed capacity. Leaving the release to a
// separate call would let a crash between the two writes overstate occupancy.
func (r *PgRepository) DeleteAppointment(ctx context.Context, kind Kind, id uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status Status
	var assignmentID *uuid.UUID

	err = tx.QueryRow(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
		RETURNING status, slot_assignment_id
	`, kind.Table()), id).Scan(&status, &assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrAppointmentNotFound
		}
		return false, fmt.Errorf("delete appointment: %w", err)
	}

	released := false
	if assignmentID != nil && status != StatusPending && status != StatusCancelled {
		_, err = tx.Exec(ctx, `
			UPDATE doctor_slot_assignments
			SET appointments_count = GREATEST(appointments_count - 1, 0),
			    updated_at = now()
			WHERE id = $1
		`, *assignmentID)
		if err != nil {
			return false, fmt.Errorf("release on delete: %w", err)
		}
		released = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit delete tx: %w", err)
	}

	return released, nil
}

func (r *PgRepository) ListAppointmentRows(ctx context.Context, kind Kind) ([]AppointmentRow, error) {
	subjectTable := "patients"
	subjectCol := "patient_id"
	if kind == KindGuest {
		subjectTable = "guests"
		subjectCol = "guest_id"
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT a.id, a.%s, a.doctor_id, a.slot_assignment_id, a.category_id,
		       a.phone, a.email, a.visit_type, a.status, a.schedule, a.message,
		       a.appointment_date, a.appointment_time, a.preferred_date,
		       a.preferred_time, a.created_at, a.updated_at,
		       subj.full_name, d.full_name, c.name, s.slot_date, s.slot_time
		FROM %s a
		LEFT JOIN %s subj ON subj.id = a.%s
		LEFT JOIN doctors d ON d.id = a.doctor_id
		LEFT JOIN categories c ON c.id = a.category_id
		LEFT JOIN doctor_slot_assignments dsa ON dsa.id = a.slot_assignment_id
		LEFT JOIN slots s ON s.id = dsa.slot_id
		ORDER BY a.created_at DESC, a.id
	`, subjectCol, kind.Table(), subjectTable, subjectCol))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentRow
	for rows.Next() {
		row := AppointmentRow{Appointment: Appointment{Kind: kind}}
		var slotDate *time.Time

		err := rows.Scan(
			&row.ID,
			&row.SubjectID,
			&row.DoctorID,
			&row.SlotAssignmentID,
			&row.CategoryID,
			&row.Phone,
			&row.Email,
			&row.VisitType,
			&row.Status,
			&row.Schedule,
			&row.Message,
			&row.AppointmentDate,
			&row.AppointmentTime,
			&row.PreferredDate,
			&row.PreferredTime,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.SubjectName,
			&row.DoctorName,
			&row.CategoryName,
			&slotDate,
			&row.SlotTime,
		)
		if err != nil {
			return nil, err
		}

		row.SlotDate = slotDate
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
