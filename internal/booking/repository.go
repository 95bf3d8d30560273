package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrGuestNotFound       = errors.New("guest not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAssignmentNotFound  = errors.New("slot assignment not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotFull is the normal negative outcome of a capacity reservation,
	// distinct from not-found so callers can render "fully booked".
	ErrSlotFull = errors.New("slot is fully booked")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// Guest dedup-or-create: FindGuestByContact matches phone or email,
	// first match wins.
	GetGuestByID(ctx context.Context, id uuid.UUID) (*Guest, error)
	FindGuestByContact(ctx context.Context, phone string, email *string) (*Guest, error)
	CreateGuest(ctx context.Context, g Guest) (*Guest, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	GetAssignmentByID(ctx context.Context, id uuid.UUID) (*DoctorSlotAssignment, error)

	// Slot capacity ledger. TryReserve atomically increments the occupancy
	// counter only while it is below capacity and reports whether it did;
	// Release decrements, floored at zero. Both are single conditional
	// updates so concurrent callers cannot overshoot.
	TryReserve(ctx context.Context, assignmentID uuid.UUID) (bool, error)
	Release(ctx context.Context, assignmentID uuid.UUID) error

	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, kind Kind, id uuid.UUID) (*Appointment, error)

	// UpdateAppointmentFields overwrites the mutable payload columns. It
	// ignores a.Status: status only moves through UpdateAppointmentStatus.
	UpdateAppointmentFields(ctx context.Context, a Appointment) (*Appointment, error)

	// UpdateAppointmentStatus is a compare-and-swap: the row is only updated
	// while its status still equals from. ErrAppointmentNotFound means the
	// row is gone or the status moved concurrently.
	UpdateAppointmentStatus(ctx context.Context, kind Kind, id uuid.UUID, from, to Status) (*Appointment, error)

	// DeleteAppointment removes the row and, in the same transaction,
	// releases its slot assignment when the record had consumed capacity
	// (status in_progress or completed). Returns whether capacity was
	// released.
	DeleteAppointment(ctx context.Context, kind Kind, id uuid.UUID) (released bool, err error)

	// ListAppointmentRows fetches every appointment of one kind with its
	// joined subject/doctor/category/slot display fields.
	ListAppointmentRows(ctx context.Context, kind Kind) ([]AppointmentRow, error)
}
