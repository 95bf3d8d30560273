package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type VisitType string

const (
	VisitConsultation VisitType = "consultation"
	VisitFollowUp     VisitType = "follow-up"
	VisitEmergency    VisitType = "emergency"
	VisitRoutine      VisitType = "routine"
)

func (v VisitType) Valid() bool {
	switch v {
	case VisitConsultation, VisitFollowUp, VisitEmergency, VisitRoutine:
		return true
	}
	return false
}

// Schedule is the half-day bucket, independent of the exact time.
type Schedule string

const (
	ScheduleMorning   Schedule = "morning"
	ScheduleAfternoon Schedule = "afternoon"
	ScheduleEvening   Schedule = "evening"
)

func (s Schedule) Valid() bool {
	switch s {
	case ScheduleMorning, ScheduleAfternoon, ScheduleEvening:
		return true
	}
	return false
}

// Kind discriminates the two appointment tables. Ids are only unique within
// their own table, so every lookup and mutation carries the kind explicitly.
type Kind string

const (
	KindPatient Kind = "patient"
	KindGuest   Kind = "guest"
)

func (k Kind) Valid() bool {
	return k == KindPatient || k == KindGuest
}

// Table returns the source table name for the kind.
func (k Kind) Table() string {
	if k == KindGuest {
		return "guest_appointments"
	}
	return "appointments"
}

type Role string

const (
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
	RolePatient      Role = "patient"
)

// Actor identifies who is performing a mutation. It is always passed in
// explicitly; the service never reads identity from ambient state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Patient struct {
	ID          uuid.UUID
	FullName    string
	Phone       string
	Email       *string
	DateOfBirth *time.Time
	Gender      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Guest is the lightweight identity behind a walk-in booking. There is no
// login; guests are deduplicated by phone or email on create.
type Guest struct {
	ID          uuid.UUID
	FullName    string
	Phone       string
	Email       *string
	DateOfBirth *time.Time
	Gender      *string
	CreatedAt   time.Time
}

type Doctor struct {
	ID        uuid.UUID
	FullName  string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Description *string
	CreatedAt   time.Time
}

// Slot is a bookable (date, time) pair independent of any doctor. Once
// appointments reference it only the active flag may change.
type Slot struct {
	ID        uuid.UUID
	SlotDate  time.Time
	SlotTime  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DoctorSlotAssignment binds a slot to one doctor with a bounded capacity.
// Invariant: 0 <= AppointmentsCount <= MaxAppointments, enforced by the
// repository's conditional updates.
type DoctorSlotAssignment struct {
	ID                uuid.UUID
	DoctorID          uuid.UUID
	SlotID            uuid.UUID
	AppointmentsCount int
	MaxAppointments   int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Appointment is the common payload shared by both tables. Kind says which
// table the record lives in and what SubjectID references (patient or guest).
type Appointment struct {
	ID               uuid.UUID
	Kind             Kind
	SubjectID        uuid.UUID
	DoctorID         *uuid.UUID
	SlotAssignmentID *uuid.UUID
	CategoryID       *uuid.UUID
	Phone            string
	Email            *string
	VisitType        VisitType
	Status           Status
	Schedule         Schedule
	Message          *string
	AppointmentDate  *time.Time
	AppointmentTime  string
	PreferredDate    *time.Time
	PreferredTime    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AppointmentRow is an appointment with its joined display relations, as
// fetched for the unified list. Joined fields are nil when the relation is
// absent (doctor deleted, slot unassigned).
type AppointmentRow struct {
	Appointment
	SubjectName  *string
	DoctorName   *string
	CategoryName *string
	SlotDate     *time.Time
	SlotTime     *string
}

// UnifiedAppointment is the derived read-only view over both kinds. It is
// never persisted; OriginalTable + OriginalID round-trip to exactly one
// source record, and all mutations route back through that pair.
type UnifiedAppointment struct {
	ID               string
	Kind             Kind
	OriginalTable    string
	OriginalID       uuid.UUID
	SubjectID        uuid.UUID
	DoctorID         *uuid.UUID
	SlotAssignmentID *uuid.UUID
	DisplayName      string
	DoctorName       string
	CategoryName     string
	SlotDate         string
	SlotTime         string
	Phone            string
	Email            string
	VisitType        VisitType
	Status           Status
	Schedule         Schedule
	Message          string
	AppointmentDate  string
	AppointmentTime  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
