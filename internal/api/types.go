package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/bunpmc/clinic-scheduling/internal/booking"
)

type CreateAppointmentRequest struct {
	PatientID        string  `json:"patient_id"`
	DoctorID         *string `json:"doctor_id,omitempty"`
	SlotAssignmentID *string `json:"slot_assignment_id,omitempty"`
	CategoryID       *string `json:"category_id,omitempty"`
	Phone            string  `json:"phone"`
	Email            *string `json:"email,omitempty"`
	VisitType        string  `json:"visit_type"`
	Schedule         string  `json:"schedule"`
	Message          *string `json:"message,omitempty"`
	AppointmentDate  string  `json:"appointment_date,omitempty"`
	AppointmentTime  string  `json:"appointment_time,omitempty"`
	PreferredDate    string  `json:"preferred_date,omitempty"`
	PreferredTime    string  `json:"preferred_time,omitempty"`
}

type CreateGuestAppointmentRequest struct {
	GuestName        string  `json:"guest_name"`
	GuestDateOfBirth string  `json:"guest_date_of_birth,omitempty"`
	GuestGender      *string `json:"guest_gender,omitempty"`
	DoctorID         *string `json:"doctor_id,omitempty"`
	SlotAssignmentID *string `json:"slot_assignment_id,omitempty"`
	CategoryID       *string `json:"category_id,omitempty"`
	Phone            string  `json:"phone"`
	Email            *string `json:"email,omitempty"`
	VisitType        string  `json:"visit_type"`
	Schedule         string  `json:"schedule"`
	Message          *string `json:"message,omitempty"`
	AppointmentDate  string  `json:"appointment_date,omitempty"`
	AppointmentTime  string  `json:"appointment_time,omitempty"`
	PreferredDate    string  `json:"preferred_date,omitempty"`
	PreferredTime    string  `json:"preferred_time,omitempty"`
}

type UpdateAppointmentRequest struct {
	Status          *string `json:"status,omitempty"`
	VisitType       *string `json:"visit_type,omitempty"`
	Schedule        *string `json:"schedule,omitempty"`
	Message         *string `json:"message,omitempty"`
	AppointmentDate *string `json:"appointment_date,omitempty"`
	AppointmentTime *string `json:"appointment_time,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Email           *string `json:"email,omitempty"`
}

type RejectAppointmentRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type BulkStatusRequest struct {
	Items []BulkStatusRequestItem `json:"items"`
}

type BulkStatusRequestItem struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

type BulkDeleteRequest struct {
	Items []BulkRequestItem `json:"items"`
}

type BulkRequestItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type BulkResultItem struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type AppointmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	Type             string     `json:"type"`
	SubjectID        uuid.UUID  `json:"subject_id"`
	DoctorID         *uuid.UUID `json:"doctor_id,omitempty"`
	SlotAssignmentID *uuid.UUID `json:"slot_assignment_id,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	Phone            string     `json:"phone"`
	Email            *string    `json:"email,omitempty"`
	VisitType        string     `json:"visit_type"`
	Status           string     `json:"status"`
	Schedule         string     `json:"schedule"`
	Message          *string    `json:"message,omitempty"`
	AppointmentDate  string     `json:"appointment_date,omitempty"`
	AppointmentTime  string     `json:"appointment_time,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type UnifiedAppointmentResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"appointment_type"`
	OriginalTable   string    `json:"original_table"`
	OriginalID      uuid.UUID `json:"original_id"`
	DisplayName     string    `json:"display_name"`
	DoctorName      string    `json:"doctor_name"`
	CategoryName    string    `json:"category_name"`
	SlotDate        string    `json:"slot_date"`
	SlotTime        string    `json:"slot_time"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	VisitType       string    `json:"visit_type"`
	Status          string    `json:"status"`
	Schedule        string    `json:"schedule"`
	Message         string    `json:"message,omitempty"`
	AppointmentDate string    `json:"appointment_date,omitempty"`
	AppointmentTime string    `json:"appointment_time,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type ListResponse struct {
	Items      []UnifiedAppointmentResponse `json:"items"`
	Page       int                          `json:"page"`
	PageSize   int                          `json:"page_size"`
	TotalItems int                          `json:"total_items"`
	TotalPages int                          `json:"total_pages"`
}

type DeleteResponse struct {
	Deleted          bool `json:"deleted"`
	ReleasedCapacity bool `json:"released_capacity"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:               a.ID,
		Type:             string(a.Kind),
		SubjectID:        a.SubjectID,
		DoctorID:         a.DoctorID,
		SlotAssignmentID: a.SlotAssignmentID,
		CategoryID:       a.CategoryID,
		Phone:            a.Phone,
		Email:            a.Email,
		VisitType:        string(a.VisitType),
		Status:           string(a.Status),
		Schedule:         string(a.Schedule),
		Message:          a.Message,
		AppointmentTime:  a.AppointmentTime,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.AppointmentDate != nil {
		resp.AppointmentDate = a.AppointmentDate.Format("2006-01-02")
	}
	return resp
}

func toUnifiedResponse(u booking.UnifiedAppointment) UnifiedAppointmentResponse {
	return UnifiedAppointmentResponse{
		ID:              u.ID,
		Type:            string(u.Kind),
		OriginalTable:   u.OriginalTable,
		OriginalID:      u.OriginalID,
		DisplayName:     u.DisplayName,
		DoctorName:      u.DoctorName,
		CategoryName:    u.CategoryName,
		SlotDate:        u.SlotDate,
		SlotTime:        u.SlotTime,
		Phone:           u.Phone,
		Email:           u.Email,
		VisitType:       string(u.VisitType),
		Status:          string(u.Status),
		Schedule:        string(u.Schedule),
		Message:         u.Message,
		AppointmentDate: u.AppointmentDate,
		AppointmentTime: u.AppointmentTime,
		CreatedAt:       u.CreatedAt,
	}
}
