package booking

import (
	"fmt"
	"sort"
	"time"
)

// Display fallbacks for absent joined relations. The unified view never
// carries nulls.
const (
	FallbackDoctor = "Unassigned"
	FallbackNA     = "N/A"
)

const dateLayout = "2006-01-02"

// Unify converts a fetched row into the unified view, resolving display
// fields and tagging the record with its source table and native id.
func Unify(row AppointmentRow) UnifiedAppointment {
	u := UnifiedAppointment{
		ID:               fmt.Sprintf("%s_%s", row.Kind, row.ID),
		Kind:             row.Kind,
		OriginalTable:    row.Kind.Table(),
		OriginalID:       row.ID,
		SubjectID:        row.SubjectID,
		DoctorID:         row.DoctorID,
		SlotAssignmentID: row.SlotAssignmentID,
		Phone:            row.Phone,
		VisitType:        row.VisitType,
		Status:           row.Status,
		Schedule:         row.Schedule,
		AppointmentTime:  row.AppointmentTime,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}

	if row.SubjectName != nil && *row.SubjectName != "" {
		u.DisplayName = *row.SubjectName
	} else {
		u.DisplayName = "Phone: " + row.Phone
	}

	u.DoctorName = FallbackDoctor
	if row.DoctorName != nil && *row.DoctorName != "" {
		u.DoctorName = *row.DoctorName
	}

	u.CategoryName = FallbackNA
	if row.CategoryName != nil && *row.CategoryName != "" {
		u.CategoryName = *row.CategoryName
	}

	u.SlotDate = FallbackNA
	if row.SlotDate != nil {
		u.SlotDate = row.SlotDate.Format(dateLayout)
	}

	u.SlotTime = FallbackNA
	if row.SlotTime != nil && *row.SlotTime != "" {
		u.SlotTime = *row.SlotTime
	}

	if row.Email != nil {
		u.Email = *row.Email
	}
	if row.Message != nil {
		u.Message = *row.Message
	}
	if row.AppointmentDate != nil {
		u.AppointmentDate = row.AppointmentDate.Format(dateLayout)
	}

	return u
}

// BuildUnifiedList merges both kinds into one view sorted by created_at
// descending. The sort is stable, so records with colliding timestamps keep
// fetch order (patient rows ahead of guest rows).
func BuildUnifiedList(patientRows, guestRows []AppointmentRow) []UnifiedAppointment {
	unified := make([]UnifiedAppointment, 0, len(patientRows)+len(guestRows))
	for _, row := range patientRows {
		unified = append(unified, Unify(row))
	}
	for _, row := range guestRows {
		unified = append(unified, Unify(row))
	}

	sort.SliceStable(unified, func(i, j int) bool {
		return unified[i].CreatedAt.After(unified[j].CreatedAt)
	})

	return unified
}

// effectiveDate is the date a unified record is bucketed by: the record's own
// appointment_date when set, else the joined slot date. Records with neither
// parse to nothing and fall out of every date bucket.
func (u UnifiedAppointment) effectiveDate() (time.Time, bool) {
	for _, raw := range []string{u.AppointmentDate, u.SlotDate} {
		if t, err := time.ParseInLocation(dateLayout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
