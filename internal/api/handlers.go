package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bunpmc/clinic-scheduling/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeBookingError maps the service error taxonomy onto HTTP codes. "Slot
// full" and "not found" stay distinguishable for the UI.
func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrGuestNotFound):
		writeError(w, http.StatusNotFound, "guest_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAssignmentNotFound):
		writeError(w, http.StatusNotFound, "slot_assignment_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotFull):
		writeError(w, http.StatusConflict, "slot_full", "slot has reached its appointment capacity")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// URL and body parsing helpers

func kindParam(r *http.Request) (booking.Kind, bool) {
	kind := booking.Kind(chi.URLParam(r, "kind"))
	return kind, kind.Valid()
}

func idParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseDatePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func createInputFromRequest(doctorID, slotAssignmentID, categoryID *string, phone string, email *string,
	visitType, schedule string, message *string, apptDate, apptTime, prefDate, prefTime string) (booking.CreateInput, error) {

	in := booking.CreateInput{
		Phone:           phone,
		Email:           email,
		VisitType:       booking.VisitType(visitType),
		Schedule:        booking.Schedule(schedule),
		Message:         message,
		AppointmentTime: apptTime,
		PreferredTime:   prefTime,
	}

	var err error
	if in.DoctorID, err = parseUUIDPtr(doctorID); err != nil {
		return in, errors.New("doctor_id must be a valid UUID")
	}
	if in.SlotAssignmentID, err = parseUUIDPtr(slotAssignmentID); err != nil {
		return in, errors.New("slot_assignment_id must be a valid UUID")
	}
	if in.CategoryID, err = parseUUIDPtr(categoryID); err != nil {
		return in, errors.New("category_id must be a valid UUID")
	}
	if in.AppointmentDate, err = parseDatePtr(apptDate); err != nil {
		return in, errors.New("appointment_date must be YYYY-MM-DD")
	}
	if in.PreferredDate, err = parseDatePtr(prefDate); err != nil {
		return in, errors.New("preferred_date must be YYYY-MM-DD")
	}

	return in, nil
}

// Handlers

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		in, err := createInputFromRequest(req.DoctorID, req.SlotAssignmentID, req.CategoryID,
			req.Phone, req.Email, req.VisitType, req.Schedule, req.Message,
			req.AppointmentDate, req.AppointmentTime, req.PreferredDate, req.PreferredTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		appt, err := svc.CreatePatientAppointment(r.Context(), actorFromRequest(r), patientID, in)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func createGuestAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGuestAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in, err := createInputFromRequest(req.DoctorID, req.SlotAssignmentID, req.CategoryID,
			req.Phone, req.Email, req.VisitType, req.Schedule, req.Message,
			req.AppointmentDate, req.AppointmentTime, req.PreferredDate, req.PreferredTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		dob, err := parseDatePtr(req.GuestDateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "guest_date_of_birth must be YYYY-MM-DD")
			return
		}

		guest := booking.GuestInput{
			FullName:    req.GuestName,
			Phone:       req.Phone,
			Email:       req.Email,
			DateOfBirth: dob,
			Gender:      req.GuestGender,
		}

		appt, err := svc.CreateGuestAppointment(r.Context(), actorFromRequest(r), guest, in)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service, defaultPageSize, maxPageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unified, err := svc.ListUnified(r.Context())
		if err != nil {
			writeBookingError(w, err)
			return
		}

		q := r.URL.Query()

		filter := booking.FilterSpec{
			Query:     q.Get("q"),
			Status:    booking.Status(q.Get("status")),
			VisitType: booking.VisitType(q.Get("visit_type")),
			Kind:      booking.Kind(q.Get("type")),
			DateRange: booking.DateRange(q.Get("date_range")),
		}
		if raw := q.Get("doctor_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			filter.DoctorID = &id
		}

		sortSpec := booking.SortSpec{
			Field:      booking.SortField(q.Get("sort")),
			Descending: q.Get("order") == "desc",
		}

		page, _ := strconv.Atoi(q.Get("page"))
		pageSize, _ := strconv.Atoi(q.Get("page_size"))
		if pageSize <= 0 {
			pageSize = defaultPageSize
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		result := booking.FilterSortPage(unified, filter, sortSpec, page, pageSize)

		items := make([]UnifiedAppointmentResponse, 0, len(result.Items))
		for _, u := range result.Items {
			items = append(items, toUnifiedResponse(u))
		}

		writeJSON(w, http.StatusOK, ListResponse{
			Items:      items,
			Page:       result.Page,
			PageSize:   result.PageSize,
			TotalItems: result.TotalItems,
			TotalPages: result.TotalPages,
		})
	}
}

func approveAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kindParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be patient or guest")
			return
		}
		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Approve(r.Context(), actorFromRequest(r), kind, id)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rejectAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kindParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be patient or guest")
			return
		}
		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RejectAppointmentRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		appt, err := svc.Reject(r.Context(), actorFromRequest(r), kind, id, req.Reason)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kindParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be patient or guest")
			return
		}
		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := booking.UpdateInput{
			Message:         req.Message,
			AppointmentTime: req.AppointmentTime,
			Phone:           req.Phone,
			Email:           req.Email,
		}
		if req.Status != nil {
			st := booking.Status(*req.Status)
			in.Status = &st
		}
		if req.VisitType != nil {
			vt := booking.VisitType(*req.VisitType)
			in.VisitType = &vt
		}
		if req.Schedule != nil {
			sc := booking.Schedule(*req.Schedule)
			in.Schedule = &sc
		}
		if req.AppointmentDate != nil {
			d, err := parseDatePtr(*req.AppointmentDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "appointment_date must be YYYY-MM-DD")
				return
			}
			in.AppointmentDate = d
		}

		appt, err := svc.Update(r.Context(), actorFromRequest(r), kind, id, in)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kindParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be patient or guest")
			return
		}
		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		released, err := svc.Delete(r.Context(), actorFromRequest(r), kind, id)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, DeleteResponse{Deleted: true, ReleasedCapacity: released})
	}
}

func bulkStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		items := make([]booking.BulkStatusItem, 0, len(req.Items))
		for _, it := range req.Items {
			kind := booking.Kind(it.Type)
			id, err := uuid.Parse(it.ID)
			if !kind.Valid() || err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "each item needs a valid type and UUID id")
				return
			}
			items = append(items, booking.BulkStatusItem{
				BulkItem: booking.BulkItem{Kind: kind, ID: id},
				Status:   booking.Status(it.Status),
			})
		}

		results := svc.BulkUpdateStatus(r.Context(), actorFromRequest(r), items)
		writeJSON(w, http.StatusMultiStatus, toBulkResponse(results))
	}
}

func bulkDeleteHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkDeleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		items := make([]booking.BulkItem, 0, len(req.Items))
		for _, it := range req.Items {
			kind := booking.Kind(it.Type)
			id, err := uuid.Parse(it.ID)
			if !kind.Valid() || err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "each item needs a valid type and UUID id")
				return
			}
			items = append(items, booking.BulkItem{Kind: kind, ID: id})
		}

		results := svc.BulkDelete(r.Context(), actorFromRequest(r), items)
		writeJSON(w, http.StatusMultiStatus, toBulkResponse(results))
	}
}

func toBulkResponse(results []booking.BulkResult) []BulkResultItem {
	out := make([]BulkResultItem, 0, len(results))
	for _, res := range results {
		item := BulkResultItem{
			Type: string(res.Kind),
			ID:   res.ID.String(),
			OK:   res.Err == nil,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

func statusBreakdownHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.StatusBreakdown(r.Context())
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func visitTypeBreakdownHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.VisitTypeBreakdown(r.Context())
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
