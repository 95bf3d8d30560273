package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UnifiedCache holds the serialized unified list between mutations. Misses
// and cache errors degrade to a direct fetch, never to a request failure.
type UnifiedCache interface {
	Get(ctx context.Context) ([]UnifiedAppointment, bool)
	Set(ctx context.Context, list []UnifiedAppointment)
	Invalidate(ctx context.Context)
}

// NopCache is used when no cache backend is wired (tests, tooling).
type NopCache struct{}

func (NopCache) Get(context.Context) ([]UnifiedAppointment, bool) { return nil, false }
func (NopCache) Set(context.Context, []UnifiedAppointment)        {}
func (NopCache) Invalidate(context.Context)                       {}

type Service struct {
	repo  Repository
	cache UnifiedCache
	log   zerolog.Logger
}

func NewService(repo Repository, cache UnifiedCache, log zerolog.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// canTransition encodes the lifecycle: pending -> in_progress -> completed or
// cancelled, with pending also able to go straight to cancelled (reject).
// Terminal states accept nothing. Same-status writes are no-ops, not errors.
func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// ListUnified returns the merged view of both appointment kinds, newest
// first. The cached copy is served when present; every mutation invalidates
// it, so a fetch after a mutation observes the write.
func (s *Service) ListUnified(ctx context.Context) ([]UnifiedAppointment, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	patientRows, err := s.repo.ListAppointmentRows(ctx, KindPatient)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	guestRows, err := s.repo.ListAppointmentRows(ctx, KindGuest)
	if err != nil {
		return nil, fmt.Errorf("list guest appointments: %w", err)
	}

	unified := BuildUnifiedList(patientRows, guestRows)
	s.cache.Set(ctx, unified)

	return unified, nil
}

// CreateInput carries the common appointment payload for both kinds.
type CreateInput struct {
	DoctorID         *uuid.UUID
	SlotAssignmentID *uuid.UUID
	CategoryID       *uuid.UUID
	Phone            string
	Email            *string
	VisitType        VisitType
	Schedule         Schedule
	Message          *string
	AppointmentDate  *time.Time
	AppointmentTime  string
	PreferredDate    *time.Time
	PreferredTime    string
}

// GuestInput identifies a walk-in. Matching an existing guest by phone or
// email reuses that record; conflicting fields are never merged.
type GuestInput struct {
	FullName    string
	Phone       string
	Email       *string
	DateOfBirth *time.Time
	Gender      *string
}

func validateCreate(in CreateInput) error {
	if in.Phone == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if !in.VisitType.Valid() {
		return fmt.Errorf("%w: visit_type must be one of consultation, follow-up, emergency, routine", ErrValidation)
	}
	if !in.Schedule.Valid() {
		return fmt.Errorf("%w: schedule must be one of morning, afternoon, evening", ErrValidation)
	}
	if in.AppointmentTime != "" {
		if _, err := time.Parse("15:04", in.AppointmentTime); err != nil {
			return fmt.Errorf("%w: appointment_time must be HH:MM", ErrValidation)
		}
	}
	return nil
}

// initialStatus: receptionist-created bookings skip approval because the
// receptionist is the approver.
func initialStatus(actor Actor) Status {
	if actor.Role == RoleReceptionist {
		return StatusInProgress
	}
	return StatusPending
}

// CreatePatientAppointment books for a registered patient. Creation is
// speculative: capacity is only consumed on approval, so no reservation
// happens here even when a slot assignment is attached.
func (s *Service) CreatePatientAppointment(ctx context.Context, actor Actor, patientID uuid.UUID, in CreateInput) (*Appointment, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, in); err != nil {
		return nil, err
	}

	appt := appointmentFromInput(KindPatient, patientID, initialStatus(actor), in)

	created, err := s.repo.InsertAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("insert patient appointment: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("kind", string(KindPatient)).
		Str("status", string(created.Status)).
		Str("actor_role", string(actor.Role)).
		Msg("appointment created")

	return created, nil
}

// CreateGuestAppointment resolves or creates the guest, then books against
// the guest table.
func (s *Service) CreateGuestAppointment(ctx context.Context, actor Actor, guest GuestInput, in CreateInput) (*Appointment, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if guest.FullName == "" && guest.Phone == "" {
		return nil, fmt.Errorf("%w: guest name or phone is required", ErrValidation)
	}
	if err := s.checkReferences(ctx, in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindGuestByContact(ctx, guest.Phone, guest.Email)
	if err != nil && !errors.Is(err, ErrGuestNotFound) {
		return nil, fmt.Errorf("find guest: %w", err)
	}

	var guestID uuid.UUID
	if existing != nil {
		guestID = existing.ID
	} else {
		created, err := s.repo.CreateGuest(ctx, Guest{
			FullName:    guest.FullName,
			Phone:       guest.Phone,
			Email:       guest.Email,
			DateOfBirth: guest.DateOfBirth,
			Gender:      guest.Gender,
		})
		if err != nil {
			return nil, fmt.Errorf("create guest: %w", err)
		}
		guestID = created.ID
	}

	appt := appointmentFromInput(KindGuest, guestID, initialStatus(actor), in)

	created, err := s.repo.InsertAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("insert guest appointment: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("guest_id", guestID.String()).
		Str("status", string(created.Status)).
		Msg("guest appointment created")

	return created, nil
}

func appointmentFromInput(kind Kind, subjectID uuid.UUID, status Status, in CreateInput) Appointment {
	return Appointment{
		Kind:             kind,
		SubjectID:        subjectID,
		DoctorID:         in.DoctorID,
		SlotAssignmentID: in.SlotAssignmentID,
		CategoryID:       in.CategoryID,
		Phone:            in.Phone,
		Email:            in.Email,
		VisitType:        in.VisitType,
		Status:           status,
		Schedule:         in.Schedule,
		Message:          in.Message,
		AppointmentDate:  in.AppointmentDate,
		AppointmentTime:  in.AppointmentTime,
		PreferredDate:    in.PreferredDate,
		PreferredTime:    in.PreferredTime,
	}
}

func (s *Service) checkReferences(ctx context.Context, in CreateInput) error {
	if in.DoctorID != nil {
		if _, err := s.repo.GetDoctorByID(ctx, *in.DoctorID); err != nil {
			return err
		}
	}
	if in.CategoryID != nil {
		if _, err := s.repo.GetCategoryByID(ctx, *in.CategoryID); err != nil {
			return err
		}
	}
	if in.SlotAssignmentID != nil {
		if _, err := s.repo.GetAssignmentByID(ctx, *in.SlotAssignmentID); err != nil {
			return err
		}
	}
	return nil
}

// reserve consumes one capacity unit. The conditional update affects zero
// rows both when the slot is full and when the assignment row is gone, so the
// failure path re-fetches to return the right sentinel for each.
func (s *Service) reserve(ctx context.Context, assignmentID uuid.UUID) error {
	ok, err := s.repo.TryReserve(ctx, assignmentID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.repo.GetAssignmentByID(ctx, assignmentID); err != nil {
		return err
	}
	return ErrSlotFull
}

// Approve moves a pending appointment to in_progress, consuming slot
// capacity first when a slot assignment is attached. A full slot rejects the
// transition and the appointment stays pending.
func (s *Service) Approve(ctx context.Context, actor Actor, kind Kind, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	reserved := false
	if appt.SlotAssignmentID != nil {
		if err := s.reserve(ctx, *appt.SlotAssignmentID); err != nil {
			return nil, err
		}
		reserved = true
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, kind, id, StatusPending, StatusInProgress)
	if err != nil {
		// The status moved under us; hand the reservation back.
		if reserved {
			if relErr := s.repo.Release(ctx, *appt.SlotAssignmentID); relErr != nil {
				s.log.Error().Err(relErr).
					Str("assignment_id", appt.SlotAssignmentID.String()).
					Msg("release after failed approve")
			}
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("approve appointment: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("appointment_id", id.String()).
		Str("kind", string(kind)).
		Bool("reserved", reserved).
		Str("actor_role", string(actor.Role)).
		Msg("appointment approved")

	return updated, nil
}

// Reject moves a pending appointment to cancelled. Capacity is untouched: a
// pending record never consumed a reservation. The optional reason overwrites
// the message field.
func (s *Service) Reject(ctx context.Context, actor Actor, kind Kind, id uuid.UUID, reason *string) (*Appointment, error) {
	updated, err := s.repo.UpdateAppointmentStatus(ctx, kind, id, StatusPending, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish "gone" from "not pending anymore".
			if _, getErr := s.repo.GetAppointmentByID(ctx, kind, id); getErr == nil {
				return nil, ErrInvalidTransition
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("reject appointment: %w", err)
	}

	if reason != nil {
		updated.Message = reason
		updated, err = s.repo.UpdateAppointmentFields(ctx, *updated)
		if err != nil {
			return nil, fmt.Errorf("store rejection reason: %w", err)
		}
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("appointment_id", id.String()).
		Str("kind", string(kind)).
		Str("actor_role", string(actor.Role)).
		Msg("appointment rejected")

	return updated, nil
}

// UpdateInput holds the fields a doctor or receptionist may change; nil
// leaves a field as is.
type UpdateInput struct {
	Status          *Status
	VisitType       *VisitType
	Schedule        *Schedule
	Message         *string
	AppointmentDate *time.Time
	AppointmentTime *string
	Phone           *string
	Email           *string
}

// Update applies field changes, enforcing the lifecycle on status edits.
// Invalid targets are rejected outright, never clamped. A pending record
// moved to in_progress this way goes through the same capacity reservation as
// Approve; cancelling an in_progress record hands its reservation back.
func (s *Service) Update(ctx context.Context, actor Actor, kind Kind, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *in.Status)
		}
		if !canTransition(appt.Status, *in.Status) {
			return nil, ErrInvalidTransition
		}
	}
	if in.VisitType != nil && !in.VisitType.Valid() {
		return nil, fmt.Errorf("%w: unknown visit_type %q", ErrValidation, *in.VisitType)
	}
	if in.Schedule != nil && !in.Schedule.Valid() {
		return nil, fmt.Errorf("%w: unknown schedule %q", ErrValidation, *in.Schedule)
	}
	if in.AppointmentTime != nil && *in.AppointmentTime != "" {
		if _, err := time.Parse("15:04", *in.AppointmentTime); err != nil {
			return nil, fmt.Errorf("%w: appointment_time must be HH:MM", ErrValidation)
		}
	}

	// Status moves go through the compare-and-swap against the snapshot so a
	// concurrent transition fails this call instead of being overwritten.
	// Capacity is reserved before the swap and released only after it, the
	// same ordering Approve uses.
	if in.Status != nil && *in.Status != appt.Status {
		reserved := false
		if appt.SlotAssignmentID != nil && appt.Status == StatusPending && *in.Status == StatusInProgress {
			if err := s.reserve(ctx, *appt.SlotAssignmentID); err != nil {
				return nil, err
			}
			reserved = true
		}

		swapped, err := s.repo.UpdateAppointmentStatus(ctx, kind, id, appt.Status, *in.Status)
		if err != nil {
			if reserved {
				if relErr := s.repo.Release(ctx, *appt.SlotAssignmentID); relErr != nil {
					s.log.Error().Err(relErr).
						Str("assignment_id", appt.SlotAssignmentID.String()).
						Msg("release after failed status update")
				}
			}
			if errors.Is(err, ErrAppointmentNotFound) {
				if _, getErr := s.repo.GetAppointmentByID(ctx, kind, id); getErr == nil {
					return nil, ErrInvalidTransition
				}
				return nil, ErrAppointmentNotFound
			}
			return nil, fmt.Errorf("update appointment status: %w", err)
		}

		if appt.SlotAssignmentID != nil && appt.Status == StatusInProgress && *in.Status == StatusCancelled {
			if err := s.repo.Release(ctx, *appt.SlotAssignmentID); err != nil {
				return nil, err
			}
		}
		appt = swapped
	}

	next := *appt
	if in.VisitType != nil {
		next.VisitType = *in.VisitType
	}
	if in.Schedule != nil {
		next.Schedule = *in.Schedule
	}
	if in.Message != nil {
		next.Message = in.Message
	}
	if in.AppointmentDate != nil {
		next.AppointmentDate = in.AppointmentDate
	}
	if in.AppointmentTime != nil {
		next.AppointmentTime = *in.AppointmentTime
	}
	if in.Phone != nil {
		next.Phone = *in.Phone
	}
	if in.Email != nil {
		next.Email = in.Email
	}

	updated, err := s.repo.UpdateAppointmentFields(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("appointment_id", id.String()).
		Str("kind", string(kind)).
		Str("actor_role", string(actor.Role)).
		Msg("appointment updated")

	return updated, nil
}

// Delete removes the record. The repository releases slot capacity in the
// same transaction when the record had consumed it.
func (s *Service) Delete(ctx context.Context, actor Actor, kind Kind, id uuid.UUID) (bool, error) {
	released, err := s.repo.DeleteAppointment(ctx, kind, id)
	if err != nil {
		return false, err
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("appointment_id", id.String()).
		Str("kind", string(kind)).
		Bool("released_capacity", released).
		Str("actor_role", string(actor.Role)).
		Msg("appointment deleted")

	return released, nil
}

// BulkItem names one appointment by its explicit discriminant pair.
type BulkItem struct {
	Kind Kind
	ID   uuid.UUID
}

type BulkStatusItem struct {
	BulkItem
	Status Status
}

// BulkResult is the per-id outcome; Err is nil on success.
type BulkResult struct {
	Kind Kind
	ID   uuid.UUID
	Err  error
}

// BulkUpdateStatus applies independent status updates concurrently. A failed
// member never blocks or rolls back its siblings.
func (s *Service) BulkUpdateStatus(ctx context.Context, actor Actor, items []BulkStatusItem) []BulkResult {
	results := make([]BulkResult, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BulkStatusItem) {
			defer wg.Done()
			_, err := s.Update(ctx, actor, item.Kind, item.ID, UpdateInput{Status: &item.Status})
			results[i] = BulkResult{Kind: item.Kind, ID: item.ID, Err: err}
		}(i, item)
	}
	wg.Wait()

	return results
}

// BulkDelete removes each named record concurrently, reporting per-id
// outcomes.
func (s *Service) BulkDelete(ctx context.Context, actor Actor, items []BulkItem) []BulkResult {
	results := make([]BulkResult, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BulkItem) {
			defer wg.Done()
			_, err := s.Delete(ctx, actor, item.Kind, item.ID)
			results[i] = BulkResult{Kind: item.Kind, ID: item.ID, Err: err}
		}(i, item)
	}
	wg.Wait()

	return results
}
