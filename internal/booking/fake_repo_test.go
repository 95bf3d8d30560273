package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository for service tests. The mutex gives the
// same serialization guarantee the real conditional updates give, so the
// capacity tests exercise genuine concurrency.
type fakeRepo struct {
	mu sync.Mutex

	patients    map[uuid.UUID]Patient
	guests      map[uuid.UUID]Guest
	doctors     map[uuid.UUID]Doctor
	categories  map[uuid.UUID]Category
	slots       map[uuid.UUID]Slot
	assignments map[uuid.UUID]*DoctorSlotAssignment

	appts     map[Kind]map[uuid.UUID]*Appointment
	apptOrder map[Kind][]uuid.UUID

	clock time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:    make(map[uuid.UUID]Patient),
		guests:      make(map[uuid.UUID]Guest),
		doctors:     make(map[uuid.UUID]Doctor),
		categories:  make(map[uuid.UUID]Category),
		slots:       make(map[uuid.UUID]Slot),
		assignments: make(map[uuid.UUID]*DoctorSlotAssignment),
		appts: map[Kind]map[uuid.UUID]*Appointment{
			KindPatient: {},
			KindGuest:   {},
		},
		apptOrder: map[Kind][]uuid.UUID{},
		clock:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeRepo) addPatient(name string) uuid.UUID {
	id := uuid.New()
	f.patients[id] = Patient{ID: id, FullName: name, Phone: "555-0000"}
	return id
}

func (f *fakeRepo) addDoctor(name string) uuid.UUID {
	id := uuid.New()
	f.doctors[id] = Doctor{ID: id, FullName: name}
	return id
}

func (f *fakeRepo) addCategory(name string) uuid.UUID {
	id := uuid.New()
	f.categories[id] = Category{ID: id, Name: name}
	return id
}

func (f *fakeRepo) addAssignment(doctorID uuid.UUID, max int) uuid.UUID {
	slotID := uuid.New()
	f.slots[slotID] = Slot{
		ID:       slotID,
		SlotDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		SlotTime: "09:00",
		IsActive: true,
	}
	id := uuid.New()
	f.assignments[id] = &DoctorSlotAssignment{
		ID:              id,
		DoctorID:        doctorID,
		SlotID:          slotID,
		MaxAppointments: max,
	}
	return id
}

func (f *fakeRepo) removeAssignment(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assignments, id)
}

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.patients[id]; ok {
		return &p, nil
	}
	return nil, ErrPatientNotFound
}

func (f *fakeRepo) GetGuestByID(_ context.Context, id uuid.UUID) (*Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.guests[id]; ok {
		return &g, nil
	}
	return nil, ErrGuestNotFound
}

func (f *fakeRepo) FindGuestByContact(_ context.Context, phone string, email *string) (*Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(f.guests))
	for id := range f.guests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return f.guests[ids[i]].CreatedAt.Before(f.guests[ids[j]].CreatedAt)
	})

	for _, id := range ids {
		g := f.guests[id]
		if g.Phone == phone {
			return &g, nil
		}
		if email != nil && g.Email != nil && *g.Email == *email {
			return &g, nil
		}
	}
	return nil, ErrGuestNotFound
}

func (f *fakeRepo) CreateGuest(_ context.Context, g Guest) (*Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID = uuid.New()
	g.CreatedAt = f.tick()
	f.guests[g.ID] = g
	return &g, nil
}

func (f *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.doctors[id]; ok {
		return &d, nil
	}
	return nil, ErrDoctorNotFound
}

func (f *fakeRepo) GetCategoryByID(_ context.Context, id uuid.UUID) (*Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.categories[id]; ok {
		return &c, nil
	}
	return nil, ErrCategoryNotFound
}

func (f *fakeRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.slots[id]; ok {
		return &s, nil
	}
	return nil, ErrSlotNotFound
}

func (f *fakeRepo) GetAssignmentByID(_ context.Context, id uuid.UUID) (*DoctorSlotAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assignments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, ErrAssignmentNotFound
}

func (f *fakeRepo) TryReserve(_ context.Context, assignmentID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.assignments[assignmentID]
	if !ok {
		return false, nil
	}
	if a.AppointmentsCount >= a.MaxAppointments {
		return false, nil
	}
	a.AppointmentsCount++
	return true, nil
}

func (f *fakeRepo) Release(_ context.Context, assignmentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if a, ok := f.assignments[assignmentID]; ok && a.AppointmentsCount > 0 {
		a.AppointmentsCount--
	}
	return nil
}

func (f *fakeRepo) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a.ID = uuid.New()
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	f.appts[a.Kind][a.ID] = &a
	f.apptOrder[a.Kind] = append(f.apptOrder[a.Kind], a.ID)

	copied := a
	return &copied, nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, kind Kind, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if a, ok := f.appts[kind][id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) UpdateAppointmentFields(_ context.Context, a Appointment) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.appts[a.Kind][a.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.CreatedAt = stored.CreatedAt
	a.Status = stored.Status
	a.UpdatedAt = f.tick()
	*stored = a

	copied := a
	return &copied, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(_ context.Context, kind Kind, id uuid.UUID, from, to Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[kind][id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = f.tick()

	copied := *a
	return &copied, nil
}

func (f *fakeRepo) DeleteAppointment(_ context.Context, kind Kind, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[kind][id]
	if !ok {
		return false, ErrAppointmentNotFound
	}
	delete(f.appts[kind], id)

	order := f.apptOrder[kind]
	for i, oid := range order {
		if oid == id {
			f.apptOrder[kind] = append(order[:i], order[i+1:]...)
			break
		}
	}

	released := false
	if a.SlotAssignmentID != nil && a.Status != StatusPending && a.Status != StatusCancelled {
		if asg, ok := f.assignments[*a.SlotAssignmentID]; ok && asg.AppointmentsCount > 0 {
			asg.AppointmentsCount--
			released = true
		}
	}

	return released, nil
}

func (f *fakeRepo) ListAppointmentRows(_ context.Context, kind Kind) ([]AppointmentRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := make([]AppointmentRow, 0, len(f.apptOrder[kind]))
	for _, id := range f.apptOrder[kind] {
		a := f.appts[kind][id]
		row := AppointmentRow{Appointment: *a}

		switch kind {
		case KindPatient:
			if p, ok := f.patients[a.SubjectID]; ok {
				name := p.FullName
				row.SubjectName = &name
			}
		case KindGuest:
			if g, ok := f.guests[a.SubjectID]; ok {
				name := g.FullName
				row.SubjectName = &name
			}
		}

		if a.DoctorID != nil {
			if d, ok := f.doctors[*a.DoctorID]; ok {
				name := d.FullName
				row.DoctorName = &name
			}
		}
		if a.CategoryID != nil {
			if c, ok := f.categories[*a.CategoryID]; ok {
				name := c.Name
				row.CategoryName = &name
			}
		}
		if a.SlotAssignmentID != nil {
			if asg, ok := f.assignments[*a.SlotAssignmentID]; ok {
				if s, ok := f.slots[asg.SlotID]; ok {
					d := s.SlotDate
					t := s.SlotTime
					row.SlotDate = &d
					row.SlotTime = &t
				}
			}
		}

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	return rows, nil
}

// countingCache records invalidations for cache-behavior assertions.
type countingCache struct {
	mu          sync.Mutex
	stored      []UnifiedAppointment
	hasValue    bool
	invalidates int
}

func (c *countingCache) Get(context.Context) ([]UnifiedAppointment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasValue {
		return nil, false
	}
	return c.stored, true
}

func (c *countingCache) Set(_ context.Context, list []UnifiedAppointment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = list
	c.hasValue = true
}

func (c *countingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = nil
	c.hasValue = false
	c.invalidates++
}
