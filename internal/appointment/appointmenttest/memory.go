// Package appointmenttest provides in-memory doubles for the appointment store
// and slot locker. The store enforces the same uniqueness rules as the
// Postgres schema.
package appointmenttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type Store struct {
	mu sync.Mutex

	specialties  map[uuid.UUID]appointment.Specialty
	doctors      map[uuid.UUID]appointment.Doctor
	patients     map[uuid.UUID]appointment.Patient
	shifts       []appointment.Shift
	appointments []appointment.Appointment

	failures map[string]error
	calls    map[string]int
}

var _ appointment.Repository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		specialties: make(map[uuid.UUID]appointment.Specialty),
		doctors:     make(map[uuid.UUID]appointment.Doctor),
		patients:    make(map[uuid.UUID]appointment.Patient),
		failures:    make(map[string]error),
		calls:       make(map[string]int),
	}
}

// Fail makes every later call of the named method return err.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Calls reports how many times the named method ran.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// enter records a call and returns the injected failure, if any. Callers hold mu.
func (s *Store) enter(method string) error {
	s.calls[method]++
	return s.failures[method]
}

// Seeding helpers write records directly, bypassing the service.

func (s *Store) AddDoctor(d appointment.Doctor) appointment.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = appointment.DoctorActive
	}
	s.doctors[d.ID] = d
	return d
}

func (s *Store) AddPatient(p appointment.Patient) appointment.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.patients[p.ID] = p
	return p
}

func (s *Store) AddSpecialty(sp appointment.Specialty) appointment.Specialty {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	s.specialties[sp.ID] = sp
	return sp
}

// AddShift appends a shift without the one-active-shift check, so tests can
// build states the service itself refuses to create.
func (s *Store) AddShift(sh appointment.Shift) appointment.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}
	if sh.Status == "" {
		sh.Status = schedule.ShiftActive
	}
	s.shifts = append(s.shifts, sh)
	return sh
}

func (s *Store) AddAppointment(a appointment.Appointment) appointment.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.appointments = append(s.appointments, a)
	return a
}

// Appointments returns a snapshot in insertion order.
func (s *Store) Appointments() []appointment.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]appointment.Appointment(nil), s.appointments...)
}

// Lookups

func (s *Store) GetSpecialtyByID(_ context.Context, id uuid.UUID) (*appointment.Specialty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetSpecialtyByID"); err != nil {
		return nil, err
	}
	sp, ok := s.specialties[id]
	if !ok {
		return nil, appointment.ErrSpecialtyNotFound
	}
	return &sp, nil
}

func (s *Store) GetDoctorByID(_ context.Context, id uuid.UUID) (*appointment.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetDoctorByID"); err != nil {
		return nil, err
	}
	d, ok := s.doctors[id]
	if !ok {
		return nil, appointment.ErrDoctorNotFound
	}
	return &d, nil
}

func (s *Store) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetPatientByID"); err != nil {
		return nil, err
	}
	p, ok := s.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	return &p, nil
}

func (s *Store) GetShiftByID(_ context.Context, id uuid.UUID) (*appointment.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetShiftByID"); err != nil {
		return nil, err
	}
	for _, sh := range s.shifts {
		if sh.ID == id {
			return &sh, nil
		}
	}
	return nil, appointment.ErrShiftNotFound
}

func (s *Store) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetAppointmentByID"); err != nil {
		return nil, err
	}
	for _, a := range s.appointments {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (s *Store) FindActiveShift(_ context.Context, doctorID uuid.UUID, weekday schedule.Weekday) (*schedule.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("FindActiveShift"); err != nil {
		return nil, err
	}
	for _, sh := range s.shifts {
		if sh.DoctorID == doctorID && sh.Weekday == weekday && sh.Status == schedule.ShiftActive {
			return &sh, nil
		}
	}
	return nil, schedule.ErrNoActiveShift
}

// Counts

func (s *Store) CountActiveShifts(_ context.Context, doctorID uuid.UUID, weekday schedule.Weekday) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountActiveShifts"); err != nil {
		return 0, err
	}
	return s.activeShifts(doctorID, weekday, uuid.Nil), nil
}

func (s *Store) CountConflictingAppointments(_ context.Context, doctorID uuid.UUID, date time.Time, slot int, excludingID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountConflictingAppointments"); err != nil {
		return 0, err
	}
	return s.holding(doctorID, date, slot, excludingID), nil
}

func (s *Store) CountDoctorsByIdentifier(_ context.Context, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountDoctorsByIdentifier"); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range s.doctors {
		if d.Identifier == identifier {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountPatientsByIdentifier(_ context.Context, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountPatientsByIdentifier"); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range s.patients {
		if p.Identifier == identifier {
			n++
		}
	}
	return n, nil
}

func (s *Store) TakenSlots(_ context.Context, doctorID uuid.UUID, date time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("TakenSlots"); err != nil {
		return nil, err
	}
	var out []int
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status != appointment.StatusCancelled {
			out = append(out, a.SlotNumber)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Writes

func (s *Store) CreateSpecialty(_ context.Context, sp *appointment.Specialty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateSpecialty"); err != nil {
		return err
	}
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	sp.CreatedAt = time.Now()
	s.specialties[sp.ID] = *sp
	return nil
}

func (s *Store) CreateDoctor(_ context.Context, d *appointment.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateDoctor"); err != nil {
		return err
	}
	for _, other := range s.doctors {
		if other.Identifier == d.Identifier {
			return appointment.ErrIdentifierConstraint
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt, d.UpdatedAt = time.Now(), time.Now()
	s.doctors[d.ID] = *d
	return nil
}

func (s *Store) CreatePatient(_ context.Context, p *appointment.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreatePatient"); err != nil {
		return err
	}
	for _, other := range s.patients {
		if other.Identifier == p.Identifier {
			return appointment.ErrIdentifierConstraint
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	s.patients[p.ID] = *p
	return nil
}

func (s *Store) CreateShift(_ context.Context, sh *appointment.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateShift"); err != nil {
		return err
	}
	if sh.Status == schedule.ShiftActive && s.activeShifts(sh.DoctorID, sh.Weekday, uuid.Nil) > 0 {
		return appointment.ErrShiftConstraint
	}
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}
	sh.CreatedAt, sh.UpdatedAt = time.Now(), time.Now()
	s.shifts = append(s.shifts, *sh)
	return nil
}

func (s *Store) UpdateShiftTurno(_ context.Context, id uuid.UUID, turno schedule.Turno) (*appointment.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateShiftTurno"); err != nil {
		return nil, err
	}
	for i := range s.shifts {
		if s.shifts[i].ID == id {
			s.shifts[i].Turno = turno
			s.shifts[i].UpdatedAt = time.Now()
			sh := s.shifts[i]
			return &sh, nil
		}
	}
	return nil, appointment.ErrShiftNotFound
}

func (s *Store) DeactivateShift(_ context.Context, id uuid.UUID) (*appointment.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeactivateShift"); err != nil {
		return nil, err
	}
	for i := range s.shifts {
		if s.shifts[i].ID == id {
			s.shifts[i].Status = schedule.ShiftInactive
			s.shifts[i].UpdatedAt = time.Now()
			sh := s.shifts[i]
			return &sh, nil
		}
	}
	return nil, appointment.ErrShiftNotFound
}

func (s *Store) CreateAppointment(_ context.Context, a *appointment.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateAppointment"); err != nil {
		return err
	}
	if a.Status != appointment.StatusCancelled && s.holding(a.DoctorID, a.Date, a.SlotNumber, uuid.Nil) > 0 {
		return appointment.ErrSlotConstraint
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	s.appointments = append(s.appointments, *a)
	return nil
}

func (s *Store) UpdateAppointment(_ context.Context, a *appointment.Appointment, expected appointment.AppointmentStatus) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateAppointment"); err != nil {
		return nil, err
	}
	for i := range s.appointments {
		if s.appointments[i].ID != a.ID {
			continue
		}
		if s.appointments[i].Status != expected {
			return nil, appointment.ErrAppointmentNotFound
		}
		if a.Status != appointment.StatusCancelled && s.holding(a.DoctorID, a.Date, a.SlotNumber, a.ID) > 0 {
			return nil, appointment.ErrSlotConstraint
		}
		updated := *a
		updated.CreatedAt = s.appointments[i].CreatedAt
		updated.UpdatedAt = time.Now()
		s.appointments[i] = updated
		return &updated, nil
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (s *Store) activeShifts(doctorID uuid.UUID, weekday schedule.Weekday, excluding uuid.UUID) int {
	n := 0
	for _, sh := range s.shifts {
		if sh.ID != excluding && sh.DoctorID == doctorID && sh.Weekday == weekday && sh.Status == schedule.ShiftActive {
			n++
		}
	}
	return n
}

func (s *Store) holding(doctorID uuid.UUID, date time.Time, slot int, excluding uuid.UUID) int {
	n := 0
	for _, a := range s.appointments {
		if a.ID != excluding && a.DoctorID == doctorID && a.Date.Equal(date) &&
			a.SlotNumber == slot && a.Status != appointment.StatusCancelled {
			n++
		}
	}
	return n
}
