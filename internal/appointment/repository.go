package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrSpecialtyNotFound   = errors.New("specialty not found")
	ErrShiftNotFound       = errors.New("shift not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// Returned by the store when a write would break one of its uniqueness
	// constraints. The service maps them onto rejections.
	ErrSlotConstraint       = errors.New("appointment slot uniqueness constraint violated")
	ErrShiftConstraint      = errors.New("active shift uniqueness constraint violated")
	ErrIdentifierConstraint = errors.New("identifier uniqueness constraint violated")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrPatientNotFound) ||
		errors.Is(err, ErrDoctorNotFound) ||
		errors.Is(err, ErrSpecialtyNotFound) ||
		errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrAppointmentNotFound)
}

// Repository contains all store interactions needed by the engine.
type Repository interface {
	schedule.ShiftFinder

	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	GetShiftByID(ctx context.Context, id uuid.UUID) (*Shift, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Uniqueness and conflict checks
	CountActiveShifts(ctx context.Context, doctorID uuid.UUID, weekday schedule.Weekday) (int, error)
	CountConflictingAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time, slot int, excludingID uuid.UUID) (int, error)
	CountDoctorsByIdentifier(ctx context.Context, identifier string) (int, error)
	CountPatientsByIdentifier(ctx context.Context, identifier string) (int, error)

	// Slot numbers held by non-cancelled appointments of a doctor on a date.
	TakenSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]int, error)

	CreateSpecialty(ctx context.Context, s *Specialty) error
	CreateDoctor(ctx context.Context, d *Doctor) error
	CreatePatient(ctx context.Context, p *Patient) error

	CreateShift(ctx context.Context, s *Shift) error
	UpdateShiftTurno(ctx context.Context, id uuid.UUID, turno schedule.Turno) (*Shift, error)
	DeactivateShift(ctx context.Context, id uuid.UUID) (*Shift, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	// UpdateAppointment writes every mutable field, guarded by the status the
	// caller read. It returns ErrAppointmentNotFound if the row moved on.
	UpdateAppointment(ctx context.Context, a *Appointment, expected AppointmentStatus) (*Appointment, error)
}

// Shift is re-exported so callers of this package rarely need both imports.
type Shift = schedule.Shift
