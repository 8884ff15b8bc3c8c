package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type CreateSpecialtyInput struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
}

type RegisterDoctorInput struct {
	Identifier  string       `validate:"required,identifier"`
	FirstName   string       `validate:"required,max=100,personname"`
	LastName    string       `validate:"required,max=100,personname"`
	Phone       string       `validate:"required,phone10"`
	Email       string       `validate:"required,max=100,email"`
	SpecialtyID uuid.UUID    `validate:"required"`
	Status      DoctorStatus `validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

type RegisterPatientInput struct {
	Identifier string    `validate:"required,identifier"`
	FirstName  string    `validate:"required,max=100,personname"`
	LastName   string    `validate:"required,max=100,personname"`
	BirthDate  time.Time `validate:"required,notfuture"`
	Phone      string    `validate:"required,phone10"`
	Email      string    `validate:"required,max=100,email"`
	Address    string    `validate:"max=200"`
}

type CreateShiftInput struct {
	DoctorID uuid.UUID `validate:"required"`
	Weekday  string    `validate:"required"`
	Turno    string    `validate:"required"`
}

func (s *Service) CreateSpecialty(ctx context.Context, in CreateSpecialtyInput) (*Specialty, error) {
	if rej := s.checkFields(in); rej != nil {
		return nil, rej
	}
	sp := &Specialty{Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description)}
	if err := s.repo.CreateSpecialty(ctx, sp); err != nil {
		return nil, fmt.Errorf("create specialty: %w", err)
	}
	return sp, nil
}

// RegisterDoctor creates a doctor, ACTIVE unless stated otherwise.
func (s *Service) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (*Doctor, error) {
	if rej := s.checkFields(in); rej != nil {
		return nil, rej
	}
	if _, err := s.repo.GetSpecialtyByID(ctx, in.SpecialtyID); err != nil {
		return nil, wrapLookup(err, ErrSpecialtyNotFound, "load specialty")
	}

	n, err := s.repo.CountDoctorsByIdentifier(ctx, in.Identifier)
	if err != nil {
		return nil, fmt.Errorf("count doctors by identifier: %w", err)
	}
	if n > 0 {
		return nil, ErrIdentifierExists
	}

	d := &Doctor{
		Identifier:  in.Identifier,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Phone:       in.Phone,
		Email:       strings.TrimSpace(in.Email),
		SpecialtyID: in.SpecialtyID,
		Status:      in.Status,
	}
	if d.Status == "" {
		d.Status = DoctorActive
	}

	if err := s.repo.CreateDoctor(ctx, d); err != nil {
		if errors.Is(err, ErrIdentifierConstraint) {
			return nil, ErrIdentifierExists
		}
		return nil, fmt.Errorf("create doctor: %w", err)
	}

	s.logger.Info("doctor registered", zap.String("doctor_id", d.ID.String()))
	return d, nil
}

// RegisterPatient creates a patient stamped with today's registration date.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*Patient, error) {
	if rej := s.checkFields(in); rej != nil {
		return nil, rej
	}

	n, err := s.repo.CountPatientsByIdentifier(ctx, in.Identifier)
	if err != nil {
		return nil, fmt.Errorf("count patients by identifier: %w", err)
	}
	if n > 0 {
		return nil, ErrIdentifierExists
	}

	p := &Patient{
		Identifier:   in.Identifier,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		BirthDate:    schedule.DateOf(in.BirthDate),
		Phone:        in.Phone,
		Email:        strings.TrimSpace(in.Email),
		Address:      strings.TrimSpace(in.Address),
		RegisteredAt: s.clock.Today(),
	}

	if err := s.repo.CreatePatient(ctx, p); err != nil {
		if errors.Is(err, ErrIdentifierConstraint) {
			return nil, ErrIdentifierExists
		}
		return nil, fmt.Errorf("create patient: %w", err)
	}

	s.logger.Info("patient registered", zap.String("patient_id", p.ID.String()))
	return p, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetDoctorByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, ErrDoctorNotFound, "get doctor")
	}
	return d, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, ErrPatientNotFound, "get patient")
	}
	return p, nil
}

// CreateShift assigns a turno to a doctor's weekday. At most one ACTIVE shift
// may exist per doctor and weekday.
func (s *Service) CreateShift(ctx context.Context, in CreateShiftInput) (*Shift, error) {
	if rej := s.checkFields(in); rej != nil {
		return nil, rej
	}
	weekday, err := schedule.ParseWeekday(in.Weekday)
	if err != nil {
		return nil, reject(KindInvalidFieldFormat, "%v", err)
	}
	turno, err := schedule.ParseTurno(in.Turno)
	if err != nil {
		return nil, reject(KindInvalidFieldFormat, "%v", err)
	}

	if _, err := s.repo.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, wrapLookup(err, ErrDoctorNotFound, "load doctor")
	}

	n, err := s.repo.CountActiveShifts(ctx, in.DoctorID, weekday)
	if err != nil {
		return nil, fmt.Errorf("count active shifts: %w", err)
	}
	if n > 0 {
		return nil, ErrDuplicateShiftForDay
	}

	shift := &Shift{
		DoctorID: in.DoctorID,
		Weekday:  weekday,
		Turno:    turno,
		Status:   schedule.ShiftActive,
	}
	if err := s.repo.CreateShift(ctx, shift); err != nil {
		if errors.Is(err, ErrShiftConstraint) {
			return nil, ErrDuplicateShiftForDay
		}
		return nil, fmt.Errorf("create shift: %w", err)
	}

	s.logger.Info("shift created",
		zap.String("shift_id", shift.ID.String()),
		zap.String("doctor_id", shift.DoctorID.String()),
		zap.String("weekday", string(shift.Weekday)),
		zap.String("turno", string(shift.Turno)),
	)
	return shift, nil
}

// ChangeShiftTurno swaps the turno of an existing shift. The (doctor, weekday)
// key is untouched, so the one-active-shift rule is not re-checked.
func (s *Service) ChangeShiftTurno(ctx context.Context, id uuid.UUID, turnoName string) (*Shift, error) {
	turno, err := schedule.ParseTurno(turnoName)
	if err != nil {
		return nil, reject(KindInvalidFieldFormat, "%v", err)
	}
	shift, err := s.repo.UpdateShiftTurno(ctx, id, turno)
	if err != nil {
		return nil, wrapLookup(err, ErrShiftNotFound, "update shift turno")
	}
	return shift, nil
}

func (s *Service) DeactivateShift(ctx context.Context, id uuid.UUID) (*Shift, error) {
	shift, err := s.repo.DeactivateShift(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, ErrShiftNotFound, "deactivate shift")
	}
	return shift, nil
}

func (s *Service) GetShift(ctx context.Context, id uuid.UUID) (*Shift, error) {
	shift, err := s.repo.GetShiftByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, ErrShiftNotFound, "get shift")
	}
	return shift, nil
}
