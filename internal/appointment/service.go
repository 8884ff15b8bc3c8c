package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/clinic-shift-scheduling/internal/redis"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

var (
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
)

// maxReasonLength matches the reason column, counted in characters.
const maxReasonLength = 500

// Observer receives the outcome of every engine operation: "ok", "error" or a
// rejection kind.
type Observer interface {
	ObserveOperation(operation, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string) {}

type Service struct {
	repo      Repository
	locker    redisclient.Locker
	clock     schedule.Clock
	calendar  *schedule.Calendar
	resolver  *schedule.Resolver
	validator *Validator
	fields    *validator.Validate
	logger    *zap.Logger
	observer  Observer
}

func NewService(repo Repository, locker redisclient.Locker, clock schedule.Clock, logger *zap.Logger, observer Observer) *Service {
	if locker == nil {
		locker = redisclient.NewNoopLocker()
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	calendar := schedule.NewCalendar(repo)
	return &Service{
		repo:      repo,
		locker:    locker,
		clock:     clock,
		calendar:  calendar,
		resolver:  schedule.NewResolver(calendar),
		validator: NewValidator(calendar, repo, clock),
		fields:    newFieldValidator(clock),
		logger:    logger,
		observer:  observer,
	}
}

type CreateAppointmentInput struct {
	PatientID  uuid.UUID `validate:"required"`
	DoctorID   uuid.UUID `validate:"required"`
	Date       time.Time
	SlotNumber int
	Status     AppointmentStatus
	Reason     string `validate:"max=500"`
}

// UpdateAppointmentInput holds the fields to change; nil means unchanged.
type UpdateAppointmentInput struct {
	PatientID  *uuid.UUID
	DoctorID   *uuid.UUID
	Date       *time.Time
	SlotNumber *int
	Status     *AppointmentStatus
	Reason     *string
}

// reschedules reports whether the request moves the appointment to another
// doctor, date or slot. Resending a stored value is not a move.
func (in UpdateAppointmentInput) reschedules(current *Appointment) bool {
	return (in.DoctorID != nil && *in.DoctorID != current.DoctorID) ||
		(in.Date != nil && !schedule.DateOf(*in.Date).Equal(current.Date)) ||
		(in.SlotNumber != nil && *in.SlotNumber != current.SlotNumber)
}

// CreateAppointment books a slot for a patient. Nothing is written unless every
// availability check passes.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	const op = "create"

	if in.Date.IsZero() {
		return nil, s.rejected(op, reject(KindInvalidFieldFormat, "date is required"))
	}

	appt := &Appointment{
		PatientID:    in.PatientID,
		DoctorID:     in.DoctorID,
		Date:         schedule.DateOf(in.Date),
		SlotNumber:   in.SlotNumber,
		Status:       in.Status,
		Reason:       in.Reason,
		RegisteredAt: s.clock.Today(),
	}
	if appt.Status == "" {
		appt.Status = StatusRegistered
	}

	if rej := s.validator.CheckStatic(appt.Candidate()); rej != nil {
		return nil, s.rejected(op, rej)
	}
	if !CanTransition("", appt.Status) {
		return nil, s.rejected(op, ErrInvalidStateTransition)
	}
	if rej := s.checkFields(in); rej != nil {
		return nil, s.rejected(op, rej)
	}

	if _, err := s.repo.GetPatientByID(ctx, appt.PatientID); err != nil {
		return nil, s.failed(op, wrapLookup(err, ErrPatientNotFound, "load patient"))
	}
	if _, err := s.repo.GetDoctorByID(ctx, appt.DoctorID); err != nil {
		return nil, s.failed(op, wrapLookup(err, ErrDoctorNotFound, "load doctor"))
	}

	err := s.locker.WithSlotLock(ctx, slotKey(appt), func(lockCtx context.Context) error {
		rej, err := s.validator.Validate(lockCtx, appt.Candidate())
		if err != nil {
			return fmt.Errorf("validate availability: %w", err)
		}
		if rej != nil {
			return rej
		}

		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			if errors.Is(err, ErrSlotConstraint) {
				return ErrSlotAlreadyTaken
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.failed(op, lockError(err))
	}

	s.succeeded(op, appt)
	return appt, nil
}

// UpdateAppointment edits an appointment. A change of doctor, date or slot
// re-runs the availability checks; status-only and reason-only edits do not.
// Requesting CANCELLED always follows the cancellation rules and ignores the
// other fields of the request.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in UpdateAppointmentInput) (*Appointment, error) {
	const op = "update"

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, s.failed(op, wrapLookup(err, ErrAppointmentNotFound, "load appointment"))
	}

	if in.Status != nil && *in.Status == StatusCancelled {
		return s.cancel(ctx, op, current)
	}

	next := *current
	if in.PatientID != nil {
		next.PatientID = *in.PatientID
	}
	if in.DoctorID != nil {
		next.DoctorID = *in.DoctorID
	}
	if in.Date != nil {
		next.Date = schedule.DateOf(*in.Date)
	}
	if in.SlotNumber != nil {
		next.SlotNumber = *in.SlotNumber
	}
	if in.Reason != nil {
		next.Reason = *in.Reason
	}
	if in.Status != nil && *in.Status != current.Status {
		if !CanTransition(current.Status, *in.Status) {
			return nil, s.rejected(op, ErrInvalidStateTransition)
		}
		next.Status = *in.Status
	}

	if next.PatientID == uuid.Nil || next.DoctorID == uuid.Nil || next.Date.IsZero() {
		return nil, s.rejected(op, reject(KindInvalidFieldFormat, "patient, doctor and date are required"))
	}
	if in.Reason != nil && utf8.RuneCountInString(*in.Reason) > maxReasonLength {
		return nil, s.rejected(op, reject(KindInvalidFieldFormat, "reason must be at most %d characters", maxReasonLength))
	}

	if in.PatientID != nil && *in.PatientID != current.PatientID {
		if _, err := s.repo.GetPatientByID(ctx, next.PatientID); err != nil {
			return nil, s.failed(op, wrapLookup(err, ErrPatientNotFound, "load patient"))
		}
	}

	if !in.reschedules(current) {
		updated, err := s.write(ctx, &next, current.Status)
		if err != nil {
			return nil, s.failed(op, err)
		}
		s.succeeded(op, updated)
		return updated, nil
	}

	if rej := s.validator.CheckStatic(next.Candidate()); rej != nil {
		return nil, s.rejected(op, rej)
	}
	if next.DoctorID != current.DoctorID {
		if _, err := s.repo.GetDoctorByID(ctx, next.DoctorID); err != nil {
			return nil, s.failed(op, wrapLookup(err, ErrDoctorNotFound, "load doctor"))
		}
	}

	var updated *Appointment
	err = s.locker.WithSlotLock(ctx, slotKey(&next), func(lockCtx context.Context) error {
		rej, err := s.validator.Validate(lockCtx, next.Candidate())
		if err != nil {
			return fmt.Errorf("validate availability: %w", err)
		}
		if rej != nil {
			return rej
		}
		updated, err = s.write(lockCtx, &next, current.Status)
		return err
	})
	if err != nil {
		return nil, s.failed(op, lockError(err))
	}

	s.succeeded(op, updated)
	return updated, nil
}

// CancelAppointment cancels a REGISTERED appointment at least one day ahead.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	const op = "cancel"

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, s.failed(op, wrapLookup(err, ErrAppointmentNotFound, "load appointment"))
	}
	return s.cancel(ctx, op, current)
}

func (s *Service) cancel(ctx context.Context, op string, current *Appointment) (*Appointment, error) {
	today := s.clock.Today()
	if rej := CheckCancellation(current, today); rej != nil {
		return nil, s.rejected(op, rej)
	}

	next := *current
	next.Status = StatusCancelled
	next.CancelledAt = &today

	updated, err := s.write(ctx, &next, current.Status)
	if err != nil {
		return nil, s.failed(op, err)
	}

	s.succeeded(op, updated)
	return updated, nil
}

// MarkAttended moves a REGISTERED appointment to ATTENDED.
func (s *Service) MarkAttended(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	attended := StatusAttended
	return s.UpdateAppointment(ctx, id, UpdateAppointmentInput{Status: &attended})
}

// write persists next only if the stored status is still expected.
func (s *Service) write(ctx context.Context, next *Appointment, expected AppointmentStatus) (*Appointment, error) {
	updated, err := s.repo.UpdateAppointment(ctx, next, expected)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotConstraint):
			return nil, ErrSlotAlreadyTaken
		case errors.Is(err, ErrAppointmentNotFound):
			// The row changed status since it was read.
			return nil, ErrInvalidStateTransition
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return updated, nil
}

// GetAppointment retrieves an appointment with its doctor, patient and slot time.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, ErrAppointmentNotFound, "get appointment")
	}

	detail := &AppointmentDetail{Appointment: *appt}

	if detail.Doctor, err = s.repo.GetDoctorByID(ctx, appt.DoctorID); err != nil {
		return nil, wrapLookup(err, ErrDoctorNotFound, "get appointment doctor")
	}
	if detail.Patient, err = s.repo.GetPatientByID(ctx, appt.PatientID); err != nil {
		return nil, wrapLookup(err, ErrPatientNotFound, "get appointment patient")
	}

	tr, ok, err := s.resolver.Resolve(ctx, appt.DoctorID, appt.Date, appt.SlotNumber)
	if err != nil {
		return nil, fmt.Errorf("resolve slot time: %w", err)
	}
	if ok {
		detail.Slot = &tr
		detail.SlotText = schedule.FormatClock(tr.Start)
	}

	return detail, nil
}

// ResolveSlotTime returns nil when the slot cannot be placed on the doctor's
// calendar for that date.
func (s *Service) ResolveSlotTime(ctx context.Context, doctorID uuid.UUID, date time.Time, slot int) (*schedule.TimeRange, error) {
	tr, ok, err := s.resolver.Resolve(ctx, doctorID, date, slot)
	if err != nil {
		return nil, fmt.Errorf("resolve slot time: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (s *Service) ListSlotsForShift(ctx context.Context, shiftID uuid.UUID) ([]schedule.TimeRange, error) {
	shift, err := s.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return schedule.ListSlotsForShift(*shift), nil
}

// DoctorDaySlots lays out the doctor's grid on a date with booked slots marked.
func (s *Service) DoctorDaySlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]DaySlot, error) {
	date = schedule.DateOf(date)

	shift, err := s.calendar.ActiveShiftFor(ctx, doctorID, schedule.WeekdayOf(date))
	if err != nil {
		if errors.Is(err, schedule.ErrNoActiveShift) {
			return nil, ErrNoActiveShiftForDay
		}
		return nil, err
	}

	taken, err := s.repo.TakenSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load taken slots: %w", err)
	}
	busy := make(map[int]bool, len(taken))
	for _, n := range taken {
		busy[n] = true
	}

	grid := schedule.ListSlotsForShift(*shift)
	out := make([]DaySlot, len(grid))
	for i, r := range grid {
		out[i] = DaySlot{Number: i + 1, Range: r, Taken: busy[i+1]}
	}
	return out, nil
}

func slotKey(a *Appointment) redisclient.SlotKey {
	return redisclient.SlotKey{DoctorID: a.DoctorID, Date: a.Date, Slot: a.SlotNumber}
}

func lockError(err error) error {
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrSlotBeingBooked
	}
	return err
}

// wrapLookup keeps not-found sentinels bare and wraps anything else.
func wrapLookup(err, notFound error, msg string) error {
	if errors.Is(err, notFound) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *Service) rejected(op string, rej *Rejection) error {
	s.logger.Info("appointment rejected",
		zap.String("operation", op),
		zap.String("reason", string(rej.Kind)),
		zap.String("message", rej.Message),
	)
	s.observer.ObserveOperation(op, string(rej.Kind))
	return rej
}

func (s *Service) failed(op string, err error) error {
	var rej *Rejection
	if errors.As(err, &rej) {
		return s.rejected(op, rej)
	}
	if IsNotFound(err) {
		s.logger.Info("appointment lookup missed", zap.String("operation", op), zap.Error(err))
		s.observer.ObserveOperation(op, "not_found")
		return err
	}
	s.logger.Error("appointment operation failed", zap.String("operation", op), zap.Error(err))
	s.observer.ObserveOperation(op, "error")
	return err
}

func (s *Service) succeeded(op string, a *Appointment) {
	s.logger.Info("appointment "+op,
		zap.String("appointment_id", a.ID.String()),
		zap.String("doctor_id", a.DoctorID.String()),
		zap.String("date", a.Date.Format(time.DateOnly)),
		zap.Int("slot", a.SlotNumber),
		zap.String("status", string(a.Status)),
	)
	s.observer.ObserveOperation(op, "ok")
}
