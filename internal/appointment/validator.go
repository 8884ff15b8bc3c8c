package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

// conflictCounter is the part of the store the validator reads besides shifts.
type conflictCounter interface {
	CountConflictingAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time, slot int, excludingID uuid.UUID) (int, error)
}

// Validator checks whether a booking targets an open, in-range, future slot.
//
// Checks run cheapest first: past date, slot range, active shift, conflict.
// The first failure wins. A rejection is returned as *Rejection with a nil
// error; a store failure is returned as error with a nil rejection.
type Validator struct {
	calendar  *schedule.Calendar
	conflicts conflictCounter
	clock     schedule.Clock
}

func NewValidator(calendar *schedule.Calendar, conflicts conflictCounter, clock schedule.Clock) *Validator {
	return &Validator{calendar: calendar, conflicts: conflicts, clock: clock}
}

// CheckStatic runs the checks that need no store access.
func (v *Validator) CheckStatic(c Candidate) *Rejection {
	if schedule.DateOf(c.Date).Before(v.clock.Today()) {
		return ErrPastDate
	}
	if c.SlotNumber < 1 || c.SlotNumber > schedule.SlotsPerShift {
		return ErrSlotOutOfRange
	}
	return nil
}

func (v *Validator) Validate(ctx context.Context, c Candidate) (*Rejection, error) {
	if rej := v.CheckStatic(c); rej != nil {
		return rej, nil
	}

	if _, err := v.calendar.ActiveShiftFor(ctx, c.DoctorID, schedule.WeekdayOf(c.Date)); err != nil {
		if errors.Is(err, schedule.ErrNoActiveShift) {
			return ErrNoActiveShiftForDay, nil
		}
		return nil, err
	}

	n, err := v.conflicts.CountConflictingAppointments(ctx, c.DoctorID, schedule.DateOf(c.Date), c.SlotNumber, c.ID)
	if err != nil {
		return nil, fmt.Errorf("count conflicting appointments: %w", err)
	}
	if n > 0 {
		return ErrSlotAlreadyTaken, nil
	}

	return nil, nil
}
