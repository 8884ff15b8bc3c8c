package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Resolver turns (doctor, date, slot number) into wall-clock times for display.
// It never enforces the slot range; that is the validator's job.
type Resolver struct {
	calendar *Calendar
}

func NewResolver(calendar *Calendar) *Resolver {
	return &Resolver{calendar: calendar}
}

// Resolve returns ok=false when any input is missing or the doctor has no active
// shift on that weekday. Only store failures produce an error.
func (r *Resolver) Resolve(ctx context.Context, doctorID uuid.UUID, date time.Time, slot int) (TimeRange, bool, error) {
	if doctorID == uuid.Nil || date.IsZero() || slot == 0 {
		return TimeRange{}, false, nil
	}

	shift, err := r.calendar.ActiveShiftFor(ctx, doctorID, WeekdayOf(date))
	if err != nil {
		if errors.Is(err, ErrNoActiveShift) {
			return TimeRange{}, false, nil
		}
		return TimeRange{}, false, err
	}

	return SlotRange(shift.Turno, slot), true, nil
}

// SlotText is Resolve formatted as the slot's HH:mm start, or "" when unresolved.
func (r *Resolver) SlotText(ctx context.Context, doctorID uuid.UUID, date time.Time, slot int) (string, error) {
	tr, ok, err := r.Resolve(ctx, doctorID, date, slot)
	if err != nil || !ok {
		return "", err
	}
	return FormatClock(tr.Start), nil
}
