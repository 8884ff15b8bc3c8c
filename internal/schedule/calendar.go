package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SlotDuration = 30 * time.Minute
	// SlotsPerShift is fixed for every turno, even where the turno is shorter
	// than SlotsPerShift*SlotDuration.
	SlotsPerShift = 16
)

var ErrNoActiveShift = errors.New("no active shift for that day")

type ShiftStatus string

const (
	ShiftActive   ShiftStatus = "ACTIVE"
	ShiftInactive ShiftStatus = "INACTIVE"
)

type Shift struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Weekday   Weekday
	Turno     Turno
	Status    ShiftStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeRange is a [Start, End) pair of offsets from midnight of a calendar date.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// On anchors the range to a calendar date.
func (r TimeRange) On(date time.Time) (time.Time, time.Time) {
	day := DateOf(date)
	return day.Add(r.Start), day.Add(r.End)
}

func (r TimeRange) String() string {
	return FormatClock(r.Start) + " - " + FormatClock(r.End)
}

// FormatClock renders an offset from midnight as HH:mm, wrapping past midnight.
func FormatClock(d time.Duration) string {
	mins := int(d/time.Minute) % (24 * 60)
	if mins < 0 {
		mins += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ShiftFinder is the read side of the shift store the calendar needs.
type ShiftFinder interface {
	// FindActiveShift returns the first ACTIVE shift by insertion order, or
	// ErrNoActiveShift.
	FindActiveShift(ctx context.Context, doctorID uuid.UUID, weekday Weekday) (*Shift, error)
}

type Calendar struct {
	shifts ShiftFinder
}

func NewCalendar(shifts ShiftFinder) *Calendar {
	return &Calendar{shifts: shifts}
}

// ActiveShiftFor looks up the doctor's active shift for a weekday.
func (c *Calendar) ActiveShiftFor(ctx context.Context, doctorID uuid.UUID, weekday Weekday) (*Shift, error) {
	shift, err := c.shifts.FindActiveShift(ctx, doctorID, weekday)
	if err != nil {
		if errors.Is(err, ErrNoActiveShift) {
			return nil, err
		}
		return nil, fmt.Errorf("find active shift: %w", err)
	}
	return shift, nil
}

// SlotRange computes slot n of a turno without range checks.
func SlotRange(turno Turno, n int) TimeRange {
	start := turno.Hours().Start + time.Duration(n-1)*SlotDuration
	return TimeRange{Start: start, End: start + SlotDuration}
}

// SlotGrid returns the ordered slots 1..SlotsPerShift of a turno.
func SlotGrid(turno Turno) []TimeRange {
	grid := make([]TimeRange, SlotsPerShift)
	for i := range grid {
		grid[i] = SlotRange(turno, i+1)
	}
	return grid
}

// ListSlotsForShift returns the slot grid of the shift's turno.
func ListSlotsForShift(shift Shift) []TimeRange {
	return SlotGrid(shift.Turno)
}

// DescribeGrid renders one "Slot n: HH:mm - HH:mm" line per slot.
func DescribeGrid(grid []TimeRange) string {
	lines := make([]string, len(grid))
	for i, r := range grid {
		lines[i] = fmt.Sprintf("Slot %d: %s", i+1, r)
	}
	return strings.Join(lines, "\n")
}
