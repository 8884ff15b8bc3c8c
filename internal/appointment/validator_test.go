package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type stubShifts struct {
	shift *Shift
	err   error
	calls int
}

func (s *stubShifts) FindActiveShift(context.Context, uuid.UUID, schedule.Weekday) (*Shift, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.shift == nil {
		return nil, schedule.ErrNoActiveShift
	}
	return s.shift, nil
}

type stubConflicts struct {
	count     int
	err       error
	calls     int
	excluding uuid.UUID
}

func (s *stubConflicts) CountConflictingAppointments(_ context.Context, _ uuid.UUID, _ time.Time, _ int, excludingID uuid.UUID) (int, error) {
	s.calls++
	s.excluding = excludingID
	return s.count, s.err
}

var validatorToday = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func newTestValidator(shifts *stubShifts, conflicts *stubConflicts) *Validator {
	return NewValidator(schedule.NewCalendar(shifts), conflicts, schedule.FixedClock(validatorToday))
}

func TestValidate_CheckOrder(t *testing.T) {
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	shift := &Shift{Weekday: schedule.Monday, Turno: schedule.TurnoMorning, Status: schedule.ShiftActive}

	cases := []struct {
		name      string
		candidate Candidate
		shift     *Shift
		conflicts int
		want      *Rejection
	}{
		{"past date beats everything", Candidate{Date: validatorToday.AddDate(0, 0, -1), SlotNumber: 40}, nil, 1, ErrPastDate},
		{"slot range beats shift", Candidate{Date: monday, SlotNumber: 17}, nil, 1, ErrSlotOutOfRange},
		{"shift beats conflict", Candidate{Date: monday, SlotNumber: 1}, nil, 1, ErrNoActiveShiftForDay},
		{"conflict", Candidate{Date: monday, SlotNumber: 1}, shift, 1, ErrSlotAlreadyTaken},
		{"open slot", Candidate{Date: monday, SlotNumber: 16}, shift, 0, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestValidator(&stubShifts{shift: tc.shift}, &stubConflicts{count: tc.conflicts})
			rej, err := v.Validate(context.Background(), tc.candidate)
			require.NoError(t, err)
			assert.Equal(t, tc.want, rej)
		})
	}
}

func TestValidate_StaticChecksSkipStore(t *testing.T) {
	shifts := &stubShifts{}
	conflicts := &stubConflicts{}
	v := newTestValidator(shifts, conflicts)

	rej, err := v.Validate(context.Background(), Candidate{Date: validatorToday, SlotNumber: 0})

	require.NoError(t, err)
	assert.Equal(t, ErrSlotOutOfRange, rej)
	assert.Zero(t, shifts.calls)
	assert.Zero(t, conflicts.calls)
}

func TestValidate_ExcludesOwnAppointment(t *testing.T) {
	conflicts := &stubConflicts{}
	v := newTestValidator(&stubShifts{shift: &Shift{Turno: schedule.TurnoFull, Status: schedule.ShiftActive}}, conflicts)
	own := uuid.New()

	rej, err := v.Validate(context.Background(), Candidate{ID: own, Date: validatorToday, SlotNumber: 1})

	require.NoError(t, err)
	assert.Nil(t, rej)
	assert.Equal(t, own, conflicts.excluding)
}

func TestValidate_StoreErrors(t *testing.T) {
	boom := errors.New("db down")
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	v := newTestValidator(&stubShifts{err: boom}, &stubConflicts{})
	rej, err := v.Validate(context.Background(), Candidate{Date: monday, SlotNumber: 1})
	assert.Nil(t, rej)
	assert.ErrorIs(t, err, boom)

	v = newTestValidator(&stubShifts{shift: &Shift{Turno: schedule.TurnoMorning}}, &stubConflicts{err: boom})
	rej, err = v.Validate(context.Background(), Candidate{Date: monday, SlotNumber: 1})
	assert.Nil(t, rej)
	assert.ErrorIs(t, err, boom)
}
