package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverMorningSlots(t *testing.T) {
	doctor := uuid.New()
	resolver := NewResolver(NewCalendar(&stubShiftFinder{shifts: []Shift{
		{DoctorID: doctor, Weekday: Tuesday, Turno: TurnoMorning, Status: ShiftActive},
	}}))
	tuesday := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	first, ok, err := resolver.Resolve(context.Background(), doctor, tuesday, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "08:00 - 08:30", first.String())

	last, ok, err := resolver.Resolve(context.Background(), doctor, tuesday, 16)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "15:30 - 16:00", last.String())

	for n := 1; n <= SlotsPerShift; n++ {
		got, _, _ := resolver.Resolve(context.Background(), doctor, tuesday, n)
		assert.Equal(t, 8*time.Hour+time.Duration(n-1)*30*time.Minute, got.Start)
	}
}

func TestResolverIsIdempotent(t *testing.T) {
	doctor := uuid.New()
	resolver := NewResolver(NewCalendar(&stubShiftFinder{shifts: []Shift{
		{DoctorID: doctor, Weekday: Tuesday, Turno: TurnoAfternoon, Status: ShiftActive},
	}}))
	tuesday := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	a, okA, errA := resolver.Resolve(context.Background(), doctor, tuesday, 5)
	b, okB, errB := resolver.Resolve(context.Background(), doctor, tuesday, 5)
	assert.Equal(t, a, b)
	assert.Equal(t, okA, okB)
	assert.Equal(t, errA, errB)
}

func TestResolverIncompleteInputs(t *testing.T) {
	finder := &stubShiftFinder{}
	resolver := NewResolver(NewCalendar(finder))
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	_, ok, err := resolver.Resolve(context.Background(), uuid.Nil, date, 1)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = resolver.Resolve(context.Background(), uuid.New(), time.Time{}, 1)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = resolver.Resolve(context.Background(), uuid.New(), date, 0)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.Zero(t, finder.calls)
}

func TestResolverNoShift(t *testing.T) {
	resolver := NewResolver(NewCalendar(&stubShiftFinder{}))
	_, ok, err := resolver.Resolve(context.Background(), uuid.New(), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), 3)
	assert.NoError(t, err)
	assert.False(t, ok)

	text, err := resolver.SlotText(context.Background(), uuid.New(), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), 3)
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestResolverSurfacesStoreErrors(t *testing.T) {
	resolver := NewResolver(NewCalendar(&stubShiftFinder{err: errors.New("timeout")}))
	_, ok, err := resolver.Resolve(context.Background(), uuid.New(), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), 3)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestResolverSlotText(t *testing.T) {
	doctor := uuid.New()
	resolver := NewResolver(NewCalendar(&stubShiftFinder{shifts: []Shift{
		{DoctorID: doctor, Weekday: Sunday, Turno: TurnoNight, Status: ShiftActive},
	}}))
	sunday := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)

	text, err := resolver.SlotText(context.Background(), doctor, sunday, 9)
	require.NoError(t, err)
	assert.Equal(t, "00:00", text)
}
