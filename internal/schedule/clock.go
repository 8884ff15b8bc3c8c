package schedule

import "time"

// Clock supplies the current date. Dates throughout the engine are calendar
// dates stored as midnight UTC.
type Clock interface {
	Today() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// FixedClock always reports the same day.
type FixedClock time.Time

func (c FixedClock) Today() time.Time {
	return DateOf(time.Time(c))
}

// DateOf drops the time of day, keeping the calendar date as seen in t's location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}
