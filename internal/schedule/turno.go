package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Turno is one of the fixed working periods a doctor can be assigned on a weekday.
type Turno string

const (
	TurnoMorning   Turno = "MORNING"
	TurnoAfternoon Turno = "AFTERNOON"
	TurnoNight     Turno = "NIGHT"
	TurnoFull      Turno = "FULL"
)

// Offsets from midnight. NIGHT ends after midnight, so its end is past 24h.
var turnoHours = map[Turno][2]time.Duration{
	TurnoMorning:   {8 * time.Hour, 14 * time.Hour},
	TurnoAfternoon: {14 * time.Hour, 20 * time.Hour},
	TurnoNight:     {20 * time.Hour, 26 * time.Hour},
	TurnoFull:      {8 * time.Hour, 20 * time.Hour},
}

func ParseTurno(s string) (Turno, error) {
	t := Turno(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := turnoHours[t]; !ok {
		return "", fmt.Errorf("unknown turno %q", s)
	}
	return t, nil
}

func (t Turno) Valid() bool {
	_, ok := turnoHours[t]
	return ok
}

// Hours returns the wall-clock range of the turno as offsets from midnight.
func (t Turno) Hours() TimeRange {
	h, ok := turnoHours[t]
	if !ok {
		return TimeRange{}
	}
	return TimeRange{Start: h[0], End: h[1]}
}
