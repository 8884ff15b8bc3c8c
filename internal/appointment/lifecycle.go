package appointment

import "time"

// CanTransition reports whether an appointment may move from one status to
// another. A new appointment (from "") may only start as REGISTERED;
// ATTENDED and CANCELLED are terminal.
func CanTransition(from, to AppointmentStatus) bool {
	switch from {
	case "":
		return to == StatusRegistered
	case StatusRegistered:
		return to == StatusAttended || to == StatusCancelled
	default:
		return false
	}
}

// HasLeadTime reports whether date is at least one full day after today.
func HasLeadTime(today, date time.Time) bool {
	return !date.Before(today.AddDate(0, 0, 1))
}

// CheckCancellation applies the cancellation rules to an appointment read
// from the store.
func CheckCancellation(a *Appointment, today time.Time) *Rejection {
	if !CanTransition(a.Status, StatusCancelled) {
		return ErrInvalidStateTransition
	}
	if !HasLeadTime(today, a.Date) {
		return ErrCancellationTooLate
	}
	return nil
}
