package appointment

import "fmt"

// RejectionKind identifies a business-rule failure.
type RejectionKind string

const (
	KindPastDate               RejectionKind = "past_date"
	KindSlotOutOfRange         RejectionKind = "slot_out_of_range"
	KindNoActiveShiftForDay    RejectionKind = "no_active_shift_for_day"
	KindSlotAlreadyTaken       RejectionKind = "slot_already_taken"
	KindDuplicateShiftForDay   RejectionKind = "duplicate_shift_for_day"
	KindInvalidStateTransition RejectionKind = "invalid_state_transition"
	KindCancellationTooLate    RejectionKind = "cancellation_too_late"
	KindIdentifierExists       RejectionKind = "identifier_already_exists"
	KindInvalidFieldFormat     RejectionKind = "invalid_field_format"
)

// Rejection is a user-facing validation failure. Two rejections match under
// errors.Is when their kinds are equal, so callers can compare against the
// Err* values below regardless of message.
type Rejection struct {
	Kind    RejectionKind `json:"code"`
	Message string        `json:"message"`
}

func (r *Rejection) Error() string {
	if r == nil {
		return "<nil>"
	}
	return r.Message
}

func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok || r == nil || t == nil {
		return false
	}
	return r.Kind == t.Kind
}

func reject(kind RejectionKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrPastDate               = &Rejection{KindPastDate, "cannot book appointments on past dates"}
	ErrSlotOutOfRange         = &Rejection{KindSlotOutOfRange, "slot must be between 1 and 16"}
	ErrNoActiveShiftForDay    = &Rejection{KindNoActiveShiftForDay, "no active shift for that day"}
	ErrSlotAlreadyTaken       = &Rejection{KindSlotAlreadyTaken, "slot already taken"}
	ErrDuplicateShiftForDay   = &Rejection{KindDuplicateShiftForDay, "doctor already has an active shift for that day"}
	ErrInvalidStateTransition = &Rejection{KindInvalidStateTransition, "invalid status transition"}
	ErrCancellationTooLate    = &Rejection{KindCancellationTooLate, "must cancel at least 24 hours in advance"}
	ErrIdentifierExists       = &Rejection{KindIdentifierExists, "identifier already exists"}
	ErrInvalidFieldFormat     = &Rejection{KindInvalidFieldFormat, "invalid field format"}
)
