package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type CreateAppointmentRequest struct {
	PatientID  string `json:"patient_id"`
	DoctorID   string `json:"doctor_id"`
	Date       string `json:"date"`
	SlotNumber int    `json:"slot_number"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// UpdateAppointmentRequest only carries the fields to change.
type UpdateAppointmentRequest struct {
	PatientID  *string `json:"patient_id"`
	DoctorID   *string `json:"doctor_id"`
	Date       *string `json:"date"`
	SlotNumber *int    `json:"slot_number"`
	Status     *string `json:"status"`
	Reason     *string `json:"reason"`
}

type SlotTimeResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func slotTime(r schedule.TimeRange) *SlotTimeResponse {
	return &SlotTimeResponse{Start: schedule.FormatClock(r.Start), End: schedule.FormatClock(r.End)}
}

type AppointmentResponse struct {
	ID           uuid.UUID         `json:"id"`
	PatientID    uuid.UUID         `json:"patient_id"`
	DoctorID     uuid.UUID         `json:"doctor_id"`
	Date         string            `json:"date"`
	SlotNumber   int               `json:"slot_number"`
	Status       string            `json:"status"`
	Reason       string            `json:"reason,omitempty"`
	RegisteredAt string            `json:"registered_at"`
	CancelledAt  *string           `json:"cancelled_at,omitempty"`
	SlotTime     *SlotTimeResponse `json:"slot_time,omitempty"`
	Summary      string            `json:"summary,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		Date:         a.Date.Format(time.DateOnly),
		SlotNumber:   a.SlotNumber,
		Status:       string(a.Status),
		Reason:       a.Reason,
		RegisteredAt: a.RegisteredAt.Format(time.DateOnly),
	}
	if a.CancelledAt != nil {
		s := a.CancelledAt.Format(time.DateOnly)
		resp.CancelledAt = &s
	}
	return resp
}

func toDetailResponse(d *appointment.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Slot != nil {
		resp.SlotTime = slotTime(*d.Slot)
	}
	resp.Summary = d.Summary()
	return resp
}

type DaySlotResponse struct {
	Slot  int    `json:"slot"`
	Start string `json:"start"`
	End   string `json:"end"`
	Taken bool   `json:"taken"`
}

type ResolvedSlotResponse struct {
	DoctorID   uuid.UUID         `json:"doctor_id"`
	Date       string            `json:"date"`
	SlotNumber int               `json:"slot_number"`
	Resolved   bool              `json:"resolved"`
	SlotTime   *SlotTimeResponse `json:"slot_time,omitempty"`
}

type CreateSpecialtyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type SpecialtyResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

type RegisterDoctorRequest struct {
	Identifier  string `json:"identifier"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	SpecialtyID string `json:"specialty_id"`
	Status      string `json:"status,omitempty"`
}

type DoctorResponse struct {
	ID          uuid.UUID `json:"id"`
	Identifier  string    `json:"identifier"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	SpecialtyID uuid.UUID `json:"specialty_id"`
	Status      string    `json:"status"`
}

func toDoctorResponse(d *appointment.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:          d.ID,
		Identifier:  d.Identifier,
		Name:        d.DisplayName(),
		Phone:       d.Phone,
		Email:       d.Email,
		SpecialtyID: d.SpecialtyID,
		Status:      string(d.Status),
	}
}

type RegisterPatientRequest struct {
	Identifier string `json:"identifier"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	BirthDate  string `json:"birth_date"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address,omitempty"`
}

type PatientResponse struct {
	ID           uuid.UUID `json:"id"`
	Identifier   string    `json:"identifier"`
	Name         string    `json:"name"`
	BirthDate    string    `json:"birth_date"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address,omitempty"`
	RegisteredAt string    `json:"registered_at"`
}

func toPatientResponse(p *appointment.Patient) PatientResponse {
	return PatientResponse{
		ID:           p.ID,
		Identifier:   p.Identifier,
		Name:         p.DisplayName(),
		BirthDate:    p.BirthDate.Format(time.DateOnly),
		Phone:        p.Phone,
		Email:        p.Email,
		Address:      p.Address,
		RegisteredAt: p.RegisteredAt.Format(time.DateOnly),
	}
}

type CreateShiftRequest struct {
	DoctorID string `json:"doctor_id"`
	Weekday  string `json:"weekday"`
	Turno    string `json:"turno"`
}

type UpdateShiftRequest struct {
	Turno string `json:"turno"`
}

type ShiftResponse struct {
	ID       uuid.UUID `json:"id"`
	DoctorID uuid.UUID `json:"doctor_id"`
	Weekday  string    `json:"weekday"`
	Turno    string    `json:"turno"`
	Hours    string    `json:"hours"`
	Status   string    `json:"status"`
}

func toShiftResponse(s *appointment.Shift) ShiftResponse {
	return ShiftResponse{
		ID:       s.ID,
		DoctorID: s.DoctorID,
		Weekday:  string(s.Weekday),
		Turno:    string(s.Turno),
		Hours:    s.Turno.Hours().String(),
		Status:   string(s.Status),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
