package appointment

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type AppointmentStatus string

const (
	StatusRegistered AppointmentStatus = "REGISTERED"
	StatusAttended   AppointmentStatus = "ATTENDED"
	StatusCancelled  AppointmentStatus = "CANCELLED"
)

type DoctorStatus string

const (
	DoctorActive   DoctorStatus = "ACTIVE"
	DoctorInactive DoctorStatus = "INACTIVE"
)

type Specialty struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}

type Doctor struct {
	ID          uuid.UUID
	Identifier  string
	FirstName   string
	LastName    string
	Phone       string
	Email       string
	SpecialtyID uuid.UUID
	Status      DoctorStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (d Doctor) DisplayName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

type Patient struct {
	ID           uuid.UUID
	Identifier   string
	FirstName    string
	LastName     string
	BirthDate    time.Time
	Phone        string
	Email        string
	Address      string
	RegisteredAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Patient) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	Date         time.Time
	SlotNumber   int
	Status       AppointmentStatus
	Reason       string
	RegisteredAt time.Time
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Candidate is the booking target the availability validator checks.
// ID is uuid.Nil for a booking that does not exist yet.
type Candidate struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	Date       time.Time
	SlotNumber int
}

func (a Appointment) Candidate() Candidate {
	return Candidate{ID: a.ID, DoctorID: a.DoctorID, Date: a.Date, SlotNumber: a.SlotNumber}
}

type AppointmentDetail struct {
	Appointment
	Slot     *schedule.TimeRange
	SlotText string
	Doctor   *Doctor
	Patient  *Patient
}

// Summary reads like "2026-10-20 08:30 (Slot 2) - Dr. Ana Vera - Luis Mora".
func (d AppointmentDetail) Summary() string {
	hour := d.SlotText
	if hour == "" {
		hour = "NO TIME"
	}
	doctor, patient := "-", "-"
	if d.Doctor != nil {
		doctor = d.Doctor.DisplayName()
	}
	if d.Patient != nil {
		patient = d.Patient.DisplayName()
	}
	return d.Date.Format(time.DateOnly) + " " + hour + " (Slot " + strconv.Itoa(d.SlotNumber) + ") - " + doctor + " - " + patient
}

// DaySlot is one entry of a doctor's grid for a specific date.
type DaySlot struct {
	Number int
	Range  schedule.TimeRange
	Taken  bool
}
