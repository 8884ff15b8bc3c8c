package appointment_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/appointment/appointmenttest"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

func newRegistry(t *testing.T) (*appointment.Service, *appointmenttest.Store, appointment.Specialty) {
	t.Helper()
	store := appointmenttest.NewStore()
	svc := appointment.NewService(store, nil, schedule.FixedClock(today), nil, nil)
	sp := store.AddSpecialty(appointment.Specialty{Name: "Cardiology"})
	return svc, store, sp
}

func doctorInput(specialtyID uuid.UUID) appointment.RegisterDoctorInput {
	return appointment.RegisterDoctorInput{
		Identifier:  "1712345678",
		FirstName:   "José",
		LastName:    "Núñez",
		Phone:       "0991234567",
		Email:       "jose.nunez@clinic.test",
		SpecialtyID: specialtyID,
	}
}

func patientInput() appointment.RegisterPatientInput {
	return appointment.RegisterPatientInput{
		Identifier: "0912345678",
		FirstName:  "María",
		LastName:   "Ibáñez",
		BirthDate:  time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC),
		Phone:      "0987654321",
		Email:      "maria@clinic.test",
	}
}

func rejectionOf(t *testing.T, err error) *appointment.Rejection {
	t.Helper()
	var rej *appointment.Rejection
	require.ErrorAs(t, err, &rej)
	return rej
}

func TestRegisterDoctor(t *testing.T) {
	svc, _, sp := newRegistry(t)

	d, err := svc.RegisterDoctor(context.Background(), doctorInput(sp.ID))

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, appointment.DoctorActive, d.Status)
	assert.Equal(t, "Dr. José Núñez", d.DisplayName())

	got, err := svc.GetDoctor(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Identifier, got.Identifier)
}

func TestRegisterDoctor_DuplicateIdentifier(t *testing.T) {
	svc, _, sp := newRegistry(t)
	_, err := svc.RegisterDoctor(context.Background(), doctorInput(sp.ID))
	require.NoError(t, err)

	in := doctorInput(sp.ID)
	in.FirstName = "Otro"
	_, err = svc.RegisterDoctor(context.Background(), in)

	assert.ErrorIs(t, err, appointment.ErrIdentifierExists)
}

func TestRegisterDoctor_ConstraintRace(t *testing.T) {
	svc, store, sp := newRegistry(t)
	store.Fail("CreateDoctor", appointment.ErrIdentifierConstraint)

	_, err := svc.RegisterDoctor(context.Background(), doctorInput(sp.ID))
	assert.ErrorIs(t, err, appointment.ErrIdentifierExists)
}

func TestRegisterDoctor_FieldFormats(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*appointment.RegisterDoctorInput)
		message string
	}{
		{"short identifier", func(in *appointment.RegisterDoctorInput) { in.Identifier = "12345" }, "identifier must be exactly 10 digits"},
		{"letters in identifier", func(in *appointment.RegisterDoctorInput) { in.Identifier = "17123456AB" }, "identifier must be exactly 10 digits"},
		{"phone", func(in *appointment.RegisterDoctorInput) { in.Phone = "+593991234" }, "phone must be exactly 10 digits"},
		{"digits in name", func(in *appointment.RegisterDoctorInput) { in.FirstName = "Jos3" }, "firstname must contain only letters and spaces"},
		{"email", func(in *appointment.RegisterDoctorInput) { in.Email = "not-an-email" }, "email must be a valid email"},
		{"missing last name", func(in *appointment.RegisterDoctorInput) { in.LastName = "" }, "lastname is required"},
		{"status", func(in *appointment.RegisterDoctorInput) { in.Status = "RETIRED" }, "status must be one of ACTIVE INACTIVE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, sp := newRegistry(t)
			in := doctorInput(sp.ID)
			tc.mutate(&in)

			_, err := svc.RegisterDoctor(context.Background(), in)

			rej := rejectionOf(t, err)
			assert.Equal(t, appointment.KindInvalidFieldFormat, rej.Kind)
			assert.Equal(t, tc.message, rej.Message)
			assert.Zero(t, store.Calls("CreateDoctor"))
		})
	}
}

func TestRegisterDoctor_UnknownSpecialty(t *testing.T) {
	svc, _, _ := newRegistry(t)

	_, err := svc.RegisterDoctor(context.Background(), doctorInput(uuid.New()))
	assert.ErrorIs(t, err, appointment.ErrSpecialtyNotFound)
}

func TestRegisterPatient(t *testing.T) {
	svc, _, _ := newRegistry(t)

	p, err := svc.RegisterPatient(context.Background(), patientInput())

	require.NoError(t, err)
	assert.Equal(t, today, p.RegisteredAt)
	assert.Equal(t, "María Ibáñez", p.DisplayName())

	_, err = svc.RegisterPatient(context.Background(), patientInput())
	assert.ErrorIs(t, err, appointment.ErrIdentifierExists)
}

func TestRegisterPatient_BirthDate(t *testing.T) {
	svc, _, _ := newRegistry(t)

	in := patientInput()
	in.BirthDate = today
	_, err := svc.RegisterPatient(context.Background(), in)
	require.NoError(t, err, "born today is allowed")

	in = patientInput()
	in.Identifier = "0900000001"
	in.BirthDate = tomorrow
	_, err = svc.RegisterPatient(context.Background(), in)
	rej := rejectionOf(t, err)
	assert.Equal(t, "birthdate cannot be in the future", rej.Message)
}

func TestCreateSpecialty(t *testing.T) {
	svc, _, _ := newRegistry(t)

	sp, err := svc.CreateSpecialty(context.Background(), appointment.CreateSpecialtyInput{Name: "  Pediatrics "})
	require.NoError(t, err)
	assert.Equal(t, "Pediatrics", sp.Name)

	_, err = svc.CreateSpecialty(context.Background(), appointment.CreateSpecialtyInput{})
	assert.ErrorIs(t, err, appointment.ErrInvalidFieldFormat)
}

func TestCreateShift_OneActivePerWeekday(t *testing.T) {
	svc, store, _ := newRegistry(t)
	doctor := store.AddDoctor(appointment.Doctor{})

	first, err := svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: doctor.ID, Weekday: "monday", Turno: "morning"})
	require.NoError(t, err)
	assert.Equal(t, schedule.Monday, first.Weekday)
	assert.Equal(t, schedule.TurnoMorning, first.Turno)
	assert.Equal(t, schedule.ShiftActive, first.Status)

	_, err = svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: doctor.ID, Weekday: "MONDAY", Turno: "NIGHT"})
	assert.ErrorIs(t, err, appointment.ErrDuplicateShiftForDay)

	_, err = svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: doctor.ID, Weekday: "TUESDAY", Turno: "NIGHT"})
	require.NoError(t, err, "another weekday is free")

	_, err = svc.DeactivateShift(context.Background(), first.ID)
	require.NoError(t, err)

	_, err = svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: doctor.ID, Weekday: "MONDAY", Turno: "NIGHT"})
	require.NoError(t, err, "deactivated shift frees the weekday")
}

func TestCreateShift_ConstraintRace(t *testing.T) {
	svc, store, _ := newRegistry(t)
	doctor := store.AddDoctor(appointment.Doctor{})
	store.Fail("CreateShift", appointment.ErrShiftConstraint)

	_, err := svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: doctor.ID, Weekday: "FRIDAY", Turno: "FULL"})
	assert.ErrorIs(t, err, appointment.ErrDuplicateShiftForDay)
}

func TestCreateShift_InvalidInput(t *testing.T) {
	svc, store, _ := newRegistry(t)
	doctor := store.AddDoctor(appointment.Doctor{})

	_, err := svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: doctor.ID, Weekday: "FUNDAY", Turno: "MORNING"})
	assert.ErrorIs(t, err, appointment.ErrInvalidFieldFormat)

	_, err = svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: doctor.ID, Weekday: "MONDAY", Turno: "EVENING"})
	assert.ErrorIs(t, err, appointment.ErrInvalidFieldFormat)

	_, err = svc.CreateShift(context.Background(), appointment.CreateShiftInput{DoctorID: uuid.New(), Weekday: "MONDAY", Turno: "MORNING"})
	assert.ErrorIs(t, err, appointment.ErrDoctorNotFound)
}

func TestChangeShiftTurno_DoesNotRecheckUniqueness(t *testing.T) {
	svc, store, _ := newRegistry(t)
	doctor := store.AddDoctor(appointment.Doctor{})
	shift := store.AddShift(appointment.Shift{DoctorID: doctor.ID, Weekday: schedule.Monday, Turno: schedule.TurnoMorning})

	updated, err := svc.ChangeShiftTurno(context.Background(), shift.ID, "night")

	require.NoError(t, err)
	assert.Equal(t, schedule.TurnoNight, updated.Turno)
	assert.Zero(t, store.Calls("CountActiveShifts"))

	_, err = svc.ChangeShiftTurno(context.Background(), uuid.New(), "NIGHT")
	assert.ErrorIs(t, err, appointment.ErrShiftNotFound)

	_, err = svc.ChangeShiftTurno(context.Background(), shift.ID, "LATE")
	assert.ErrorIs(t, err, appointment.ErrInvalidFieldFormat)
}
