package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

const uniqueViolation = "23505"

// Unique indexes created by the schema migrations.
const (
	constraintActiveSlot   = "appointments_active_slot_uidx"
	constraintActiveShift  = "shifts_active_weekday_uidx"
	constraintDoctorIdent  = "doctors_identifier_key"
	constraintPatientIdent = "patients_identifier_key"
)

const (
	appointmentColumns = "id, patient_id, doctor_id, appointment_date, slot_number, status, reason, registered_at, cancelled_at, created_at, updated_at"
	shiftColumns       = "id, doctor_id, weekday, turno, status, created_at, updated_at"
	doctorColumns      = "id, identifier, first_name, last_name, phone, email, specialty_id, status, created_at, updated_at"
	patientColumns     = "id, identifier, first_name, last_name, birth_date, phone, email, address, registered_at, created_at, updated_at"

	nonCancelledStatusClause = "status <> 'CANCELLED'"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

// mapConstraint translates unique violations into the store's sentinel errors.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintActiveSlot:
		return ErrSlotConstraint
	case constraintActiveShift:
		return ErrShiftConstraint
	case constraintDoctorIdent, constraintPatientIdent:
		return ErrIdentifierConstraint
	}
	return err
}

func scanSpecialty(row pgx.Row) (*Specialty, error) {
	var s Specialty
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpecialtyNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Identifier,
		&d.FirstName,
		&d.LastName,
		&d.Phone,
		&d.Email,
		&d.SpecialtyID,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var address *string

	err := row.Scan(
		&p.ID,
		&p.Identifier,
		&p.FirstName,
		&p.LastName,
		&p.BirthDate,
		&p.Phone,
		&p.Email,
		&address,
		&p.RegisteredAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	if address != nil {
		p.Address = *address
	}
	return &p, nil
}

// scanShift maps a missing row to notFound, which differs between lookups by
// id and lookups of the active shift of a weekday.
func scanShift(row pgx.Row, notFound error) (*Shift, error) {
	var s Shift
	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Weekday,
		&s.Turno,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var reason *string
	var cancelledAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.SlotNumber,
		&a.Status,
		&reason,
		&a.RegisteredAt,
		&cancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if reason != nil {
		a.Reason = *reason
	}
	a.CancelledAt = cancelledAt
	return &a, nil
}

func (r *PgRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Lookups

func (r *PgRepository) GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), created_at
		FROM specialties
		WHERE id = $1
	`, id)
	return scanSpecialty(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetShiftByID(ctx context.Context, id uuid.UUID) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	return scanShift(row, ErrShiftNotFound)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

// FindActiveShift picks the earliest inserted shift if the one-active-shift
// rule was broken outside this service.
func (r *PgRepository) FindActiveShift(ctx context.Context, doctorID uuid.UUID, weekday schedule.Weekday) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE doctor_id = $1
		  AND weekday = $2
		  AND status = 'ACTIVE'
		ORDER BY seq
		LIMIT 1
	`, doctorID, weekday)
	return scanShift(row, schedule.ErrNoActiveShift)
}

// Counts

func (r *PgRepository) CountActiveShifts(ctx context.Context, doctorID uuid.UUID, weekday schedule.Weekday) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*)
		FROM shifts
		WHERE doctor_id = $1
		  AND weekday = $2
		  AND status = 'ACTIVE'
	`, doctorID, weekday)
}

func (r *PgRepository) CountConflictingAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time, slot int, excludingID uuid.UUID) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND slot_number = $3
		  AND `+nonCancelledStatusClause+`
		  AND id <> $4
	`, doctorID, date, slot, excludingID)
}

func (r *PgRepository) CountDoctorsByIdentifier(ctx context.Context, identifier string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM doctors WHERE identifier = $1`, identifier)
}

func (r *PgRepository) CountPatientsByIdentifier(ctx context.Context, identifier string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM patients WHERE identifier = $1`, identifier)
}

func (r *PgRepository) TakenSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_number
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND `+nonCancelledStatusClause+`
		ORDER BY slot_number
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Writes

func (r *PgRepository) CreateSpecialty(ctx context.Context, s *Specialty) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO specialties (id, name, description, created_at)
		VALUES ($1, $2, NULLIF($3, ''), now())
		RETURNING created_at
	`, s.ID, s.Name, s.Description).Scan(&s.CreatedAt)
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (`+doctorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`, d.ID, d.Identifier, d.FirstName, d.LastName, d.Phone, d.Email, d.SpecialtyID, d.Status).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, now(), now())
		RETURNING created_at, updated_at
	`, p.ID, p.Identifier, p.FirstName, p.LastName, p.BirthDate, p.Phone, p.Email, p.Address, p.RegisteredAt).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *PgRepository) CreateShift(ctx context.Context, s *Shift) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`, s.ID, s.DoctorID, s.Weekday, s.Turno, s.Status).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *PgRepository) UpdateShiftTurno(ctx context.Context, id uuid.UUID, turno schedule.Turno) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE shifts
		SET turno = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+shiftColumns, id, turno)
	return scanShift(row, ErrShiftNotFound)
}

func (r *PgRepository) DeactivateShift(ctx context.Context, id uuid.UUID) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE shifts
		SET status = 'INACTIVE',
		    updated_at = now()
		WHERE id = $1
		RETURNING `+shiftColumns, id)
	return scanShift(row, ErrShiftNotFound)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.SlotNumber, a.Status, a.Reason, a.RegisteredAt, a.CancelledAt)

	created, err := scanAppointment(row)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", mapConstraint(err))
	}
	*a = *created
	return nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment, expected AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    doctor_id = $3,
		    appointment_date = $4,
		    slot_number = $5,
		    status = $6,
		    reason = NULLIF($7, ''),
		    cancelled_at = $8,
		    updated_at = now()
		WHERE id = $1
		  AND status = $9
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.SlotNumber, a.Status, a.Reason, a.CancelledAt, expected)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapConstraint(err)
	}
	return updated, nil
}
