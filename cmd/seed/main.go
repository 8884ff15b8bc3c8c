package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/db"
	"github.com/hackgods/clinic-shift-scheduling/internal/logger"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

const (
	doctorCount  = 40
	patientCount = 2000
	maxAttempts  = 5
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"Otolaryngology",
}

var turnos = []string{"MORNING", "AFTERNOON", "NIGHT", "FULL"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if _, err := db.NewMigrator(pool).Up(ctx); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}

	// Registry writes go through the service, format checks included.
	svc := appointment.NewService(appointment.NewPgRepository(pool), nil, schedule.SystemClock{Location: cfg.Location()}, lg, nil)
	s := &seeder{svc: svc, log: lg, faker: gofakeit.New(uint64(time.Now().UnixNano()))}

	specialtyIDs, err := s.seedSpecialties(ctx)
	if err != nil {
		lg.Fatal("seed specialties", zap.Error(err))
	}
	doctors, err := s.seedDoctors(ctx, specialtyIDs, doctorCount)
	if err != nil {
		lg.Fatal("seed doctors", zap.Error(err))
	}
	if err := s.seedShifts(ctx, doctors); err != nil {
		lg.Fatal("seed shifts", zap.Error(err))
	}
	if err := s.seedPatients(ctx, patientCount); err != nil {
		lg.Fatal("seed patients", zap.Error(err))
	}

	lg.Info("seed complete")
}

type seeder struct {
	svc   *appointment.Service
	log   *zap.Logger
	faker *gofakeit.Faker
}

func (s *seeder) seedSpecialties(ctx context.Context) ([]*appointment.Specialty, error) {
	out := make([]*appointment.Specialty, 0, len(specialties))
	for _, name := range specialties {
		sp, err := s.svc.CreateSpecialty(ctx, appointment.CreateSpecialtyInput{
			Name:        name,
			Description: s.faker.Sentence(8),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	s.log.Info("specialties seeded", zap.Int("count", len(out)))
	return out, nil
}

// retry repeats fn while it fails with a rejection, since fake data
// occasionally collides on identifiers or produces a name with punctuation.
func retry(fn func() error) error {
	var err error
	for i := 0; i < maxAttempts; i++ {
		err = fn()
		var rej *appointment.Rejection
		if err == nil || !errors.As(err, &rej) {
			return err
		}
	}
	return err
}

func (s *seeder) seedDoctors(ctx context.Context, specs []*appointment.Specialty, count int) ([]*appointment.Doctor, error) {
	out := make([]*appointment.Doctor, 0, count)
	for i := 0; i < count; i++ {
		err := retry(func() error {
			d, err := s.svc.RegisterDoctor(ctx, appointment.RegisterDoctorInput{
				Identifier:  s.faker.Numerify("##########"),
				FirstName:   s.faker.FirstName(),
				LastName:    s.faker.LastName(),
				Phone:       s.faker.Numerify("09########"),
				Email:       s.faker.Email(),
				SpecialtyID: specs[s.faker.Number(0, len(specs)-1)].ID,
			})
			if err == nil {
				out = append(out, d)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	s.log.Info("doctors seeded", zap.Int("count", len(out)))
	return out, nil
}

func (s *seeder) seedShifts(ctx context.Context, doctors []*appointment.Doctor) error {
	total := 0
	for _, d := range doctors {
		order := []int{0, 1, 2, 3, 4, 5, 6}
		s.faker.ShuffleInts(order)
		for _, i := range order[:s.faker.Number(2, 5)] {
			_, err := s.svc.CreateShift(ctx, appointment.CreateShiftInput{
				DoctorID: d.ID,
				Weekday:  string(schedule.Weekdays[i]),
				Turno:    turnos[s.faker.Number(0, len(turnos)-1)],
			})
			if err != nil {
				return err
			}
			total++
		}
	}
	s.log.Info("shifts seeded", zap.Int("count", total))
	return nil
}

func (s *seeder) seedPatients(ctx context.Context, count int) error {
	for i := 0; i < count; i++ {
		err := retry(func() error {
			_, err := s.svc.RegisterPatient(ctx, appointment.RegisterPatientInput{
				Identifier: s.faker.Numerify("##########"),
				FirstName:  s.faker.FirstName(),
				LastName:   s.faker.LastName(),
				BirthDate:  s.faker.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Now().AddDate(-1, 0, 0)),
				Phone:      s.faker.Numerify("09########"),
				Email:      s.faker.Email(),
				Address:    s.faker.Street() + ", " + s.faker.City(),
			})
			return err
		})
		if err != nil {
			return err
		}
		if (i+1)%500 == 0 {
			s.log.Info("patients seeded", zap.Int("done", i+1), zap.Int("total", count))
		}
	}
	return nil
}
