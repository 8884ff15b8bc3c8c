package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/db"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schedctl",
		Short: "Clinic shift scheduling admin tool",
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(resolveCmd())
	return root
}

// connect loads config and opens a small pool for one-shot commands.
func connect(ctx context.Context) (*pgxpool.Pool, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return nil, config.Config{}, err
	}
	return pool, cfg, nil
}

func newService(pool *pgxpool.Pool, cfg config.Config) *appointment.Service {
	return appointment.NewService(appointment.NewPgRepository(pool), nil, schedule.SystemClock{Location: cfg.Location()}, nil, nil)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format(time.DateTime)
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// slotsCmd prints a turno's grid offline, or a doctor's grid for a date with
// taken slots marked.
func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print a slot grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			turnoName, _ := cmd.Flags().GetString("turno")
			doctor, _ := cmd.Flags().GetString("doctor")
			date, _ := cmd.Flags().GetString("date")

			if turnoName != "" {
				return printTurnoGrid(cmd.OutOrStdout(), turnoName)
			}
			if doctor == "" || date == "" {
				return errors.New("either --turno or both --doctor and --date are required")
			}

			doctorID, day, err := parseDoctorDate(doctor, date)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			slots, err := newService(pool, cfg).DoctorDaySlots(ctx, doctorID, day)
			if err != nil {
				return err
			}
			printDaySlots(cmd.OutOrStdout(), slots)
			return nil
		},
	}
	cmd.Flags().String("turno", "", "Turno name (MORNING, AFTERNOON, NIGHT, FULL)")
	cmd.Flags().String("doctor", "", "Doctor id")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD")
	return cmd
}

func printTurnoGrid(w io.Writer, name string) error {
	turno, err := schedule.ParseTurno(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s)\n", turno, turno.Hours())
	fmt.Fprintln(w, schedule.DescribeGrid(schedule.SlotGrid(turno)))
	return nil
}

func printDaySlots(w io.Writer, slots []appointment.DaySlot) {
	for _, s := range slots {
		state := "free"
		if s.Taken {
			state = "taken"
		}
		fmt.Fprintf(w, "Slot %d: %s  %s\n", s.Number, s.Range, state)
	}
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a doctor's slot number to clock times",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor, _ := cmd.Flags().GetString("doctor")
			date, _ := cmd.Flags().GetString("date")
			slot, _ := cmd.Flags().GetInt("slot")

			doctorID, day, err := parseDoctorDate(doctor, date)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			tr, err := newService(pool, cfg).ResolveSlotTime(ctx, doctorID, day, slot)
			if err != nil {
				return err
			}
			if tr == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no time: slot out of range or no active shift that day")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Slot %d: %s\n", slot, tr)
			return nil
		},
	}
	cmd.Flags().String("doctor", "", "Doctor id")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD")
	cmd.Flags().Int("slot", 0, "Slot number (1-16)")
	_ = cmd.MarkFlagRequired("doctor")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("slot")
	return cmd
}

func parseDoctorDate(doctor, date string) (uuid.UUID, time.Time, error) {
	doctorID, err := uuid.Parse(doctor)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("invalid doctor id: %w", err)
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("invalid date: %w", err)
	}
	return doctorID, day, nil
}
