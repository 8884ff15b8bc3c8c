package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/db"
	"github.com/hackgods/clinic-shift-scheduling/internal/logger"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	HotSlotRatio float64 // share of bookings aimed at one contended slot
	HorizonDays  int
	PatientLimit int
	PostgresDSN  string
	Location     *time.Location
}

// Target is one bookable (doctor, date, slot) derived from an active shift.
type Target struct {
	DoctorID uuid.UUID
	Date     time.Time
	Slot     int
}

type DataPool struct {
	Patients     []uuid.UUID
	Targets      []Target
	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min95(len(latencies))]
	return avg, min, max, p50, p95
}

func min95(n int) int {
	idx := n * 95 / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking  OperationMetrics
	HotSlot  OperationMetrics
	Cancel   OperationMetrics
	ReadByID OperationMetrics
	DayGrid  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	log     *zap.Logger
	hot     Target
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	lg, err := logger.New(baseCfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	cfg, err := loadConfig(baseCfg)
	if err != nil {
		lg.Fatal("invalid simulator config", zap.Error(err))
	}

	lg.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking_ratio", cfg.BookingRatio),
		zap.Float64("cancel_ratio", cfg.CancelRatio),
		zap.Float64("read_ratio", cfg.ReadRatio),
		zap.Float64("hot_slot_ratio", cfg.HotSlotRatio),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		lg.Fatal("load data pool", zap.Error(err))
	}
	lg.Info("data pool loaded",
		zap.Int("patients", len(dataPool.Patients)),
		zap.Int("bookable_slots", len(dataPool.Targets)),
	)

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    lg,
		hot:    dataPool.Targets[rand.Intn(len(dataPool.Targets))],
	}

	sim.Run()
	sim.PrintReport()
}

// loadConfig reads the SIM_* settings on top of the service config.
func loadConfig(baseCfg config.Config) (SimConfig, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SIM_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("SIM_DURATION", "30s")
	v.SetDefault("SIM_WORKERS", 10)
	v.SetDefault("SIM_BOOKING_RATIO", 0.5)
	v.SetDefault("SIM_CANCEL_RATIO", 0.1)
	v.SetDefault("SIM_READ_RATIO", 0.4)
	v.SetDefault("SIM_HOT_SLOT_RATIO", 0.2)
	v.SetDefault("SIM_HORIZON_DAYS", 14)
	v.SetDefault("SIM_PATIENT_LIMIT", 4000)

	cfg := SimConfig{
		APIBaseURL:   strings.TrimRight(v.GetString("SIM_API_BASE_URL"), "/"),
		Duration:     v.GetDuration("SIM_DURATION"),
		Workers:      v.GetInt("SIM_WORKERS"),
		BookingRatio: v.GetFloat64("SIM_BOOKING_RATIO"),
		CancelRatio:  v.GetFloat64("SIM_CANCEL_RATIO"),
		ReadRatio:    v.GetFloat64("SIM_READ_RATIO"),
		HotSlotRatio: v.GetFloat64("SIM_HOT_SLOT_RATIO"),
		HorizonDays:  v.GetInt("SIM_HORIZON_DAYS"),
		PatientLimit: v.GetInt("SIM_PATIENT_LIMIT"),
		PostgresDSN:  baseCfg.PostgresDSN,
		Location:     baseCfg.Location(),
	}

	if cfg.Workers <= 0 {
		return SimConfig{}, errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, errors.New("SIM_DURATION must be > 0")
	}
	if cfg.HorizonDays <= 0 {
		return SimConfig{}, errors.New("SIM_HORIZON_DAYS must be > 0")
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg, nil
}

// loadDataPool expands every active shift into concrete slots over the next
// HorizonDays, starting tomorrow so bookings stay cancellable.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	rows, err = pool.Query(ctx, `SELECT doctor_id, weekday FROM shifts WHERE status = 'ACTIVE'`)
	if err != nil {
		return nil, fmt.Errorf("load shifts: %w", err)
	}
	days := make(map[schedule.Weekday][]uuid.UUID)
	for rows.Next() {
		var doctorID uuid.UUID
		var weekday string
		if err := rows.Scan(&doctorID, &weekday); err != nil {
			rows.Close()
			return nil, err
		}
		days[schedule.Weekday(weekday)] = append(days[schedule.Weekday(weekday)], doctorID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load shifts: %w", err)
	}

	today := schedule.SystemClock{Location: cfg.Location}.Today()
	for i := 1; i <= cfg.HorizonDays; i++ {
		date := today.AddDate(0, 0, i)
		for _, doctorID := range days[schedule.WeekdayOf(date)] {
			for slot := 1; slot <= schedule.SlotsPerShift; slot++ {
				dataPool.Targets = append(dataPool.Targets, Target{DoctorID: doctorID, Date: date, Slot: slot})
			}
		}
	}

	if len(dataPool.Patients) == 0 {
		return nil, errors.New("no patients loaded, run the seed command first")
	}
	if len(dataPool.Targets) == 0 {
		return nil, errors.New("no active shifts in the booking horizon")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info("simulation running", zap.Duration("duration", s.config.Duration), zap.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.CancelRatio:
				s.doCancel(ctx, rng)
			case rng.Intn(2) == 0:
				s.doReadByID(ctx, rng)
			default:
				s.doDayGrid(ctx, rng)
			}
		}
	}
}

// call sends one request and classifies the response: 2xx is success and 409
// a conflict. Anything else, transport errors included, counts as an error.
func (s *Simulator) call(ctx context.Context, method, path string, body any, out any) (time.Duration, bool, bool) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, false, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return latency, false, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			_ = json.NewDecoder(resp.Body).Decode(out)
		}
		return latency, true, false
	}
	return latency, false, resp.StatusCode == http.StatusConflict
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]
	om := &s.metrics.Booking
	if rng.Float64() < s.config.HotSlotRatio {
		target = s.hot
		om = &s.metrics.HotSlot
	}
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	reqBody := map[string]any{
		"patient_id":  patientID.String(),
		"doctor_id":   target.DoctorID.String(),
		"date":        target.Date.Format(time.DateOnly),
		"slot_number": target.Slot,
	}

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	latency, success, conflict := s.call(ctx, http.MethodPost, "/appointments", reqBody, &created)
	if success && created.ID != uuid.Nil {
		s.pool.AddAppointment(created.ID)
	}
	om.Record(latency, success, conflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	latency, success, conflict := s.call(ctx, http.MethodPost, "/appointments/"+apptID.String()+"/cancel", nil, nil)
	s.metrics.Cancel.Record(latency, success, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	latency, success, _ := s.call(ctx, http.MethodGet, "/appointments/"+apptID.String(), nil, nil)
	s.metrics.ReadByID.Record(latency, success, false)
}

func (s *Simulator) doDayGrid(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]
	path := fmt.Sprintf("/doctors/%s/slots?date=%s", target.DoctorID, target.Date.Format(time.DateOnly))
	latency, success, _ := s.call(ctx, http.MethodGet, path, nil, nil)
	s.metrics.DayGrid.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Hot slot: doctor=%s date=%s slot=%d\n", s.hot.DoctorID, s.hot.Date.Format(time.DateOnly), s.hot.Slot)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Booking (hot slot)", &s.metrics.HotSlot)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("Doctor day grid", &s.metrics.DayGrid)

	if hot := atomic.LoadInt64(&s.metrics.HotSlot.Success); hot > 1 {
		fmt.Printf("WARNING: hot slot booked %d times; only one booking may hold it unless cancellations freed it\n", hot)
	}
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
