package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	Patients     int
	SlotLimit    int
	JWTSecret    string
}

type patient struct {
	ID    uuid.UUID
	Name  string
	Token string
}

type slot struct {
	DoctorID string
	Date     string
	Time     string
}

type booked struct {
	ID      uuid.UUID
	Patient *patient
}

type DataPool struct {
	Patients     []*patient
	Slots        []slot
	mu           sync.RWMutex
	appointments []booked
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
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

func (om *OperationMetrics) Stats() (avg, fastest, slowest, p50, p95 time.Duration) {
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
	fastest = latencies[0]
	slowest = latencies[len(latencies)-1]
	p50 = latencies[min(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]

	return avg, fastest, slowest, p50, p95
}

type Metrics struct {
	Booking   OperationMetrics
	Cancel    OperationMetrics
	ReadByID  OperationMetrics
	List      OperationMetrics
	Dashboard OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	log     zerolog.Logger
}

func main() {
	logger := logging.New("simulate", os.Getenv("APP_ENV"), "info")

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("cancel", cfg.CancelRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := sim.loadDataPool(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	sim.pool = pool
	logger.Info().Int("patients", len(pool.Patients)).Int("slots", len(pool.Slots)).Msg("data pool loaded")

	sim.Run()
	sim.PrintReport()
}

func loadConfig() (SimConfig, error) {
	baseCfg, err := config.Load()
	if err != nil {
		return SimConfig{}, fmt.Errorf("load base config: %w", err)
	}

	cfg := SimConfig{
		APIBaseURL:   strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		Patients:     getInt("SIM_PATIENTS", 200),
		SlotLimit:    getInt("SIM_SLOT_LIMIT", 50),
		JWTSecret:    baseCfg.JWTSecret,
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	if cfg.Workers <= 0 {
		return cfg, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return cfg, fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 || cfg.SlotLimit <= 0 {
		return cfg, fmt.Errorf("SIM_PATIENTS and SIM_SLOT_LIMIT must be > 0")
	}
	return cfg, nil
}

// loadDataPool mints tokens for fake patients and picks a small set of open
// slots so that workers collide on them.
func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	gofakeit.Seed(time.Now().UnixNano())
	dp := &DataPool{}

	for i := 0; i < s.config.Patients; i++ {
		id := uuid.New()
		token, err := mintToken(s.config.JWTSecret, id, s.config.Duration+time.Hour)
		if err != nil {
			return nil, err
		}
		dp.Patients = append(dp.Patients, &patient{ID: id, Name: gofakeit.Name(), Token: token})
	}

	var doctors []struct {
		ID string `json:"id"`
	}
	if err := s.getJSON(ctx, "/api/doctors", "", &doctors); err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}

	for _, d := range doctors {
		var resp struct {
			Slots []struct {
				Date      string `json:"date"`
				Time      string `json:"time"`
				Available bool   `json:"available"`
			} `json:"slots"`
		}
		if err := s.getJSON(ctx, "/api/doctors/"+d.ID+"/slots", "", &resp); err != nil {
			return nil, fmt.Errorf("load slots for %s: %w", d.ID, err)
		}
		for _, sl := range resp.Slots {
			if !sl.Available {
				continue
			}
			dp.Slots = append(dp.Slots, slot{DoctorID: d.ID, Date: sl.Date, Time: sl.Time})
			if len(dp.Slots) >= s.config.SlotLimit {
				return dp, nil
			}
		}
	}

	if len(dp.Slots) == 0 {
		return nil, fmt.Errorf("no open slots")
	}
	return dp, nil
}

func mintToken(secret string, id uuid.UUID, ttl time.Duration) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: id.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}).SignedString([]byte(secret))
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
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
			default:
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doList(ctx, rng)
				case 2:
					s.doDashboard(ctx, rng)
				}
			}
		}
	}
}

var reasons = []string{"checkup", "follow-up", "persistent headache", "skin rash", "knee pain", "vaccination"}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	sl := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	body, _ := json.Marshal(map[string]string{
		"doctor_id": sl.DoctorID,
		"date":      sl.Date,
		"time":      sl.Time,
		"reason":    reasons[rng.Intn(len(reasons))],
	})

	start := time.Now()
	status, respBody, err := s.send(ctx, http.MethodPost, "/api/appointments", p.Token, body)
	latency := time.Since(start)

	if err == nil && status == http.StatusCreated {
		var appt struct {
			ID uuid.UUID `json:"id"`
		}
		if json.Unmarshal(respBody, &appt) == nil && appt.ID != uuid.Nil {
			s.pool.AddAppointment(booked{ID: appt.ID, Patient: p})
		}
	}

	s.metrics.Booking.Record(latency, err == nil && status == http.StatusCreated, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodDelete, "/api/appointments/"+b.ID.String(), b.Patient.Token, nil)
	latency := time.Since(start)

	// Cancelling twice is an expected conflict.
	s.metrics.Cancel.Record(latency, err == nil && status == http.StatusOK, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, "/api/appointments/"+b.ID.String(), b.Patient.Token, nil)
	s.metrics.ReadByID.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, "/api/appointments", p.Token, nil)
	s.metrics.List.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doDashboard(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, "/api/dashboard/stats", p.Token, nil)
	s.metrics.Dashboard.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) send(ctx context.Context, method, path, token string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}

func (s *Simulator) getJSON(ctx context.Context, path, token string, v any) error {
	status, body, err := s.send(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, status)
	}
	return json.Unmarshal(body, v)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Contended slots: %d, patients: %d\n", len(s.pool.Slots), len(s.pool.Patients))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List", &s.metrics.List)
	printOperationReport("Dashboard", &s.metrics.Dashboard)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, fastest, slowest, p50, p95 := om.Stats()

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
		avg.Round(time.Millisecond), fastest.Round(time.Millisecond), slowest.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
