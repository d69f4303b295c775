package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/hospital-scheduling/internal/config"
	"github.com/carebridge/hospital-scheduling/internal/db"
)

// simulate fires concurrent booking, cancellation and consultation traffic
// at a running api-server and then verifies the overlap invariant directly
// against the database: no two non-cancelled appointments for the same
// doctor may intersect.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	DoctorLimit int
	PostgresDSN string
}

type DataPool struct {
	Patients []int64
	Doctors  []int64

	mu           sync.RWMutex
	appointments []int64
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment() (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Percentile(p int) time.Duration {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(om.latencies))
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	sim := SimConfig{
		APIBaseURL:  envOr("SIM_API_URL", "http://localhost:"+cfg.HTTPPort),
		Duration:    envDuration("SIM_DURATION", 30*time.Second),
		Workers:     envInt("SIM_WORKERS", 16),
		DoctorLimit: envInt("SIM_DOCTOR_LIMIT", 3),
		PostgresDSN: cfg.PostgresDSN,
	}

	ctx, cancel := context.WithTimeout(context.Background(), sim.Duration+time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, sim.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	data, err := loadDataPool(ctx, pool, sim.DoctorLimit)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d patients, targeting %d doctors", len(data.Patients), len(data.Doctors))

	bookings := &OperationMetrics{}
	mutations := &OperationMetrics{}

	runCtx, stopWorkers := context.WithTimeout(ctx, sim.Duration)
	defer stopWorkers()

	var wg sync.WaitGroup
	for i := 0; i < sim.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(runCtx, sim.APIBaseURL, data, bookings, mutations)
		}()
	}
	wg.Wait()

	log.Printf("bookings: total=%d success=%d conflict=%d error=%d p50=%s p95=%s",
		bookings.Total, bookings.Success, bookings.Conflict, bookings.Error,
		bookings.Percentile(50), bookings.Percentile(95))
	log.Printf("mutations: total=%d success=%d rejected=%d error=%d",
		mutations.Total, mutations.Success, mutations.Conflict, mutations.Error)

	overlaps, err := countOverlaps(ctx, pool)
	if err != nil {
		log.Fatalf("verify overlaps: %v", err)
	}
	if overlaps > 0 {
		log.Fatalf("INVARIANT VIOLATED: %d overlapping non-cancelled appointment pairs", overlaps)
	}
	log.Println("invariant holds: no overlapping non-cancelled appointments")
}

func worker(ctx context.Context, baseURL string, data *DataPool, bookings, mutations *OperationMetrics) {
	client := &http.Client{Timeout: 10 * time.Second}
	day := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	for ctx.Err() == nil {
		switch rand.Intn(10) {
		case 0, 1:
			if id, ok := data.RandomAppointment(); ok {
				doMutation(ctx, client, baseURL, id, mutations)
				continue
			}
			fallthrough
		default:
			doBooking(ctx, client, baseURL, data, day, bookings)
		}
	}
}

func doBooking(ctx context.Context, client *http.Client, baseURL string, data *DataPool, day time.Time, m *OperationMetrics) {
	// A narrow grid of 15-minute slots across few doctors keeps the
	// conflict rate high enough to exercise the guard.
	slot := day.Add(time.Duration(rand.Intn(32)) * 15 * time.Minute)
	body := map[string]any{
		"patient_id":       data.Patients[rand.Intn(len(data.Patients))],
		"doctor_id":        data.Doctors[rand.Intn(len(data.Doctors))],
		"date":             slot.Format("2006-01-02"),
		"time":             slot.Format("15:04"),
		"duration_minutes": 15 * (1 + rand.Intn(2)),
		"type":             "regular",
	}

	start := time.Now()
	status, respBody, err := postJSON(ctx, client, baseURL+"/appointments", body)
	latency := time.Since(start)

	if err != nil {
		m.Record(latency, false, false)
		return
	}

	switch status {
	case http.StatusCreated:
		var created struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(respBody, &created) == nil && created.ID != 0 {
			data.AddAppointment(created.ID)
		}
		m.Record(latency, true, false)
	case http.StatusConflict:
		m.Record(latency, false, true)
	default:
		m.Record(latency, false, false)
	}
}

func doMutation(ctx context.Context, client *http.Client, baseURL string, id int64, m *OperationMetrics) {
	var status int
	var err error

	start := time.Now()
	if rand.Intn(2) == 0 {
		status, _, err = postJSON(ctx, client, fmt.Sprintf("%s/appointments/%d/cancel", baseURL, id), nil)
	} else {
		patch := map[string]any{
			"symptoms":  "simulated symptoms",
			"diagnosis": "simulated diagnosis",
		}
		status, _, err = putJSON(ctx, client, fmt.Sprintf("%s/appointments/%d/consultation", baseURL, id), patch)
	}
	latency := time.Since(start)

	if err != nil {
		m.Record(latency, false, false)
		return
	}
	m.Record(latency, status == http.StatusOK, status == http.StatusConflict)
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) (int, []byte, error) {
	return sendJSON(ctx, client, http.MethodPost, url, body)
}

func putJSON(ctx context.Context, client *http.Client, url string, body any) (int, []byte, error) {
	return sendJSON(ctx, client, http.MethodPut, url, body)
}

func sendJSON(ctx context.Context, client *http.Client, method, url string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, doctorLimit int) (*DataPool, error) {
	data := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT 500`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		data.Patients = append(data.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docRows, err := pool.Query(ctx, `SELECT id FROM doctors WHERE is_available LIMIT $1`, doctorLimit)
	if err != nil {
		return nil, err
	}
	defer docRows.Close()
	for docRows.Next() {
		var id int64
		if err := docRows.Scan(&id); err != nil {
			return nil, err
		}
		data.Doctors = append(data.Doctors, id)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	if len(data.Patients) == 0 || len(data.Doctors) == 0 {
		return nil, fmt.Errorf("no seed data; run cmd/seed first")
	}
	return data, nil
}

func countOverlaps(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var count int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.doctor_id = b.doctor_id
		 AND a.id < b.id
		 AND a.status <> 'cancelled'
		 AND b.status <> 'cancelled'
		 AND a.start_time < b.end_time
		 AND b.start_time < a.end_time
	`).Scan(&count)
	return count, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
