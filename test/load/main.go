package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// expensePayload matches POST /api/v1/transactions.
type expensePayload struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type loadConfig struct {
	BaseURL           string
	Category          string
	RequestsPerSecond int
	DurationSeconds   int
	ConcurrentWorkers int
	// share of requests that read /stats/summary instead of writing
	ReadRatio float64
}

type stats struct {
	writes   atomic.Int64
	reads    atomic.Int64
	failures atomic.Int64

	mu        sync.Mutex
	latencies []float64
}

func (s *stats) observe(seconds float64) {
	s.mu.Lock()
	s.latencies = append(s.latencies, seconds)
	s.mu.Unlock()
}

func (s *stats) sorted() []float64 {
	s.mu.Lock()
	out := append([]float64(nil), s.latencies...)
	s.mu.Unlock()
	sort.Float64s(out)
	return out
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

type runner struct {
	cfg    loadConfig
	client *http.Client
	stats  *stats
	rngMu  sync.Mutex
	rng    *rand.Rand
}

func (r *runner) roll() (float64, int) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64(), 1 + r.rng.Intn(5000)
}

func (r *runner) do() {
	p, cents := r.roll()
	var (
		req *http.Request
		err error
	)
	read := p < r.cfg.ReadRatio
	if read {
		req, err = http.NewRequest(http.MethodGet, r.cfg.BaseURL+"/api/v1/stats/summary", nil)
	} else {
		body, _ := json.Marshal(expensePayload{
			Type:        "expense",
			Category:    r.cfg.Category,
			Amount:      fmt.Sprintf("%d.%02d", cents/100, cents%100),
			Date:        time.Now().UTC().Format("2006-01-02"),
			Description: "load test",
		})
		req, err = http.NewRequest(http.MethodPost, r.cfg.BaseURL+"/api/v1/transactions", bytes.NewReader(body))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		r.stats.failures.Add(1)
		return
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	r.stats.observe(time.Since(start).Seconds())
	if err != nil {
		r.stats.failures.Add(1)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 300:
		r.stats.failures.Add(1)
	case read:
		r.stats.reads.Add(1)
	default:
		r.stats.writes.Add(1)
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func main() {
	cfg := loadConfig{
		BaseURL:           strings.TrimRight(envString("TARGET_URL", "http://localhost:8080"), "/"),
		Category:          envString("CATEGORY", "Food"),
		RequestsPerSecond: envInt("REQUESTS_PER_SECOND", 200),
		DurationSeconds:   envInt("DURATION_SECONDS", 30),
		ConcurrentWorkers: envInt("CONCURRENT_WORKERS", 32),
		ReadRatio:         envFloat("READ_RATIO", 0.8),
	}

	fmt.Println("Starting ledger load test...")
	fmt.Printf("Target: %s (category %q)\n", cfg.BaseURL, cfg.Category)
	fmt.Printf("Target RPS: %d for %d seconds, %d workers, read ratio %.2f\n",
		cfg.RequestsPerSecond, cfg.DurationSeconds, cfg.ConcurrentWorkers, cfg.ReadRatio)
	fmt.Println(strings.Repeat("-", 50))

	r := &runner{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        cfg.ConcurrentWorkers,
				MaxIdleConnsPerHost: cfg.ConcurrentWorkers,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 30 * time.Second,
		},
		stats: &stats{},
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	jobs := make(chan struct{}, cfg.RequestsPerSecond)
	var wg sync.WaitGroup
	for i := 0; i < cfg.ConcurrentWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				r.do()
			}
		}()
	}

	start := time.Now()
	for sec := 1; sec <= cfg.DurationSeconds; sec++ {
		tick := time.Now()
		for j := 0; j < cfg.RequestsPerSecond; j++ {
			jobs <- struct{}{}
		}
		fmt.Printf("[%ds] writes: %d | reads: %d | failures: %d\n",
			sec, r.stats.writes.Load(), r.stats.reads.Load(), r.stats.failures.Load())
		if d := time.Since(tick); d < time.Second {
			time.Sleep(time.Second - d)
		}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start).Seconds()
	writes, reads, failures := r.stats.writes.Load(), r.stats.reads.Load(), r.stats.failures.Load()
	total := writes + reads + failures
	lat := r.stats.sorted()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds\n", elapsed)
	fmt.Printf("Requests: %d (writes %d, reads %d, failures %d)\n", total, writes, reads, failures)
	if total > 0 {
		fmt.Printf("Success rate: %.2f%%\n", float64(writes+reads)/float64(total)*100)
		fmt.Printf("Actual RPS: %.2f\n", float64(total)/elapsed)
	}
	if len(lat) > 0 {
		fmt.Printf("\nLatency:\n")
		fmt.Printf("  P50: %.2f ms\n", percentile(lat, 0.50)*1000)
		fmt.Printf("  P95: %.2f ms\n", percentile(lat, 0.95)*1000)
		fmt.Printf("  P99: %.2f ms\n", percentile(lat, 0.99)*1000)
		fmt.Printf("  Min: %.2f ms\n", lat[0]*1000)
		fmt.Printf("  Max: %.2f ms\n", lat[len(lat)-1]*1000)
	}
}
