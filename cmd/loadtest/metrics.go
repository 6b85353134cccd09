package main

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// newHistogram tracks 1us to 60s with 3 significant figures.
func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 60_000_000, 3)
}

type kindStats struct {
	histogram *hdrhistogram.Histogram
	total     int64
	success   int64
	probSum   float64
	fallbacks int64
}

// Metrics collects and aggregates load test metrics
type Metrics struct {
	mu sync.Mutex

	startTime time.Time
	endTime   time.Time

	histogram *hdrhistogram.Histogram
	kinds     map[detector.ContentKind]*kindStats
	riskBands map[string]int64

	totalRequests int64
	successCount  int64
	fallbackCount int64
	timeoutCount  int64
	errorCount    int64
	rateLimited   int64
	dropped       int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		histogram: newHistogram(),
		kinds:     make(map[detector.ContentKind]*kindStats),
		riskBands: make(map[string]int64),
	}
}

// Start marks the beginning of the test
func (m *Metrics) Start() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}

// Stop marks the end of the test
func (m *Metrics) Stop() {
	m.mu.Lock()
	m.endTime = time.Now()
	m.mu.Unlock()
}

// Record adds a request result to the metrics
func (m *Metrics) Record(result RequestResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++

	ks, ok := m.kinds[result.Kind]
	if !ok {
		ks = &kindStats{histogram: newHistogram()}
		m.kinds[result.Kind] = ks
	}
	ks.total++

	// Record latency in microseconds
	if us := result.Latency.Microseconds(); us > 0 {
		m.histogram.RecordValue(us)
		ks.histogram.RecordValue(us)
	}

	switch {
	case result.Success:
		m.successCount++
		ks.success++
		ks.probSum += result.AIProbability
		m.riskBands[detector.RiskBand(result.AIProbability)]++
		if result.Fallback {
			m.fallbackCount++
			ks.fallbacks++
		}
	case result.Timeout:
		m.timeoutCount++
	case errors.Is(result.Error, errRateLimited):
		m.rateLimited++
	default:
		m.errorCount++
	}
}

// RecordDropped counts a pacing tick that found no idle worker.
func (m *Metrics) RecordDropped() {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

// Progress is a point-in-time view used for progress lines.
type Progress struct {
	Completed int64
	Fallbacks int64
	Dropped   int64
}

// Progress returns the counters recorded so far.
func (m *Metrics) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Progress{Completed: m.totalRequests, Fallbacks: m.fallbackCount, Dropped: m.dropped}
}

// Results represents the final test results
type Results struct {
	Duration      time.Duration `json:"duration"`
	TargetRPS     int           `json:"target_rps"`
	AchievedRPS   float64       `json:"achieved_rps"`
	TotalRequests int64         `json:"total_requests"`

	// Latency percentiles in milliseconds
	LatencyP50 float64 `json:"latency_p50_ms"`
	LatencyP90 float64 `json:"latency_p90_ms"`
	LatencyP99 float64 `json:"latency_p99_ms"`
	LatencyMax float64 `json:"latency_max_ms"`
	LatencyMin float64 `json:"latency_min_ms"`
	LatencyAvg float64 `json:"latency_avg_ms"`

	SuccessCount  int64 `json:"success_count"`
	FallbackCount int64 `json:"fallback_count"`
	TimeoutCount  int64 `json:"timeout_count"`
	ErrorCount    int64 `json:"error_count"`
	RateLimited   int64 `json:"rate_limited_count"`
	Dropped       int64 `json:"dropped_count"`

	KindResults []KindResult     `json:"kind_results,omitempty"`
	RiskBands   map[string]int64 `json:"risk_bands,omitempty"`
}

// KindResult holds per-kind metrics
type KindResult struct {
	Kind           detector.ContentKind `json:"kind"`
	Requests       int64                `json:"requests"`
	SuccessRate    float64              `json:"success_rate"`
	Fallbacks      int64                `json:"fallbacks"`
	AvgProbability float64              `json:"avg_ai_probability"`
	LatencyP50     float64              `json:"latency_p50_ms"`
	LatencyP99     float64              `json:"latency_p99_ms"`
}

func ms(us int64) float64 { return float64(us) / 1000.0 }

// GetResults computes the final results
func (m *Metrics) GetResults(targetRPS int) *Results {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.endTime.Sub(m.startTime)
	if duration <= 0 {
		duration = time.Second // Avoid division by zero
	}

	results := &Results{
		Duration:      duration,
		TargetRPS:     targetRPS,
		AchievedRPS:   float64(m.totalRequests) / duration.Seconds(),
		TotalRequests: m.totalRequests,

		LatencyP50: ms(m.histogram.ValueAtPercentile(50)),
		LatencyP90: ms(m.histogram.ValueAtPercentile(90)),
		LatencyP99: ms(m.histogram.ValueAtPercentile(99)),
		LatencyMax: ms(m.histogram.Max()),
		LatencyMin: ms(m.histogram.Min()),
		LatencyAvg: m.histogram.Mean() / 1000.0,

		SuccessCount:  m.successCount,
		FallbackCount: m.fallbackCount,
		TimeoutCount:  m.timeoutCount,
		ErrorCount:    m.errorCount,
		RateLimited:   m.rateLimited,
		Dropped:       m.dropped,
	}

	if len(m.riskBands) > 0 {
		results.RiskBands = make(map[string]int64, len(m.riskBands))
		for band, n := range m.riskBands {
			results.RiskBands[band] = n
		}
	}

	for kind, ks := range m.kinds {
		kr := KindResult{
			Kind:       kind,
			Requests:   ks.total,
			Fallbacks:  ks.fallbacks,
			LatencyP50: ms(ks.histogram.ValueAtPercentile(50)),
			LatencyP99: ms(ks.histogram.ValueAtPercentile(99)),
		}
		if ks.total > 0 {
			kr.SuccessRate = float64(ks.success) / float64(ks.total)
		}
		if ks.success > 0 {
			kr.AvgProbability = ks.probSum / float64(ks.success)
		}
		results.KindResults = append(results.KindResults, kr)
	}
	sort.Slice(results.KindResults, func(i, j int) bool {
		return results.KindResults[i].Kind < results.KindResults[j].Kind
	})

	return results
}
