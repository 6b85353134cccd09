package store

import (
	"context"
	"sync"
	"time"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// Memory keeps everything in process. Contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*Report
	events  map[string]DetectionEvent
}

func NewMemory() *Memory {
	return &Memory{
		reports: make(map[string]*Report),
		events:  make(map[string]DetectionEvent),
	}
}

func (m *Memory) SaveReport(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.Payload = append([]byte(nil), r.Payload...)
	m.reports[r.ID] = &cp
	return nil
}

func (m *Memory) GetReport(_ context.Context, id string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) PruneReports(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.reports {
		if r.CreatedAt.Before(before) {
			delete(m.reports, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) InsertDetections(_ context.Context, events []DetectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		if _, ok := m.events[e.ID]; !ok {
			m.events[e.ID] = e
		}
	}
	return nil
}

func (m *Memory) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &Stats{TotalReports: int64(len(m.reports))}
	kinds := map[detector.ContentKind]*KindStats{}
	risks := map[string]int64{}
	var sumP, sumC float64

	for _, e := range m.events {
		s.TotalDetections++
		if e.Fallback {
			s.Fallbacks++
		}
		sumP += e.AIProbability
		sumC += e.Confidence

		ks, ok := kinds[e.Kind]
		if !ok {
			ks = &KindStats{Kind: e.Kind}
			kinds[e.Kind] = ks
		}
		ks.Count++
		ks.AvgProbability += e.AIProbability
		risks[e.RiskBand]++
	}

	if s.TotalDetections > 0 {
		s.AvgProbability = sumP / float64(s.TotalDetections)
		s.AvgConfidence = sumC / float64(s.TotalDetections)
	}
	for _, ks := range kinds {
		ks.AvgProbability /= float64(ks.Count)
		s.ByKind = append(s.ByKind, *ks)
	}
	for band, n := range risks {
		s.ByRisk = append(s.ByRisk, RiskStats{Band: band, Count: n})
	}
	sortStats(s)
	return s, nil
}

func (m *Memory) HealthCheck(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
