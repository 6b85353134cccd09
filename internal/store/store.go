// Package store persists exported reports and detection events.
//
// Three backends share one interface: an in-process map for tests and
// single-node runs, SQLite for embedded deployments and PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// Report is a persisted export. Payload holds the marshalled export JSON
// exactly as it is served for download.
type Report struct {
	ID            string
	CreatedAt     time.Time
	FileName      string
	Kind          detector.ContentKind
	AIProbability float64
	OwnerID       string
	Payload       []byte
}

// DetectionEvent records one completed detection for statistics.
type DetectionEvent struct {
	ID             string               `json:"id"`
	Time           time.Time            `json:"time"`
	Kind           detector.ContentKind `json:"kind"`
	Source         string               `json:"source"`
	AIProbability  float64              `json:"aiProbability"`
	Confidence     float64              `json:"confidence"`
	RiskBand       string               `json:"riskBand"`
	ProcessingTime float64              `json:"processingTime"`
	Fallback       bool                 `json:"fallback"`
}

// KindStats aggregates events of one content kind.
type KindStats struct {
	Kind           detector.ContentKind `json:"kind"`
	Count          int64                `json:"count"`
	AvgProbability float64              `json:"avgProbability"`
}

// RiskStats counts events per risk band.
type RiskStats struct {
	Band  string `json:"band"`
	Count int64  `json:"count"`
}

// Stats summarizes everything the store holds.
type Stats struct {
	TotalDetections int64       `json:"totalDetections"`
	Fallbacks       int64       `json:"fallbacks"`
	AvgProbability  float64     `json:"avgProbability"`
	AvgConfidence   float64     `json:"avgConfidence"`
	TotalReports    int64       `json:"totalReports"`
	ByKind          []KindStats `json:"byKind"`
	ByRisk          []RiskStats `json:"byRisk"`
}

// Store is implemented by every backend.
type Store interface {
	SaveReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	// PruneReports deletes reports created before the cutoff and returns
	// how many were removed.
	PruneReports(ctx context.Context, before time.Time) (int64, error)
	// InsertDetections ignores events whose ID is already stored.
	InsertDetections(ctx context.Context, events []DetectionEvent) error
	Stats(ctx context.Context) (*Stats, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Open returns the backend selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StoreSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		return NewPostgres(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// sortStats orders breakdowns so every backend returns the same layout.
func sortStats(s *Stats) {
	sort.Slice(s.ByKind, func(i, j int) bool { return s.ByKind[i].Kind < s.ByKind[j].Kind })
	sort.Slice(s.ByRisk, func(i, j int) bool { return s.ByRisk[i].Band < s.ByRisk[j].Band })
	if s.ByKind == nil {
		s.ByKind = []KindStats{}
	}
	if s.ByRisk == nil {
		s.ByRisk = []RiskStats{}
	}
}
