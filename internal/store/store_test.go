package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// backends returns every store available in this environment.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	out := map[string]Store{"memory": NewMemory()}

	lite, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "nested", "detector.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	out["sqlite"] = lite

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		pg, err := NewPostgresURL(ctx, url, 4)
		if err != nil {
			t.Fatalf("NewPostgresURL failed: %v", err)
		}
		// isolate from previous runs
		if _, err := pg.Pool.Exec(ctx, `TRUNCATE reports, detections`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		out["postgres"] = pg
	}

	t.Cleanup(func() {
		for _, s := range out {
			s.Close()
		}
	})
	return out
}

func newReport(created time.Time, p float64) *Report {
	return &Report{
		ID:            uuid.NewString(),
		CreatedAt:     created.UTC().Truncate(time.Millisecond),
		FileName:      "ai-detection-report-1.json",
		Kind:          detector.KindText,
		AIProbability: p,
		OwnerID:       "auth0|abc",
		Payload:       []byte("{\n  \"summary\": \"x\"\n}"),
	}
}

func TestStore_ReportLifecycle(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()
			old := newReport(now.Add(-48*time.Hour), 10)
			fresh := newReport(now, 90)

			for _, r := range []*Report{old, fresh} {
				if err := s.SaveReport(ctx, r); err != nil {
					t.Fatalf("SaveReport failed: %v", err)
				}
			}

			got, err := s.GetReport(ctx, fresh.ID)
			if err != nil {
				t.Fatalf("GetReport failed: %v", err)
			}
			if diff := cmp.Diff(fresh, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}

			if _, err := s.GetReport(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			n, err := s.PruneReports(ctx, now.Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("PruneReports failed: %v", err)
			}
			if n != 1 {
				t.Errorf("pruned %d reports, want 1", n)
			}
			if _, err := s.GetReport(ctx, old.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("old report survived pruning: %v", err)
			}
			if _, err := s.GetReport(ctx, fresh.ID); err != nil {
				t.Errorf("fresh report was pruned: %v", err)
			}
		})
	}
}

func TestStore_DetectionStats(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			dup := DetectionEvent{ID: uuid.NewString(), Time: now, Kind: detector.KindText, Source: "text",
				AIProbability: 80, Confidence: 90, RiskBand: "high", ProcessingTime: 1.5}
			events := []DetectionEvent{
				dup,
				{ID: uuid.NewString(), Time: now, Kind: detector.KindText, Source: "text",
					AIProbability: 20, Confidence: 70, RiskBand: "low", ProcessingTime: 2},
				{ID: uuid.NewString(), Time: now, Kind: detector.KindImage, Source: "file",
					AIProbability: 50, Confidence: 80, RiskBand: "medium", ProcessingTime: 1, Fallback: true},
			}
			if err := s.InsertDetections(ctx, events); err != nil {
				t.Fatalf("InsertDetections failed: %v", err)
			}
			// redelivered events must not double count
			if err := s.InsertDetections(ctx, []DetectionEvent{dup}); err != nil {
				t.Fatalf("InsertDetections (dup) failed: %v", err)
			}
			if err := s.InsertDetections(ctx, nil); err != nil {
				t.Fatalf("InsertDetections (empty) failed: %v", err)
			}
			if err := s.SaveReport(ctx, newReport(now, 80)); err != nil {
				t.Fatalf("SaveReport failed: %v", err)
			}

			got, err := s.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats failed: %v", err)
			}
			want := &Stats{
				TotalDetections: 3,
				Fallbacks:       1,
				AvgProbability:  50,
				AvgConfidence:   80,
				TotalReports:    1,
				ByKind: []KindStats{
					{Kind: detector.KindImage, Count: 1, AvgProbability: 50},
					{Kind: detector.KindText, Count: 2, AvgProbability: 50},
				},
				ByRisk: []RiskStats{{Band: "high", Count: 1}, {Band: "low", Count: 1}, {Band: "medium", Count: 1}},
			}
			if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("stats mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_EmptyStats(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Stats(context.Background())
			if err != nil {
				t.Fatalf("Stats failed: %v", err)
			}
			if got.TotalDetections != 0 || len(got.ByKind) != 0 || got.ByKind == nil {
				t.Errorf("unexpected empty stats %+v", got)
			}
			if err := s.HealthCheck(context.Background()); err != nil {
				t.Errorf("HealthCheck failed: %v", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Load()
	cfg.StoreDriver = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "open.db")
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLite); !ok {
		t.Errorf("expected *SQLite, got %T", s)
	}

	cfg.StoreDriver = "cassandra"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown driver")
	}
}
