package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/cache"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/logger"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

func newStream(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewFromClient(client, time.Hour), mr
}

func event(i int, kind detector.ContentKind, p float64) store.DetectionEvent {
	return store.DetectionEvent{
		ID:            fmt.Sprintf("evt-%d", i),
		Time:          time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		Kind:          kind,
		Source:        "api",
		AIProbability: p,
		Confidence:    80,
		RiskBand:      detector.RiskBand(p),
	}
}

func TestFlusher_Flush(t *testing.T) {
	stream, _ := newStream(t)
	st := store.NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		kind := detector.KindText
		if i%2 == 1 {
			kind = detector.KindImage
		}
		if err := stream.RecordDetection(ctx, event(i, kind, float64(20*i))); err != nil {
			t.Fatalf("RecordDetection failed: %v", err)
		}
	}

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_flushed_total"})
	f := NewFlusher(stream, st, 2, time.Second, counter, logger.Discard())

	n, err := f.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n != 2 {
		t.Errorf("first batch = %d, want 2", n)
	}

	f.flushAll(ctx)

	remaining, _ := stream.StreamLength(ctx)
	if remaining != 0 {
		t.Errorf("stream length = %d, want 0", remaining)
	}
	if got := testutil.ToFloat64(counter); got != 5 {
		t.Errorf("flushed counter = %v, want 5", got)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := []store.KindStats{
		{Kind: detector.KindImage, Count: 2, AvgProbability: 40},
		{Kind: detector.KindText, Count: 3, AvgProbability: 40},
	}
	if diff := cmp.Diff(want, stats.ByKind); diff != "" {
		t.Errorf("ByKind mismatch (-want +got):\n%s", diff)
	}
}

type failingStore struct {
	store.Store
	err error
}

func (s failingStore) InsertDetections(context.Context, []store.DetectionEvent) error {
	return s.err
}

func TestFlusher_KeepsEventsWhenInsertFails(t *testing.T) {
	stream, _ := newStream(t)
	ctx := context.Background()
	stream.RecordDetection(ctx, event(1, detector.KindText, 50))

	f := NewFlusher(stream, failingStore{Store: store.NewMemory(), err: errors.New("db down")}, 10, time.Second, nil, logger.Discard())
	if _, err := f.Flush(ctx); err == nil {
		t.Fatal("expected an error")
	}

	if n, _ := stream.StreamLength(ctx); n != 1 {
		t.Errorf("event should stay in the stream, length = %d", n)
	}
}

func TestFlusher_DiscardsUndecodableEntries(t *testing.T) {
	stream, mr := newStream(t)
	ctx := context.Background()

	if _, err := mr.XAdd(cache.StreamDetections, "*", []string{"data", "{not json"}); err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}
	stream.RecordDetection(ctx, event(1, detector.KindText, 10))

	st := store.NewMemory()
	f := NewFlusher(stream, st, 10, time.Second, nil, logger.Discard())
	n, err := f.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n != 2 {
		t.Errorf("consumed = %d, want 2", n)
	}
	stats, _ := st.Stats(ctx)
	if stats.TotalDetections != 1 {
		t.Errorf("TotalDetections = %d, want 1", stats.TotalDetections)
	}
}

func TestFlusher_StartFlushesOnShutdown(t *testing.T) {
	stream, _ := newStream(t)
	st := store.NewMemory()
	stream.RecordDetection(context.Background(), event(1, detector.KindText, 10))

	f := NewFlusher(stream, st, 10, time.Hour, nil, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("flusher did not stop")
	}

	stats, _ := st.Stats(context.Background())
	if stats.TotalDetections != 1 {
		t.Errorf("final flush missed events, TotalDetections = %d", stats.TotalDetections)
	}
}

func TestPruner(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

	for i, age := range []time.Duration{time.Hour, 29 * 24 * time.Hour, 31 * 24 * time.Hour, 90 * 24 * time.Hour} {
		err := st.SaveReport(ctx, &store.Report{
			ID:        fmt.Sprintf("r-%d", i),
			CreatedAt: now.Add(-age),
			Kind:      detector.KindText,
			Payload:   []byte("{}"),
		})
		if err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}
	}

	p, err := NewPruner(st, 30*24*time.Hour, "0 3 * * *", logger.Discard())
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}
	p.now = func() time.Time { return now }

	n, err := p.PruneOnce(ctx)
	if err != nil {
		t.Fatalf("PruneOnce failed: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	if _, err := st.GetReport(ctx, "r-1"); err != nil {
		t.Errorf("recent report was pruned: %v", err)
	}
	if _, err := st.GetReport(ctx, "r-3"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old report survived: %v", err)
	}

	if next := p.Next(now); !next.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("next run = %s, want %s", next, now.Add(24*time.Hour))
	}
}

func TestNewPruner_Invalid(t *testing.T) {
	if _, err := NewPruner(store.NewMemory(), time.Hour, "not a cron", logger.Discard()); err == nil {
		t.Error("expected error for bad schedule")
	}
	if _, err := NewPruner(store.NewMemory(), 0, "0 3 * * *", logger.Discard()); err == nil {
		t.Error("expected error for zero retention")
	}
}
