// Package worker moves detection events into the store and enforces
// report retention.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

// EventSource is the detections stream. *cache.RedisCache satisfies it.
type EventSource interface {
	ReadDetections(ctx context.Context, count int) ([]store.DetectionEvent, []string, error)
	Ack(ctx context.Context, ids []string) error
}

// Flusher drains detection events from the stream into the store.
type Flusher struct {
	source        EventSource
	store         store.Store
	batchSize     int
	flushInterval time.Duration
	flushed       prometheus.Counter
	logger        *slog.Logger
}

// NewFlusher creates a new detection event flusher. flushed may be nil.
func NewFlusher(source EventSource, st store.Store, batchSize int, flushInterval time.Duration, flushed prometheus.Counter, logger *slog.Logger) *Flusher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Flusher{
		source:        source,
		store:         st,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		flushed:       flushed,
		logger:        logger,
	}
}

// Start flushes on every tick until ctx is cancelled, then flushes once more.
func (f *Flusher) Start(ctx context.Context) {
	f.logger.Info("flusher started", "interval", f.flushInterval, "batch_size", f.batchSize)

	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("flusher shutting down")
			// Final flush before exit
			finalCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			f.flushAll(finalCtx)
			cancel()
			return
		case <-ticker.C:
			f.flushAll(ctx)
		}
	}
}

// flushAll keeps flushing full batches so a backlog drains in one tick.
func (f *Flusher) flushAll(ctx context.Context) {
	total := 0
	for {
		n, err := f.Flush(ctx)
		if err != nil {
			f.logger.Error("flush failed", "error", err)
			return
		}
		total += n
		if n < f.batchSize || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		f.logger.Info("flushed detection events", "count", total)
	}
}

// Flush moves one batch and returns how many stream entries it consumed.
// Entries are acknowledged only after the store accepted them, so a failed
// insert is retried on the next tick.
func (f *Flusher) Flush(ctx context.Context) (int, error) {
	events, ids, err := f.source.ReadDetections(ctx, f.batchSize)
	if err != nil {
		return 0, fmt.Errorf("read events: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if len(events) > 0 {
		if err := f.store.InsertDetections(ctx, events); err != nil {
			return 0, fmt.Errorf("insert %d events: %w", len(events), err)
		}
	}
	if dropped := len(ids) - len(events); dropped > 0 {
		f.logger.Warn("discarding undecodable stream entries", "count", dropped)
	}

	if err := f.source.Ack(ctx, ids); err != nil {
		// Inserts are idempotent by event ID, so a redelivery is harmless.
		return 0, fmt.Errorf("ack events: %w", err)
	}

	if f.flushed != nil {
		f.flushed.Add(float64(len(events)))
	}
	return len(ids), nil
}
