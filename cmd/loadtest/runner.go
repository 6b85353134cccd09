package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Sender issues one detection request. *Client implements it.
type Sender interface {
	SendRequest(ctx context.Context) RequestResult
}

// progressInterval is how often Run prints a progress line.
const progressInterval = 5 * time.Second

// Runner paces detection requests at the target rate across a fixed pool
// of workers.
type Runner struct {
	cfg     Config
	client  Sender
	metrics *Metrics
	out     io.Writer
}

// NewRunner returns a Runner that prints progress to out.
func NewRunner(cfg Config, client Sender, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Runner{
		cfg:     cfg,
		client:  client,
		metrics: NewMetrics(),
		out:     out,
	}
}

// Run sends requests until ctx ends, then waits for in-flight requests and
// returns the aggregated results. A tick that finds every worker busy is
// counted as dropped rather than queued.
func (r *Runner) Run(ctx context.Context) *Results {
	work := make(chan struct{}, r.cfg.Workers*2)
	var wg sync.WaitGroup

	r.metrics.Start()
	for range r.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, work)
		}()
	}

	pace := time.NewTicker(time.Second / time.Duration(r.cfg.RPS))
	defer pace.Stop()
	progress := time.NewTicker(progressInterval)
	defer progress.Stop()

	started := time.Now()
	fmt.Fprintln(r.out, "Load test started...")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-progress.C:
			r.printProgress(time.Since(started))
		case <-pace.C:
			select {
			case work <- struct{}{}:
			default:
				r.metrics.RecordDropped()
			}
		}
	}

	close(work)
	wg.Wait()
	r.metrics.Stop()

	fmt.Fprintln(r.out, "Load test completed!")
	return r.metrics.GetResults(r.cfg.RPS)
}

func (r *Runner) printProgress(elapsed time.Duration) {
	p := r.metrics.Progress()
	fmt.Fprintf(r.out, "Elapsed: %s | Remaining: %s | Completed: %d | RPS: %.1f | Fallbacks: %d | Dropped: %d\n",
		formatDuration(elapsed),
		formatDuration(r.cfg.Duration-elapsed),
		p.Completed,
		float64(p.Completed)/max(elapsed.Seconds(), 1e-9),
		p.Fallbacks,
		p.Dropped)
}

func (r *Runner) worker(ctx context.Context, work <-chan struct{}) {
	for range work {
		if ctx.Err() != nil {
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
		result := r.client.SendRequest(reqCtx)
		cancel()

		r.metrics.Record(result)
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	if m := d / time.Minute; m > 0 {
		return fmt.Sprintf("%dm%ds", m, (d%time.Minute)/time.Second)
	}
	return fmt.Sprintf("%ds", d/time.Second)
}
