package tuning

import (
	"sync/atomic"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// Provider holds the tuning in effect. Readers never block; Store swaps
// the whole set atomically.
type Provider struct {
	current atomic.Pointer[detector.Tuning]
	reloads atomic.Int64
}

// NewProvider starts with t, or the defaults when t is nil.
func NewProvider(t *detector.Tuning) *Provider {
	if t == nil {
		t = detector.DefaultTuning()
	}
	p := &Provider{}
	p.current.Store(t)
	return p
}

// Tuning implements detector.TuningProvider. Callers must not mutate the
// returned value.
func (p *Provider) Tuning() *detector.Tuning {
	return p.current.Load()
}

// Store replaces the active tuning.
func (p *Provider) Store(t *detector.Tuning) {
	if t == nil {
		return
	}
	p.current.Store(t)
	p.reloads.Add(1)
}

// Reloads counts successful Store calls.
func (p *Provider) Reloads() int64 {
	return p.reloads.Load()
}
