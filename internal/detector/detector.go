package detector

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default bounds of the simulated inference delay.
const (
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 3 * time.Second
)

// Detector runs the full analysis pipeline. A Detector holding the default
// source is safe for concurrent use; one built WithSource is only as safe
// as the source it wraps.
type Detector struct {
	tuning       TuningProvider
	source       RandomSource
	delayEnabled bool
	delayMin     time.Duration
	delayMax     time.Duration
}

// Option configures a Detector.
type Option func(*Detector)

// WithTuning sets where scoring constants come from on each call.
func WithTuning(p TuningProvider) Option {
	return func(d *Detector) {
		if p != nil {
			d.tuning = p
		}
	}
}

// WithSource sets the random source used by Detect.
func WithSource(rng RandomSource) Option {
	return func(d *Detector) {
		if rng != nil {
			d.source = rng
		}
	}
}

// WithDelay configures the simulated processing delay. The duration is
// drawn from [min, max) and reported as processingTime whether or not the
// sleep is enabled.
func WithDelay(enabled bool, min, max time.Duration) Option {
	return func(d *Detector) {
		d.delayEnabled = enabled
		if min >= 0 && max >= min {
			d.delayMin, d.delayMax = min, max
		}
	}
}

// New returns a Detector with the default tuning, the global random source
// and the 1-3s delay enabled.
func New(opts ...Option) *Detector {
	d := &Detector{
		tuning:       StaticTuning{},
		source:       DefaultSource(),
		delayEnabled: true,
		delayMin:     DefaultDelayMin,
		delayMax:     DefaultDelayMax,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect analyzes content as kind using the detector's source.
func (d *Detector) Detect(ctx context.Context, content string, kind ContentKind) (*DetectionResult, error) {
	return d.DetectWithSource(ctx, content, kind, d.source)
}

// DetectWithSource analyzes content with an explicit random source.
//
// Draw order: processing time, base score (or image probability),
// confidence, pattern shuffle, indicator shuffle. The only errors are an
// unknown kind and ctx ending during the delay.
func (d *Detector) DetectWithSource(ctx context.Context, content string, kind ContentKind, rng RandomSource) (*DetectionResult, error) {
	ls, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	t := d.tuning.Tuning()

	processing := d.delayMin + time.Duration(rng.Float64()*float64(d.delayMax-d.delayMin))
	if d.delayEnabled {
		if err := sleep(ctx, processing); err != nil {
			return nil, err
		}
	}

	content = strings.ToValidUTF8(content, "�")

	var (
		features *Features
		meta     = Metadata{
			ProcessingTime: processing.Seconds(),
			ModelVersion:   ModelVersion,
			Algorithm:      ls.algorithm,
		}
	)
	if kind != KindImage {
		f := t.ExtractFeatures(content)
		features = &f
		meta.WordCount = &f.WordCount
		meta.SentenceCount = &f.SentenceCount
	}

	probability, confidence := t.Synthesize(kind, features, rng)

	patterns, err := t.SelectPatterns(kind, probability, rng)
	if err != nil {
		return nil, err
	}
	indicators, err := t.SelectIndicators(kind, rng)
	if err != nil {
		return nil, err
	}

	return &DetectionResult{
		AIProbability: probability,
		Confidence:    confidence,
		ContentType:   kind,
		Analysis: Analysis{
			Patterns:       patterns,
			Indicators:     indicators,
			Recommendation: t.Recommend(probability),
		},
		Metadata: meta,
	}, nil
}

// DetectOrFallback never fails to produce a result. Any error or panic in
// the pipeline is replaced by Fallback and returned alongside it so the
// caller can log it.
func (d *Detector) DetectOrFallback(ctx context.Context, content string, kind ContentKind) (res *DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
			res = Fallback(kind, d.source)
		}
	}()

	res, err = d.Detect(ctx, content, kind)
	if err != nil {
		return Fallback(kind, d.source), err
	}
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
