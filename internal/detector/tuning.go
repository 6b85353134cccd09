package detector

import (
	"errors"
	"fmt"
)

// Range is a half-open interval [Min, Max) used for uniform draws.
type Range struct {
	Min float64 `yaml:"min" toml:"min" json:"min"`
	Max float64 `yaml:"max" toml:"max" json:"max"`
}

// Draw returns a uniform value from the range.
func (r Range) Draw(rng RandomSource) float64 {
	return uniform(rng, r.Min, r.Max)
}

func (r Range) within(lo, hi float64) bool {
	return r.Min <= r.Max && r.Min >= lo && r.Max <= hi
}

// Tuning holds the scoring constants. None of them encode a statistical
// calibration. A deployment can adjust them without a rebuild.
type Tuning struct {
	// Marker phrases, matched as case-sensitive substrings
	FormalConnectors []string `yaml:"formal_connectors" toml:"formal_connectors" json:"formalConnectors"`
	PersonalMarkers  []string `yaml:"personal_markers" toml:"personal_markers" json:"personalMarkers"`

	// Base score and additive adjustments
	BaseScore             Range   `yaml:"base_score" toml:"base_score" json:"baseScore"`
	FormalConnectorBoost  float64 `yaml:"formal_connector_boost" toml:"formal_connector_boost" json:"formalConnectorBoost"`
	LongSentenceWords     float64 `yaml:"long_sentence_words" toml:"long_sentence_words" json:"longSentenceWords"`
	LongSentenceBoost     float64 `yaml:"long_sentence_boost" toml:"long_sentence_boost" json:"longSentenceBoost"`
	PersonalMarkerPenalty float64 `yaml:"personal_marker_penalty" toml:"personal_marker_penalty" json:"personalMarkerPenalty"`
	ShortTextWords        int     `yaml:"short_text_words" toml:"short_text_words" json:"shortTextWords"`
	ShortTextPenalty      float64 `yaml:"short_text_penalty" toml:"short_text_penalty" json:"shortTextPenalty"`
	LowDiversityRatio     float64 `yaml:"low_diversity_ratio" toml:"low_diversity_ratio" json:"lowDiversityRatio"`
	LowDiversityBoost     float64 `yaml:"low_diversity_boost" toml:"low_diversity_boost" json:"lowDiversityBoost"`

	// Confidence draws
	ShortTextConfidence Range `yaml:"short_text_confidence" toml:"short_text_confidence" json:"shortTextConfidence"`
	TextConfidence      Range `yaml:"text_confidence" toml:"text_confidence" json:"textConfidence"`

	// Image scoring is purely random
	ImageProbability Range `yaml:"image_probability" toml:"image_probability" json:"imageProbability"`
	ImageConfidence  Range `yaml:"image_confidence" toml:"image_confidence" json:"imageConfidence"`

	// Text pattern count: 4 above High, 3 above Moderate, else 2
	PatternHighThreshold     float64 `yaml:"pattern_high_threshold" toml:"pattern_high_threshold" json:"patternHighThreshold"`
	PatternModerateThreshold float64 `yaml:"pattern_moderate_threshold" toml:"pattern_moderate_threshold" json:"patternModerateThreshold"`

	// Recommendation step function
	RecommendHighThreshold     float64 `yaml:"recommend_high_threshold" toml:"recommend_high_threshold" json:"recommendHighThreshold"`
	RecommendModerateThreshold float64 `yaml:"recommend_moderate_threshold" toml:"recommend_moderate_threshold" json:"recommendModerateThreshold"`
	RecommendLowThreshold      float64 `yaml:"recommend_low_threshold" toml:"recommend_low_threshold" json:"recommendLowThreshold"`
}

// DefaultTuning returns the built-in scoring constants.
func DefaultTuning() *Tuning {
	return &Tuning{
		FormalConnectors: []string{"Furthermore", "Moreover", "Additionally"},
		PersonalMarkers:  []string{"I believe", "In my opinion", "personally"},

		BaseScore:             Range{Min: 0, Max: 100},
		FormalConnectorBoost:  15,
		LongSentenceWords:     20,
		LongSentenceBoost:     10,
		PersonalMarkerPenalty: 15,
		ShortTextWords:        50,
		ShortTextPenalty:      10,
		LowDiversityRatio:     0.6,
		LowDiversityBoost:     12,

		ShortTextConfidence: Range{Min: 60, Max: 85},
		TextConfidence:      Range{Min: 80, Max: 95},

		ImageProbability: Range{Min: 20, Max: 80},
		ImageConfidence:  Range{Min: 75, Max: 95},

		PatternHighThreshold:     70,
		PatternModerateThreshold: 40,

		RecommendHighThreshold:     75,
		RecommendModerateThreshold: 50,
		RecommendLowThreshold:      25,
	}
}

// Validate checks that ranges and thresholds are coherent.
func (t *Tuning) Validate() error {
	var errs []error

	if len(t.FormalConnectors) == 0 {
		errs = append(errs, errors.New("formal_connectors must not be empty"))
	}
	if len(t.PersonalMarkers) == 0 {
		errs = append(errs, errors.New("personal_markers must not be empty"))
	}

	ranges := []struct {
		name string
		r    Range
	}{
		{"base_score", t.BaseScore},
		{"short_text_confidence", t.ShortTextConfidence},
		{"text_confidence", t.TextConfidence},
		{"image_probability", t.ImageProbability},
		{"image_confidence", t.ImageConfidence},
	}
	for _, r := range ranges {
		if !r.r.within(0, 100) {
			errs = append(errs, fmt.Errorf("%s must satisfy 0 <= min <= max <= 100, got [%g, %g]", r.name, r.r.Min, r.r.Max))
		}
	}

	if t.LowDiversityRatio < 0 || t.LowDiversityRatio > 1 {
		errs = append(errs, fmt.Errorf("low_diversity_ratio must be within [0, 1], got %g", t.LowDiversityRatio))
	}
	if t.ShortTextWords < 0 {
		errs = append(errs, fmt.Errorf("short_text_words must not be negative, got %d", t.ShortTextWords))
	}
	if t.PatternModerateThreshold > t.PatternHighThreshold {
		errs = append(errs, fmt.Errorf("pattern thresholds out of order: moderate %g > high %g",
			t.PatternModerateThreshold, t.PatternHighThreshold))
	}
	if !(t.RecommendLowThreshold <= t.RecommendModerateThreshold && t.RecommendModerateThreshold <= t.RecommendHighThreshold) {
		errs = append(errs, fmt.Errorf("recommendation thresholds out of order: %g / %g / %g",
			t.RecommendLowThreshold, t.RecommendModerateThreshold, t.RecommendHighThreshold))
	}

	return errors.Join(errs...)
}

// TuningProvider supplies the tuning in effect for a single detection.
type TuningProvider interface {
	Tuning() *Tuning
}

// StaticTuning is a TuningProvider that never changes.
type StaticTuning struct {
	T *Tuning
}

// Tuning returns the wrapped tuning, or the defaults if none is set.
func (s StaticTuning) Tuning() *Tuning {
	if s.T == nil {
		return defaultTuning
	}
	return s.T
}

// defaultTuning backs the package-level helpers. It must not be mutated.
var defaultTuning = DefaultTuning()
