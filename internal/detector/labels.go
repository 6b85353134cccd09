package detector

import "fmt"

const (
	recommendHigh     = "High likelihood of AI generation. Content exhibits strong patterns consistent with machine-generated text/media."
	recommendModerate = "Moderate likelihood of AI generation. Some patterns suggest possible machine assistance in content creation."
	recommendLowMod   = "Low to moderate likelihood of AI generation. Content shows mixed indicators requiring further analysis."
	recommendLow      = "Low likelihood of AI generation. Content exhibits characteristics typical of human-created material."
)

var (
	textPatterns = []string{
		"Repetitive sentence structure patterns",
		"Formal tone consistency throughout",
		"Limited vocabulary variation detected",
		"Predictable transition word usage",
		"Uniform paragraph length distribution",
		"Consistent punctuation patterns",
		"Lack of colloquial expressions",
		"Systematic argument structure",
		"Balanced sentence complexity",
		"Minimal stylistic inconsistencies",
	}

	imagePatterns = []string{
		"Pixel-level inconsistencies detected",
		"Unnatural lighting gradients",
		"Compression artifact anomalies",
		"Frequency domain irregularities",
		"Metadata signature analysis",
		"Color distribution patterns",
		"Edge detection anomalies",
	}

	textIndicators = []string{
		"Transformer-based language model analysis",
		"Syntactic pattern recognition",
		"Semantic coherence evaluation",
		"Writing style fingerprinting",
		"N-gram frequency analysis",
		"Perplexity score calculation",
		"Linguistic feature extraction",
		"Stylometric analysis",
	}

	imageIndicators = []string{
		"Deep convolutional neural network analysis",
		"Generative adversarial network detection",
		"Pixel-level statistical analysis",
		"Metadata forensic examination",
		"Frequency domain transformation",
		"Compression pattern analysis",
	}
)

// labelSet is the static reference data for one content kind.
type labelSet struct {
	algorithm      string
	patterns       []string
	indicators     []string
	indicatorCount int
	// patternCount picks the prefix length after the shuffle has been drawn.
	patternCount func(t *Tuning, aiProbability float64, rng RandomSource) int
}

func textPatternCount(t *Tuning, p float64, _ RandomSource) int {
	switch {
	case p > t.PatternHighThreshold:
		return 4
	case p > t.PatternModerateThreshold:
		return 3
	default:
		return 2
	}
}

func imagePatternCount(_ *Tuning, _ float64, rng RandomSource) int {
	return 3 + rng.IntN(2)
}

var labels = map[ContentKind]labelSet{
	KindText: {
		algorithm:      "Neural Pattern Recognition (NPR)",
		patterns:       textPatterns,
		indicators:     textIndicators,
		indicatorCount: 4,
		patternCount:   textPatternCount,
	},
	KindDocument: {
		algorithm:      "Document Analysis Framework (DAF)",
		patterns:       textPatterns,
		indicators:     textIndicators,
		indicatorCount: 4,
		patternCount:   textPatternCount,
	},
	KindImage: {
		algorithm:      "Visual Content Detection (VCD)",
		patterns:       imagePatterns,
		indicators:     imageIndicators,
		indicatorCount: 3,
		patternCount:   imagePatternCount,
	},
}

func lookup(kind ContentKind) (labelSet, error) {
	ls, ok := labels[kind]
	if !ok {
		return labelSet{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return ls, nil
}

// Algorithm returns the algorithm label reported for kind.
func Algorithm(kind ContentKind) string {
	return labels[kind].algorithm
}

// SelectPatterns returns a random subset of the kind's pattern list using
// the default thresholds.
func SelectPatterns(kind ContentKind, aiProbability float64, rng RandomSource) ([]string, error) {
	return defaultTuning.SelectPatterns(kind, aiProbability, rng)
}

// SelectPatterns shuffles the kind's pattern list and returns a prefix.
// For text and documents the prefix length follows aiProbability; for
// images it is 3 or 4, drawn after the shuffle.
func (t *Tuning) SelectPatterns(kind ContentKind, aiProbability float64, rng RandomSource) ([]string, error) {
	ls, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	all := shuffled(ls.patterns, rng)
	n := min(ls.patternCount(t, aiProbability, rng), len(all))
	return all[:n], nil
}

// SelectIndicators shuffles the kind's indicator list and returns a fixed
// size prefix: 4 for text and documents, 3 for images.
func SelectIndicators(kind ContentKind, rng RandomSource) ([]string, error) {
	ls, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	all := shuffled(ls.indicators, rng)
	return all[:min(ls.indicatorCount, len(all))], nil
}

// SelectIndicators ignores the tuning; indicator counts are fixed per kind.
func (t *Tuning) SelectIndicators(kind ContentKind, rng RandomSource) ([]string, error) {
	return SelectIndicators(kind, rng)
}

// Recommend maps a probability to a recommendation using the default
// thresholds.
func Recommend(aiProbability float64) string {
	return defaultTuning.Recommend(aiProbability)
}

// Recommend is a pure step function over the recommendation thresholds.
func (t *Tuning) Recommend(aiProbability float64) string {
	switch {
	case aiProbability > t.RecommendHighThreshold:
		return recommendHigh
	case aiProbability > t.RecommendModerateThreshold:
		return recommendModerate
	case aiProbability > t.RecommendLowThreshold:
		return recommendLowMod
	default:
		return recommendLow
	}
}

// RiskLevel buckets a probability for dashboards.
func RiskLevel(aiProbability float64) string {
	switch {
	case aiProbability > 70:
		return "High Risk"
	case aiProbability > 30:
		return "Medium Risk"
	default:
		return "Low Risk"
	}
}

// StatusText is the headline shown next to the probability.
func StatusText(aiProbability float64) string {
	switch {
	case aiProbability > 70:
		return "High AI Probability"
	case aiProbability > 30:
		return "Moderate AI Probability"
	default:
		return "Low AI Probability"
	}
}

// RiskBand is the short machine name of RiskLevel, used as a metric label.
func RiskBand(aiProbability float64) string {
	switch {
	case aiProbability > 70:
		return "high"
	case aiProbability > 30:
		return "medium"
	default:
		return "low"
	}
}
