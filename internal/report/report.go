// Package report builds the downloadable export of a detection result.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Report is the export artifact. Its JSON form is a stable external
// format.
type Report struct {
	Timestamp string                    `json:"timestamp"`
	Results   *detector.DetectionResult `json:"results"`
	Summary   string                    `json:"summary"`
}

// New builds the export for result as of now.
func New(result *detector.DetectionResult, now time.Time) *Report {
	return &Report{
		Timestamp: now.UTC().Format(TimestampLayout),
		Results:   result,
		Summary:   Summary(result.AIProbability),
	}
}

// Summary is the one-line headline embedded in every export.
func Summary(aiProbability float64) string {
	return "AI Content Detection Report - " + oneDecimal(aiProbability) + "% AI Probability"
}

// ShareText is the message offered when sharing a result.
func ShareText(result *detector.DetectionResult) string {
	return fmt.Sprintf("AI Content Detection Results: %s%% AI probability with %s%% confidence. Analyzed using advanced neural pattern recognition.",
		oneDecimal(result.AIProbability), oneDecimal(result.Confidence))
}

// FileName is the download name for an export created at now.
func FileName(now time.Time) string {
	return "ai-detection-report-" + strconv.FormatInt(now.UnixMilli(), 10) + ".json"
}

// CreatedAt parses the report timestamp.
func (r *Report) CreatedAt() (time.Time, error) {
	return time.Parse(TimestampLayout, r.Timestamp)
}

// Marshal renders r with two-space indentation.
func Marshal(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Parse decodes an export produced by Marshal.
func Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if r.Results == nil {
		return nil, fmt.Errorf("decode report: missing results")
	}
	return &r, nil
}

// oneDecimal formats to one decimal place the way JavaScript's toFixed(1)
// does: nearest on the exact binary value, exact ties away from zero.
// The only exact ties are odd multiples of 0.25, so 12.25 renders as
// "12.3" while 0.15 (stored just below) renders as "0.1".
func oneDecimal(v float64) string {
	if q := math.Abs(v) * 4; q == math.Trunc(q) && math.Mod(q, 2) == 1 {
		return strconv.FormatFloat(math.Copysign(math.Ceil(math.Abs(v)*10), v)/10, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
