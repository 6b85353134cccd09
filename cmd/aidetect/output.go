package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/ingest"
)

// outcome is one scored input.
type outcome struct {
	Source     string                    `json:"source"`
	File       *ingest.FileMetadata      `json:"file,omitempty"`
	Results    *detector.DetectionResult `json:"results"`
	ReportPath string                    `json:"reportPath,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeSummary(w io.Writer, o outcome) {
	r := o.Results

	header := o.Source
	if o.File != nil {
		header = fmt.Sprintf("%s  (%s, %s)", o.Source, ingest.TypeDescription(o.File.MimeType), ingest.FormatSize(o.File.Size))
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "  AI probability : %.1f%%  %s (%s)\n", r.AIProbability, detector.RiskLevel(r.AIProbability), detector.StatusText(r.AIProbability))
	fmt.Fprintf(w, "  Confidence     : %.1f%%\n", r.Confidence)
	fmt.Fprintf(w, "  Algorithm      : %s\n", r.Metadata.Algorithm)
	if r.Metadata.WordCount != nil {
		fmt.Fprintf(w, "  Words          : %d in %d sentences\n", *r.Metadata.WordCount, deref(r.Metadata.SentenceCount))
	}
	fmt.Fprintf(w, "  Patterns       : %s\n", strings.Join(r.Analysis.Patterns, "; "))
	fmt.Fprintf(w, "  Indicators     : %s\n", strings.Join(r.Analysis.Indicators, "; "))
	fmt.Fprintf(w, "  Recommendation : %s\n", r.Analysis.Recommendation)
	if o.ReportPath != "" {
		fmt.Fprintf(w, "  Report         : %s\n", o.ReportPath)
	}
	fmt.Fprintln(w)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
