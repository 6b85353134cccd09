package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/report"
)

const essay = "Furthermore, the committee reviewed every proposal in detail. " +
	"Moreover, the findings were summarised for the board. " +
	"Additionally, the next steps were agreed by all members present."

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"aidetect " + Version, detector.ModelVersion} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextCommandJSON(t *testing.T) {
	out, _, err := execute(t, "", "--seed", "42", "--json", "text", essay)
	if err != nil {
		t.Fatalf("text: %v", err)
	}

	var res detector.DetectionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}

	if res.AIProbability < 0 || res.AIProbability > 100 {
		t.Errorf("aiProbability = %v, want within [0, 100]", res.AIProbability)
	}
	if res.Metadata.Algorithm != detector.Algorithm(detector.KindText) {
		t.Errorf("algorithm = %q", res.Metadata.Algorithm)
	}
	if res.Metadata.WordCount == nil || *res.Metadata.WordCount != len(strings.Fields(essay)) {
		t.Errorf("wordCount = %v, want %d", res.Metadata.WordCount, len(strings.Fields(essay)))
	}
	if res.Metadata.SentenceCount == nil || *res.Metadata.SentenceCount != 3 {
		t.Errorf("sentenceCount = %v, want 3", res.Metadata.SentenceCount)
	}
}

func TestTextCommandSeedIsReproducible(t *testing.T) {
	first, _, err := execute(t, "", "--seed", "7", "--json", "text", essay)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := execute(t, "", "--seed", "7", "--json", "text", essay)
	if err != nil {
		t.Fatal(err)
	}

	var a, b detector.DetectionResult
	if err := json.Unmarshal([]byte(first), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(second), &b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("seeded runs differ (-first +second):\n%s", diff)
	}
}

func TestTextCommandReadsStdin(t *testing.T) {
	for _, args := range [][]string{
		{"text"},
		{"text", "-"},
	} {
		out, _, err := execute(t, essay, append([]string{"--seed", "1"}, args...)...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if !strings.Contains(out, "Words          : 26 in 3 sentences") {
			t.Errorf("%v: summary missing word count:\n%s", args, out)
		}
	}
}

func TestTextCommandImageKind(t *testing.T) {
	out, _, err := execute(t, "", "--json", "text", "--kind", "image", "photo")
	if err != nil {
		t.Fatal(err)
	}

	var res detector.DetectionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Metadata.WordCount != nil {
		t.Errorf("image result has wordCount %d", *res.Metadata.WordCount)
	}
	if res.AIProbability < 20 || res.AIProbability >= 80 {
		t.Errorf("image aiProbability = %v, want within [20, 80)", res.AIProbability)
	}
}

func TestTextCommandRejectsUnknownKind(t *testing.T) {
	if _, _, err := execute(t, "", "text", "--kind", "audio", "hello"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), essay)
	writeFile(t, filepath.Join(dir, "nested", "deep", "b.txt"), "I believe this is a short note.")
	writeFile(t, filepath.Join(dir, "empty.txt"), "")
	writeFile(t, filepath.Join(dir, "archive.zip"), "PK\x03\x04\x14\x00\x00\x00\x08\x00")

	exportDir := filepath.Join(dir, "reports")
	out, stderr, err := execute(t, "",
		"--seed", "3", "--json", "analyze", "--export", exportDir,
		filepath.Join(dir, "**", "*.txt"),
		filepath.Join(dir, "*.zip"),
		filepath.Join(dir, "a.txt"), // duplicate of the first match
	)
	if err != nil {
		t.Fatalf("analyze: %v\nstderr: %s", err, stderr)
	}

	var outcomes []outcome
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}

	var names []string
	for _, o := range outcomes {
		names = append(names, o.File.Name)
		if o.File.MimeType != "text/plain" {
			t.Errorf("%s: mimeType = %q", o.File.Name, o.File.MimeType)
		}
		if o.ReportPath == "" {
			t.Errorf("%s: no report exported", o.File.Name)
			continue
		}
		data, err := os.ReadFile(o.ReportPath)
		if err != nil {
			t.Fatalf("read report: %v", err)
		}
		rep, err := report.Parse(data)
		if err != nil {
			t.Fatalf("parse report: %v", err)
		}
		if rep.Results.AIProbability != o.Results.AIProbability {
			t.Errorf("%s: report probability %v, result %v", o.File.Name, rep.Results.AIProbability, o.Results.AIProbability)
		}
	}

	if diff := cmp.Diff([]string{"a.txt", "b.txt"}, names); diff != "" {
		t.Errorf("analyzed files (-want +got):\n%s", diff)
	}
	for _, skipped := range []string{"empty.txt", "archive.zip"} {
		if !strings.Contains(stderr, skipped) {
			t.Errorf("stderr does not mention skipped %s:\n%s", skipped, stderr)
		}
	}
}

func TestAnalyzeCommandTextSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "essay.txt")
	writeFile(t, path, essay)

	out, _, err := execute(t, "", "--seed", "9", "analyze", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{path, "Text Document", "AI probability", "Recommendation"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeCommandErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty.txt"), "")

	tests := []struct {
		name string
		args []string
	}{
		{"no matches", []string{"analyze", filepath.Join(dir, "*.pdf")}},
		{"all skipped", []string{"analyze", filepath.Join(dir, "*.txt")}},
		{"no args", []string{"analyze"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, "", tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "sub", "c.txt"), "c")

	got, err := expandGlobs([]string{
		filepath.Join(dir, "**", "*.txt"),
		filepath.Join(dir, "a.txt"),
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "sub", "c.txt"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("expandGlobs (-want +got):\n%s", diff)
	}

	if _, err := expandGlobs([]string{"[unterminated"}); err == nil {
		t.Error("expected error for malformed pattern")
	}
}
