package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/ingest"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/report"
)

type analyzeFlags struct {
	exportDir string
	maxSize   int64
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <glob>...",
		Short: "Analyze files matched by glob patterns",
		Long: `Ingest and score every file matched by the given patterns.

Patterns support ** for recursive matching. Files that are empty, too large
or of an unsupported type are reported on stderr and skipped.

Examples:
  aidetect analyze essay.txt
  aidetect analyze 'submissions/**/*.{txt,pdf,png}'
  aidetect analyze --json --export reports/ 'docs/*.txt'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, f, args)
		},
	}

	cmd.Flags().StringVar(&f.exportDir, "export", "", "write a JSON report per file into this directory")
	cmd.Flags().Int64Var(&f.maxSize, "max-size", 10<<20, "largest accepted file in bytes")
	return cmd
}

// expandGlobs returns the sorted, de-duplicated regular files matched by
// patterns.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

func runAnalyze(cmd *cobra.Command, g *globalFlags, f analyzeFlags, patterns []string) error {
	log, det, err := g.setup(cmd)
	if err != nil {
		return err
	}

	files, err := expandGlobs(patterns)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %s", strings.Join(patterns, " "))
	}

	if f.exportDir != "" {
		if err := os.MkdirAll(f.exportDir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	var outcomes []outcome
	skipped := 0

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", path, err)
			skipped++
			continue
		}

		name := filepath.Base(path)
		mimeType := ingest.ResolveMIME(name, "", data)
		if err := ingest.Validate(name, mimeType, int64(len(data)), f.maxSize); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", path, err)
			skipped++
			continue
		}

		pf := ingest.ProcessFile(name, mimeType, data)
		res, err := det.DetectOrFallback(cmd.Context(), pf.Content, pf.Kind)
		if err != nil {
			log.Warn("detection failed, using fallback result", "file", path, "error", err)
		}

		o := outcome{Source: path, File: &pf.Metadata, Results: res}
		if f.exportDir != "" {
			o.ReportPath, err = exportReport(f.exportDir, name, res, time.Now())
			if err != nil {
				return err
			}
		}

		if g.jsonOut {
			outcomes = append(outcomes, o)
		} else {
			writeSummary(out, o)
		}
	}

	if g.jsonOut {
		if err := writeJSON(out, outcomes); err != nil {
			return err
		}
	}

	if skipped > 0 && skipped == len(files) {
		return fmt.Errorf("all %d files were skipped", skipped)
	}
	return nil
}

// exportReport writes the download artifact for one file. The input name
// is prefixed so reports created within the same millisecond do not clash.
func exportReport(dir, inputName string, res *detector.DetectionResult, now time.Time) (string, error) {
	data, err := report.Marshal(report.New(res, now))
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, inputName+"."+report.FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
