package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/logger"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/tuning"
)

// globalFlags are shared by every detection command.
type globalFlags struct {
	seed       uint64
	tuningFile string
	delay      bool
	jsonOut    bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "aidetect",
		Short: "Heuristic AI content detection for text, documents and images",
		Long: `aidetect runs the AI content detector locally.

It reports an AI probability, a confidence, matched patterns and a
recommendation for each input. Scores are heuristic and partly random;
use --seed for reproducible output.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.Uint64Var(&g.seed, "seed", 0, "seed the random source for reproducible output")
	pf.StringVar(&g.tuningFile, "tuning", "", "tuning profile (.yaml, .yml or .toml)")
	pf.BoolVar(&g.delay, "delay", false, "simulate the 1-3s inference delay")
	pf.BoolVar(&g.jsonOut, "json", false, "print results as JSON")
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newAnalyzeCmd(&g), newTextCmd(&g), newVersionCmd())
	return root
}

// setup builds the logger and detector from the global flags.
func (g *globalFlags) setup(cmd *cobra.Command) (*slog.Logger, *detector.Detector, error) {
	lvl, err := logger.ParseLevel(g.logLevel)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Init(logger.Config{Level: lvl, Format: "text", Output: cmd.ErrOrStderr()})

	opts := []detector.Option{detector.WithDelay(g.delay, detector.DefaultDelayMin, detector.DefaultDelayMax)}
	if cmd.Flags().Changed("seed") {
		opts = append(opts, detector.WithSource(detector.NewSeededSource(g.seed)))
	}
	if g.tuningFile != "" {
		t, err := tuning.Load(g.tuningFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load tuning: %w", err)
		}
		opts = append(opts, detector.WithTuning(tuning.NewProvider(t)))
		log.Debug("loaded tuning profile", "path", g.tuningFile)
	}

	return log, detector.New(opts...), nil
}
