package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

func newTextCmd(g *globalFlags) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "text [TEXT|-]",
		Short: "Analyze text given as arguments or on stdin",
		Long: `Score text passed as arguments. With no arguments, or with "-",
the text is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := detector.ParseContentKind(kind)
			if err != nil {
				return err
			}

			content := strings.Join(args, " ")
			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = string(data)
			}

			log, det, err := g.setup(cmd)
			if err != nil {
				return err
			}

			res, err := det.DetectOrFallback(cmd.Context(), content, k)
			if err != nil {
				log.Warn("detection failed, using fallback result", "error", err)
			}

			o := outcome{Source: "text", Results: res}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			writeSummary(cmd.OutOrStdout(), o)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "text", "content kind: text, document or image")
	return cmd
}
