package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	"github.com/k2brd/k2brd/engine/brd"
	"github.com/k2brd/k2brd/engine/infra/server"
	"github.com/k2brd/k2brd/engine/llm"
	"github.com/k2brd/k2brd/engine/tracker"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/spf13/cobra"
)

func GenerateCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "generate <card-id>...",
		Short: "Fetch cards from the tracker and generate one BRD per card",
		Long: `Fetch the given cards from the tracker and generate one BRD per card.
Results are printed as JSON unless --output-dir is set, in which case each
BRD is written to <dir>/<card-id>-<card-name>.md.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			log := logger.FromContext(ctx)
			provider, err := server.NewProvider(ctx, &cfg.LLM)
			if err != nil {
				return err
			}
			if !provider.HealthCheck(ctx) {
				return fmt.Errorf("%w at %s", llm.ErrProviderUnavailable, cfg.LLM.Host)
			}
			svc := brd.NewService(tracker.NewClient(&cfg.Tracker), provider)
			results, err := svc.GenerateForCardIDs(ctx, args)
			if err != nil {
				return err
			}
			log.Info("BRDs generated", "count", len(results))
			if outputDir == "" {
				return writeJSON(cmd, results)
			}
			return writeDocuments(cmd, outputDir, results)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory to write one markdown file per BRD")
	return cmd
}

// documentFileName is stable per card and safe on every filesystem.
func documentFileName(r brd.Result) string {
	return slug.Make(r.Card.ID+" "+r.Card.Name) + ".md"
}

func writeDocuments(cmd *cobra.Command, dir string, results []brd.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, r := range results {
		path := filepath.Join(dir, documentFileName(r))
		if err := os.WriteFile(path, []byte(r.BRD), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
