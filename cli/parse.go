package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/engine/labels"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ParsedCard is one offline parse result.
type ParsedCard struct {
	Card         *card.Record      `json:"card"`
	MappedLabels map[string]string `json:"mapped_labels"`
}

func ParseCmd() *cobra.Command {
	var listName string
	cmd := &cobra.Command{
		Use:   "parse <file.json>",
		Short: "Parse exported tracker cards offline and print the structured records",
		Long: `Parse a tracker card export (a single card object or an array of cards)
without contacting the tracker, and print one record per card with its labels
mapped onto the configured taxonomy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read card file: %w", err)
			}
			taxonomy, err := labels.Load(ctx, cfg.Labels.ConfigFile)
			if err != nil {
				return err
			}
			parsed, err := parseCards(cmd, data, listName, taxonomy)
			if err != nil {
				return err
			}
			logger.FromContext(ctx).Debug("Cards parsed", "file", args[0], "count", len(parsed))
			return writeJSON(cmd, parsed)
		},
	}
	cmd.Flags().StringVar(&listName, "list-name", "", "List name applied to every card, overriding the export")
	return cmd
}

func parseCards(cmd *cobra.Command, data []byte, listName string, taxonomy *labels.Taxonomy) ([]ParsedCard, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("card file is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	items := []gjson.Result{root}
	if root.IsArray() {
		items = root.Array()
	}
	out := make([]ParsedCard, 0, len(items))
	for i, item := range items {
		rec, err := card.ParseResult(cmd.Context(), item, listName)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out = append(out, ParsedCard{Card: rec, MappedLabels: taxonomy.Map(rec.Labels)})
	}
	return out, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(pretty.Pretty(data))
	return err
}
