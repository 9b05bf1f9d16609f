package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/k2brd/k2brd/pkg/config"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration diagnostics",
	}
	cmd.AddCommand(configShowCmd())
	return cmd
}

// configShowCmd shows the effective configuration with source information
func configShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration values and their sources",
		Long: `Display the effective configuration. Each value is annotated with the
source (default, yaml, env or cli) that provided it. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, service, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			values, err := config.Flatten(cfg)
			if err != nil {
				return err
			}
			return writeConfig(cmd, values, service, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, yaml)")
	return cmd
}

type configEntry struct {
	Key    string `yaml:"key"`
	Value  string `yaml:"value"`
	Source string `yaml:"source"`
}

func writeConfig(cmd *cobra.Command, values map[string]any, service config.Service, format string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]configEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, configEntry{
			Key:    k,
			Value:  fmt.Sprintf("%v", values[k]),
			Source: string(service.GetSource(k)),
		})
	}
	out := cmd.OutOrStdout()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Value, e.Source)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format %q (use table or yaml)", format)
	}
}
