package cli

import (
	"context"
	"fmt"

	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/k2brd/k2brd/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	defaultEnvFile = ".env"
)

// configFlags are forwarded to the CLI config source when explicitly set.
var configFlags = []string{"host", "port", "log-level", "log-json", "dev-mode", "llm-host", "llm-model", "labels"}

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "k2brd",
		Short:         "Turn tracker cards into business requirement documents",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("env-file", defaultEnvFile, "Path to a .env file loaded before reading the environment")
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source location in logs")
	flags.String("host", "", "HTTP listen host")
	flags.Int("port", 0, "HTTP listen port")
	flags.Bool("dev-mode", false, "Enable development mode (forces debug logging)")
	flags.String("llm-host", "", "Base URL of the OpenAI-compatible generation server")
	flags.String("llm-model", "", "Model name sent to the generation server")
	flags.String("labels", "", "Path to a label taxonomy file (JSON or YAML)")

	root.AddCommand(
		ServeCmd(),
		ParseCmd(),
		GenerateCmd(),
		ConfigCmd(),
	)
	return root
}

// SetupGlobalConfig loads configuration, builds the logger and attaches both
// to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logFlags, err := logger.FlagsFromCommand(cmd)
	if err != nil {
		return err
	}
	logFlags.Level = cfg.Runtime.LogLevel
	if cfg.Runtime.DevMode {
		logFlags.Level = string(logger.DebugLevel)
	}
	logFlags.JSON = cfg.Runtime.LogJSON
	log := logFlags.Logger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	log.Debug("Configuration loaded",
		"environment", cfg.Runtime.Environment,
		"dev_mode", cfg.Runtime.DevMode,
		"log_level", logFlags.Level,
	)
	return nil
}

// loadConfig reads the .env file, then merges defaults, YAML, environment and
// explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, config.Service, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	sources := []config.Source{config.NewYAMLProvider(configFile)}
	if cliFlags := extractCLIFlags(cmd.Flags()); len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}
	service := config.NewService()
	cfg, err := service.Load(cmd.Context(), sources...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, service, nil
}

// extractCLIFlags returns only the flags that were explicitly changed.
func extractCLIFlags(flags *pflag.FlagSet) map[string]any {
	out := make(map[string]any)
	for _, name := range configFlags {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		var (
			value any
			err   error
		)
		switch f.Value.Type() {
		case "int":
			value, err = flags.GetInt(name)
		case "bool":
			value, err = flags.GetBool(name)
		default:
			value = f.Value.String()
		}
		if err == nil {
			out[name] = value
		}
	}
	return out
}
