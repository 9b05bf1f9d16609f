package logger

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flags mirrors the logging flags of the root command.
type Flags struct {
	Level  string
	JSON   bool
	Source bool
}

// FlagsFromCommand reads --log-level, --log-json and --log-source from cmd.
func FlagsFromCommand(cmd *cobra.Command) (Flags, error) {
	var (
		f   Flags
		err error
	)
	if f.Level, err = cmd.Flags().GetString("log-level"); err != nil {
		return Flags{}, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if f.JSON, err = cmd.Flags().GetBool("log-json"); err != nil {
		return Flags{}, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	if f.Source, err = cmd.Flags().GetBool("log-source"); err != nil {
		return Flags{}, fmt.Errorf("failed to get log-source flag: %w", err)
	}
	return f, nil
}

// Logger builds a stderr logger for f.
func (f Flags) Logger() Logger {
	return NewLogger(&Config{
		Level:      ParseLevel(f.Level),
		JSON:       f.JSON,
		AddSource:  f.Source,
		TimeFormat: "15:04:05",
	})
}
