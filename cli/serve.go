package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/monitoring"
	"github.com/k2brd/k2brd/engine/infra/server"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/spf13/cobra"
)

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			log := logger.FromContext(ctx)
			if cfg.Runtime.DevMode || cfg.Runtime.Environment == "development" {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}
			mon, err := monitoring.NewService(ctx, &cfg.Monitoring)
			if err != nil {
				return fmt.Errorf("failed to initialize monitoring: %w", err)
			}
			state, err := server.SetupDependencies(ctx, cfg, mon)
			if err != nil {
				return err
			}
			srv, err := server.NewServer(ctx, state, mon)
			if err != nil {
				return err
			}
			log.Info("Starting K2BRD", "project", cfg.Runtime.ProjectName, "environment", cfg.Runtime.Environment)
			return srv.Run()
		},
	}
}
