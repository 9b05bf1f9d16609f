package server

import (
	"context"
	"fmt"

	"github.com/k2brd/k2brd/engine/brd"
	"github.com/k2brd/k2brd/engine/infra/monitoring"
	"github.com/k2brd/k2brd/engine/infra/server/appstate"
	"github.com/k2brd/k2brd/engine/labels"
	"github.com/k2brd/k2brd/engine/llm"
	"github.com/k2brd/k2brd/engine/tracker"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
)

// SetupDependencies wires the tracker client, provider, taxonomy and
// orchestrator from cfg. mon may be nil.
func SetupDependencies(ctx context.Context, cfg *config.Config, mon *monitoring.Service) (*appstate.State, error) {
	log := logger.FromContext(ctx)
	trackerClient := tracker.NewClient(&cfg.Tracker)
	provider, err := NewProvider(ctx, &cfg.LLM)
	if err != nil {
		return nil, err
	}
	taxonomy, err := labels.Load(ctx, cfg.Labels.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load label taxonomy: %w", err)
	}
	var opts []brd.Option
	var observer appstate.CardObserver
	if mon != nil {
		opts = append(opts, brd.WithRecorder(mon))
		observer = mon
	}
	generator := brd.NewService(trackerClient, provider, opts...)
	deps := appstate.NewBaseDeps(cfg, trackerClient, generator, provider, taxonomy)
	state, err := appstate.NewState(deps, observer)
	if err != nil {
		return nil, fmt.Errorf("failed to create app state: %w", err)
	}
	log.Debug("Dependencies initialized",
		"tracker", cfg.Tracker.BaseURL,
		"llm_host", cfg.LLM.Host,
		"label_categories", len(taxonomy.Categories),
	)
	return state, nil
}

// NewProvider builds the generation client, applying the optional prompt file.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (*llm.Client, error) {
	promptCfg, err := llm.LoadPromptConfig(cfg.PromptFile, llm.PromptConfig{
		Instructions: cfg.Instructions,
		Temperature:  cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt config: %w", err)
	}
	if cfg.PromptFile != "" {
		logger.FromContext(ctx).Debug("Prompt config loaded", "path", cfg.PromptFile)
	}
	client, err := llm.NewClient(cfg, llm.WithPromptConfig(promptCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create generation provider: %w", err)
	}
	return client, nil
}
