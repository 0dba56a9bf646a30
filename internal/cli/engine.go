/*
Package cli implements the tool-recommender commands.
*/
package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agenthub/tool-recommender/internal/config"
	"github.com/agenthub/tool-recommender/internal/recommend"
	"github.com/agenthub/tool-recommender/internal/registry"
	"github.com/agenthub/tool-recommender/internal/storage"
)

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// clean for MCP stdio transport and command output.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// buildEngine assembles the recommendation engine from configuration:
// registry (with optional catalog), optional journal, experiments.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*recommend.Engine, *registry.BleveRegistry, error) {
	reg, err := registry.NewBleveRegistry(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tool registry: %w", err)
	}

	if cfg.CatalogPath != "" {
		if err := reg.LoadCatalog(cfg.CatalogPath); err != nil {
			return nil, nil, fmt.Errorf("failed to load tool catalog: %w", err)
		}
		logger.Info("loaded tool catalog",
			zap.String("path", cfg.CatalogPath),
			zap.Int("tools", reg.Count()))
	}

	engineCfg := recommend.Config{
		Registry: reg,
		Metadata: reg,
		Logger:   logger,
	}

	if cfg.Weights != nil {
		engineCfg.Weights = recommend.Weights{
			Collaborative: cfg.Weights.Collaborative,
			ContentBased:  cfg.Weights.ContentBased,
			Contextual:    cfg.Weights.Contextual,
			Temporal:      cfg.Weights.Temporal,
			Behavioral:    cfg.Weights.Behavioral,
		}
	}
	if cfg.Settings != nil {
		engineCfg.MaxResults = cfg.Settings.MaxResults
		engineCfg.CacheTTL = time.Duration(cfg.Settings.CacheTTLSeconds) * time.Second
		engineCfg.CacheSize = cfg.Settings.CacheSize
		engineCfg.RegistryTimeout = time.Duration(cfg.Settings.RegistryTimeoutSeconds) * time.Second
		engineCfg.PromptRate = cfg.Settings.FeedbackPromptRate
		engineCfg.ExploreSeed = time.Now().UnixNano()

		if cfg.Settings.JournalEnabled {
			journal := storage.NewJournal(logger)
			if err := journal.Init(); err != nil {
				logger.Warn("journal unavailable, continuing without persistence", zap.Error(err))
			} else {
				engineCfg.Journal = journal
			}
		}
	}

	engine, err := recommend.NewEngine(engineCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	if cfg.ExperimentsPath != "" {
		if err := engine.Experiments().LoadExperiments(cfg.ExperimentsPath); err != nil {
			return nil, nil, fmt.Errorf("failed to load experiments: %w", err)
		}
	}

	return engine, reg, nil
}
