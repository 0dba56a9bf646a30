package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthub/tool-recommender/internal/benchmark"
	"github.com/agenthub/tool-recommender/internal/config"
	"github.com/agenthub/tool-recommender/internal/registry"
)

// NewBenchCmd creates the 'bench' command for measuring pipeline
// latency and cache behavior with synthetic traffic.
func NewBenchCmd() *cobra.Command {
	var (
		requests int
		users    int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark recommendation latency and cache hit rate",
		Example: `  tool-recommender bench
  tool-recommender bench --requests 1000 --users 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(requests, users)
		},
	}

	cmd.Flags().IntVar(&requests, "requests", 200, "number of synthetic requests")
	cmd.Flags().IntVar(&users, "users", 10, "number of distinct synthetic users")
	return cmd
}

func runBench(requests, users int) error {
	logger, err := newLogger(false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.LoadOrDefault()
	// Benchmarks never write to the journal.
	if cfg.Settings != nil {
		cfg.Settings.JournalEnabled = false
	}

	engine, reg, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Without a configured catalog, seed a small synthetic one so the
	// scoring pipeline has candidates to rank.
	if reg.Count() == 0 {
		if err := reg.RegisterTools(benchCatalog()); err != nil {
			return fmt.Errorf("failed to seed benchmark catalog: %w", err)
		}
	}

	result, err := benchmark.Run(context.Background(), engine, requests, users)
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	fmt.Print(benchmark.FormatReport(result))
	return nil
}

// benchCatalog is the fallback candidate set for benchmarking.
func benchCatalog() []registry.Tool {
	return []registry.Tool{
		{ID: "run_workflow", Name: "Run Workflow", Description: "Execute a workflow", Category: "automation"},
		{ID: "get_user_workflow", Name: "Get User Workflow", Description: "Retrieve workflow details", Category: "information"},
		{ID: "generate_report", Name: "Generate Report", Description: "Build an analytics report", Category: "analysis"},
		{ID: "send_notification", Name: "Send Notification", Description: "Notify a user or channel", Category: "communication"},
		{ID: "create_document", Name: "Create Document", Description: "Create a new document", Category: "creation"},
	}
}
