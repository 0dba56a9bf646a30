package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthub/tool-recommender/internal/config"
	"github.com/agenthub/tool-recommender/internal/mcp"
)

// NewServeCmd creates the 'serve' command for running the MCP server.
func NewServeCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recommendation MCP server (stdio transport)",
		Long: `Start the tool-recommender server using stdio transport.

This server exposes 4 tools to AI clients:
  • recommend_tools        - Rank candidate tools for a message
  • explain_recommendation - Break down a tool's score composition
  • record_feedback        - Feed interaction outcomes back in
  • get_analytics          - Aggregate recommendation statistics`,
		Example: `  # Run directly
  tool-recommender serve

  # Add to an MCP client
  claude mcp add recommender -- tool-recommender serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// runServe starts the MCP server with stdio transport and signal
// handling. Implements graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
func runServe(verbose bool) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.LoadOrDefault()

	engine, _, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	maintenanceCtx, cancelMaintenance := context.WithCancel(context.Background())
	defer cancelMaintenance()
	engine.StartMaintenance(maintenanceCtx, time.Minute)

	server := mcp.NewServer(engine, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down gracefully", zap.String("signal", sig.String()))

		cancelMaintenance()
		if err := engine.Close(); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
			return err
		}

		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		// Server.Run() returned (stdin closed or error). Still need to
		// flush the tracker and close the journal.
		cancelMaintenance()
		if closeErr := engine.Close(); closeErr != nil {
			logger.Error("error during cleanup", zap.Error(closeErr))
		}
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
