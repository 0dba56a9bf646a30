package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthub/tool-recommender/internal/config"
)

// NewToolsCmd creates the 'tools' command for inspecting the catalog.
func NewToolsCmd() *cobra.Command {
	var usageContext string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools in the configured catalog",
		Example: `  tool-recommender tools
  tool-recommender tools --context "reporting and analytics"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(usageContext)
		},
	}

	cmd.Flags().StringVar(&usageContext, "context", "", "narrow the listing with a free-text usage context")
	return cmd
}

func runTools(usageContext string) error {
	logger, err := newLogger(false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.LoadOrDefault()
	_, reg, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	ids, err := reg.ListAvailableTools(context.Background(), usageContext)
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	if len(ids) == 0 {
		fmt.Println("No tools registered. Set catalogPath in ~/.tool-recommender.json.")
		return nil
	}

	fmt.Printf("Registered tools (%d):\n", len(ids))
	for _, id := range ids {
		tool, ok := reg.ToolMetadata(id)
		if !ok {
			fmt.Printf("  • %s\n", id)
			continue
		}
		category := tool.Category
		if category == "" {
			category = "general"
		}
		fmt.Printf("  • %-30s [%s] %s\n", tool.ID, category, tool.Description)
	}
	return nil
}
