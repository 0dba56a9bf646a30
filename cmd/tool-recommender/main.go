/*
Package main is the entry point for the tool-recommender CLI.

tool-recommender ranks and explains candidate tools for a conversational
agent, combining collaborative filtering, content-based filtering,
contextual fit, temporal fit and behavioral affinity into a single
confidence score per tool.

Usage:
  tool-recommender [command]

Available Commands:
  serve       Run the recommendation MCP server (stdio transport)
  recommend   Rank candidate tools for a message
  tools       List the tools in the configured catalog
  analytics   Show aggregate recommendation statistics
  bench       Benchmark recommendation latency and cache hit rate
  version     Print version information
  help        Help about any command

Examples:
  # Run as MCP server
  tool-recommender serve

  # One-shot ranking from the terminal
  tool-recommender recommend "run my onboarding workflow urgently" --user u1
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthub/tool-recommender/internal/cli"
	"github.com/agenthub/tool-recommender/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tool-recommender",
		Short: "Contextual tool recommendations for conversational agents",
		Long: `tool-recommender suggests which tools an agent should consider invoking
for the current conversation turn.

Every candidate tool is scored under five independent algorithms:
  • collaborative - what similar users found useful
  • content       - how tool features match the user's profile
  • contextual    - fit with the derived intent and workflow stage
  • temporal      - usage recency and timing
  • behavioral    - the user's own interaction patterns

The scores combine under configurable weights (optionally overridden per
A/B experiment variant) into one ranked, explained list.`,
		Version: version.GetVersion(),
	}

	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewRecommendCmd())
	rootCmd.AddCommand(cli.NewToolsCmd())
	rootCmd.AddCommand(cli.NewAnalyticsCmd())
	rootCmd.AddCommand(cli.NewBenchCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
