package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenthub/tool-recommender/internal/config"
)

// NewAnalyticsCmd creates the 'analytics' command.
func NewAnalyticsCmd() *cobra.Command {
	var (
		sinceDays int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show aggregate recommendation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalytics(sinceDays, asJSON)
		},
	}

	cmd.Flags().IntVar(&sinceDays, "days", 30, "aggregation window in days")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON result")
	return cmd
}

func runAnalytics(sinceDays int, asJSON bool) error {
	logger, err := newLogger(false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.LoadOrDefault()
	engine, _, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	since := time.Now().Add(-time.Duration(sinceDays) * 24 * time.Hour)
	analytics, err := engine.GetAnalytics(since)
	if err != nil {
		return fmt.Errorf("failed to aggregate analytics: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(analytics, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode analytics: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Analytics (last %d days):\n", sinceDays)
	fmt.Printf("  Recommendations served: %d\n", analytics.Journal.RecommendationsServed)
	fmt.Printf("  Feedback events:        %d\n", analytics.Journal.FeedbackCount)
	fmt.Printf("  Usage rate:             %.1f%%\n", analytics.Journal.UsageRate*100)
	fmt.Printf("  Helpful rate:           %.1f%%\n", analytics.Journal.HelpfulRate*100)
	fmt.Printf("  Average rating:         %.2f\n", analytics.Journal.AverageRating*5)
	if len(analytics.Journal.TopTools) > 0 {
		fmt.Println("  Top tools:")
		for _, tc := range analytics.Journal.TopTools {
			fmt.Printf("    • %-30s %d\n", tc.ToolID, tc.Count)
		}
	}
	return nil
}
