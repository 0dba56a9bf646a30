package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthub/tool-recommender/internal/config"
	"github.com/agenthub/tool-recommender/internal/insight"
	"github.com/agenthub/tool-recommender/internal/recommend"
)

// NewRecommendCmd creates the 'recommend' command for one-shot ranking
// from the terminal.
func NewRecommendCmd() *cobra.Command {
	var (
		userID     string
		maxResults int
		urgency    string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "recommend <message>",
		Short: "Rank candidate tools for a message",
		Example: `  tool-recommender recommend "run my onboarding workflow urgently" --user u1
  tool-recommender recommend "analyze sales data" --user u1 --urgency high --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(args[0], userID, maxResults, urgency, asJSON)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "cli-user", "user identifier")
	cmd.Flags().IntVarP(&maxResults, "max", "n", 0, "maximum number of results")
	cmd.Flags().StringVar(&urgency, "urgency", "", "declared urgency (low, medium, high, critical)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON result")
	return cmd
}

func runRecommend(message, userID string, maxResults int, urgency string, asJSON bool) error {
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

	req := recommend.Request{
		Message:    message,
		MaxResults: maxResults,
		Context: insight.UserContext{
			UserID: userID,
			Time:   insight.TimeContext{Urgency: urgency},
		},
	}

	result := engine.GetRecommendations(context.Background(), req)

	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(result.Recommendations) == 0 {
		fmt.Printf("No recommendations (source: %s).\n", result.Source)
		return nil
	}

	fmt.Printf("Recommendations (source: %s):\n", result.Source)
	for i, rec := range result.Recommendations {
		fmt.Printf("%2d. %-30s %.3f  %s\n", i+1, rec.ToolID, rec.Confidence, rec.WhyRecommended)
	}
	return nil
}
