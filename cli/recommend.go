package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/binhbb2204/litverse/internal/recommendation"
	"github.com/spf13/cobra"
)

var (
	recMood    string
	recContext string
	recQuick   bool
	recLimit   int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Get book recommendations",
	Long: `Ask for recommendations based on your profile and reading history.
With --quick only the mood is used and no profile is consulted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		q := url.Values{}
		path := "/api/ai/recommendations"
		if recQuick {
			if recMood == "" {
				return fmt.Errorf("--mood is required with --quick")
			}
			path = "/api/ai/mood-recommendations"
			q.Set("limit", strconv.Itoa(recLimit))
		} else if recContext != "" {
			q.Set("context", recContext)
		}
		if recMood != "" {
			q.Set("mood", recMood)
		}
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var res recommendation.Result
		if err := client.do(http.MethodGet, path, nil, &res); err != nil {
			printError(err.Error())
			return err
		}
		if res.Source == recommendation.SourceFallback {
			fmt.Println("(showing staff picks, the recommendation engine is not available)")
		}
		for i, r := range res.Recommendations {
			fmt.Printf("%d. %s by %s\n", i+1, r.Title, r.Author)
			if r.Reason != "" {
				fmt.Printf("   %s\n", r.Reason)
			}
			if r.EstimatedReadingTime != "" {
				fmt.Printf("   Reading time: %s\n", r.EstimatedReadingTime)
			}
			if r.BookID != "" && r.Price != nil {
				fmt.Printf("   In store from %s%s  [id %s]\n", currency(), r.Price.StringFixed(2), r.BookID)
			}
		}
		if res.Unresolved > 0 {
			fmt.Printf("\n%d suggestion(s) are not in our catalogue\n", res.Unresolved)
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recMood, "mood", "", "How you feel right now")
	recommendCmd.Flags().StringVar(&recContext, "context", "", "Where or when you will read")
	recommendCmd.Flags().BoolVar(&recQuick, "quick", false, "Mood-only recommendations")
	recommendCmd.Flags().IntVar(&recLimit, "limit", 5, "Number of mood recommendations (1-5)")
}
