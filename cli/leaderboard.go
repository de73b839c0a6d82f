package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/binhbb2204/litverse/internal/gamification"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	boardType  string
	boardLimit int
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top readers",
	Long:  `Rank readers by points, books, pages or streak.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		q := url.Values{}
		q.Set("type", boardType)
		q.Set("limit", strconv.Itoa(boardLimit))
		var res struct {
			Leaderboard []gamification.LeaderboardEntry `json:"leaderboard"`
			Type        string                          `json:"type"`
		}
		if err := client.do(http.MethodGet, "/api/gamification/leaderboard?"+q.Encode(), nil, &res); err != nil {
			printError(err.Error())
			return err
		}
		if len(res.Leaderboard) == 0 {
			fmt.Println("Nobody on the board yet")
			return nil
		}

		width := 60
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
			width = w
		}
		nameWidth := width - 36
		if nameWidth > 40 {
			nameWidth = 40
		}

		fmt.Printf("Leaderboard by %s\n", res.Type)
		fmt.Println(strings.Repeat("-", nameWidth+34))
		for _, e := range res.Leaderboard {
			name := e.Username
			if full := strings.TrimSpace(e.FirstName + " " + e.LastName); full != "" {
				name = full + " (" + e.Username + ")"
			}
			fmt.Printf("%3d. %-*s %10s  L%d %s\n", e.Rank, nameWidth, truncate(name, nameWidth),
				humanize.Comma(int64(e.Value)), e.Level.Level, e.Level.Title)
		}
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().StringVar(&boardType, "type", "points", "points, books, pages or streak")
	leaderboardCmd.Flags().IntVar(&boardLimit, "limit", 10, "Number of readers to show")
}
