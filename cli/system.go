package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/binhbb2204/litverse/cli/config"
	"github.com/binhbb2204/litverse/pkg/discovery"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "System information",
	Long:  `Display system information and diagnostics.`,
}

var systemInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show system info",
	Long:  `Display local system details, server health and server counters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("System Information:")
		fmt.Println("-------------------")
		fmt.Printf("OS: %s\n", runtime.GOOS)
		fmt.Printf("Architecture: %s\n", runtime.GOARCH)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("CPUs: %d\n", runtime.NumCPU())

		path, _ := config.GetConfigPath()
		fmt.Println("\nConfiguration:")
		fmt.Printf("  Config Path: %s\n", path)

		serverURL, err := config.GetServerURL()
		if err != nil {
			fmt.Println("  Status: Not initialized (run: litverse init)")
			return nil
		}
		fmt.Printf("  Server: %s\n", serverURL)

		fmt.Println("\nServer Connectivity:")
		client := http.Client{Timeout: 2 * time.Second}
		var health struct {
			Status      string `json:"status"`
			Uptime      int64  `json:"uptime"`
			Connections int    `json:"connections"`
		}
		if err := getJSON(client, serverURL+"/api/health", &health); err != nil {
			fmt.Printf("  Status: ✗ Unreachable (%s)\n", err.Error())
			return nil
		}
		fmt.Printf("  Status: ✓ %s\n", health.Status)
		fmt.Printf("  Up since: %s\n", humanize.Time(time.Now().Add(-time.Duration(health.Uptime)*time.Second)))
		fmt.Printf("  Live connections: %d\n", health.Connections)

		var counters map[string]interface{}
		if err := getJSON(client, serverURL+"/metrics", &counters); err == nil {
			fmt.Println("\nServer Counters:")
			for _, k := range []string{"checkouts_total", "recommendations_total", "recommendation_fallbacks_total", "broadcasts_total", "broadcast_fails_total", "rate_limited_total"} {
				if n, ok := counters[k].(float64); ok {
					fmt.Printf("  %s: %s\n", k, humanize.Comma(int64(n)))
				}
			}
		}
		return nil
	},
}

var (
	discoverPort    int
	discoverTimeout time.Duration
	discoverUse     bool
)

var systemDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find servers on the local network",
	Long:  `Listen for LitVerse servers announcing themselves over UDP broadcast.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
		defer cancel()
		fmt.Printf("Listening for servers on UDP port %d for %s...\n", discoverPort, discoverTimeout)
		found, err := discovery.Listen(ctx, fmt.Sprintf(":%d", discoverPort))
		if err != nil {
			printError(err.Error())
			return err
		}
		if len(found) == 0 {
			fmt.Println("No servers found")
			return nil
		}
		for _, a := range found {
			fmt.Printf("  %s  api=%s  ws=%s  (seen %s)\n", a.Name, a.Services["api"], a.Services["ws"], humanize.Time(a.Timestamp))
		}
		if discoverUse {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Server.URL = found[0].Services["api"]
			if err := config.Save(cfg); err != nil {
				return err
			}
			printSuccess("Server URL set to " + cfg.Server.URL)
		}
		return nil
	},
}

func getJSON(client http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func init() {
	systemDiscoverCmd.Flags().IntVar(&discoverPort, "port", 9099, "UDP port servers announce on")
	systemDiscoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 6*time.Second, "How long to listen")
	systemDiscoverCmd.Flags().BoolVar(&discoverUse, "use", false, "Save the first server found as server.url")

	systemCmd.AddCommand(systemInfoCmd)
	systemCmd.AddCommand(systemDiscoverCmd)
}
