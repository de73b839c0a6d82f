package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/binhbb2204/litverse/cli/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "litverse",
	Short:         "LitVerse command line",
	Long:          `Run the LitVerse API, seed its catalogue, and use it as a reader from the terminal.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the local configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			printError("Failed to initialize configuration")
			return err
		}
		path, _ := config.GetConfigPath()
		printSuccess("Configuration ready at " + path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd, serveCmd, seedCmd, authCmd, booksCmd, libraryCmd, clubCmd,
		cartCmd, leaderboardCmd, recommendCmd, configCmd, systemCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func printSuccess(msg string) { fmt.Println("✓ " + msg) }

func printError(msg string) { fmt.Fprintln(os.Stderr, "✗ "+msg) }

// apiError is the server's error envelope.
type apiError struct {
	Status  int         `json:"-"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return e.Message
}

type apiClient struct {
	base  string
	token string
	http  *http.Client
}

// newAPIClient reads the server URL and, when auth is set, the saved token.
func newAPIClient(auth bool) (*apiClient, error) {
	base, err := config.GetServerURL()
	if err != nil {
		printError("Configuration not initialized")
		fmt.Println("Run: litverse init")
		return nil, err
	}
	c := &apiClient{base: base, http: &http.Client{Timeout: 30 * time.Second}}
	if auth {
		cfg, err := config.Load()
		if err != nil || cfg.User.Token == "" {
			printError("Not logged in")
			fmt.Println("Run: litverse auth login --email <email>")
			return nil, fmt.Errorf("authentication required")
		}
		c.token = cfg.User.Token
	}
	return c, nil
}

func (c *apiClient) do(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		printError("Server connection error")
		fmt.Println("Check server status: litverse system info")
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		e := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, e)
		return e
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
