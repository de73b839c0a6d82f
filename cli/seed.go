package cli

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/binhbb2204/litverse/internal/book"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//go:embed catalogue.yaml
var defaultCatalogue []byte

var (
	seedFile   string
	seedDBPath string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a book catalogue into the database",
	Long: `Insert books from a YAML catalogue into the server database. Books already
catalogued under the same title and author are skipped. Without --file the
built-in starter catalogue is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		logger.Init(logger.WARN, false, os.Stderr)

		var src io.Reader = bytes.NewReader(defaultCatalogue)
		if seedFile != "" {
			f, err := os.Open(seedFile)
			if err != nil {
				return fmt.Errorf("open catalogue: %w", err)
			}
			defer f.Close()
			src = f
		}
		reqs, err := book.LoadCatalogue(src)
		if err != nil {
			printError("Catalogue is invalid")
			return err
		}

		path := seedDBPath
		if path == "" {
			path = getEnvOrDefault("DB_PATH", "./data/litverse.db")
		}
		if err := database.InitDatabase(path); err != nil {
			printError("Failed to open database " + path)
			return err
		}
		defer database.Close()

		added, err := book.NewRepository(database.DB).Seed(context.Background(), reqs)
		if err != nil {
			printError(fmt.Sprintf("Seeding stopped after %d book(s)", added))
			return err
		}
		printSuccess(fmt.Sprintf("Added %d of %d book(s) to %s", added, len(reqs), path))
		return nil
	},
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML catalogue (defaults to the built-in one)")
	seedCmd.Flags().StringVar(&seedDBPath, "db", "", "Database path (defaults to $DB_PATH or ./data/litverse.db)")
}
