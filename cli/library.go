package cli

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/binhbb2204/litverse/internal/gamification"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	shelfName    string
	exportFormat string
	exportOutput string
	batchFile    string
	pagesRead    int
	minutesSpent int
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage your shelves",
	Long:  `Show, update and export your owned, wishlist, reading and completed shelves.`,
}

var libraryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your library",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := fetchLibrary()
		if err != nil {
			return err
		}
		for _, shelf := range models.Shelves {
			entries := shelfEntries(lib, shelf)
			fmt.Printf("[%s] %d\n", shelf, len(entries))
			for _, e := range entries {
				fmt.Printf("  - %s by %s (%s, %s)\n", e.Book.Title, e.Book.Author, e.Book.ID, humanize.Time(e.UpdatedAt))
			}
		}
		return nil
	},
}

var libraryAddCmd = &cobra.Command{
	Use:   "add [book-id]",
	Short: "Move a book onto a shelf",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.IsShelf(shelfName) {
			return fmt.Errorf("shelf must be one of: %s", strings.Join(models.Shelves, ", "))
		}
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Message      string                `json:"message"`
			Achievements *gamification.Outcome `json:"achievements"`
		}
		err = client.do(http.MethodPost, "/api/users/library/"+shelfName, models.LibraryRequest{BookID: args[0]}, &res)
		if err != nil {
			printError(err.Error())
			return err
		}
		printSuccess(res.Message)
		if a := res.Achievements; a != nil {
			printOutcome(*a)
		}
		return nil
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove [book-id]",
	Short: "Take a book off a shelf",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Message string `json:"message"`
		}
		path := "/api/users/library/" + url.PathEscape(shelfName) + "/" + url.PathEscape(args[0])
		if err := client.do(http.MethodDelete, path, nil, &res); err != nil {
			printError(err.Error())
			return err
		}
		printSuccess(res.Message)
		return nil
	},
}

var libraryProgressCmd = &cobra.Command{
	Use:   "progress [book-id]",
	Short: "Report a reading session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Achievements gamification.Outcome `json:"achievements"`
		}
		req := models.ReadingProgressRequest{BookID: args[0], PagesRead: &pagesRead, TimeSpent: &minutesSpent}
		if err := client.do(http.MethodPost, "/api/users/reading-progress", req, &res); err != nil {
			printError(err.Error())
			return err
		}
		printSuccess(fmt.Sprintf("Logged %d pages in %d minutes", pagesRead, minutesSpent))
		printOutcome(res.Achievements)
		return nil
	},
}

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export library",
	Long:  `Export your library to JSON or CSV format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := fetchLibrary()
		if err != nil {
			return err
		}

		var outputData []byte
		switch strings.ToLower(exportFormat) {
		case "json":
			outputData, _ = json.MarshalIndent(lib, "", "  ")
		case "csv":
			var buf bytes.Buffer
			w := csv.NewWriter(&buf)
			w.Write([]string{"BookID", "Title", "Author", "Shelf", "UpdatedAt"})
			for _, shelf := range models.Shelves {
				for _, e := range shelfEntries(lib, shelf) {
					w.Write([]string{e.Book.ID, e.Book.Title, e.Book.Author, shelf, e.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")})
				}
			}
			w.Flush()
			outputData = buf.Bytes()
		default:
			return fmt.Errorf("unsupported format: %s", exportFormat)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, outputData, 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			printSuccess(fmt.Sprintf("Library exported to %s", exportOutput))
		} else {
			fmt.Println(string(outputData))
		}
		return nil
	},
}

var libraryBatchAddCmd = &cobra.Command{
	Use:   "batch-add",
	Short: "Shelve many books at once",
	Long:  `Move every book ID listed in a file (one per line) onto a shelf.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.IsShelf(shelfName) {
			return fmt.Errorf("shelf must be one of: %s", strings.Join(models.Shelves, ", "))
		}
		file, err := os.Open(batchFile)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		var bookIDs []string
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
				bookIDs = append(bookIDs, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}

		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		failed := 0
		for _, id := range bookIDs {
			if err := client.do(http.MethodPost, "/api/users/library/"+shelfName, models.LibraryRequest{BookID: id}, nil); err != nil {
				printError(fmt.Sprintf("%s: %v", id, err))
				failed++
			}
		}
		printSuccess(fmt.Sprintf("Shelved %d of %d book(s) on '%s'", len(bookIDs)-failed, len(bookIDs), shelfName))
		if failed > 0 {
			return fmt.Errorf("%d book(s) failed", failed)
		}
		return nil
	},
}

func printOutcome(o gamification.Outcome) {
	fmt.Printf("+%d points (total %s), %s\n", o.PointsEarned, humanize.Comma(int64(o.Points.Total)), o.Level.Title)
	fmt.Printf("Streak: %d day(s), longest %d\n", o.Streak.Current, o.Streak.Longest)
	for _, b := range o.NewBadges {
		fmt.Printf("New badge: %s %s\n", b.Icon, b.Name)
	}
}

func fetchLibrary() (models.UserLibrary, error) {
	client, err := newAPIClient(true)
	if err != nil {
		return models.UserLibrary{}, err
	}
	var res struct {
		Library models.UserLibrary `json:"library"`
	}
	if err := client.do(http.MethodGet, "/api/users/library", nil, &res); err != nil {
		printError("Failed to fetch library: " + err.Error())
		return models.UserLibrary{}, err
	}
	return res.Library, nil
}

func shelfEntries(lib models.UserLibrary, shelf string) []models.LibraryEntry {
	switch shelf {
	case models.ShelfOwned:
		return lib.Owned
	case models.ShelfWishlist:
		return lib.Wishlist
	case models.ShelfReading:
		return lib.Reading
	case models.ShelfCompleted:
		return lib.Completed
	}
	return nil
}

func init() {
	libraryAddCmd.Flags().StringVar(&shelfName, "shelf", models.ShelfReading, "owned, wishlist, reading or completed")
	libraryRemoveCmd.Flags().StringVar(&shelfName, "shelf", models.ShelfReading, "Shelf to remove from")
	libraryBatchAddCmd.Flags().StringVar(&shelfName, "shelf", models.ShelfWishlist, "Shelf for every listed book")
	libraryBatchAddCmd.Flags().StringVar(&batchFile, "file", "", "File containing book IDs (one per line)")
	libraryBatchAddCmd.MarkFlagRequired("file")

	libraryProgressCmd.Flags().IntVar(&pagesRead, "pages", 0, "Pages read this session")
	libraryProgressCmd.Flags().IntVar(&minutesSpent, "minutes", 0, "Minutes spent reading")

	libraryExportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format (json, csv)")
	libraryExportCmd.Flags().StringVar(&exportOutput, "output", "", "Output file path")

	libraryCmd.AddCommand(libraryShowCmd)
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryProgressCmd)
	libraryCmd.AddCommand(libraryExportCmd)
	libraryCmd.AddCommand(libraryBatchAddCmd)
}
