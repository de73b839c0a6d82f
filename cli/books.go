package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	bookGenre  string
	bookFormat string
	bookSort   string
	bookPage   int
	bookLimit  int
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Browse the catalogue",
}

var booksSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search books by title, author, or description",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if len(args) == 1 {
			q.Set("search", args[0])
		}
		if bookGenre != "" {
			q.Set("genre", bookGenre)
		}
		if bookFormat != "" {
			q.Set("format", bookFormat)
		}
		if bookSort != "" {
			q.Set("sortBy", bookSort)
		}
		q.Set("page", strconv.Itoa(bookPage))
		q.Set("limit", strconv.Itoa(bookLimit))

		client, err := newAPIClient(false)
		if err != nil {
			return err
		}
		var res models.PaginatedBooksResponse
		if err := client.do(http.MethodGet, "/api/books?"+q.Encode(), nil, &res); err != nil {
			printError("Search failed: " + err.Error())
			return err
		}
		if len(res.Books) == 0 {
			fmt.Println("No books found")
			return nil
		}

		p := res.Pagination
		fmt.Printf("Found %s book(s), page %d of %d:\n\n", humanize.Comma(int64(p.TotalBooks)), p.CurrentPage, p.TotalPages)
		for i, b := range res.Books {
			printBookSummary((p.CurrentPage-1)*bookLimit+i+1, b)
		}
		if p.HasNext {
			fmt.Printf("More results: add --page %d\n", p.CurrentPage+1)
		}
		return nil
	},
}

var booksShowCmd = &cobra.Command{
	Use:   "show [book-id]",
	Short: "Show a book and similar titles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(false)
		if err != nil {
			return err
		}
		var res struct {
			Book    models.Book   `json:"book"`
			Similar []models.Book `json:"similarBooks"`
		}
		if err := client.do(http.MethodGet, "/api/books/"+url.PathEscape(args[0]), nil, &res); err != nil {
			printError(err.Error())
			return err
		}

		b := res.Book
		fmt.Printf("%s\nby %s\n\n", b.Title, b.Author)
		if b.Description != "" {
			fmt.Println(b.Description)
			fmt.Println()
		}
		fmt.Printf("Genres: %s\n", strings.Join(b.Genres, ", "))
		fmt.Printf("Pages: %s\n", humanize.Comma(int64(b.Pages)))
		fmt.Printf("Rating: %.1f (%s ratings)\n", b.Community.AverageRating, humanize.Comma(int64(b.Community.TotalRatings)))
		printFormats(b.Format)

		if len(res.Similar) > 0 {
			fmt.Println("\nReaders also liked:")
			for _, s := range res.Similar {
				fmt.Printf("  - %s by %s (%s)\n", s.Title, s.Author, s.ID)
			}
		}
		return nil
	},
}

func printBookSummary(n int, b models.Book) {
	fmt.Printf("%d. %s by %s\n", n, b.Title, b.Author)
	fmt.Printf("   ID: %s\n", b.ID)
	if len(b.Genres) > 0 {
		fmt.Printf("   Genres: %s\n", strings.Join(b.Genres, ", "))
	}
	fmt.Printf("   From %s%s", currency(), b.Format.LowestPrice().StringFixed(2))
	if b.Community.TotalRatings > 0 {
		fmt.Printf("  ★ %.1f", b.Community.AverageRating)
	}
	fmt.Println()
	fmt.Println()
}

func printFormats(f models.Formats) {
	fmt.Println("Formats:")
	for _, o := range []struct {
		name  string
		offer models.FormatOffer
	}{{"physical", f.Physical}, {"ebook", f.Ebook}, {"audiobook", f.Audiobook}} {
		if !o.offer.Available {
			continue
		}
		line := fmt.Sprintf("  %-10s %s%s", o.name, currency(), o.offer.Price.StringFixed(2))
		if o.name == "physical" {
			line += fmt.Sprintf("  (%d in stock)", o.offer.Stock)
		}
		fmt.Println(line)
	}
}

func init() {
	booksSearchCmd.Flags().StringVar(&bookGenre, "genre", "", "Only books in this genre")
	booksSearchCmd.Flags().StringVar(&bookFormat, "format", "", "physical, ebook or audiobook")
	booksSearchCmd.Flags().StringVar(&bookSort, "sort", "", "title, author, price, rating, publication_date or created_at")
	booksSearchCmd.Flags().IntVar(&bookPage, "page", 1, "Result page")
	booksSearchCmd.Flags().IntVar(&bookLimit, "limit", 12, "Results per page")

	booksCmd.AddCommand(booksSearchCmd)
	booksCmd.AddCommand(booksShowCmd)
}
