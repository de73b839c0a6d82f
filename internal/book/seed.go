package book

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type seedOffer struct {
	Price string `yaml:"price"`
	Stock int    `yaml:"stock"`
}

type seedEntry struct {
	Title           string     `yaml:"title"`
	Author          string     `yaml:"author"`
	Description     string     `yaml:"description"`
	Genres          []string   `yaml:"genres"`
	ISBN            string     `yaml:"isbn"`
	Pages           int        `yaml:"pages"`
	Physical        *seedOffer `yaml:"physical"`
	Ebook           *seedOffer `yaml:"ebook"`
	Audiobook       *seedOffer `yaml:"audiobook"`
	Featured        bool       `yaml:"featured"`
	Bestseller      bool       `yaml:"bestseller"`
	PublicationDate string     `yaml:"publication_date"`
	CoverURL        string     `yaml:"cover_url"`
}

type seedFile struct {
	Books []seedEntry `yaml:"books"`
}

// LoadCatalogue parses a YAML catalogue of the form {books: [...]}. A format
// is available exactly when it is listed.
func LoadCatalogue(r io.Reader) ([]models.CreateBookRequest, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	out := make([]models.CreateBookRequest, 0, len(f.Books))
	for i, e := range f.Books {
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Author) == "" {
			return nil, fmt.Errorf("catalogue entry %d: title and author are required", i+1)
		}
		req := models.CreateBookRequest{
			Title:           strings.TrimSpace(e.Title),
			Author:          strings.TrimSpace(e.Author),
			Description:     e.Description,
			Genres:          e.Genres,
			ISBN:            e.ISBN,
			Pages:           e.Pages,
			IsFeatured:      e.Featured,
			IsBestseller:    e.Bestseller,
			PublicationDate: e.PublicationDate,
			CoverURL:        e.CoverURL,
		}
		var err error
		if req.Format.Physical, err = toOffer(e.Physical); err != nil {
			return nil, fmt.Errorf("%q physical: %w", e.Title, err)
		}
		if req.Format.Ebook, err = toOffer(e.Ebook); err != nil {
			return nil, fmt.Errorf("%q ebook: %w", e.Title, err)
		}
		if req.Format.Audiobook, err = toOffer(e.Audiobook); err != nil {
			return nil, fmt.Errorf("%q audiobook: %w", e.Title, err)
		}
		out = append(out, req)
	}
	return out, nil
}

func toOffer(o *seedOffer) (models.FormatOffer, error) {
	if o == nil {
		return models.FormatOffer{}, nil
	}
	price, err := decimal.NewFromString(strings.TrimSpace(o.Price))
	if err != nil {
		return models.FormatOffer{}, fmt.Errorf("invalid price %q", o.Price)
	}
	if price.IsNegative() || o.Stock < 0 {
		return models.FormatOffer{}, errors.New("price and stock must be non-negative")
	}
	return models.FormatOffer{Available: true, Price: price, Stock: o.Stock}, nil
}

// Seed inserts every entry whose title and author are not already catalogued
// and reports how many were added.
func (r *Repository) Seed(ctx context.Context, reqs []models.CreateBookRequest) (int, error) {
	added := 0
	for _, req := range reqs {
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM books WHERE title = ? COLLATE NOCASE AND author = ? COLLATE NOCASE)`,
			req.Title, req.Author).Scan(&exists)
		if err != nil {
			return added, fmt.Errorf("check %q: %w", req.Title, err)
		}
		if exists {
			continue
		}
		if _, err := r.Create(ctx, req); err != nil {
			return added, fmt.Errorf("seed %q: %w", req.Title, err)
		}
		added++
	}
	return added, nil
}
