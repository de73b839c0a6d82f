package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices are JSON numbers on the wire
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	FormatPhysical  = "physical"
	FormatEbook     = "ebook"
	FormatAudiobook = "audiobook"
)

type FormatOffer struct {
	Available bool            `json:"available"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock,omitempty"`
}

type Formats struct {
	Physical  FormatOffer `json:"physical"`
	Ebook     FormatOffer `json:"ebook"`
	Audiobook FormatOffer `json:"audiobook"`
}

// Offer returns the offer for a format name.
func (f Formats) Offer(format string) (FormatOffer, bool) {
	switch format {
	case FormatPhysical:
		return f.Physical, true
	case FormatEbook:
		return f.Ebook, true
	case FormatAudiobook:
		return f.Audiobook, true
	}
	return FormatOffer{}, false
}

// LowestPrice is the cheapest available format price, zero when nothing is on sale.
func (f Formats) LowestPrice() decimal.Decimal {
	var lowest decimal.Decimal
	found := false
	for _, o := range []FormatOffer{f.Physical, f.Ebook, f.Audiobook} {
		if !o.Available {
			continue
		}
		if !found || o.Price.LessThan(lowest) {
			lowest = o.Price
			found = true
		}
	}
	return lowest
}

type Community struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
	TotalReviews  int     `json:"totalReviews"`
}

type Book struct {
	ID              string    `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	Description     string    `json:"description" db:"description"`
	Genres          []string  `json:"genres" db:"genres"`
	ISBN            string    `json:"isbn,omitempty" db:"isbn"`
	Pages           int       `json:"pages" db:"pages"`
	Status          string    `json:"status" db:"status"`
	Format          Formats   `json:"format"`
	Community       Community `json:"community"`
	IsFeatured      bool      `json:"isFeatured" db:"is_featured"`
	IsBestseller    bool      `json:"isBestseller" db:"is_bestseller"`
	PublicationDate string    `json:"publicationDate,omitempty" db:"publication_date"`
	CoverURL        string    `json:"coverUrl,omitempty" db:"cover_url"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

type CreateBookRequest struct {
	Title           string   `json:"title" binding:"required,max=300"`
	Author          string   `json:"author" binding:"required,max=200"`
	Description     string   `json:"description"`
	Genres          []string `json:"genres"`
	ISBN            string   `json:"isbn"`
	Pages           int      `json:"pages" binding:"min=0"`
	Format          Formats  `json:"format"`
	IsFeatured      bool     `json:"isFeatured"`
	IsBestseller    bool     `json:"isBestseller"`
	PublicationDate string   `json:"publicationDate"`
	CoverURL        string   `json:"coverUrl"`
}

type RateBookRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review" binding:"omitempty,max=5000"`
}

type RatingResult struct {
	NewAverageRating float64 `json:"newAverageRating"`
	TotalRatings     int     `json:"totalRatings"`
	TotalReviews     int     `json:"totalReviews"`
}

type PaginationMeta struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalBooks  int  `json:"totalBooks"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type PaginatedBooksResponse struct {
	Books      []Book         `json:"books"`
	Pagination PaginationMeta `json:"pagination"`
}
