package book

import (
	"strings"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// ListQuery is the catalog filter/sort/pagination request.
type ListQuery struct {
	Page      int      `form:"page,default=1" binding:"min=1"`
	Limit     int      `form:"limit,default=12" binding:"min=1,max=100"`
	Genre     string   `form:"genre" binding:"omitempty,max=40"`
	Search    string   `form:"search" binding:"omitempty,max=200"`
	SortBy    string   `form:"sortBy,default=title" binding:"oneof=title author price rating publication_date created_at"`
	SortOrder string   `form:"sortOrder,default=asc" binding:"oneof=asc desc"`
	MinPrice  *float64 `form:"minPrice" binding:"omitempty,min=0"`
	MaxPrice  *float64 `form:"maxPrice" binding:"omitempty,min=0"`
	Format    string   `form:"format" binding:"omitempty,oneof=physical ebook audiobook"`
}

// Normalize fills defaults for zero values and checks cross-field constraints.
func (q *ListQuery) Normalize() error {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "title"
	}
	if q.SortOrder == "" {
		q.SortOrder = "asc"
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	q.Search = strings.TrimSpace(q.Search)
	q.Genre = strings.TrimSpace(q.Genre)

	if q.Page < 1 || q.Limit < 1 || q.Limit > MaxLimit {
		return apierr.Validation("page must be positive and limit between 1 and 100")
	}
	if _, ok := sortColumns[q.SortBy]; !ok {
		return apierr.Validation("Unsupported sortBy value")
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return apierr.Validation("sortOrder must be asc or desc")
	}
	if q.Format != "" {
		if _, ok := priceColumns[q.Format]; !ok {
			return apierr.Validation("Unsupported format")
		}
	}
	if (q.MinPrice != nil && *q.MinPrice < 0) || (q.MaxPrice != nil && *q.MaxPrice < 0) {
		return apierr.Validation("Price bounds must not be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return apierr.Validation("minPrice must not exceed maxPrice")
	}
	return nil
}

var priceColumns = map[string]string{
	models.FormatPhysical:  "physical_price",
	models.FormatEbook:     "ebook_price",
	models.FormatAudiobook: "audiobook_price",
}

const averageRatingExpr = `(CASE WHEN rating_count = 0 THEN 0 ELSE CAST(rating_sum AS REAL) / rating_count END)`

var sortColumns = map[string]string{
	"title":            "title COLLATE NOCASE",
	"author":           "author COLLATE NOCASE",
	"price":            "CAST(physical_price AS REAL)",
	"rating":           averageRatingExpr,
	"publication_date": "publication_date",
	"created_at":       "created_at",
}

func (q ListQuery) priceColumn() string {
	if col, ok := priceColumns[q.Format]; ok {
		return col
	}
	return priceColumns[models.FormatPhysical]
}

// where builds the conjunctive filter clause; only published books are listed.
func (q ListQuery) where() (string, []interface{}) {
	clause := ` WHERE status = 'published'`
	args := []interface{}{}

	if q.Genre != "" {
		clause += ` AND EXISTS (SELECT 1 FROM json_each(books.genres) WHERE LOWER(json_each.value) = LOWER(?))`
		args = append(args, q.Genre)
	}

	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		clause += ` AND (title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern)
	}

	if q.Format != "" {
		clause += ` AND ` + q.Format + `_available = 1`
	}

	price := `CAST(` + q.priceColumn() + ` AS REAL)`
	if q.MinPrice != nil {
		clause += ` AND ` + price + ` >= ?`
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		clause += ` AND ` + price + ` <= ?`
		args = append(args, *q.MaxPrice)
	}

	return clause, args
}

func (q ListQuery) orderBy() string {
	expr := sortColumns[q.SortBy]
	if q.SortBy == "price" {
		expr = `CAST(` + q.priceColumn() + ` AS REAL)`
	}
	return ` ORDER BY ` + expr + ` ` + strings.ToUpper(q.SortOrder) + `, id ASC`
}

// pastEnd reports whether the requested page starts beyond the last of total
// rows. It compares page numbers so huge pages cannot overflow an offset.
func (q ListQuery) pastEnd(total int) bool {
	lastPage := (total + q.Limit - 1) / q.Limit
	return q.Page-1 >= lastPage
}

func (q ListQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Paginate derives pagination metadata. Pages past the end are valid and simply empty.
func Paginate(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return models.PaginationMeta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalBooks:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}
