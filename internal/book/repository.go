package book

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrBookNotFound = apierr.NotFound("Book not found")

const bookColumns = `id, title, author, description, genres, COALESCE(isbn, ''), pages, status,
	physical_available, physical_price, physical_stock,
	ebook_available, ebook_price, audiobook_available, audiobook_price,
	rating_sum, rating_count, review_count, is_featured, is_bestseller,
	publication_date, cover_url, created_at`

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(row rowScanner) (models.Book, error) {
	var b models.Book
	var genresJSON string
	var physPrice, ebookPrice, audioPrice string
	var ratingSum int
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Description, &genresJSON, &b.ISBN, &b.Pages, &b.Status,
		&b.Format.Physical.Available, &physPrice, &b.Format.Physical.Stock,
		&b.Format.Ebook.Available, &ebookPrice, &b.Format.Audiobook.Available, &audioPrice,
		&ratingSum, &b.Community.TotalRatings, &b.Community.TotalReviews, &b.IsFeatured, &b.IsBestseller,
		&b.PublicationDate, &b.CoverURL, &b.CreatedAt,
	)
	if err != nil {
		return b, err
	}
	if genresJSON != "" {
		if err := json.Unmarshal([]byte(genresJSON), &b.Genres); err != nil {
			return b, fmt.Errorf("decode genres of %s: %w", b.ID, err)
		}
	}
	if b.Genres == nil {
		b.Genres = []string{}
	}
	for _, p := range []struct {
		raw string
		dst *decimal.Decimal
	}{{physPrice, &b.Format.Physical.Price}, {ebookPrice, &b.Format.Ebook.Price}, {audioPrice, &b.Format.Audiobook.Price}} {
		d, err := decimal.NewFromString(p.raw)
		if err != nil {
			return b, fmt.Errorf("decode price of %s: %w", b.ID, err)
		}
		*p.dst = d
	}
	b.Community.AverageRating = AverageRating(ratingSum, b.Community.TotalRatings)
	return b, nil
}

// AverageRating derives the display average from the stored sum and count.
func AverageRating(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	avg, _ := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(count))).Round(2).Float64()
	return avg
}

func (r *Repository) queryBooks(ctx context.Context, query string, args ...interface{}) ([]models.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// List runs a catalog query. q must already be normalized.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Book, models.PaginationMeta, error) {
	where, args := q.where()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return nil, models.PaginationMeta{}, fmt.Errorf("count books: %w", err)
	}

	if q.pastEnd(total) {
		return []models.Book{}, Paginate(q.Page, q.Limit, total), nil
	}

	query := `SELECT ` + bookColumns + ` FROM books` + where + q.orderBy() + ` LIMIT ? OFFSET ?`
	books, err := r.queryBooks(ctx, query, append(args, q.Limit, q.offset())...)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return books, Paginate(q.Page, q.Limit, total), nil
}

func (r *Repository) Get(ctx context.Context, id string) (models.Book, error) {
	return getBook(ctx, r.db, id)
}

func getBook(ctx context.Context, q Execer, id string) (models.Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrBookNotFound
	}
	if err != nil {
		return b, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// GetTx reads a book inside a caller's transaction.
func (r *Repository) GetTx(ctx context.Context, tx *sql.Tx, id string) (models.Book, error) {
	return getBook(ctx, tx, id)
}

func (r *Repository) Featured(ctx context.Context) ([]models.Book, error) {
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books
		WHERE is_featured = 1 AND status = 'published'
		ORDER BY created_at DESC, id LIMIT 8`)
}

func (r *Repository) Bestsellers(ctx context.Context) ([]models.Book, error) {
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books
		WHERE is_bestseller = 1 AND status = 'published'
		ORDER BY `+averageRatingExpr+` DESC, id LIMIT 10`)
}

func (r *Repository) NewReleases(ctx context.Context, now time.Time) ([]models.Book, error) {
	since := now.UTC().AddDate(0, 0, -30)
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books
		WHERE status = 'published' AND created_at >= ?
		ORDER BY created_at DESC, id LIMIT 10`, since)
}

// Similar returns up to five other published books sharing at least one genre.
func (r *Repository) Similar(ctx context.Context, b models.Book) ([]models.Book, error) {
	if len(b.Genres) == 0 {
		return []models.Book{}, nil
	}
	genres, _ := json.Marshal(b.Genres)
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books
		WHERE id != ? AND status = 'published'
		  AND EXISTS (
			SELECT 1 FROM json_each(books.genres) g
			JOIN json_each(?) w ON LOWER(g.value) = LOWER(w.value))
		ORDER BY `+averageRatingExpr+` DESC, id LIMIT 5`, b.ID, string(genres))
}

// FindByTitleAuthor resolves a free-text title/author pair to a catalog entry.
func (r *Repository) FindByTitleAuthor(ctx context.Context, title, author string) (models.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return models.Book{}, ErrBookNotFound
	}
	query := `SELECT ` + bookColumns + ` FROM books WHERE status = 'published' AND title = ? COLLATE NOCASE`
	args := []interface{}{title}
	if author != "" {
		query += ` AND author LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(author)+"%")
	}
	books, err := r.queryBooks(ctx, query+` ORDER BY id LIMIT 1`, args...)
	if err != nil {
		return models.Book{}, err
	}
	if len(books) == 0 {
		return models.Book{}, ErrBookNotFound
	}
	return books[0], nil
}

func (r *Repository) Create(ctx context.Context, req models.CreateBookRequest) (models.Book, error) {
	id := uuid.NewString()
	genres := req.Genres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return models.Book{}, fmt.Errorf("encode genres: %w", err)
	}
	f := req.Format
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, description, genres, isbn, pages,
			physical_available, physical_price, physical_stock,
			ebook_available, ebook_price, audiobook_available, audiobook_price,
			is_featured, is_bestseller, publication_date, cover_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.Title, req.Author, req.Description, string(genresJSON), req.ISBN, req.Pages,
		f.Physical.Available, f.Physical.Price.String(), f.Physical.Stock,
		f.Ebook.Available, f.Ebook.Price.String(), f.Audiobook.Available, f.Audiobook.Price.String(),
		req.IsFeatured, req.IsBestseller, req.PublicationDate, req.CoverURL, time.Now().UTC())
	if err != nil {
		return models.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return r.Get(ctx, id)
}

// Rate records one rating as a single atomic accumulate, so concurrent raters never lose updates.
func (r *Repository) Rate(ctx context.Context, id string, rating int, review string) (models.RatingResult, error) {
	reviewed := 0
	if strings.TrimSpace(review) != "" {
		reviewed = 1
	}
	var sum, count, reviews int
	err := r.db.QueryRowContext(ctx, `
		UPDATE books SET rating_sum = rating_sum + ?, rating_count = rating_count + 1,
			review_count = review_count + ?
		WHERE id = ?
		RETURNING rating_sum, rating_count, review_count`, rating, reviewed, id).
		Scan(&sum, &count, &reviews)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RatingResult{}, ErrBookNotFound
	}
	if err != nil {
		return models.RatingResult{}, fmt.Errorf("rate book: %w", err)
	}
	return models.RatingResult{
		NewAverageRating: AverageRating(sum, count),
		TotalRatings:     count,
		TotalReviews:     reviews,
	}, nil
}

type Stats struct {
	TotalRatings  int             `json:"totalRatings"`
	AverageRating float64         `json:"averageRating"`
	TotalReviews  int             `json:"totalReviews"`
	ReadingGroups int             `json:"readingGroups"`
	UserShelves   int             `json:"userShelves"`
	Formats       map[string]bool `json:"formats"`
	ReadingTime   string          `json:"readingTime,omitempty"`
}

func (r *Repository) Stats(ctx context.Context, id string) (Stats, error) {
	b, err := r.Get(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		TotalRatings:  b.Community.TotalRatings,
		AverageRating: b.Community.AverageRating,
		TotalReviews:  b.Community.TotalReviews,
		Formats: map[string]bool{
			models.FormatPhysical:  b.Format.Physical.Available,
			models.FormatEbook:     b.Format.Ebook.Available,
			models.FormatAudiobook: b.Format.Audiobook.Available,
		},
		ReadingTime: EstimatedReadingTime(b.Pages, 0),
	}
	err = r.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM book_clubs WHERE current_book_id = ?),
		       (SELECT COUNT(*) FROM library WHERE book_id = ?)`, id, id).
		Scan(&st.ReadingGroups, &st.UserShelves)
	if err != nil {
		return Stats{}, fmt.Errorf("book stats: %w", err)
	}
	return st, nil
}

// EstimatedReadingTime renders pages at a words-per-minute reading speed, assuming
// 250 words per page. A non-positive speed means 200 wpm.
func EstimatedReadingTime(pages, wordsPerMinute int) string {
	if pages <= 0 {
		return ""
	}
	if wordsPerMinute <= 0 {
		wordsPerMinute = 200
	}
	minutes := pages * 250 / wordsPerMinute
	hours := (minutes + 30) / 60
	if hours < 1 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

// DecrementStock takes quantity physical copies inside tx. It reports false when
// fewer than quantity remain.
func DecrementStock(ctx context.Context, tx *sql.Tx, id string, quantity int) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE books SET physical_stock = physical_stock - ?
		WHERE id = ? AND physical_stock >= ?`, quantity, id, quantity)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
