package user

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
)

var (
	ErrNotOnShelf   = apierr.NotFound("Book is not on this shelf")
	ErrSelfFollow   = apierr.Validation("Cannot follow yourself")
	ErrNotFollowing = apierr.NotFound("Not following this user")
	ErrInvalidShelf = apierr.Validation("Invalid action: must be one of owned, wishlist, reading, completed")
	errUserNotFound = apierr.NotFound("User not found")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpdateProfile applies the non-nil fields of req.
func (r *Repository) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error {
	sets := []string{}
	args := []interface{}{}
	if req.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, strings.TrimSpace(*req.FirstName))
	}
	if req.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, strings.TrimSpace(*req.LastName))
	}
	if req.Bio != nil {
		sets = append(sets, "bio = ?")
		args = append(args, strings.TrimSpace(*req.Bio))
	}
	if req.FavoriteGenres != nil {
		genres, err := json.Marshal(normalizeGenres(req.FavoriteGenres))
		if err != nil {
			return fmt.Errorf("encode genres: %w", err)
		}
		sets = append(sets, "favorite_genres = ?")
		args = append(args, string(genres))
	}
	if req.ReadingSpeed != nil {
		sets = append(sets, "reading_speed = ?")
		args = append(args, *req.ReadingSpeed)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, userID)
	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errUserNotFound
	}
	return nil
}

func normalizeGenres(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if g == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	return out
}

type shelfEntry struct {
	BookID    string
	Shelf     string
	UpdatedAt time.Time
}

func (r *Repository) entries(ctx context.Context, userID string) ([]shelfEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT book_id, shelf, updated_at FROM library WHERE user_id = ? ORDER BY updated_at DESC, book_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query library: %w", err)
	}
	defer rows.Close()

	var out []shelfEntry
	for rows.Next() {
		var e shelfEntry
		if err := rows.Scan(&e.BookID, &e.Shelf, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PlaceOnShelf moves a book onto exactly one shelf.
func (r *Repository) PlaceOnShelf(ctx context.Context, userID, bookID, shelf string, now time.Time) error {
	return placeOnShelf(ctx, r.db, userID, bookID, shelf, now)
}

// PlaceOnShelfTx is PlaceOnShelf inside a caller's transaction.
func (r *Repository) PlaceOnShelfTx(ctx context.Context, tx *sql.Tx, userID, bookID, shelf string, now time.Time) error {
	return placeOnShelf(ctx, tx, userID, bookID, shelf, now)
}

func placeOnShelf(ctx context.Context, q execer, userID, bookID, shelf string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO library (user_id, book_id, shelf, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, book_id) DO UPDATE SET shelf = excluded.shelf, updated_at = excluded.updated_at`,
		userID, bookID, shelf, now.UTC())
	if err != nil {
		return fmt.Errorf("place on shelf: %w", err)
	}
	return nil
}

func (r *Repository) RemoveFromShelf(ctx context.Context, userID, bookID, shelf string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM library WHERE user_id = ? AND book_id = ? AND shelf = ?`, userID, bookID, shelf)
	if err != nil {
		return fmt.Errorf("remove from shelf: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotOnShelf
	}
	return nil
}

func (r *Repository) ShelfCounts(ctx context.Context, userID string) (map[string]int, error) {
	counts := make(map[string]int, len(models.Shelves))
	for _, s := range models.Shelves {
		counts[s] = 0
	}
	rows, err := r.db.QueryContext(ctx, `SELECT shelf, COUNT(*) FROM library WHERE user_id = ? GROUP BY shelf`, userID)
	if err != nil {
		return nil, fmt.Errorf("count shelves: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var shelf string
		var n int
		if err := rows.Scan(&shelf, &n); err != nil {
			return nil, fmt.Errorf("scan shelf count: %w", err)
		}
		counts[shelf] = n
	}
	return counts, rows.Err()
}

func (r *Repository) userExists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ? AND is_active = 1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return true, nil
}

// Follow returns false when the follow already existed.
func (r *Repository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, ErrSelfFollow
	}
	ok, err := r.userExists(ctx, followeeID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errUserNotFound
	}
	res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO follows (follower_id, followee_id) VALUES (?, ?)`, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("follow: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFollowing
	}
	return nil
}

type Connection struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Connections lists followers and followed readers.
func (r *Repository) Connections(ctx context.Context, userID string) (followers, following []Connection, err error) {
	followers, err = r.connections(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name FROM follows f
		JOIN users u ON u.id = f.follower_id WHERE f.followee_id = ? ORDER BY u.username`, userID)
	if err != nil {
		return nil, nil, err
	}
	following, err = r.connections(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name FROM follows f
		JOIN users u ON u.id = f.followee_id WHERE f.follower_id = ? ORDER BY u.username`, userID)
	if err != nil {
		return nil, nil, err
	}
	return followers, following, nil
}

func (r *Repository) connections(ctx context.Context, query, userID string) ([]Connection, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()
	out := []Connection{}
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.ID, &c.Username, &c.FirstName, &c.LastName); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
