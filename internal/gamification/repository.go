package gamification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/google/uuid"
)

var ErrUserNotFound = apierr.NotFound("User not found")

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Stats is the persisted gamification state of one reader.
type Stats struct {
	Ledger         Ledger
	Streak         StreakState
	BooksRead      int
	PagesRead      int
	ReadingMinutes int
}

func (s Stats) progress(distinctGenres int) Progress {
	return Progress{
		BooksRead:      s.BooksRead,
		PagesRead:      s.PagesRead,
		CurrentStreak:  s.Streak.Current,
		LongestStreak:  s.Streak.Longest,
		DistinctGenres: distinctGenres,
	}
}

func ensureStats(ctx context.Context, q queryer, userID string) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO reader_stats (user_id) VALUES (?)`, userID); err != nil {
		return fmt.Errorf("create reader stats: %w", err)
	}
	return nil
}

func loadStats(ctx context.Context, q queryer, userID string) (Stats, error) {
	if err := ensureStats(ctx, q, userID); err != nil {
		return Stats{}, err
	}
	var s Stats
	var last sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT reading_points, social_points, challenge_points, redeemed_points,
		       current_streak, longest_streak, last_reading_date,
		       total_books_read, total_pages_read, reading_minutes
		FROM reader_stats WHERE user_id = ?`, userID).
		Scan(&s.Ledger.Reading, &s.Ledger.Social, &s.Ledger.Challenge, &s.Ledger.Redeemed,
			&s.Streak.Current, &s.Streak.Longest, &last,
			&s.BooksRead, &s.PagesRead, &s.ReadingMinutes)
	if err != nil {
		return Stats{}, fmt.Errorf("load reader stats: %w", err)
	}
	if last.Valid && last.String != "" {
		day, err := time.Parse(time.DateOnly, last.String)
		if err != nil {
			return Stats{}, fmt.Errorf("parse last reading date %q: %w", last.String, err)
		}
		s.Streak.LastReadingDate = &day
	}
	return s, nil
}

func saveStats(ctx context.Context, q queryer, userID string, s Stats) error {
	var last interface{}
	if s.Streak.LastReadingDate != nil {
		last = s.Streak.LastReadingDate.UTC().Format(time.DateOnly)
	}
	_, err := q.ExecContext(ctx, `
		UPDATE reader_stats SET
			reading_points = ?, social_points = ?, challenge_points = ?, redeemed_points = ?,
			current_streak = ?, longest_streak = ?, last_reading_date = ?,
			total_books_read = ?, total_pages_read = ?, reading_minutes = ?
		WHERE user_id = ?`,
		s.Ledger.Reading, s.Ledger.Social, s.Ledger.Challenge, s.Ledger.Redeemed,
		s.Streak.Current, s.Streak.Longest, last,
		s.BooksRead, s.PagesRead, s.ReadingMinutes, userID)
	if err != nil {
		return fmt.Errorf("save reader stats: %w", err)
	}
	return nil
}

func listBadges(ctx context.Context, q queryer, userID string) ([]Badge, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, COALESCE(description, ''), COALESCE(icon, ''), earned_at
		FROM badges WHERE user_id = ? ORDER BY earned_at, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	badges := []Badge{}
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.Name, &b.Description, &b.Icon, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// insertBadge reports false when the reader already holds the badge.
func insertBadge(ctx context.Context, q queryer, userID string, def BadgeDefinition, at time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO badges (user_id, name, description, icon, earned_at)
		VALUES (?, ?, ?, ?, ?)`, userID, def.Name, def.Description, def.Icon, at.UTC())
	if err != nil {
		return false, fmt.Errorf("insert badge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// recordCompletion reports whether this is the first time userID completed bookID.
func recordCompletion(ctx context.Context, q queryer, userID, bookID string, at time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO completions (user_id, book_id, completed_at) VALUES (?, ?, ?)`,
		userID, bookID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("record completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record completion: %w", err)
	}
	return n == 1, nil
}

func distinctCompletedGenres(ctx context.Context, q queryer, userID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT LOWER(g.value))
		FROM library l
		JOIN books b ON b.id = l.book_id, json_each(b.genres) g
		WHERE l.user_id = ? AND l.shelf = 'completed'`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count genres: %w", err)
	}
	return n, nil
}

func insertRedemption(ctx context.Context, q queryer, userID string, amount int, reward string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO redemptions (id, user_id, amount, reward) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), userID, amount, reward)
	if err != nil {
		return fmt.Errorf("record redemption: %w", err)
	}
	return nil
}
