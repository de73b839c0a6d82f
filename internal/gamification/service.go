package gamification

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/logger"
)

// EventNewAchievement is pushed to the reader's room for every badge earned.
const EventNewAchievement = "new-achievement"

// Publisher delivers server-side events to a reader's real-time room.
type Publisher interface {
	PublishToUser(userID, event string, data interface{})
}

type Service struct {
	db        *sql.DB
	publisher Publisher
	now       func() time.Time
}

func NewService(db *sql.DB, publisher Publisher) *Service {
	return &Service{db: db, publisher: publisher, now: time.Now}
}

// WithClock replaces the time source; used by tests and the CLI.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Outcome struct {
	Streak       StreakState `json:"streak"`
	PointsEarned int         `json:"pointsEarned"`
	Points       Points      `json:"points"`
	Level        Level       `json:"level"`
	NewBadges    []Badge     `json:"newBadges"`
}

// RecordReading applies a reading-progress event: streak, reading points and badges.
func (s *Service) RecordReading(ctx context.Context, userID string, pagesRead, minutes int) (*Outcome, error) {
	if minutes < 0 {
		return nil, apierr.Validation("Time spent must not be negative")
	}
	return s.update(ctx, userID, func(_ *sql.Tx, st *Stats, now time.Time) (int, error) {
		streak, earned, err := Advance(st.Streak, now, pagesRead)
		if err != nil {
			return 0, err
		}
		st.Streak = streak
		st.Ledger.Award(CategoryReading, earned)
		st.PagesRead += pagesRead
		st.ReadingMinutes += minutes
		return earned, nil
	})
}

// Shelve writes a library change inside the transaction that counts the completion.
type Shelve func(ctx context.Context, tx *sql.Tx) error

// CompleteBook runs shelve and, when this is the reader's first completion of
// bookID, counts the book's pages toward their totals. Both commit together.
// The outcome is nil when the book had been completed before.
func (s *Service) CompleteBook(ctx context.Context, userID, bookID string, pages int, shelve Shelve) (*Outcome, error) {
	if pages < 0 {
		pages = 0
	}
	first := false
	out, err := s.update(ctx, userID, func(tx *sql.Tx, st *Stats, now time.Time) (int, error) {
		if shelve != nil {
			if err := shelve(ctx, tx); err != nil {
				return 0, err
			}
		}
		var err error
		first, err = recordCompletion(ctx, tx, userID, bookID, now)
		if err != nil || !first {
			return 0, err
		}
		streak, _, err := Advance(st.Streak, now, 0)
		if err != nil {
			return 0, err
		}
		st.Streak = streak
		st.BooksRead++
		st.PagesRead += pages
		return 0, nil
	})
	if err != nil || !first {
		return nil, err
	}
	return out, nil
}

// JoinClub awards the social bonus for joining a book club.
func (s *Service) JoinClub(ctx context.Context, userID string) (*Outcome, error) {
	return s.update(ctx, userID, func(_ *sql.Tx, st *Stats, _ time.Time) (int, error) {
		st.Ledger.Award(CategorySocial, ClubJoinBonus)
		return ClubJoinBonus, nil
	})
}

func (s *Service) update(ctx context.Context, userID string, apply func(*sql.Tx, *Stats, time.Time) (int, error)) (*Outcome, error) {
	now := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	st, err := loadStats(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := apply(tx, &st, now)
	if err != nil {
		return nil, err
	}

	genres, err := distinctCompletedGenres(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := listBadges(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(owned))
	for _, b := range owned {
		have[b.Name] = true
	}

	newBadges := []Badge{}
	for _, def := range NewBadges(st.progress(genres), have) {
		inserted, err := insertBadge(ctx, tx, userID, def, now)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		st.Ledger.Award(CategoryChallenge, def.Points)
		newBadges = append(newBadges, Badge{Name: def.Name, Description: def.Description, Icon: def.Icon, EarnedAt: now.UTC()})
	}

	if err := saveStats(ctx, tx, userID, st); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	for _, b := range newBadges {
		logger.Info("badge_earned", "user_id", userID, "badge", b.Name)
		if s.publisher != nil {
			s.publisher.PublishToUser(userID, EventNewAchievement, map[string]interface{}{"userId": userID, "achievement": b})
		}
	}

	return &Outcome{
		Streak:       st.Streak,
		PointsEarned: earned,
		Points:       st.Ledger.Points(),
		Level:        LevelFor(st.Ledger.Total()),
		NewBadges:    newBadges,
	}, nil
}

type Snapshot struct {
	Stats  Stats
	Badges []Badge
}

func (s *Service) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	st, err := loadStats(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	badges, err := listBadges(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Stats: st, Badges: badges}, nil
}

// Redeem spends points and returns the remaining total.
func (s *Service) Redeem(ctx context.Context, userID string, amount int, reward string) (int, error) {
	reward = strings.TrimSpace(reward)
	if reward == "" {
		return 0, apierr.Validation("Reward type is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	st, err := loadStats(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if err := st.Ledger.Redeem(amount); err != nil {
		return 0, err
	}
	if err := insertRedemption(ctx, tx, userID, amount, reward); err != nil {
		return 0, err
	}
	if err := saveStats(ctx, tx, userID, st); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	logger.Info("points_redeemed", "user_id", userID, "amount", amount, "reward", reward)
	return st.Ledger.Total(), nil
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Value     int    `json:"value"`
	Level     Level  `json:"level"`
}

var leaderboardColumns = map[string]string{
	"points": "(COALESCE(s.reading_points,0) + COALESCE(s.social_points,0) + COALESCE(s.challenge_points,0) - COALESCE(s.redeemed_points,0))",
	"books":  "COALESCE(s.total_books_read,0)",
	"pages":  "COALESCE(s.total_pages_read,0)",
	"streak": "COALESCE(s.longest_streak,0)",
}

// Leaderboard ranks active readers by points, books, pages or streak.
func (s *Service) Leaderboard(ctx context.Context, kind string, limit int) ([]LeaderboardEntry, error) {
	valueExpr, ok := leaderboardColumns[kind]
	if !ok {
		return nil, apierr.Validation("Leaderboard type must be one of points, books, pages, streak")
	}
	if limit < 1 || limit > 100 {
		return nil, apierr.Validation("Limit must be between 1 and 100")
	}
	pointsExpr := leaderboardColumns["points"]

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name, `+valueExpr+`, `+pointsExpr+`
		FROM users u LEFT JOIN reader_stats s ON s.user_id = u.id
		WHERE u.is_active = 1
		ORDER BY 5 DESC, u.username ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		var total int
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.LastName, &e.Value, &total); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Rank = len(entries) + 1
		e.Level = LevelFor(total)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
