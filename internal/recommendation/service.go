package recommendation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/book"
	"github.com/binhbb2204/litverse/pkg/config"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	cacheSize       = 512
	resolveParallel = 4
	recentBookCount = 5
)

type Recommendation struct {
	Title                string           `json:"title"`
	Author               string           `json:"author"`
	Reason               string           `json:"reason"`
	EstimatedReadingTime string           `json:"estimatedReadingTime"`
	MoodMatch            string           `json:"moodMatch,omitempty"`
	BookID               string           `json:"bookId,omitempty"`
	CoverURL             string           `json:"coverUrl,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
}

// Result carries the provider that answered and how many suggested titles
// could not be matched to the catalog and were left out.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Source          string           `json:"source"`
	Unresolved      int              `json:"unresolved"`
}

type Service struct {
	db       *sql.DB
	books    *book.Repository
	primary  Provider
	fallback Provider
	timeout  time.Duration
	cache    *expirable.LRU[string, Result]
}

// NewService wires a primary provider (nil when no generator is configured) in
// front of the fallback.
func NewService(db *sql.DB, books *book.Repository, primary, fallback Provider, timeout, cacheTTL time.Duration) *Service {
	if fallback == nil {
		fallback = NewStaticFallbackProvider()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &Service{db: db, books: books, primary: primary, fallback: fallback, timeout: timeout}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, Result](cacheSize, nil, cacheTTL)
	}
	return s
}

// NewServiceFromConfig selects the LLM-backed provider only when an API key is configured.
func NewServiceFromConfig(cfg config.AIConfig, db *sql.DB, books *book.Repository) *Service {
	var primary Provider
	if cfg.Enabled() {
		client := NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
		primary = NewLLMBackedProvider(client, NewCircuitBreaker(3, time.Minute))
		logger.Info("recommendation_provider_selected", "provider", SourceLLM, "model", cfg.Model)
	} else {
		logger.Info("recommendation_provider_selected", "provider", SourceFallback)
	}
	return NewService(db, books, primary, NewStaticFallbackProvider(), cfg.Timeout, cfg.CacheTTL)
}

// ForUser recommends up to five books from the reader's genres, recent
// completions, mood and context.
func (s *Service) ForUser(ctx context.Context, userID, mood, readingContext string) (Result, error) {
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	req := Request{
		Profile: profile,
		Mood:    strings.TrimSpace(mood),
		Context: strings.TrimSpace(readingContext),
		Limit:   MaxRecommendations,
	}
	key := "user|" + userID + "|" + strings.ToLower(req.Mood) + "|" + strings.ToLower(req.Context)
	return s.run(ctx, key, req, profile.ReadingSpeed)
}

// ForMood recommends books for a mood without any reader profile.
func (s *Service) ForMood(ctx context.Context, mood string, limit int) (Result, error) {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return Result{}, apierr.Validation("Mood parameter is required")
	}
	if limit < 1 || limit > MaxRecommendations {
		return Result{}, apierr.Validation("Limit must be between 1 and 5")
	}
	key := "mood|" + strings.ToLower(mood) + "|" + strconv.Itoa(limit)
	return s.run(ctx, key, Request{Mood: mood, Limit: limit}, 0)
}

func (s *Service) run(ctx context.Context, key string, req Request, speed int) (Result, error) {
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			return res, nil
		}
	}

	if s.primary != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		suggestions, err := s.primary.Suggest(callCtx, req)
		cancel()
		if err == nil {
			recs, unresolved, err := s.resolve(ctx, suggestions, speed, req.Limit, true)
			if err != nil {
				return Result{}, err
			}
			res := Result{Recommendations: recs, Source: s.primary.Name(), Unresolved: unresolved}
			if s.cache != nil {
				s.cache.Add(key, res)
			}
			metrics.IncrementRecommendations(false)
			if unresolved > 0 {
				logger.Info("recommendations_unresolved", "count", unresolved, "returned", len(recs))
			}
			return res, nil
		}
		logger.Warn("recommendation_fallback", "provider", s.primary.Name(), "error", err)
	}

	suggestions, err := s.fallback.Suggest(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("fallback recommendations: %w", err)
	}
	recs, _, err := s.resolve(ctx, suggestions, speed, req.Limit, false)
	if err != nil {
		return Result{}, err
	}
	metrics.IncrementRecommendations(true)
	return Result{Recommendations: recs, Source: s.fallback.Name()}, nil
}

// resolve matches suggestions against the catalog concurrently, keeping the
// provider's order. Unmatched suggestions are dropped when drop is set.
func (s *Service) resolve(ctx context.Context, suggestions []Suggestion, speed, limit int, drop bool) ([]Recommendation, int, error) {
	resolved := make([]*Recommendation, len(suggestions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveParallel)
	for i, sg := range suggestions {
		g.Go(func() error {
			rec := Recommendation{
				Title:                sg.Title,
				Author:               sg.Author,
				Reason:               firstNonEmpty(sg.Reason, sg.MoodMatch),
				EstimatedReadingTime: sg.ReadingTime,
				MoodMatch:            sg.MoodMatch,
			}
			b, err := s.books.FindByTitleAuthor(gctx, sg.Title, sg.Author)
			if errors.Is(err, book.ErrBookNotFound) {
				if !drop {
					resolved[i] = &rec
				}
				return nil
			}
			if err != nil {
				return err
			}
			price := b.Format.LowestPrice()
			rec.BookID = b.ID
			rec.Title = b.Title
			rec.Author = b.Author
			rec.CoverURL = b.CoverURL
			rec.Price = &price
			if t := book.EstimatedReadingTime(b.Pages, speed); t != "" {
				rec.EstimatedReadingTime = t
			}
			resolved[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("resolve recommendations: %w", err)
	}

	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}
	out := make([]Recommendation, 0, limit)
	seen := make(map[string]bool)
	unresolved := 0
	for _, r := range resolved {
		if r == nil {
			unresolved++
			continue
		}
		if r.BookID != "" {
			if seen[r.BookID] {
				continue
			}
			seen[r.BookID] = true
		}
		if len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, unresolved, nil
}

func (s *Service) loadProfile(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	var genres string
	err := s.db.QueryRowContext(ctx, `SELECT favorite_genres, reading_speed FROM users WHERE id = ?`, userID).Scan(&genres, &p.ReadingSpeed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if err := json.Unmarshal([]byte(genres), &p.FavoriteGenres); err != nil {
		logger.Warn("profile_genres_decode_failed", "user_id", userID, "error", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.title, b.author, b.genres FROM library l JOIN books b ON b.id = l.book_id
		WHERE l.user_id = ? AND l.shelf = 'completed'
		ORDER BY l.updated_at DESC LIMIT ?`, userID, recentBookCount)
	if err != nil {
		return nil, fmt.Errorf("load recent books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rb RecentBook
		var g string
		if err := rows.Scan(&rb.Title, &rb.Author, &g); err != nil {
			return nil, fmt.Errorf("scan recent book: %w", err)
		}
		if err := json.Unmarshal([]byte(g), &rb.Genres); err != nil {
			logger.Warn("recent_book_genres_decode_failed", "user_id", userID, "title", rb.Title, "error", err)
		}
		p.RecentBooks = append(p.RecentBooks, rb)
	}
	return p, rows.Err()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
