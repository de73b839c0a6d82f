package recommendation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/book"
	"github.com/binhbb2204/litverse/internal/recommendation"
	"github.com/binhbb2204/litverse/pkg/config"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const llmReply = "Here you go:\n```json\n" + `[
  {"title": "Dune", "author": "Frank Herbert", "reason": "Epic world building", "readingTime": "10 hours", "moodMatch": "Adventurous"},
  {"title": "A Book Nobody Stocks", "author": "Ghost Writer", "reason": "Obscure"},
  {"title": "emma", "author": "Austen", "reason": "Sharp social comedy"}
]` + "\n```"

type fakeLLM struct {
	calls  atomic.Int32
	status int
	reply  string
	delay  time.Duration
}

func (f *fakeLLM) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"role": "assistant", "content": f.reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupDB(t *testing.T) *book.Repository {
	t.Helper()
	logger.Init(logger.ERROR, false, nil)
	metrics.Reset()
	if err := database.InitDatabase(t.TempDir() + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	_, err := database.DB.Exec(`INSERT INTO users (id, username, email, password_hash, favorite_genres, reading_speed)
		VALUES ('alice', 'alice', 'alice@example.com', 'x', '["Science Fiction"]', 250)`)
	require.NoError(t, err)

	repo := book.NewRepository(database.DB)
	for _, b := range []struct {
		title, author string
		pages         int
	}{{"Dune", "Frank Herbert", 600}, {"Emma", "Jane Austen", 480}} {
		_, err := repo.Create(context.Background(), models.CreateBookRequest{
			Title: b.title, Author: b.author, Pages: b.pages,
			Format: models.Formats{Ebook: models.FormatOffer{Available: true, Price: decimal.RequireFromString("7.99")}},
		})
		require.NoError(t, err)
	}
	return repo
}

func llmService(t *testing.T, books *book.Repository, f *fakeLLM, timeout time.Duration) *recommendation.Service {
	t.Helper()
	srv := f.server(t)
	client := recommendation.NewOpenAIClient(srv.URL+"/v1", "test-key", "gpt-4", 5*time.Second)
	primary := recommendation.NewLLMBackedProvider(client, recommendation.NewCircuitBreaker(3, time.Minute))
	return recommendation.NewService(database.DB, books, primary, nil, timeout, time.Minute)
}

func TestForUser_ResolvesAgainstCatalogAndDropsUnknown(t *testing.T) {
	books := setupDB(t)
	f := &fakeLLM{reply: llmReply}
	svc := llmService(t, books, f, time.Second)

	res, err := svc.ForUser(context.Background(), "alice", "adventurous", "")
	require.NoError(t, err)
	assert.Equal(t, recommendation.SourceLLM, res.Source)
	assert.Equal(t, 1, res.Unresolved)
	require.Len(t, res.Recommendations, 2)

	dune := res.Recommendations[0]
	assert.Equal(t, "Dune", dune.Title)
	assert.NotEmpty(t, dune.BookID)
	assert.Equal(t, "10 hours", dune.EstimatedReadingTime)
	require.NotNil(t, dune.Price)
	assert.Equal(t, "7.99", dune.Price.String())
	assert.Equal(t, "Emma", res.Recommendations[1].Title)

	assert.Equal(t, int64(1), metrics.GetRecommendations())
	assert.Equal(t, int64(0), metrics.GetRecommendationFallbacks())
}

func TestForUser_CachesLLMAnswers(t *testing.T) {
	books := setupDB(t)
	f := &fakeLLM{reply: llmReply}
	svc := llmService(t, books, f, time.Second)

	_, err := svc.ForUser(context.Background(), "alice", "calm", "")
	require.NoError(t, err)
	_, err = svc.ForUser(context.Background(), "alice", "Calm", "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestForUser_FallsBackOnUpstreamFailure(t *testing.T) {
	books := setupDB(t)
	cases := map[string]*fakeLLM{
		"server error":  {status: http.StatusInternalServerError},
		"not json":      {reply: "I would suggest reading more."},
		"malformed":     {reply: `[{"title": "Dune",]`},
		"slow upstream": {reply: llmReply, delay: 300 * time.Millisecond},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			svc := llmService(t, books, f, 100*time.Millisecond)
			res, err := svc.ForUser(context.Background(), "alice", "", "")
			require.NoError(t, err)
			assert.Equal(t, recommendation.SourceFallback, res.Source)
			assert.Len(t, res.Recommendations, recommendation.MaxRecommendations)
			assert.Equal(t, 0, res.Unresolved)
		})
	}
}

func TestNewServiceFromConfig_PlaceholderKeyUsesFallback(t *testing.T) {
	books := setupDB(t)
	cfg := config.Default().AI
	cfg.APIKey = "your-openai-api-key-here"
	svc := recommendation.NewServiceFromConfig(cfg, database.DB, books)

	res, err := svc.ForUser(context.Background(), "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, recommendation.SourceFallback, res.Source)
	assert.Equal(t, "The Great Gatsby", res.Recommendations[0].Title)
	assert.Equal(t, int64(1), metrics.GetRecommendationFallbacks())
}

func TestForUser_UnknownUser(t *testing.T) {
	books := setupDB(t)
	svc := recommendation.NewService(database.DB, books, nil, nil, time.Second, 0)
	_, err := svc.ForUser(context.Background(), "ghost", "", "")
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestForUser_CorruptGenresAreLoggedNotFatal(t *testing.T) {
	books := setupDB(t)
	var logs bytes.Buffer
	logger.Init(logger.WARN, true, &logs)

	dune, err := books.FindByTitleAuthor(context.Background(), "Dune", "Frank Herbert")
	require.NoError(t, err)
	_, err = database.DB.Exec(`UPDATE users SET favorite_genres = 'not json' WHERE id = 'alice'`)
	require.NoError(t, err)
	_, err = database.DB.Exec(`UPDATE books SET genres = '{broken' WHERE id = ?`, dune.ID)
	require.NoError(t, err)
	_, err = database.DB.Exec(`INSERT INTO library (user_id, book_id, shelf) VALUES ('alice', ?, 'completed')`, dune.ID)
	require.NoError(t, err)

	svc := recommendation.NewService(database.DB, books, nil, nil, time.Second, 0)
	res, err := svc.ForUser(context.Background(), "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, recommendation.SourceFallback, res.Source)

	out := logs.String()
	assert.Contains(t, out, "profile_genres_decode_failed")
	assert.Contains(t, out, "recent_book_genres_decode_failed")
	assert.Contains(t, out, `"level":"warn"`)
}

func TestForMood_Validation(t *testing.T) {
	books := setupDB(t)
	svc := recommendation.NewService(database.DB, books, nil, nil, time.Second, 0)

	_, err := svc.ForMood(context.Background(), "  ", 5)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	_, err = svc.ForMood(context.Background(), "happy", 0)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))

	res, err := svc.ForMood(context.Background(), "happy", 2)
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 2)
}

func TestParseSuggestions(t *testing.T) {
	got, err := recommendation.ParseSuggestions(llmReply)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = recommendation.ParseSuggestions("no array here")
	assert.Error(t, err)

	got, err = recommendation.ParseSuggestions(`[{"title":"  "},{"title":"Kept","author":" A "}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Author)
}

func TestBuildPrompt(t *testing.T) {
	p := recommendation.BuildPrompt(recommendation.Request{
		Profile: &recommendation.Profile{
			FavoriteGenres: []string{"Fantasy", "Mystery"},
			ReadingSpeed:   300,
			RecentBooks:    []recommendation.RecentBook{{Title: "Emma", Author: "Jane Austen", Genres: []string{"Classic"}}},
		},
		Mood:  "cozy",
		Limit: 5,
	})
	assert.Contains(t, p, "Favorite Genres: Fantasy, Mystery")
	assert.Contains(t, p, "300 words per minute")
	assert.Contains(t, p, `"Emma" by Jane Austen (Classic)`)
	assert.Contains(t, p, "Context: General reading")

	mood := recommendation.BuildPrompt(recommendation.Request{Mood: "melancholy", Limit: 3})
	assert.Contains(t, mood, `Recommend 3 books that match the mood: "melancholy"`)
}

type failingGenerator struct{ calls int }

func (g *failingGenerator) GenerateText(context.Context, string, string) (string, error) {
	g.calls++
	return "", errors.New("connection refused")
}

func TestLLMBackedProvider_ErrorsAreUpstream(t *testing.T) {
	gen := &failingGenerator{}
	breaker := recommendation.NewCircuitBreaker(2, time.Hour)
	p := recommendation.NewLLMBackedProvider(gen, breaker)

	for i := 0; i < 3; i++ {
		_, err := p.Suggest(context.Background(), recommendation.Request{Mood: "x"})
		require.Error(t, err)
		assert.Equal(t, apierr.KindUpstreamUnavailable, apierr.KindOf(err))
	}
	assert.Equal(t, 2, gen.calls, "open breaker short-circuits the third call")
	assert.Equal(t, recommendation.StateOpen, breaker.State())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := recommendation.NewCircuitBreaker(1, 20*time.Millisecond)
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.ErrorIs(t, cb.Call(func() error { return nil }), recommendation.ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, recommendation.StateClosed, cb.State())

	cb.Call(func() error { return boom })
	time.Sleep(30 * time.Millisecond)
	assert.Error(t, cb.Call(func() error { return boom }))
	assert.Equal(t, recommendation.StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenAdmitsOneCall(t *testing.T) {
	cb := recommendation.NewCircuitBreaker(1, 20*time.Millisecond)
	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	time.Sleep(30 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Call(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	assert.Equal(t, recommendation.StateHalfOpen, cb.State())

	var extra atomic.Int32
	for i := 0; i < 5; i++ {
		err := cb.Call(func() error {
			extra.Add(1)
			return nil
		})
		assert.ErrorIs(t, err, recommendation.ErrCircuitOpen)
	}
	assert.Equal(t, int32(0), extra.Load())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, recommendation.StateClosed, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))
}

func TestHandler_MoodRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	books := setupDB(t)
	h := recommendation.NewHandler(recommendation.NewService(database.DB, books, nil, nil, time.Second, 0))
	r := gin.New()
	r.GET("/mood", h.MoodRecommendations)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mood", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Mood parameter is required"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mood?mood=happy&limit=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out recommendation.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out.Recommendations, 3)
	assert.Equal(t, recommendation.SourceFallback, out.Source)
}
