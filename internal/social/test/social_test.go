package social_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/binhbb2204/litverse/internal/gamification"
	"github.com/binhbb2204/litverse/internal/social"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clubEvents struct{ clubs []string }

func (p *clubEvents) PublishToClub(clubID, _ string, _ interface{}) {
	p.clubs = append(p.clubs, clubID)
}

type env struct {
	router *gin.Engine
	svc    *social.Service
	points *gamification.Service
	events *clubEvents
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init(logger.ERROR, false, nil)
	if err := database.InitDatabase(t.TempDir() + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := database.DB.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'x')`, u, u, u+"@example.com")
		require.NoError(t, err)
	}

	points := gamification.NewService(database.DB, nil)
	events := &clubEvents{}
	svc := social.NewService(social.NewRepository(database.DB), points, events)
	h := social.NewHandler(svc)

	r := gin.New()
	g := r.Group("/api/social", func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-Test-User"))
		c.Next()
	})
	g.GET("/book-clubs", h.ListClubs)
	g.POST("/book-clubs", h.CreateClub)
	g.GET("/book-clubs/:clubId", h.GetClub)
	g.POST("/book-clubs/:clubId/join", h.JoinClub)
	return &env{router: r, svc: svc, points: points, events: events}
}

func (e *env) do(t *testing.T, method, path, userID, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", userID)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func (e *env) create(t *testing.T, userID, name string, public bool) string {
	t.Helper()
	body := `{"name":"` + name + `","description":"We read things","isPublic":false}`
	if public {
		body = strings.Replace(body, "false", "true", 1)
	}
	code, out := e.do(t, http.MethodPost, "/api/social/book-clubs", userID, body)
	require.Equal(t, http.StatusCreated, code, out)
	club := out["bookClub"].(map[string]interface{})
	assert.Equal(t, float64(1), club["memberCount"])
	return club["id"].(string)
}

func TestCreateClub_Validation(t *testing.T) {
	e := setup(t)
	code, out := e.do(t, http.MethodPost, "/api/social/book-clubs", "alice", `{"name":"Only name"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotNil(t, out["details"])
}

func TestJoinClub_AwardsSocialPointsOnce(t *testing.T) {
	e := setup(t)
	id := e.create(t, "alice", "Sci-Fi Circle", true)

	code, out := e.do(t, http.MethodPost, "/api/social/book-clubs/"+id+"/join", "bob", "")
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, float64(gamification.ClubJoinBonus), out["pointsEarned"])
	assert.Equal(t, float64(2), out["bookClub"].(map[string]interface{})["memberCount"])
	assert.Equal(t, []string{id}, e.events.clubs)

	code, out = e.do(t, http.MethodPost, "/api/social/book-clubs/"+id+"/join", "bob", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Already a member of this club", out["error"])

	snap, err := e.points.Snapshot(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, gamification.ClubJoinBonus, snap.Stats.Ledger.Social)
}

func TestPrivateClub_HiddenFromOutsiders(t *testing.T) {
	e := setup(t)
	public := e.create(t, "alice", "Open Shelf", true)
	private := e.create(t, "alice", "Secret Shelf", false)

	code, out := e.do(t, http.MethodGet, "/api/social/book-clubs", "bob", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["total"])

	code, out = e.do(t, http.MethodGet, "/api/social/book-clubs", "alice", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), out["total"])

	code, _ = e.do(t, http.MethodGet, "/api/social/book-clubs/"+private, "bob", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(t, http.MethodPost, "/api/social/book-clubs/"+private+"/join", "bob", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = e.do(t, http.MethodGet, "/api/social/book-clubs/"+public, "bob", "")
	require.Equal(t, http.StatusOK, code)
	members := out["members"].([]interface{})
	require.Len(t, members, 1)
	assert.Equal(t, social.RoleAdmin, members[0].(map[string]interface{})["role"])
}

func TestCanJoinClub(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	public := e.create(t, "alice", "Open Shelf", true)
	private := e.create(t, "alice", "Secret Shelf", false)

	ok, err := e.svc.CanJoinClub(ctx, public, "carol")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.svc.CanJoinClub(ctx, private, "carol")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.svc.CanJoinClub(ctx, private, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.svc.CanJoinClub(ctx, "missing", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJoinMissingClub(t *testing.T) {
	e := setup(t)
	code, out := e.do(t, http.MethodPost, "/api/social/book-clubs/nope/join", "bob", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Book club not found", out["error"])
}
