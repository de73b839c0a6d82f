package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/binhbb2204/litverse/internal/auth"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/binhbb2204/litverse/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger.Init(logger.ERROR, false, nil)
	if err := database.InitDatabase(t.TempDir() + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	gin.SetMode(gin.TestMode)
	h := auth.NewHandler(secret)
	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	protected := router.Group("/auth")
	protected.Use(auth.AuthMiddleware(secret))
	protected.GET("/me", h.Me)
	protected.POST("/change-password", h.ChangePassword)
	return router
}

func do(router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterLoginMe(t *testing.T) {
	router := setupRouter(t)

	resp := do(router, "POST", "/auth/register", `{"username":"reader1","email":"Reader1@Example.com","password":"Passw0rdX","firstName":"Ada"}`, "")
	require.Equal(t, 201, resp.Code, resp.Body.String())
	var reg models.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "reader1@example.com", reg.User.Email)
	assert.Equal(t, "Ada", reg.User.FirstName)

	resp = do(router, "POST", "/auth/login", `{"email":"reader1@example.com","password":"Passw0rdX"}`, "")
	require.Equal(t, 200, resp.Code)
	var login models.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &login))

	resp = do(router, "GET", "/auth/me", "", login.Token)
	require.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"username":"reader1"`)
	assert.NotContains(t, resp.Body.String(), "password")
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	router := setupRouter(t)
	body := `{"username":"dup","email":"dup@example.com","password":"Passw0rdX"}`
	require.Equal(t, 201, do(router, "POST", "/auth/register", body, "").Code)

	resp := do(router, "POST", "/auth/register", body, "")
	assert.Equal(t, 400, resp.Code)
	assert.Contains(t, resp.Body.String(), "already exists")
}

func TestRegisterWeakPassword(t *testing.T) {
	router := setupRouter(t)
	resp := do(router, "POST", "/auth/register", `{"username":"weak","email":"weak@example.com","password":"password"}`, "")
	assert.Equal(t, 400, resp.Code)
	assert.Contains(t, resp.Body.String(), "Password too weak")
}

func TestLoginBadCredentials(t *testing.T) {
	router := setupRouter(t)
	require.Equal(t, 201, do(router, "POST", "/auth/register", `{"username":"bob","email":"bob@example.com","password":"Passw0rdX"}`, "").Code)

	assert.Equal(t, 401, do(router, "POST", "/auth/login", `{"username":"bob","password":"nope"}`, "").Code)
	assert.Equal(t, 401, do(router, "POST", "/auth/login", `{"username":"ghost","password":"Passw0rdX"}`, "").Code)
	assert.Equal(t, 400, do(router, "POST", "/auth/login", `{"password":"Passw0rdX"}`, "").Code)
}

func TestMiddlewareRejectsMissingAndExpiredTokens(t *testing.T) {
	router := setupRouter(t)

	resp := do(router, "GET", "/auth/me", "", "")
	assert.Equal(t, 401, resp.Code)
	assert.Contains(t, resp.Body.String(), "Access token required")

	expired, err := utils.GenerateJWTWithTTL("u1", "someone", secret, -time.Minute)
	require.NoError(t, err)
	resp = do(router, "GET", "/auth/me", "", expired)
	assert.Equal(t, 401, resp.Code)
	assert.Contains(t, resp.Body.String(), "Token expired")

	forged, err := utils.GenerateJWT("u1", "someone", "other-secret")
	require.NoError(t, err)
	resp = do(router, "GET", "/auth/me", "", forged)
	assert.Equal(t, 401, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid token")
}

func TestChangePassword(t *testing.T) {
	router := setupRouter(t)
	resp := do(router, "POST", "/auth/register", `{"username":"carol","email":"carol@example.com","password":"Passw0rdX"}`, "")
	require.Equal(t, 201, resp.Code)
	var reg models.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reg))

	resp = do(router, "POST", "/auth/change-password", `{"currentPassword":"wrong","newPassword":"N3wPassword"}`, reg.Token)
	assert.Equal(t, 401, resp.Code)

	resp = do(router, "POST", "/auth/change-password", `{"currentPassword":"Passw0rdX","newPassword":"N3wPassword"}`, reg.Token)
	require.Equal(t, 200, resp.Code)

	assert.Equal(t, 200, do(router, "POST", "/auth/login", `{"username":"carol","password":"N3wPassword"}`, "").Code)
}
