package health_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/binhbb2204/litverse/internal/health"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/gin-gonic/gin"
)

type fixedCount int

func (n fixedCount) ClientCount() int { return int(n) }

func setupHealthTest(t *testing.T) *gin.Engine {
	t.Helper()
	logger.Init(logger.ERROR, false, nil)
	if err := database.InitDatabase(t.TempDir() + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	handler := health.NewHandler(fixedCount(3))
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", handler.Healthz)
	router.GET("/readyz", handler.Readyz)
	router.GET("/api/health", handler.Status)
	return router
}

func TestHealthz_AlwaysReturnsOK(t *testing.T) {
	router := setupHealthTest(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/healthz", nil))

	if resp.Code != 200 {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != `{"status":"alive"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestReadyz_HealthySystem(t *testing.T) {
	router := setupHealthTest(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/readyz", nil))

	if resp.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"status":"ready"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestReadyz_DatabaseClosed(t *testing.T) {
	router := setupHealthTest(t)
	database.Close()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/readyz", nil))

	if resp.Code != 503 {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestStatus_ReportsConnections(t *testing.T) {
	router := setupHealthTest(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/api/health", nil))
	if resp.Code != 200 {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "OK" {
		t.Fatalf("unexpected status: %v", body["status"])
	}
	if body["connections"] != float64(3) {
		t.Fatalf("expected 3 connections, got %v", body["connections"])
	}
}
