package metrics_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/gin-gonic/gin"
)

func scrape(t *testing.T) map[string]interface{} {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", metrics.NewHandler().Metrics)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != 200 {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return result
}

func TestMetrics_InitialState(t *testing.T) {
	metrics.Reset()
	result := scrape(t)

	for _, key := range []string{"broadcasts_total", "broadcast_fails_total", "checkouts_total", "recommendation_fallbacks_total"} {
		if result[key].(float64) != 0 {
			t.Fatalf("expected %s=0, got %v", key, result[key])
		}
	}
}

func TestMetrics_Counters(t *testing.T) {
	metrics.Reset()
	metrics.IncrementBroadcasts()
	metrics.IncrementBroadcastFails()
	metrics.SetActiveConnections(3)
	metrics.IncrementCheckouts()
	metrics.IncrementRecommendations(false)
	metrics.IncrementRecommendations(true)
	metrics.IncrementRateLimited()

	result := scrape(t)
	expect := map[string]float64{
		"broadcasts_total":               1,
		"broadcast_fails_total":          1,
		"active_connections":             3,
		"checkouts_total":                1,
		"recommendations_total":          2,
		"recommendation_fallbacks_total": 1,
		"rate_limited_total":             1,
	}
	for key, want := range expect {
		if result[key].(float64) != want {
			t.Fatalf("expected %s=%v, got %v", key, want, result[key])
		}
	}
}

func TestMetrics_RequestStats(t *testing.T) {
	metrics.Reset()
	metrics.RecordRequest(10*time.Millisecond, false)
	metrics.RecordRequest(30*time.Millisecond, true)

	stats := metrics.GetRequestMetrics()
	if stats["requests_served"] != 2 || stats["requests_failed"] != 1 {
		t.Fatalf("unexpected counts: %v", stats)
	}
	if stats["average_latency_ms"] != 20 {
		t.Fatalf("expected average 20ms, got %d", stats["average_latency_ms"])
	}
	if stats["peak_latency_ms"] != 30 {
		t.Fatalf("expected peak 30ms, got %d", stats["peak_latency_ms"])
	}
	if stats["error_rate"] != 50 {
		t.Fatalf("expected error rate 50, got %d", stats["error_rate"])
	}
}
