package metrics

import (
	"sync/atomic"
)

type Metrics struct {
	broadcastsTotal         int64
	broadcastFailsTotal     int64
	activeConnections       int64
	checkoutsTotal          int64
	recommendationsTotal    int64
	recommendationFallbacks int64
	rateLimitedTotal        int64
}

var global = &Metrics{}

func IncrementBroadcasts() {
	atomic.AddInt64(&global.broadcastsTotal, 1)
}

func IncrementBroadcastFails() {
	atomic.AddInt64(&global.broadcastFailsTotal, 1)
}

func SetActiveConnections(count int64) {
	atomic.StoreInt64(&global.activeConnections, count)
}

func IncrementCheckouts() {
	atomic.AddInt64(&global.checkoutsTotal, 1)
}

// IncrementRecommendations counts a served recommendation request; fallback marks
// responses that came from the static provider.
func IncrementRecommendations(fallback bool) {
	atomic.AddInt64(&global.recommendationsTotal, 1)
	if fallback {
		atomic.AddInt64(&global.recommendationFallbacks, 1)
	}
}

func IncrementRateLimited() {
	atomic.AddInt64(&global.rateLimitedTotal, 1)
}

func GetBroadcasts() int64 {
	return atomic.LoadInt64(&global.broadcastsTotal)
}

func GetBroadcastFails() int64 {
	return atomic.LoadInt64(&global.broadcastFailsTotal)
}

func GetActiveConnections() int64 {
	return atomic.LoadInt64(&global.activeConnections)
}

func GetCheckouts() int64 {
	return atomic.LoadInt64(&global.checkoutsTotal)
}

func GetRecommendations() int64 {
	return atomic.LoadInt64(&global.recommendationsTotal)
}

func GetRecommendationFallbacks() int64 {
	return atomic.LoadInt64(&global.recommendationFallbacks)
}

func GetRateLimited() int64 {
	return atomic.LoadInt64(&global.rateLimitedTotal)
}

func Reset() {
	atomic.StoreInt64(&global.broadcastsTotal, 0)
	atomic.StoreInt64(&global.broadcastFailsTotal, 0)
	atomic.StoreInt64(&global.activeConnections, 0)
	atomic.StoreInt64(&global.checkoutsTotal, 0)
	atomic.StoreInt64(&global.recommendationsTotal, 0)
	atomic.StoreInt64(&global.recommendationFallbacks, 0)
	atomic.StoreInt64(&global.rateLimitedTotal, 0)
	ResetRequestMetrics()
}
