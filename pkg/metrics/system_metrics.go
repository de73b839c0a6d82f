package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type RequestMetrics struct {
	RequestsServed atomic.Int64
	RequestsFailed atomic.Int64
	AverageLatency atomic.Int64
	PeakLatency    atomic.Int64
	ErrorRate      atomic.Int64

	mu            sync.Mutex
	lastResetTime time.Time
}

var requestMetrics = &RequestMetrics{
	lastResetTime: time.Now(),
}

// RecordRequest folds one served HTTP request into the running stats.
// failed marks 5xx responses.
func RecordRequest(latency time.Duration, failed bool) {
	served := requestMetrics.RequestsServed.Add(1)
	if failed {
		requestMetrics.RequestsFailed.Add(1)
	}
	requestMetrics.ErrorRate.Store(requestMetrics.RequestsFailed.Load() * 100 / served)

	latencyMs := latency.Milliseconds()
	current := requestMetrics.AverageLatency.Load()
	requestMetrics.AverageLatency.Store((current*(served-1) + latencyMs) / served)

	for {
		peak := requestMetrics.PeakLatency.Load()
		if latencyMs <= peak || requestMetrics.PeakLatency.CompareAndSwap(peak, latencyMs) {
			break
		}
	}
}

func GetRequestMetrics() map[string]int64 {
	return map[string]int64{
		"requests_served":    requestMetrics.RequestsServed.Load(),
		"requests_failed":    requestMetrics.RequestsFailed.Load(),
		"average_latency_ms": requestMetrics.AverageLatency.Load(),
		"peak_latency_ms":    requestMetrics.PeakLatency.Load(),
		"error_rate":         requestMetrics.ErrorRate.Load(),
	}
}

func ResetRequestMetrics() {
	requestMetrics.RequestsServed.Store(0)
	requestMetrics.RequestsFailed.Store(0)
	requestMetrics.AverageLatency.Store(0)
	requestMetrics.PeakLatency.Store(0)
	requestMetrics.ErrorRate.Store(0)
	requestMetrics.mu.Lock()
	requestMetrics.lastResetTime = time.Now()
	requestMetrics.mu.Unlock()
}

func GetUptime() time.Duration {
	requestMetrics.mu.Lock()
	defer requestMetrics.mu.Unlock()
	return time.Since(requestMetrics.lastResetTime)
}
