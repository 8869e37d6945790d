package httpapi

import (
	"sync"
	"time"
)

// genStats is the last-generation snapshot /stats reports, per spec.md §6.
// The teacher has no equivalent single-snapshot endpoint (its metrics are
// a continuous event stream via apiSendEvents); this keeps just the last
// completed generation's numbers, cheap to read under a mutex.
type genStats struct {
	mu              sync.Mutex
	engine          string
	ttft            time.Duration
	tokensPerSecond float64
	outputTokens    int
	finishReason    string
	recordedAt      time.Time
}

func (g *genStats) record(engine string, ttft time.Duration, tps float64, outputTokens int, finishReason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engine = engine
	g.ttft = ttft
	g.tokensPerSecond = tps
	g.outputTokens = outputTokens
	g.finishReason = finishReason
	g.recordedAt = time.Now()
}

func (g *genStats) snapshot() map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.recordedAt.IsZero() {
		return map[string]any{"available": false}
	}
	return map[string]any{
		"available":         true,
		"engine":            g.engine,
		"ttft_seconds":      g.ttft.Seconds(),
		"tokens_per_second": g.tokensPerSecond,
		"output_tokens":     g.outputTokens,
		"finish_reason":     g.finishReason,
		"recorded_at":       g.recordedAt,
	}
}
