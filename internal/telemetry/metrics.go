// Package telemetry exposes this runtime's state as Prometheus metrics.
// The promauto registration style and flat var-per-metric layout is
// grounded on Tutu-Engine-tutuengine's internal/infra/metrics, which the
// upstream itself has no equivalent of (proxy/metrics_monitor.go is a
// plain polling struct, not an exposition endpoint).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Generation ─────────────────────────────────────────────────────────

// TimeToFirstToken tracks the latency from chat_stream start to its first
// emitted delta, per engine.
var TimeToFirstToken = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "hearthrun",
	Name:      "time_to_first_token_seconds",
	Help:      "Time from generation start to the first streamed token.",
	Buckets:   prometheus.DefBuckets,
}, []string{"engine"})

// TokensPerSecond tracks generation throughput, per engine.
var TokensPerSecond = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "hearthrun",
	Name:      "tokens_per_second",
	Help:      "Output tokens generated per second.",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
}, []string{"engine"})

// GenerationsTotal counts completed generations by engine and outcome.
var GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthrun",
	Name:      "generations_total",
	Help:      "Total chat/chat_stream calls by engine and finish reason.",
}, []string{"engine", "finish_reason"})

// ─── Model lifecycle ────────────────────────────────────────────────────

// ModelsLoaded tracks currently loaded models by engine.
var ModelsLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "hearthrun",
	Name:      "models_loaded",
	Help:      "Number of currently loaded models.",
}, []string{"engine"})

// LoadLatency tracks load_model duration by engine.
var LoadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "hearthrun",
	Name:      "load_latency_seconds",
	Help:      "load_model duration by engine.",
	Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
}, []string{"engine"})

// LoadFailuresTotal counts load_model failures by error kind.
var LoadFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthrun",
	Name:      "load_failures_total",
	Help:      "Total load_model failures by error kind.",
}, []string{"kind"})

// ─── Resources ──────────────────────────────────────────────────────────

// VRAMUsedBytes tracks total reserved VRAM across loaded models.
var VRAMUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "hearthrun",
	Name:      "vram_used_bytes",
	Help:      "Total VRAM bytes currently reserved.",
})

// VRAMFreeBytes tracks VRAM headroom against the system margin.
var VRAMFreeBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "hearthrun",
	Name:      "vram_free_bytes",
	Help:      "VRAM bytes free against the system margin.",
})

// RAMUsedBytes tracks total reserved system RAM across loaded models.
var RAMUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "hearthrun",
	Name:      "ram_used_bytes",
	Help:      "Total RAM bytes currently reserved.",
})

// RAMFreeBytes tracks system RAM headroom against the system margin.
var RAMFreeBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "hearthrun",
	Name:      "ram_free_bytes",
	Help:      "RAM bytes free against the system margin.",
})

// ─── Handler operations ─────────────────────────────────────────────────

// RerankRequestsTotal counts rerank_documents calls by fallback mode.
var RerankRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthrun",
	Name:      "rerank_requests_total",
	Help:      "Total rerank_documents calls by scoring mode.",
}, []string{"mode"}) // "cross_encoder" or "embedding_cosine"

// ClusterRequestsTotal counts cluster calls by algorithm.
var ClusterRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthrun",
	Name:      "cluster_requests_total",
	Help:      "Total cluster calls by algorithm.",
}, []string{"algorithm"})

// HaltedGenerationsTotal counts halt_generation calls that actually
// stopped an in-flight stream.
var HaltedGenerationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hearthrun",
	Name:      "halted_generations_total",
	Help:      "Total halt_generation calls that stopped an in-flight stream.",
})
