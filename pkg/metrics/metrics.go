package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Transaction metrics
	TxnCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_txn_commits_total",
			Help: "Total number of transactions committed (WAL prepared, super block flipped, disposed)",
		},
	)

	TxnAbortsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_txn_aborts_total",
			Help: "Total number of transactions abandoned before commit",
		},
	)

	TxnCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cryptofs_txn_commit_duration_seconds",
			Help:    "Time to stage, prepare, and dispose one transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Entity map cache metrics
	EmapCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_emap_cache_hits_total",
			Help: "Total number of entity map node lookups served from the in-memory LRU",
		},
	)

	EmapCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_emap_cache_misses_total",
			Help: "Total number of entity map node lookups that required a backend read",
		},
	)

	// Content-defined chunking / dedup metrics
	ChunkDedupHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_chunk_dedup_hits_total",
			Help: "Total number of chunks whose content already existed in the content map",
		},
	)

	ChunkDedupMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_chunk_dedup_misses_total",
			Help: "Total number of chunks newly written to the backend",
		},
	)

	ChunkBytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_chunk_bytes_written_total",
			Help: "Total plaintext bytes written through the chunker, before dedup",
		},
	)

	// Filesystem operation metrics
	FSOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofs_fs_ops_total",
			Help: "Total number of filesystem operations by name and outcome",
		},
		[]string{"op", "result"},
	)

	FSOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptofs_fs_op_duration_seconds",
			Help:    "Filesystem operation duration in seconds by name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// Backend metrics
	BackendBlocksAllocated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofs_backend_blocks_allocated_total",
			Help: "Total number of storage blocks handed out by the allocator",
		},
	)

	EmapCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptofs_emap_cache_size",
			Help: "Current number of entity map nodes held in the LRU",
		},
	)

	ContentMapEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptofs_content_map_entries",
			Help: "Current number of distinct content hashes tracked by the content map",
		},
	)
)

func init() {
	prometheus.MustRegister(
		TxnCommitsTotal,
		TxnAbortsTotal,
		TxnCommitDuration,
		EmapCacheHitsTotal,
		EmapCacheMissesTotal,
		ChunkDedupHitsTotal,
		ChunkDedupMissesTotal,
		ChunkBytesWritten,
		FSOpsTotal,
		FSOpDuration,
		BackendBlocksAllocated,
		EmapCacheSize,
		ContentMapEntries,
	)
}

// Handler returns the Prometheus scrape handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, started now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
