/*
Package metrics provides Prometheus metrics collection and HTTP health
endpoints for cryptofs.

It instruments the four layers a repository touches on every operation:
transaction commit/abort, entity map cache hit rate, content-defined
chunking dedup rate, and filesystem operation latency by name. Metrics
are exposed via the standard Prometheus text exposition format for
scraping.

# Metrics Catalog

Transaction metrics:

cryptofs_txn_commits_total:
  - Type: Counter
  - Description: Transactions committed (WAL prepared, super block
    flipped, disposed)

cryptofs_txn_aborts_total:
  - Type: Counter
  - Description: Transactions abandoned before commit

cryptofs_txn_commit_duration_seconds:
  - Type: Histogram
  - Description: Time to stage, prepare, and dispose one transaction

Entity map cache metrics:

cryptofs_emap_cache_hits_total / cryptofs_emap_cache_misses_total:
  - Type: Counter
  - Description: Entity map node lookups served from the in-memory LRU
    vs. requiring a backend read

cryptofs_emap_cache_size:
  - Type: Gauge
  - Description: Current number of entity map nodes held in the LRU

Content-defined chunking metrics:

cryptofs_chunk_dedup_hits_total / cryptofs_chunk_dedup_misses_total:
  - Type: Counter
  - Description: Chunks whose content already existed in the content
    map vs. chunks newly written to the backend

cryptofs_chunk_bytes_written_total:
  - Type: Counter
  - Description: Total plaintext bytes written through the chunker,
    before dedup

cryptofs_content_map_entries:
  - Type: Gauge
  - Description: Current number of distinct content hashes tracked

Filesystem operation metrics:

cryptofs_fs_ops_total{op, result}:
  - Type: Counter
  - Description: Filesystem operations by name (write, read, mkdir, ...)
    and outcome (ok, error)

cryptofs_fs_op_duration_seconds{op}:
  - Type: Histogram
  - Description: Filesystem operation duration in seconds by name

Backend metrics:

cryptofs_backend_blocks_allocated_total:
  - Type: Counter
  - Description: Storage blocks handed out by the allocator

# Usage

	timer := metrics.NewTimer()
	err := r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
		// ... stage a write ...
		return nil
	})
	timer.ObserveDurationVec(metrics.FSOpDuration, "write")
	metrics.FSOpsTotal.WithLabelValues("write", resultLabel(err)).Inc()

	http.Handle("/metrics", metrics.Handler())
	http.Handle("/health", metrics.HealthHandler())
	http.Handle("/ready", metrics.ReadyHandler())

# Health and readiness

RegisterComponent/UpdateComponent track named components ("backend",
"emap") that GetReadiness checks before reporting ready; GetHealth
reports unhealthy if any registered component is unhealthy, regardless
of whether it's on the critical list.
*/
package metrics
