package backend

import (
	"fmt"
	"sync"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/cache"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/cuemby/cryptofs/pkg/types"
)

func apperrNotFound(err error) bool { return apperr.Is(err, apperr.KindNotFound) }

// cachedBlob is the value type held in LocalCache's LRU: the object bytes
// plus whether the caller has pinned it open against eviction.
type cachedBlob struct {
	data   []byte
	pinned bool
}

type blobMeter struct{}

func (blobMeter) Measure(b cachedBlob) int { return len(b.data) }

type blobPin struct{}

func (blobPin) IsPinned(b cachedBlob) bool { return b.pinned }

// LocalCache wraps an HTTPBackend with a byte-budgeted, pin-aware LRU so
// repeatedly-touched super-blocks, WAL entries, addresses, and blocks don't
// round-trip the network on every access. It tracks the remote's
// update-sequence and purges its entire cache the moment that sequence
// moves out from under it, since the backend gives no finer-grained
// invalidation signal than "something changed".
type LocalCache struct {
	remote *HTTPBackend
	budget int

	mu       sync.Mutex
	cache    *cache.LRU[string, cachedBlob]
	lastSeen uint64
}

// NewLocalCache wraps remote with an LRU bounded to budgetBytes of cached
// object data.
func NewLocalCache(remote *HTTPBackend, budgetBytes int) *LocalCache {
	return &LocalCache{
		remote: remote,
		budget: budgetBytes,
		cache:  cache.New[string, cachedBlob](budgetBytes, blobMeter{}, blobPin{}),
	}
}

func (l *LocalCache) Connect() error { return l.remote.Connect() }
func (l *LocalCache) Flush() error   { return l.remote.Flush() }
func (l *LocalCache) Exists() (bool, error) { return l.remote.Exists() }

func (l *LocalCache) Init(c crypto.Crypto, key crypto.Key) error { return l.remote.Init(c, key) }

// Open opens the remote and then runs Refresh, so a cache whose recorded
// update-sequence no longer matches the remote's is purged before use.
func (l *LocalCache) Open(c crypto.Crypto, key crypto.Key) error {
	if err := l.remote.Open(c, key); err != nil {
		return err
	}
	return l.Refresh()
}

// Pin marks a cached key as never-evict, e.g. while a file handle holding
// its content is open for write.
func (l *LocalCache) Pin(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.cache.GetMut(key); ok {
		v.pinned = true
	}
}

// Unpin releases a prior Pin, making the entry eligible for eviction again.
func (l *LocalCache) Unpin(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.cache.GetMut(key); ok {
		v.pinned = false
	}
}

// Refresh probes the remote for its current update-sequence and purges
// the whole local cache if another writer has advanced it since our last
// probe. Call this on reopen, or periodically, to bound how stale a
// long-lived LocalCache can get — ordinary Get/Put calls only detect
// drift that they themselves happen to observe via response headers.
func (l *LocalCache) Refresh() error {
	if _, err := l.remote.GetSuperBlock(0); err != nil && !apperrNotFound(err) {
		return err
	}
	l.mu.Lock()
	l.checkStale()
	l.mu.Unlock()
	return nil
}

// checkStale purges the whole cache if the remote's update-sequence has
// advanced since we last looked, since the object store gives no
// per-key invalidation.
func (l *LocalCache) checkStale() {
	seq := l.remote.UpdateSeq()
	if seq > l.lastSeen {
		if l.lastSeen != 0 {
			logx.WithComponent("backend.localcache").Info().
				Uint64("old_seq", l.lastSeen).Uint64("new_seq", seq).Msg("remote update-seq advanced, purging cache")
			l.cache = cache.New[string, cachedBlob](l.budget, blobMeter{}, blobPin{})
		}
		l.lastSeen = seq
	}
}

func (l *LocalCache) getCached(key string, fetch func() ([]byte, error)) ([]byte, error) {
	l.mu.Lock()
	l.checkStale()
	if v, ok := l.cache.GetRefresh(key); ok {
		data := v.data
		l.mu.Unlock()
		return data, nil
	}
	l.mu.Unlock()

	data, err := fetch()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache.Insert(key, cachedBlob{data: data})
	l.mu.Unlock()
	return data, nil
}

func (l *LocalCache) putCached(key string, data []byte, store func() error) error {
	if err := store(); err != nil {
		return err
	}
	l.mu.Lock()
	l.checkStale()
	l.cache.Insert(key, cachedBlob{data: data})
	l.mu.Unlock()
	return nil
}

func (l *LocalCache) delCached(key string, remove func() error) error {
	if err := remove(); err != nil {
		return err
	}
	l.mu.Lock()
	l.cache.Remove(key)
	l.mu.Unlock()
	return nil
}

func (l *LocalCache) GetSuperBlock(suffix uint8) ([]byte, error) {
	key := fmt.Sprintf("superblock/%d", suffix)
	return l.getCached(key, func() ([]byte, error) { return l.remote.GetSuperBlock(suffix) })
}

func (l *LocalCache) PutSuperBlock(data []byte, suffix uint8) error {
	key := fmt.Sprintf("superblock/%d", suffix)
	return l.putCached(key, data, func() error { return l.remote.PutSuperBlock(data, suffix) })
}

func (l *LocalCache) GetWAL(eid types.Eid) ([]byte, error) {
	key := "wal/" + eid.String()
	return l.getCached(key, func() ([]byte, error) { return l.remote.GetWAL(eid) })
}

func (l *LocalCache) PutWAL(eid types.Eid, data []byte) error {
	key := "wal/" + eid.String()
	return l.putCached(key, data, func() error { return l.remote.PutWAL(eid, data) })
}

func (l *LocalCache) DelWAL(eid types.Eid) error {
	key := "wal/" + eid.String()
	return l.delCached(key, func() error { return l.remote.DelWAL(eid) })
}

func (l *LocalCache) GetAddress(eid types.Eid) ([]byte, error) {
	key := "address/" + eid.String()
	return l.getCached(key, func() ([]byte, error) { return l.remote.GetAddress(eid) })
}

func (l *LocalCache) PutAddress(eid types.Eid, data []byte) error {
	key := "address/" + eid.String()
	return l.putCached(key, data, func() error { return l.remote.PutAddress(eid, data) })
}

func (l *LocalCache) DelAddress(eid types.Eid) error {
	key := "address/" + eid.String()
	return l.delCached(key, func() error { return l.remote.DelAddress(eid) })
}

// GetBlocks and PutBlocks cache per block index, same granularity the
// remote addresses them at, so a partial span hit still saves its covered
// blocks a round-trip.
func (l *LocalCache) GetBlocks(dst []byte, span types.Span) error {
	want := span.BlockLen()
	if len(dst) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("localcache.GetBlocks: dst len %d != %d", len(dst), want))
	}
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		idx := span.Begin + i
		off := int(i) * types.BlkSize
		key := fmt.Sprintf("block/%d", idx)
		data, err := l.getCached(key, func() ([]byte, error) {
			single := types.Span{Begin: idx, End: idx + 1}
			buf := make([]byte, types.BlkSize)
			if err := l.remote.GetBlocks(buf, single); err != nil {
				return nil, err
			}
			return buf, nil
		})
		if err != nil {
			return err
		}
		copy(dst[off:off+types.BlkSize], data)
	}
	return nil
}

func (l *LocalCache) PutBlocks(span types.Span, data []byte) error {
	want := span.BlockLen()
	if len(data) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("localcache.PutBlocks: data len %d != %d", len(data), want))
	}
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		idx := span.Begin + i
		off := int(i) * types.BlkSize
		blk := data[off : off+types.BlkSize]
		key := fmt.Sprintf("block/%d", idx)
		err := l.putCached(key, blk, func() error {
			single := types.Span{Begin: idx, End: idx + 1}
			return l.remote.PutBlocks(single, blk)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *LocalCache) DelBlocks(span types.Span) error {
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		idx := span.Begin + i
		key := fmt.Sprintf("block/%d", idx)
		single := types.Span{Begin: idx, End: idx + 1}
		if err := l.delCached(key, func() error { return l.remote.DelBlocks(single) }); err != nil {
			return err
		}
	}
	return nil
}
