package backend

import (
	"fmt"
	"sync"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
)

// MemBackend is a process-local, mutex-guarded map implementation of
// Backend. It's the backend behind mem:// repo URIs and the storage
// FaultyBackend wraps in tests.
type MemBackend struct {
	mu sync.Mutex

	superBlocks map[uint8][]byte
	wal         map[types.Eid][]byte
	addresses   map[types.Eid][]byte
	blocks      map[uint64][]byte // per-block-index payload
}

// NewMemBackend creates an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{
		superBlocks: make(map[uint8][]byte),
		wal:         make(map[types.Eid][]byte),
		addresses:   make(map[types.Eid][]byte),
		blocks:      make(map[uint64][]byte),
	}
}

func (m *MemBackend) Exists() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.superBlocks) > 0, nil
}

func (m *MemBackend) Init(_ crypto.Crypto, _ crypto.Key) error { return nil }
func (m *MemBackend) Open(_ crypto.Crypto, _ crypto.Key) error { return nil }
func (m *MemBackend) Connect() error                           { return nil }
func (m *MemBackend) Flush() error                             { return nil }

func (m *MemBackend) GetSuperBlock(suffix uint8) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.superBlocks[suffix]
	if !ok {
		return nil, apperr.NotFound("mem.GetSuperBlock")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemBackend) PutSuperBlock(data []byte, suffix uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.superBlocks[suffix] = cp
	return nil
}

func (m *MemBackend) GetWAL(eid types.Eid) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.wal[eid]
	if !ok {
		return nil, apperr.NotFound("mem.GetWAL")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemBackend) PutWAL(eid types.Eid, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.wal[eid] = cp
	return nil
}

func (m *MemBackend) DelWAL(eid types.Eid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.wal, eid)
	return nil
}

func (m *MemBackend) GetAddress(eid types.Eid) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.addresses[eid]
	if !ok {
		return nil, apperr.NotFound("mem.GetAddress")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemBackend) PutAddress(eid types.Eid, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.addresses[eid] = cp
	return nil
}

func (m *MemBackend) DelAddress(eid types.Eid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.addresses, eid)
	return nil
}

func (m *MemBackend) GetBlocks(dst []byte, span types.Span) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := span.BlockLen()
	if len(dst) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("mem.GetBlocks: dst len %d != %d", len(dst), want))
	}

	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		blk, ok := m.blocks[span.Begin+i]
		off := int(i) * types.BlkSize
		if !ok {
			// Unwritten blocks read as zero, matching a sparse file.
			for j := 0; j < types.BlkSize; j++ {
				dst[off+j] = 0
			}
			continue
		}
		copy(dst[off:off+types.BlkSize], blk)
	}
	return nil
}

func (m *MemBackend) PutBlocks(span types.Span, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := span.BlockLen()
	if len(data) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("mem.PutBlocks: data len %d != %d", len(data), want))
	}

	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		off := int(i) * types.BlkSize
		blk := make([]byte, types.BlkSize)
		copy(blk, data[off:off+types.BlkSize])
		m.blocks[span.Begin+i] = blk
	}
	return nil
}

func (m *MemBackend) DelBlocks(span types.Span) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		delete(m.blocks, span.Begin+i)
	}
	return nil
}
