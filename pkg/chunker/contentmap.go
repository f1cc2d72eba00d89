package chunker

import (
	"encoding/binary"
	"sync"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
)

// entry is one content map record: the content entity backing hash h's
// bytes, where those bytes live on the volume, and how many live FNode
// versions reference it.
type entry struct {
	ContentEid types.Eid
	Addr       types.Addr
	Refcnt     uint64
}

// ContentMap deduplicates chunk plaintexts by content hash across the
// whole repo: refcnt(h) always equals the number of live FNode versions
// whose segment list names h.
type ContentMap struct {
	mu      sync.Mutex
	entries map[crypto.Hash]*entry
}

// NewContentMap builds an empty map, e.g. for a brand-new repo.
func NewContentMap() *ContentMap {
	return &ContentMap{entries: make(map[crypto.Hash]*entry)}
}

// Lookup returns the content entity and address already tracked for h,
// if any — the chunker's dedup-hit path.
func (m *ContentMap) Lookup(h crypto.Hash) (types.Eid, types.Addr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h]
	if !ok {
		return types.Eid{}, types.Addr{}, false
	}
	return e.ContentEid, e.Addr, true
}

// IncRef bumps h's refcount and returns the new value. h must already be
// tracked.
func (m *ContentMap) IncRef(h crypto.Hash) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[h]
	e.Refcnt++
	return e.Refcnt
}

// Insert tracks a brand-new content entity for h at refcount 1 — the
// chunker's dedup-miss path.
func (m *ContentMap) Insert(h crypto.Hash, contentEid types.Eid, addr types.Addr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[h] = &entry{ContentEid: contentEid, Addr: addr, Refcnt: 1}
}

// DecRef drops h's refcount by one. When it reaches zero the entry is
// removed and the freed content entity's address is returned so the
// caller can release its blocks during the commit's recycle phase.
// Decrementing an untracked or already-zero hash is a fatal bug in the
// caller, not a recoverable error.
func (m *ContentMap) DecRef(h crypto.Hash) (types.Addr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h]
	if !ok || e.Refcnt == 0 {
		apperr.Fatal("contentmap: refcount underflow on " + h.String())
	}
	e.Refcnt--
	if e.Refcnt == 0 {
		delete(m.entries, h)
		return e.Addr, true
	}
	return types.Addr{}, false
}

// Refcount returns h's current refcount, 0 if untracked.
func (m *ContentMap) Refcount(h crypto.Hash) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h]
	if !ok {
		return 0
	}
	return e.Refcnt
}

// Len returns the number of distinct content hashes currently tracked.
func (m *ContentMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// entryHeaderLen is the fixed part of one encoded entry: hash(32) |
// content eid(32) | refcnt(8) | addr length(4), followed by the encoded
// addr itself.
const entryHeaderLen = 32 + 32 + 8 + 4

// Encode serializes the whole map as a single blob, small relative to
// the content it indexes (one record per distinct chunk).
func (m *ContentMap) Encode() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(m.entries)))
	for h, e := range m.entries {
		addrBuf := types.EncodeAddr(e.Addr)
		rec := make([]byte, entryHeaderLen+len(addrBuf))
		copy(rec[0:32], h[:])
		copy(rec[32:64], e.ContentEid.Bytes())
		binary.LittleEndian.PutUint64(rec[64:72], e.Refcnt)
		binary.LittleEndian.PutUint32(rec[72:76], uint32(len(addrBuf)))
		copy(rec[76:], addrBuf)
		buf = append(buf, rec...)
	}
	return buf
}

// DecodeContentMap reverses Encode.
func DecodeContentMap(buf []byte) (*ContentMap, error) {
	if len(buf) < 4 {
		return nil, apperr.New(apperr.KindInvalidArgument, "chunker.DecodeContentMap: short buffer")
	}
	n := binary.LittleEndian.Uint32(buf[0:4])
	pos := 4

	m := NewContentMap()
	for i := uint32(0); i < n; i++ {
		if len(buf)-pos < entryHeaderLen {
			return nil, apperr.New(apperr.KindInvalidArgument, "chunker.DecodeContentMap: truncated record")
		}
		var h crypto.Hash
		copy(h[:], buf[pos:pos+32])
		pos += 32
		contentEid := types.EidFromSlice(buf[pos : pos+32])
		pos += 32
		refcnt := binary.LittleEndian.Uint64(buf[pos : pos+8])
		pos += 8
		addrLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		pos += 4
		if len(buf)-pos < addrLen {
			return nil, apperr.New(apperr.KindInvalidArgument, "chunker.DecodeContentMap: truncated addr")
		}
		addr, err := types.DecodeAddr(buf[pos : pos+addrLen])
		if err != nil {
			return nil, err
		}
		pos += addrLen

		m.entries[h] = &entry{ContentEid: contentEid, Addr: addr, Refcnt: refcnt}
	}
	return m, nil
}
