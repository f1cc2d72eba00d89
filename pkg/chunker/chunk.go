package chunker

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/metrics"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/cuemby/cryptofs/pkg/volume"
)

// Segment names one chunk's worth of bytes inside a file's content list.
// The content map, keyed by Hash, resolves a segment to its physical
// Addr; segments never carry the address directly, so a chunk shared by
// many files' segment lists stays a single on-disk copy. It's an alias
// for types.Segment so fnode's Version records can hold these directly
// without fnode depending on package chunker.
type Segment = types.Segment

// subsystemID is the HKDF subsystem id chunk ciphertext is encrypted
// under, distinct from every other persisted object type.
const subsystemID uint64 = 2

// DeriveKey derives the chunk-data encryption subkey from the repo's
// master key.
func DeriveKey(cr crypto.Crypto, master crypto.Key) crypto.Key {
	return cr.DeriveSubkey(master, subsystemID)
}

// Chunk splits data into content-defined chunks and resolves each one
// against cm: a hit bumps the existing entity's refcount, a miss
// allocates, encrypts, and writes a brand-new content entity. It returns
// the segment list describing data in order.
func Chunk(b backend.Backend, alloc *volume.Allocator, cr crypto.Crypto, key crypto.Key, cm *ContentMap, data []byte) ([]Segment, error) {
	pieces := Split(data)
	segments := make([]Segment, 0, len(pieces))

	for _, p := range pieces {
		h := crypto.HashBytes(p)
		if _, _, ok := cm.Lookup(h); ok {
			cm.IncRef(h)
			metrics.ChunkDedupHitsTotal.Inc()
			segments = append(segments, Segment{Hash: h, Len: len(p)})
			continue
		}

		contentEid := types.NewEid()
		addr, err := volume.WriteData(b, alloc, cr, key, p)
		if err != nil {
			return nil, err
		}
		cm.Insert(h, contentEid, addr)
		metrics.ChunkDedupMissesTotal.Inc()
		metrics.ChunkBytesWritten.Add(float64(len(p)))
		segments = append(segments, Segment{Hash: h, Len: len(p)})
	}
	return segments, nil
}

// Read reconstructs the plaintext named by segments, resolving each
// segment's hash through cm and reading its bytes back from b.
func Read(b backend.Backend, cr crypto.Crypto, key crypto.Key, cm *ContentMap, segments []Segment) ([]byte, error) {
	total := 0
	for _, s := range segments {
		total += s.Len
	}

	out := make([]byte, 0, total)
	for _, seg := range segments {
		_, addr, ok := cm.Lookup(seg.Hash)
		if !ok {
			return nil, apperr.New(apperr.KindNoEntity, "chunker.Read: chunk "+seg.Hash.String()+" not in content map")
		}
		pt, err := volume.ReadData(b, cr, key, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, pt...)
	}
	return out, nil
}

// Release drops the refcount of every hash in segments, returning the
// addresses of any content entities that reached zero references so the
// caller can free their blocks during the commit's recycle phase.
func Release(cm *ContentMap, segments []Segment) []types.Addr {
	var freed []types.Addr
	for _, seg := range segments {
		if addr, gone := cm.DecRef(seg.Hash); gone {
			freed = append(freed, addr)
		}
	}
	return freed
}
