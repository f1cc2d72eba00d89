package txn

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/types"
)

// OpKind is the kind of pending write a WAL entry records.
type OpKind uint8

const (
	OpPutAddr OpKind = iota
	OpDelAddr
	OpPutBlocks
	OpDelBlocks
	OpPutEmap
)

// Entry is one WAL record: {txid, eid, op, payload}. Payload is
// op-specific: empty for OpPutAddr/OpDelAddr/OpPutEmap (the entity's own
// address-keyspace record is authoritative), an encoded Span for
// OpPutBlocks/OpDelBlocks (recovery needs the span to delete orphaned
// block ranges that never got referenced by anything).
type Entry struct {
	Txid    types.Txid
	Eid     types.Eid
	Op      OpKind
	Payload []byte
}

const spanRecLen = 24

func encodeSpan(s types.Span) []byte {
	buf := make([]byte, spanRecLen)
	binary.LittleEndian.PutUint64(buf[0:8], s.Begin)
	binary.LittleEndian.PutUint64(buf[8:16], s.End)
	binary.LittleEndian.PutUint64(buf[16:24], s.Offset)
	return buf
}

func decodeSpan(buf []byte) (types.Span, error) {
	if len(buf) != spanRecLen {
		return types.Span{}, apperr.New(apperr.KindInvalidArgument, "txn.decodeSpan: bad length")
	}
	return types.NewSpan(
		binary.LittleEndian.Uint64(buf[0:8]),
		binary.LittleEndian.Uint64(buf[8:16]),
		binary.LittleEndian.Uint64(buf[16:24]),
	), nil
}

// entryHeaderLen is txid(8) | eid(32) | op(1) | payload length(4).
const entryHeaderLen = 8 + types.EidSize + 1 + 4

func encodeLog(entries []Entry) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		rec := make([]byte, entryHeaderLen+len(e.Payload))
		binary.LittleEndian.PutUint64(rec[0:8], uint64(e.Txid))
		copy(rec[8:8+types.EidSize], e.Eid.Bytes())
		rec[8+types.EidSize] = byte(e.Op)
		binary.LittleEndian.PutUint32(rec[9+types.EidSize:entryHeaderLen], uint32(len(e.Payload)))
		copy(rec[entryHeaderLen:], e.Payload)
		buf = append(buf, rec...)
	}
	return buf
}

func decodeLog(buf []byte) ([]Entry, error) {
	if len(buf) < 4 {
		return nil, apperr.New(apperr.KindInvalidArgument, "txn.decodeLog: short buffer")
	}
	n := binary.LittleEndian.Uint32(buf[0:4])
	pos := 4

	entries := make([]Entry, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(buf)-pos < entryHeaderLen {
			return nil, apperr.New(apperr.KindInvalidArgument, "txn.decodeLog: truncated record")
		}
		txid := types.Txid(binary.LittleEndian.Uint64(buf[pos : pos+8]))
		eid := types.EidFromSlice(buf[pos+8 : pos+8+types.EidSize])
		op := OpKind(buf[pos+8+types.EidSize])
		plen := int(binary.LittleEndian.Uint32(buf[pos+9+types.EidSize : pos+entryHeaderLen]))
		pos += entryHeaderLen
		if len(buf)-pos < plen {
			return nil, apperr.New(apperr.KindInvalidArgument, "txn.decodeLog: truncated payload")
		}
		payload := append([]byte(nil), buf[pos:pos+plen]...)
		pos += plen
		entries = append(entries, Entry{Txid: txid, Eid: eid, Op: op, Payload: payload})
	}
	return entries, nil
}

// walKey derives the deterministic backend WAL key for txid, so recovery
// never needs a separate index of in-flight transaction ids: the txid
// itself (persisted by the caller alongside the super-block) is enough to
// find its WAL record again.
func walKey(txid types.Txid) types.Eid {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(txid))
	h := sha256.Sum256(append([]byte("cryptofs.wal:"), buf...))
	return types.EidFromSlice(h[:])
}
