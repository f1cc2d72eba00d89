package repo

import (
	"encoding/binary"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/types"
)

// bootstrap is the plaintext carried inside the super block's Payload
// field: everything the repo layer needs to rebuild the allocator, the
// content map, and the transaction manager without re-scanning the
// backend. It rides encrypted inside SuperBlock.Save/Load, so it gets
// the super block's own confidentiality for free.
type bootstrap struct {
	Root         types.Eid
	Watermark    uint64
	LastTxid     uint64
	VersionLimit uint8
	ContentMap   []byte
}

// bootstrapHeaderLen is root(32) || watermark(8) || lastTxid(8) || versionLimit(1) || content map len(4).
const bootstrapHeaderLen = types.EidSize + 8 + 8 + 1 + 4

func encodeBootstrap(bs bootstrap) []byte {
	buf := make([]byte, 0, bootstrapHeaderLen+len(bs.ContentMap))
	buf = append(buf, bs.Root.Bytes()...)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], bs.Watermark)
	buf = append(buf, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], bs.LastTxid)
	buf = append(buf, u64[:]...)

	buf = append(buf, bs.VersionLimit)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(bs.ContentMap)))
	buf = append(buf, u32[:]...)
	buf = append(buf, bs.ContentMap...)
	return buf
}

func decodeBootstrap(buf []byte) (bootstrap, error) {
	if len(buf) < bootstrapHeaderLen {
		return bootstrap{}, apperr.New(apperr.KindInvalidSuperBlk, "repo.decodeBootstrap: short buffer")
	}
	pos := 0
	root := types.EidFromSlice(buf[pos : pos+types.EidSize])
	pos += types.EidSize

	watermark := binary.LittleEndian.Uint64(buf[pos : pos+8])
	pos += 8
	lastTxid := binary.LittleEndian.Uint64(buf[pos : pos+8])
	pos += 8

	versionLimit := buf[pos]
	pos++

	cmLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	if len(buf)-pos < cmLen {
		return bootstrap{}, apperr.New(apperr.KindInvalidSuperBlk, "repo.decodeBootstrap: truncated content map")
	}
	cm := append([]byte(nil), buf[pos:pos+cmLen]...)

	return bootstrap{
		Root:         root,
		Watermark:    watermark,
		LastTxid:     lastTxid,
		VersionLimit: versionLimit,
		ContentMap:   cm,
	}, nil
}
