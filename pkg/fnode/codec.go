package fnode

import (
	"encoding/binary"
	"time"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
)

// segRecLen is one encoded segment: hash(32) | len(4).
const segRecLen = 32 + 4

func encodeVersion(v types.Version) []byte {
	buf := make([]byte, 28, 28+len(v.Segments)*segRecLen)
	binary.LittleEndian.PutUint64(buf[0:8], v.Num)
	binary.LittleEndian.PutUint64(buf[8:16], v.Len)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(v.Ctime.Unix()))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(v.Segments)))
	for _, s := range v.Segments {
		var rec [segRecLen]byte
		copy(rec[0:32], s.Hash[:])
		binary.LittleEndian.PutUint32(rec[32:36], uint32(s.Len))
		buf = append(buf, rec[:]...)
	}
	return buf
}

func decodeVersion(buf []byte) (types.Version, int, error) {
	if len(buf) < 28 {
		return types.Version{}, 0, apperr.New(apperr.KindInvalidArgument, "fnode.decodeVersion: short buffer")
	}
	num := binary.LittleEndian.Uint64(buf[0:8])
	length := binary.LittleEndian.Uint64(buf[8:16])
	ctime := time.Unix(int64(binary.LittleEndian.Uint64(buf[16:24])), 0)
	segCount := binary.LittleEndian.Uint32(buf[24:28])

	pos := 28
	segs := make([]types.Segment, 0, segCount)
	for i := uint32(0); i < segCount; i++ {
		if len(buf)-pos < segRecLen {
			return types.Version{}, 0, apperr.New(apperr.KindInvalidArgument, "fnode.decodeVersion: truncated segment")
		}
		var h crypto.Hash
		copy(h[:], buf[pos:pos+32])
		segLen := binary.LittleEndian.Uint32(buf[pos+32 : pos+segRecLen])
		pos += segRecLen
		segs = append(segs, types.Segment{Hash: h, Len: int(segLen)})
	}
	return types.Version{Num: num, Len: length, Ctime: ctime, Segments: segs}, pos, nil
}

func encodeEntry(e DirEntry) []byte {
	nameBytes := []byte(e.Name)
	buf := make([]byte, 2+len(nameBytes)+types.EidSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(nameBytes)))
	copy(buf[2:2+len(nameBytes)], nameBytes)
	copy(buf[2+len(nameBytes):], e.ChildEid.Bytes())
	return buf
}

func decodeEntry(buf []byte) (DirEntry, int, error) {
	if len(buf) < 2 {
		return DirEntry{}, 0, apperr.New(apperr.KindInvalidArgument, "fnode.decodeEntry: short buffer")
	}
	nameLen := int(binary.LittleEndian.Uint16(buf[0:2]))
	need := 2 + nameLen + types.EidSize
	if len(buf) < need {
		return DirEntry{}, 0, apperr.New(apperr.KindInvalidArgument, "fnode.decodeEntry: truncated")
	}
	name := string(buf[2 : 2+nameLen])
	eid := types.EidFromSlice(buf[2+nameLen : need])
	return DirEntry{Name: name, ChildEid: eid}, need, nil
}

// Encode serializes f for storage as an emap node's opaque payload:
// every entity's record rides alongside its txn bookkeeping in the same
// armored node.
func Encode(f *FNode) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(f.Kind))

	ctimeBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(ctimeBuf, uint64(f.Ctime.Unix()))
	buf = append(buf, ctimeBuf...)
	buf = append(buf, f.VersionLimit)

	nvBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(nvBuf, f.NextVersionNum)
	buf = append(buf, nvBuf...)

	vcBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(vcBuf, uint32(len(f.Versions)))
	buf = append(buf, vcBuf...)
	for _, v := range f.Versions {
		buf = append(buf, encodeVersion(v)...)
	}

	ecBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(ecBuf, uint32(len(f.Entries)))
	buf = append(buf, ecBuf...)
	for _, e := range f.Entries {
		buf = append(buf, encodeEntry(e)...)
	}
	return buf
}

// Decode reverses Encode.
func Decode(buf []byte) (*FNode, error) {
	if len(buf) < 18 {
		return nil, apperr.New(apperr.KindInvalidArgument, "fnode.Decode: short buffer")
	}
	f := &FNode{Kind: Kind(buf[0])}
	pos := 1
	f.Ctime = time.Unix(int64(binary.LittleEndian.Uint64(buf[pos:pos+8])), 0)
	pos += 8
	f.VersionLimit = buf[pos]
	pos++
	f.NextVersionNum = binary.LittleEndian.Uint64(buf[pos : pos+8])
	pos += 8

	if len(buf)-pos < 4 {
		return nil, apperr.New(apperr.KindInvalidArgument, "fnode.Decode: truncated version count")
	}
	vc := binary.LittleEndian.Uint32(buf[pos : pos+4])
	pos += 4
	for i := uint32(0); i < vc; i++ {
		v, n, err := decodeVersion(buf[pos:])
		if err != nil {
			return nil, err
		}
		f.Versions = append(f.Versions, v)
		pos += n
	}

	if len(buf)-pos < 4 {
		return nil, apperr.New(apperr.KindInvalidArgument, "fnode.Decode: truncated entry count")
	}
	ec := binary.LittleEndian.Uint32(buf[pos : pos+4])
	pos += 4
	for i := uint32(0); i < ec; i++ {
		e, n, err := decodeEntry(buf[pos:])
		if err != nil {
			return nil, err
		}
		f.Entries = append(f.Entries, e)
		pos += n
	}
	return f, nil
}
