package types

import (
	"encoding/binary"

	"github.com/cuemby/cryptofs/pkg/apperr"
)

// spanRecLen is the encoded size of one Span: begin, end, offset.
const spanRecLen = 8 + 8 + 8

// EncodeAddr serializes a as: total length, span count, then each span's
// begin/end/offset. Used wherever an Addr needs to ride inside another
// entity's encrypted payload (a content map entry, an FNode record).
func EncodeAddr(a Addr) []byte {
	buf := make([]byte, 12, 12+len(a.List)*spanRecLen)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(a.Len))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(a.List)))
	for _, s := range a.List {
		var rec [spanRecLen]byte
		binary.LittleEndian.PutUint64(rec[0:8], s.Begin)
		binary.LittleEndian.PutUint64(rec[8:16], s.End)
		binary.LittleEndian.PutUint64(rec[16:24], s.Offset)
		buf = append(buf, rec[:]...)
	}
	return buf
}

// DecodeAddr reverses EncodeAddr.
func DecodeAddr(buf []byte) (Addr, error) {
	if len(buf) < 12 {
		return Addr{}, apperr.New(apperr.KindInvalidArgument, "types.DecodeAddr: short buffer")
	}
	length := int(binary.LittleEndian.Uint64(buf[0:8]))
	count := int(binary.LittleEndian.Uint32(buf[8:12]))
	pos := 12
	if len(buf)-pos != count*spanRecLen {
		return Addr{}, apperr.New(apperr.KindInvalidArgument, "types.DecodeAddr: bad span count")
	}
	a := Addr{Len: length, List: make([]Span, 0, count)}
	for i := 0; i < count; i++ {
		rec := buf[pos : pos+spanRecLen]
		pos += spanRecLen
		a.List = append(a.List, Span{
			Begin:  binary.LittleEndian.Uint64(rec[0:8]),
			End:    binary.LittleEndian.Uint64(rec[8:16]),
			Offset: binary.LittleEndian.Uint64(rec[16:24]),
		})
	}
	return a, nil
}
