package types

import (
	"time"

	"github.com/cuemby/cryptofs/pkg/crypto"
)

// Segment names one content-defined chunk's worth of bytes inside a file
// version's ordered content list. The chunk's own storage location is
// resolved by hash through the content map, not carried here, so many
// segments across many files can point at the same physical bytes.
type Segment struct {
	Hash crypto.Hash
	Len  int
}

// Version is one entry in a file's version ring: the ordered list of
// chunks making up its bytes, the version's total length, and the time
// it was created. Version numbers are monotonic per file. A version
// whose bytes fit in a single content-defined chunk has exactly one
// Segment — the common case.
type Version struct {
	Num      uint64
	Segments []Segment
	Len      uint64
	Ctime    time.Time
}

// NewVersion builds a Version stamped with the current time.
func NewVersion(num uint64, segments []Segment, length uint64) Version {
	return Version{Num: num, Segments: segments, Len: length, Ctime: time.Now()}
}
