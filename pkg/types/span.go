package types

// Block and frame geometry. A frame is the unit handed to the cipher, so
// encryption errors localize to at most FrameSize bytes.
const (
	BlkSize       = 4096
	BlksPerFrame  = 16
	FrameSize     = BlkSize * BlksPerFrame
)

// Span is a contiguous range of block indices [Begin, End) plus the byte
// offset this range occupies within its owning Addr's span list.
type Span struct {
	Begin  uint64
	End    uint64
	Offset uint64
}

// NewSpan builds a Span.
func NewSpan(begin, end, offset uint64) Span {
	return Span{Begin: begin, End: end, Offset: offset}
}

// BlockCount returns the number of blocks covered by the span.
func (s Span) BlockCount() int {
	return int(s.End - s.Begin)
}

// BlockLen returns the byte length covered by the span.
func (s Span) BlockLen() int {
	return s.BlockCount() * BlkSize
}

// SplitTo splits the span at block index at, mutating s to become the
// remainder [at, End) and returning the prefix [Begin, at) as a new span.
// at must be within (Begin, End].
func (s *Span) SplitTo(at uint64) Span {
	if at < s.Begin || at > s.End {
		panic("types: split point out of range")
	}
	ret := Span{Begin: s.Begin, End: at, Offset: s.Offset}
	s.Offset += uint64(ret.BlockLen())
	s.Begin = at
	return ret
}

// Addr is an ordered list of spans plus the total byte length they
// represent. Adjacent spans are merged where possible.
type Addr struct {
	Len  int
	List []Span
}

// Append adds blkCnt blocks starting at beginIdx, contributing len bytes
// to the address's total length. If the new span is contiguous with the
// last span in the list, the two are merged.
func (a *Addr) Append(beginIdx uint64, blkCnt int, length int) {
	endIdx := beginIdx + uint64(blkCnt)

	if len(a.List) == 0 {
		a.List = append(a.List, NewSpan(beginIdx, endIdx, 0))
		a.Len = length
		return
	}

	last := &a.List[len(a.List)-1]
	if beginIdx == last.End {
		last.End += uint64(blkCnt)
	} else {
		a.List = append(a.List, NewSpan(beginIdx, endIdx, uint64(a.Len)))
	}
	a.Len += length
}

// SplitToFrames breaks the address into one Addr per frame, so each piece
// can be handed to the cipher independently. A span that straddles a frame
// boundary is split across the two frames it touches.
func (a *Addr) SplitToFrames() []Addr {
	frames := []Addr{{}}
	frmIdx := 0
	blksCnt := 0

	for _, orig := range a.List {
		span := orig
		span.Offset = uint64(frmIdx*FrameSize + blksCnt*BlkSize)

		for {
			blksLeft := BlksPerFrame - blksCnt

			if span.BlockCount() <= blksLeft {
				frames[frmIdx].List = append(frames[frmIdx].List, span)
				blksCnt += span.BlockCount()
				break
			}

			at := span.Begin + uint64(blksLeft)
			split := span.SplitTo(at)

			frames[frmIdx].List = append(frames[frmIdx].List, split)
			frames[frmIdx].Len = FrameSize
			frames = append(frames, Addr{})
			frmIdx++
			blksCnt = 0
		}
	}

	frames[len(frames)-1].Len = a.Len - frmIdx*FrameSize
	return frames
}
