package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitToFrames(t *testing.T) {
	// #1: address smaller than a frame
	addr := Addr{Len: 3, List: []Span{{Begin: 0, End: 1, Offset: 0}}}
	frames := addr.SplitToFrames()
	assert.Len(t, frames, 1)
	assert.Equal(t, addr.Len, frames[0].Len)
	assert.Equal(t, addr.List[0], frames[0].List[0])

	// #2: address exactly equal to a frame
	addr = Addr{Len: FrameSize, List: []Span{{Begin: 0, End: BlksPerFrame, Offset: 0}}}
	frames = addr.SplitToFrames()
	assert.Len(t, frames, 1)
	assert.Equal(t, addr.Len, frames[0].Len)

	// #3: address greater than a frame by one block
	span := Span{Begin: 0, End: BlksPerFrame + 1, Offset: 0}
	addr = Addr{Len: FrameSize + 3, List: []Span{span}}
	frames = addr.SplitToFrames()
	assert.Len(t, frames, 2)
	assert.Equal(t, FrameSize, frames[0].Len)
	assert.Equal(t, Span{Begin: 0, End: BlksPerFrame, Offset: 0}, frames[0].List[0])
	assert.Equal(t, 3, frames[1].Len)
	assert.Equal(t, Span{Begin: BlksPerFrame, End: BlksPerFrame + 1, Offset: FrameSize}, frames[1].List[0])

	// #4: two spans, both smaller than a frame
	s1 := Span{Begin: 0, End: 1, Offset: 0}
	s2 := Span{Begin: 3, End: 4, Offset: BlkSize}
	addr = Addr{Len: BlkSize + 3, List: []Span{s1, s2}}
	frames = addr.SplitToFrames()
	assert.Len(t, frames, 1)
	assert.Equal(t, addr.Len, frames[0].Len)
	assert.Len(t, frames[0].List, 2)
	assert.Equal(t, s1, frames[0].List[0])
	assert.Equal(t, s2, frames[0].List[1])

	// #6: one span spanning two frames
	span = Span{Begin: 0, End: BlksPerFrame*2 + 1, Offset: 0}
	addr = Addr{Len: FrameSize*2 + 3, List: []Span{span}}
	frames = addr.SplitToFrames()
	assert.Len(t, frames, 3)
	assert.Equal(t, FrameSize, frames[0].Len)
	assert.Equal(t, FrameSize, frames[1].Len)
	assert.Equal(t, 3, frames[2].Len)
}

func TestAddrAppendMerge(t *testing.T) {
	var a Addr
	a.Append(0, 1, BlkSize)
	a.Append(1, 2, 2*BlkSize) // contiguous, should merge
	assert.Len(t, a.List, 1)
	assert.Equal(t, uint64(0), a.List[0].Begin)
	assert.Equal(t, uint64(3), a.List[0].End)
	assert.Equal(t, 3*BlkSize, a.Len)

	a.Append(10, 1, BlkSize) // not contiguous, new span
	assert.Len(t, a.List, 2)
	assert.Equal(t, uint64(3*BlkSize), a.List[1].Offset)
}

func TestEidRoundTrip(t *testing.T) {
	id := NewEid()
	assert.False(t, id.IsZero())
	parsed, err := EidFromHex(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestDelTxid(t *testing.T) {
	assert.True(t, DelTxid.IsDel())
	assert.False(t, Txid(1).IsDel())
}
