package volume

import (
	"github.com/cuemby/cryptofs/pkg/metrics"
	"github.com/cuemby/cryptofs/pkg/types"
)

// Allocator hands out contiguous, ever-increasing block ranges. It holds
// no free list: once allocated, a block index is never reused for the
// life of the volume.
type Allocator struct {
	wmark uint64
}

// NewAllocator starts a fresh allocator at block index 0.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// RestoreAllocator rebuilds an allocator whose watermark was already
// advanced to wmark by prior allocations, e.g. after loading a super
// block's payload.
func RestoreAllocator(wmark uint64) *Allocator {
	return &Allocator{wmark: wmark}
}

// Watermark returns the next block index that would be handed out.
func (a *Allocator) Watermark() uint64 {
	return a.wmark
}

// Alloc reserves enough blocks to hold size bytes and returns the
// resulting address.
func (a *Allocator) Alloc(size int) types.Addr {
	if size == 0 {
		return types.Addr{}
	}
	blkCnt := (size + types.BlkSize - 1) / types.BlkSize
	begin := a.wmark
	a.wmark += uint64(blkCnt)
	metrics.BackendBlocksAllocated.Add(float64(blkCnt))

	var addr types.Addr
	addr.Append(begin, blkCnt, size)
	return addr
}

// AllocBlocks reserves n contiguous blocks and returns the first block
// index of the reservation, without wrapping the result in an Addr. Used
// where the caller needs precise, unmerged control over span boundaries,
// e.g. one span per encryption frame.
func (a *Allocator) AllocBlocks(n int) uint64 {
	begin := a.wmark
	a.wmark += uint64(n)
	metrics.BackendBlocksAllocated.Add(float64(n))
	return begin
}
