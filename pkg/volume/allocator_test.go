package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorAdvancesWatermark(t *testing.T) {
	a := NewAllocator()
	assert.Equal(t, uint64(0), a.Watermark())

	addr := a.Alloc(4096 * 3)
	assert.Equal(t, uint64(3), a.Watermark())
	assert.Equal(t, 4096*3, addr.Len)
	assert.Equal(t, uint64(0), addr.List[0].Begin)
	assert.Equal(t, uint64(3), addr.List[0].End)

	addr2 := a.Alloc(1) // rounds up to one block
	assert.Equal(t, uint64(4), a.Watermark())
	assert.Equal(t, uint64(3), addr2.List[0].Begin)
}

func TestAllocatorNeverReuses(t *testing.T) {
	a := NewAllocator()
	first := a.Alloc(4096)
	second := a.Alloc(4096)
	assert.NotEqual(t, first.List[0].Begin, second.List[0].Begin)
}

func TestRestoreAllocatorContinuesFromWatermark(t *testing.T) {
	a := RestoreAllocator(100)
	addr := a.Alloc(4096)
	assert.Equal(t, uint64(100), addr.List[0].Begin)
}

func TestAllocatorZeroSizeAllocatesNothing(t *testing.T) {
	a := NewAllocator()
	addr := a.Alloc(0)
	assert.Equal(t, 0, addr.Len)
	assert.Empty(t, addr.List)
	assert.Equal(t, uint64(0), a.Watermark())
}
