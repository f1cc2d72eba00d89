/*
Package types defines the core identifiers and address primitives shared by
every layer of cryptofs: the entity id space, the transaction id space, and
the block-range bookkeeping (Span/Addr) that the volume and content layers
build on.

These types carry no behavior beyond bookkeeping — no I/O, no crypto. That
keeps them importable from every other package without risk of an import
cycle.

# Block layout

	BLK_SIZE          = 4096 bytes
	BLKS_PER_FRAME     = 16 blocks   (one frame = one encryption unit = 64 KiB)
	FRAME_SIZE         = BLK_SIZE * BLKS_PER_FRAME

A Span names a contiguous run of block indices plus the byte offset that
run occupies within its owning Addr. An Addr is an ordered list of Spans
plus the total byte length they represent; adjacent spans are merged on
Append, and SplitToFrames breaks a long Addr into per-frame pieces. The
volume layer's WriteData/ReadData split plaintext into frames themselves
and do not call it.
*/
package types
