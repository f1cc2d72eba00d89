/*
Package volume implements the transactional storage layer's block
geometry: a monotonic block allocation watermark, the armored two-arm
super-block boot protocol, and the frame-level encryption that turns an
Addr into ciphertext blocks handed to a Backend.

# Allocation

Allocator hands out contiguous block ranges from a monotonic watermark.
Blocks are never reused within a volume's lifetime; reclaiming space is a
content-engine concern (refcounted dedup), not this layer's.

# Super block

SuperBlock is written to two alternating "arms" (fixed entity ids
LeftArmEid/RightArmEid) so a crash between writing and fsync-ing one arm
never destroys the other. On load, both arms are read and the one with
the higher sequence number wins; a corrupted or unreadable arm is logged
and skipped rather than failing the open, unless both arms are
unreadable. On-disk layout is header (salt | cost | cipher) followed by
an authenticated-encrypted body (seq | volume id | ctime | master key)
and an authenticated-encrypted opaque payload.

# Framing

WriteData/ReadData split the plaintext into pieces of at most
types.FrameSize bytes, store each piece's ciphertext in its own span, and
run each frame through its own AEAD seal/open call, so a single corrupted
frame doesn't invalidate sibling frames.
*/
package volume
