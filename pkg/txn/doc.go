/*
Package txn implements the write-ahead transaction protocol: a single
in-flight writing transaction per process (the "global transaction
latch"), a write-ahead log of which entities a
transaction touched, and crash recovery that rolls back an uncommitted
transaction's staged objects or finishes disposing a committed one whose
post-commit cleanup didn't complete.

This package owns only the WAL bookkeeping and the begin/commit/abort
latch; the surrounding choreography — writing dirty blocks and addresses,
running the recycle phase, flipping the super-block's active arm — is
owned by package repo, which is the only caller that has all of those
collaborators (volume, emap, chunker) in hand at once.
*/
package txn
