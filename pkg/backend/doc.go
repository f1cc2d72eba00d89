/*
Package backend implements the Backend capability — keyed object storage
for super-block arms, WAL entries, entity addresses, and block spans — and
the four implementations cryptofs ships: an in-memory map (tests), a
bbolt-backed local file store, a Redis-keyed store, and an HTTP object
store client fronted by a local LRU cache.

# Interface

Every Backend method may fail with apperr's NotFound, IOError, or a
backend-specific kind. Block operations are span-aligned: the byte length
passed to PutBlocks/GetBlocks always equals span.BlockCount() * BlkSize.

# Implementations

MemBackend is a plain mutex-guarded map, used by tests and by FaultyBackend
as its storage underneath. FileBackend stores everything in a single
bbolt database file rooted at a directory, one bucket per concern
(buckets: superblock, wal, address, blocks). RedisBackend keys objects as
"super_blk:<n>", "address:<eid>", "block:<idx>". HTTPBackend issues
PUT/GET/DELETE against a remote keyed object store and
is normally wrapped in a LocalCache, which transparently fetches absent
objects, tracks a remote update-sequence to detect staleness, and evicts
least-recently-used unpinned objects under a byte budget.

FaultyBackend wraps any Backend and injects I/O errors from scripted
faults (AddFault) and from a seeded math/rand source drawn once per call
(no precomputed sample buffer), so property/fuzz tests can reproduce a
specific failure sequence from a seed.
*/
package backend
