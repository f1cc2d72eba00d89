/*
Package repo is the top-level entry point: it parses a repo URI,
opens or creates the backend it names, boots the
super-block, and wires the volume allocator, content map, entity map,
transaction manager, and filesystem overlay into one handle. It owns
the commit choreography — stage writes, Prepare the WAL, flip the
super-block, Dispose the transaction — and crash recovery at Open time.
*/
package repo
