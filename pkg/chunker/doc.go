/*
Package chunker implements content-defined chunking and the content map:
it breaks a file's staged bytes into variable-size, hash-addressed
chunks, deduplicates identical chunks across the whole repo via a
refcounted map, and persists new chunks as encrypted content entities on
the volume's block store.

Chunk boundaries are found with a buzhash rolling hash over a fixed
window, so two byte ranges with identical content produce identical
chunk boundaries regardless of where they sit in their respective files.
This is what lets two unrelated files with the same payload share
storage.
*/
package chunker
