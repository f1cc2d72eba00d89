/*
Package fs is the path-keyed overlay on top of the entity map and
chunker: directories are FNodes whose body is a sorted list of (name,
child Eid), the root has a well-known Eid carried in the
super-block's payload, and path resolution walks segments left to
right through directory FNodes. Mutating operations stage their writes
against a caller-supplied transaction; it's the repo layer's job to
Prepare/flip the super-block/Dispose that transaction once every
operation inside it has staged successfully.
*/
package fs
