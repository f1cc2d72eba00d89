/*
Package fnode implements the file/directory metadata node: for a file,
a bounded ring of Versions, each an ordered list of
content-defined chunk segments; for a directory, a sorted list of
name→child-entity entries. It also implements the copy-on-write write
path — open-for-write, staged random writes, set_len, and finish — that
turns a sequence of in-memory edits into a brand-new Version without
ever mutating an already-committed one.
*/
package fnode
