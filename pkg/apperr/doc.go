/*
Package apperr implements the error taxonomy every layer of cryptofs
reports through: repository/session errors, path/filesystem errors,
transaction errors, storage/backend errors, crypto errors, and the
refcount/integrity invariants.

There are no sentinel error values: every error is an *E, built with
New, Wrap or a per-kind constructor (NotFound, InTrans, ...), that
carries a Kind, the offending operation and the underlying cause. It is
checked with apperr.Is(err, Kind), so a backend implementation can wrap its own
transport error (a redis.Error, an *os.PathError, an HTTP status) without
losing the taxonomy the rest of the tree switches on.

Refcount underflow is the one kind that is never returned to a caller: it
indicates the content map or a version ring has been corrupted, and
apperr.Fatal panics the process rather than let the corruption propagate
silently, matching the propagation policy in the core design.
*/
package apperr
