package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the exhaustive error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota

	// Repository
	KindRepoOpened
	KindRepoExists
	KindRepoClosed
	KindInvalidArgument
	KindInvalidUri
	KindReadOnly
	KindNotInSync
	KindInvalidSuperBlk

	// Path / FS
	KindNotFound
	KindAlreadyExists
	KindIsRoot
	KindIsDir
	KindNotDir
	KindIsFile
	KindNotFile
	KindNotEmpty
	KindNoVersion

	// Txn
	KindInTrans
	KindNoTrans
	KindUncompleted

	// Storage / Backend
	KindIOError
	KindNotWritten
	KindHttpStatus
	KindRequestError
	KindNoEntity

	// Crypto
	KindEncrypt
	KindDecrypt
	KindHashing

	// Refcount / integrity
	KindRefOverflow
	KindRefUnderflow
)

func (k Kind) String() string {
	switch k {
	case KindRepoOpened:
		return "RepoOpened"
	case KindRepoExists:
		return "RepoExists"
	case KindRepoClosed:
		return "RepoClosed"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindInvalidUri:
		return "InvalidUri"
	case KindReadOnly:
		return "ReadOnly"
	case KindNotInSync:
		return "NotInSync"
	case KindInvalidSuperBlk:
		return "InvalidSuperBlk"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindIsRoot:
		return "IsRoot"
	case KindIsDir:
		return "IsDir"
	case KindNotDir:
		return "NotDir"
	case KindIsFile:
		return "IsFile"
	case KindNotFile:
		return "NotFile"
	case KindNotEmpty:
		return "NotEmpty"
	case KindNoVersion:
		return "NoVersion"
	case KindInTrans:
		return "InTrans"
	case KindNoTrans:
		return "NoTrans"
	case KindUncompleted:
		return "Uncompleted"
	case KindIOError:
		return "IOError"
	case KindNotWritten:
		return "NotWritten"
	case KindHttpStatus:
		return "HttpStatus"
	case KindRequestError:
		return "RequestError"
	case KindNoEntity:
		return "NoEntity"
	case KindEncrypt:
		return "Encrypt"
	case KindDecrypt:
		return "Decrypt"
	case KindHashing:
		return "Hashing"
	case KindRefOverflow:
		return "RefOverflow"
	case KindRefUnderflow:
		return "RefUnderflow"
	default:
		return "Unknown"
	}
}

// E is the concrete error type carried through the tree: a Kind, the
// operation that produced it, and an optional wrapped cause.
type E struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *E) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return e.Kind.String()
}

func (e *E) Unwrap() error {
	return e.Err
}

// New creates an *E for kind with no wrapped cause.
func New(kind Kind, op string) error {
	return &E{Kind: kind, Op: op}
}

// Wrap creates an *E for kind, wrapping cause.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return New(kind, op)
	}
	return &E{Kind: kind, Op: op, Err: cause}
}

// Is reports whether the first *E in err's chain (err itself or an error
// it wraps) carries the given Kind. An *E nested inside that first one is
// not checked.
func Is(err error, kind Kind) bool {
	var e *E
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or KindUnknown if err isn't an *E.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinel convenience constructors for callers that just want
// `return apperr.NotFound("open")`.
func NotFound(op string) error        { return New(KindNotFound, op) }
func AlreadyExists(op string) error   { return New(KindAlreadyExists, op) }
func IsRoot(op string) error          { return New(KindIsRoot, op) }
func IsDir(op string) error           { return New(KindIsDir, op) }
func NotDir(op string) error          { return New(KindNotDir, op) }
func IsFile(op string) error          { return New(KindIsFile, op) }
func NotFile(op string) error         { return New(KindNotFile, op) }
func NotEmpty(op string) error        { return New(KindNotEmpty, op) }
func NoVersion(op string) error       { return New(KindNoVersion, op) }
func InTrans(op string) error         { return New(KindInTrans, op) }
func NoTrans(op string) error         { return New(KindNoTrans, op) }
func ReadOnly(op string) error        { return New(KindReadOnly, op) }
func InvalidArgument(op string) error { return New(KindInvalidArgument, op) }

// Fatal reports a corruption-level invariant violation (refcount
// underflow, etc). It is never returned as an error value — the
// propagation policy treats these as process-level assertions because
// they indicate the data structures themselves are corrupt, not that an
// operation merely failed.
func Fatal(msg string) {
	panic("cryptofs: fatal invariant violation: " + msg)
}
