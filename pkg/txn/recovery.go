package txn

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/emap"
	"github.com/cuemby/cryptofs/pkg/types"
)

// Recover inspects the WAL record left behind by txid, if any, and either
// rolls it back (committed == false: the super-block never referenced
// this txn's new objects, so every staged address and block range is
// orphaned garbage) or simply finishes disposing it (committed == true:
// the super-block flip already succeeded, only the post-commit WAL
// cleanup didn't complete). Rollback is handed em so it can undo an
// OpPutAddr/OpPutEmap entry by deleting only the armored node's inactive
// arm that txid wrote, rather than the whole entity: an Eid reused
// across versions (a modify, not a create) still has its last-committed
// body sitting untouched in the other arm.
//
// It returns the entries found, mainly so the caller can log what was
// rolled back; a txn with no WAL record at all (nothing was ever staged,
// or a previous Recover/Dispose already cleaned it up) returns a nil
// slice and no error.
func Recover(b backend.Backend, em *emap.Emap, txid types.Txid, committed bool) ([]Entry, error) {
	buf, err := b.GetWAL(walKey(txid))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}

	entries, err := decodeLog(buf)
	if err != nil {
		return nil, err
	}

	if !committed {
		for _, e := range entries {
			if err := rollbackEntry(b, em, e); err != nil {
				return nil, err
			}
		}
	}

	if err := b.DelWAL(walKey(txid)); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	return entries, nil
}

func rollbackEntry(b backend.Backend, em *emap.Emap, e Entry) error {
	switch e.Op {
	case OpPutAddr, OpPutEmap:
		if err := em.RollbackPut(e.Eid, e.Txid); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	case OpPutBlocks:
		span, err := decodeSpan(e.Payload)
		if err != nil {
			return err
		}
		if err := b.DelBlocks(span); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	case OpDelAddr, OpDelBlocks:
		// The delete itself already happened against the backend before
		// this txn crashed; there's nothing to undo — the entity stays
		// deleted. A "resurrect on rollback" policy would need the old
		// bytes kept around, which this WAL format doesn't carry.
	}
	return nil
}
