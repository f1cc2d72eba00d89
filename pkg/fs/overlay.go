package fs

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/chunker"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/emap"
	"github.com/cuemby/cryptofs/pkg/fnode"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/cuemby/cryptofs/pkg/volume"
)

// Overlay resolves paths to FNodes and carries out the directory/file
// operations. It holds no transaction state of its own: every mutating
// method takes the caller's in-flight *txn.Txn and stages
// its writes against it, leaving Prepare/commit/Dispose to the repo
// layer that owns the transaction's lifetime.
type Overlay struct {
	backend      backend.Backend
	alloc        *volume.Allocator
	crypto       crypto.Crypto
	contentKey   crypto.Key
	contentMap   *chunker.ContentMap
	emap         *emap.Emap
	root         types.Eid
	readOnly     bool
	versionLimit uint8
}

// New builds an Overlay rooted at root. versionLimit is the default
// per-file version ring depth used when a caller doesn't override it at
// open time.
func New(b backend.Backend, alloc *volume.Allocator, cr crypto.Crypto, contentKey crypto.Key, cm *chunker.ContentMap, em *emap.Emap, root types.Eid, readOnly bool, versionLimit uint8) *Overlay {
	return &Overlay{
		backend:      b,
		alloc:        alloc,
		crypto:       cr,
		contentKey:   contentKey,
		contentMap:   cm,
		emap:         em,
		root:         root,
		readOnly:     readOnly,
		versionLimit: versionLimit,
	}
}

// InitRoot persists an empty root directory at the overlay's root eid.
// Called once, by the repo layer, when a brand-new repository is
// created; an already-populated root is left untouched by every other
// operation in this package.
func (o *Overlay) InitRoot(tx *txn.Txn) error {
	return o.persist(tx, o.root, fnode.NewDir())
}

func (o *Overlay) checkWritable(op string) error {
	if o.readOnly {
		return apperr.ReadOnly(op)
	}
	return nil
}

// Root returns the overlay's root directory entity id.
func (o *Overlay) Root() types.Eid { return o.root }

// ContentMap exposes the dedup table so the repo layer can persist it in
// the super block's bootstrap payload.
func (o *Overlay) ContentMap() *chunker.ContentMap { return o.contentMap }

// Allocator exposes the block allocator so the repo layer can persist its
// watermark in the super block's bootstrap payload.
func (o *Overlay) Allocator() *volume.Allocator { return o.alloc }

// EmapCacheLen reports how many entity map nodes are currently cached in
// memory, for the metrics collector's gauge.
func (o *Overlay) EmapCacheLen() int { return o.emap.CacheLen() }

// VersionLimit returns the overlay's configured default version ring
// depth, so the repo layer can carry it across reopen.
func (o *Overlay) VersionLimit() uint8 { return o.versionLimit }

func (o *Overlay) loadNode(eid types.Eid) (*fnode.FNode, error) {
	payload, err := o.emap.GetPayload(eid)
	if err != nil {
		return nil, err
	}
	return fnode.Decode(payload)
}

// persist stages eid's record (created or modified) against tx and
// commits it through the entity map immediately: visibility to other
// readers is controlled by the super-block flip, not by emap.Commit, so
// committing here only promotes the mask this same transaction staged.
func (o *Overlay) persist(tx *txn.Txn, eid types.Eid, f *fnode.FNode) error {
	loc := types.NewLoc(eid, tx.ID())
	if err := o.emap.Put(loc); err != nil {
		return err
	}
	if err := o.emap.SetPayload(eid, fnode.Encode(f)); err != nil {
		return err
	}
	if err := o.emap.Commit(loc); err != nil {
		return err
	}
	tx.LogPutAddress(eid)
	tx.LogPutEmap(eid)
	return nil
}

// deleteEntity stages eid's removal against tx.
func (o *Overlay) deleteEntity(tx *txn.Txn, eid types.Eid) error {
	loc := types.NewLoc(eid, tx.ID())
	if err := o.emap.Del(loc); err != nil {
		return err
	}
	if err := o.emap.Commit(loc); err != nil {
		return err
	}
	tx.LogDelAddress(eid)
	tx.LogPutEmap(eid)
	return nil
}

// RollbackTxn undoes every entity map write tx staged through persist and
// deleteEntity, for a transaction that failed before the super-block
// flip that would have made those writes durable: each commit above
// landed in the entity's inactive arm, so undoing it is just deleting
// the arm tx's id wrote, leaving whatever was committed before tx
// started as the sole surviving record. It has no effect on backend
// block ranges or the content map — a failed transaction never advances
// the allocator watermark or mutates the content map's encoded snapshot
// in a way the repo layer persists, since that only happens in the
// bootstrap payload written by a successful super-block flip.
func (o *Overlay) RollbackTxn(tx *txn.Txn) error {
	for _, e := range tx.Entries() {
		switch e.Op {
		case txn.OpPutAddr, txn.OpDelAddr, txn.OpPutEmap:
			if err := o.emap.RollbackPut(e.Eid, e.Txid); err != nil {
				return err
			}
		}
	}
	return nil
}

// releaseVersion drops the content-map refcount of every segment in v,
// freeing any content entity whose refcount reaches zero and logging
// its blocks as deleted during the commit's recycle phase.
func (o *Overlay) releaseVersion(tx *txn.Txn, eid types.Eid, v types.Version) error {
	for _, addr := range chunker.Release(o.contentMap, v.Segments) {
		if err := volume.DeleteData(o.backend, addr); err != nil {
			return err
		}
		for _, span := range addr.List {
			tx.LogDelBlocks(eid, span)
		}
	}
	return nil
}

// resolve walks path from the root, returning the eid and FNode of the
// final component. The root itself resolves to (o.root, rootNode, nil).
func (o *Overlay) resolve(path string) (types.Eid, *fnode.FNode, error) {
	cur := o.root
	node, err := o.loadNode(cur)
	if err != nil {
		return types.Eid{}, nil, err
	}
	for _, part := range splitPath(path) {
		if !node.IsDir() {
			return types.Eid{}, nil, apperr.NotDir("fs.resolve")
		}
		child, ok := node.Lookup(part)
		if !ok {
			return types.Eid{}, nil, apperr.NotFound("fs.resolve")
		}
		cur = child
		node, err = o.loadNode(cur)
		if err != nil {
			return types.Eid{}, nil, err
		}
	}
	return cur, node, nil
}

// resolveParent resolves path's parent directory, returning the parent's
// eid, its FNode, and path's base name. path must name a non-root entry.
func (o *Overlay) resolveParent(path string) (types.Eid, *fnode.FNode, string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return types.Eid{}, nil, "", apperr.IsRoot("fs.resolveParent")
	}
	parentEid, parentNode, err := o.resolve(parentPath(parts))
	if err != nil {
		return types.Eid{}, nil, "", err
	}
	if !parentNode.IsDir() {
		return types.Eid{}, nil, "", apperr.NotDir("fs.resolveParent")
	}
	return parentEid, parentNode, parts[len(parts)-1], nil
}
