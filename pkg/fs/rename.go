package fs

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/fnode"
	"github.com/cuemby/cryptofs/pkg/txn"
)

// Rename moves from to to, atomically within tx; renaming a path onto
// itself is a no-op. Errors: NotFound,
// InvalidArgument (to nested under from), IsRoot, IsDir/NotDir
// (type mismatch against an existing to), NotEmpty (to is a non-empty
// directory).
func (o *Overlay) Rename(tx *txn.Txn, from, to string) error {
	if err := o.checkWritable("fs.Rename"); err != nil {
		return err
	}

	fromParts := splitPath(from)
	toParts := splitPath(to)
	if len(fromParts) == 0 {
		return apperr.IsRoot("fs.Rename")
	}
	if pathsEqual(fromParts, toParts) {
		if _, _, err := o.resolve(from); err != nil {
			return err
		}
		return nil
	}
	if isUnder(fromParts, toParts) {
		return apperr.InvalidArgument("fs.Rename")
	}

	fromParentEid, _, fromName, err := o.resolveParent(from)
	if err != nil {
		return err
	}
	if len(toParts) == 0 {
		return apperr.IsRoot("fs.Rename")
	}
	toParentEid, _, toName, err := o.resolveParent(to)
	if err != nil {
		return err
	}

	if fromParentEid == toParentEid {
		parent, err := o.loadNode(fromParentEid)
		if err != nil {
			return err
		}
		movedEid, ok := parent.Lookup(fromName)
		if !ok {
			return apperr.NotFound("fs.Rename")
		}
		movedNode, err := o.loadNode(movedEid)
		if err != nil {
			return err
		}
		if err := o.replaceDestination(tx, parent, toName, movedNode); err != nil {
			return err
		}
		parent.RemoveEntry(fromName)
		parent.AddEntry(toName, movedEid)
		return o.persist(tx, fromParentEid, parent)
	}

	fromParent, err := o.loadNode(fromParentEid)
	if err != nil {
		return err
	}
	toParent, err := o.loadNode(toParentEid)
	if err != nil {
		return err
	}
	movedEid, ok := fromParent.Lookup(fromName)
	if !ok {
		return apperr.NotFound("fs.Rename")
	}
	movedNode, err := o.loadNode(movedEid)
	if err != nil {
		return err
	}
	if err := o.replaceDestination(tx, toParent, toName, movedNode); err != nil {
		return err
	}

	fromParent.RemoveEntry(fromName)
	toParent.AddEntry(toName, movedEid)

	if err := o.persist(tx, fromParentEid, fromParent); err != nil {
		return err
	}
	return o.persist(tx, toParentEid, toParent)
}

// replaceDestination deletes whatever currently occupies toName inside
// destParent, if anything, provided it's type-compatible with moved and
// (for a directory) empty.
func (o *Overlay) replaceDestination(tx *txn.Txn, destParent *fnode.FNode, toName string, moved *fnode.FNode) error {
	existingEid, exists := destParent.Lookup(toName)
	if !exists {
		return nil
	}
	existing, err := o.loadNode(existingEid)
	if err != nil {
		return err
	}
	if existing.IsDir() != moved.IsDir() {
		if moved.IsDir() {
			return apperr.NotDir("fs.Rename")
		}
		return apperr.IsDir("fs.Rename")
	}
	if existing.IsDir() && len(existing.Entries) > 0 {
		return apperr.NotEmpty("fs.Rename")
	}
	if !existing.IsDir() {
		for _, v := range existing.History() {
			if err := o.releaseVersion(tx, existingEid, v); err != nil {
				return err
			}
		}
	}
	return o.deleteEntity(tx, existingEid)
}

func pathsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
