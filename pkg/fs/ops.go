package fs

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/fnode"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/cuemby/cryptofs/pkg/types"
)

// CreateFile creates an empty file at path. Errors: NotDir (an
// intermediate component isn't a directory), AlreadyExists, ReadOnly.
func (o *Overlay) CreateFile(tx *txn.Txn, path string) (types.Eid, error) {
	if err := o.checkWritable("fs.CreateFile"); err != nil {
		return types.Eid{}, err
	}
	parentEid, parentNode, name, err := o.resolveParent(path)
	if err != nil {
		return types.Eid{}, err
	}
	if _, exists := parentNode.Lookup(name); exists {
		return types.Eid{}, apperr.AlreadyExists("fs.CreateFile")
	}

	eid := types.NewEid()
	f := fnode.NewFile(o.versionLimit)
	if err := o.persist(tx, eid, f); err != nil {
		return types.Eid{}, err
	}

	parentNode.AddEntry(name, eid)
	if err := o.persist(tx, parentEid, parentNode); err != nil {
		return types.Eid{}, err
	}
	return eid, nil
}

// CreateDir creates an empty directory at path, requiring the parent to
// already exist. Errors: NotDir, AlreadyExists, NotFound.
func (o *Overlay) CreateDir(tx *txn.Txn, path string) (types.Eid, error) {
	if err := o.checkWritable("fs.CreateDir"); err != nil {
		return types.Eid{}, err
	}
	parentEid, parentNode, name, err := o.resolveParent(path)
	if err != nil {
		return types.Eid{}, err
	}
	if _, exists := parentNode.Lookup(name); exists {
		return types.Eid{}, apperr.AlreadyExists("fs.CreateDir")
	}

	eid := types.NewEid()
	if err := o.persist(tx, eid, fnode.NewDir()); err != nil {
		return types.Eid{}, err
	}

	parentNode.AddEntry(name, eid)
	if err := o.persist(tx, parentEid, parentNode); err != nil {
		return types.Eid{}, err
	}
	return eid, nil
}

// CreateDirAll creates path and every missing intermediate directory,
// succeeding as a no-op on a path that already exists as a directory.
func (o *Overlay) CreateDirAll(tx *txn.Txn, path string) error {
	if err := o.checkWritable("fs.CreateDirAll"); err != nil {
		return err
	}
	parts := splitPath(path)
	built := "/"
	for _, part := range parts {
		built += part
		_, node, err := o.resolve(built)
		switch {
		case err == nil:
			if !node.IsDir() {
				return apperr.NotDir("fs.CreateDirAll")
			}
		case apperr.Is(err, apperr.KindNotFound):
			if _, cerr := o.CreateDir(tx, built); cerr != nil {
				return cerr
			}
		default:
			return err
		}
		built += "/"
	}
	return nil
}

// ReadDir lists the entries of the directory at path. Errors: NotFound,
// NotDir.
func (o *Overlay) ReadDir(path string) ([]fnode.DirEntry, error) {
	_, node, err := o.resolve(path)
	if err != nil {
		return nil, err
	}
	if !node.IsDir() {
		return nil, apperr.NotDir("fs.ReadDir")
	}
	return append([]fnode.DirEntry(nil), node.Entries...), nil
}

// RemoveFile deletes the file at path, releasing every retained
// version's content-map references. Errors: NotFound, IsDir.
func (o *Overlay) RemoveFile(tx *txn.Txn, path string) error {
	if err := o.checkWritable("fs.RemoveFile"); err != nil {
		return err
	}
	parentEid, parentNode, name, err := o.resolveParent(path)
	if err != nil {
		return err
	}
	childEid, ok := parentNode.Lookup(name)
	if !ok {
		return apperr.NotFound("fs.RemoveFile")
	}
	node, err := o.loadNode(childEid)
	if err != nil {
		return err
	}
	if node.IsDir() {
		return apperr.IsDir("fs.RemoveFile")
	}

	for _, v := range node.History() {
		if err := o.releaseVersion(tx, childEid, v); err != nil {
			return err
		}
	}
	if err := o.deleteEntity(tx, childEid); err != nil {
		return err
	}

	parentNode.RemoveEntry(name)
	return o.persist(tx, parentEid, parentNode)
}

// RemoveDir deletes the empty directory at path. Errors: NotFound,
// NotDir, NotEmpty, IsRoot.
func (o *Overlay) RemoveDir(tx *txn.Txn, path string) error {
	if err := o.checkWritable("fs.RemoveDir"); err != nil {
		return err
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return apperr.IsRoot("fs.RemoveDir")
	}
	parentEid, parentNode, name, err := o.resolveParent(path)
	if err != nil {
		return err
	}
	childEid, ok := parentNode.Lookup(name)
	if !ok {
		return apperr.NotFound("fs.RemoveDir")
	}
	node, err := o.loadNode(childEid)
	if err != nil {
		return err
	}
	if !node.IsDir() {
		return apperr.NotDir("fs.RemoveDir")
	}
	if len(node.Entries) > 0 {
		return apperr.NotEmpty("fs.RemoveDir")
	}

	if err := o.deleteEntity(tx, childEid); err != nil {
		return err
	}
	parentNode.RemoveEntry(name)
	return o.persist(tx, parentEid, parentNode)
}

// RemoveDirAll recursively removes path and everything under it,
// including files' content. Unlike RemoveDir, IsRoot is not restricted:
// removing the root wipes the whole repository's tree.
func (o *Overlay) RemoveDirAll(tx *txn.Txn, path string) error {
	if err := o.checkWritable("fs.RemoveDirAll"); err != nil {
		return err
	}
	eid, node, err := o.resolve(path)
	if err != nil {
		return err
	}
	if err := o.removeTreeContents(tx, eid, node); err != nil {
		return err
	}

	parts := splitPath(path)
	if len(parts) == 0 {
		// Root itself is never deleted from the entity map; it's
		// reset to an empty directory in place.
		return o.persist(tx, eid, node)
	}

	parentEid, parentNode, name, err := o.resolveParent(path)
	if err != nil {
		return err
	}
	if err := o.deleteEntity(tx, eid); err != nil {
		return err
	}
	parentNode.RemoveEntry(name)
	return o.persist(tx, parentEid, parentNode)
}

// removeTreeContents recursively tears down every child of node
// in-place (files release their content, directories recurse), leaving
// node itself an empty directory for the caller to either keep (root)
// or delete.
func (o *Overlay) removeTreeContents(tx *txn.Txn, eid types.Eid, node *fnode.FNode) error {
	for _, entry := range append([]fnode.DirEntry(nil), node.Entries...) {
		child, err := o.loadNode(entry.ChildEid)
		if err != nil {
			return err
		}
		if child.IsDir() {
			if err := o.removeTreeContents(tx, entry.ChildEid, child); err != nil {
				return err
			}
		} else {
			for _, v := range child.History() {
				if err := o.releaseVersion(tx, entry.ChildEid, v); err != nil {
					return err
				}
			}
		}
		if err := o.deleteEntity(tx, entry.ChildEid); err != nil {
			return err
		}
	}
	node.Entries = nil
	return nil
}

// History returns every retained version of the file at path, oldest
// first. Errors: NotFound, IsDir.
func (o *Overlay) History(path string) ([]types.Version, error) {
	_, node, err := o.resolve(path)
	if err != nil {
		return nil, err
	}
	if node.IsDir() {
		return nil, apperr.IsDir("fs.History")
	}
	return node.History(), nil
}
