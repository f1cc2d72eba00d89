package fs

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/fnode"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/cuemby/cryptofs/pkg/types"
)

// Copy creates to as a new file carrying from's current content,
// sharing (and ref-counting) from's content-defined chunks rather than
// re-writing them. Errors: NotFound, NotFile (either side is a
// directory).
func (o *Overlay) Copy(tx *txn.Txn, from, to string) error {
	if err := o.checkWritable("fs.Copy"); err != nil {
		return err
	}

	_, fromNode, err := o.resolve(from)
	if err != nil {
		return err
	}
	if fromNode.IsDir() {
		return apperr.NotFile("fs.Copy")
	}

	toParentEid, toParentNode, toName, err := o.resolveParent(to)
	if err != nil {
		return err
	}
	if existingEid, exists := toParentNode.Lookup(toName); exists {
		existingNode, err := o.loadNode(existingEid)
		if err != nil {
			return err
		}
		if existingNode.IsDir() {
			return apperr.NotFile("fs.Copy")
		}
		for _, v := range existingNode.History() {
			if err := o.releaseVersion(tx, existingEid, v); err != nil {
				return err
			}
		}
		if err := o.deleteEntity(tx, existingEid); err != nil {
			return err
		}
	}

	newEid := types.NewEid()
	newNode := fnode.NewFile(fromNode.VersionLimit)
	if v, verr := fromNode.Latest(); verr == nil {
		for _, seg := range v.Segments {
			o.contentMap.IncRef(seg.Hash)
		}
		newNode.AppendVersion(v.Segments, v.Len)
	} else if !apperr.Is(verr, apperr.KindNoVersion) {
		return verr
	}

	if err := o.persist(tx, newEid, newNode); err != nil {
		return err
	}
	toParentNode.AddEntry(toName, newEid)
	return o.persist(tx, toParentEid, toParentNode)
}
