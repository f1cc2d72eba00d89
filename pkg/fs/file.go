package fs

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/chunker"
	"github.com/cuemby/cryptofs/pkg/fnode"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/cuemby/cryptofs/pkg/types"
)

// OpenOptions names a file's open modes.
type OpenOptions struct {
	Read         bool // every open file can be read; OpenFile does not consult this flag
	Write        bool
	Create       bool
	CreateNew    bool // AlreadyExists on an existing path
	Truncate     bool
	Append       bool
	VersionLimit uint8 // 0 means "use the overlay's default"
}

// File is a handle onto one open file's staged edits. Nothing it does is
// visible to another reader until Finish stages a new Version and the
// repo layer commits the owning transaction.
type File struct {
	o      *Overlay
	eid    types.Eid
	node   *fnode.FNode
	editor *fnode.Editor
}

// OpenFile resolves path and, depending on opts, creates it. Errors:
// NotFound, IsDir, ReadOnly (write requested against a read-only
// overlay), AlreadyExists (CreateNew against an existing path).
func (o *Overlay) OpenFile(tx *txn.Txn, path string, opts OpenOptions) (*File, error) {
	if (opts.Write || opts.Create || opts.CreateNew) && o.readOnly {
		return nil, apperr.ReadOnly("fs.OpenFile")
	}

	eid, node, err := o.resolve(path)
	switch {
	case err == nil:
		if opts.CreateNew {
			return nil, apperr.AlreadyExists("fs.OpenFile")
		}
		if node.IsDir() {
			return nil, apperr.IsDir("fs.OpenFile")
		}
	case apperr.Is(err, apperr.KindNotFound):
		if !opts.Create && !opts.CreateNew {
			return nil, err
		}
		versionLimit := opts.VersionLimit
		if versionLimit == 0 {
			versionLimit = o.versionLimit
		}
		newEid, cerr := o.CreateFile(tx, path)
		if cerr != nil {
			return nil, cerr
		}
		eid = newEid
		node = fnode.NewFile(versionLimit)
		if versionLimit != o.versionLimit {
			if perr := o.persist(tx, eid, node); perr != nil {
				return nil, perr
			}
		}
	default:
		return nil, err
	}

	var initial []byte
	if opts.Write && !opts.Truncate {
		v, verr := node.Latest()
		switch {
		case verr == nil:
			initial, err = chunker.Read(o.backend, o.crypto, o.contentKey, o.contentMap, v.Segments)
			if err != nil {
				return nil, err
			}
		case apperr.Is(verr, apperr.KindNoVersion):
			// brand-new file, nothing to seed the editor with
		default:
			return nil, verr
		}
	}

	return &File{o: o, eid: eid, node: node, editor: fnode.NewEditor(initial)}, nil
}

// Read returns the file's current committed content (its latest
// version). There is no partial or streaming read path.
func (f *File) Read() ([]byte, error) {
	v, err := f.node.Latest()
	if err != nil {
		if apperr.Is(err, apperr.KindNoVersion) {
			return nil, nil
		}
		return nil, err
	}
	return chunker.Read(f.o.backend, f.o.crypto, f.o.contentKey, f.o.contentMap, v.Segments)
}

// WriteAt stages an overwrite of the open file's staging buffer at a
// byte offset, zero-filling any gap and growing the buffer as needed.
// Only valid on a file opened for write.
func (f *File) WriteAt(off int64, data []byte) {
	f.editor.WriteAt(off, data)
}

// Write appends data to the end of the staging buffer, the convenience
// used by the append open mode.
func (f *File) Write(data []byte) {
	f.editor.WriteAt(int64(f.editor.Len()), data)
}

// SetLen truncates or zero-extends the staging buffer.
func (f *File) SetLen(n uint64) {
	f.editor.SetLen(n)
}

// Len reports the staging buffer's current length.
func (f *File) Len() int {
	return f.editor.Len()
}

// Finish re-chunks the staging buffer through the content-defined
// chunker, appends the resulting segment list as a new Version,
// releases any version the ring evicts, and persists the file's
// updated metadata against tx. The caller's transaction is not
// committed by Finish; that's the repo layer's job.
func (f *File) Finish(tx *txn.Txn) (types.Version, error) {
	segments, err := chunker.Chunk(f.o.backend, f.o.alloc, f.o.crypto, f.o.contentKey, f.o.contentMap, f.editor.Bytes())
	if err != nil {
		return types.Version{}, err
	}

	newVersion, evicted := f.node.AppendVersion(segments, uint64(len(f.editor.Bytes())))
	if len(evicted) > 0 {
		if err := f.o.releaseVersion(tx, f.eid, types.Version{Segments: evicted}); err != nil {
			return types.Version{}, err
		}
	}
	if err := f.o.persist(tx, f.eid, f.node); err != nil {
		return types.Version{}, err
	}
	return newVersion, nil
}

// Abandon discards the staging buffer without persisting anything.
// Nothing was written to durable storage prematurely: every chunk
// written by a prior Finish call was already txn-scoped, and an
// in-progress editor never touches the backend at all until Finish.
func (f *File) Abandon() {
	f.editor = nil
}
