package fnode

import (
	"sort"
	"time"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/types"
)

// DefaultVersionLimit is the per-file version ring depth used when a
// caller doesn't request an override.
const DefaultVersionLimit = 16

// Kind distinguishes a file FNode from a directory FNode.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
)

// DirEntry is one name→child mapping inside a directory FNode.
type DirEntry struct {
	Name     string
	ChildEid types.Eid
}

// FNode is the path-addressed metadata record for one file or directory:
// a file owns a bounded ring of Versions, a directory owns a sorted
// list of DirEntry.
type FNode struct {
	Kind           Kind
	Ctime          time.Time
	VersionLimit   uint8 // files only, 1..255
	Versions       []types.Version
	NextVersionNum uint64
	Entries        []DirEntry // dirs only, sorted by Name
}

// NewFile builds an empty file FNode with no versions yet.
func NewFile(versionLimit uint8) *FNode {
	if versionLimit == 0 {
		versionLimit = DefaultVersionLimit
	}
	return &FNode{Kind: KindFile, Ctime: time.Now(), VersionLimit: versionLimit}
}

// NewDir builds an empty directory FNode.
func NewDir() *FNode {
	return &FNode{Kind: KindDir, Ctime: time.Now()}
}

func (f *FNode) IsDir() bool  { return f.Kind == KindDir }
func (f *FNode) IsFile() bool { return f.Kind == KindFile }

// Latest returns the most recent version. A file that was created but
// never successfully finished a write has no version at all.
func (f *FNode) Latest() (types.Version, error) {
	if len(f.Versions) == 0 {
		return types.Version{}, apperr.NoVersion("fnode.Latest")
	}
	return f.Versions[len(f.Versions)-1], nil
}

// AppendVersion appends a new version built from segments, evicting the
// oldest version once the ring exceeds VersionLimit. It returns the new
// version and the evicted version's segments, if any, so the caller can
// drop the evicted segments' content-map refcounts during the commit's
// recycle phase.
func (f *FNode) AppendVersion(segments []types.Segment, length uint64) (types.Version, []types.Segment) {
	f.NextVersionNum++
	v := types.NewVersion(f.NextVersionNum, segments, length)
	f.Versions = append(f.Versions, v)

	var evicted []types.Segment
	if len(f.Versions) > int(f.VersionLimit) {
		evicted = f.Versions[0].Segments
		f.Versions = f.Versions[1:]
	}
	return v, evicted
}

// History returns every retained version, oldest first.
func (f *FNode) History() []types.Version {
	return append([]types.Version(nil), f.Versions...)
}

// entryIndex finds name's insertion point in the sorted Entries list.
func (f *FNode) entryIndex(name string) int {
	return sort.Search(len(f.Entries), func(i int) bool { return f.Entries[i].Name >= name })
}

// Lookup finds a child entry by name.
func (f *FNode) Lookup(name string) (types.Eid, bool) {
	i := f.entryIndex(name)
	if i < len(f.Entries) && f.Entries[i].Name == name {
		return f.Entries[i].ChildEid, true
	}
	return types.Eid{}, false
}

// AddEntry inserts or replaces a name→child mapping, keeping Entries
// sorted by name.
func (f *FNode) AddEntry(name string, child types.Eid) {
	i := f.entryIndex(name)
	if i < len(f.Entries) && f.Entries[i].Name == name {
		f.Entries[i].ChildEid = child
		return
	}
	f.Entries = append(f.Entries, DirEntry{})
	copy(f.Entries[i+1:], f.Entries[i:])
	f.Entries[i] = DirEntry{Name: name, ChildEid: child}
}

// RemoveEntry deletes name, reporting whether it was present.
func (f *FNode) RemoveEntry(name string) bool {
	i := f.entryIndex(name)
	if i < len(f.Entries) && f.Entries[i].Name == name {
		f.Entries = append(f.Entries[:i], f.Entries[i+1:]...)
		return true
	}
	return false
}
