package fs

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/chunker"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/emap"
	"github.com/cuemby/cryptofs/pkg/fnode"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/cuemby/cryptofs/pkg/volume"
	"github.com/stretchr/testify/require"
)

// testRepo bundles the pieces an Overlay needs, standing in for the repo
// layer this package doesn't own.
type testRepo struct {
	t       *testing.T
	backend backend.Backend
	mgr     *txn.Manager
	overlay *Overlay
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	master := crypto.NewKey()
	contentKey := chunker.DeriveKey(cr, master)
	alloc := volume.NewAllocator()
	cm := chunker.NewContentMap()
	em := emap.New(b, cr, master)
	mgr := txn.NewManager(b)

	r := &testRepo{t: t, backend: b, mgr: mgr}

	root := types.NewEid()
	r.withTxn(func(tx *txn.Txn) {
		ov := New(b, alloc, cr, contentKey, cm, em, root, false, fnode.DefaultVersionLimit)
		require.NoError(t, ov.persist(tx, root, fnode.NewDir()))
		r.overlay = ov
	})
	return r
}

// withTxn begins a transaction, runs fn, then prepares and disposes it,
// mirroring the repo layer's eventual commit choreography without the
// super-block flip this package doesn't own.
func (r *testRepo) withTxn(fn func(tx *txn.Txn)) {
	r.t.Helper()
	tx, err := r.mgr.Begin()
	require.NoError(r.t, err)
	fn(tx)
	require.NoError(r.t, tx.Prepare())
	require.NoError(r.t, tx.Dispose())
}
