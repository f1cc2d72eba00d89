package emap

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmap() *Emap {
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	return New(b, cr, crypto.NewKey())
}

func TestEmapPutCommitGet(t *testing.T) {
	e := newTestEmap()
	eid := types.NewEid()
	txid := types.Txid(1)
	loc := types.NewLoc(eid, txid)

	_, err := e.Get(loc)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, e.Put(loc))
	cell, err := e.Get(loc)
	require.NoError(t, err)
	assert.Equal(t, txid, cell.Txid)

	require.NoError(t, e.Commit(loc))
	cell, err = e.Get(types.NewLoc(eid, types.Txid(999)))
	require.NoError(t, err)
	assert.Equal(t, txid, cell.Txid)
}

func TestEmapPutConflictsAcrossTransactions(t *testing.T) {
	e := newTestEmap()
	eid := types.NewEid()
	loc1 := types.NewLoc(eid, types.Txid(1))
	loc2 := types.NewLoc(eid, types.Txid(2))

	require.NoError(t, e.Put(loc1))
	err := e.Put(loc2)
	assert.True(t, apperr.Is(err, apperr.KindInTrans))
}

func TestEmapAbortDropsUncommittedNewNode(t *testing.T) {
	e := newTestEmap()
	eid := types.NewEid()
	loc := types.NewLoc(eid, types.Txid(1))

	require.NoError(t, e.Put(loc))
	require.NoError(t, e.Abort(loc))

	_, err := e.Get(loc)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEmapAbortRestoresPriorCommittedCell(t *testing.T) {
	e := newTestEmap()
	eid := types.NewEid()
	loc1 := types.NewLoc(eid, types.Txid(1))
	require.NoError(t, e.Put(loc1))
	require.NoError(t, e.Commit(loc1))

	loc2 := types.NewLoc(eid, types.Txid(2))
	require.NoError(t, e.Put(loc2))
	require.NoError(t, e.Abort(loc2))

	cell, err := e.Get(types.NewLoc(eid, types.Txid(3)))
	require.NoError(t, err)
	assert.Equal(t, types.Txid(1), cell.Txid)
}

func TestEmapDelThenCommitHidesEntity(t *testing.T) {
	e := newTestEmap()
	eid := types.NewEid()
	loc1 := types.NewLoc(eid, types.Txid(1))
	require.NoError(t, e.Put(loc1))
	require.NoError(t, e.Commit(loc1))

	loc2 := types.NewLoc(eid, types.Txid(2))
	require.NoError(t, e.Del(loc2))
	require.NoError(t, e.Commit(loc2))

	_, err := e.Get(types.NewLoc(eid, types.Txid(3)))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEmapPersistsAcrossCacheEviction(t *testing.T) {
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	e := New(b, cr, crypto.NewKey())

	eid := types.NewEid()
	loc := types.NewLoc(eid, types.Txid(7))
	require.NoError(t, e.Put(loc))
	require.NoError(t, e.Commit(loc))

	// Flood the cache with other entities past its capacity to force
	// eviction of the committed node above.
	for i := 0; i < cacheSize*2; i++ {
		other := types.NewEid()
		ol := types.NewLoc(other, types.Txid(100+i))
		require.NoError(t, e.Put(ol))
		require.NoError(t, e.Commit(ol))
	}

	cell, err := e.Get(types.NewLoc(eid, types.Txid(200)))
	require.NoError(t, err)
	assert.Equal(t, types.Txid(7), cell.Txid)
}
