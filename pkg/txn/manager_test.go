package txn

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/emap"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmapOn(b backend.Backend) *emap.Emap {
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	return emap.New(b, cr, crypto.NewKey())
}

func TestBeginFailsFastWhileAnotherTxnIsInFlight(t *testing.T) {
	mgr := NewManager(backend.NewMemBackend())

	tx1, err := mgr.Begin()
	require.NoError(t, err)
	assert.Equal(t, types.Txid(1), tx1.ID())

	_, err = mgr.Begin()
	assert.True(t, apperr.Is(err, apperr.KindInTrans))

	tx1.Abandon()

	tx2, err := mgr.Begin()
	require.NoError(t, err)
	assert.Equal(t, types.Txid(2), tx2.ID())
}

func TestRestoreManagerContinuesTxidSequence(t *testing.T) {
	mgr := RestoreManager(backend.NewMemBackend(), 41)
	tx, err := mgr.Begin()
	require.NoError(t, err)
	assert.Equal(t, types.Txid(42), tx.ID())
}

func TestPrepareDisposeRoundTripsWAL(t *testing.T) {
	b := backend.NewMemBackend()
	mgr := NewManager(b)

	tx, err := mgr.Begin()
	require.NoError(t, err)

	eid := types.NewEid()
	tx.LogPutAddress(eid)
	span := types.NewSpan(0, 4, 0)
	tx.LogPutBlocks(eid, span)

	require.NoError(t, tx.Prepare())
	_, err = b.GetWAL(walKey(tx.ID()))
	require.NoError(t, err)

	require.NoError(t, tx.Dispose())
	_, err = b.GetWAL(walKey(tx.ID()))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// The latch was released by Dispose.
	_, err = mgr.Begin()
	require.NoError(t, err)
}

func TestRecoverRollsBackUncommittedTxn(t *testing.T) {
	b := backend.NewMemBackend()
	mgr := NewManager(b)
	em := newTestEmapOn(b)

	tx, err := mgr.Begin()
	require.NoError(t, err)

	eid := types.NewEid()
	loc := types.NewLoc(eid, tx.ID())
	require.NoError(t, em.Put(loc))
	require.NoError(t, em.SetPayload(eid, []byte("staged but never committed")))
	require.NoError(t, em.Commit(loc))
	tx.LogPutAddress(eid)
	tx.LogPutEmap(eid)

	span := types.NewSpan(0, 2, 0)
	require.NoError(t, b.PutBlocks(span, make([]byte, span.BlockLen())))
	tx.LogPutBlocks(eid, span)

	require.NoError(t, tx.Prepare())

	entries, err := Recover(b, em, tx.ID(), false)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = em.GetPayload(eid)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	dst := make([]byte, span.BlockLen())
	require.NoError(t, b.GetBlocks(dst, span))
	for _, v := range dst {
		assert.Equal(t, byte(0), v)
	}

	_, err = b.GetWAL(walKey(tx.ID()))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRecoverKeepsCommittedTxnObjectsAndJustDisposes(t *testing.T) {
	b := backend.NewMemBackend()
	mgr := NewManager(b)
	em := newTestEmapOn(b)

	tx, err := mgr.Begin()
	require.NoError(t, err)

	eid := types.NewEid()
	loc := types.NewLoc(eid, tx.ID())
	require.NoError(t, em.Put(loc))
	require.NoError(t, em.SetPayload(eid, []byte("committed data")))
	require.NoError(t, em.Commit(loc))
	tx.LogPutAddress(eid)
	tx.LogPutEmap(eid)
	require.NoError(t, tx.Prepare())

	_, err = Recover(b, em, tx.ID(), true)
	require.NoError(t, err)

	got, err := em.GetPayload(eid)
	require.NoError(t, err)
	assert.Equal(t, []byte("committed data"), got)

	_, err = b.GetWAL(walKey(tx.ID()))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// TestRecoverRollingBackAModifyPreservesThePriorCommittedBody covers the
// case rollback must not get wrong: an Eid that already had a committed
// body before the crashed transaction reused it. Rolling the crashed
// write back must only remove the arm it wrote, not the entity's prior
// committed body sitting in the other arm.
func TestRecoverRollingBackAModifyPreservesThePriorCommittedBody(t *testing.T) {
	b := backend.NewMemBackend()
	mgr := NewManager(b)
	em := newTestEmapOn(b)

	eid := types.NewEid()

	tx1, err := mgr.Begin()
	require.NoError(t, err)
	loc1 := types.NewLoc(eid, tx1.ID())
	require.NoError(t, em.Put(loc1))
	require.NoError(t, em.SetPayload(eid, []byte("version one")))
	require.NoError(t, em.Commit(loc1))
	tx1.LogPutAddress(eid)
	tx1.LogPutEmap(eid)
	require.NoError(t, tx1.Prepare())
	require.NoError(t, tx1.Dispose())

	tx2, err := mgr.Begin()
	require.NoError(t, err)
	loc2 := types.NewLoc(eid, tx2.ID())
	require.NoError(t, em.Put(loc2))
	require.NoError(t, em.SetPayload(eid, []byte("version two, never committed to the super block")))
	require.NoError(t, em.Commit(loc2))
	tx2.LogPutAddress(eid)
	tx2.LogPutEmap(eid)
	require.NoError(t, tx2.Prepare())

	_, err = Recover(b, em, tx2.ID(), false)
	require.NoError(t, err)

	got, err := em.GetPayload(eid)
	require.NoError(t, err)
	assert.Equal(t, []byte("version one"), got)
}

func TestRecoverNoWalIsNoop(t *testing.T) {
	b := backend.NewMemBackend()
	em := newTestEmapOn(b)
	entries, err := Recover(b, em, types.Txid(999), false)
	require.NoError(t, err)
	assert.Nil(t, entries)
}
