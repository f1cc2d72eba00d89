package fs

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameSamePathIsNoop(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/a")
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.Rename(tx, "/a", "/a"))
	})
	_, _, err := r.overlay.resolve("/a")
	require.NoError(t, err)
}

func TestRenameUnderItselfIsInvalidArgument(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a/b"))
	})

	var err error
	r.withTxn(func(tx *txn.Txn) {
		err = r.overlay.Rename(tx, "/a", "/a/b")
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestRenameMovesWithinSameParent(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/a")
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.Rename(tx, "/a", "/b"))
	})

	_, _, err := r.overlay.resolve("/a")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, _, err = r.overlay.resolve("/b")
	require.NoError(t, err)
}

func TestRenameAcrossDirectories(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/src"))
		require.NoError(t, r.overlay.CreateDirAll(tx, "/dst"))
		_, err := r.overlay.CreateFile(tx, "/src/f")
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.Rename(tx, "/src/f", "/dst/f"))
	})

	_, _, err := r.overlay.resolve("/src/f")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, _, err = r.overlay.resolve("/dst/f")
	require.NoError(t, err)

	srcEntries, err := r.overlay.ReadDir("/src")
	require.NoError(t, err)
	assert.Empty(t, srcEntries)
}

func TestRenameTypeMismatchOverExisting(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/file")
		require.NoError(t, err)
		require.NoError(t, r.overlay.CreateDirAll(tx, "/dir"))
	})

	var err error
	r.withTxn(func(tx *txn.Txn) {
		err = r.overlay.Rename(tx, "/file", "/dir")
	})
	assert.True(t, apperr.Is(err, apperr.KindIsDir))
}

func TestRenameOverNonEmptyDirIsNotEmpty(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a"))
		require.NoError(t, r.overlay.CreateDirAll(tx, "/b"))
		_, err := r.overlay.CreateFile(tx, "/b/f")
		require.NoError(t, err)
	})

	var err error
	r.withTxn(func(tx *txn.Txn) {
		err = r.overlay.Rename(tx, "/a", "/b")
	})
	assert.True(t, apperr.Is(err, apperr.KindNotEmpty))
}

func TestRenameOverEmptyDirReplacesIt(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a"))
		require.NoError(t, r.overlay.CreateDirAll(tx, "/b"))
	})

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.Rename(tx, "/a", "/b"))
	})

	_, _, err := r.overlay.resolve("/a")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, node, err := r.overlay.resolve("/b")
	require.NoError(t, err)
	assert.True(t, node.IsDir())
}

func TestRenameRootIsIsRoot(t *testing.T) {
	r := newTestRepo(t)
	var err error
	r.withTxn(func(tx *txn.Txn) {
		err = r.overlay.Rename(tx, "/", "/elsewhere")
	})
	assert.True(t, apperr.Is(err, apperr.KindIsRoot))
}
