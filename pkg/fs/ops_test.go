package fs

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFileThenReadDir(t *testing.T) {
	r := newTestRepo(t)

	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/hello.txt")
		require.NoError(t, err)
	})

	entries, err := r.overlay.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello.txt", entries[0].Name)
}

func TestCreateFileAlreadyExists(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/a")
		require.NoError(t, err)
	})

	var createErr error
	r.withTxn(func(tx *txn.Txn) {
		_, createErr = r.overlay.CreateFile(tx, "/a")
	})
	assert.True(t, apperr.Is(createErr, apperr.KindAlreadyExists))
}

func TestCreateFileUnderNonDirIsNotDir(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/a")
		require.NoError(t, err)
	})

	var createErr error
	r.withTxn(func(tx *txn.Txn) {
		_, createErr = r.overlay.CreateFile(tx, "/a/b")
	})
	assert.True(t, apperr.Is(createErr, apperr.KindNotDir))
}

func TestCreateDirAllBuildsIntermediateDirs(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a/b/c"))
	})

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		_, node, err := r.overlay.resolve(p)
		require.NoError(t, err)
		assert.True(t, node.IsDir())
	}
}

func TestCreateDirAllIsIdempotent(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a/b"))
	})
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a/b"))
	})
}

func TestReadDirNotFoundAndNotDir(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.overlay.ReadDir("/missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/f")
		require.NoError(t, err)
	})
	_, err = r.overlay.ReadDir("/f")
	assert.True(t, apperr.Is(err, apperr.KindNotDir))
}

func TestRemoveFileNotFoundAndIsDir(t *testing.T) {
	r := newTestRepo(t)
	var err error
	r.withTxn(func(tx *txn.Txn) {
		err = r.overlay.RemoveFile(tx, "/missing")
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/d"))
	})
	r.withTxn(func(tx *txn.Txn) {
		err = r.overlay.RemoveFile(tx, "/d")
	})
	assert.True(t, apperr.Is(err, apperr.KindIsDir))
}

func TestRemoveDirRequiresEmpty(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/d"))
		_, err := r.overlay.CreateFile(tx, "/d/f")
		require.NoError(t, err)
	})

	var removeErr error
	r.withTxn(func(tx *txn.Txn) {
		removeErr = r.overlay.RemoveDir(tx, "/d")
	})
	assert.True(t, apperr.Is(removeErr, apperr.KindNotEmpty))

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.RemoveFile(tx, "/d/f"))
		require.NoError(t, r.overlay.RemoveDir(tx, "/d"))
	})

	entries, err := r.overlay.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveDirOnRootIsRoot(t *testing.T) {
	r := newTestRepo(t)
	var err error
	r.withTxn(func(tx *txn.Txn) {
		err = r.overlay.RemoveDir(tx, "/")
	})
	assert.True(t, apperr.Is(err, apperr.KindIsRoot))
}

func TestRemoveDirAllOnRootClearsTreeButKeepsRoot(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a/b"))
		_, err := r.overlay.CreateFile(tx, "/a/f")
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.RemoveDirAll(tx, "/"))
	})

	entries, err := r.overlay.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveDirAllDeletesSubtree(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/a/b"))
		_, err := r.overlay.CreateFile(tx, "/a/b/f")
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.RemoveDirAll(tx, "/a"))
	})

	_, _, err := r.overlay.resolve("/a")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHistoryNotFoundAndIsDir(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.overlay.History("/missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/d"))
	})
	_, err = r.overlay.History("/d")
	assert.True(t, apperr.Is(err, apperr.KindIsDir))
}

func TestReadOnlyOverlayRejectsMutation(t *testing.T) {
	r := newTestRepo(t)
	r.overlay.readOnly = true

	var err error
	r.withTxn(func(tx *txn.Txn) {
		_, err = r.overlay.CreateFile(tx, "/a")
	})
	assert.True(t, apperr.Is(err, apperr.KindReadOnly))
}
