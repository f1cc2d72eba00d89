package fs

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileCreateWriteFinishRead(t *testing.T) {
	r := newTestRepo(t)

	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/note.txt", OpenOptions{Write: true, Create: true})
		require.NoError(t, err)
		f.Write([]byte("hello, world"))
		_, err = f.Finish(tx)
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/note.txt", OpenOptions{Read: true})
		require.NoError(t, err)
		got, err := f.Read()
		require.NoError(t, err)
		assert.Equal(t, "hello, world", string(got))
	})
}

func TestOpenFileCreateNewAgainstExistingIsAlreadyExists(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		_, err := r.overlay.CreateFile(tx, "/a")
		require.NoError(t, err)
	})

	var openErr error
	r.withTxn(func(tx *txn.Txn) {
		_, openErr = r.overlay.OpenFile(tx, "/a", OpenOptions{Write: true, CreateNew: true})
	})
	assert.True(t, apperr.Is(openErr, apperr.KindAlreadyExists))
}

func TestOpenFileAgainstDirIsIsDir(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		require.NoError(t, r.overlay.CreateDirAll(tx, "/d"))
	})
	_, err := r.overlay.OpenFile(nil, "/d", OpenOptions{Read: true})
	assert.True(t, apperr.Is(err, apperr.KindIsDir))
}

func TestOpenFileMissingWithoutCreateIsNotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.overlay.OpenFile(nil, "/missing", OpenOptions{Read: true})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestWriteAtOverwritesRangeAcrossVersions(t *testing.T) {
	r := newTestRepo(t)

	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/f", OpenOptions{Write: true, Create: true})
		require.NoError(t, err)
		f.Write([]byte("hello world"))
		_, err = f.Finish(tx)
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/f", OpenOptions{Write: true})
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(f.editor.Bytes()))
		f.WriteAt(6, []byte("there"))
		_, err = f.Finish(tx)
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/f", OpenOptions{Read: true})
		require.NoError(t, err)
		got, err := f.Read()
		require.NoError(t, err)
		assert.Equal(t, "hello there", string(got))
	})
}

func TestTruncateOpenDiscardsPriorContent(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/f", OpenOptions{Write: true, Create: true})
		require.NoError(t, err)
		f.Write([]byte("old content"))
		_, err = f.Finish(tx)
		require.NoError(t, err)
	})

	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/f", OpenOptions{Write: true, Truncate: true})
		require.NoError(t, err)
		assert.Equal(t, 0, f.Len())
		f.Write([]byte("new"))
		_, err = f.Finish(tx)
		require.NoError(t, err)
	})

	got, err := readFile(r, "/f")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestFinishAppendsVersionAndHistoryGrows(t *testing.T) {
	r := newTestRepo(t)
	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/f", OpenOptions{Write: true, Create: true})
		require.NoError(t, err)
		f.Write([]byte("v1"))
		_, err = f.Finish(tx)
		require.NoError(t, err)
	})
	r.withTxn(func(tx *txn.Txn) {
		f, err := r.overlay.OpenFile(tx, "/f", OpenOptions{Write: true})
		require.NoError(t, err)
		f.Write([]byte("v1v2"))
		_, err = f.Finish(tx)
		require.NoError(t, err)
	})

	hist, err := r.overlay.History("/f")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, uint64(1), hist[0].Num)
	assert.Equal(t, uint64(2), hist[1].Num)
}

func readFile(r *testRepo, path string) (string, error) {
	f, err := r.overlay.OpenFile(nil, path, OpenOptions{Read: true})
	if err != nil {
		return "", err
	}
	got, err := f.Read()
	if err != nil {
		return "", err
	}
	return string(got), nil
}
