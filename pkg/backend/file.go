package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/cuemby/cryptofs/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSuperBlock = []byte("superblock")
	bucketWAL        = []byte("wal")
	bucketAddress    = []byte("address")
	bucketBlocks     = []byte("blocks")
)

// FileBackend stores a repo as a single bbolt database file rooted at a
// directory, one bucket per concern.
type FileBackend struct {
	dir  string
	file string
	db   *bolt.DB
}

// NewFileBackend returns a FileBackend rooted at dir, storing its data in
// dir/cryptofs.db.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir, file: filepath.Join(dir, "cryptofs.db")}
}

func (f *FileBackend) Exists() (bool, error) {
	_, err := os.Stat(f.file)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindIOError, "file.Exists", err)
	}
	return true, nil
}

func (f *FileBackend) Connect() error {
	if f.db != nil {
		return nil
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return apperr.Wrap(apperr.KindIOError, "file.Connect.mkdir", err)
	}
	db, err := bolt.Open(f.file, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return apperr.Wrap(apperr.KindIOError, "file.Connect.open", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSuperBlock, bucketWAL, bucketAddress, bucketBlocks} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return apperr.Wrap(apperr.KindIOError, "file.Connect.buckets", err)
	}
	f.db = db
	logx.WithComponent("backend.file").Debug().Str("path", f.file).Msg("connected")
	return nil
}

func (f *FileBackend) Init(_ crypto.Crypto, _ crypto.Key) error { return f.Connect() }
func (f *FileBackend) Open(_ crypto.Crypto, _ crypto.Key) error { return f.Connect() }

func (f *FileBackend) Flush() error {
	if f.db == nil {
		return nil
	}
	return f.db.Sync()
}

func superBlockKey(suffix uint8) []byte { return []byte{suffix} }

func (f *FileBackend) GetSuperBlock(suffix uint8) ([]byte, error) {
	return f.get(bucketSuperBlock, superBlockKey(suffix), "file.GetSuperBlock")
}

func (f *FileBackend) PutSuperBlock(data []byte, suffix uint8) error {
	return f.put(bucketSuperBlock, superBlockKey(suffix), data, "file.PutSuperBlock")
}

func (f *FileBackend) GetWAL(eid types.Eid) ([]byte, error) {
	return f.get(bucketWAL, eid.Bytes(), "file.GetWAL")
}

func (f *FileBackend) PutWAL(eid types.Eid, data []byte) error {
	return f.put(bucketWAL, eid.Bytes(), data, "file.PutWAL")
}

func (f *FileBackend) DelWAL(eid types.Eid) error {
	return f.del(bucketWAL, eid.Bytes(), "file.DelWAL")
}

func (f *FileBackend) GetAddress(eid types.Eid) ([]byte, error) {
	return f.get(bucketAddress, eid.Bytes(), "file.GetAddress")
}

func (f *FileBackend) PutAddress(eid types.Eid, data []byte) error {
	return f.put(bucketAddress, eid.Bytes(), data, "file.PutAddress")
}

func (f *FileBackend) DelAddress(eid types.Eid) error {
	return f.del(bucketAddress, eid.Bytes(), "file.DelAddress")
}

func blockKey(idx uint64) []byte {
	return []byte(fmt.Sprintf("%020d", idx))
}

func (f *FileBackend) GetBlocks(dst []byte, span types.Span) error {
	want := span.BlockLen()
	if len(dst) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("file.GetBlocks: dst len %d != %d", len(dst), want))
	}
	return f.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		for i := uint64(0); i < uint64(span.BlockCount()); i++ {
			off := int(i) * types.BlkSize
			v := b.Get(blockKey(span.Begin + i))
			if v == nil {
				for j := 0; j < types.BlkSize; j++ {
					dst[off+j] = 0
				}
				continue
			}
			copy(dst[off:off+types.BlkSize], v)
		}
		return nil
	})
}

func (f *FileBackend) PutBlocks(span types.Span, data []byte) error {
	want := span.BlockLen()
	if len(data) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("file.PutBlocks: data len %d != %d", len(data), want))
	}
	return f.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		for i := uint64(0); i < uint64(span.BlockCount()); i++ {
			off := int(i) * types.BlkSize
			if err := b.Put(blockKey(span.Begin+i), data[off:off+types.BlkSize]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *FileBackend) DelBlocks(span types.Span) error {
	return f.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		for i := uint64(0); i < uint64(span.BlockCount()); i++ {
			if err := b.Delete(blockKey(span.Begin + i)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *FileBackend) get(bucket, key []byte, op string) ([]byte, error) {
	var out []byte
	err := f.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return apperr.NotFound(op)
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *FileBackend) put(bucket, key, data []byte, op string) error {
	err := f.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
	if err != nil {
		return apperr.Wrap(apperr.KindIOError, op, err)
	}
	return nil
}

func (f *FileBackend) del(bucket, key []byte, op string) error {
	err := f.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
	if err != nil {
		return apperr.Wrap(apperr.KindIOError, op, err)
	}
	return nil
}

// Close releases the underlying bbolt database handle.
func (f *FileBackend) Close() error {
	if f.db == nil {
		return nil
	}
	return f.db.Close()
}
