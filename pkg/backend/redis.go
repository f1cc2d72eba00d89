package backend

import (
	"context"
	"fmt"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores every object as a Redis key, keyed as
// "super_blk:<n>", "wal:<eid>", "address:<eid>", "block:<idx>".
type RedisBackend struct {
	opts *redis.Options
	rdb  *redis.Client
}

// NewRedisBackend builds a RedisBackend from a redis connection URL, e.g.
// "redis://host:6379/0" or "redis+unix:///path/to/sock".
func NewRedisBackend(opts *redis.Options) *RedisBackend {
	return &RedisBackend{opts: opts}
}

func (r *RedisBackend) Connect() error {
	if r.rdb != nil {
		return nil
	}
	r.rdb = redis.NewClient(r.opts)
	if err := r.rdb.Ping(context.Background()).Err(); err != nil {
		return apperr.Wrap(apperr.KindIOError, "redis.Connect", err)
	}
	logx.WithComponent("backend.redis").Debug().Str("addr", r.opts.Addr).Msg("connected")
	return nil
}

func (r *RedisBackend) Exists() (bool, error) {
	n, err := r.rdb.Exists(context.Background(), superBlockRedisKey(0), superBlockRedisKey(1)).Result()
	if err != nil {
		return false, apperr.Wrap(apperr.KindIOError, "redis.Exists", err)
	}
	return n > 0, nil
}

func (r *RedisBackend) Init(_ crypto.Crypto, _ crypto.Key) error { return nil }
func (r *RedisBackend) Open(_ crypto.Crypto, _ crypto.Key) error { return nil }
func (r *RedisBackend) Flush() error                             { return nil }

func superBlockRedisKey(suffix uint8) string { return fmt.Sprintf("super_blk:%d", suffix) }
func walRedisKey(eid types.Eid) string       { return fmt.Sprintf("wal:%s", eid.String()) }
func addressRedisKey(eid types.Eid) string   { return fmt.Sprintf("address:%s", eid.String()) }
func blockRedisKey(idx uint64) string        { return fmt.Sprintf("block:%d", idx) }

func (r *RedisBackend) GetSuperBlock(suffix uint8) ([]byte, error) {
	return r.get(superBlockRedisKey(suffix), "redis.GetSuperBlock")
}

func (r *RedisBackend) PutSuperBlock(data []byte, suffix uint8) error {
	return r.put(superBlockRedisKey(suffix), data, "redis.PutSuperBlock")
}

func (r *RedisBackend) GetWAL(eid types.Eid) ([]byte, error) {
	return r.get(walRedisKey(eid), "redis.GetWAL")
}

func (r *RedisBackend) PutWAL(eid types.Eid, data []byte) error {
	return r.put(walRedisKey(eid), data, "redis.PutWAL")
}

func (r *RedisBackend) DelWAL(eid types.Eid) error {
	return r.del(walRedisKey(eid), "redis.DelWAL")
}

func (r *RedisBackend) GetAddress(eid types.Eid) ([]byte, error) {
	return r.get(addressRedisKey(eid), "redis.GetAddress")
}

func (r *RedisBackend) PutAddress(eid types.Eid, data []byte) error {
	return r.put(addressRedisKey(eid), data, "redis.PutAddress")
}

func (r *RedisBackend) DelAddress(eid types.Eid) error {
	return r.del(addressRedisKey(eid), "redis.DelAddress")
}

func (r *RedisBackend) GetBlocks(dst []byte, span types.Span) error {
	want := span.BlockLen()
	if len(dst) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("redis.GetBlocks: dst len %d != %d", len(dst), want))
	}
	ctx := context.Background()
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		off := int(i) * types.BlkSize
		v, err := r.rdb.Get(ctx, blockRedisKey(span.Begin+i)).Bytes()
		if err == redis.Nil {
			for j := 0; j < types.BlkSize; j++ {
				dst[off+j] = 0
			}
			continue
		}
		if err != nil {
			return apperr.Wrap(apperr.KindIOError, "redis.GetBlocks", err)
		}
		copy(dst[off:off+types.BlkSize], v)
	}
	return nil
}

func (r *RedisBackend) PutBlocks(span types.Span, data []byte) error {
	want := span.BlockLen()
	if len(data) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("redis.PutBlocks: data len %d != %d", len(data), want))
	}
	ctx := context.Background()
	pipe := r.rdb.Pipeline()
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		off := int(i) * types.BlkSize
		pipe.Set(ctx, blockRedisKey(span.Begin+i), data[off:off+types.BlkSize], 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Wrap(apperr.KindIOError, "redis.PutBlocks", err)
	}
	return nil
}

func (r *RedisBackend) DelBlocks(span types.Span) error {
	ctx := context.Background()
	keys := make([]string, 0, span.BlockCount())
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		keys = append(keys, blockRedisKey(span.Begin+i))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return apperr.Wrap(apperr.KindIOError, "redis.DelBlocks", err)
	}
	return nil
}

func (r *RedisBackend) get(key, op string) ([]byte, error) {
	v, err := r.rdb.Get(context.Background(), key).Bytes()
	if err == redis.Nil {
		return nil, apperr.NotFound(op)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIOError, op, err)
	}
	return v, nil
}

func (r *RedisBackend) put(key string, data []byte, op string) error {
	if err := r.rdb.Set(context.Background(), key, data, 0).Err(); err != nil {
		return apperr.Wrap(apperr.KindIOError, op, err)
	}
	return nil
}

func (r *RedisBackend) del(key, op string) error {
	if err := r.rdb.Del(context.Background(), key).Err(); err != nil {
		return apperr.Wrap(apperr.KindIOError, op, err)
	}
	return nil
}

// Close releases the underlying Redis client connection pool.
func (r *RedisBackend) Close() error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
