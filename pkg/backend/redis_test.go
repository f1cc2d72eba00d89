package backend

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	mr := miniredis.RunT(t)
	b := NewRedisBackend(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, b.Connect())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRedisBackendSuperBlockAndExists(t *testing.T) {
	b := newTestRedisBackend(t)

	exists, err := b.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.PutSuperBlock([]byte("arm0"), 0))
	exists, err = b.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := b.GetSuperBlock(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("arm0"), got)
}

func TestRedisBackendKeyScheme(t *testing.T) {
	assert.Equal(t, "super_blk:0", superBlockRedisKey(0))
	assert.Equal(t, "block:42", blockRedisKey(42))

	eid := types.NewEid()
	assert.Equal(t, "address:"+eid.String(), addressRedisKey(eid))
}

func TestRedisBackendBlocksRoundTrip(t *testing.T) {
	b := newTestRedisBackend(t)
	span := types.Span{Begin: 1, End: 3}
	data := make([]byte, span.BlockLen())
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, b.PutBlocks(span, data))

	dst := make([]byte, span.BlockLen())
	require.NoError(t, b.GetBlocks(dst, span))
	assert.Equal(t, data, dst)

	require.NoError(t, b.DelBlocks(span))
	dst2 := make([]byte, span.BlockLen())
	require.NoError(t, b.GetBlocks(dst2, span))
	for _, v := range dst2 {
		assert.Equal(t, byte(0), v)
	}
}

func TestRedisBackendNotFound(t *testing.T) {
	b := newTestRedisBackend(t)
	_, err := b.GetAddress(types.NewEid())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
