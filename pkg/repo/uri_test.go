package repo

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURIMem(t *testing.T) {
	u, err := ParseURI("mem://demo")
	require.NoError(t, err)
	assert.Equal(t, SchemeMem, u.Scheme)
	assert.Equal(t, "demo", u.Name)
}

func TestParseURIMemRequiresName(t *testing.T) {
	_, err := ParseURI("mem://")
	assert.True(t, apperr.Is(err, apperr.KindInvalidUri))
}

func TestParseURIFile(t *testing.T) {
	u, err := ParseURI("file:///var/lib/cryptofs/data")
	require.NoError(t, err)
	assert.Equal(t, SchemeFile, u.Scheme)
	assert.Equal(t, "/var/lib/cryptofs/data", u.Path)
}

func TestParseURIFileRequiresAbsolutePath(t *testing.T) {
	_, err := ParseURI("file://relative/path")
	assert.True(t, apperr.Is(err, apperr.KindInvalidUri))
}

func TestParseURIRedisDefaults(t *testing.T) {
	u, err := ParseURI("redis://localhost")
	require.NoError(t, err)
	assert.Equal(t, SchemeRedis, u.Scheme)
	assert.Equal(t, "localhost", u.Host)
	assert.Equal(t, defaultRedisPort, u.Port)
	assert.Equal(t, 0, u.DB)
}

func TestParseURIRedisPortAndDB(t *testing.T) {
	u, err := ParseURI("redis://cache.internal:6380/3")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal", u.Host)
	assert.Equal(t, 6380, u.Port)
	assert.Equal(t, 3, u.DB)
}

func TestParseURIRedisUnix(t *testing.T) {
	u, err := ParseURI("redis+unix+/var/run/redis.sock")
	require.NoError(t, err)
	assert.Equal(t, SchemeRedisUnix, u.Scheme)
	assert.Equal(t, "/var/run/redis.sock", u.Path)
}

func TestParseURIZbox(t *testing.T) {
	u, err := ParseURI("zbox://abc123@repo42?cache_type=file&cache_size=64&base=/tmp/cache")
	require.NoError(t, err)
	assert.Equal(t, SchemeZbox, u.Scheme)
	assert.Equal(t, "abc123", u.AccessKey)
	assert.Equal(t, "repo42", u.Name)
	assert.Equal(t, "file", u.CacheType)
	assert.Equal(t, 64, u.CacheSizeMiB)
	assert.Equal(t, "/tmp/cache", u.Base)
}

func TestParseURIZboxDefaultsCacheTypeToMem(t *testing.T) {
	u, err := ParseURI("zbox://key@repo")
	require.NoError(t, err)
	assert.Equal(t, "mem", u.CacheType)
	assert.Equal(t, 1, u.CacheSizeMiB)
}

func TestParseURIZboxFileCacheRequiresBase(t *testing.T) {
	_, err := ParseURI("zbox://key@repo?cache_type=file")
	assert.True(t, apperr.Is(err, apperr.KindInvalidUri))
}

func TestParseURIZboxMissingAccessKey(t *testing.T) {
	_, err := ParseURI("zbox://repo-without-key")
	assert.True(t, apperr.Is(err, apperr.KindInvalidUri))
}

func TestParseURIUnknownScheme(t *testing.T) {
	_, err := ParseURI("ftp://nope")
	assert.True(t, apperr.Is(err, apperr.KindInvalidUri))
}
