package backend

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultyBackendScheduledFault(t *testing.T) {
	inner := NewMemBackend()
	f := NewFaultyBackend(inner, 1, 0)
	f.AddFault("PutSuperBlock", apperr.KindIOError)

	err := f.PutSuperBlock([]byte("x"), 0)
	assert.True(t, apperr.Is(err, apperr.KindIOError))

	// The schedule entry is consumed; the next call goes through.
	require.NoError(t, f.PutSuperBlock([]byte("x"), 0))
	got, err := f.GetSuperBlock(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestFaultyBackendDeterministicWithSeed(t *testing.T) {
	eid := types.NewEid()

	run := func(seed int64) []bool {
		inner := NewMemBackend()
		f := NewFaultyBackend(inner, seed, 0.5)
		var results []bool
		for i := 0; i < 20; i++ {
			err := f.PutAddress(eid, []byte("data"))
			results = append(results, err == nil)
		}
		return results
	}

	a := run(42)
	b := run(42)
	assert.Equal(t, a, b, "same seed must produce the same fault sequence")
}

func TestFaultyBackendZeroRateNeverFaultsUnscheduled(t *testing.T) {
	inner := NewMemBackend()
	f := NewFaultyBackend(inner, 7, 0)
	for i := 0; i < 50; i++ {
		require.NoError(t, f.PutSuperBlock([]byte("ok"), 0))
	}
}
