package volume

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperBlockSaveLoadRoundTrip(t *testing.T) {
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	volumeID := types.NewEid()
	key := crypto.NewKey()

	exists, err := Exists(b)
	require.NoError(t, err)
	assert.False(t, exists)

	sb := New(volumeID, key, cr, []byte("bootstrap payload"))
	require.NoError(t, sb.Save("correct horse", b))

	exists, err = Exists(b)
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := Load("correct horse", b)
	require.NoError(t, err)
	assert.Equal(t, volumeID, loaded.VolumeID)
	assert.Equal(t, key, loaded.Key)
	assert.Equal(t, []byte("bootstrap payload"), loaded.Payload)
}

func TestSuperBlockWrongPasswordFails(t *testing.T) {
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	sb := New(types.NewEid(), crypto.NewKey(), cr, nil)
	require.NoError(t, sb.Save("right-password", b))

	_, err := Load("wrong-password", b)
	assert.Error(t, err)
}

func TestSuperBlockAlternatesArms(t *testing.T) {
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	sb := New(types.NewEid(), crypto.NewKey(), cr, []byte("v0"))

	require.NoError(t, sb.Save("pwd", b)) // seq 0 -> left arm
	require.NoError(t, sb.Save("pwd", b)) // seq 1 -> right arm

	_, err := b.GetSuperBlock(leftArm)
	require.NoError(t, err)
	_, err = b.GetSuperBlock(rightArm)
	require.NoError(t, err)
}

func TestSuperBlockLoadPrefersHigherSequence(t *testing.T) {
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	sb := New(types.NewEid(), crypto.NewKey(), cr, []byte("gen0"))

	require.NoError(t, sb.Save("pwd", b))
	sb.Payload = []byte("gen1")
	require.NoError(t, sb.Save("pwd", b))

	loaded, err := Load("pwd", b)
	require.NoError(t, err)
	assert.Equal(t, []byte("gen1"), loaded.Payload)
}

func TestSuperBlockLoadSurvivesOneCorruptArm(t *testing.T) {
	b := backend.NewMemBackend()
	cr := crypto.New(crypto.Interactive, crypto.Xchacha)
	sb := New(types.NewEid(), crypto.NewKey(), cr, []byte("intact"))
	require.NoError(t, sb.Save("pwd", b))

	require.NoError(t, b.PutSuperBlock([]byte("garbage"), rightArm))

	loaded, err := Load("pwd", b)
	require.NoError(t, err)
	assert.Equal(t, []byte("intact"), loaded.Payload)
}

func TestSuperBlockLoadFailsWhenBothArmsUnreadable(t *testing.T) {
	b := backend.NewMemBackend()
	_, err := Load("pwd", b)
	assert.True(t, apperr.Is(err, apperr.KindInvalidSuperBlk) || apperr.Is(err, apperr.KindNotFound))
}
