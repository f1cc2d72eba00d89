package fnode

import (
	"testing"

	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFileRoundTrip(t *testing.T) {
	f := NewFile(8)
	f.AppendVersion([]types.Segment{seg(1), seg(2)}, 20)
	f.AppendVersion([]types.Segment{seg(3)}, 10)

	buf := Encode(f)
	got, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, f.Kind, got.Kind)
	assert.Equal(t, f.VersionLimit, got.VersionLimit)
	assert.Equal(t, f.NextVersionNum, got.NextVersionNum)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, f.Versions[0].Num, got.Versions[0].Num)
	assert.Equal(t, f.Versions[0].Segments, got.Versions[0].Segments)
	assert.Equal(t, f.Versions[1].Segments, got.Versions[1].Segments)
	assert.Empty(t, got.Entries)
}

func TestEncodeDecodeDirRoundTrip(t *testing.T) {
	d := NewDir()
	d.AddEntry("alpha", types.NewEid())
	d.AddEntry("bravo", types.NewEid())

	buf := Encode(d)
	got, err := Decode(buf)
	require.NoError(t, err)

	assert.True(t, got.IsDir())
	require.Len(t, got.Entries, 2)
	assert.Equal(t, d.Entries, got.Entries)
	assert.Empty(t, got.Versions)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedVersionSection(t *testing.T) {
	f := NewFile(4)
	f.AppendVersion([]types.Segment{seg(1)}, 5)
	buf := Encode(f)

	// Drop the trailing entry count plus the last 4 bytes of the only
	// segment record, so decoding fails inside the version section.
	_, err := Decode(buf[:len(buf)-8])
	assert.Error(t, err)
}
