package varint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 63, 64, 127, 128, 200, 16383, 16384, 1 << 20, 1 << 40, 1<<63 - 1, -1, -128}
	for _, v := range cases {
		enc := Encode(v)
		got, n, err := Decode(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestEncodeWidths(t *testing.T) {
	require.Len(t, Encode(0), 1)
	require.Len(t, Encode(127), 1)
	require.Len(t, Encode(128), 2)
	require.Len(t, Encode(16383), 2)
	require.Len(t, Encode(16384), 3)
	require.Len(t, Encode(-1), 9) // -1 as uint64 sets every bit, forcing the 9-byte form
}

func TestSizeMatchesEncodeLength(t *testing.T) {
	for _, v := range []int64{0, 128, 1 << 30, -1, -5000} {
		require.Equal(t, len(Encode(v)), Size(v))
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := Decode([]byte{0x80})
	require.Error(t, err)

	_, _, err = Decode(nil)
	require.Error(t, err)
}

func TestDecodeNineByteForm(t *testing.T) {
	enc := Encode(-1)
	require.Len(t, enc, 9)
	v, n, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, 9, n)
	require.Equal(t, int64(-1), v)
}
