package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompress_RoundTrip(t *testing.T) {
	original := []byte("Hello, Backup!\nHello, Backup!\nHello, Backup!\n")

	compressed, err := Compress(original)
	require.NoError(t, err)
	require.NotEmpty(t, compressed)

	out, err := Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, original, out)
}

func TestCompress_EmptyInput(t *testing.T) {
	compressed, err := Compress(nil)
	require.NoError(t, err)

	out, err := Decompress(compressed)
	require.NoError(t, err)
	require.Empty(t, out)
}
