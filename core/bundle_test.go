// core/bundle_test.go
package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBundleDestination_RoundTrip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "manifest.json"), []byte(`{"version":1}`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "data", "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "a.bin"), []byte("hello world"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "nested", "b.bin"), []byte("second file"), 0644))

	var buf bytes.Buffer
	require.NoError(t, BundleDestination(src, &buf))

	dst := t.TempDir()
	require.NoError(t, UnbundleDestination(&buf, dst))

	got, err := os.ReadFile(filepath.Join(dst, "manifest.json"))
	require.NoError(t, err)
	require.Equal(t, `{"version":1}`, string(got))

	got, err = os.ReadFile(filepath.Join(dst, "data", "a.bin"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))

	got, err = os.ReadFile(filepath.Join(dst, "data", "nested", "b.bin"))
	require.NoError(t, err)
	require.Equal(t, "second file", string(got))
}

func TestBundleDestination_EmptyDestination(t *testing.T) {
	src := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, BundleDestination(src, &buf))

	dst := t.TempDir()
	require.NoError(t, UnbundleDestination(&buf, dst))

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	require.Empty(t, entries)
}
