package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiff_Classification(t *testing.T) {
	now := time.Now().UTC()
	previous := &BackupManifest{
		Files: map[string]ManifestEntry{
			"a.txt": {Path: "a.txt", Hash: "hash_a", Modified: now},
			"b.txt": {Path: "b.txt", Hash: "hash_b", Modified: now},
		},
	}
	current := &ScanResult{
		Files: map[string]FileInfo{
			"a.txt": {RelativePath: "a.txt", Hash: "hash_a", Modified: now},
			"c.txt": {RelativePath: "c.txt", Hash: "hash_c", Modified: now},
		},
	}

	d := Diff(previous, current)

	require.ElementsMatch(t, []string{"c.txt"}, d.Added)
	require.ElementsMatch(t, []string{"b.txt"}, d.Deleted)
	require.ElementsMatch(t, []string{"a.txt"}, d.Unchanged)
	require.Empty(t, d.Modified)
}

func TestDiff_ModifiedByHash(t *testing.T) {
	now := time.Now().UTC()
	previous := &BackupManifest{
		Files: map[string]ManifestEntry{
			"a.txt": {Path: "a.txt", Hash: "hash_a", Modified: now},
		},
	}
	current := &ScanResult{
		Files: map[string]FileInfo{
			"a.txt": {RelativePath: "a.txt", Hash: "hash_a2", Modified: now},
		},
	}

	d := Diff(previous, current)
	require.ElementsMatch(t, []string{"a.txt"}, d.Modified)
	require.Empty(t, d.Unchanged)
}

func TestDiff_FallsBackToSizeAndModTimeWithoutHash(t *testing.T) {
	older := time.Now().Add(-time.Hour).UTC()
	newer := time.Now().UTC()

	previous := &BackupManifest{
		Files: map[string]ManifestEntry{
			"a.txt": {Path: "a.txt", OriginalSize: 10, Modified: older},
			"b.txt": {Path: "b.txt", OriginalSize: 20, Modified: older},
		},
	}
	current := &ScanResult{
		Files: map[string]FileInfo{
			"a.txt": {RelativePath: "a.txt", Size: 10, Modified: older},
			"b.txt": {RelativePath: "b.txt", Size: 20, Modified: newer},
		},
	}

	d := Diff(previous, current)
	require.ElementsMatch(t, []string{"a.txt"}, d.Unchanged)
	require.ElementsMatch(t, []string{"b.txt"}, d.Modified)
}

func TestDiff_NilPreviousTreatsEverythingAsAdded(t *testing.T) {
	current := &ScanResult{
		Files: map[string]FileInfo{
			"a.txt": {RelativePath: "a.txt", Hash: "hash_a"},
		},
	}
	d := Diff(nil, current)
	require.ElementsMatch(t, []string{"a.txt"}, d.Added)
	require.Empty(t, d.Deleted)
	require.Empty(t, d.Unchanged)
	require.Empty(t, d.Modified)
}
