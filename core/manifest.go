// core/manifest.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrManifestNotFound is returned when a destination has no manifest.json
// (and no recoverable manifest.json.tmp either).
var ErrManifestNotFound = errors.New("manifest: not found")

// ErrManifestParse is returned when manifest.json exists but is not valid
// JSON for the BackupManifest schema.
var ErrManifestParse = errors.New("manifest: parse failed")

// ManifestFileName is the manifest's fixed name under a backup destination.
const ManifestFileName = "manifest.json"

const manifestTmpSuffix = ".tmp"

// BuildManifest creates a fresh manifest from a completed scan and the
// policy that governed the run. BackedUpSize starts at 0 per-entry; the
// caller fills it in as files are actually written.
func BuildManifest(sourceDir string, scan *ScanResult, policy PolicyConfig) *BackupManifest {
	now := time.Now().UTC()
	files := make(map[string]ManifestEntry, len(scan.Files))
	var totalSize uint64
	for path, fi := range scan.Files {
		files[path] = ManifestEntry{
			Path:         path,
			OriginalSize: fi.Size,
			Hash:         fi.Hash,
			Modified:     fi.Modified,
			Encrypted:    policy.Encrypt,
			Compressed:   policy.Compress,
		}
		totalSize += fi.Size
	}
	return &BackupManifest{
		Version:   ManifestVersion,
		CreatedAt: now,
		UpdatedAt: now,
		SourceDir: sourceDir,
		Config:    policy,
		Files:     files,
		Stats: ManifestStats{
			TotalFiles:        len(files),
			TotalOriginalSize: totalSize,
			LastBackup:        now,
			BackupCount:       1,
		},
	}
}

// Update folds a fresh scan into an existing manifest: entries present in
// the scan are overwritten (or inserted, inheriting the run policy);
// entries absent from the scan are dropped. Stats are recomputed and the
// backup counter incremented.
func (m *BackupManifest) Update(scan *ScanResult, policy PolicyConfig) {
	next := make(map[string]ManifestEntry, len(scan.Files))
	var totalSize, totalBackedUp uint64
	for path, fi := range scan.Files {
		entry, existed := m.Files[path]
		if existed {
			entry.Hash = fi.Hash
			entry.OriginalSize = fi.Size
			entry.Modified = fi.Modified
		} else {
			entry = ManifestEntry{
				Path:         path,
				OriginalSize: fi.Size,
				Hash:         fi.Hash,
				Modified:     fi.Modified,
				Encrypted:    policy.Encrypt,
				Compressed:   policy.Compress,
			}
		}
		next[path] = entry
		totalSize += fi.Size
		totalBackedUp += entry.BackedUpSize
	}

	now := time.Now().UTC()
	m.Files = next
	m.Config = policy
	m.UpdatedAt = now
	m.Stats.TotalFiles = len(next)
	m.Stats.TotalOriginalSize = totalSize
	m.Stats.TotalBackedUpSize = totalBackedUp
	m.Stats.LastBackup = now
	m.Stats.BackupCount++
}

// SetBackedUpSize records the on-disk size of a freshly written blob.
func (m *BackupManifest) SetBackedUpSize(path string, size uint64) {
	entry, ok := m.Files[path]
	if !ok {
		return
	}
	m.Stats.TotalBackedUpSize = m.Stats.TotalBackedUpSize - entry.BackedUpSize + size
	entry.BackedUpSize = size
	m.Files[path] = entry
}

// Save writes the manifest as pretty-printed JSON to dest/manifest.json.
// It writes to a .tmp sibling first and renames it into place so a crash
// mid-write never leaves a truncated manifest.json.
func (m *BackupManifest) Save(dest string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}

	final := filepath.Join(dest, ManifestFileName)
	tmp := final + manifestTmpSuffix

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("manifest: write temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("manifest: commit: %w", err)
	}
	return nil
}

// LoadManifest reads dest/manifest.json. When the final file is missing
// but a stray .tmp from an interrupted commit remains, it is read as a
// fallback.
func LoadManifest(dest string) (*BackupManifest, error) {
	final := filepath.Join(dest, ManifestFileName)
	data, err := os.ReadFile(final)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest: read: %w", err)
		}
		tmp := final + manifestTmpSuffix
		data, err = os.ReadFile(tmp)
		if err != nil {
			return nil, ErrManifestNotFound
		}
	}

	var manifest BackupManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestParse, err)
	}
	return &manifest, nil
}
