// core/types.go
package core

import "time"

// FileInfo describes one regular file discovered by a scan.
type FileInfo struct {
	RelativePath string    `json:"relativePath"`
	Size         uint64    `json:"size"`
	Modified     time.Time `json:"modified"`
	// Hash is the lowercase-hex BLAKE3 digest of the file's content, or
	// empty when the scan was run with hashing disabled.
	Hash string `json:"hash,omitempty"`
}

// ScanResult is the snapshot produced by one directory walk.
type ScanResult struct {
	SourceDir  string              `json:"sourceDir"`
	ScannedAt  time.Time           `json:"scannedAt"`
	Files      map[string]FileInfo `json:"files"`
	TotalFiles int                 `json:"totalFiles"`
	TotalSize  uint64              `json:"totalSize"`
}

// DiffResult partitions the union of a previous manifest's paths and a
// fresh scan's paths into four disjoint sets.
type DiffResult struct {
	Added     []string `json:"added"`
	Modified  []string `json:"modified"`
	Unchanged []string `json:"unchanged"`
	Deleted   []string `json:"deleted"`
}

// WorkSet is the set of paths a backup run must actually process: the
// added paths followed by the modified ones.
func (d DiffResult) WorkSet() []string {
	work := make([]string, 0, len(d.Added)+len(d.Modified))
	work = append(work, d.Added...)
	work = append(work, d.Modified...)
	return work
}

// ManifestEntry is the per-file record carried in a BackupManifest.
type ManifestEntry struct {
	Path         string    `json:"path"`
	OriginalSize uint64    `json:"originalSize"`
	BackedUpSize uint64    `json:"backedUpSize"`
	Hash         string    `json:"hash"`
	Modified     time.Time `json:"modified"`
	Encrypted    bool      `json:"encrypted"`
	Compressed   bool      `json:"compressed"`
}

// PolicyConfig is the transform policy snapshot recorded alongside a
// manifest so that restore and later incremental runs know what was done.
type PolicyConfig struct {
	Encrypt     bool `json:"encrypt"`
	Compress    bool `json:"compress"`
	Incremental bool `json:"incremental"`
}

// ManifestStats summarizes a BackupManifest's file set.
type ManifestStats struct {
	TotalFiles         int       `json:"totalFiles"`
	TotalOriginalSize  uint64    `json:"totalOriginalSize"`
	TotalBackedUpSize  uint64    `json:"totalBackedUpSize"`
	LastBackup         time.Time `json:"lastBackup"`
	BackupCount        int       `json:"backupCount"`
}

// ManifestVersion is the current stable schema version of BackupManifest.
const ManifestVersion = "1.0.0"

// BackupManifest is the destination's durable index of the latest backup
// state. It drives both incremental diffing and restore.
type BackupManifest struct {
	Version   string                   `json:"version"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
	SourceDir string                   `json:"sourceDir"`
	Config    PolicyConfig             `json:"config"`
	Files     map[string]ManifestEntry `json:"files"`
	Stats     ManifestStats            `json:"stats"`
}
