// core/progress.go
package core

import "sync"

// Stage names the run's current state-machine state.
type Stage string

const (
	StageIdle           Stage = "idle"
	StageScanning       Stage = "scanning"
	StageComputingDiff  Stage = "computing_diff"
	StageBacking        Stage = "backing"
	StageLoadingManifest Stage = "loading_manifest"
	StageRestoring      Stage = "restoring"
	StageCompleted      Stage = "completed"
	StageFailed         Stage = "failed"
)

// ProgressSnapshot is one point-in-time view of a run, handed to the
// optional progress callback. Consumers must treat ProcessedFiles as the
// only monotone (nondecreasing) field within a run.
type ProgressSnapshot struct {
	Stage          Stage  `json:"stage"`
	CurrentFile    string `json:"currentFile"`
	ProcessedFiles int    `json:"processedFiles"`
	TotalFiles     int    `json:"totalFiles"`
	ProcessedBytes uint64 `json:"processedBytes"`
	TotalBytes     uint64 `json:"totalBytes"`
}

// Percentage returns the completion fraction in [0, 100], 0 when
// TotalFiles is 0.
func (p ProgressSnapshot) Percentage() float64 {
	if p.TotalFiles == 0 {
		return 0
	}
	return 100 * float64(p.ProcessedFiles) / float64(p.TotalFiles)
}

// ProgressFunc is invoked synchronously from the run goroutine at every
// stage transition and per-file step. Implementations must not block.
type ProgressFunc func(ProgressSnapshot)

// ProgressMailbox is a single-slot, mutex-guarded, last-writer-wins cell
// shared between the engine (writer) and a host (reader) across a thread
// boundary.
type ProgressMailbox struct {
	mu   sync.Mutex
	last ProgressSnapshot
	set  bool
}

// Set overwrites the mailbox's current value. Never blocks longer than
// one mutex acquisition.
func (b *ProgressMailbox) Set(p ProgressSnapshot) {
	b.mu.Lock()
	b.last = p
	b.set = true
	b.mu.Unlock()
}

// Get returns the latest snapshot and whether one has ever been set.
func (b *ProgressMailbox) Get() (ProgressSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.set
}

// ScanMailbox is the same single-slot discipline applied to the most
// recent completed ScanResult.
type ScanMailbox struct {
	mu   sync.Mutex
	last *ScanResult
}

// Set overwrites the mailbox's current scan result.
func (b *ScanMailbox) Set(s *ScanResult) {
	b.mu.Lock()
	b.last = s
	b.mu.Unlock()
}

// Get returns the latest scan result, or nil if none has been recorded.
func (b *ScanMailbox) Get() *ScanResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
