// core/executor_restore.go
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RestoreOptions configures one RestoreExecutor run.
type RestoreOptions struct {
	BackupDir  string
	RestoreDir string
	// Paths restricts the restore to these manifest paths; empty means
	// restore everything.
	Paths []string
	// Passphrase is only consulted for entries with Encrypted = true.
	Passphrase string
	Overwrite  bool
	Progress   ProgressFunc
}

// RestoreResult is the outcome of one restore run.
type RestoreResult struct {
	Success       bool
	RestoredFiles int
	RestoredBytes uint64
	SkippedFiles  int
	FailedFiles   []string
	Duration      time.Duration
	Error         error
}

// RestoreExecutor drives one restore run against a backup destination
// produced by BackupExecutor.
type RestoreExecutor struct {
	Progress *ProgressMailbox
}

// NewRestoreExecutor builds a RestoreExecutor with a fresh progress
// mailbox.
func NewRestoreExecutor() *RestoreExecutor {
	return &RestoreExecutor{Progress: &ProgressMailbox{}}
}

func (e *RestoreExecutor) emit(opts RestoreOptions, snap ProgressSnapshot) {
	if e.Progress != nil {
		e.Progress.Set(snap)
	}
	if opts.Progress != nil {
		opts.Progress(snap)
	}
}

// Run executes the full restore procedure described by opts.
func (e *RestoreExecutor) Run(ctx context.Context, opts RestoreOptions) (*RestoreResult, error) {
	start := time.Now()
	result := &RestoreResult{}

	e.emit(opts, ProgressSnapshot{Stage: StageLoadingManifest})

	manifest, err := LoadManifest(opts.BackupDir)
	if err != nil {
		result.Error = err
		e.emit(opts, ProgressSnapshot{Stage: StageFailed})
		return result, result.Error
	}

	targets := manifest.Files
	if len(opts.Paths) > 0 {
		wanted := make(map[string]struct{}, len(opts.Paths))
		for _, p := range opts.Paths {
			wanted[p] = struct{}{}
		}
		targets = make(map[string]ManifestEntry, len(wanted))
		for path, entry := range manifest.Files {
			if _, ok := wanted[path]; ok {
				targets[path] = entry
			}
		}
	}

	var encryptor *Encryptor
	if opts.Passphrase != "" {
		encryptor = NewEncryptor(opts.Passphrase)
	}

	e.emit(opts, ProgressSnapshot{Stage: StageRestoring, TotalFiles: len(targets)})

	var processed int
	var processedBytes uint64
	for relPath, entry := range targets {
		select {
		case <-ctx.Done():
			result.Error = ctx.Err()
			e.emit(opts, ProgressSnapshot{Stage: StageFailed, ProcessedFiles: processed, TotalFiles: len(targets)})
			return result, result.Error
		default:
		}

		e.emit(opts, ProgressSnapshot{
			Stage:          StageRestoring,
			CurrentFile:    relPath,
			ProcessedFiles: processed,
			TotalFiles:     len(targets),
			ProcessedBytes: processedBytes,
		})

		destPath := filepath.Join(opts.RestoreDir, filepath.FromSlash(relPath))
		if !opts.Overwrite {
			if _, err := os.Stat(destPath); err == nil {
				result.SkippedFiles++
				processed++
				continue
			}
		}

		size, err := restoreFile(opts.BackupDir, destPath, entry, manifest.Config, encryptor)
		if err != nil {
			result.FailedFiles = append(result.FailedFiles, fmt.Sprintf("%s: %v", relPath, err))
			processed++
			continue
		}

		result.RestoredFiles++
		result.RestoredBytes += size
		processedBytes += size
		processed++
	}

	result.Duration = time.Since(start)
	result.Success = len(result.FailedFiles) == 0

	finalStage := StageCompleted
	if !result.Success {
		finalStage = StageFailed
	}
	e.emit(opts, ProgressSnapshot{
		Stage:          finalStage,
		ProcessedFiles: len(targets),
		TotalFiles:     len(targets),
		ProcessedBytes: processedBytes,
	})

	return result, nil
}

// restoreFile reads one blob, reverses its transforms, and writes the
// plaintext to destPath. It returns the restored (original) byte count.
func restoreFile(backupDir, destPath string, entry ManifestEntry, policy PolicyConfig, encryptor *Encryptor) (uint64, error) {
	blobRel := entry.Path
	if entry.Encrypted {
		blobRel = withEncExtension(entry.Path)
	}
	blobPath := filepath.Join(backupDir, "data", filepath.FromSlash(blobRel))

	data, err := os.ReadFile(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrBackupFileNotFound
		}
		return 0, fmt.Errorf("read blob: %w", err)
	}

	if entry.Encrypted {
		if encryptor == nil {
			return 0, ErrWrongPassword
		}
		data, err = encryptor.Decrypt(data)
		if err != nil {
			return 0, ErrWrongPassword
		}
	}

	if entry.Compressed || policy.Compress {
		data, err = Decompress(data)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}

	return uint64(len(data)), nil
}
