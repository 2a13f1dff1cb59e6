// core/executor_backup.go
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BackupOptions configures one BackupExecutor run.
type BackupOptions struct {
	SourceDir string
	DestDir   string
	Filters   FilterConfig
	Policy    PolicyConfig
	// Passphrase is only consulted when Policy.Encrypt is true.
	Passphrase string
	Progress   ProgressFunc
	// RemoteURL, if set, mirrors the destination tree to a remote
	// endpoint (currently ftp:// / ftps://) after a successful run.
	RemoteURL string
}

// BackupResult is the outcome of one backup run.
type BackupResult struct {
	Success       bool
	BackedUpFiles int
	BackedUpBytes uint64
	SkippedFiles  int
	FailedFiles   []string
	Duration      time.Duration
	Error         error
}

// BackupExecutor drives one backup run: scan, diff, per-file transform,
// manifest rewrite. It holds no state across runs beyond the mailboxes
// used to publish progress to a host.
type BackupExecutor struct {
	Progress *ProgressMailbox
	LastScan *ScanMailbox
}

// NewBackupExecutor builds a BackupExecutor with fresh mailboxes.
func NewBackupExecutor() *BackupExecutor {
	return &BackupExecutor{Progress: &ProgressMailbox{}, LastScan: &ScanMailbox{}}
}

func (e *BackupExecutor) emit(opts BackupOptions, snap ProgressSnapshot) {
	if e.Progress != nil {
		e.Progress.Set(snap)
	}
	if opts.Progress != nil {
		opts.Progress(snap)
	}
}

// Run executes the full backup procedure described by opts.
func (e *BackupExecutor) Run(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := time.Now()
	result := &BackupResult{}

	e.emit(opts, ProgressSnapshot{Stage: StageScanning})

	scanner := NewScanner(opts.SourceDir).WithHashing().WithFilters(opts.Filters)
	scan, err := scanner.Scan(ctx)
	if err != nil {
		result.Error = fmt.Errorf("backup: scan: %w", err)
		e.emit(opts, ProgressSnapshot{Stage: StageFailed})
		return result, result.Error
	}
	if e.LastScan != nil {
		e.LastScan.Set(scan)
	}

	if err := os.MkdirAll(opts.DestDir, 0755); err != nil {
		result.Error = fmt.Errorf("backup: create destination: %w", err)
		e.emit(opts, ProgressSnapshot{Stage: StageFailed})
		return result, result.Error
	}

	e.emit(opts, ProgressSnapshot{Stage: StageComputingDiff, TotalFiles: scan.TotalFiles})

	var workSet []string
	var skipped int
	var previous *BackupManifest
	if opts.Policy.Incremental {
		previous, err = LoadManifest(opts.DestDir)
		if err == nil {
			diff := Diff(previous, scan)
			workSet = diff.WorkSet()
			skipped = len(diff.Unchanged)
		} else if err != ErrManifestNotFound {
			result.Error = fmt.Errorf("backup: load manifest: %w", err)
			e.emit(opts, ProgressSnapshot{Stage: StageFailed})
			return result, result.Error
		}
	}
	if workSet == nil {
		workSet = make([]string, 0, len(scan.Files))
		for path := range scan.Files {
			workSet = append(workSet, path)
		}
	}
	result.SkippedFiles = skipped

	var encryptor *Encryptor
	if opts.Policy.Encrypt {
		if opts.Passphrase == "" {
			result.Error = ErrInvalidPassword
			e.emit(opts, ProgressSnapshot{Stage: StageFailed})
			return result, result.Error
		}
		encryptor = NewEncryptor(opts.Passphrase)
	}

	var manifest *BackupManifest
	if previous != nil {
		manifest = previous
		manifest.Update(scan, opts.Policy)
	} else {
		manifest = BuildManifest(opts.SourceDir, scan, opts.Policy)
	}

	totalBytes := scan.TotalSize
	var processedBytes uint64

	for i, relPath := range workSet {
		select {
		case <-ctx.Done():
			result.Error = ctx.Err()
			e.emit(opts, ProgressSnapshot{Stage: StageFailed, ProcessedFiles: i, TotalFiles: len(workSet)})
			return result, result.Error
		default:
		}

		e.emit(opts, ProgressSnapshot{
			Stage:          StageBacking,
			CurrentFile:    relPath,
			ProcessedFiles: i,
			TotalFiles:     len(workSet),
			ProcessedBytes: processedBytes,
			TotalBytes:     totalBytes,
		})

		backedUpSize, err := backupFile(opts.SourceDir, opts.DestDir, relPath, opts.Policy, encryptor)
		if err != nil {
			result.FailedFiles = append(result.FailedFiles, fmt.Sprintf("%s: %v", relPath, err))
			continue
		}

		manifest.SetBackedUpSize(relPath, backedUpSize)
		result.BackedUpFiles++
		result.BackedUpBytes += scan.Files[relPath].Size
		processedBytes += scan.Files[relPath].Size
	}

	if err := manifest.Save(opts.DestDir); err != nil {
		result.Error = fmt.Errorf("backup: save manifest: %w", err)
		e.emit(opts, ProgressSnapshot{Stage: StageFailed, ProcessedFiles: len(workSet), TotalFiles: len(workSet)})
		return result, result.Error
	}

	if opts.RemoteURL != "" && len(result.FailedFiles) == 0 {
		if err := mirrorToRemote(opts.RemoteURL, opts.DestDir); err != nil {
			result.FailedFiles = append(result.FailedFiles, fmt.Sprintf("remote sync: %v", err))
		}
	}

	result.Duration = time.Since(start)
	result.Success = len(result.FailedFiles) == 0

	finalStage := StageCompleted
	if !result.Success {
		finalStage = StageFailed
	}
	e.emit(opts, ProgressSnapshot{
		Stage:          finalStage,
		ProcessedFiles: len(workSet),
		TotalFiles:     len(workSet),
		ProcessedBytes: processedBytes,
		TotalBytes:     totalBytes,
	})

	return result, nil
}

// backupFile reads one source file, applies the configured transforms,
// writes the result under destDir/data/, and returns the post-transform
// byte count actually written to destDir.
func backupFile(sourceDir, destDir, relPath string, policy PolicyConfig, encryptor *Encryptor) (uint64, error) {
	srcPath := filepath.Join(sourceDir, filepath.FromSlash(relPath))
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}

	payload := data
	if policy.Compress {
		payload, err = Compress(payload)
		if err != nil {
			return 0, fmt.Errorf("compress: %w", err)
		}
	}

	destRel := relPath
	if policy.Encrypt && encryptor != nil {
		payload, err = encryptor.Encrypt(payload)
		if err != nil {
			return 0, fmt.Errorf("encrypt: %w", err)
		}
		destRel = withEncExtension(relPath)
	}

	destPath := filepath.Join(destDir, "data", filepath.FromSlash(destRel))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(destPath, payload, 0644); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}

	return uint64(len(payload)), nil
}

// withEncExtension appends ".enc" to a path's extension, or sets the
// extension to "enc" when the path has none.
func withEncExtension(relPath string) string {
	return relPath + ".enc"
}

// mirrorToRemote bundles destDir into one stream and uploads it to
// remoteURL, closing the uploader's connection when done.
func mirrorToRemote(remoteURL, destDir string) error {
	uploader, err := GetUploaderFor(remoteURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer uploader.Close()

	return UploadDestination(destDir, uploader)
}
