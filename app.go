// app.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vaultkeep/core"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type App struct {
	ctx    context.Context
	db     *sql.DB
	cancel context.CancelFunc // interrupts an in-flight backup/restore

	taskRunner *core.TaskRunner

	mu       sync.Mutex
	progress *core.ProgressMailbox
	lastScan *core.ScanMailbox
}

func NewApp() *App {
	return &App{
		progress: &core.ProgressMailbox{},
		lastScan: &core.ScanMailbox{},
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	db, err := InitializeDatabase(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	a.db = db
	a.initTaskRunner()
}

func (a *App) shutdown(ctx context.Context) {
	a.shutdownTaskRunner()
	if a.db != nil {
		a.db.Close()
	}
}

// --- Dialogs ---

func (a *App) SelectFiles(selectDirectories bool) ([]string, error) {
	if selectDirectories {
		dir, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
			Title: "Select Directory",
		})
		if err != nil {
			return nil, err
		}
		if dir == "" {
			return []string{}, nil
		}
		return []string{dir}, nil
	}
	return runtime.OpenMultipleFilesDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Files",
	})
}

func (a *App) SelectDirectory() (string, error) {
	return runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Directory",
	})
}

func (a *App) OpenInExplorer(path string) {
	runtime.BrowserOpenURL(a.ctx, "file://"+path)
}

func (a *App) StopOperation() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		log.Println("Received stop signal from frontend.")
		cancel()
	}
}

// --- Command surface ---

// ScanDirectoryResult is the wire shape of ScanDirectory's response.
type ScanDirectoryResult struct {
	Success    bool   `json:"success"`
	TotalFiles int    `json:"totalFiles"`
	TotalSize  uint64 `json:"totalSize"`
	Error      string `json:"error,omitempty"`
}

// ScanDirectory walks path and reports its file count and total size
// without performing a backup.
func (a *App) ScanDirectory(path string, computeHash bool) ScanDirectoryResult {
	scanner := core.NewScanner(path)
	if computeHash {
		scanner = scanner.WithHashing()
	}
	scan, err := scanner.Scan(a.ctx)
	if err != nil {
		return ScanDirectoryResult{Error: err.Error()}
	}
	a.lastScan.Set(scan)
	return ScanDirectoryResult{Success: true, TotalFiles: scan.TotalFiles, TotalSize: scan.TotalSize}
}

// ProgressStatus is the wire shape of GetProgress's response.
type ProgressStatus struct {
	Active         bool    `json:"active"`
	ProcessedFiles int     `json:"processedFiles"`
	TotalFiles     int     `json:"totalFiles"`
	ProcessedBytes uint64  `json:"processedBytes"`
	TotalBytes     uint64  `json:"totalBytes"`
	CurrentFile    string  `json:"currentFile"`
	Status         string  `json:"status"`
	Percentage     float64 `json:"percentage"`
}

// GetProgress returns the latest published progress snapshot.
func (a *App) GetProgress() ProgressStatus {
	snap, ok := a.progress.Get()
	if !ok {
		return ProgressStatus{Status: string(core.StageIdle)}
	}
	active := snap.Stage != core.StageCompleted && snap.Stage != core.StageFailed && snap.Stage != core.StageIdle
	return ProgressStatus{
		Active:         active,
		ProcessedFiles: snap.ProcessedFiles,
		TotalFiles:     snap.TotalFiles,
		ProcessedBytes: snap.ProcessedBytes,
		TotalBytes:     snap.TotalBytes,
		CurrentFile:    snap.CurrentFile,
		Status:         string(snap.Stage),
		Percentage:     snap.Percentage(),
	}
}

// PasswordCheck is the wire shape of CheckPassword's response.
type PasswordCheck struct {
	Strength    string   `json:"strength"`
	Score       int      `json:"score"`
	Suggestions []string `json:"suggestions"`
}

// CheckPassword classifies a candidate passphrase's strength. Score is the
// category ordinal (Weak=1, Medium=2, Strong=3), not the raw 0-6 point
// total core.Strength uses internally.
func (a *App) CheckPassword(password string) PasswordCheck {
	strength, _ := core.Strength(password)
	return PasswordCheck{
		Strength:    strength.String(),
		Score:       int(strength) + 1,
		Suggestions: core.StrengthSuggestions(password),
	}
}

// FormatFileSize renders bytes using 1024-based units, e.g. "1.50 KB".
func (a *App) FormatFileSize(bytes uint64) string {
	return core.FormatFileSize(bytes)
}

// --- Backup ---

type BackupConfig struct {
	SourcePaths    []string          `json:"sourcePaths"`
	DestinationDir string            `json:"destinationDir"`
	Filters        core.FilterConfig `json:"filters"`
	UseCompression bool              `json:"useCompression"`
	UseEncryption  bool              `json:"useEncryption"`
	Password       string            `json:"password"`
	Incremental    bool              `json:"incremental"`
	RemoteURL      string            `json:"remoteUrl,omitempty"`
}

// BackupSummary is the wire shape of StartBackup's response.
type BackupSummary struct {
	Success       bool   `json:"success"`
	BackedUpFiles int    `json:"backedUpFiles"`
	BackedUpBytes uint64 `json:"backedUpBytes"`
	SkippedFiles  int    `json:"skippedFiles"`
	DurationSecs  float64 `json:"durationSecs"`
	Error         string `json:"error,omitempty"`
}

func (a *App) StartBackup(config BackupConfig) (BackupSummary, error) {
	if len(config.SourcePaths) == 0 {
		return BackupSummary{}, fmt.Errorf("no source paths provided")
	}

	opCtx, cancel := context.WithCancel(a.ctx)
	a.mu.Lock()
	a.cancel = cancel
	executor := core.NewBackupExecutor()
	a.progress = executor.Progress
	a.lastScan = executor.LastScan
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
	}()

	policy := core.PolicyConfig{
		Encrypt:     config.UseEncryption,
		Compress:    config.UseCompression,
		Incremental: config.Incremental,
	}

	var summary BackupSummary
	for _, src := range config.SourcePaths {
		dest := filepath.Join(config.DestinationDir, sanitizeBaseName(src))
		result, err := executor.Run(opCtx, core.BackupOptions{
			SourceDir:  src,
			DestDir:    dest,
			Filters:    config.Filters,
			Policy:     policy,
			Passphrase: config.Password,
			RemoteURL:  config.RemoteURL,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return BackupSummary{Error: "cancelled"}, nil
			}
			return BackupSummary{Error: err.Error()}, fmt.Errorf("backup failed: %w", err)
		}

		summary.BackedUpFiles += result.BackedUpFiles
		summary.BackedUpBytes += result.BackedUpBytes
		summary.SkippedFiles += result.SkippedFiles
		summary.DurationSecs += result.Duration.Seconds()
		if !result.Success {
			summary.Error = strings.Join(result.FailedFiles, "; ")
		}

		if err := a.AddBackupRecord(filepath.Base(dest), dest, []string{src}); err != nil {
			log.Printf("Failed to save backup record to database: %v", err)
		}
	}
	summary.Success = summary.Error == ""

	log.Println("Backup completed.")
	return summary, nil
}

// --- Restore ---

type RestoreConfig struct {
	BackupDir  string   `json:"backupDir"`
	RestoreDir string   `json:"restoreDir"`
	Password   string   `json:"password"`
	Overwrite  bool     `json:"overwrite"`
	Paths      []string `json:"paths"`
}

// RestoreSummary is the wire shape of StartRestore's response.
type RestoreSummary struct {
	Success       bool    `json:"success"`
	RestoredFiles int     `json:"restoredFiles"`
	RestoredBytes uint64  `json:"restoredBytes"`
	SkippedFiles  int     `json:"skippedFiles"`
	DurationSecs  float64 `json:"durationSecs"`
	Error         string  `json:"error,omitempty"`
}

func (a *App) StartRestore(config RestoreConfig) (RestoreSummary, error) {
	opCtx, cancel := context.WithCancel(a.ctx)
	a.mu.Lock()
	a.cancel = cancel
	executor := core.NewRestoreExecutor()
	a.progress = executor.Progress
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
	}()

	log.Printf("Starting restore of %s to %s", config.BackupDir, config.RestoreDir)

	result, err := executor.Run(opCtx, core.RestoreOptions{
		BackupDir:  config.BackupDir,
		RestoreDir: config.RestoreDir,
		Paths:      config.Paths,
		Passphrase: config.Password,
		Overwrite:  config.Overwrite,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return RestoreSummary{Error: "cancelled"}, nil
		}
		return RestoreSummary{Error: err.Error()}, fmt.Errorf("restore failed: %w", err)
	}

	summary := RestoreSummary{
		Success:       result.Success,
		RestoredFiles: result.RestoredFiles,
		RestoredBytes: result.RestoredBytes,
		SkippedFiles:  result.SkippedFiles,
		DurationSecs:  result.Duration.Seconds(),
	}
	if !result.Success {
		summary.Error = strings.Join(result.FailedFiles, "; ")
	}

	log.Println("Restore completed.")
	return summary, nil
}

// --- Database Functions ---

type BackupRecord struct {
	ID          int       `json:"ID"`
	FileName    string    `json:"FileName"`
	BackupPath  string    `json:"BackupPath"`
	SourcePaths string    `json:"SourcePaths"`
	CreatedAt   time.Time `json:"CreatedAt"`
}

func (a *App) AddBackupRecord(fileName, backupPath string, sourcePaths []string) error {
	stmt, err := a.db.Prepare("INSERT INTO backups(file_name, backup_path, source_paths, created_at) VALUES(?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(fileName, backupPath, strings.Join(sourcePaths, ";"), time.Now())
	return err
}

func (a *App) GetBackupHistory() ([]BackupRecord, error) {
	rows, err := a.db.Query("SELECT id, file_name, backup_path, source_paths, created_at FROM backups ORDER BY created_at DESC LIMIT 50")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []BackupRecord
	var validRecords []BackupRecord
	var invalidIDs []int

	for rows.Next() {
		var r BackupRecord
		if err := rows.Scan(&r.ID, &r.FileName, &r.BackupPath, &r.SourcePaths, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	for _, record := range records {
		if _, err := os.Stat(record.BackupPath); err == nil {
			validRecords = append(validRecords, record)
		} else {
			invalidIDs = append(invalidIDs, record.ID)
		}
	}

	if len(invalidIDs) > 0 {
		placeholders := strings.Repeat("?,", len(invalidIDs)-1) + "?"
		query := fmt.Sprintf("DELETE FROM backups WHERE id IN (%s)", placeholders)

		args := make([]interface{}, len(invalidIDs))
		for i, id := range invalidIDs {
			args[i] = id
		}

		if _, err := a.db.Exec(query, args...); err != nil {
			log.Printf("Failed to prune invalid backup records: %v", err)
		}
	}

	return validRecords, nil
}
