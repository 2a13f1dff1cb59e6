package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackupExecutor_FullUnencryptedCompressed(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "test.txt"), []byte("Hello, Backup!\n"), 0644))

	exec := NewBackupExecutor()
	result, err := exec.Run(context.Background(), BackupOptions{
		SourceDir: src,
		DestDir:   dest,
		Policy:    PolicyConfig{Encrypt: false, Compress: true, Incremental: false},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.BackedUpFiles)

	_, err = os.Stat(filepath.Join(dest, "manifest.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "data", "test.txt"))
	require.NoError(t, err)
}

func TestBackupRestore_EncryptedRoundTrip(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	restoreDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "secret.txt"), []byte("Secret Data!\n"), 0644))

	backup := NewBackupExecutor()
	bResult, err := backup.Run(context.Background(), BackupOptions{
		SourceDir:  src,
		DestDir:    dest,
		Policy:     PolicyConfig{Encrypt: true, Compress: true},
		Passphrase: "test_password_123",
	})
	require.NoError(t, err)
	require.True(t, bResult.Success)

	restore := NewRestoreExecutor()
	rResult, err := restore.Run(context.Background(), RestoreOptions{
		BackupDir:  dest,
		RestoreDir: restoreDir,
		Passphrase: "test_password_123",
		Overwrite:  true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, rResult.RestoredFiles)

	restored, err := os.ReadFile(filepath.Join(restoreDir, "secret.txt"))
	require.NoError(t, err)
	require.Equal(t, "Secret Data!\n", string(restored))
}

func TestRestore_WrongPassphraseFailsWithoutPartialWrite(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	restoreDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "secret.txt"), []byte("Secret Data!\n"), 0644))

	backup := NewBackupExecutor()
	_, err := backup.Run(context.Background(), BackupOptions{
		SourceDir:  src,
		DestDir:    dest,
		Policy:     PolicyConfig{Encrypt: true, Compress: true},
		Passphrase: "test_password_123",
	})
	require.NoError(t, err)

	restore := NewRestoreExecutor()
	rResult, err := restore.Run(context.Background(), RestoreOptions{
		BackupDir:  dest,
		RestoreDir: restoreDir,
		Passphrase: "wrong_password",
		Overwrite:  true,
	})
	require.NoError(t, err)
	require.False(t, rResult.Success)
	require.NotEmpty(t, rResult.FailedFiles)

	_, err = os.Stat(filepath.Join(restoreDir, "secret.txt"))
	require.True(t, os.IsNotExist(err), "no partial plaintext should be written")
}

func TestBackupExecutor_IncrementalNoOp(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "test.txt"), []byte("Hello, Backup!\n"), 0644))

	exec := NewBackupExecutor()
	first, err := exec.Run(context.Background(), BackupOptions{
		SourceDir: src,
		DestDir:   dest,
		Policy:    PolicyConfig{Compress: true},
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.BackedUpFiles)

	second, err := exec.Run(context.Background(), BackupOptions{
		SourceDir: src,
		DestDir:   dest,
		Policy:    PolicyConfig{Compress: true, Incremental: true},
	})
	require.NoError(t, err)
	require.Equal(t, 0, second.BackedUpFiles)
	require.Equal(t, 1, second.SkippedFiles)

	manifest, err := LoadManifest(dest)
	require.NoError(t, err)
	require.Equal(t, 2, manifest.Stats.BackupCount)
}

func TestBackupExecutor_RemoteMirrorConnectFailureIsReportedNotFatal(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "test.txt"), []byte("data"), 0644))

	exec := NewBackupExecutor()
	result, err := exec.Run(context.Background(), BackupOptions{
		SourceDir: src,
		DestDir:   dest,
		Policy:    PolicyConfig{Compress: true},
		RemoteURL: "ftp://127.0.0.1:1/no-such-server",
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.BackedUpFiles)
	require.False(t, result.Success)
	require.NotEmpty(t, result.FailedFiles)

	_, err = os.Stat(filepath.Join(dest, "manifest.json"))
	require.NoError(t, err, "local backup must still land even when the remote mirror fails")
}

func TestFormatFileSize(t *testing.T) {
	require.Equal(t, "0 bytes", FormatFileSize(0))
	require.Equal(t, "1.00 KB", FormatFileSize(1024))
	require.Equal(t, "1.50 KB", FormatFileSize(1536))
	require.Equal(t, "1.00 TB", FormatFileSize(1099511627776))
}
