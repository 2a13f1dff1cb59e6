package core

import "errors"

var ErrInvalidPassword = errors.New("invalid password")

// Sentinel error kinds named by the engine's error handling design.
// ErrDirectoryNotFound, ErrManifestNotFound, ErrManifestParse,
// ErrDecryptionFailed, and ErrInvalidEnvelope are declared beside the
// component they originate from (scan.go, manifest.go, crypto.go).
var (
	ErrDestinationNotFound = errors.New("destination directory not found")
	ErrBackupFileNotFound  = errors.New("backup: source blob not found")
	ErrWrongPassword       = errors.New("backup: wrong password")
	ErrDecompression       = errors.New("backup: decompression failed")
)
