// core/bundle.go
package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// bundleName is the single stream name a destination tree is packed under
// before being handed to a remote Uploader.
const bundleName = "destination.bundle"

// BundleDestination packs a backup destination (manifest.json plus the
// data/ tree) into one length-prefixed stream, reusing the same framing
// Archive{Writer,Reader} give per-file archives — one upload round-trip
// instead of one per blob.
func BundleDestination(dest string, w io.Writer) error {
	aw := NewArchiveWriter(w)
	buffer := make([]byte, 32*1024)

	return filepath.Walk(dest, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		meta := FileMetadata{
			Path:    rel,
			Size:    info.Size(),
			Mode:    info.Mode(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		}

		if info.IsDir() {
			return aw.WriteEntry(meta, nil, buffer, nil)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("bundle: open %s: %w", path, err)
		}
		defer f.Close()

		return aw.WriteEntry(meta, f, buffer, nil)
	})
}

// UnbundleDestination reverses BundleDestination, recreating the
// destination tree rooted at destDir.
func UnbundleDestination(r io.Reader, destDir string) error {
	ar := NewArchiveReader(r)

	for {
		meta, err := ar.NextEntry()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("unbundle: %w", err)
		}

		target := filepath.Join(destDir, filepath.FromSlash(meta.Path))
		if meta.IsDir {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("unbundle: mkdir %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("unbundle: mkdir %s: %w", filepath.Dir(target), err)
		}

		f, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("unbundle: create %s: %w", target, err)
		}
		// NextEntry only consumes the header; the entry's raw bytes follow
		// immediately on r, so the data is copied straight from it.
		if _, err := io.CopyN(f, r, meta.Size); err != nil && meta.Size > 0 {
			f.Close()
			return fmt.Errorf("unbundle: write %s: %w", target, err)
		}
		f.Close()
	}
}

// UploadDestination streams a bundled destination tree to uploader under
// bundleName, without buffering the whole bundle in memory.
func UploadDestination(dest string, uploader Uploader) error {
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(BundleDestination(dest, pw))
	}()

	if err := uploader.Upload(bundleName, pr); err != nil {
		return fmt.Errorf("upload destination: %w", err)
	}
	return nil
}
