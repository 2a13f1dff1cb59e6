// core/compress.go
package core

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdLevel is fixed at the spec's required level 3 — a speed/ratio
// compromise suitable for per-file backup blobs.
const zstdLevel = zstd.SpeedDefault

// Compress zstd-frames data at level 3.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstdLevel))
	if err != nil {
		return nil, fmt.Errorf("compress: new writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: new reader: %w", err)
	}
	defer r.Close()

	out, err := r.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}
