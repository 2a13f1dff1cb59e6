// core/scan.go
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lukechampine.com/blake3"
)

// DefaultExclusions are the exclusion patterns applied to every scan in
// addition to any caller-supplied FilterConfig refinement.
var DefaultExclusions = []string{".git", "node_modules", "target", ".DS_Store", "Thumbs.db"}

// ErrDirectoryNotFound is returned when a Scanner's root does not exist.
var ErrDirectoryNotFound = errors.New("scan: source directory not found")

// Scanner walks a directory tree and produces a ScanResult. It does not
// follow symbolic links; a directory or file is excluded when any path
// component's name contains, as a substring, one of the exclusion
// patterns. Excluded directories prune the subtree.
type Scanner struct {
	root       string
	exclusions []string
	filters    FilterConfig
	hash       bool
}

// NewScanner builds a Scanner rooted at root with extra exclusion patterns
// appended to DefaultExclusions.
func NewScanner(root string, exclusions ...string) *Scanner {
	all := make([]string, 0, len(DefaultExclusions)+len(exclusions))
	all = append(all, DefaultExclusions...)
	all = append(all, exclusions...)
	return &Scanner{root: root, exclusions: all}
}

// WithHashing enables BLAKE3 content hashing for every scanned file.
func (s *Scanner) WithHashing() *Scanner {
	s.hash = true
	return s
}

// WithFilters attaches an additional, opt-in FilterConfig refinement on
// top of the default substring-based exclusions.
func (s *Scanner) WithFilters(fc FilterConfig) *Scanner {
	s.filters = fc
	return s
}

func (s *Scanner) isExcluded(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range s.exclusions {
			if pattern != "" && strings.Contains(part, pattern) {
				return true
			}
		}
	}
	return false
}

// Scan performs one depth-first walk of the scan root. Ordering within a
// directory is unspecified; callers must not depend on it.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	rootInfo, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDirectoryNotFound
		}
		return nil, fmt.Errorf("scan: stat root: %w", err)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf("scan: root %s is not a directory", s.root)
	}

	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan: resolve root: %w", err)
	}

	result := &ScanResult{
		SourceDir: absRoot,
		ScannedAt: time.Now().UTC(),
		Files:     make(map[string]FileInfo, 1024),
	}

	walkErr := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("scan: walk %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path != s.root && s.isExcluded(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		// Symlinks, sockets, devices, and anything not a regular file are
		// skipped silently; only regular files become entries.
		if info.Mode()&os.ModeSymlink != 0 || !info.Mode().IsRegular() {
			return nil
		}

		if !s.filters.ShouldInclude(path, info) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("scan: relativize %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		fi := FileInfo{
			RelativePath: rel,
			Size:         uint64(info.Size()),
			Modified:     info.ModTime().UTC(),
		}

		if s.hash {
			digest, err := hashFile(path)
			if err != nil {
				return fmt.Errorf("scan: hash %s: %w", path, err)
			}
			fi.Hash = digest
		}

		result.Files[rel] = fi
		result.TotalFiles++
		result.TotalSize += fi.Size
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		return nil, fmt.Errorf("scan: %w", walkErr)
	}

	return result, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
