// core/network.go
package core

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// Uploader mirrors a destination tree to a remote location after a local
// backup run completes.
type Uploader interface {
	Upload(path string, data io.Reader) error
	Close() error
}

// UploadConfig tunes retry and chunking behavior for an Uploader.
type UploadConfig struct {
	MaxRetries    int
	RetryInterval time.Duration
	ChunkSize     int64
}

// DefaultUploadConfig is a conservative retry/chunk policy suitable for a
// flaky WAN link.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		MaxRetries:    3,
		RetryInterval: 5 * time.Second,
		ChunkSize:     1024 * 1024,
	}
}

// GetUploaderFor resolves a destination URL to an Uploader implementation.
// Only ftp:// and ftps:// are currently supported.
func GetUploaderFor(destinationURL string) (Uploader, error) {
	u, err := url.Parse(destinationURL)
	if err != nil {
		return nil, fmt.Errorf("network: parse destination url: %w", err)
	}

	switch u.Scheme {
	case "ftp", "ftps":
		return newFTPUploader(u, DefaultUploadConfig())
	default:
		return nil, fmt.Errorf("network: unsupported scheme %q", u.Scheme)
	}
}

// FTPUploader mirrors files to an FTP/FTPS root over a single persistent
// control connection.
type FTPUploader struct {
	conn   *ftp.ServerConn
	root   string
	config UploadConfig
}

func newFTPUploader(u *url.URL, config UploadConfig) (*FTPUploader, error) {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "21")
	}

	var opts []ftp.DialOption
	opts = append(opts, ftp.DialWithTimeout(10*time.Second))
	if u.Scheme == "ftps" {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: u.Hostname()}))
	}

	conn, err := ftp.Dial(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("network: connect to %s: %w", host, err)
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	if user != "" {
		if err := conn.Login(user, pass); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("network: login: %w", err)
		}
	}

	return &FTPUploader{conn: conn, root: u.Path, config: config}, nil
}

func (u *FTPUploader) remotePath(path string) string {
	if u.root == "" || u.root == "/" {
		return path
	}
	return strings.TrimSuffix(u.root, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Upload writes data to path on the remote root, retrying transient
// failures up to config.MaxRetries times.
func (u *FTPUploader) Upload(path string, data io.Reader) error {
	return u.withRetry(func() error {
		return u.conn.Stor(u.remotePath(path), data)
	})
}

// UploadWithResume continues a previously interrupted upload: it queries
// the remote file's current size and uploads only the remaining bytes of
// r (which must support random access at offset size).
func (u *FTPUploader) UploadWithResume(path string, r io.ReaderAt, size int64) error {
	existing, err := u.GetRemoteSize(path)
	if err != nil {
		if !isFileNotFoundError(err) {
			return err
		}
		existing = 0
	}
	if existing >= size {
		return nil
	}

	sr := &sectionReader{r: r, base: existing, off: existing, n: size - existing}
	return u.withRetry(func() error {
		return u.conn.StorFrom(u.remotePath(path), sr, uint64(existing))
	})
}

// GetRemoteSize returns the current size of path on the remote root.
func (u *FTPUploader) GetRemoteSize(path string) (int64, error) {
	return u.conn.FileSize(u.remotePath(path))
}

// Close quits the control connection.
func (u *FTPUploader) Close() error {
	return u.conn.Quit()
}

func (u *FTPUploader) withRetry(op func() error) error {
	var err error
	for attempt := 0; attempt <= u.config.MaxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < u.config.MaxRetries {
			time.Sleep(u.config.RetryInterval)
		}
	}
	return err
}

// isFileNotFoundError reports whether err looks like a remote
// file-not-found response rather than a transient/connection failure.
func isFileNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no such file")
}

// sectionReader reads n bytes from r starting at off, mirroring
// io.SectionReader but over an explicit base offset bookkeeping field used
// by resumed uploads.
type sectionReader struct {
	r    io.ReaderAt
	base int64
	off  int64
	n    int64
}

func (s *sectionReader) Read(p []byte) (int, error) {
	if s.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > s.n {
		p = p[:s.n]
	}
	n, err := s.r.ReadAt(p, s.off)
	s.off += int64(n)
	s.n -= int64(n)
	return n, err
}
