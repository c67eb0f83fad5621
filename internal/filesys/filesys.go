// Package filesys provides the file access confload needs: reading config
// sources (local paths or any URL scheme viant/afs understands) and writing
// resolved output atomically. Everything goes through small interfaces so
// callers can be tested with an in-memory or mocked implementation.
package filesys

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// ReadFS is what the loader needs to fetch a config source.
// A missing source must be reported with an error wrapping fs.ErrNotExist.
type ReadFS interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// FileOps is what AtomicWrite needs.
type FileOps interface {
	Open(string) (*os.File, error)
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
}

// OS returns a file system implementation that delegates to the standard library.
// The returned implementation satisfies both ReadFS and FileOps interfaces.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements both ReadFS and FileOps against the local disk.
type OsFS struct{}

// ReadFile reads a local path. A file:// prefix is accepted.
func (OsFS) ReadFile(_ context.Context, p string) ([]byte, error) {
	return os.ReadFile(strings.TrimPrefix(p, "file://"))
}

func (OsFS) Open(p string) (*os.File, error)               { return os.Open(p) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error) { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(old, newName string) error             { return os.Rename(old, newName) }
func (OsFS) Remove(p string) error                        { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error          { return os.Chmod(p, m) }

var (
	_ ReadFS  = OsFS{}
	_ FileOps = OsFS{}
	_ ReadFS  = RemoteFS{}
	_ ReadFS  = (*Mux)(nil)
)

// RemoteFS reads sources through an afs.Service (s3://, gs://, mem://, ...).
type RemoteFS struct {
	svc afs.Service
}

// Remote wraps svc; a nil svc uses afs.New().
func Remote(svc afs.Service) RemoteFS {
	if svc == nil {
		svc = afs.New()
	}
	return RemoteFS{svc: svc}
}

// ReadFile downloads url, reporting absent objects as fs.ErrNotExist.
func (r RemoteFS) ReadFile(ctx context.Context, url string) ([]byte, error) {
	ok, err := r.svc.Exists(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", url, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, fs.ErrNotExist)
	}
	data, err := r.svc.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	return data, nil
}

// Mux routes plain paths and file:// URLs to Local and every other scheme
// to Remote.
type Mux struct {
	Local  ReadFS
	Remote ReadFS
}

// Default returns the reader used when callers do not supply one.
func Default() *Mux {
	return &Mux{Local: OS(), Remote: Remote(nil)}
}

// ReadFile dispatches on the scheme of p.
func (m *Mux) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if IsRemote(p) {
		return m.Remote.ReadFile(ctx, p)
	}
	return m.Local.ReadFile(ctx, p)
}

// IsRemote reports whether p carries a URL scheme other than file.
func IsRemote(p string) bool {
	scheme, _, ok := strings.Cut(p, "://")
	if !ok || scheme == "" || scheme == "file" {
		return false
	}
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}

// AtomicWrite atomically persists data to dst with the provided file mode.
// The write is crash-safe on local filesystems:
//
//  1. temp file in the same dir
//  2. fsync(temp) + close
//  3. chmod(temp, perm)  (so rename doesn’t carry 0600 default)
//  4. rename(temp, dst)
//  5. fsync(dir)
//
// Callers supply an injected FileOps implementation so the function
// remains unit-testable with an in-memory FS.
func AtomicWrite(fsys FileOps, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := fsys.CreateTemp(dir, ".confload-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}
	if err == nil {
		err = fsys.Chmod(tmp.Name(), perm)
	}
	if err == nil {
		err = fsys.Rename(tmp.Name(), dst)
	}
	if err != nil {
		if removeErr := fsys.Remove(tmp.Name()); removeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove temp file %s: %v\n", tmp.Name(), removeErr)
		}
		return err
	}
	if d, err := fsys.Open(dir); err == nil {
		if syncErr := d.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to sync directory %s: %v\n", dir, syncErr)
		}
		if closeErr := d.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close directory %s: %v\n", dir, closeErr)
		}
	}
	return nil
}
