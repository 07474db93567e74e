// Package blob stores uploaded attachments as flat files in a single
// directory, addressed by server-generated ids of the form
// {unixTime}_{sanitizedName}. Access control lives entirely in the download
// token layer; the directory itself is never exposed.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/example/chat-relay/internal/persistence"
)

var idPrefixPattern = regexp.MustCompile(`^\d+_`)

// Store persists attachment blobs under a base directory.
type Store struct {
	dir string
}

// NewStore ensures the base directory exists and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewID builds the storage id for an upload: the unix timestamp joined to
// the sanitized original filename.
func NewID(now time.Time, originalName string) string {
	return fmt.Sprintf("%d_%s", now.Unix(), SanitizeName(originalName))
}

// SanitizeName strips path separators, NUL bytes, and dot-only names from a
// client-supplied filename so it is safe as a path component.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}

// DisplayName recovers the user-facing filename from a storage id by
// stripping the leading {digits}_ prefix.
func DisplayName(id string) string {
	return idPrefixPattern.ReplaceAllString(id, "")
}

// Save writes the blob under the given id and returns the byte count.
func (s *Store) Save(id string, r io.Reader) (int64, error) {
	path, err := s.resolve(id)
	if err != nil {
		return 0, err
	}

	dest, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("blob: create %s: %w", id, err)
	}

	written, err := io.Copy(dest, r)
	if err != nil {
		_ = dest.Close()
		_ = os.Remove(path)
		return 0, fmt.Errorf("blob: write %s: %w", id, err)
	}
	if err := dest.Close(); err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("blob: close %s: %w", id, err)
	}
	return written, nil
}

// Open returns a reader over the stored blob and its size. A missing blob is
// persistence.ErrNotFound.
func (s *Store) Open(id string) (io.ReadSeekCloser, int64, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, persistence.ErrNotFound
		}
		return nil, 0, fmt.Errorf("blob: open %s: %w", id, err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("blob: stat %s: %w", id, err)
	}
	return file, stat.Size(), nil
}

// Remove deletes the stored blob. Removing a missing blob is not an error.
// Room deletion does not call this; blobs orphaned by a deleted room are
// pruned out of band.
func (s *Store) Remove(id string) error {
	path, err := s.resolve(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: remove %s: %w", id, err)
	}
	return nil
}

// resolve joins the id to the base directory and refuses ids that would
// escape it.
func (s *Store) resolve(id string) (string, error) {
	if id == "" || id != SanitizeName(id) {
		return "", persistence.ErrNotFound
	}
	path := filepath.Join(s.dir, id)
	if filepath.Dir(path) != filepath.Clean(s.dir) {
		return "", persistence.ErrNotFound
	}
	return path, nil
}
