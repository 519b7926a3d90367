// Package snapshot stores immutable per-file, per-version content archives.
package snapshot

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/gorewood/rings/internal/version"
)

// ErrDuplicate is returned when a snapshot already exists at (file, version).
// Snapshots are immutable; an overwrite attempt is a logic error.
var ErrDuplicate = errors.New("snapshot already exists")

// ErrNotFound is returned when no snapshot exists at (file, version).
var ErrNotFound = errors.New("snapshot not found")

// ErrInvalidName is returned for file names that cannot be tracked.
var ErrInvalidName = errors.New("invalid file name")

const archiveExt = ".zip"

// Store persists snapshots as one single-member zip archive per (file, version)
// under a root directory: <root>/<file>_<version>.zip.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir. The directory is created on first write.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the storage directory.
func (s *Store) Root() string {
	return s.root
}

// ValidateName checks that name is a bare file name usable as a snapshot key.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Path returns the archive path for (file, v). The mapping is deterministic and
// unique: versions never contain '_', so the last '_' separates file from version.
func (s *Store) Path(file string, v version.Number) string {
	return filepath.Join(s.root, file+"_"+v.String()+archiveExt)
}

// Exists reports whether a snapshot is stored at (file, v).
func (s *Store) Exists(file string, v version.Number) bool {
	info, err := os.Stat(s.Path(file, v))
	return err == nil && info.Mode().IsRegular()
}

// Put stores content as the snapshot of file at v.
// Returns ErrDuplicate if a snapshot already exists there.
// The archive is written to a temp file and renamed into place, so a
// concurrent or later Get never observes a partial write.
func (s *Store) Put(file string, v version.Number, content []byte) error {
	if err := ValidateName(file); err != nil {
		return err
	}
	if s.Exists(file, v) {
		return fmt.Errorf("%w: %s@%s", ErrDuplicate, file, v)
	}

	archive, err := encodeArchive(file, content)
	if err != nil {
		return fmt.Errorf("archiving %s@%s: %w", file, v, err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	path := s.Path(file, v)
	if err := publish(path, archive); err != nil {
		return fmt.Errorf("writing snapshot %s@%s: %w", file, v, err)
	}
	return nil
}

// Get returns the exact bytes stored for file at v.
func (s *Store) Get(file string, v version.Number) ([]byte, error) {
	path := s.Path(file, v)
	reader, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, file, v)
		}
		return nil, fmt.Errorf("opening snapshot %s@%s: %w", file, v, err)
	}
	defer reader.Close() //nolint:errcheck // read-only archive

	for _, member := range reader.File {
		if member.Name != file {
			continue
		}
		return readMember(member)
	}
	return nil, fmt.Errorf("%w: %s@%s (archive has no member %q)", ErrNotFound, file, v, file)
}

// Copy transfers the snapshot of file at v from src into s.
// It is a no-op when s already holds that snapshot.
func (s *Store) Copy(src *Store, file string, v version.Number) (bool, error) {
	if s.Exists(file, v) {
		return false, nil
	}
	content, err := src.Get(file, v)
	if err != nil {
		return false, err
	}
	if err := s.Put(file, v, content); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Discard removes the snapshot of file at v. It exists only to roll back a
// commit whose metadata could not be recorded; committed snapshots are never removed.
func (s *Store) Discard(file string, v version.Number) error {
	if err := os.Remove(s.Path(file, v)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discarding snapshot %s@%s: %w", file, v, err)
	}
	return nil
}

// Checksum returns the xxh3-64 digest of content as 16 hex digits.
// It detects storage corruption; it is not a cryptographic integrity check.
func Checksum(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}

func encodeArchive(file string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: file, Method: zip.Deflate})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(content); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readMember(member *zip.File) ([]byte, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("opening archive member %s: %w", member.Name, err)
	}
	defer rc.Close() //nolint:errcheck // read-only member

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading archive member %s: %w", member.Name, err)
	}
	return data, nil
}

// publish writes data to a temp file next to path and renames it into place.
func publish(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+archiveExt)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
