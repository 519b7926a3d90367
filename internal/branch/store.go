package branch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/gorewood/rings/internal/version"
)

// Errors returned by the metadata store and branch manager.
var (
	// ErrBranchExists is returned when creating a branch whose record already exists.
	ErrBranchExists = errors.New("branch already exists")

	// ErrUnknownBranch is returned when no record exists for a branch name.
	ErrUnknownBranch = errors.New("unknown branch")

	// ErrInvalidName is returned for branch names that cannot name a record file.
	ErrInvalidName = errors.New("invalid branch name")

	// ErrCorruptMetadata marks a record that could not be parsed. Operations that
	// return it alongside a result have reinitialised the branch to an empty
	// record; treat it as a warning to surface, not a failure.
	ErrCorruptMetadata = errors.New("corrupt branch metadata")

	// ErrUnreadable is returned by Read for a record that cannot be parsed.
	// Unlike ErrCorruptMetadata it is a failure: nothing was reinitialised.
	ErrUnreadable = errors.New("unreadable branch record")
)

// IsWarning reports whether err only signals a recovered condition.
func IsWarning(err error) bool {
	return errors.Is(err, ErrCorruptMetadata)
}

const (
	branchesDir  = "branches"
	recordExt    = ".json"
	corruptExt   = ".corrupt"
	tmpPrefix    = ".tmp-"
	maxNameRunes = 128
)

// ValidateName checks that name can be used as a branch identifier.
// Letters, digits, '-', '_' and '.' are allowed; the name may not start with '.'.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q may not start with '.'", ErrInvalidName, name)
	}
	if len([]rune(name)) > maxNameRunes {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, name, maxNameRunes)
	}
	for _, c := range name {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '_' || c == '.' {
			continue
		}
		return fmt.Errorf("%w: %q contains unsupported character %q", ErrInvalidName, name, c)
	}
	return nil
}

// Store persists one JSON record per branch at <root>/branches/<name>.json.
// Every mutation rewrites the whole record (load-modify-store).
type Store struct {
	root string
}

// NewStore creates a Store for the repository directory root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the repository directory the store writes under.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding branch records.
func (s *Store) Dir() string {
	return filepath.Join(s.root, branchesDir)
}

func (s *Store) recordPath(name string) string {
	return filepath.Join(s.Dir(), name+recordExt)
}

// Exists reports whether a record exists for name.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.recordPath(name))
	return err == nil && info.Mode().IsRegular()
}

// Names lists the branches that have a record, sorted.
// Returns an empty slice if the branches directory does not exist.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading branches directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fileName, tmpPrefix) || !strings.HasSuffix(fileName, recordExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(fileName, recordExt))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the record for name.
//
// Returns ErrUnknownBranch if no record exists. If the record cannot be parsed,
// the raw bytes are preserved next to it with a .corrupt suffix and Load returns
// a fresh empty Metadata together with a wrapped ErrCorruptMetadata.
func (s *Store) Load(name string) (*Metadata, error) {
	data, err := s.readRecord(name)
	if err != nil {
		return nil, err
	}
	meta, parseErr := decode(data)
	if parseErr != nil {
		backup := s.recordPath(name) + corruptExt
		if err := atomicWrite(backup, data); err != nil {
			return nil, fmt.Errorf("preserving corrupt record for %s: %w", name, err)
		}
		return New(name), fmt.Errorf("%w: %s reinitialised (original kept at %s): %v",
			ErrCorruptMetadata, name, backup, parseErr)
	}
	meta.Name = name
	return meta, nil
}

// Read is Load without side effects: a record that cannot be parsed is
// returned as ErrUnreadable and left as it is. Used for stores the caller does
// not own, such as an exchange directory.
func (s *Store) Read(name string) (*Metadata, error) {
	data, err := s.readRecord(name)
	if err != nil {
		return nil, err
	}
	meta, parseErr := decode(data)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, parseErr)
	}
	meta.Name = name
	return meta, nil
}

func (s *Store) readRecord(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.recordPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBranch, name)
		}
		return nil, fmt.Errorf("reading branch %s: %w", name, err)
	}
	return data, nil
}

// Save writes the whole record for m, replacing any existing one atomically.
func (s *Store) Save(m *Metadata) error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing branch %s: %w", m.Name, err)
	}
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return fmt.Errorf("creating branches directory: %w", err)
	}
	if err := atomicWrite(s.recordPath(m.Name), data); err != nil {
		return fmt.Errorf("writing branch %s: %w", m.Name, err)
	}
	return nil
}

// Create writes a record for a branch that must not exist yet.
func (s *Store) Create(m *Metadata) error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	if s.Exists(m.Name) {
		return fmt.Errorf("%w: %s", ErrBranchExists, m.Name)
	}
	return s.Save(m)
}

// Update loads name, applies fn and saves the result if fn succeeds.
// A corrupt record is reinitialised before fn runs; the returned error then
// wraps ErrCorruptMetadata even though the update was applied.
func (s *Store) Update(name string, fn func(*Metadata) error) (*Metadata, error) {
	meta, loadErr := s.Load(name)
	if loadErr != nil && !IsWarning(loadErr) {
		return nil, loadErr
	}
	if err := fn(meta); err != nil {
		return nil, err
	}
	if err := s.Save(meta); err != nil {
		return nil, err
	}
	return meta, loadErr
}

// RecordCommit appends a commit to the named branch and persists it.
func (s *Store) RecordCommit(name, file string, v version.Number, user string, at time.Time, checksum string) (Commit, error) {
	var entry Commit
	_, err := s.Update(name, func(m *Metadata) error {
		var recErr error
		entry, recErr = m.RecordCommit(file, v, user, at, checksum)
		return recErr
	})
	if err != nil && !IsWarning(err) {
		return Commit{}, err
	}
	return entry, err
}

// CreateTag adds a tag to the named branch and persists it.
func (s *Store) CreateTag(name, tag, file string, v version.Number) error {
	_, err := s.Update(name, func(m *Metadata) error {
		return m.CreateTag(tag, file, v)
	})
	return err
}

func decode(data []byte) (*Metadata, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("empty record")
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing branch JSON: %w", err)
	}
	meta.normalize()
	if err := meta.check(); err != nil {
		return nil, err
	}
	return &meta, nil
}

// check verifies the pointer invariant of a decoded record.
func (m *Metadata) check() error {
	for file, v := range m.Files {
		last, ok := m.LastCommit(file)
		if !ok {
			return fmt.Errorf("file %s has no commits", file)
		}
		if last.Version != v {
			return fmt.Errorf("file %s points at %s but its last commit is %s", file, v, last.Version)
		}
	}
	return nil
}

// atomicWrite writes data to path using write-to-temp-then-rename.
// The temp file is created in the same directory as path.
func atomicWrite(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), tmpPrefix+"*"+recordExt)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
