// Package branch holds per-branch version metadata (file pointers, commit log,
// tags), its persistence, and the branch operations built on it: create,
// switch, list and merge.
package branch

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gorewood/rings/internal/version"
)

// Errors returned by metadata operations.
var (
	// ErrVersionConflict: the (file, version) pair is already committed, or the
	// version does not advance past the file's latest.
	ErrVersionConflict = errors.New("version already committed")

	// ErrNonConsecutive: the version skips past the successor of the latest.
	ErrNonConsecutive = errors.New("version does not follow the previous version")

	// ErrDuplicateTag: the tag name already exists in the branch.
	ErrDuplicateTag = errors.New("tag already exists")

	// ErrUnknownCommit: no commit matches the (file, version) a tag would point to.
	ErrUnknownCommit = errors.New("no such commit")
)

// Commit records one successful commit of a file. Entries are append-only.
type Commit struct {
	File      string         `json:"file"`
	Version   version.Number `json:"version"`
	User      string         `json:"user"`
	Timestamp time.Time      `json:"timestamp"`
	Checksum  string         `json:"checksum,omitempty"`
}

// sameAs reports whether c and other are the same logical commit.
// Branches created from one another share identical entries, which is how
// merges recognise lineage they already have.
func (c Commit) sameAs(other Commit) bool {
	return c.File == other.File &&
		c.Version == other.Version &&
		c.User == other.User &&
		c.Timestamp.Equal(other.Timestamp)
}

// Tag is an immutable named pointer to one (file, version).
type Tag struct {
	File    string         `json:"file"`
	Version version.Number `json:"version"`
}

// NamedTag pairs a tag with its name for listing.
type NamedTag struct {
	Name string `json:"name"`
	Tag
}

// Metadata is the authoritative record of one branch.
// Invariant: Files[f] equals the version of the last commit of f in Commits.
type Metadata struct {
	Name    string                    `json:"name"`
	Files   map[string]version.Number `json:"files"`
	Commits []Commit                  `json:"commits"`
	Tags    map[string]Tag            `json:"tags"`
}

// New returns empty metadata for a branch.
func New(name string) *Metadata {
	return &Metadata{
		Name:    name,
		Files:   make(map[string]version.Number),
		Commits: []Commit{},
		Tags:    make(map[string]Tag),
	}
}

// normalize replaces nil collections left by decoding sparse records.
func (m *Metadata) normalize() {
	if m.Files == nil {
		m.Files = make(map[string]version.Number)
	}
	if m.Commits == nil {
		m.Commits = []Commit{}
	}
	if m.Tags == nil {
		m.Tags = make(map[string]Tag)
	}
}

// Clone returns a deep copy under a new name.
func (m *Metadata) Clone(name string) *Metadata {
	out := New(name)
	for file, v := range m.Files {
		out.Files[file] = v
	}
	out.Commits = append(out.Commits, m.Commits...)
	for tagName, tag := range m.Tags {
		out.Tags[tagName] = tag
	}
	return out
}

// CheckNext validates that v may be committed next for file without recording it.
// The first commit of a file accepts any version.
func (m *Metadata) CheckNext(file string, v version.Number) error {
	if m.HasCommit(file, v) {
		return fmt.Errorf("%w: %s@%s", ErrVersionConflict, file, v)
	}
	latest, ok := m.Files[file]
	if !ok {
		return nil
	}
	if !latest.Less(v) {
		return fmt.Errorf("%w: %s@%s is not newer than %s", ErrVersionConflict, file, v, latest)
	}
	if !v.IsConsecutiveAfter(latest) {
		return fmt.Errorf("%w: %s@%s (expected %s)", ErrNonConsecutive, file, v, latest.Successor())
	}
	return nil
}

// RecordCommit appends a commit entry and advances the file pointer.
// It fails with ErrVersionConflict or ErrNonConsecutive, leaving m unchanged.
func (m *Metadata) RecordCommit(file string, v version.Number, user string, at time.Time, checksum string) (Commit, error) {
	if err := m.CheckNext(file, v); err != nil {
		return Commit{}, err
	}
	entry := Commit{File: file, Version: v, User: user, Timestamp: at.UTC(), Checksum: checksum}
	m.Commits = append(m.Commits, entry)
	m.Files[file] = v
	return entry, nil
}

// LastCommit returns the most recent commit of file.
func (m *Metadata) LastCommit(file string) (Commit, bool) {
	for i := len(m.Commits) - 1; i >= 0; i-- {
		if m.Commits[i].File == file {
			return m.Commits[i], true
		}
	}
	return Commit{}, false
}

// Latest returns the file's current version pointer.
func (m *Metadata) Latest(file string) (version.Number, bool) {
	v, ok := m.Files[file]
	return v, ok
}

// History returns commits in commit order, filtered to file unless file is empty.
func (m *Metadata) History(file string) []Commit {
	out := make([]Commit, 0, len(m.Commits))
	for _, c := range m.Commits {
		if file == "" || c.File == file {
			out = append(out, c)
		}
	}
	return out
}

// HasCommit reports whether (file, v) has been committed on this branch.
func (m *Metadata) HasCommit(file string, v version.Number) bool {
	for _, c := range m.Commits {
		if c.File == file && c.Version == v {
			return true
		}
	}
	return false
}

// FindCommit returns the commit entry for (file, v).
func (m *Metadata) FindCommit(file string, v version.Number) (Commit, bool) {
	for _, c := range m.Commits {
		if c.File == file && c.Version == v {
			return c, true
		}
	}
	return Commit{}, false
}

// HasEntry reports whether an identical commit entry is already in the log.
func (m *Metadata) HasEntry(entry Commit) bool {
	for _, c := range m.Commits {
		if c.sameAs(entry) {
			return true
		}
	}
	return false
}

// CreateTag records a named pointer to an existing commit.
func (m *Metadata) CreateTag(name, file string, v version.Number) error {
	if name == "" {
		return errors.New("tag name is required")
	}
	if _, exists := m.Tags[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTag, name)
	}
	if !m.HasCommit(file, v) {
		return fmt.Errorf("%w: %s@%s", ErrUnknownCommit, file, v)
	}
	m.Tags[name] = Tag{File: file, Version: v}
	return nil
}

// SortedTags returns all tags ordered by name.
func (m *Metadata) SortedTags() []NamedTag {
	out := make([]NamedTag, 0, len(m.Tags))
	for name, tag := range m.Tags {
		out = append(out, NamedTag{Name: name, Tag: tag})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FileNames returns the tracked file names in sorted order.
func (m *Metadata) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
