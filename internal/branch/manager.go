package branch

import (
	"errors"
	"fmt"
)

// ErrInvalidMerge is returned when a branch is merged into itself.
var ErrInvalidMerge = errors.New("cannot merge a branch into itself")

// Manager implements branch operations over a Store. It holds no notion of a
// current branch; callers pass branch names explicitly.
type Manager struct {
	store *Store
}

// NewManager creates a Manager backed by store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

// Store returns the underlying metadata store.
func (m *Manager) Store() *Store {
	return m.store
}

// Create makes a new branch whose files, commits and tags are copied from base.
// A corrupt base yields an empty new branch and a wrapped ErrCorruptMetadata.
func (m *Manager) Create(name, base string) (*Metadata, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if m.store.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrBranchExists, name)
	}
	baseMeta, loadErr := m.store.Load(base)
	if loadErr != nil && !IsWarning(loadErr) {
		return nil, loadErr
	}

	created := baseMeta.Clone(name)
	if err := m.store.Create(created); err != nil {
		return nil, err
	}
	return created, loadErr
}

// Switch loads the named branch so the caller can make it current.
func (m *Manager) Switch(name string) (*Metadata, error) {
	return m.store.Load(name)
}

// List returns all branch names, sorted.
func (m *Manager) List() ([]string, error) {
	return m.store.Names()
}

// Merge applies source onto dest and persists dest. Source is never modified.
func (m *Manager) Merge(source, dest string, opts MergeOptions) (*MergeReport, error) {
	if source == dest {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMerge, source)
	}
	srcMeta, srcErr := m.store.Load(source)
	if srcErr != nil && !IsWarning(srcErr) {
		return nil, srcErr
	}
	if !m.store.Exists(dest) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBranch, dest)
	}

	var report *MergeReport
	_, destErr := m.store.Update(dest, func(meta *Metadata) error {
		report = MergeInto(meta, srcMeta, opts)
		if opts.OnAdopt == nil {
			return nil
		}
		for _, entry := range report.Adopted {
			if err := opts.OnAdopt(entry); err != nil {
				return fmt.Errorf("adopting %s@%s: %w", entry.File, entry.Version, err)
			}
		}
		return nil
	})
	if destErr != nil && !IsWarning(destErr) {
		return nil, destErr
	}
	return report, errors.Join(srcErr, destErr)
}
