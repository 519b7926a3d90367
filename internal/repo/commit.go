package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/snapshot"
	"github.com/gorewood/rings/internal/version"
)

// CommitStatus is the outcome of a commit request.
type CommitStatus string

const (
	// Committed: a snapshot was stored and a commit entry recorded.
	Committed CommitStatus = "committed"
	// Unchanged: the working content equals the last snapshot; nothing was written.
	Unchanged CommitStatus = "unchanged"
)

// CommitOptions configures Commit.
type CommitOptions struct {
	// Version is the explicit version to commit. When nil the successor of the
	// file's latest version is used, or version.Initial for a first commit.
	Version *version.Number
}

// CommitResult describes a commit request.
type CommitResult struct {
	Branch   string          `json:"branch"`
	File     string          `json:"file"`
	Status   CommitStatus    `json:"status"`
	Version  version.Number  `json:"version"`
	Previous *version.Number `json:"previous,omitempty"`
	Entry    *branch.Commit  `json:"entry,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Commit snapshots the file at path on the current branch.
//
// The file is tracked by its base name. Content identical to the last snapshot
// yields an Unchanged result without writing anything. The snapshot is stored
// before the commit entry; if recording the entry fails the snapshot is
// discarded, so a failed commit leaves no trace.
func (r *Repo) Commit(path string, opts CommitOptions) (*CommitResult, error) {
	file, content, err := r.readWorking(path)
	if err != nil {
		return nil, err
	}

	result := &CommitResult{File: file}
	head, meta, err := r.current()
	if err != nil {
		if !branch.IsWarning(err) {
			return nil, err
		}
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.Branch = head

	snaps := r.Snapshots(head)
	var last *version.Number
	if latest, ok := meta.Latest(file); ok {
		last = &latest
		result.Previous = &latest
	}

	changed, err := snapshot.NewDetector(snaps).HasChanged(file, content, last)
	switch {
	case errors.Is(err, snapshot.ErrNoBaseline):
		if last != nil {
			r.warn(&result.Warnings, err)
		} else {
			r.logger.Debug("first commit", zap.String("file", file))
		}
	case err != nil:
		return nil, err
	}
	if !changed {
		result.Status = Unchanged
		result.Version = *last
		r.logger.Debug("commit skipped, content unchanged",
			zap.String("branch", head), zap.String("file", file), zap.Stringer("version", last))
		return result, nil
	}

	target := version.Initial
	switch {
	case opts.Version != nil:
		target = *opts.Version
	case last != nil:
		if target, err = last.Next(); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	if err := meta.CheckNext(file, target); err != nil {
		return nil, err
	}

	if err := snaps.Put(file, target, content); err != nil {
		if errors.Is(err, snapshot.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s@%s is already stored by another branch", branch.ErrVersionConflict, file, target)
		}
		return nil, err
	}

	entry, err := r.branches.RecordCommit(head, file, target, r.settings.User, r.now(), snapshot.Checksum(content))
	if err != nil && !branch.IsWarning(err) {
		if discardErr := snaps.Discard(file, target); discardErr != nil {
			r.logger.Warn("orphaned snapshot after failed commit", zap.Error(discardErr))
		}
		return nil, err
	}

	result.Status = Committed
	result.Version = target
	result.Entry = &entry
	r.logger.Info("committed",
		zap.String("branch", head), zap.String("file", file), zap.Stringer("version", target))
	return result, nil
}

// readWorking reads the working copy at path and returns its tracked name.
func (r *Repo) readWorking(path string) (string, []byte, error) {
	abs := r.resolvePath(path)
	file := filepath.Base(abs)
	if err := snapshot.ValidateName(file); err != nil {
		return "", nil, err
	}
	if rel, err := filepath.Rel(r.dir, abs); err == nil && !strings.HasPrefix(rel, "..") {
		return "", nil, fmt.Errorf("%w: %s is inside %s", snapshot.ErrInvalidName, path, DirName)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is a directory", snapshot.ErrInvalidName, path)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return file, content, nil
}

// ResolveVersion interprets ref as a version number, or else as the name of a
// tag on the current branch that points at file.
func (r *Repo) ResolveVersion(file, ref string) (version.Number, error) {
	v, parseErr := version.Parse(ref)
	if parseErr == nil {
		return v, nil
	}
	_, meta, err := r.current()
	if err != nil && !branch.IsWarning(err) {
		return version.Number{}, err
	}
	tag, ok := meta.Tags[ref]
	if !ok {
		if err != nil {
			return version.Number{}, fmt.Errorf("%w (%v)", parseErr, err)
		}
		return version.Number{}, parseErr
	}
	if tag.File != file {
		return version.Number{}, fmt.Errorf("%w: tag %s points at %s, not %s", branch.ErrUnknownCommit, ref, tag.File, file)
	}
	return tag.Version, nil
}

// CheckoutResult describes a restored file.
type CheckoutResult struct {
	File    string         `json:"file"`
	Version version.Number `json:"version"`
	Path    string         `json:"path"`
	Bytes   int            `json:"bytes"`
}

// Checkout writes the snapshot of file at v to destDir/file, or to the working
// directory when destDir is empty. Existing content is replaced. (file, v) must
// be a commit on the current branch, otherwise branch.ErrUnknownCommit.
func (r *Repo) Checkout(file string, v version.Number, destDir string) (*CheckoutResult, error) {
	if err := snapshot.ValidateName(file); err != nil {
		return nil, err
	}
	head, meta, err := r.current()
	if err != nil && !branch.IsWarning(err) {
		return nil, err
	}
	if reqErr := requireCommit(head, meta, file, v, err); reqErr != nil {
		return nil, reqErr
	}
	content, err := r.Snapshots(head).Get(file, v)
	if err != nil {
		return nil, err
	}

	dir := r.workDir
	if destDir != "" {
		dir = r.resolvePath(destDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	dest := filepath.Join(dir, file)
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(dest); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(dest, content, mode); err != nil {
		return nil, fmt.Errorf("writing %s: %w", dest, err)
	}

	r.logger.Info("checked out", zap.String("file", file), zap.Stringer("version", v), zap.String("path", dest))
	return &CheckoutResult{File: file, Version: v, Path: dest, Bytes: len(content)}, nil
}
