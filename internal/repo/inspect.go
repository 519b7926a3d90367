package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/diff"
	"github.com/gorewood/rings/internal/export"
	"github.com/gorewood/rings/internal/snapshot"
	"github.com/gorewood/rings/internal/version"
)

// WorkingLabel labels the working copy side of a diff.
const WorkingLabel = "working"

// Log returns the current branch's commits in commit order, filtered to file
// unless file is empty. A corrupt branch record yields no commits and a wrapped
// branch.ErrCorruptMetadata warning.
func (r *Repo) Log(file string) ([]branch.Commit, error) {
	_, meta, err := r.current()
	if err != nil && !branch.IsWarning(err) {
		return nil, err
	}
	return meta.History(file), err
}

// committed loads the current branch and checks that every version in vs is a
// commit of file on it.
func (r *Repo) committed(file string, vs ...version.Number) (string, error) {
	head, meta, err := r.current()
	if err != nil && !branch.IsWarning(err) {
		return "", err
	}
	for _, v := range vs {
		if reqErr := requireCommit(head, meta, file, v, err); reqErr != nil {
			return "", reqErr
		}
	}
	return head, nil
}

// Diff compares the snapshots of file at v1 and v2. Both must be commits on the
// current branch.
func (r *Repo) Diff(file string, v1, v2 version.Number) (*diff.Result, error) {
	head, err := r.committed(file, v1, v2)
	if err != nil {
		return nil, err
	}
	snaps := r.Snapshots(head)
	a, err := snaps.Get(file, v1)
	if err != nil {
		return nil, err
	}
	b, err := snaps.Get(file, v2)
	if err != nil {
		return nil, err
	}
	return diff.Compute(a, b,
		diff.Label{File: file, Version: v1.String()},
		diff.Label{File: file, Version: v2.String()}), nil
}

// DiffWorking compares the snapshot of file at v with its working copy.
func (r *Repo) DiffWorking(file string, v version.Number) (*diff.Result, error) {
	head, err := r.committed(file, v)
	if err != nil {
		return nil, err
	}
	a, err := r.Snapshots(head).Get(file, v)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(r.workDir, file))
	if err != nil {
		return nil, fmt.Errorf("reading working copy of %s: %w", file, err)
	}
	return diff.Compute(a, b,
		diff.Label{File: file, Version: v.String()},
		diff.Label{File: file, Version: WorkingLabel}), nil
}

// Metrics returns the addition and deletion counts between v1 and v2. The
// counts always equal those of the diff Diff renders for the same arguments.
func (r *Repo) Metrics(file string, v1, v2 version.Number) (diff.Stats, error) {
	result, err := r.Diff(file, v1, v2)
	if err != nil {
		return diff.Stats{}, err
	}
	return result.Stats, nil
}

// FileState classifies a working file against the current branch.
type FileState string

const (
	StateUnchanged FileState = "unchanged"
	StateModified  FileState = "modified"
	StateUntracked FileState = "untracked"
	StateMissing   FileState = "missing"
	// StateUnknown: tracked, but the baseline snapshot is gone.
	StateUnknown FileState = "unknown"
)

// FileStatus is the state of one file.
type FileStatus struct {
	File    string          `json:"file"`
	State   FileState       `json:"state"`
	Version *version.Number `json:"version,omitempty"`
}

// Status reports the state of the given paths, or of every tracked file when
// paths is empty. A corrupt branch record is reported as a wrapped
// branch.ErrCorruptMetadata warning alongside the statuses.
func (r *Repo) Status(paths []string) ([]FileStatus, error) {
	head, meta, loadErr := r.current()
	if loadErr != nil && !branch.IsWarning(loadErr) {
		return nil, loadErr
	}
	detector := snapshot.NewDetector(r.Snapshots(head))

	type target struct{ file, path string }
	var targets []target
	if len(paths) == 0 {
		for _, file := range meta.FileNames() {
			targets = append(targets, target{file: file, path: filepath.Join(r.workDir, file)})
		}
	}
	for _, p := range paths {
		abs := r.resolvePath(p)
		targets = append(targets, target{file: filepath.Base(abs), path: abs})
	}

	statuses := make([]FileStatus, 0, len(targets))
	for _, t := range targets {
		status := FileStatus{File: t.file}
		latest, tracked := meta.Latest(t.file)
		if tracked {
			status.Version = &latest
		}
		content, readErr := os.ReadFile(t.path)
		switch {
		case readErr != nil && errors.Is(readErr, os.ErrNotExist):
			status.State = StateMissing
		case readErr != nil:
			return nil, fmt.Errorf("reading %s: %w", t.path, readErr)
		case !tracked:
			status.State = StateUntracked
		default:
			changed, detectErr := detector.HasChanged(t.file, content, &latest)
			switch {
			case errors.Is(detectErr, snapshot.ErrNoBaseline):
				status.State = StateUnknown
			case detectErr != nil:
				return nil, detectErr
			case changed:
				status.State = StateModified
			default:
				status.State = StateUnchanged
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, loadErr
}

// Problem is one integrity failure found by Verify.
type Problem struct {
	Branch  string         `json:"branch"`
	File    string         `json:"file"`
	Version version.Number `json:"version"`
	Reason  string         `json:"reason"`
}

// VerifyReport summarises a Verify run.
type VerifyReport struct {
	Branches   int       `json:"branches"`
	Checked    int       `json:"checked"`
	Missing    []Problem `json:"missing"`
	Corrupt    []Problem `json:"corrupt"`
	Mismatch   []Problem `json:"mismatch"`
	Dangling   []Problem `json:"dangling_tags"`
	Unreadable []string  `json:"unreadable_branches"`
}

// OK reports whether Verify found no problems.
func (v *VerifyReport) OK() bool {
	return len(v.Missing) == 0 && len(v.Corrupt) == 0 && len(v.Mismatch) == 0 &&
		len(v.Dangling) == 0 && len(v.Unreadable) == 0
}

// Verify re-reads the snapshot of every commit on every branch and checks it
// against the recorded checksum, and reports tags that point at no commit.
// Branch records that fail to parse are listed as unreadable.
func (r *Repo) Verify() (*VerifyReport, error) {
	names, err := r.manager.List()
	if err != nil {
		return nil, err
	}
	report := &VerifyReport{
		Branches:   len(names),
		Missing:    []Problem{},
		Corrupt:    []Problem{},
		Mismatch:   []Problem{},
		Dangling:   []Problem{},
		Unreadable: []string{},
	}
	for _, name := range names {
		meta, loadErr := r.branches.Load(name)
		if loadErr != nil {
			if !branch.IsWarning(loadErr) {
				return nil, loadErr
			}
			report.Unreadable = append(report.Unreadable, name)
			continue
		}
		r.verifyBranch(meta, report)
	}
	return report, nil
}

func (r *Repo) verifyBranch(meta *branch.Metadata, report *VerifyReport) {
	snaps := r.Snapshots(meta.Name)
	for _, c := range meta.Commits {
		report.Checked++
		problem := Problem{Branch: meta.Name, File: c.File, Version: c.Version}
		content, err := snaps.Get(c.File, c.Version)
		switch {
		case errors.Is(err, snapshot.ErrNotFound):
			problem.Reason = err.Error()
			report.Missing = append(report.Missing, problem)
		case err != nil:
			problem.Reason = err.Error()
			report.Corrupt = append(report.Corrupt, problem)
		case c.Checksum != "" && snapshot.Checksum(content) != c.Checksum:
			problem.Reason = fmt.Sprintf("checksum %s, recorded %s", snapshot.Checksum(content), c.Checksum)
			report.Mismatch = append(report.Mismatch, problem)
		}
	}
	for _, tag := range meta.SortedTags() {
		if !meta.HasCommit(tag.File, tag.Version) {
			report.Dangling = append(report.Dangling, Problem{
				Branch: meta.Name, File: tag.File, Version: tag.Version,
				Reason: "tag " + tag.Name + " points at no commit",
			})
		}
	}
}

// History returns the exportable history of file on the current branch, with
// line metrics between consecutive versions.
func (r *Repo) History(file string) (*export.FileHistory, error) {
	head, meta, err := r.current()
	if err != nil && !branch.IsWarning(err) {
		return nil, err
	}
	if _, ok := meta.Latest(file); !ok {
		if err != nil {
			return nil, fmt.Errorf("%w: %s on %s (%v)", ErrNotTracked, file, head, err)
		}
		return nil, fmt.Errorf("%w: %s on %s", ErrNotTracked, file, head)
	}
	return export.Build(head, file, meta.History(file), meta.SortedTags(), r.Metrics)
}
