package repo

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/config"
	"github.com/gorewood/rings/internal/version"
)

// BranchInfo summarises one branch for listing.
type BranchInfo struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
	Files   int    `json:"files"`
	Commits int    `json:"commits"`
	Tags    int    `json:"tags"`
}

// CreateBranch creates name from the current branch. HEAD does not move.
// Under the branch snapshot scope the base branch's snapshots are copied.
func (r *Repo) CreateBranch(name string) (*branch.Metadata, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	created, err := r.manager.Create(name, head)
	if err != nil && !branch.IsWarning(err) {
		return nil, err
	}
	if r.settings.SnapshotScope == config.ScopeBranch {
		if copyErr := r.copySnapshots(head, name, created.Commits); copyErr != nil {
			return nil, copyErr
		}
	}
	r.logger.Info("created branch", zap.String("branch", name), zap.String("base", head))
	return created, err
}

// SwitchBranch makes name the current branch.
func (r *Repo) SwitchBranch(name string) (*branch.Metadata, error) {
	meta, err := r.manager.Switch(name)
	if err != nil && !branch.IsWarning(err) {
		return nil, err
	}
	if headErr := r.setHead(name); headErr != nil {
		return nil, headErr
	}
	r.logger.Info("switched branch", zap.String("branch", name))
	return meta, err
}

// Branches lists every branch with summary counts. Corrupt records are listed
// as empty and their warnings are joined into the returned error.
func (r *Repo) Branches() ([]BranchInfo, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	names, err := r.manager.List()
	if err != nil {
		return nil, err
	}
	infos := make([]BranchInfo, 0, len(names))
	var warnings []error
	for _, name := range names {
		info := BranchInfo{Name: name, Current: name == head}
		meta, loadErr := r.branches.Load(name)
		if loadErr != nil {
			if !branch.IsWarning(loadErr) {
				return nil, loadErr
			}
			warnings = append(warnings, loadErr)
		}
		info.Files = len(meta.Files)
		info.Commits = len(meta.Commits)
		info.Tags = len(meta.Tags)
		infos = append(infos, info)
	}
	return infos, errors.Join(warnings...)
}

// MergeBranch merges source into the current branch. Under the branch snapshot
// scope the snapshots of adopted commits are copied before the merge is saved.
func (r *Repo) MergeBranch(source string, opts branch.MergeOptions) (*branch.MergeReport, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	if r.settings.SnapshotScope == config.ScopeBranch {
		src, dst := r.Snapshots(source), r.Snapshots(head)
		opts.OnAdopt = func(c branch.Commit) error {
			_, copyErr := dst.Copy(src, c.File, c.Version)
			return copyErr
		}
	}
	report, err := r.manager.Merge(source, head, opts)
	if err != nil && !branch.IsWarning(err) {
		return nil, err
	}
	r.logger.Info("merged branch",
		zap.String("source", source),
		zap.String("destination", head),
		zap.Int("adopted", len(report.Adopted)),
		zap.Int("conflicts", len(report.Conflicts)))
	return report, err
}

// CreateTag tags (file, v) on the current branch.
func (r *Repo) CreateTag(name, file string, v version.Number) (*branch.NamedTag, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	tagErr := r.branches.CreateTag(head, name, file, v)
	if tagErr != nil && !branch.IsWarning(tagErr) {
		return nil, tagErr
	}
	return &branch.NamedTag{Name: name, Tag: branch.Tag{File: file, Version: v}}, tagErr
}

// Tags lists the current branch's tags by name. A corrupt branch record yields
// no tags and a wrapped branch.ErrCorruptMetadata warning.
func (r *Repo) Tags() ([]branch.NamedTag, error) {
	_, meta, err := r.current()
	if err != nil && !branch.IsWarning(err) {
		return nil, err
	}
	return meta.SortedTags(), err
}

func (r *Repo) copySnapshots(from, to string, commits []branch.Commit) error {
	src, dst := r.Snapshots(from), r.Snapshots(to)
	for _, c := range commits {
		if _, err := dst.Copy(src, c.File, c.Version); err != nil {
			return fmt.Errorf("copying snapshot %s@%s to branch %s: %w", c.File, c.Version, to, err)
		}
	}
	return nil
}
