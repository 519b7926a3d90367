package repo

import (
	"context"
	"fmt"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/remote"
)

// remoteRoot returns root, or the configured remote when root is empty.
func (r *Repo) remoteRoot(root string) string {
	if root != "" {
		return r.resolvePath(root)
	}
	if r.settings.Remote == "" {
		return ""
	}
	return r.resolvePath(r.settings.Remote)
}

// Push publishes the current branch to the exchange directory root. A branch
// whose record was unreadable is not published: Push fails with ErrCorruptPush
// and the remote record is left as it was.
func (r *Repo) Push(ctx context.Context, root string) (*remote.PushReport, error) {
	head, meta, err := r.current()
	if branch.IsWarning(err) {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPush, err)
	}
	if err != nil {
		return nil, err
	}
	return r.exchange.Push(ctx, meta, r.Snapshots(head), r.remoteRoot(root))
}

// Pull merges the exchange's record of the current branch into it.
func (r *Repo) Pull(ctx context.Context, root string, opts branch.MergeOptions) (*remote.PullReport, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	var report *remote.PullReport
	_, updErr := r.branches.Update(head, func(meta *branch.Metadata) error {
		var pullErr error
		report, pullErr = r.exchange.Pull(ctx, r.remoteRoot(root), meta, r.Snapshots(head), opts)
		return pullErr
	})
	if updErr != nil && !branch.IsWarning(updErr) {
		return nil, updErr
	}
	return report, updErr
}

// RemoteBranches lists the branches published to the exchange directory root.
func (r *Repo) RemoteBranches(ctx context.Context, root string) ([]string, error) {
	return r.exchange.Branches(ctx, r.remoteRoot(root))
}
