// Package remote exchanges branch metadata and snapshots with a shared
// directory. Every access to the directory is serialized across processes by a
// file lock in its root.
//
// An exchange directory mirrors a repository directory with a shared snapshot
// scope:
//
//	<root>/.rings.lock
//	<root>/branches/<branch>.json
//	<root>/versions/<file>_<version>.zip
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/logging"
	"github.com/gorewood/rings/internal/snapshot"
)

// Errors returned by exchange operations.
var (
	// ErrUnavailable: the exchange root is missing or is not a directory.
	ErrUnavailable = errors.New("remote unavailable")

	// ErrLocked: another actor held the exchange lock for the whole wait.
	// It always wraps ErrLockTimeout.
	ErrLocked = errors.New("remote is locked")

	// ErrLockTimeout: the lock could not be acquired before the timeout.
	ErrLockTimeout = errors.New("lock timeout")

	// ErrBranchMissing: the remote has no record for the requested branch.
	ErrBranchMissing = errors.New("branch not found on remote")
)

// Defaults for Config fields left at zero.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultInitialDelay = 50 * time.Millisecond
	DefaultMaxDelay     = time.Second
)

// SnapshotsDir is the snapshot directory inside an exchange root.
const SnapshotsDir = "versions"

// Config configures an Exchange.
type Config struct {
	// Timeout bounds the total wait for the exchange lock.
	Timeout time.Duration
	// InitialDelay and MaxDelay bound the backoff between lock attempts.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// User is recorded as the lock holder.
	User   string
	Logger *zap.Logger
}

// Exchange pushes and pulls branches to and from exchange directories.
type Exchange struct {
	timeout      time.Duration
	initialDelay time.Duration
	maxDelay     time.Duration
	user         string
	logger       *zap.Logger
	now          func() time.Time
}

// New creates an Exchange, filling zero Config fields with defaults.
func New(cfg Config) *Exchange {
	e := &Exchange{
		timeout:      cfg.Timeout,
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		user:         cfg.User,
		logger:       logging.OrNop(cfg.Logger),
		now:          time.Now,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.initialDelay <= 0 {
		e.initialDelay = DefaultInitialDelay
	}
	if e.maxDelay < e.initialDelay {
		e.maxDelay = max(DefaultMaxDelay, e.initialDelay)
	}
	return e
}

// PushReport describes a completed push.
type PushReport struct {
	Branch           string `json:"branch"`
	Remote           string `json:"remote"`
	Commits          int    `json:"commits"`
	SnapshotsCopied  int    `json:"snapshots_copied"`
	ReplacedExisting bool   `json:"replaced_existing"`
	// Discarded counts remote commits that the pushed record did not contain.
	Discarded int `json:"discarded"`
}

// PullReport describes a completed pull.
type PullReport struct {
	Branch          string              `json:"branch"`
	Remote          string              `json:"remote"`
	SnapshotsCopied int                 `json:"snapshots_copied"`
	Merge           *branch.MergeReport `json:"merge"`
}

// Push writes meta to the exchange at root, replacing the remote record for the
// branch, and copies every snapshot its commits reference that the remote lacks.
// Snapshots are read from local.
func (e *Exchange) Push(ctx context.Context, meta *branch.Metadata, local *snapshot.Store, root string) (*PushReport, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	report := &PushReport{Branch: meta.Name, Remote: root, Commits: len(meta.Commits)}

	err := e.WithLock(ctx, root, func() error {
		remoteSnaps := snapshot.NewStore(filepath.Join(root, SnapshotsDir))
		for _, c := range meta.Commits {
			copied, err := remoteSnaps.Copy(local, c.File, c.Version)
			if err != nil {
				return fmt.Errorf("copying snapshot %s@%s: %w", c.File, c.Version, err)
			}
			if copied {
				report.SnapshotsCopied++
			}
		}

		remoteMeta := branch.NewStore(root)
		if previous, loadErr := remoteMeta.Read(meta.Name); loadErr == nil {
			report.ReplacedExisting = true
			for _, c := range previous.Commits {
				if !meta.HasEntry(c) {
					report.Discarded++
				}
			}
		} else if !errors.Is(loadErr, branch.ErrUnknownBranch) {
			e.logger.Warn("replacing unreadable remote record", zap.String("branch", meta.Name), zap.Error(loadErr))
			report.ReplacedExisting = true
		}
		return remoteMeta.Save(meta)
	})
	if err != nil {
		return nil, lockError(err)
	}

	e.logger.Info("pushed branch",
		zap.String("branch", meta.Name),
		zap.String("remote", root),
		zap.Int("snapshots_copied", report.SnapshotsCopied))
	return report, nil
}

// Pull reads the remote record for local's branch and merges it into local with
// branch.MergeInto. Snapshots of adopted commits are copied into snaps before
// local is modified; on error local is left untouched.
func (e *Exchange) Pull(ctx context.Context, root string, local *branch.Metadata, snaps *snapshot.Store, opts branch.MergeOptions) (*PullReport, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	report := &PullReport{Branch: local.Name, Remote: root}

	var merged *branch.Metadata
	err := e.WithLock(ctx, root, func() error {
		remoteMeta := branch.NewStore(root)
		if !remoteMeta.Exists(local.Name) {
			return fmt.Errorf("%w: %s", ErrBranchMissing, local.Name)
		}
		theirs, loadErr := remoteMeta.Read(local.Name)
		if loadErr != nil {
			return loadErr
		}

		merged = local.Clone(local.Name)
		report.Merge = branch.MergeInto(merged, theirs, opts)

		remoteSnaps := snapshot.NewStore(filepath.Join(root, SnapshotsDir))
		for _, c := range report.Merge.Adopted {
			copied, err := snaps.Copy(remoteSnaps, c.File, c.Version)
			if err != nil {
				return fmt.Errorf("copying snapshot %s@%s: %w", c.File, c.Version, err)
			}
			if copied {
				report.SnapshotsCopied++
			}
		}
		return nil
	})
	if err != nil {
		return nil, lockError(err)
	}

	*local = *merged
	e.logger.Info("pulled branch",
		zap.String("branch", local.Name),
		zap.String("remote", root),
		zap.Int("commits_adopted", len(report.Merge.Adopted)))
	return report, nil
}

// Branches lists the branch records present on the exchange.
func (e *Exchange) Branches(ctx context.Context, root string) ([]string, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	var names []string
	err := e.WithLock(ctx, root, func() error {
		var listErr error
		names, listErr = branch.NewStore(root).Names()
		return listErr
	})
	if err != nil {
		return nil, lockError(err)
	}
	return names, nil
}

func checkRoot(root string) error {
	if root == "" {
		return fmt.Errorf("%w: no remote directory configured", ErrUnavailable)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnavailable, root)
	}
	return nil
}

func lockError(err error) error {
	if errors.Is(err, ErrLockTimeout) {
		return fmt.Errorf("%w: %w", ErrLocked, err)
	}
	return err
}
