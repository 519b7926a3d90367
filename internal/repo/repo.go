// Package repo is the rings engine: it ties snapshot storage, branch metadata,
// diffs and the remote exchange together behind the operations the CLI and MCP
// server invoke. Operations return results or typed errors; none exits.
//
// On-disk layout under the working directory:
//
//	.rings/HEAD                        current branch name
//	.rings/config.yaml                 pinned repository settings
//	.rings/branches/<branch>.json      branch metadata
//	.rings/versions/<file>_<v>.zip     snapshots (shared scope)
//	.rings/versions/<branch>/...       snapshots (branch scope)
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/config"
	"github.com/gorewood/rings/internal/logging"
	"github.com/gorewood/rings/internal/remote"
	"github.com/gorewood/rings/internal/snapshot"
	"github.com/gorewood/rings/internal/version"
)

// DirName is the repository directory inside the working directory.
const DirName = ".rings"

// DefaultBranch is the branch created by Init and assumed when HEAD is absent.
const DefaultBranch = "main"

const (
	headFile    = "HEAD"
	versionsDir = "versions"
)

var (
	// ErrNotInitialized is returned by Open when the working directory has no repository.
	ErrNotInitialized = errors.New("not a rings repository (run 'rings init')")

	// ErrAlreadyInitialized is returned by Init when a repository already exists.
	ErrAlreadyInitialized = errors.New("rings repository already initialized")

	// ErrNotTracked is returned for a file with no commits on the current branch.
	ErrNotTracked = errors.New("file is not tracked on this branch")

	// ErrCorruptPush is returned by Push when the current branch record was
	// unreadable and has just been reinitialised. Publishing the empty record
	// would replace the remote history.
	ErrCorruptPush = errors.New("refusing to push a reinitialised branch")
)

// Options configures Init and Open.
type Options struct {
	Settings config.Settings
	Logger   *zap.Logger
	// Now overrides the commit clock in tests.
	Now func() time.Time
}

// Repo is an open repository.
type Repo struct {
	workDir  string
	dir      string
	settings config.Settings
	logger   *zap.Logger
	now      func() time.Time

	branches *branch.Store
	manager  *branch.Manager
	exchange *remote.Exchange
}

// Init creates a repository in workDir with an empty main branch.
// The snapshot scope in opts.Settings is pinned for the life of the repository.
func Init(workDir string, opts Options) (*Repo, error) {
	dir := filepath.Join(workDir, DirName)
	if _, err := os.Stat(filepath.Join(dir, headFile)); err == nil {
		return nil, fmt.Errorf("%w in %s", ErrAlreadyInitialized, workDir)
	}
	if opts.Settings.SnapshotScope == "" {
		opts.Settings.SnapshotScope = config.ScopeShared
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	for _, sub := range []string{dir, filepath.Join(dir, versionsDir)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", sub, err)
		}
	}
	if err := config.WriteRepoFile(dir, opts.Settings.SnapshotScope); err != nil {
		return nil, err
	}

	r := open(workDir, opts)
	if !r.branches.Exists(DefaultBranch) {
		if err := r.branches.Create(branch.New(DefaultBranch)); err != nil {
			return nil, err
		}
	}
	if err := r.setHead(DefaultBranch); err != nil {
		return nil, err
	}
	r.logger.Info("initialized repository",
		zap.String("dir", dir), zap.String("scope", string(opts.Settings.SnapshotScope)))
	return r, nil
}

// Open opens the repository in workDir. The pinned snapshot scope, if any,
// overrides the scope in opts.Settings.
func Open(workDir string, opts Options) (*Repo, error) {
	dir := filepath.Join(workDir, DirName)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, workDir)
	}
	pinned, err := config.ReadRepoScope(dir)
	if err != nil {
		return nil, err
	}
	switch {
	case pinned != "":
		opts.Settings.SnapshotScope = pinned
	case opts.Settings.SnapshotScope == "":
		opts.Settings.SnapshotScope = config.ScopeShared
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	return open(workDir, opts), nil
}

func open(workDir string, opts Options) *Repo {
	dir := filepath.Join(workDir, DirName)
	logger := logging.OrNop(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := branch.NewStore(dir)
	return &Repo{
		workDir:  workDir,
		dir:      dir,
		settings: opts.Settings,
		logger:   logger,
		now:      now,
		branches: store,
		manager:  branch.NewManager(store),
		exchange: remote.New(remote.Config{
			Timeout: opts.Settings.LockTimeout,
			User:    opts.Settings.User,
			Logger:  logger,
		}),
	}
}

// WorkDir returns the working directory holding the repository.
func (r *Repo) WorkDir() string { return r.workDir }

// Dir returns the .rings directory.
func (r *Repo) Dir() string { return r.dir }

// Settings returns the effective settings.
func (r *Repo) Settings() config.Settings { return r.settings }

// Head returns the current branch name.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, headFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultBranch, nil
		}
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultBranch, nil
	}
	return name, nil
}

func (r *Repo) setHead(name string) error {
	if err := os.WriteFile(filepath.Join(r.dir, headFile), []byte(name+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing HEAD: %w", err)
	}
	return nil
}

// Snapshots returns the snapshot store used for branchName under the
// repository's snapshot scope.
func (r *Repo) Snapshots(branchName string) *snapshot.Store {
	root := filepath.Join(r.dir, versionsDir)
	if r.settings.SnapshotScope == config.ScopeBranch {
		root = filepath.Join(root, branchName)
	}
	return snapshot.NewStore(root)
}

// current loads the HEAD branch. A corrupt record comes back empty together
// with its ErrCorruptMetadata warning; any other error returns no record.
func (r *Repo) current() (string, *branch.Metadata, error) {
	head, err := r.Head()
	if err != nil {
		return "", nil, err
	}
	meta, err := r.branches.Load(head)
	if err != nil {
		if !branch.IsWarning(err) {
			return "", nil, err
		}
		r.logger.Warn("recovered", zap.Error(err))
	}
	return head, meta, err
}

// warn logs a recovered condition and appends it to warnings.
func (r *Repo) warn(warnings *[]string, err error) {
	r.logger.Warn("recovered", zap.Error(err))
	*warnings = append(*warnings, err.Error())
}

// requireCommit fails unless (file, v) is a commit on meta. loadErr is the
// warning returned when meta was loaded, if any, and is named in the error.
func requireCommit(head string, meta *branch.Metadata, file string, v version.Number, loadErr error) error {
	if meta.HasCommit(file, v) {
		return nil
	}
	if loadErr != nil {
		return fmt.Errorf("%w: %s@%s on %s (%v)", branch.ErrUnknownCommit, file, v, head, loadErr)
	}
	return fmt.Errorf("%w: %s@%s on %s", branch.ErrUnknownCommit, file, v, head)
}

// resolvePath maps a user path to an absolute path, relative to the working directory.
func (r *Repo) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.workDir, path)
}
