package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file read from the global and repository directories.
const FileName = "config.yaml"

// Scope selects where snapshots are stored.
type Scope string

const (
	// ScopeShared stores one snapshot namespace for all branches.
	ScopeShared Scope = "shared"
	// ScopeBranch gives every branch its own snapshot directory.
	ScopeBranch Scope = "branch"
)

// ErrInvalidSettings is returned when settings fail validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the user-tunable options.
type Settings struct {
	// User is recorded on every commit entry.
	User string `yaml:"user"`
	// LogLevel is passed to logging.New: none, info, debug, warn, error.
	LogLevel string `yaml:"log_level"`
	// LockTimeout bounds the wait for a remote's exchange lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// SnapshotScope is shared or branch.
	SnapshotScope Scope `yaml:"snapshot_scope"`
	// Remote is the default exchange directory for push and pull.
	Remote string `yaml:"remote"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		LogLevel:      "none",
		LockTimeout:   10 * time.Second,
		SnapshotScope: ScopeShared,
	}
}

// Load builds settings from defaults, <Dir>/config.yaml, <repoDir>/config.yaml
// and RINGS_* environment variables, later sources overriding earlier ones.
// repoDir may be empty. User falls back to $USER or $USERNAME.
func Load(repoDir string) (Settings, error) {
	s := Default()

	if dir := Dir(); dir != "" {
		if err := s.mergeFile(filepath.Join(dir, FileName)); err != nil {
			return s, err
		}
	}
	if repoDir != "" {
		if err := s.mergeFile(filepath.Join(repoDir, FileName)); err != nil {
			return s, err
		}
	}
	if err := s.applyEnv(); err != nil {
		return s, err
	}
	if s.User == "" {
		s.User = firstEnv("USER", "USERNAME")
	}
	if s.User == "" {
		s.User = "unknown"
	}
	return s, s.Validate()
}

// Validate checks value ranges and enumerations.
func (s Settings) Validate() error {
	switch s.SnapshotScope {
	case ScopeShared, ScopeBranch:
	default:
		return fmt.Errorf("%w: snapshot_scope %q (want %q or %q)", ErrInvalidSettings, s.SnapshotScope, ScopeShared, ScopeBranch)
	}
	if s.LockTimeout < 0 {
		return fmt.Errorf("%w: lock_timeout %s is negative", ErrInvalidSettings, s.LockTimeout)
	}
	return nil
}

// Save writes s as YAML to path, creating its directory.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// mergeFile overlays the keys present in a YAML file. A missing file is skipped.
func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidSettings, path, err)
	}
	return nil
}

func (s *Settings) applyEnv() error {
	if v := os.Getenv("RINGS_USER"); v != "" {
		s.User = v
	}
	if v := os.Getenv("RINGS_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("RINGS_SNAPSHOT_SCOPE"); v != "" {
		s.SnapshotScope = Scope(v)
	}
	if v := os.Getenv("RINGS_REMOTE"); v != "" {
		s.Remote = v
	}
	if v := os.Getenv("RINGS_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: RINGS_LOCK_TIMEOUT: %v", ErrInvalidSettings, err)
		}
		s.LockTimeout = d
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// WriteRepoFile writes the repository settings file under repoDir with only the
// snapshot scope set. The scope of an initialized repository must not change.
func WriteRepoFile(repoDir string, scope Scope) error {
	data, err := yaml.Marshal(struct {
		SnapshotScope Scope `yaml:"snapshot_scope"`
	}{scope})
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	path := filepath.Join(repoDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadRepoScope returns the snapshot scope pinned in repoDir's settings file,
// or "" when none is recorded.
func ReadRepoScope(repoDir string) (Scope, error) {
	var pinned Settings
	if err := pinned.mergeFile(filepath.Join(repoDir, FileName)); err != nil {
		return "", err
	}
	return pinned.SnapshotScope, nil
}
