package output

import (
	"errors"
	"os"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/config"
	"github.com/gorewood/rings/internal/remote"
	"github.com/gorewood/rings/internal/repo"
	"github.com/gorewood/rings/internal/snapshot"
	"github.com/gorewood/rings/internal/version"
)

var conflictErrors = []error{
	branch.ErrVersionConflict,
	branch.ErrDuplicateTag,
	branch.ErrBranchExists,
	snapshot.ErrDuplicate,
	remote.ErrLocked,
	remote.ErrLockTimeout,
	repo.ErrAlreadyInitialized,
}

var userErrors = []error{
	version.ErrFormat,
	version.ErrExhausted,
	branch.ErrNonConsecutive,
	branch.ErrUnknownCommit,
	branch.ErrUnknownBranch,
	branch.ErrInvalidMerge,
	branch.ErrInvalidName,
	snapshot.ErrNotFound,
	snapshot.ErrInvalidName,
	remote.ErrBranchMissing,
	remote.ErrUnavailable,
	repo.ErrNotInitialized,
	repo.ErrNotTracked,
	config.ErrInvalidSettings,
	os.ErrNotExist,
}

var systemErrors = []error{
	branch.ErrCorruptMetadata,
	branch.ErrUnreadable,
	repo.ErrCorruptPush,
}

// Classify wraps err in an ExitError whose code reflects its kind.
// Errors that already carry a code are returned unchanged; unrecognised errors
// are system errors. Returns nil for nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: codeFor(err), Message: err.Error(), Cause: err}
}

func codeFor(err error) int {
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return ExitConflict
		}
	}
	for _, target := range systemErrors {
		if errors.Is(err, target) {
			return ExitSystemError
		}
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return ExitUserError
		}
	}
	return ExitSystemError
}
