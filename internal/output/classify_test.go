package output

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/remote"
	"github.com/gorewood/rings/internal/repo"
	"github.com/gorewood/rings/internal/version"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "version conflict", err: fmt.Errorf("commit: %w", branch.ErrVersionConflict), want: ExitConflict},
		{name: "lock timeout", err: fmt.Errorf("%w: %w", remote.ErrLocked, remote.ErrLockTimeout), want: ExitConflict},
		{name: "bad version", err: fmt.Errorf("%w: %q", version.ErrFormat, "x"), want: ExitUserError},
		{name: "not initialized", err: repo.ErrNotInitialized, want: ExitUserError},
		{name: "unknown branch", err: branch.ErrUnknownBranch, want: ExitUserError},
		{name: "corrupt metadata", err: branch.ErrCorruptMetadata, want: ExitSystemError},
		{name: "refused push", err: fmt.Errorf("%w: main", repo.ErrCorruptPush), want: ExitSystemError},
		{name: "unreadable remote record", err: fmt.Errorf("%w: main", branch.ErrUnreadable), want: ExitSystemError},
		{name: "exhausted version", err: fmt.Errorf("a.txt: %w", version.ErrExhausted), want: ExitUserError},
		{name: "unrecognised", err: errors.New("io failure"), want: ExitSystemError},
		{name: "already classified", err: NewUserError("x"), want: ExitUserError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if code := GetExitCode(got); code != tt.want {
				t.Errorf("GetExitCode(Classify()) = %d, want %d", code, tt.want)
			}
			if got.Error() != tt.err.Error() {
				t.Errorf("message = %q, want %q", got.Error(), tt.err.Error())
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error does not wrap the original")
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) != nil")
	}
}
