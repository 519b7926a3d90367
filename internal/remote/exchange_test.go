package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/snapshot"
	"github.com/gorewood/rings/internal/version"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fastExchange() *Exchange {
	return New(Config{
		Timeout:      200 * time.Millisecond,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		User:         "tester",
	})
}

// commit records file@v on meta and stores its snapshot.
func commit(t *testing.T, meta *branch.Metadata, snaps *snapshot.Store, file, v, content string) {
	t.Helper()
	num := version.MustParse(v)
	if err := snaps.Put(file, num, []byte(content)); err != nil {
		t.Fatalf("Put(%s@%s) error = %v", file, v, err)
	}
	if _, err := meta.RecordCommit(file, num, "alice", epoch, snapshot.Checksum([]byte(content))); err != nil {
		t.Fatalf("RecordCommit(%s@%s) error = %v", file, v, err)
	}
}

func TestPush_WritesRecordAndSnapshots(t *testing.T) {
	remoteRoot := t.TempDir()
	local := snapshot.NewStore(t.TempDir())
	meta := branch.New("main")
	commit(t, meta, local, "notes.txt", "1.0", "one\n")
	commit(t, meta, local, "notes.txt", "1.1", "one\ntwo\n")

	report, err := fastExchange().Push(context.Background(), meta, local, remoteRoot)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if report.SnapshotsCopied != 2 || report.ReplacedExisting {
		t.Errorf("report = %+v", report)
	}
	got, err := branch.NewStore(remoteRoot).Load("main")
	if err != nil {
		t.Fatalf("remote Load() error = %v", err)
	}
	if diff := cmp.Diff(meta, got); diff != "" {
		t.Errorf("remote record mismatch (-want +got):\n%s", diff)
	}
	remoteSnaps := snapshot.NewStore(filepath.Join(remoteRoot, SnapshotsDir))
	content, err := remoteSnaps.Get("notes.txt", version.MustParse("1.1"))
	if err != nil || string(content) != "one\ntwo\n" {
		t.Errorf("remote snapshot = %q, %v", content, err)
	}

	// A second push copies nothing new.
	again, err := fastExchange().Push(context.Background(), meta, local, remoteRoot)
	if err != nil {
		t.Fatalf("second Push() error = %v", err)
	}
	if again.SnapshotsCopied != 0 || !again.ReplacedExisting || again.Discarded != 0 {
		t.Errorf("second report = %+v", again)
	}
}

func TestPush_ReportsDiscardedRemoteCommits(t *testing.T) {
	remoteRoot := t.TempDir()
	local := snapshot.NewStore(t.TempDir())
	theirs := branch.New("main")
	commit(t, theirs, local, "other.txt", "1.0", "x")
	if _, err := fastExchange().Push(context.Background(), theirs, local, remoteRoot); err != nil {
		t.Fatal(err)
	}

	ours := branch.New("main")
	commit(t, ours, local, "notes.txt", "1.0", "y")
	report, err := fastExchange().Push(context.Background(), ours, local, remoteRoot)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if report.Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", report.Discarded)
	}
}

func TestPushPull_Unavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	roots := map[string]string{
		"missing":   filepath.Join(t.TempDir(), "nope"),
		"not a dir": file,
		"not set":   "",
	}
	ex := fastExchange()
	local := snapshot.NewStore(t.TempDir())

	for name, root := range roots {
		t.Run(name, func(t *testing.T) {
			if _, err := ex.Push(context.Background(), branch.New("main"), local, root); !errors.Is(err, ErrUnavailable) {
				t.Errorf("Push() error = %v, want ErrUnavailable", err)
			}
			if _, err := ex.Pull(context.Background(), root, branch.New("main"), local, branch.MergeOptions{}); !errors.Is(err, ErrUnavailable) {
				t.Errorf("Pull() error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestPull_BranchMissing(t *testing.T) {
	_, err := fastExchange().Pull(context.Background(), t.TempDir(), branch.New("main"), snapshot.NewStore(t.TempDir()), branch.MergeOptions{})
	if !errors.Is(err, ErrBranchMissing) {
		t.Errorf("Pull() error = %v, want ErrBranchMissing", err)
	}
}

func TestPull_UnreadableRemoteRecordIsLeftAlone(t *testing.T) {
	remoteRoot := t.TempDir()
	branchesDir := filepath.Join(remoteRoot, "branches")
	if err := os.MkdirAll(branchesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	record := filepath.Join(branchesDir, "main.json")
	if err := os.WriteFile(record, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	local := branch.New("main")
	commit(t, local, snapshot.NewStore(t.TempDir()), "a.txt", "1.0", "a\n")

	_, err := fastExchange().Pull(context.Background(), remoteRoot, local, snapshot.NewStore(t.TempDir()), branch.MergeOptions{})
	if !errors.Is(err, branch.ErrUnreadable) || branch.IsWarning(err) {
		t.Fatalf("Pull() error = %v, want ErrUnreadable", err)
	}
	if len(local.Commits) != 1 {
		t.Errorf("local record changed by failed pull: %+v", local)
	}
	entries, err := os.ReadDir(branchesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "main.json" {
		t.Errorf("exchange branches dir = %v, want only main.json", entries)
	}
	if data, _ := os.ReadFile(record); string(data) != "{not json" {
		t.Errorf("remote record rewritten to %q", data)
	}
}

func TestPull_MergesAndCopiesSnapshots(t *testing.T) {
	remoteRoot := t.TempDir()
	theirSnaps := snapshot.NewStore(t.TempDir())
	theirs := branch.New("main")
	commit(t, theirs, theirSnaps, "shared.txt", "1.0", "base\n")
	commit(t, theirs, theirSnaps, "theirs.txt", "1.0", "remote\n")
	if err := theirs.CreateTag("release", "theirs.txt", version.MustParse("1.0")); err != nil {
		t.Fatal(err)
	}
	if _, err := fastExchange().Push(context.Background(), theirs, theirSnaps, remoteRoot); err != nil {
		t.Fatal(err)
	}

	ourSnaps := snapshot.NewStore(t.TempDir())
	ours := branch.New("main")
	commit(t, ours, ourSnaps, "shared.txt", "1.0", "base\n")
	commit(t, ours, ourSnaps, "shared.txt", "1.1", "base\nmine\n")

	report, err := fastExchange().Pull(context.Background(), remoteRoot, ours, ourSnaps, branch.MergeOptions{})
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	if ours.Files["theirs.txt"] != version.MustParse("1.0") {
		t.Errorf("theirs.txt not adopted: %+v", ours.Files)
	}
	if ours.Files["shared.txt"] != version.MustParse("1.1") {
		t.Errorf("shared.txt moved to %s", ours.Files["shared.txt"])
	}
	if _, ok := ours.Tags["release"]; !ok {
		t.Error("tag on adopted commit not copied")
	}
	if report.SnapshotsCopied != 1 {
		t.Errorf("SnapshotsCopied = %d, want 1", report.SnapshotsCopied)
	}
	content, err := ourSnaps.Get("theirs.txt", version.MustParse("1.0"))
	if err != nil || string(content) != "remote\n" {
		t.Errorf("pulled snapshot = %q, %v", content, err)
	}
	if len(report.Merge.Conflicts) != 1 || report.Merge.Conflicts[0].File != "shared.txt" {
		t.Errorf("conflicts = %+v", report.Merge.Conflicts)
	}
}

func TestWithLock_TimesOutWhileHeld(t *testing.T) {
	root := t.TempDir()
	other := flock.New(filepath.Join(root, LockFile))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock() = %v, %v", locked, err)
	}
	defer other.Unlock() //nolint:errcheck // test cleanup

	ran := false
	start := time.Now()
	err = fastExchange().WithLock(context.Background(), root, func() error {
		ran = true
		return nil
	})

	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("WithLock() error = %v, want ErrLockTimeout", err)
	}
	if ran {
		t.Error("fn ran without the lock")
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("gave up after %s, before the timeout", elapsed)
	}
}

func TestPush_LockedRemote(t *testing.T) {
	root := t.TempDir()
	other := flock.New(filepath.Join(root, LockFile))
	if locked, err := other.TryLock(); err != nil || !locked {
		t.Fatalf("TryLock() = %v, %v", locked, err)
	}
	defer other.Unlock() //nolint:errcheck // test cleanup

	_, err := fastExchange().Push(context.Background(), branch.New("main"), snapshot.NewStore(t.TempDir()), root)

	if !errors.Is(err, ErrLocked) || !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Push() error = %v, want ErrLocked wrapping ErrLockTimeout", err)
	}
	if branch.NewStore(root).Exists("main") {
		t.Error("record written while the remote was locked")
	}
}

func TestWithLock_ReleasedAfterErrorAndPanic(t *testing.T) {
	root := t.TempDir()
	ex := fastExchange()
	boom := errors.New("boom")

	if err := ex.WithLock(context.Background(), root, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("WithLock() error = %v, want boom", err)
	}

	func() {
		defer func() { _ = recover() }()
		_ = ex.WithLock(context.Background(), root, func() error { panic("fn panicked") })
	}()

	if err := ex.WithLock(context.Background(), root, func() error { return nil }); err != nil {
		t.Errorf("lock not released: %v", err)
	}
}

func TestWithLock_StaleHolderRecordDoesNotBlock(t *testing.T) {
	root := t.TempDir()
	stale := `{"user":"ghost","host":"gone","pid":999999,"acquired":"2020-01-01T00:00:00Z"}`
	if err := os.WriteFile(filepath.Join(root, LockFile), []byte(stale), 0o644); err != nil {
		t.Fatal(err)
	}

	err := fastExchange().WithLock(context.Background(), root, func() error { return nil })
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}

	holder, err := ReadHolder(root)
	if err != nil {
		t.Fatalf("ReadHolder() error = %v", err)
	}
	if holder.User != "tester" || holder.PID != os.Getpid() {
		t.Errorf("holder = %+v, want current process", holder)
	}
}

func TestWithLock_ContextCancelled(t *testing.T) {
	root := t.TempDir()
	other := flock.New(filepath.Join(root, LockFile))
	if locked, err := other.TryLock(); err != nil || !locked {
		t.Fatalf("TryLock() = %v, %v", locked, err)
	}
	defer other.Unlock() //nolint:errcheck // test cleanup

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := New(Config{Timeout: time.Minute})

	err := ex.WithLock(ctx, root, func() error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WithLock() error = %v, want context.Canceled", err)
	}
}
