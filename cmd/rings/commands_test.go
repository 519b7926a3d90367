package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/output"
)

// newWorkdir returns an initialized repository directory.
func newWorkdir(t *testing.T, extra ...string) string {
	t.Helper()
	isolateEnv(t)
	dir := t.TempDir()
	if out, err := execute(t, dir, append([]string{"init"}, extra...)...); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	return dir
}

func writeWorking(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// run executes a command that must succeed.
func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := execute(t, dir, args...)
	if err != nil {
		t.Fatalf("rings %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// runJSON executes a command with --json and decodes its single result.
func runJSON(t *testing.T, dir string, args ...string) map[string]any {
	t.Helper()
	out := run(t, dir, append(args, "--json")...)
	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("rings %s: invalid JSON: %v\n%s", strings.Join(args, " "), err, out)
	}
	return result
}

func TestInit(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	got := runJSON(t, dir, "init", "--scope", "branch")
	if got["branch"] != "main" || got["scope"] != "branch" {
		t.Errorf("init = %v", got)
	}

	_, err := execute(t, dir, "init")
	if code := output.GetExitCode(err); code != output.ExitConflict {
		t.Errorf("second init exit code = %d, want %d", code, output.ExitConflict)
	}
}

func TestInit_InvalidScope(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, t.TempDir(), "init", "--scope", "global")
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("exit code = %d, want %d (err %v)", code, output.ExitUserError, err)
	}
}

func TestCommands_NotInitialized(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeWorking(t, dir, "notes.txt", "x\n")

	out, err := execute(t, dir, "commit", "notes.txt", "--json")
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("exit code = %d, want %d", code, output.ExitUserError)
	}
	if !strings.Contains(out, `"error"`) {
		t.Errorf("output = %s, want JSON error", out)
	}
}

func TestCommitLogDiffWorkflow(t *testing.T) {
	dir := newWorkdir(t)
	writeWorking(t, dir, "notes.txt", "alpha\nbeta\n")

	first := runJSON(t, dir, "commit", "notes.txt")
	if first["status"] != "committed" || first["version"] != "1.0" {
		t.Fatalf("first commit = %v", first)
	}
	again := runJSON(t, dir, "commit", "notes.txt")
	if again["status"] != "unchanged" {
		t.Errorf("unchanged commit = %v", again)
	}

	writeWorking(t, dir, "notes.txt", "alpha\ngamma\ndelta\n")
	second := runJSON(t, dir, "commit", "notes.txt")
	if second["version"] != "1.1" || second["previous"] != "1.0" {
		t.Errorf("second commit = %v", second)
	}

	log := runJSON(t, dir, "log", "notes.txt")
	if log["count"] != float64(2) || log["branch"] != "main" {
		t.Errorf("log = %v", log)
	}

	diff := runJSON(t, dir, "diff", "notes.txt", "1.0", "1.1")
	wantDiff := "--- notes.txt_1.0\n+++ notes.txt_1.1\n@@ -1,2 +1,3 @@\n alpha\n-beta\n+gamma\n+delta\n"
	if d := cmp.Diff(wantDiff, diff["diff"]); d != "" {
		t.Errorf("diff text mismatch (-want +got):\n%s", d)
	}

	metrics := runJSON(t, dir, "metrics", "notes.txt", "1.0", "1.1")
	if metrics["additions"] != diff["additions"] || metrics["deletions"] != diff["deletions"] {
		t.Errorf("metrics = %v, diff = %v", metrics, diff)
	}
	if metrics["additions"] != float64(2) || metrics["deletions"] != float64(1) {
		t.Errorf("metrics = %v", metrics)
	}

	human := run(t, dir, "diff", "notes.txt", "1.0", "1.1", "--stat", "--color", "never")
	if human != "2 addition(s), 1 deletion(s)\n" {
		t.Errorf("diff --stat = %q", human)
	}
}

func TestCommit_ExplicitVersion(t *testing.T) {
	dir := newWorkdir(t)
	writeWorking(t, dir, "notes.txt", "one\n")
	run(t, dir, "commit", "notes.txt")

	writeWorking(t, dir, "notes.txt", "two\n")
	for _, bad := range []string{"3.0", "2.0", "1.2"} {
		_, err := execute(t, dir, "commit", "notes.txt", "--version", bad)
		if code := output.GetExitCode(err); code != output.ExitUserError {
			t.Errorf("--version %s exit code = %d, want %d", bad, code, output.ExitUserError)
		}
	}

	got := runJSON(t, dir, "commit", "notes.txt", "--version", "1.1")
	if got["version"] != "1.1" {
		t.Errorf("commit --version 1.1 = %v", got)
	}

	writeWorking(t, dir, "draft.md", "draft\n")
	got = runJSON(t, dir, "commit", "draft.md", "--version", "2.0")
	if got["version"] != "2.0" {
		t.Errorf("first commit --version 2.0 = %v", got)
	}
}

func TestTagCheckoutStatus(t *testing.T) {
	dir := newWorkdir(t)
	writeWorking(t, dir, "notes.txt", "original\n")
	run(t, dir, "commit", "notes.txt")
	run(t, dir, "tag", "create", "first", "notes.txt", "1.0")

	_, err := execute(t, dir, "tag", "create", "first", "notes.txt", "1.0")
	if code := output.GetExitCode(err); code != output.ExitConflict {
		t.Errorf("duplicate tag exit code = %d, want %d", code, output.ExitConflict)
	}

	writeWorking(t, dir, "notes.txt", "edited\n")
	status := runJSON(t, dir, "status")
	files, _ := status["files"].([]any)
	if len(files) != 1 || files[0].(map[string]any)["state"] != "modified" {
		t.Errorf("status = %v", status)
	}

	dest := t.TempDir()
	run(t, dir, "checkout", "notes.txt", "first", "--dest", dest)
	content, err := os.ReadFile(filepath.Join(dest, "notes.txt"))
	if err != nil || string(content) != "original\n" {
		t.Errorf("checked out content = %q, %v", content, err)
	}

	tags := runJSON(t, dir, "tag", "list")
	if list, _ := tags["tags"].([]any); len(list) != 1 {
		t.Errorf("tags = %v", tags)
	}

	verify := runJSON(t, dir, "verify")
	if verify["checked"] != float64(1) {
		t.Errorf("verify = %v", verify)
	}
}

func TestBranchAndMerge(t *testing.T) {
	dir := newWorkdir(t)
	writeWorking(t, dir, "notes.txt", "base\n")
	run(t, dir, "commit", "notes.txt")

	run(t, dir, "branch", "create", "feature")
	run(t, dir, "branch", "switch", "feature")
	writeWorking(t, dir, "notes.txt", "base\nfeature\n")
	run(t, dir, "commit", "notes.txt")
	writeWorking(t, dir, "extra.txt", "new file\n")
	run(t, dir, "commit", "extra.txt")

	run(t, dir, "branch", "switch", "main")
	branches := runJSON(t, dir, "branch", "list")
	if list, _ := branches["branches"].([]any); len(list) != 2 {
		t.Errorf("branches = %v", branches)
	}

	plain := runJSON(t, dir, "merge", "feature")
	if added, _ := plain["added"].([]any); len(added) != 1 {
		t.Errorf("merge added = %v", plain["added"])
	}
	if conflicts, _ := plain["conflicts"].([]any); len(conflicts) != 1 {
		t.Errorf("merge conflicts = %v", plain["conflicts"])
	}

	taken := runJSON(t, dir, "merge", "feature", "--take-source", "notes.txt")
	if updated, _ := taken["updated"].([]any); len(updated) != 1 {
		t.Errorf("take-source updated = %v", taken["updated"])
	}

	log := runJSON(t, dir, "log", "notes.txt")
	if log["count"] != float64(2) {
		t.Errorf("log after merge = %v", log)
	}

	_, err := execute(t, dir, "merge", "feature", "--prefer", "both")
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("bad --prefer exit code = %d", code)
	}
	_, err = execute(t, dir, "merge", "ghost")
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("unknown branch exit code = %d", code)
	}
}

func TestPushPull(t *testing.T) {
	exchange := t.TempDir()
	alice := newWorkdir(t)
	writeWorking(t, alice, "plan.md", "step one\n")
	run(t, alice, "commit", "plan.md")

	pushed := runJSON(t, alice, "push", exchange)
	if pushed["snapshots_copied"] != float64(1) {
		t.Errorf("push = %v", pushed)
	}

	bob := t.TempDir()
	run(t, bob, "init")
	t.Setenv("RINGS_REMOTE", exchange)
	pulled := runJSON(t, bob, "pull")
	merge, _ := pulled["merge"].(map[string]any)
	if added, _ := merge["added"].([]any); len(added) != 1 {
		t.Errorf("pull = %v", pulled)
	}

	remote := runJSON(t, bob, "remote-branches")
	if got, _ := remote["branches"].([]any); len(got) != 1 || got[0] != "main" {
		t.Errorf("remote-branches = %v", remote)
	}

	run(t, bob, "checkout", "plan.md", "1.0")
	content, err := os.ReadFile(filepath.Join(bob, "plan.md"))
	if err != nil || string(content) != "step one\n" {
		t.Errorf("pulled content = %q, %v", content, err)
	}
}

func TestPush_NoRemote(t *testing.T) {
	dir := newWorkdir(t)
	_, err := execute(t, dir, "push")
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("push without remote exit code = %d, want %d", code, output.ExitUserError)
	}
}

func TestMergeResolver(t *testing.T) {
	conflict := branch.Conflict{File: "notes.txt"}
	tests := []struct {
		name       string
		prefer     string
		takeSource []string
		want       branch.Resolution
		wantNil    bool
		wantErr    bool
	}{
		{name: "default keeps destination", prefer: "destination", wantNil: true},
		{name: "prefer source", prefer: "source", want: branch.TakeSource},
		{name: "take source for file", prefer: "destination", takeSource: []string{"notes.txt"}, want: branch.TakeSource},
		{name: "take source for other file", prefer: "destination", takeSource: []string{"other.txt"}, want: branch.KeepDestination},
		{name: "invalid", prefer: "both", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolve, err := mergeResolver(tt.prefer, tt.takeSource)
			if (err != nil) != tt.wantErr {
				t.Fatalf("mergeResolver() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if resolve != nil {
					t.Error("resolver should be nil")
				}
				return
			}
			if got := resolve(conflict); got != tt.want {
				t.Errorf("resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHumanOutputHasNoJSON(t *testing.T) {
	dir := newWorkdir(t)
	writeWorking(t, dir, "notes.txt", "hello\n")

	out := run(t, dir, "commit", "notes.txt", "--color", "never")
	if out != "Committed notes.txt 1.0 on main\n" {
		t.Errorf("commit output = %q", out)
	}
	out = run(t, dir, "status", "--color", "never")
	if !strings.HasPrefix(out, "On branch main (shared scope)\n") {
		t.Errorf("status output = %q", out)
	}
}

func TestExport(t *testing.T) {
	dir := newWorkdir(t)
	writeWorking(t, dir, "notes.txt", "one\n")
	run(t, dir, "commit", "notes.txt")
	writeWorking(t, dir, "notes.txt", "one\ntwo\n")
	run(t, dir, "commit", "notes.txt")

	md := run(t, dir, "export", "notes.txt")
	if !strings.Contains(md, "schema: rings.history/v1") || !strings.Contains(md, "- Changes: +1/-0 since 1.0") {
		t.Errorf("markdown export = %s", md)
	}

	outDir := t.TempDir()
	got := runJSON(t, dir, "export", "notes.txt", "--out", outDir)
	if got["path"] != filepath.Join(outDir, "notes.txt.history.json") || got["revisions"] != float64(2) {
		t.Errorf("export --out = %v", got)
	}

	_, err := execute(t, dir, "export", "notes.txt", "--format", "pdf")
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("bad format exit code = %d", code)
	}
	_, err = execute(t, dir, "export", "ghost.txt")
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("untracked export exit code = %d", code)
	}
}

func TestCorruptBranchRecord(t *testing.T) {
	dir := newWorkdir(t)
	exchange := t.TempDir()
	writeWorking(t, dir, "notes.txt", "one\n")
	run(t, dir, "commit", "notes.txt")
	run(t, dir, "push", exchange)

	record := filepath.Join(dir, ".rings", "branches", "main.json")
	if err := os.WriteFile(record, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, dir, "log")
	if !strings.Contains(out, "Warning:") || !strings.Contains(out, "corrupt branch metadata") {
		t.Errorf("log output does not warn about the corrupt record:\n%s", out)
	}
	out = run(t, dir, "tag", "list")
	if !strings.Contains(out, "corrupt branch metadata") {
		t.Errorf("tag list output does not warn about the corrupt record:\n%s", out)
	}

	_, err := execute(t, dir, "push", exchange)
	if code := output.GetExitCode(err); code != output.ExitSystemError {
		t.Errorf("push exit code = %d, want %d", code, output.ExitSystemError)
	}
	data, readErr := os.ReadFile(filepath.Join(exchange, "branches", "main.json"))
	if readErr != nil || !strings.Contains(string(data), "notes.txt") {
		t.Errorf("remote record after refused push = %q, %v", data, readErr)
	}
}
