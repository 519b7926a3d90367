package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/config"
	"github.com/gorewood/rings/internal/repo"
	"github.com/gorewood/rings/internal/version"
)

// --- Test helpers ---

func newToolset(t *testing.T) *toolset {
	t.Helper()
	settings := config.Default()
	settings.User = "tester"
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r, err := repo.Init(t.TempDir(), repo.Options{
		Settings: settings,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	if err != nil {
		t.Fatalf("repo.Init() error = %v", err)
	}
	return &toolset{repo: r}
}

func writeFile(t *testing.T, tools *toolset, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(tools.repo.WorkDir(), name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func commit(t *testing.T, tools *toolset, name string) CommitOutput {
	t.Helper()
	_, out, err := tools.handleCommit(context.Background(), &mcp.CallToolRequest{}, CommitInput{Path: name})
	if err != nil {
		t.Fatalf("commit %s: %v", name, err)
	}
	return out
}

// --- commit / log ---

func TestHandleCommit(t *testing.T) {
	tools := newToolset(t)
	writeFile(t, tools, "notes.txt", "one\n")

	first := commit(t, tools, "notes.txt")
	if first.Status != "committed" || first.Version != "1.0" || first.Previous != "" {
		t.Errorf("first commit = %+v", first)
	}

	again := commit(t, tools, "notes.txt")
	if again.Status != "unchanged" || again.Version != "1.0" {
		t.Errorf("unchanged commit = %+v", again)
	}

	writeFile(t, tools, "notes.txt", "one\ntwo\n")
	_, out, err := tools.handleCommit(context.Background(), &mcp.CallToolRequest{}, CommitInput{Path: "notes.txt", Version: "1.1"})
	if err != nil {
		t.Fatalf("explicit version commit: %v", err)
	}
	if out.Version != "1.1" || out.Previous != "1.0" {
		t.Errorf("explicit commit = %+v", out)
	}
}

func TestHandleCommit_Errors(t *testing.T) {
	tools := newToolset(t)
	writeFile(t, tools, "notes.txt", "one\n")
	commit(t, tools, "notes.txt")
	writeFile(t, tools, "notes.txt", "two\n")

	tests := []struct {
		name  string
		input CommitInput
		want  error
	}{
		{name: "missing path", input: CommitInput{}},
		{name: "bad version", input: CommitInput{Path: "notes.txt", Version: "v1"}, want: version.ErrFormat},
		{name: "missing file", input: CommitInput{Path: "gone.txt"}, want: os.ErrNotExist},
		{name: "major bump", input: CommitInput{Path: "notes.txt", Version: "2.0"}, want: branch.ErrNonConsecutive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tools.handleCommit(context.Background(), &mcp.CallToolRequest{}, tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHandleLog(t *testing.T) {
	tools := newToolset(t)
	writeFile(t, tools, "a.txt", "a\n")
	writeFile(t, tools, "b.txt", "b\n")
	commit(t, tools, "a.txt")
	commit(t, tools, "b.txt")
	writeFile(t, tools, "a.txt", "a\nmore\n")
	commit(t, tools, "a.txt")

	_, all, err := tools.handleLog(context.Background(), &mcp.CallToolRequest{}, LogInput{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Count != 3 {
		t.Errorf("Count = %d, want 3", all.Count)
	}

	_, onlyA, err := tools.handleLog(context.Background(), &mcp.CallToolRequest{}, LogInput{File: "a.txt", Last: 1})
	if err != nil {
		t.Fatal(err)
	}
	if onlyA.Count != 1 || onlyA.Commits[0].Version != "1.1" || onlyA.Commits[0].User != "tester" {
		t.Errorf("log a.txt last 1 = %+v", onlyA)
	}

	if _, _, err := tools.handleLog(context.Background(), &mcp.CallToolRequest{}, LogInput{Last: -1}); err == nil {
		t.Error("negative last accepted")
	}
}

// --- status / branches / tags ---

func TestHandleStatus(t *testing.T) {
	tools := newToolset(t)
	writeFile(t, tools, "notes.txt", "one\n")
	commit(t, tools, "notes.txt")
	writeFile(t, tools, "notes.txt", "changed\n")

	_, out, err := tools.handleStatus(context.Background(), &mcp.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Branch != repo.DefaultBranch || out.Scope != string(config.ScopeShared) {
		t.Errorf("status header = %+v", out)
	}
	if len(out.Files) != 1 || out.Files[0].State != "modified" || out.Files[0].Version != "1.0" {
		t.Errorf("files = %+v", out.Files)
	}
}

func TestHandleBranchesAndTags(t *testing.T) {
	tools := newToolset(t)
	writeFile(t, tools, "notes.txt", "one\n")
	commit(t, tools, "notes.txt")
	if _, err := tools.repo.CreateBranch("feature"); err != nil {
		t.Fatal(err)
	}
	if _, err := tools.repo.CreateTag("first", "notes.txt", version.Initial); err != nil {
		t.Fatal(err)
	}

	_, branches, err := tools.handleBranches(context.Background(), &mcp.CallToolRequest{}, BranchesInput{})
	if err != nil {
		t.Fatal(err)
	}
	if branches.Current != repo.DefaultBranch || len(branches.Branches) != 2 {
		t.Errorf("branches = %+v", branches)
	}

	_, tags, err := tools.handleTags(context.Background(), &mcp.CallToolRequest{}, TagsInput{})
	if err != nil {
		t.Fatal(err)
	}
	want := []TagEntry{{Name: "first", File: "notes.txt", Version: "1.0"}}
	if !slices.Equal(tags.Tags, want) {
		t.Errorf("tags = %+v, want %+v", tags.Tags, want)
	}
}

func TestReadTools_ReportCorruptRecord(t *testing.T) {
	tools := newToolset(t)
	writeFile(t, tools, "notes.txt", "one\n")
	commit(t, tools, "notes.txt")
	record := filepath.Join(tools.repo.Dir(), "branches", repo.DefaultBranch+".json")
	if err := os.WriteFile(record, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	_, log, err := tools.handleLog(ctx, &mcp.CallToolRequest{}, LogInput{})
	if err != nil || log.Count != 0 || len(log.Warnings) != 1 {
		t.Errorf("log = %+v, %v; want a warning and no commits", log, err)
	}
	_, tags, err := tools.handleTags(ctx, &mcp.CallToolRequest{}, TagsInput{})
	if err != nil || len(tags.Warnings) != 1 {
		t.Errorf("tags = %+v, %v; want a warning", tags, err)
	}
	_, status, err := tools.handleStatus(ctx, &mcp.CallToolRequest{}, StatusInput{})
	if err != nil || len(status.Warnings) != 1 {
		t.Errorf("status = %+v, %v; want a warning", status, err)
	}
	_, branches, err := tools.handleBranches(ctx, &mcp.CallToolRequest{}, BranchesInput{})
	if err != nil || len(branches.Warnings) != 1 {
		t.Errorf("branches = %+v, %v; want a warning", branches, err)
	}
}

// --- diff / metrics ---

func TestHandleDiffAndMetrics(t *testing.T) {
	tools := newToolset(t)
	writeFile(t, tools, "notes.txt", "keep\ndrop\n")
	commit(t, tools, "notes.txt")
	if _, err := tools.repo.CreateTag("base", "notes.txt", version.Initial); err != nil {
		t.Fatal(err)
	}
	writeFile(t, tools, "notes.txt", "keep\nadd one\nadd two\n")
	commit(t, tools, "notes.txt")

	_, out, err := tools.handleDiff(context.Background(), &mcp.CallToolRequest{}, DiffInput{File: "notes.txt", From: "base", To: "1.1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.Diff, "--- notes.txt_1.0\n+++ notes.txt_1.1\n") {
		t.Errorf("diff headers = %q", out.Diff)
	}
	if out.Additions != 2 || out.Deletions != 1 || out.Identical {
		t.Errorf("diff counts = %+v", out)
	}

	_, stats, err := tools.handleMetrics(context.Background(), &mcp.CallToolRequest{}, MetricsInput{File: "notes.txt", From: "1.0", To: "1.1"})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Additions != out.Additions || stats.Deletions != out.Deletions {
		t.Errorf("metrics = %+v, diff = %+v", stats, out)
	}

	_, working, err := tools.handleDiff(context.Background(), &mcp.CallToolRequest{}, DiffInput{File: "notes.txt", From: "1.1"})
	if err != nil {
		t.Fatal(err)
	}
	if !working.Identical || !strings.Contains(working.Diff, "+++ notes.txt_working") {
		t.Errorf("working diff = %+v", working)
	}
}

func TestHandleDiff_MissingRef(t *testing.T) {
	tools := newToolset(t)
	if _, _, err := tools.handleDiff(context.Background(), &mcp.CallToolRequest{}, DiffInput{File: "notes.txt"}); err == nil {
		t.Error("diff without from accepted")
	}
	if _, _, err := tools.handleMetrics(context.Background(), &mcp.CallToolRequest{}, MetricsInput{From: "1.0", To: "1.1"}); err == nil {
		t.Error("metrics without file accepted")
	}
}

// --- server wiring ---

func TestNewServer_ListsTools(t *testing.T) {
	tools := newToolset(t)
	server := NewServer("test", tools.repo)

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() error = %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect() error = %v", err)
	}
	defer session.Close()

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{"branches", "commit", "diff", "log", "metrics", "status", "tags"}
	if !slices.Equal(names, want) {
		t.Errorf("tools = %v, want %v", names, want)
	}
}
