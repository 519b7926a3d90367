package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/diff"
	"github.com/gorewood/rings/internal/repo"
	"github.com/gorewood/rings/internal/version"
)

// CommitEntry is a history entry with its version rendered as text.
type CommitEntry struct {
	File      string `json:"file"               jsonschema:"tracked file name"`
	Version   string `json:"version"            jsonschema:"version such as 1.2"`
	User      string `json:"user"               jsonschema:"who committed"`
	Timestamp string `json:"timestamp"          jsonschema:"commit time, RFC3339"`
	Checksum  string `json:"checksum,omitempty" jsonschema:"xxh3 checksum of the snapshot"`
}

func toCommitEntries(commits []branch.Commit) []CommitEntry {
	result := make([]CommitEntry, 0, len(commits))
	for _, c := range commits {
		result = append(result, CommitEntry{
			File:      c.File,
			Version:   c.Version.String(),
			User:      c.User,
			Timestamp: c.Timestamp.Format(time.RFC3339),
			Checksum:  c.Checksum,
		})
	}
	return result
}

// recovered moves a corrupt-record warning out of err into the tool output.
func recovered(err error) ([]string, error) {
	if err != nil && branch.IsWarning(err) {
		return []string{err.Error()}, nil
	}
	return nil, err
}

func versionString(v *version.Number) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// --- status ---

// StatusInput is the input for the status tool.
type StatusInput struct {
	Paths []string `json:"paths,omitempty" jsonschema:"working files to check; defaults to every tracked file"`
}

// FileEntry is the state of one file.
type FileEntry struct {
	File    string `json:"file"`
	State   string `json:"state"             jsonschema:"unchanged, modified, untracked, missing or unknown"`
	Version string `json:"version,omitempty" jsonschema:"latest committed version"`
}

// StatusOutput is the output for the status tool.
type StatusOutput struct {
	Branch   string      `json:"branch"`
	Scope    string      `json:"scope" jsonschema:"snapshot scope: shared or branch"`
	Files    []FileEntry `json:"files"`
	Warnings []string    `json:"warnings,omitempty" jsonschema:"recovered corrupt branch records"`
}

func (t *toolset) handleStatus(_ context.Context, _ *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	head, err := t.repo.Head()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	statuses, err := t.repo.Status(input.Paths)
	warnings, err := recovered(err)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	out := StatusOutput{
		Branch:   head,
		Scope:    string(t.repo.Settings().SnapshotScope),
		Files:    make([]FileEntry, 0, len(statuses)),
		Warnings: warnings,
	}
	for _, s := range statuses {
		out.Files = append(out.Files, FileEntry{File: s.File, State: string(s.State), Version: versionString(s.Version)})
	}
	return nil, out, nil
}

// --- log ---

// LogInput is the input for the log tool.
type LogInput struct {
	File string `json:"file,omitempty" jsonschema:"restrict history to this file"`
	Last int    `json:"last,omitempty" jsonschema:"return only the last N commits"`
}

// LogOutput is the output for the log tool.
type LogOutput struct {
	Count    int           `json:"count"`
	Commits  []CommitEntry `json:"commits"`
	Warnings []string      `json:"warnings,omitempty"`
}

func (t *toolset) handleLog(_ context.Context, _ *mcp.CallToolRequest, input LogInput) (*mcp.CallToolResult, LogOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if input.Last < 0 {
		return nil, LogOutput{}, errors.New("last must not be negative")
	}
	commits, err := t.repo.Log(input.File)
	warnings, err := recovered(err)
	if err != nil {
		return nil, LogOutput{}, err
	}
	if input.Last > 0 && len(commits) > input.Last {
		commits = commits[len(commits)-input.Last:]
	}
	return nil, LogOutput{Count: len(commits), Commits: toCommitEntries(commits), Warnings: warnings}, nil
}

// --- branches ---

// BranchesInput is the input for the branches tool (no parameters).
type BranchesInput struct{}

// BranchesOutput is the output for the branches tool.
type BranchesOutput struct {
	Current  string            `json:"current"`
	Branches []repo.BranchInfo `json:"branches"`
	Warnings []string          `json:"warnings,omitempty"`
}

func (t *toolset) handleBranches(_ context.Context, _ *mcp.CallToolRequest, _ BranchesInput) (*mcp.CallToolResult, BranchesOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	infos, err := t.repo.Branches()
	warnings, err := recovered(err)
	if err != nil {
		return nil, BranchesOutput{}, err
	}
	out := BranchesOutput{Branches: infos, Warnings: warnings}
	for _, info := range infos {
		if info.Current {
			out.Current = info.Name
		}
	}
	return nil, out, nil
}

// --- tags ---

// TagsInput is the input for the tags tool (no parameters).
type TagsInput struct{}

// TagEntry is one tag on the current branch.
type TagEntry struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Version string `json:"version"`
}

// TagsOutput is the output for the tags tool.
type TagsOutput struct {
	Tags     []TagEntry `json:"tags"`
	Warnings []string   `json:"warnings,omitempty"`
}

func (t *toolset) handleTags(_ context.Context, _ *mcp.CallToolRequest, _ TagsInput) (*mcp.CallToolResult, TagsOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tags, err := t.repo.Tags()
	warnings, err := recovered(err)
	if err != nil {
		return nil, TagsOutput{}, err
	}
	out := TagsOutput{Tags: make([]TagEntry, 0, len(tags)), Warnings: warnings}
	for _, tag := range tags {
		out.Tags = append(out.Tags, TagEntry{Name: tag.Name, File: tag.File, Version: tag.Version.String()})
	}
	return nil, out, nil
}

// --- diff ---

// DiffInput is the input for the diff tool.
type DiffInput struct {
	File string `json:"file"         jsonschema:"tracked file name"`
	From string `json:"from"         jsonschema:"version or tag for the old side"`
	To   string `json:"to,omitempty" jsonschema:"version or tag for the new side; omit for the working copy"`
}

// DiffOutput is the output for the diff tool.
type DiffOutput struct {
	Diff      string `json:"diff"      jsonschema:"unified diff text"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Identical bool   `json:"identical"`
}

func (t *toolset) handleDiff(_ context.Context, _ *mcp.CallToolRequest, input DiffInput) (*mcp.CallToolResult, DiffOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from, err := t.resolve(input.File, input.From)
	if err != nil {
		return nil, DiffOutput{}, err
	}
	var result *diff.Result
	if input.To == "" {
		result, err = t.repo.DiffWorking(input.File, from)
	} else {
		var to version.Number
		if to, err = t.resolve(input.File, input.To); err != nil {
			return nil, DiffOutput{}, err
		}
		result, err = t.repo.Diff(input.File, from, to)
	}
	if err != nil {
		return nil, DiffOutput{}, err
	}
	return nil, DiffOutput{
		Diff:      result.String(),
		Additions: result.Stats.Additions,
		Deletions: result.Stats.Deletions,
		Identical: result.Identical(),
	}, nil
}

// --- metrics ---

// MetricsInput is the input for the metrics tool.
type MetricsInput struct {
	File string `json:"file" jsonschema:"tracked file name"`
	From string `json:"from" jsonschema:"version or tag for the old side"`
	To   string `json:"to"   jsonschema:"version or tag for the new side"`
}

func (t *toolset) handleMetrics(_ context.Context, _ *mcp.CallToolRequest, input MetricsInput) (*mcp.CallToolResult, diff.Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from, err := t.resolve(input.File, input.From)
	if err != nil {
		return nil, diff.Stats{}, err
	}
	to, err := t.resolve(input.File, input.To)
	if err != nil {
		return nil, diff.Stats{}, err
	}
	stats, err := t.repo.Metrics(input.File, from, to)
	if err != nil {
		return nil, diff.Stats{}, err
	}
	return nil, stats, nil
}

// --- commit ---

// CommitInput is the input for the commit tool.
type CommitInput struct {
	Path    string `json:"path"              jsonschema:"working file to commit"`
	Version string `json:"version,omitempty" jsonschema:"explicit version; must be consecutive after the latest"`
}

// CommitOutput is the output for the commit tool.
type CommitOutput struct {
	Branch   string   `json:"branch"`
	File     string   `json:"file"`
	Status   string   `json:"status"             jsonschema:"committed or unchanged"`
	Version  string   `json:"version"`
	Previous string   `json:"previous,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (t *toolset) handleCommit(_ context.Context, _ *mcp.CallToolRequest, input CommitInput) (*mcp.CallToolResult, CommitOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if input.Path == "" {
		return nil, CommitOutput{}, errors.New("path is required")
	}
	var opts repo.CommitOptions
	if input.Version != "" {
		v, err := version.Parse(input.Version)
		if err != nil {
			return nil, CommitOutput{}, err
		}
		opts.Version = &v
	}
	result, err := t.repo.Commit(input.Path, opts)
	if err != nil {
		return nil, CommitOutput{}, err
	}
	return nil, CommitOutput{
		Branch:   result.Branch,
		File:     result.File,
		Status:   string(result.Status),
		Version:  result.Version.String(),
		Previous: versionString(result.Previous),
		Warnings: result.Warnings,
	}, nil
}

func (t *toolset) resolve(file, ref string) (version.Number, error) {
	if file == "" {
		return version.Number{}, errors.New("file is required")
	}
	if ref == "" {
		return version.Number{}, fmt.Errorf("a version or tag is required for %s", file)
	}
	return t.repo.ResolveVersion(file, ref)
}
