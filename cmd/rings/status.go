package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [paths...]",
		Short: "Show which files changed since their last commit",
		Long: `Compare working files with their latest snapshots on the current branch.

With no paths every tracked file is checked. States:
  unchanged  matches the latest snapshot
  modified   differs from the latest snapshot
  untracked  never committed on this branch
  missing    not present in the working directory
  unknown    the latest snapshot could not be read

Examples:
  rings status
  rings status notes.txt draft.md --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				return runStatus(printer, r, args)
			})
		},
	}
}

func runStatus(printer *output.Printer, r *repo.Repo, paths []string) error {
	head, err := r.Head()
	if err != nil {
		return err
	}
	statuses, err := r.Status(paths)
	if err = recovered(printer, err); err != nil {
		return err
	}
	scope := string(r.Settings().SnapshotScope)

	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{"branch": head, "scope": scope, "files": statuses})
	}

	printer.Print("On branch %s (%s scope)\n", head, scope)
	if len(statuses) == 0 {
		printer.Println("No tracked files")
		return nil
	}
	printer.Println()
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		latest := "-"
		if s.Version != nil {
			latest = s.Version.String()
		}
		rows = append(rows, []string{s.File, string(s.State), latest})
	}
	printer.Table([]string{"FILE", "STATE", "VERSION"}, rows)
	return nil
}
