package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
	ringversion "github.com/gorewood/rings/internal/version"
)

func newCommitCmd() *cobra.Command {
	var explicit string
	cmd := &cobra.Command{
		Use:   "commit <path>",
		Short: "Snapshot a file on the current branch",
		Long: `Snapshot a working file and record it on the current branch.

A file that matches its latest snapshot is reported unchanged and nothing is
written. Otherwise the next minor version is used, or --version when given.
The first commit of a file may use any version. After that an explicit
version must be the next minor of the latest one (1.3 after 1.2); major
versions are only chosen on the first commit.

Examples:
  rings commit notes.txt
  rings commit draft.md --version 2.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				return runCommit(printer, r, args[0], explicit)
			})
		},
	}
	cmd.Flags().StringVar(&explicit, "version", "", "Version to commit as; any version on the first commit, else the next minor")
	return cmd
}

func runCommit(printer *output.Printer, r *repo.Repo, path, explicit string) error {
	var opts repo.CommitOptions
	if explicit != "" {
		v, err := ringversion.Parse(explicit)
		if err != nil {
			return err
		}
		opts.Version = &v
	}

	result, err := r.Commit(path, opts)
	if err != nil {
		return err
	}
	if printer.IsJSON() {
		return printer.WriteJSON(result)
	}

	printer.Warnings(result.Warnings)
	if result.Status == repo.Unchanged {
		printer.Print("%s unchanged at %s\n", result.File, result.Version)
		return nil
	}
	if result.Previous != nil {
		printer.Print("Committed %s %s (was %s) on %s\n", result.File, result.Version, result.Previous, result.Branch)
		return nil
	}
	printer.Print("Committed %s %s on %s\n", result.File, result.Version, result.Branch)
	return nil
}
