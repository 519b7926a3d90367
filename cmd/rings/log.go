package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newLogCmd() *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "log [file]",
		Short: "Show the commit history of the current branch",
		Long: `Show the commits recorded on the current branch, oldest first.

Examples:
  rings log
  rings log notes.txt --last 5
  rings log --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				return runLog(printer, r, file, last)
			})
		},
	}
	cmd.Flags().IntVarP(&last, "last", "n", 0, "Show only the last N commits")
	return cmd
}

func runLog(printer *output.Printer, r *repo.Repo, file string, last int) error {
	if last < 0 {
		return output.NewUserError("--last must not be negative")
	}
	head, err := r.Head()
	if err != nil {
		return err
	}
	commits, err := r.Log(file)
	if err = recovered(printer, err); err != nil {
		return err
	}
	if last > 0 && len(commits) > last {
		commits = commits[len(commits)-last:]
	}

	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{"branch": head, "count": len(commits), "commits": commits})
	}
	if len(commits) == 0 {
		printer.Println("No commits on " + head)
		return nil
	}
	rows := make([][]string, 0, len(commits))
	for _, c := range commits {
		rows = append(rows, []string{
			c.Version.String(), c.File, c.User,
			c.Timestamp.Local().Format(time.DateTime),
			shortChecksum(c.Checksum),
		})
	}
	printer.Table([]string{"VERSION", "FILE", "USER", "DATE", "CHECKSUM"}, rows)
	printer.Print("\n%d commit(s) on %s\n", len(commits), head)
	return nil
}

func shortChecksum(sum string) string {
	if len(sum) > 8 {
		return sum[:8]
	}
	return sum
}
