package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/diff"
	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newDiffCmd() *cobra.Command {
	var stat bool
	cmd := &cobra.Command{
		Use:   "diff <file> <from> [to]",
		Short: "Show a unified diff between two versions",
		Long: `Show a unified diff of a file between two versions or tags. Without <to>
the working copy is compared against <from>.

Examples:
  rings diff notes.txt 1.0 1.2
  rings diff notes.txt release
  rings diff notes.txt 1.0 1.1 --stat`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				result, err := computeDiff(r, args)
				if err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(map[string]any{
						"from":      result.From.String(),
						"to":        result.To.String(),
						"diff":      result.String(),
						"additions": result.Stats.Additions,
						"deletions": result.Stats.Deletions,
					})
				}
				if stat {
					printStats(printer, result.Stats)
					return nil
				}
				printer.DiffText(result.String())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&stat, "stat", false, "Print only the addition and deletion counts")
	return cmd
}

func computeDiff(r *repo.Repo, args []string) (*diff.Result, error) {
	file := args[0]
	from, err := r.ResolveVersion(file, args[1])
	if err != nil {
		return nil, err
	}
	if len(args) == 2 {
		return r.DiffWorking(file, from)
	}
	to, err := r.ResolveVersion(file, args[2])
	if err != nil {
		return nil, err
	}
	return r.Diff(file, from, to)
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <file> <from> <to>",
		Short: "Count added and deleted lines between two versions",
		Long: `Count the lines added and deleted between two versions or tags of a file.
The counts match the diff of the same versions.

Examples:
  rings metrics notes.txt 1.0 1.3 --json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				file := args[0]
				from, err := r.ResolveVersion(file, args[1])
				if err != nil {
					return err
				}
				to, err := r.ResolveVersion(file, args[2])
				if err != nil {
					return err
				}
				stats, err := r.Metrics(file, from, to)
				if err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(map[string]any{
						"file":      file,
						"from":      from.String(),
						"to":        to.String(),
						"additions": stats.Additions,
						"deletions": stats.Deletions,
					})
				}
				printStats(printer, stats)
				return nil
			})
		},
	}
}

func printStats(printer *output.Printer, stats diff.Stats) {
	printer.Print("%d addition(s), %d deletion(s)\n", stats.Additions, stats.Deletions)
}
