package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newMergeCmd() *cobra.Command {
	var takeSource []string
	var prefer string
	cmd := &cobra.Command{
		Use:   "merge <source>",
		Short: "Merge another branch into the current one",
		Long: `Merge the files, commits and tags of <source> into the current branch.

Files the current branch lacks are added with their history. A file whose
version differs is a conflict and keeps the current branch's version unless
--take-source names it or --prefer source is given. Taking the source version
only succeeds when the source continues this branch's history; otherwise the
conflict is reported as forced and the current version is kept.

Examples:
  rings merge feature
  rings merge feature --take-source notes.txt
  rings merge feature --prefer source`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				resolve, err := mergeResolver(prefer, takeSource)
				if err != nil {
					return err
				}
				report, err := r.MergeBranch(args[0], branch.MergeOptions{Resolve: resolve})
				if err = recovered(printer, err); err != nil {
					return err
				}
				return printMergeReport(printer, report)
			})
		},
	}
	cmd.Flags().StringSliceVar(&takeSource, "take-source", nil, "Resolve conflicts on these files in favour of the source")
	cmd.Flags().StringVar(&prefer, "prefer", "destination", "Default conflict resolution: destination or source")
	return cmd
}

// mergeResolver builds the conflict resolver for --prefer and --take-source.
func mergeResolver(prefer string, takeSource []string) (branch.Resolver, error) {
	switch prefer {
	case "source":
		return branch.PreferSource, nil
	case "destination", "":
		if len(takeSource) > 0 {
			return branch.TakeSourceFor(takeSource...), nil
		}
		return nil, nil
	default:
		return nil, output.NewUserError("--prefer must be source or destination, not " + prefer)
	}
}

func printMergeReport(printer *output.Printer, report *branch.MergeReport) error {
	if printer.IsJSON() {
		return printer.WriteJSON(report)
	}
	printer.Print("Merged %s into %s: %d added, %d updated, %d conflict(s)\n",
		report.Source, report.Destination, len(report.Added), len(report.Updated), len(report.Conflicts))
	if !report.Changed() && len(report.Conflicts) == 0 {
		printer.Println("Already up to date")
		return nil
	}
	printFileChanges(printer, "Added", report.Added)
	printFileChanges(printer, "Updated", report.Updated)

	if len(report.Conflicts) > 0 {
		printer.Section("Conflicts")
		rows := make([][]string, 0, len(report.Conflicts))
		for _, c := range report.Conflicts {
			kept := c.Kept
			if c.Forced {
				kept += " (forced)"
			}
			rows = append(rows, []string{c.File, c.Source.String(), c.Destination.String(), kept})
		}
		printer.Table([]string{"FILE", "SOURCE", "DESTINATION", "KEPT"}, rows)
	}

	if len(report.TagsAdded)+len(report.TagsSkipped)+len(report.TagsDangling) > 0 {
		printer.Section("Tags")
		printTagList(printer, "added", report.TagsAdded)
		printTagList(printer, "skipped", report.TagsSkipped)
		printTagList(printer, "dangling", report.TagsDangling)
	}
	return nil
}

func printFileChanges(printer *output.Printer, title string, changes []branch.FileChange) {
	if len(changes) == 0 {
		return
	}
	printer.Section(title)
	for _, change := range changes {
		printer.Print("  %s %s\n", change.File, change.Version)
	}
}

func printTagList(printer *output.Printer, label string, names []string) {
	if len(names) > 0 {
		printer.KeyValue(label, strings.Join(names, ", "))
	}
}
