package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [exchange-dir]",
		Short: "Publish the current branch to an exchange directory",
		Long: `Publish the current branch and its snapshots to an exchange directory.

The remote record of the branch is replaced. Commits that only the remote had
are reported as discarded; pull first to keep them. The exchange is locked
while the push runs. Without an argument the configured remote is used.

Examples:
  rings push /mnt/shared/project
  RINGS_REMOTE=/mnt/shared/project rings push`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				report, err := r.Push(cmd.Context(), optionalArg(args))
				if err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(report)
				}
				printer.Print("Pushed %s to %s: %d commit(s), %d snapshot(s) copied\n",
					report.Branch, report.Remote, report.Commits, report.SnapshotsCopied)
				if report.Discarded > 0 {
					printer.Warn("%d remote commit(s) on %s were not in the pushed branch", report.Discarded, report.Branch)
				}
				return nil
			})
		},
	}
}

func newPullCmd() *cobra.Command {
	var takeSource []string
	var prefer string
	cmd := &cobra.Command{
		Use:   "pull [exchange-dir]",
		Short: "Merge the exchange's copy of the current branch",
		Long: `Merge the exchange directory's record of the current branch into it, copying
the snapshots of adopted commits. Conflicts are resolved as in merge.

Examples:
  rings pull /mnt/shared/project
  rings pull --prefer source`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				resolve, err := mergeResolver(prefer, takeSource)
				if err != nil {
					return err
				}
				report, err := r.Pull(cmd.Context(), optionalArg(args), branch.MergeOptions{Resolve: resolve})
				if err = recovered(printer, err); err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(report)
				}
				printer.Print("Pulled %s from %s: %d snapshot(s) copied\n", report.Branch, report.Remote, report.SnapshotsCopied)
				return printMergeReport(printer, report.Merge)
			})
		},
	}
	cmd.Flags().StringSliceVar(&takeSource, "take-source", nil, "Resolve conflicts on these files in favour of the remote")
	cmd.Flags().StringVar(&prefer, "prefer", "destination", "Default conflict resolution: destination or source")
	return cmd
}

// newRemoteBranchesCmd lists what an exchange directory holds.
func newRemoteBranchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remote-branches [exchange-dir]",
		Short: "List branches published to an exchange directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				names, err := r.RemoteBranches(cmd.Context(), optionalArg(args))
				if err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(map[string]any{"branches": names})
				}
				for _, name := range names {
					printer.Println(name)
				}
				return nil
			})
		},
	}
}
