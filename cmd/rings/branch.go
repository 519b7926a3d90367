package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newBranchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create, switch and list branches",
		Long: `Manage branches. With no subcommand, lists branches.

Examples:
  rings branch create feature
  rings branch switch feature
  rings branch list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInRepo(cmd, runBranchList)
		},
	}
	cmd.AddCommand(newBranchCreateCmd(), newBranchSwitchCmd(), newBranchListCmd())
	return cmd
}

func newBranchCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch from the current one",
		Long: `Create a branch holding a copy of the current branch's files, commits and
tags. The current branch does not change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				base, err := r.Head()
				if err != nil {
					return err
				}
				meta, err := r.CreateBranch(args[0])
				if err = recovered(printer, err); err != nil {
					return err
				}
				data := map[string]any{"branch": meta.Name, "base": base, "files": len(meta.Files)}
				if printer.IsJSON() {
					return printer.WriteJSON(data)
				}
				printer.Print("Created branch %s from %s\n", meta.Name, base)
				return nil
			})
		},
	}
}

func newBranchSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <name>",
		Short: "Make another branch current",
		Long: `Make another branch current. Working files are left as they are; use
checkout to restore a branch's versions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				meta, err := r.SwitchBranch(args[0])
				if err = recovered(printer, err); err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(map[string]any{"branch": meta.Name, "files": len(meta.Files)})
				}
				printer.Print("Switched to branch %s\n", meta.Name)
				return nil
			})
		},
	}
}

func newBranchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInRepo(cmd, runBranchList)
		},
	}
}

func runBranchList(printer *output.Printer, r *repo.Repo) error {
	infos, err := r.Branches()
	if err = recovered(printer, err); err != nil {
		return err
	}
	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{"branches": infos})
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		marker := " "
		if info.Current {
			marker = "*"
		}
		rows = append(rows, []string{
			marker + " " + info.Name,
			strconv.Itoa(info.Files),
			strconv.Itoa(info.Commits),
			strconv.Itoa(info.Tags),
		})
	}
	printer.Table([]string{"  BRANCH", "FILES", "COMMITS", "TAGS"}, rows)
	return nil
}
