// Package main provides the entry point for the rings CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/config"
	"github.com/gorewood/rings/internal/output"
)

// Build info set via ldflags at build time by goreleaser.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// isJSONMode reads the --json persistent flag from the command hierarchy.
func isJSONMode(cmd *cobra.Command) bool {
	flag := cmd.Flags().Lookup("json")
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup("json")
	}
	return flag != nil && flag.Value.String() == "true"
}

// buildVersion returns the full version string including commit and date.
func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	shortCommit := commit
	if len(commit) > 7 {
		shortCommit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, shortCommit, date)
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	err := fang.Execute(context.Background(), cmd, fang.WithVersion(buildVersion()))
	return output.GetExitCode(err)
}

// newRootCmd creates the root command for the rings CLI.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rings",
		Short: "Per-file version control",
		Long: `Rings - per-file version control with branches, tags and a shared exchange directory.

Every commit snapshots one file under .rings/ and gives it a major.minor
version. Branches record which versions they contain, merges adopt files and
commits from another branch, and push/pull publish a branch to a directory
that several people share.

All commands support --json for structured output.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if isJSONMode(cmd) {
				return fail(newPrinter(cmd), output.NewUserError("no command specified. Run 'rings --help' for usage"))
			}
			return cmd.Help()
		},
	}

	// Environment files are applied before any command reads RINGS_* settings.
	// Variables already set in the environment keep their value.
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return fail(newPrinter(cmd), err)
		}
		if err := config.LoadEnvFiles(wd); err != nil {
			newPrinter(cmd).Warn("%v", err)
		}
		return nil
	}

	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("color", output.ColorAuto, "Colorize output: auto, always, never")
	cmd.PersistentFlags().String("log-level", "", "Diagnostic log level on stderr: none, debug, info, warn, error")

	lipgloss.SetHasDarkBackground(true)

	addCommandGroups(cmd)
	addCommands(cmd)

	return cmd
}

func addCommandGroups(cmd *cobra.Command) {
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "query", Title: "Query Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "branch", Title: "Branch Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "sync", Title: "Sync Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "admin", Title: "Admin Commands:"})
}

func addCommands(cmd *cobra.Command) {
	addGroupedCommand(cmd, newCommitCmd(), "core")
	addGroupedCommand(cmd, newCheckoutCmd(), "core")
	addGroupedCommand(cmd, newStatusCmd(), "core")

	addGroupedCommand(cmd, newLogCmd(), "query")
	addGroupedCommand(cmd, newDiffCmd(), "query")
	addGroupedCommand(cmd, newMetricsCmd(), "query")
	addGroupedCommand(cmd, newExportCmd(), "query")

	addGroupedCommand(cmd, newBranchCmd(), "branch")
	addGroupedCommand(cmd, newMergeCmd(), "branch")
	addGroupedCommand(cmd, newTagCmd(), "branch")

	addGroupedCommand(cmd, newPushCmd(), "sync")
	addGroupedCommand(cmd, newPullCmd(), "sync")
	addGroupedCommand(cmd, newRemoteBranchesCmd(), "sync")

	addGroupedCommand(cmd, newInitCmd(), "admin")
	addGroupedCommand(cmd, newVerifyCmd(), "admin")
	addGroupedCommand(cmd, newServeCmd(), "admin")
}

func addGroupedCommand(parent *cobra.Command, child *cobra.Command, groupID string) {
	child.GroupID = groupID
	parent.AddCommand(child)
}
