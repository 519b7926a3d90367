package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/config"
	"github.com/gorewood/rings/internal/repo"
)

func newInitCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a repository in the current directory",
		Long: `Create .rings/ in the current directory with an empty main branch.

The snapshot scope is fixed at init time:
  shared  one version namespace per file, shared by every branch (default)
  branch  each branch keeps its own snapshots and may reuse version numbers

Examples:
  rings init
  rings init --scope branch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, scope)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "Snapshot scope: shared or branch (default from config)")
	return cmd
}

func runInit(cmd *cobra.Command, scope string) error {
	printer := newPrinter(cmd)

	wd, err := os.Getwd()
	if err != nil {
		return fail(printer, err)
	}
	settings, logger, err := loadSettings(cmd, wd)
	if err != nil {
		return fail(printer, err)
	}
	defer func() { _ = logger.Sync() }()
	if scope != "" {
		settings.SnapshotScope = config.Scope(scope)
	}

	r, err := repo.Init(wd, repo.Options{Settings: settings, Logger: logger})
	if err != nil {
		return fail(printer, err)
	}

	data := map[string]any{
		"dir":    r.Dir(),
		"branch": repo.DefaultBranch,
		"scope":  string(r.Settings().SnapshotScope),
	}
	if printer.IsJSON() {
		return printer.WriteJSON(data)
	}
	printer.Print("Initialized rings repository in %s (%s scope)\n", r.Dir(), data["scope"])
	return nil
}
