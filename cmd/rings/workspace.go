package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/config"
	"github.com/gorewood/rings/internal/logging"
	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

// useColor resolves --color against the command's stdout.
func useColor(cmd *cobra.Command) bool {
	mode := output.ColorAuto
	if flag := cmd.Root().PersistentFlags().Lookup("color"); flag != nil {
		mode = flag.Value.String()
	}
	return output.ResolveColorMode(mode, output.IsTTY(cmd.OutOrStdout()))
}

func newPrinter(cmd *cobra.Command) *output.Printer {
	return output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd)).
		WithStderr(cmd.ErrOrStderr())
}

// fail prints err with its exit code and returns the classified error.
func fail(printer *output.Printer, err error) error {
	classified := output.Classify(err)
	printer.Error(classified)
	return classified
}

// recovered prints a recovered-state warning and swallows it. Other errors
// pass through unchanged.
func recovered(printer *output.Printer, err error) error {
	if err != nil && branch.IsWarning(err) {
		printer.Warn("%v", err)
		return nil
	}
	return err
}

// workspace is an opened repository plus the logger that must be flushed.
type workspace struct {
	repo   *repo.Repo
	logger *zap.Logger
}

func (w *workspace) close() {
	_ = w.logger.Sync()
}

// loadSettings layers configuration for workDir and applies --log-level.
func loadSettings(cmd *cobra.Command, workDir string) (config.Settings, *zap.Logger, error) {
	settings, err := config.Load(filepath.Join(workDir, repo.DirName))
	if err != nil {
		return settings, nil, err
	}
	if flag := cmd.Root().PersistentFlags().Lookup("log-level"); flag != nil && flag.Changed {
		settings.LogLevel = flag.Value.String()
	}
	logger, err := logging.New(settings.LogLevel)
	if err != nil {
		return settings, nil, fmt.Errorf("%w: %w", config.ErrInvalidSettings, err)
	}
	return settings, logger, nil
}

// openWorkspace opens the repository in the current directory.
func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	settings, logger, err := loadSettings(cmd, wd)
	if err != nil {
		return nil, err
	}
	r, err := repo.Open(wd, repo.Options{Settings: settings, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &workspace{repo: r, logger: logger}, nil
}

// runInRepo opens the repository and runs fn, printing any failure.
func runInRepo(cmd *cobra.Command, fn func(*output.Printer, *repo.Repo) error) error {
	printer := newPrinter(cmd)
	ws, err := openWorkspace(cmd)
	if err != nil {
		return fail(printer, err)
	}
	defer ws.close()
	if err := fn(printer, ws.repo); err != nil {
		return fail(printer, err)
	}
	return nil
}
