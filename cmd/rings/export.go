package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/export"
	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newExportCmd() *cobra.Command {
	var format, outDir string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a file's history as markdown or JSON",
		Long: `Export every commit of a file on the current branch with its author, date,
tags and the lines changed since the previous version.

Without --out the document is written to stdout.

Examples:
  rings export notes.txt
  rings export notes.txt --format json --out docs/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				return runExport(printer, r, args[0], format, outDir)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown or json")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write <file>.history.<ext> into")
	return cmd
}

func runExport(printer *output.Printer, r *repo.Repo, file, format, outDir string) error {
	if printer.IsJSON() {
		format = "json"
	}
	if format != "markdown" && format != "json" {
		return output.NewUserError("--format must be markdown or json, not " + format)
	}
	history, err := r.History(file)
	if err != nil {
		return err
	}

	if outDir != "" {
		write := export.WriteMarkdownFile
		if format == "json" {
			write = export.WriteJSONFile
		}
		path, err := write(history, outDir)
		if err != nil {
			return err
		}
		if printer.IsJSON() {
			return printer.WriteJSON(map[string]any{"file": file, "path": path, "revisions": len(history.Revisions)})
		}
		printer.Print("Wrote %s\n", path)
		return nil
	}

	if format == "json" {
		return printer.WriteJSON(history)
	}
	printer.Print("%s", export.FormatMarkdown(history))
	return nil
}
