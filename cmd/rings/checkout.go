package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newCheckoutCmd() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "checkout <file> <version|tag>",
		Short: "Restore a committed version of a file",
		Long: `Write the snapshot of a file at a version (or tag) back to disk.

The file is written into the working directory unless --dest names another
directory. Existing files are overwritten.

Examples:
  rings checkout notes.txt 1.0
  rings checkout notes.txt release --dest /tmp/review`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				v, err := r.ResolveVersion(args[0], args[1])
				if err != nil {
					return err
				}
				result, err := r.Checkout(args[0], v, dest)
				if err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(result)
				}
				printer.Print("Restored %s %s to %s (%d bytes)\n", result.File, result.Version, result.Path, result.Bytes)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "Directory to write the file into")
	return cmd
}
