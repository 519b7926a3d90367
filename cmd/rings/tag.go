package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Name committed versions",
		Long: `Tags are immutable names for one file at one version on the current branch.
A tag name can be used wherever a version is expected.

Examples:
  rings tag create release notes.txt 1.2
  rings tag list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInRepo(cmd, runTagList)
		},
	}
	cmd.AddCommand(newTagCreateCmd(), newTagListCmd())
	return cmd
}

func newTagCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <file> <version>",
		Short: "Tag a committed version of a file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInRepo(cmd, func(printer *output.Printer, r *repo.Repo) error {
				v, err := r.ResolveVersion(args[1], args[2])
				if err != nil {
					return err
				}
				tag, err := r.CreateTag(args[0], args[1], v)
				if err = recovered(printer, err); err != nil {
					return err
				}
				if printer.IsJSON() {
					return printer.WriteJSON(tag)
				}
				printer.Print("Tagged %s %s as %s\n", tag.File, tag.Version, tag.Name)
				return nil
			})
		},
	}
}

func newTagListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags on the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInRepo(cmd, runTagList)
		},
	}
}

func runTagList(printer *output.Printer, r *repo.Repo) error {
	tags, err := r.Tags()
	if err = recovered(printer, err); err != nil {
		return err
	}
	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{"tags": tags})
	}
	if len(tags) == 0 {
		printer.Println("No tags")
		return nil
	}
	rows := make([][]string, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, []string{tag.Name, tag.File, tag.Version.String()})
	}
	printer.Table([]string{"TAG", "FILE", "VERSION"}, rows)
	return nil
}
