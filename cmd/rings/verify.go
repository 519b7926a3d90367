package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every branch against its snapshots",
		Long: `Check that every commit on every branch has a readable snapshot whose
checksum matches the recorded one, and that every tag points at a commit.

Exits with code 2 when a problem is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInRepo(cmd, runVerify)
		},
	}
}

func runVerify(printer *output.Printer, r *repo.Repo) error {
	report, err := r.Verify()
	if err != nil {
		return err
	}
	if printer.IsJSON() {
		if err := printer.WriteJSON(report); err != nil {
			return err
		}
	} else {
		printer.Print("Checked %d snapshot(s) on %d branch(es)\n", report.Checked, report.Branches)
		printProblems(printer, "Missing snapshots", report.Missing)
		printProblems(printer, "Unreadable snapshots", report.Corrupt)
		printProblems(printer, "Checksum mismatches", report.Mismatch)
		printProblems(printer, "Dangling tags", report.Dangling)
		if len(report.Unreadable) > 0 {
			printer.Section("Unreadable branch records")
			for _, name := range report.Unreadable {
				printer.Println("  " + name)
			}
		}
	}
	if !report.OK() {
		return &output.ExitError{Code: output.ExitSystemError, Message: "verification found problems"}
	}
	return nil
}

func printProblems(printer *output.Printer, title string, problems []repo.Problem) {
	if len(problems) == 0 {
		return
	}
	printer.Section(title)
	rows := make([][]string, 0, len(problems))
	for _, p := range problems {
		rows = append(rows, []string{p.Branch, p.File, p.Version.String(), p.Reason})
	}
	printer.Table([]string{"BRANCH", "FILE", "VERSION", "REASON"}, rows)
}
