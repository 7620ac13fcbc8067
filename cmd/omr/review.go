package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ironsheep/omr-grader/internal/report"
	"github.com/ironsheep/omr-grader/internal/store"
)

// NewReviewCmd creates the review command.
func NewReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Report stored sheets that need manual review",
		Long: `Review prints a Markdown report of the stored results: totals, section
averages and every flagged sheet with the reasons it was flagged.

Examples:
  # Flagged sheets of all versions
  omr review

  # Every stored sheet of version A, written to a file
  omr review --all --version A -o review.md`,
		Args: cobra.NoArgs,
		RunE: runReviewCmd,
	}

	cmd.Flags().Bool("all", false, "Include sheets that were not flagged")
	cmd.Flags().String("version", "", "Only sheets of this answer key version")
	cmd.Flags().IntP("limit", "n", 0, "Maximum number of sheets (newest first)")
	cmd.Flags().Bool("json", false, "Output the records as JSON instead of Markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to the specified file path (creates directories if needed)")

	return cmd
}

func runReviewCmd(cmd *cobra.Command, _ []string) error {
	var (
		f   store.ResultFilter
		all bool
		err error
	)
	if all, err = cmd.Flags().GetBool("all"); err != nil {
		return err
	}
	if f.Version, err = cmd.Flags().GetString("version"); err != nil {
		return err
	}
	if f.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	f.FlaggedOnly = !all

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListResults(context.Background(), f)
	if err != nil {
		return err
	}

	out, closeOut, err := outputFile(cmd)
	if err != nil {
		return err
	}
	var w report.Writer = report.NewMarkdownWriter(out)
	if asJSON {
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	}
	if _, err := w.Write(records); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}
