package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/omr-grader/internal/answerkey"
)

// NewKeyCmd creates the key command group.
func NewKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage answer keys",
		Long: `Manage the answer keys stored in the database.

A key file is either CSV, where every cell of the form "12. - b" sets the
answer of one question, or YAML with a version and an answers mapping.
Importing a key for an existing version replaces it for later evaluations.`,
	}

	cmd.AddCommand(newKeyImportCmd())
	cmd.AddCommand(newKeyListCmd())

	return cmd
}

func newKeyImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an answer key file",
		Example: `  omr key import key.csv --version A
  omr key import key.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runKeyImportCmd,
	}
	cmd.Flags().String("version", "", "Version the key belongs to (required for CSV, overrides the YAML version)")
	return cmd
}

func runKeyImportCmd(cmd *cobra.Command, args []string) error {
	version, err := cmd.Flags().GetString("version")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	key, err := answerkey.ReadFile(args[0], version)
	if err != nil {
		return err
	}
	if key.Version == "" {
		return fmt.Errorf("%s has no version (use --version)", args[0])
	}
	if missing := cfg.Grid.NumQuestions() - len(key.Answers); missing > 0 {
		setupLogger(getVerboseFlag(cmd)).Warn("answer key does not cover every question",
			"version", key.Version, "missing", missing)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.SaveAnswerKey(context.Background(), key, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d answers for version %s\n", len(key.Answers), key.Version)
	return nil
}

func newKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored answer key versions",
		Args:  cobra.NoArgs,
		RunE:  runKeyListCmd,
	}
}

func runKeyListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	versions, err := db.ListVersions(context.Background())
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no answer keys stored")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tQUESTIONS\tUPLOADS\tUPLOADED")
	for _, v := range versions {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", v.Version, v.Questions, v.Uploads, v.UploadedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
