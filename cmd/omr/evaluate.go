package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/model"
	"github.com/ironsheep/omr-grader/internal/pipeline"
	"github.com/ironsheep/omr-grader/internal/store"
)

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <image>...",
		Short: "Grade one or more answer sheet images",
		Long: `Evaluate grades answer sheet images one after another and prints a score
record for each.

The answer key is looked up in the database by --version unless --key names
a key file. Sheets that cannot be graded reliably are flagged with a reason
instead of failing the command.

Examples:
  # Grade a sheet against stored key version A
  omr evaluate --version A sheet.jpg

  # Grade against a key file without touching the database
  omr evaluate --version A --key key.csv sheet.jpg

  # Store the results and write intermediate images for inspection
  omr evaluate --version A --save --debug-dir debug/ sheet1.jpg sheet2.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEvaluateCmd,
	}

	addGradingFlags(cmd)
	cmd.Flags().Bool("save", false, "Store the results in the database")
	addReportFlags(cmd)

	return cmd
}

// addGradingFlags registers the flags shared by evaluate and batch.
func addGradingFlags(cmd *cobra.Command) {
	cmd.Flags().String("version", "", "Answer key version of the sheets (required)")
	cmd.Flags().StringP("key", "k", "", "Answer key file (.csv, .yaml) to grade against instead of the database")
	cmd.Flags().String("debug-dir", "", "Write rectified, binary and overlay images of every sheet below this directory")
	_ = cmd.MarkFlagRequired("version")
}

// grader bundles what a grading command needs; close releases the database.
type grader struct {
	cfg       *config.Config
	logger    *slog.Logger
	evaluator *pipeline.Evaluator
	db        *store.Store
	version   string
}

func (g *grader) close() {
	if g.db != nil {
		if err := g.db.Close(); err != nil {
			g.logger.Warn("failed to close database", "error", err)
		}
	}
}

// newGrader loads the configuration, selects the key source and builds the
// evaluator. The database is opened when keys come from it or needDB is set.
func newGrader(cmd *cobra.Command, needDB bool) (*grader, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(getVerboseFlag(cmd))
	slog.SetDefault(logger)

	g := &grader{cfg: cfg, logger: logger}
	if g.version, err = cmd.Flags().GetString("version"); err != nil {
		return nil, err
	}
	keyPath, err := cmd.Flags().GetString("key")
	if err != nil {
		return nil, err
	}
	debugDir, err := cmd.Flags().GetString("debug-dir")
	if err != nil {
		return nil, err
	}
	if debugDir != "" {
		cfg.DebugDir = debugDir
	}

	var keys pipeline.KeyLoader
	if keyPath != "" {
		key, err := answerkey.ReadFile(keyPath, g.version)
		if err != nil {
			return nil, err
		}
		keys = pipeline.StaticKeys{g.version: key}
	}
	if keyPath == "" || needDB {
		if g.db, err = openStore(cfg); err != nil {
			return nil, err
		}
		logger.Debug("database opened", "path", g.db.Path())
		if keys == nil {
			keys = g.db
		}
	}

	g.evaluator = pipeline.NewEvaluator(*cfg, keys, pipeline.WithLogger(logger))
	return g, nil
}

// runEvaluateCmd executes the evaluate command.
func runEvaluateCmd(cmd *cobra.Command, args []string) error {
	save, err := cmd.Flags().GetBool("save")
	if err != nil {
		return err
	}
	g, err := newGrader(cmd, save)
	if err != nil {
		return err
	}
	defer g.close()

	ctx, cancel := signalContext(g.logger)
	defer cancel()

	records, err := evaluateFiles(ctx, g, args, save)
	if werr := writeRecords(cmd, records); werr != nil {
		return werr
	}
	return err
}

// evaluateFiles grades paths in order. Unreadable files are reported and
// skipped; an ended context stops the run.
func evaluateFiles(ctx context.Context, g *grader, paths []string, save bool) ([]model.ScoreRecord, error) {
	records := make([]model.ScoreRecord, 0, len(paths))
	var failed []error
	for _, path := range paths {
		rec, err := g.evaluator.Evaluate(ctx, pipeline.SheetInput{Source: path, Version: g.version})
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			g.logger.Error("failed to evaluate sheet", "source", path, "error", err)
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if save {
			if _, err := g.db.InsertResult(ctx, rec); err != nil {
				return records, fmt.Errorf("failed to store result: %w", err)
			}
		}
		records = append(records, *rec)
	}
	return records, errors.Join(failed...)
}

// writeRecords renders records with the writer selected by cmd's flags.
func writeRecords(cmd *cobra.Command, records []model.ScoreRecord) error {
	w, closeOut, err := reportWriter(cmd)
	if err != nil {
		return err
	}
	if _, err := w.Write(records); err != nil {
		_ = closeOut()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeOut()
}
