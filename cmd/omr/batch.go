package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/omr-grader/internal/model"
	"github.com/ironsheep/omr-grader/internal/pipeline"
)

// imageExtensions lists the file types picked up from directories.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir|image>...",
		Short: "Grade a directory of answer sheets concurrently",
		Long: `Batch grades many answer sheets concurrently and stores the results.

Arguments may be image files or directories; directories contribute every
image file directly inside them. Each sheet is graded under its own timeout,
and a sheet that fails does not stop the others. A sheet already stored under
the same version is not stored twice.

Examples:
  # Grade every scan in a directory with eight workers
  omr batch --version A -j 8 scans/

  # Print a Markdown review report of the run
  omr batch --version A --markdown scans/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBatchCmd,
	}

	addGradingFlags(cmd)
	cmd.Flags().IntP("concurrency", "j", 0, "Number of sheets graded at once (default from configuration)")
	cmd.Flags().DurationP("timeout", "t", 0, "Timeout for each sheet (default from configuration)")
	cmd.Flags().Bool("no-save", false, "Do not store the results in the database")
	addReportFlags(cmd)

	return cmd
}

// runBatchCmd executes the batch command.
func runBatchCmd(cmd *cobra.Command, args []string) error {
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	paths, err := collectImages(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", strings.Join(args, ", "))
	}

	g, err := newGrader(cmd, !noSave)
	if err != nil {
		return err
	}
	defer g.close()

	opts := []pipeline.BatchOption{
		pipeline.WithBatchLogger(g.logger),
		pipeline.WithConcurrency(concurrency),
	}
	if timeout > 0 {
		opts = append(opts, pipeline.WithSheetTimeout(timeout))
	}
	if !noSave {
		opts = append(opts, pipeline.WithRecorder(g.db))
	}
	bp := pipeline.NewBatchProcessor(g.evaluator, opts...)

	inputs := make([]pipeline.SheetInput, len(paths))
	for i, p := range paths {
		inputs[i] = pipeline.SheetInput{Source: p, Version: g.version}
	}

	ctx, cancel := signalContext(g.logger)
	defer cancel()

	summary, err := bp.ProcessBatch(ctx, inputs)
	records := make([]model.ScoreRecord, 0, len(summary.Results))
	for _, res := range summary.Results {
		if res.Record != nil {
			records = append(records, *res.Record)
		}
	}
	if werr := writeRecords(cmd, records); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d sheets failed", summary.Failed, len(inputs))
	}
	return nil
}

// collectImages expands directories into the image files directly inside
// them, sorted by name. Files named explicitly are kept whatever their
// extension.
func collectImages(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	return paths, nil
}
