package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/report"
	"github.com/ironsheep/omr-grader/internal/store"
)

// NewRootCmd creates the root command for omr.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "omr",
		Short: "Grade multiple-choice answer sheets from photographs",
		Long: `omr grades photographed or scanned multiple-choice answer sheets.

Each sheet is rectified, its bubbles are located and classified, and the
marked answers are scored against the answer key of the sheet's version.
Sheets that could not be graded reliably are flagged for manual review.

Answer keys and results are kept in a SQLite database in the XDG data
directory unless --db is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .omr.yaml in current directory or XDG config dir)")
	cmd.PersistentFlags().String("db", "",
		"Directory of the SQLite database (default: XDG data directory)")

	cmd.AddCommand(NewEvaluateCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewKeyCmd())
	cmd.AddCommand(NewReviewCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// setupLogger creates a text logger on stderr. Stdout carries reports.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the configuration file and applies the --db flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// openStore opens the database in the configured directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(cfg.DBDir, store.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// addReportFlags registers the output flags shared by commands that print
// score records.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("markdown", "m", false, "Output a Markdown review report instead of JSON")
	cmd.Flags().StringP("output", "o", "", "Write the report to the specified file path (creates directories if needed)")
}

// outputFile opens the --output file, creating its directory, or returns
// the command's stdout when no file was given.
func outputFile(cmd *cobra.Command) (io.Writer, func() error, error) {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, nil, err
	}
	if outputPath == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(outputPath) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// reportWriter returns the writer selected by the report flags and a close
// function for the output file.
func reportWriter(cmd *cobra.Command) (report.Writer, func() error, error) {
	markdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, nil, err
	}
	out, closeFn, err := outputFile(cmd)
	if err != nil {
		return nil, nil, err
	}

	if markdown {
		return report.NewMarkdownWriter(out), closeFn, nil
	}
	return report.NewJSONWriter(out, report.WithPrettyPrint()), closeFn, nil
}
