package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/omr-grader/internal/model"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Grid.NumQuestions() != 100 {
		t.Errorf("NumQuestions() = %d, want 100", cfg.Grid.NumQuestions())
	}
	if cfg.Classify.FillThreshold != DefaultFillThreshold {
		t.Errorf("FillThreshold = %v, want %v", cfg.Classify.FillThreshold, DefaultFillThreshold)
	}
	if cfg.Grid.Strategy != model.StrategyFixedGrid {
		t.Errorf("Strategy = %q, want %q", cfg.Grid.Strategy, model.StrategyFixedGrid)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero fill threshold", func(c *Config) { c.Classify.FillThreshold = 0 }, ErrInvalidFillThreshold},
		{"fill threshold one", func(c *Config) { c.Classify.FillThreshold = 1 }, ErrInvalidFillThreshold},
		{"negative ring inset", func(c *Config) { c.Classify.RingInset = -0.1 }, ErrInvalidRingInset},
		{"ring inset one", func(c *Config) { c.Classify.RingInset = 1 }, ErrInvalidRingInset},
		{"negative width", func(c *Config) { c.Rectify.DesiredWidth = -1 }, ErrInvalidWidth},
		{"canny reversed", func(c *Config) { c.Rectify.CannyLow = 210 }, ErrInvalidCanny},
		{"low gain", func(c *Config) { c.Illumination.MaxGain = 0.5 }, ErrInvalidGain},
		{"even block", func(c *Config) {
			c.Binarize.Method = BinarizeAdaptive
			c.Binarize.AdaptiveBlock = 10
		}, ErrInvalidBlockSize},
		{"unknown binarize", func(c *Config) { c.Binarize.Method = "magic" }, ErrUnknownBinarize},
		{"missing columns", func(c *Config) { c.Locate.ColumnFractions = []float64{0.5} }, ErrColumnFractions},
		{"empty area range", func(c *Config) { c.Locate.MinArea = c.Locate.MaxArea }, ErrInvalidBubbleFilter},
		{"zero concurrency", func(c *Config) { c.Batch.Concurrency = 0 }, ErrInvalidConcurrency},
		{"bad grid", func(c *Config) { c.Grid.Sections = nil }, model.ErrInvalidGrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omr.yaml")
	content := `
grid:
  columns: 2
  rows_per_column: 5
  strategy: contour
  sections:
    - name: Math
      question_start: 1
      question_end: 5
      option_count: 4
    - name: Physics
      question_start: 6
      question_end: 10
      option_count: 5
classify:
  fill_threshold: 0.4
batch:
  sheet_timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
	if cfg.Grid.Strategy != model.StrategyContour {
		t.Errorf("Strategy = %q, want contour", cfg.Grid.Strategy)
	}
	if cfg.Grid.NumQuestions() != 10 {
		t.Errorf("NumQuestions() = %d, want 10", cfg.Grid.NumQuestions())
	}
	if cfg.Classify.FillThreshold != 0.4 {
		t.Errorf("FillThreshold = %v, want 0.4", cfg.Classify.FillThreshold)
	}
	if cfg.Batch.SheetTimeout != 5*time.Second {
		t.Errorf("SheetTimeout = %v, want 5s", cfg.Batch.SheetTimeout)
	}
	// Untouched keys keep defaults.
	if cfg.Rectify.DesiredWidth != DefaultDesiredWidth {
		t.Errorf("DesiredWidth = %d, want %d", cfg.Rectify.DesiredWidth, DefaultDesiredWidth)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadFile() = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load() = %v, want ErrConfigNotFound", err)
	}
}
