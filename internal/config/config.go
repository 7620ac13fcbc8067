package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/ironsheep/omr-grader/internal/model"
)

// AppName is the application name used for XDG directory paths.
const AppName = "omr-grader"

// Rectification defaults.
const (
	// DefaultDesiredWidth is the working width edge detection runs at. Larger
	// photographs are downscaled to it; the warp samples the original.
	DefaultDesiredWidth = 1400

	// DefaultCannyLow and DefaultCannyHigh are the hysteresis thresholds used
	// to find the sheet outline.
	DefaultCannyLow  = 75
	DefaultCannyHigh = 200

	// DefaultCandidateContours is how many of the largest contours are tried
	// as the sheet outline.
	DefaultCandidateContours = 5

	// DefaultApproxEpsilon is the polygon approximation tolerance as a
	// fraction of the contour perimeter.
	DefaultApproxEpsilon = 0.02

	// DefaultEdgeDilation closes gaps in the edge map before contours are
	// traced.
	DefaultEdgeDilation = 1.0

	// DefaultMinQuadArea rejects quadrilaterals covering less than this
	// fraction of the working image.
	DefaultMinQuadArea = 0.05
)

// Illumination defaults.
const (
	// DefaultValueThreshold is the mean HSV value (0-255) below which a sheet
	// is considered dark and brightened.
	DefaultValueThreshold = 100.0

	// DefaultMaxGain caps the multiplicative brightening gain.
	DefaultMaxGain = 2.0

	// DefaultValueOffset is added to the value channel after the gain.
	DefaultValueOffset = 10.0

	// DefaultClipLimit and DefaultTiles configure contrast-limited histogram
	// equalization of dark sheets.
	DefaultClipLimit = 3.0
	DefaultTiles     = 8
)

// Binarization and location defaults.
const (
	DefaultOtsuOffset     = 15
	DefaultAdaptiveBlock  = 11
	DefaultAdaptiveC      = 2
	DefaultOpeningRadius  = 0.0
	DefaultMinBubbleArea  = 120.0
	DefaultMaxBubbleArea  = 2500.0
	DefaultMinPerimeter   = 25.0
	DefaultMinCircularity = 0.7
	DefaultMaxCircularity = 1.2
	DefaultMinSolidity    = 0.85

	// Fixed grid geometry as fractions of the rectified sheet. Rows span the
	// full height between the margins.
	DefaultBubbleWidthFraction   = 0.04
	DefaultOptionSpacingFraction = 0.045
	DefaultTopMarginFraction     = 0.0
	DefaultBottomMarginFraction  = 0.0
)

// Classification and flagging defaults.
const (
	// DefaultFillThreshold is the ink fraction a bubble must exceed to count
	// as filled. The comparison is strict.
	DefaultFillThreshold = 0.35

	// DefaultRingInset is the share of a contour bubble's radius, measured
	// in from its outline, that fill measurement ignores. It keeps the
	// printed ring out of the ratio.
	DefaultRingInset = 0.5

	// DefaultMinBubbleDensity is the detected/expected bubble ratio below which
	// an unrectified sheet is flagged as low confidence.
	DefaultMinBubbleDensity = 0.5

	// DefaultIncompleteFraction flags a sheet when more than this fraction of
	// questions is unanswered. Zero flags any unanswered question.
	DefaultIncompleteFraction = 0.0
)

// Batch defaults.
const (
	DefaultConcurrency  = 4
	DefaultSheetTimeout = 30 * time.Second
)

// DefaultSections are the subjects printed on the standard 100 question sheet.
var DefaultSections = []string{"Python", "EDA", "SQL", "POWER BI", "Statistics"}

// BinarizeMethod selects how grayscale sheets are thresholded.
type BinarizeMethod string

const (
	BinarizeOtsu     BinarizeMethod = "otsu"
	BinarizeAdaptive BinarizeMethod = "adaptive"
)

// Rectify configures the document rectifier.
type Rectify struct {
	DesiredWidth      int     `yaml:"desired_width"`
	CannyLow          int     `yaml:"canny_low"`
	CannyHigh         int     `yaml:"canny_high"`
	CandidateContours int     `yaml:"candidate_contours"`
	EdgeDilation      float64 `yaml:"edge_dilation"`
	ApproxEpsilon     float64 `yaml:"approx_epsilon"`
	MinQuadArea       float64 `yaml:"min_quad_area"`
}

// Illumination configures brightness normalization.
type Illumination struct {
	ValueThreshold float64 `yaml:"value_threshold"`
	MaxGain        float64 `yaml:"max_gain"`
	Offset         float64 `yaml:"offset"`
	Equalize       bool    `yaml:"equalize"`
	EqualizeBelow  float64 `yaml:"equalize_below"`
	ClipLimit      float64 `yaml:"clip_limit"`
	Tiles          int     `yaml:"tiles"`
}

// Binarize configures conversion of the normalized sheet to ink/paper.
type Binarize struct {
	Method        BinarizeMethod `yaml:"method"`
	OtsuOffset    int            `yaml:"otsu_offset"`
	AdaptiveBlock int            `yaml:"adaptive_block"`
	AdaptiveC     int            `yaml:"adaptive_c"`
	BlurRadius    float64        `yaml:"blur_radius"`
}

// Locate configures both bubble location strategies.
type Locate struct {
	// Fixed grid geometry, as fractions of the rectified sheet size.
	ColumnFractions       []float64 `yaml:"column_fractions"`
	BubbleWidthFraction   float64   `yaml:"bubble_width_fraction"`
	OptionSpacingFraction float64   `yaml:"option_spacing_fraction"`
	TopMarginFraction     float64   `yaml:"top_margin_fraction"`
	BottomMarginFraction  float64   `yaml:"bottom_margin_fraction"`

	// Contour filters.
	OpeningRadius  float64 `yaml:"opening_radius"`
	MinArea        float64 `yaml:"min_area"`
	MaxArea        float64 `yaml:"max_area"`
	MinPerimeter   float64 `yaml:"min_perimeter"`
	MinCircularity float64 `yaml:"min_circularity"`
	MaxCircularity float64 `yaml:"max_circularity"`
	MinSolidity    float64 `yaml:"min_solidity"`

	// FallbackToGrid switches to the fixed grid when contour location finds nothing.
	FallbackToGrid bool `yaml:"fallback_to_grid"`
}

// Classify configures the fill classifier.
type Classify struct {
	FillThreshold float64 `yaml:"fill_threshold"`
	RingInset     float64 `yaml:"ring_inset"`
}

// Flags configures the anomaly rules.
type Flags struct {
	MinBubbleDensity   float64 `yaml:"min_bubble_density"`
	IncompleteFraction float64 `yaml:"incomplete_fraction"`
}

// Batch configures concurrent evaluation.
type Batch struct {
	Concurrency  int           `yaml:"concurrency"`
	SheetTimeout time.Duration `yaml:"sheet_timeout"`
}

// Config holds every tunable of the grader.
//
// A Config is built once, validated, and then passed by value into each
// stage. Stages never modify it.
type Config struct {
	Grid         model.GridSpec `yaml:"grid"`
	Rectify      Rectify        `yaml:"rectify"`
	Illumination Illumination   `yaml:"illumination"`
	Binarize     Binarize       `yaml:"binarize"`
	Locate       Locate         `yaml:"locate"`
	Classify     Classify       `yaml:"classify"`
	Flags        Flags          `yaml:"flags"`
	Batch        Batch          `yaml:"batch"`

	// DBDir is where the SQLite store lives. Defaults to the XDG data dir.
	DBDir string `yaml:"db_dir"`

	// DebugDir receives intermediate images when non-empty.
	DebugDir string `yaml:"debug_dir"`
}

// NewConfig creates a Config with default values for the standard sheet.
func NewConfig() *Config {
	return &Config{
		Grid: model.UniformGrid(DefaultSections, 20, 4),
		Rectify: Rectify{
			DesiredWidth:      DefaultDesiredWidth,
			CannyLow:          DefaultCannyLow,
			CannyHigh:         DefaultCannyHigh,
			CandidateContours: DefaultCandidateContours,
			EdgeDilation:      DefaultEdgeDilation,
			ApproxEpsilon:     DefaultApproxEpsilon,
			MinQuadArea:       DefaultMinQuadArea,
		},
		Illumination: Illumination{
			ValueThreshold: DefaultValueThreshold,
			MaxGain:        DefaultMaxGain,
			Offset:         DefaultValueOffset,
			Equalize:       true,
			EqualizeBelow:  DefaultValueThreshold,
			ClipLimit:      DefaultClipLimit,
			Tiles:          DefaultTiles,
		},
		Binarize: Binarize{
			Method:        BinarizeOtsu,
			OtsuOffset:    DefaultOtsuOffset,
			AdaptiveBlock: DefaultAdaptiveBlock,
			AdaptiveC:     DefaultAdaptiveC,
			BlurRadius:    1.0,
		},
		Locate: Locate{
			ColumnFractions:       []float64{0.1, 0.3, 0.5, 0.7, 0.9},
			BubbleWidthFraction:   DefaultBubbleWidthFraction,
			OptionSpacingFraction: DefaultOptionSpacingFraction,
			TopMarginFraction:     DefaultTopMarginFraction,
			BottomMarginFraction:  DefaultBottomMarginFraction,
			OpeningRadius:         DefaultOpeningRadius,
			MinArea:               DefaultMinBubbleArea,
			MaxArea:               DefaultMaxBubbleArea,
			MinPerimeter:          DefaultMinPerimeter,
			MinCircularity:        DefaultMinCircularity,
			MaxCircularity:        DefaultMaxCircularity,
			MinSolidity:           DefaultMinSolidity,
			FallbackToGrid:        false,
		},
		Classify: Classify{
			FillThreshold: DefaultFillThreshold,
			RingInset:     DefaultRingInset,
		},
		Flags: Flags{
			MinBubbleDensity:   DefaultMinBubbleDensity,
			IncompleteFraction: DefaultIncompleteFraction,
		},
		Batch: Batch{
			Concurrency:  DefaultConcurrency,
			SheetTimeout: DefaultSheetTimeout,
		},
		DBDir: XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for the grader.
// On Linux this is typically ~/.local/share/omr-grader.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the grader.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if c.Classify.FillThreshold <= 0 || c.Classify.FillThreshold >= 1 {
		return ErrInvalidFillThreshold
	}
	if c.Classify.RingInset < 0 || c.Classify.RingInset >= 1 {
		return ErrInvalidRingInset
	}
	if c.Rectify.DesiredWidth <= 0 {
		return ErrInvalidWidth
	}
	if c.Rectify.CannyLow < 0 || c.Rectify.CannyHigh < c.Rectify.CannyLow || c.Rectify.CannyHigh > 255 {
		return ErrInvalidCanny
	}
	if c.Illumination.MaxGain < 1 {
		return ErrInvalidGain
	}
	if c.Illumination.Tiles < 1 {
		return ErrInvalidTiles
	}
	switch c.Binarize.Method {
	case BinarizeOtsu:
	case BinarizeAdaptive:
		if c.Binarize.AdaptiveBlock < 3 || c.Binarize.AdaptiveBlock%2 == 0 {
			return ErrInvalidBlockSize
		}
	default:
		return ErrUnknownBinarize
	}
	if c.Grid.Strategy == model.StrategyFixedGrid || c.Locate.FallbackToGrid {
		if len(c.Locate.ColumnFractions) < c.Grid.Columns {
			return ErrColumnFractions
		}
	}
	if c.Locate.MinArea >= c.Locate.MaxArea || c.Locate.MinCircularity >= c.Locate.MaxCircularity {
		return ErrInvalidBubbleFilter
	}
	if c.Batch.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Batch.SheetTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
