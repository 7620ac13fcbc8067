package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Grid layout problems are reported as model.ErrInvalidGrid.
var (
	// ErrInvalidFillThreshold is returned when the fill threshold is outside (0, 1).
	ErrInvalidFillThreshold = errors.New("invalid fill threshold: must be between 0 and 1 exclusive")

	// ErrInvalidRingInset is returned when the ring inset is outside [0, 1).
	ErrInvalidRingInset = errors.New("invalid ring inset: must be at least 0 and below 1")

	// ErrInvalidWidth is returned when the rectifier working width is not positive.
	ErrInvalidWidth = errors.New("invalid desired width: must be positive")

	// ErrInvalidCanny is returned when the edge thresholds are out of order or range.
	ErrInvalidCanny = errors.New("invalid canny thresholds: need 0 <= low <= high <= 255")

	// ErrInvalidGain is returned when the maximum brightening gain is below 1.
	ErrInvalidGain = errors.New("invalid max gain: must be at least 1")

	// ErrInvalidTiles is returned when the equalization tile count is not positive.
	ErrInvalidTiles = errors.New("invalid tile count: must be positive")

	// ErrInvalidBlockSize is returned when the adaptive threshold block is not an odd number >= 3.
	ErrInvalidBlockSize = errors.New("invalid adaptive block size: must be odd and at least 3")

	// ErrUnknownBinarize is returned for an unrecognized binarization method.
	ErrUnknownBinarize = errors.New("unknown binarize method: use otsu or adaptive")

	// ErrColumnFractions is returned when the fixed grid has fewer column
	// positions than the grid has columns.
	ErrColumnFractions = errors.New("not enough column fractions for grid columns")

	// ErrInvalidBubbleFilter is returned when a contour filter range is empty.
	ErrInvalidBubbleFilter = errors.New("invalid bubble filter: min must be below max")

	// ErrInvalidConcurrency is returned when batch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the per-sheet timeout is negative.
	ErrInvalidTimeout = errors.New("invalid sheet timeout: must be non-negative")
)
