package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/ironsheep/omr-grader/internal/assemble"
	"github.com/ironsheep/omr-grader/internal/classify"
	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/detection"
	"github.com/ironsheep/omr-grader/internal/illumination"
	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/locate"
	"github.com/ironsheep/omr-grader/internal/model"
	"github.com/ironsheep/omr-grader/internal/rectify"
	"github.com/ironsheep/omr-grader/internal/scoring"
	"github.com/ironsheep/omr-grader/internal/store"
)

// KeyLoader looks up the answer key of a sheet version. Implementations
// return an error wrapping store.ErrKeyNotFound when the version is unknown.
type KeyLoader interface {
	LoadAnswerKey(ctx context.Context, version string) (*model.AnswerKey, error)
}

// StaticKeys is an in-memory KeyLoader keyed by version.
type StaticKeys map[string]*model.AnswerKey

// LoadAnswerKey implements KeyLoader.
func (k StaticKeys) LoadAnswerKey(_ context.Context, version string) (*model.AnswerKey, error) {
	key, ok := k[version]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w: version %s", store.ErrKeyNotFound, version)
	}
	return key, nil
}

// SheetInput is one sheet to evaluate.
type SheetInput struct {
	// Data holds the encoded image bytes. When nil, the image is read from
	// the file named by Source.
	Data []byte

	// Source names where the image came from, usually a file path.
	Source string

	// Version selects the answer key.
	Version string
}

// Analysis holds every intermediate product of running the vision stages on
// one image.
type Analysis struct {
	Rectified    *rectify.Result
	Illumination *illumination.Result
	Binary       *image.Gray
	Located      *locate.Result
	Bubbles      []model.Bubble
	Answers      model.StudentAnswer

	// Detected is the number of bubbles the contour strategy found. For the
	// fixed grid, whose boxes always exist, it counts boxes holding any ink.
	Detected int
	Expected int

	// Filled is the number of bubbles classified as marked.
	Filled int
}

// Evaluator grades single sheets. It is safe for concurrent use.
type Evaluator struct {
	cfg      config.Config
	keys     KeyLoader
	logger   *slog.Logger
	debugDir string
	now      func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets a custom logger for the evaluator.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithDebugDir writes intermediate images of every sheet below dir.
func WithDebugDir(dir string) Option {
	return func(e *Evaluator) {
		e.debugDir = dir
	}
}

// WithClock overrides the time source used for EvaluatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates an Evaluator for cfg. The configuration is copied and
// never modified afterwards.
func NewEvaluator(cfg config.Config, keys KeyLoader, opts ...Option) *Evaluator {
	e := &Evaluator{
		cfg:      cfg,
		keys:     keys,
		debugDir: cfg.DebugDir,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Config returns the evaluator's configuration.
func (e *Evaluator) Config() config.Config {
	return e.cfg
}

// Evaluate grades one sheet.
//
// Problems with the sheet itself, such as an unreadable image or an unknown
// key version, produce a flagged record with a zero score and a nil error.
// An error is returned only when evaluation could not finish: the context
// ended, the key store failed or the file named by Source could not be read.
func (e *Evaluator) Evaluate(ctx context.Context, in SheetInput) (*model.ScoreRecord, error) {
	if in.Data == nil && in.Source != "" {
		data, err := os.ReadFile(in.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet: %w", err)
		}
		in.Data = data
	}

	rec := e.newRecord(imaging.SheetID(in.Data), in.Source, in.Version)
	logger := e.sheetLogger(rec)

	key, done, err := e.loadKey(ctx, rec, logger)
	if err != nil {
		return nil, err
	}
	if done {
		return rec, nil
	}

	sheet, err := imaging.Decode(in.Data)
	if err != nil {
		logger.Warn("cannot decode sheet image", "error", err)
		return e.reject(rec, "unreadable image: "+err.Error())
	}
	return e.grade(ctx, rec, key, sheet.Image, logger)
}

// EvaluateSheet grades an already decoded sheet. It behaves like Evaluate.
func (e *Evaluator) EvaluateSheet(ctx context.Context, sheet *imaging.Sheet, source, version string) (*model.ScoreRecord, error) {
	rec := e.newRecord(sheet.ID, source, version)
	logger := e.sheetLogger(rec)

	key, done, err := e.loadKey(ctx, rec, logger)
	if err != nil {
		return nil, err
	}
	if done {
		return rec, nil
	}
	return e.grade(ctx, rec, key, sheet.Image, logger)
}

func (e *Evaluator) newRecord(sheetID, source, version string) *model.ScoreRecord {
	return &model.ScoreRecord{
		SheetID:     sheetID,
		Source:      source,
		Version:     version,
		State:       model.StateUnevaluated,
		EvaluatedAt: e.now().UTC(),
	}
}

func (e *Evaluator) sheetLogger(rec *model.ScoreRecord) *slog.Logger {
	id := rec.SheetID
	if len(id) > 12 {
		id = id[:12]
	}
	return e.logger.With("sheet", id, "source", rec.Source, "version", rec.Version)
}

// loadKey fetches the key for rec's version. When no key exists rec is
// rejected and done is true. An error means rec must be discarded.
func (e *Evaluator) loadKey(ctx context.Context, rec *model.ScoreRecord, logger *slog.Logger) (key *model.AnswerKey, done bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, true, err
	}

	key, err = e.keys.LoadAnswerKey(ctx, rec.Version)
	switch {
	case errors.Is(err, store.ErrKeyNotFound) || (err == nil && key == nil):
		logger.Warn("no answer key for version")
		_, err = e.reject(rec, scoring.MissingKeyReason(rec.Version))
		return nil, true, err
	case err != nil:
		return nil, true, fmt.Errorf("failed to load answer key: %w", err)
	}
	return key, false, nil
}

// grade runs the vision stages on img and scores and flags rec.
func (e *Evaluator) grade(ctx context.Context, rec *model.ScoreRecord, key *model.AnswerKey, img image.Image, logger *slog.Logger) (*model.ScoreRecord, error) {
	a, err := e.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}

	rec.Rectified = a.Rectified.Found
	rec.BubblesDetected = a.Detected
	rec.BubblesExpected = a.Expected
	rec.Answers = a.Answers

	next := model.StateRectificationFailed
	if a.Rectified.Found {
		next = model.StateRectified
	}
	for _, to := range []model.State{next, model.StateClassified} {
		if rec.State, err = rec.State.Next(to); err != nil {
			return nil, err
		}
	}

	scores := scoring.Score(a.Answers, key, e.cfg.Grid, logger)
	rec.Sections = scores.Sections
	rec.TotalScore = scores.Total
	rec.ScoredQuestions = scores.Scored
	if rec.State, err = rec.State.Next(model.StateScored); err != nil {
		return nil, err
	}

	verdict := scoring.Flag(scoring.Evidence{
		Version:         rec.Version,
		KeyFound:        true,
		Rectified:       a.Rectified.Found,
		BubblesDetected: a.Detected,
		BubblesExpected: a.Expected,
		Answers:         a.Answers,
		Total:           e.cfg.Grid.NumQuestions(),
	}, e.cfg.Flags)

	final := model.StateClean
	if verdict.Flagged {
		final = model.StateFlagged
		rec.Flagged = true
		rec.FlagReason = verdict.Reason()
	}
	if rec.State, err = rec.State.Next(final); err != nil {
		return nil, err
	}

	if e.debugDir != "" {
		e.saveArtifacts(rec.SheetID, a, logger)
	}

	logger.Info("sheet evaluated",
		"total", rec.TotalScore,
		"scored", rec.ScoredQuestions,
		"flagged", rec.Flagged,
		"reason", rec.FlagReason,
	)
	return rec, nil
}

// reject finishes rec as flagged with a zero score.
func (e *Evaluator) reject(rec *model.ScoreRecord, reason string) (*model.ScoreRecord, error) {
	state, err := rec.State.Next(model.StateFlagged)
	if err != nil {
		return nil, err
	}
	rec.State = state
	rec.Sections = scoring.Zero(e.cfg.Grid).Sections
	rec.TotalScore = 0
	rec.Flagged = true
	rec.FlagReason = reason
	return rec, nil
}

// Analyze runs the vision stages on img: rectification, illumination
// normalization, binarization, bubble location, fill classification and
// answer assembly. It fails only when ctx ends.
func (e *Evaluator) Analyze(ctx context.Context, img image.Image) (*Analysis, error) {
	cfg := e.cfg
	a := &Analysis{Expected: ExpectedBubbles(cfg.Grid)}

	a.Rectified = rectify.Rectify(img, cfg.Rectify)
	e.logger.Debug("rectification",
		"found", a.Rectified.Found,
		"candidates", a.Rectified.Candidates,
		"quad", a.Rectified.Quad,
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.Illumination = illumination.Normalize(a.Rectified.Image, cfg.Illumination)
	e.logger.Debug("illumination",
		"mean", a.Illumination.Mean,
		"gain", a.Illumination.Gain,
		"equalized", a.Illumination.Equalized,
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.Binary = detection.Binarize(imaging.ToGray(a.Illumination.Image), cfg.Binarize)
	a.Located = locate.Locate(a.Binary, cfg.Grid, cfg.Locate)
	e.logger.Debug("bubble location",
		"strategy", a.Located.Strategy,
		"bubbles", len(a.Located.Bubbles),
		"candidates", a.Located.Candidates,
		"fell_back", a.Located.FellBack,
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.Bubbles = classify.Classify(a.Binary, a.Located.Bubbles, cfg.Classify)
	a.Filled = classify.Count(a.Bubbles)
	a.Detected = DetectedBubbles(a.Located.Strategy, a.Bubbles)
	a.Answers = assemble.Assemble(a.Bubbles, cfg.Grid, a.Binary.Bounds().Dx())
	e.logger.Debug("classification",
		"detected", a.Detected,
		"filled", a.Filled,
		"ambiguous", a.Answers.Ambiguous(),
	)
	return a, nil
}

// DetectedBubbles returns the bubble count the density check compares with
// the expected count. Every contour bubble was detected by shape. Fixed grid
// boxes are placed blindly, so only those with ink on them count.
func DetectedBubbles(strategy model.Strategy, bubbles []model.Bubble) int {
	if strategy == model.StrategyContour {
		return len(bubbles)
	}
	n := 0
	for _, b := range bubbles {
		if b.FillRatio > 0 {
			n++
		}
	}
	return n
}

// ExpectedBubbles returns the number of bubbles printed on a sheet of spec.
func ExpectedBubbles(spec model.GridSpec) int {
	n := 0
	for _, s := range spec.Sections {
		n += s.Len() * s.OptionCount
	}
	return n
}
