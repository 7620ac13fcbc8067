package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/geometry"
	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/model"
	"github.com/ironsheep/omr-grader/internal/pipeline"
	"github.com/ironsheep/omr-grader/internal/rectify"
)

// errNoStore is returned when a tool is asked to save without a store.
var errNoStore = errors.New("no store configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "omr_evaluate", "omr_rectify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "omr_evaluate":
		return s.handleEvaluate(ctx, args)
	case "omr_rectify":
		return s.handleRectify(args)
	case "omr_locate_bubbles":
		return s.handleLocateBubbles(ctx, args)
	case "omr_parse_answer_key":
		return s.handleParseAnswerKey(ctx, args)
	case "omr_grid_spec":
		return s.handleGridSpec()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating missing arguments as empty.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Grading ===

type evaluateArgs struct {
	Path    string `json:"path"`
	Version string `json:"version"`
	Save    bool   `json:"save"`
}

type evaluateResult struct {
	*model.ScoreRecord
	Stored bool `json:"stored"`
}

func (s *Server) handleEvaluate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a evaluateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" || a.Version == "" {
		return nil, errors.New("path and version are required")
	}
	if a.Save && s.store == nil {
		return nil, errNoStore
	}

	sheet, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	rec, err := s.evaluator.EvaluateSheet(ctx, sheet, a.Path, a.Version)
	if err != nil {
		return nil, err
	}

	res := evaluateResult{ScoreRecord: rec}
	if a.Save {
		if res.Stored, err = s.store.InsertResult(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to store result: %w", err)
		}
	}
	return res, nil
}

// === Vision stages ===

type rectifyArgs struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

type rectifyResult struct {
	Source     imaging.SheetInfo     `json:"source"`
	Found      bool                  `json:"found"`
	Quad       *geometry.Quad        `json:"quad,omitempty"`
	Candidates int                   `json:"candidates"`
	Image      *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleRectify(args json.RawMessage) (interface{}, error) {
	var a rectifyArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	sheet, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	r := rectify.Rectify(sheet.Image, s.cfg.Rectify)
	enc, err := imaging.EncodePNG(r.Image, a.Scale)
	if err != nil {
		return nil, err
	}

	res := rectifyResult{Source: sheet.Info(), Found: r.Found, Candidates: r.Candidates, Image: enc}
	if r.Found {
		res.Quad = &r.Quad
	}
	return res, nil
}

type locateArgs struct {
	Path     string `json:"path"`
	Strategy string `json:"strategy"`
	Overlay  bool   `json:"overlay"`
}

type bubbleInfo struct {
	Question  int     `json:"question,omitempty"`
	Option    string  `json:"option,omitempty"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FillRatio float64 `json:"fill_ratio"`
	Filled    bool    `json:"filled"`
}

type locateResult struct {
	Strategy  model.Strategy        `json:"strategy"`
	FellBack  bool                  `json:"fell_back"`
	Rectified bool                  `json:"rectified"`
	Detected  int                   `json:"detected"`
	Expected  int                   `json:"expected"`
	Filled    int                   `json:"filled"`
	Bubbles   []bubbleInfo          `json:"bubbles"`
	Answers   model.StudentAnswer   `json:"answers"`
	Overlay   *imaging.EncodedImage `json:"overlay,omitempty"`
}

func (s *Server) handleLocateBubbles(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a locateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	sheet, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	ev := s.evaluator
	if a.Strategy != "" {
		strategy := model.Strategy(a.Strategy)
		if !strategy.Valid() {
			return nil, fmt.Errorf("unknown strategy: %s", a.Strategy)
		}
		cfg := s.cfg
		cfg.Grid.Strategy = strategy
		ev = pipeline.NewEvaluator(cfg, nil, pipeline.WithLogger(s.logger))
	}

	an, err := ev.Analyze(ctx, sheet.Image)
	if err != nil {
		return nil, err
	}

	res := locateResult{
		Strategy:  an.Located.Strategy,
		FellBack:  an.Located.FellBack,
		Rectified: an.Rectified.Found,
		Detected:  an.Detected,
		Expected:  an.Expected,
		Filled:    an.Filled,
		Bubbles:   make([]bubbleInfo, len(an.Bubbles)),
		Answers:   an.Answers,
	}
	for i, b := range an.Bubbles {
		res.Bubbles[i] = newBubbleInfo(b)
	}
	if a.Overlay {
		if res.Overlay, err = imaging.EncodePNG(pipeline.Overlay(an), 1.0); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func newBubbleInfo(b model.Bubble) bubbleInfo {
	info := bubbleInfo{
		Question:  b.Question,
		X:         b.Bounds.Min.X,
		Y:         b.Bounds.Min.Y,
		Width:     b.Bounds.Dx(),
		Height:    b.Bounds.Dy(),
		FillRatio: b.FillRatio,
		Filled:    b.Filled,
	}
	if b.Question > 0 {
		info.Option = model.OptionLabel(b.Option)
	}
	return info
}

// === Answer keys ===

type parseAnswerKeyArgs struct {
	Text    string `json:"text"`
	Format  string `json:"format"`
	Version string `json:"version"`
	Save    bool   `json:"save"`
}

type parseAnswerKeyResult struct {
	Key       *model.AnswerKey `json:"key"`
	Questions int              `json:"questions"`
	ID        string           `json:"id,omitempty"`
}

func (s *Server) handleParseAnswerKey(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parseAnswerKeyArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Save && s.store == nil {
		return nil, errNoStore
	}

	key, err := answerkey.Parse(a.Text, a.Format, a.Version)
	if err != nil {
		return nil, err
	}

	res := parseAnswerKeyResult{Key: key, Questions: len(key.Answers)}
	if a.Save {
		if res.ID, err = s.store.SaveAnswerKey(ctx, key, "mcp"); err != nil {
			return nil, err
		}
		s.logger.Info("answer key saved", "version", key.Version, "questions", res.Questions)
	}
	return res, nil
}

// === Layout ===

type gridSpecResult struct {
	model.GridSpec
	Questions       int `json:"questions"`
	ExpectedBubbles int `json:"expected_bubbles"`
}

func (s *Server) handleGridSpec() (interface{}, error) {
	spec := s.cfg.Grid
	if spec.Strategy == "" {
		spec.Strategy = model.StrategyFixedGrid
	}
	return gridSpecResult{
		GridSpec:        spec,
		Questions:       spec.NumQuestions(),
		ExpectedBubbles: pipeline.ExpectedBubbles(spec),
	}, nil
}
