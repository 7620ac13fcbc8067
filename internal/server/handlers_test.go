package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/omr-grader/internal/model"
	"github.com/ironsheep/omr-grader/internal/store"
)

// createAnswerSheet draws the test grid on white paper with the key's answer
// filled in on every question.
func createAnswerSheet() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 400, 500))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	ink := color.NRGBA{0, 0, 0, 255}
	fill := func(x0, y0, x1, y1 int) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				img.SetNRGBA(x, y, ink)
			}
		}
	}

	answers := testKeys()["A"].Answers
	for q := 1; q <= 10; q++ {
		col, row := (q-1)/5, (q-1)%5
		cx, cy := 100+200*col, 50+100*row
		want, _ := model.OptionIndex(answers[q])
		for opt := 0; opt < 4; opt++ {
			ox := cx - 60 + 40*opt
			fill(ox-14, cy-14, ox+14, cy-12)
			fill(ox-14, cy+12, ox+14, cy+14)
			fill(ox-14, cy-14, ox-12, cy+14)
			fill(ox+12, cy-14, ox+14, cy+14)
			if opt == want {
				fill(ox-12, cy-12, ox+12, cy+12)
			}
		}
	}
	return img
}

// createPhoto places the sheet on a dark desk.
func createPhoto() *image.NRGBA {
	sheet := createAnswerSheet()
	photo := image.NewNRGBA(image.Rect(0, 0, 480, 580))
	for i := 0; i < len(photo.Pix); i += 4 {
		photo.Pix[i], photo.Pix[i+1], photo.Pix[i+2], photo.Pix[i+3] = 40, 40, 40, 255
	}
	for y := 0; y < 500; y++ {
		for x := 0; x < 400; x++ {
			photo.SetNRGBA(x+40, y+40, sheet.NRGBAAt(x, y))
		}
	}
	return photo
}

// writeImage saves img as a PNG in a temporary directory and returns its path.
func writeImage(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sheet.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the tool result into out.
// It returns the JSON-RPC error, if any.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()

	params := map[string]interface{}{"name": name, "arguments": args}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleToolsCall(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Params: paramsJSON})
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("failed to decode tool result: %v", err)
		}
	}
	return nil
}

func decodeBase64PNG(t *testing.T, data string) image.Image {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	return img
}

func TestHandleEvaluate(t *testing.T) {
	s := newTestServer()
	path := writeImage(t, createAnswerSheet())

	var res struct {
		model.ScoreRecord
		Stored bool `json:"stored"`
	}
	if err := callTool(t, s, "omr_evaluate", map[string]interface{}{"path": path, "version": "A"}, &res); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if res.TotalScore != 10 || res.Flagged {
		t.Errorf("record: total=%d flagged=%v reason=%q", res.TotalScore, res.Flagged, res.FlagReason)
	}
	if res.Source != path || res.State != model.StateClean {
		t.Errorf("record: source=%q state=%s", res.Source, res.State)
	}
	if res.Stored {
		t.Error("stored without save")
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache: got %d sheets, want 1", s.cache.Len())
	}
}

func TestHandleEvaluate_UnknownVersion(t *testing.T) {
	s := newTestServer()
	path := writeImage(t, createAnswerSheet())

	var rec model.ScoreRecord
	if err := callTool(t, s, "omr_evaluate", map[string]interface{}{"path": path, "version": "Z"}, &rec); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	if !rec.Flagged || rec.FlagReason != "No answer key found for Version Z" {
		t.Errorf("record: flagged=%v reason=%q", rec.Flagged, rec.FlagReason)
	}
}

func TestHandleEvaluate_Save(t *testing.T) {
	db, err := store.Open(t.TempDir(), store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	s := newTestServer(WithStore(db))
	path := writeImage(t, createAnswerSheet())
	args := map[string]interface{}{"path": path, "version": "A", "save": true}

	for i, want := range []bool{true, false} {
		var res struct {
			Stored bool `json:"stored"`
		}
		if err := callTool(t, s, "omr_evaluate", args, &res); err != nil {
			t.Fatalf("call %d: unexpected error: %+v", i, err)
		}
		if res.Stored != want {
			t.Errorf("call %d: stored=%v, want %v", i, res.Stored, want)
		}
	}
}

func TestHandleEvaluate_Errors(t *testing.T) {
	s := newTestServer()
	path := writeImage(t, createAnswerSheet())

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing version", map[string]interface{}{"path": path}},
		{"missing path", map[string]interface{}{"version": "A"}},
		{"nonexistent file", map[string]interface{}{"path": "/nonexistent/sheet.png", "version": "A"}},
		{"save without store", map[string]interface{}{"path": path, "version": "A", "save": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := callTool(t, s, "omr_evaluate", tt.args, nil)
			if err == nil {
				t.Fatal("Expected error")
			}
			if err.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", err.Code)
			}
		})
	}
}

func TestHandleRectify(t *testing.T) {
	s := newTestServer()

	t.Run("photographed sheet", func(t *testing.T) {
		var res rectifyResult
		if err := callTool(t, s, "omr_rectify", map[string]interface{}{"path": writeImage(t, createPhoto())}, &res); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if !res.Found || res.Quad == nil {
			t.Fatal("sheet outline not found")
		}
		img := decodeBase64PNG(t, res.Image.ImageBase64)
		if w := img.Bounds().Dx(); w < 390 || w > 410 {
			t.Errorf("rectified width: got %d, want about 400", w)
		}
	})

	t.Run("flat scan with scale", func(t *testing.T) {
		var res rectifyResult
		args := map[string]interface{}{"path": writeImage(t, createAnswerSheet()), "scale": 0.5}
		if err := callTool(t, s, "omr_rectify", args, &res); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if res.Found || res.Quad != nil {
			t.Error("flat scan reported an outline")
		}
		if res.Source.Width != 400 || res.Source.Height != 500 || res.Source.Format != "png" {
			t.Errorf("source: got %+v", res.Source)
		}
		if res.Image.Width != 200 || res.Image.Height != 250 {
			t.Errorf("scaled size: got %dx%d, want 200x250", res.Image.Width, res.Image.Height)
		}
	})
}

func TestHandleLocateBubbles(t *testing.T) {
	s := newTestServer()
	path := writeImage(t, createAnswerSheet())

	var res locateResult
	if err := callTool(t, s, "omr_locate_bubbles", map[string]interface{}{"path": path, "overlay": true}, &res); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if res.Strategy != model.StrategyFixedGrid {
		t.Errorf("strategy: got %s", res.Strategy)
	}
	if len(res.Bubbles) != 40 || res.Detected != 40 || res.Expected != 40 {
		t.Errorf("bubbles: %d located, %d detected, %d expected", len(res.Bubbles), res.Detected, res.Expected)
	}
	filled := 0
	for _, b := range res.Bubbles {
		if b.Filled {
			filled++
		}
	}
	if filled != 10 || res.Filled != 10 {
		t.Errorf("filled bubbles: got %d (reported %d), want 10", filled, res.Filled)
	}
	if first := res.Bubbles[0]; first.Question != 1 || first.Option != "a" || !first.Filled {
		t.Errorf("first bubble: %+v", first)
	}
	if got := res.Answers.Labels(4); got != "d" {
		t.Errorf("q4 answer: got %q, want d", got)
	}
	if res.Overlay == nil {
		t.Fatal("overlay missing")
	}
	if img := decodeBase64PNG(t, res.Overlay.ImageBase64); img.Bounds().Dx() != 400 {
		t.Errorf("overlay width: got %d", img.Bounds().Dx())
	}
}

func TestHandleLocateBubbles_Strategy(t *testing.T) {
	s := newTestServer()
	path := writeImage(t, createAnswerSheet())

	var res locateResult
	if err := callTool(t, s, "omr_locate_bubbles", map[string]interface{}{"path": path, "strategy": "contour"}, &res); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	if res.Strategy != model.StrategyContour {
		t.Errorf("strategy: got %s, want contour", res.Strategy)
	}
	if res.Overlay != nil {
		t.Error("overlay returned without being requested")
	}

	if err := callTool(t, s, "omr_locate_bubbles", map[string]interface{}{"path": path, "strategy": "hough"}, nil); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func TestHandleParseAnswerKey(t *testing.T) {
	s := newTestServer()

	t.Run("csv", func(t *testing.T) {
		var res parseAnswerKeyResult
		args := map[string]interface{}{"text": "Python,SQL\n1. - A,6. - b\n2. - c,7. - D\n", "version": "B"}
		if err := callTool(t, s, "omr_parse_answer_key", args, &res); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if res.Questions != 4 || res.Key.Version != "B" || res.Key.Answers[1] != "a" || res.Key.Answers[7] != "d" {
			t.Errorf("key: %+v", res)
		}
		if res.ID != "" {
			t.Error("id set without save")
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var res parseAnswerKeyResult
		args := map[string]interface{}{"text": "version: C\nanswers:\n  1: b\n  2: a\n", "format": "yaml"}
		if err := callTool(t, s, "omr_parse_answer_key", args, &res); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if res.Questions != 2 || res.Key.Version != "C" {
			t.Errorf("key: %+v", res)
		}
	})

	t.Run("errors", func(t *testing.T) {
		for _, args := range []map[string]interface{}{
			{"text": "no cells here"},
			{"text": "1 - a", "format": "xlsx"},
			{"text": "1 - a", "version": "A", "save": true},
		} {
			if err := callTool(t, s, "omr_parse_answer_key", args, nil); err == nil {
				t.Errorf("Expected error for %v", args)
			}
		}
	})
}

func TestHandleParseAnswerKey_Save(t *testing.T) {
	db, err := store.Open(t.TempDir(), store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	s := newTestServer(WithStore(db))
	var res parseAnswerKeyResult
	args := map[string]interface{}{"text": "1 - a\n2 - b\n", "version": "D", "save": true}
	if err := callTool(t, s, "omr_parse_answer_key", args, &res); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	if res.ID == "" {
		t.Error("saved key has no id")
	}

	key, err := db.LoadAnswerKey(context.Background(), "D")
	if err != nil {
		t.Fatalf("LoadAnswerKey failed: %v", err)
	}
	if key.Answers[2] != "b" {
		t.Errorf("stored key: %+v", key)
	}
}

func TestHandleGridSpec(t *testing.T) {
	s := newTestServer()

	var res gridSpecResult
	if err := callTool(t, s, "omr_grid_spec", nil, &res); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	if res.Questions != 10 || res.ExpectedBubbles != 40 {
		t.Errorf("grid: %d questions, %d bubbles", res.Questions, res.ExpectedBubbles)
	}
	if res.Strategy != model.StrategyFixedGrid || len(res.Sections) != 2 || res.Sections[1].Name != "SQL" {
		t.Errorf("grid: %+v", res.GridSpec)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer()

	t.Run("unknown tool", func(t *testing.T) {
		err := callTool(t, s, "image_load", map[string]interface{}{}, nil)
		if err == nil || !strings.Contains(err.Data.(string), "unknown tool") {
			t.Errorf("Expected unknown tool error, got %+v", err)
		}
	})

	t.Run("invalid params", func(t *testing.T) {
		resp := s.handleToolsCall(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`not json`)})
		if resp.Error == nil || resp.Error.Code != -32602 {
			t.Errorf("Expected -32602, got %+v", resp.Error)
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		resp := s.handleToolsCall(context.Background(), &MCPRequest{
			JSONRPC: "2.0",
			ID:      1,
			Params:  json.RawMessage(`{"name":"omr_rectify","arguments":{"path":42}}`),
		})
		if resp.Error == nil || resp.Error.Code != -32000 {
			t.Errorf("Expected -32000, got %+v", resp.Error)
		}
	})
}
