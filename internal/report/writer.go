package report

import (
	"encoding/json"
	"io"

	"github.com/ironsheep/omr-grader/internal/model"
)

// Writer outputs a set of score records.
type Writer interface {
	// Write renders records and returns the number of bytes written.
	Write(records []model.ScoreRecord) (int, error)
}

// JSONWriter outputs score records as a JSON array.
type JSONWriter struct {
	output io.Writer
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indented output.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer. A nil slice is written as an empty array.
func (w *JSONWriter) Write(records []model.ScoreRecord) (int, error) {
	if records == nil {
		records = []model.ScoreRecord{}
	}

	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(records, "", w.indent)
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
