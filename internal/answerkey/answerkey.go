// Package answerkey reads answer keys from the tabular sources schools keep
// them in.
//
// A CSV key may have any number of rows and columns. Every cell of the form
// "<question> - <option>" contributes one entry, for example "12 - c" or
// "12. - C". Other cells, such as subject headers, are ignored. A YAML key
// maps question numbers to options directly:
//
//	version: "2"
//	answers:
//	  1: a
//	  2: c
package answerkey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/omr-grader/internal/model"
	"github.com/ironsheep/omr-grader/internal/scoring"
)

// ErrEmptyKey is returned when a source yields no usable entries.
var ErrEmptyKey = errors.New("answer key has no entries")

// ErrUnknownFormat is returned by ReadFile for unsupported file extensions.
var ErrUnknownFormat = errors.New("unknown answer key format")

const cellSeparator = " - "

// ParseCell parses one "<question> - <option>" cell. A trailing "." on the
// question number is ignored; the option is case-folded.
func ParseCell(cell string) (question int, option string, ok bool) {
	q, opt, found := strings.Cut(cell, cellSeparator)
	if !found {
		return 0, "", false
	}
	q = strings.TrimSuffix(strings.TrimSpace(q), ".")
	if q == "" || strings.TrimLeft(q, "0123456789") != "" {
		return 0, "", false
	}
	n, err := strconv.Atoi(q)
	if err != nil || n < 1 {
		return 0, "", false
	}
	opt, _, _ = strings.Cut(opt, cellSeparator)
	option = scoring.Fold(opt)
	if option == "" {
		return 0, "", false
	}
	return n, option, true
}

// ReadCSV parses every cell of a CSV key. Later cells for the same question
// override earlier ones.
func ReadCSV(r io.Reader, version string) (*model.AnswerKey, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	key := &model.AnswerKey{Version: version, Answers: map[int]string{}}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read answer key CSV: %w", err)
		}
		for _, cell := range record {
			if q, opt, ok := ParseCell(cell); ok {
				key.Answers[q] = opt
			}
		}
	}
	if len(key.Answers) == 0 {
		return nil, ErrEmptyKey
	}
	return key, nil
}

// ReadYAML parses a YAML key. A non-empty version overrides the one in the
// document.
func ReadYAML(r io.Reader, version string) (*model.AnswerKey, error) {
	var doc model.AnswerKey
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyKey
		}
		return nil, fmt.Errorf("failed to parse answer key YAML: %w", err)
	}

	key := &model.AnswerKey{Version: doc.Version, Answers: make(map[int]string, len(doc.Answers))}
	if version != "" {
		key.Version = version
	}
	for q, opt := range doc.Answers {
		if q < 1 {
			continue
		}
		if f := scoring.Fold(opt); f != "" {
			key.Answers[q] = f
		}
	}
	if len(key.Answers) == 0 {
		return nil, ErrEmptyKey
	}
	return key, nil
}

// ReadFile reads a key from a .csv, .yaml or .yml file.
func ReadFile(path, version string) (*model.AnswerKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open answer key: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f, version)
	case ".yaml", ".yml":
		return ReadYAML(f, version)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Parse reads a key from text in the given format ("csv" or "yaml").
func Parse(text, format, version string) (*model.AnswerKey, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return ReadCSV(strings.NewReader(text), version)
	case "yaml", "yml":
		return ReadYAML(strings.NewReader(text), version)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}
