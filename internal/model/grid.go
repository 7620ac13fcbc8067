package model

import (
	"errors"
	"fmt"
)

// MaxOptions is the largest option count a question can have (a..z).
const MaxOptions = 26

// ErrInvalidGrid is returned by GridSpec.Validate for an inconsistent layout.
var ErrInvalidGrid = errors.New("invalid grid spec")

// Strategy selects how bubbles are located on a rectified sheet.
type Strategy string

const (
	// StrategyFixedGrid computes bubble positions from image dimensions.
	StrategyFixedGrid Strategy = "fixed-grid"

	// StrategyContour discovers bubbles from their shape on the binarized sheet.
	StrategyContour Strategy = "contour"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyFixedGrid || s == StrategyContour
}

// Section is a named, contiguous range of questions that share an option count.
type Section struct {
	Name          string `json:"name" yaml:"name"`
	QuestionStart int    `json:"question_start" yaml:"question_start"`
	QuestionEnd   int    `json:"question_end" yaml:"question_end"`
	OptionCount   int    `json:"option_count" yaml:"option_count"`
}

// Len returns the number of questions in the section.
func (s Section) Len() int {
	return s.QuestionEnd - s.QuestionStart + 1
}

// Contains reports whether question q belongs to the section.
func (s Section) Contains(q int) bool {
	return q >= s.QuestionStart && q <= s.QuestionEnd
}

// GridSpec describes the physical and logical layout of an answer sheet.
//
// Questions are laid out column-major: column c holds questions
// c*RowsPerColumn+1 through (c+1)*RowsPerColumn from top to bottom.
type GridSpec struct {
	Sections      []Section `json:"sections" yaml:"sections"`
	Columns       int       `json:"columns" yaml:"columns"`
	RowsPerColumn int       `json:"rows_per_column" yaml:"rows_per_column"`
	Strategy      Strategy  `json:"strategy" yaml:"strategy"`
}

// NumQuestions returns the total number of questions across all sections.
func (g GridSpec) NumQuestions() int {
	n := 0
	for _, s := range g.Sections {
		n += s.Len()
	}
	return n
}

// SectionFor returns the section containing question q.
func (g GridSpec) SectionFor(q int) (Section, bool) {
	for _, s := range g.Sections {
		if s.Contains(q) {
			return s, true
		}
	}
	return Section{}, false
}

// OptionCount returns the option count of question q, or 0 if q is not on the sheet.
func (g GridSpec) OptionCount(q int) int {
	s, ok := g.SectionFor(q)
	if !ok {
		return 0
	}
	return s.OptionCount
}

// MaxOptionCount returns the largest option count of any section.
func (g GridSpec) MaxOptionCount() int {
	m := 0
	for _, s := range g.Sections {
		if s.OptionCount > m {
			m = s.OptionCount
		}
	}
	return m
}

// Cell returns the zero-based column and row that question q occupies.
func (g GridSpec) Cell(q int) (col, row int) {
	if g.RowsPerColumn <= 0 {
		return 0, q - 1
	}
	return (q - 1) / g.RowsPerColumn, (q - 1) % g.RowsPerColumn
}

// ColumnOf returns the column bucket of horizontal position x on a sheet of
// the given width: floor(x / (width / Columns)), clamped to the valid range.
func (g GridSpec) ColumnOf(x, width int) int {
	if g.Columns <= 1 || width <= 0 {
		return 0
	}
	col := x * g.Columns / width
	return max(0, min(g.Columns-1, col))
}

// Validate checks that sections are contiguous, start at question 1, do not
// overlap, have sane option counts, and fit in the column layout.
func (g GridSpec) Validate() error {
	if len(g.Sections) == 0 {
		return fmt.Errorf("%w: no sections", ErrInvalidGrid)
	}
	next := 1
	for i, s := range g.Sections {
		if s.Name == "" {
			return fmt.Errorf("%w: section %d has no name", ErrInvalidGrid, i)
		}
		if s.QuestionStart != next {
			return fmt.Errorf("%w: section %q starts at %d, want %d", ErrInvalidGrid, s.Name, s.QuestionStart, next)
		}
		if s.QuestionEnd < s.QuestionStart {
			return fmt.Errorf("%w: section %q ends before it starts", ErrInvalidGrid, s.Name)
		}
		if s.OptionCount < 1 || s.OptionCount > MaxOptions {
			return fmt.Errorf("%w: section %q option count %d out of range 1..%d", ErrInvalidGrid, s.Name, s.OptionCount, MaxOptions)
		}
		next = s.QuestionEnd + 1
	}
	if g.Columns < 1 || g.RowsPerColumn < 1 {
		return fmt.Errorf("%w: columns and rows_per_column must be positive", ErrInvalidGrid)
	}
	if g.Columns*g.RowsPerColumn < g.NumQuestions() {
		return fmt.Errorf("%w: %d columns of %d rows cannot hold %d questions",
			ErrInvalidGrid, g.Columns, g.RowsPerColumn, g.NumQuestions())
	}
	if g.Strategy != "" && !g.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidGrid, g.Strategy)
	}
	return nil
}

// UniformGrid builds a GridSpec where each named section holds perQuestion
// questions with the same option count, one section per column.
func UniformGrid(names []string, perSection, options int) GridSpec {
	g := GridSpec{
		Columns:       len(names),
		RowsPerColumn: perSection,
		Strategy:      StrategyFixedGrid,
	}
	start := 1
	for _, name := range names {
		g.Sections = append(g.Sections, Section{
			Name:          name,
			QuestionStart: start,
			QuestionEnd:   start + perSection - 1,
			OptionCount:   options,
		})
		start += perSection
	}
	return g
}

// OptionLabel returns the letter for a zero-based option index ("a" for 0).
func OptionLabel(i int) string {
	if i < 0 || i >= MaxOptions {
		return "?"
	}
	return string(rune('a' + i))
}

// OptionIndex parses a single option letter, case-insensitively.
func OptionIndex(label string) (int, bool) {
	if len(label) != 1 {
		return 0, false
	}
	c := label[0]
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	}
	return 0, false
}
