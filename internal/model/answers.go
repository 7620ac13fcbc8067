package model

import (
	"image"
	"sort"
	"strings"
)

// Bubble is one answer bubble located on a rectified sheet.
type Bubble struct {
	// Bounds is the bubble's axis-aligned bounding box in sheet pixels.
	Bounds image.Rectangle `json:"bounds"`

	// Contour is the traced outline for contour-located bubbles. It is nil for
	// fixed-grid bubbles, whose region is the whole bounding box.
	Contour []image.Point `json:"-"`

	// Center is the centroid used for column bucketing and ordering.
	Center image.Point `json:"center"`

	// Question and Option are set when the locator knows the assignment
	// (fixed grid). Zero Question means unassigned.
	Question int `json:"question,omitempty"`
	Option   int `json:"option"`

	FillRatio float64 `json:"fill_ratio"`
	Filled    bool    `json:"filled"`
}

// StudentAnswer maps question number to the sorted set of marked option indices.
//
// An empty set means unanswered; more than one index means ambiguous.
type StudentAnswer map[int][]int

// Marked returns the marked options for question q.
func (a StudentAnswer) Marked(q int) []int {
	return a[q]
}

// IsAmbiguous reports whether more than one option is marked for q.
func (a StudentAnswer) IsAmbiguous(q int) bool {
	return len(a[q]) > 1
}

// Questions returns the question numbers in ascending order.
func (a StudentAnswer) Questions() []int {
	qs := make([]int, 0, len(a))
	for q := range a {
		qs = append(qs, q)
	}
	sort.Ints(qs)
	return qs
}

// Labels renders the marked options of q as letters joined by ",".
func (a StudentAnswer) Labels(q int) string {
	opts := a[q]
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = OptionLabel(o)
	}
	return strings.Join(parts, ",")
}

// Empty returns the questions with no marked option, ascending.
func (a StudentAnswer) Empty() []int {
	var out []int
	for _, q := range a.Questions() {
		if len(a[q]) == 0 {
			out = append(out, q)
		}
	}
	return out
}

// Ambiguous returns the questions with more than one marked option, ascending.
func (a StudentAnswer) Ambiguous() []int {
	var out []int
	for _, q := range a.Questions() {
		if a.IsAmbiguous(q) {
			out = append(out, q)
		}
	}
	return out
}

// AnswerKey holds the correct option text per question for one sheet version.
// Option text is stored case-folded.
type AnswerKey struct {
	Version string         `json:"version" yaml:"version"`
	Answers map[int]string `json:"answers" yaml:"answers"`
}

// Answer returns the key's option for q.
func (k *AnswerKey) Answer(q int) (string, bool) {
	if k == nil {
		return "", false
	}
	a, ok := k.Answers[q]
	return a, ok
}
