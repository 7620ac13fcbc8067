// Package scoring compares assembled answers with an answer key and decides
// whether a sheet needs human review.
package scoring

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ironsheep/omr-grader/internal/model"
)

// Scores is the outcome of scoring one sheet.
type Scores struct {
	Sections []model.SectionScore

	// Total is the number of correct answers over all sections.
	Total int

	// Scored is the number of questions that had a key entry.
	Scored int

	// Unkeyed lists questions the key has no entry for. They count neither
	// toward the score nor toward Scored.
	Unkeyed []int
}

// Fold normalizes option text for comparison.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Correct reports whether marked is exactly the single option want.
func Correct(marked []int, want string) bool {
	if len(marked) != 1 {
		return false
	}
	return model.OptionLabel(marked[0]) == Fold(want)
}

// Score grades answers against key section by section. Multiple marks on a
// question earn nothing. Questions missing from the key are logged and
// excluded.
func Score(answers model.StudentAnswer, key *model.AnswerKey, spec model.GridSpec, logger *slog.Logger) *Scores {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scores{Sections: make([]model.SectionScore, 0, len(spec.Sections))}

	for _, sec := range spec.Sections {
		ss := model.SectionScore{Name: sec.Name}
		for q := sec.QuestionStart; q <= sec.QuestionEnd; q++ {
			want, ok := key.Answer(q)
			if !ok {
				s.Unkeyed = append(s.Unkeyed, q)
				continue
			}
			ss.Scored++
			if Correct(answers.Marked(q), want) {
				ss.Score++
			}
		}
		s.Sections = append(s.Sections, ss)
		s.Total += ss.Score
		s.Scored += ss.Scored
	}

	if len(s.Unkeyed) > 0 && key != nil {
		logger.Warn("answer key is missing questions",
			"version", key.Version,
			"missing", len(s.Unkeyed),
			"first", s.Unkeyed[0])
	}
	return s
}

// Zero returns a score of zero for every section of spec.
func Zero(spec model.GridSpec) *Scores {
	s := &Scores{Sections: make([]model.SectionScore, 0, len(spec.Sections))}
	for _, sec := range spec.Sections {
		s.Sections = append(s.Sections, model.SectionScore{Name: sec.Name})
	}
	return s
}
