package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/model"
)

// maxListed caps how many question numbers a reason lists.
const maxListed = 10

// Flag reasons.
const (
	ReasonNoBubbles     = "no bubbles detected"
	ReasonLowConfidence = "low-confidence scan"
)

// Evidence is what the flag rules look at.
type Evidence struct {
	Version  string
	KeyFound bool

	Rectified       bool
	BubblesDetected int
	BubblesExpected int

	Answers model.StudentAnswer

	// Total is the number of questions on the sheet.
	Total int
}

// Verdict is the outcome of the flag rules.
type Verdict struct {
	Flagged bool
	Reasons []string
}

// Reason joins the reasons with "; ".
func (v Verdict) Reason() string {
	return strings.Join(v.Reasons, "; ")
}

// MissingKeyReason is the reason given when no key exists for version.
func MissingKeyReason(version string) string {
	return "No answer key found for Version " + version
}

// Flag applies the anomaly rules in priority order. A missing key is
// reported alone; every other rule is evaluated independently.
func Flag(ev Evidence, cfg config.Flags) Verdict {
	if !ev.KeyFound {
		return Verdict{Flagged: true, Reasons: []string{MissingKeyReason(ev.Version)}}
	}

	var reasons []string
	switch {
	case ev.BubblesDetected == 0:
		reasons = append(reasons, ReasonNoBubbles)
	case !ev.Rectified && density(ev) < cfg.MinBubbleDensity:
		reasons = append(reasons, ReasonLowConfidence)
	}

	total := ev.Total
	if total == 0 {
		total = len(ev.Answers)
	}
	if empty := ev.Answers.Empty(); len(empty) > 0 && float64(len(empty)) > cfg.IncompleteFraction*float64(total) {
		reasons = append(reasons, fmt.Sprintf("incomplete sheet: %d of %d questions unanswered (%s)",
			len(empty), total, listQuestions(empty)))
	}

	if amb := ev.Answers.Ambiguous(); len(amb) > 0 {
		reasons = append(reasons, "ambiguous marks on questions "+listQuestions(amb))
	}

	return Verdict{Flagged: len(reasons) > 0, Reasons: reasons}
}

func density(ev Evidence) float64 {
	if ev.BubblesExpected <= 0 {
		return 1
	}
	return float64(ev.BubblesDetected) / float64(ev.BubblesExpected)
}

// listQuestions renders up to maxListed question numbers, noting how many
// more were left out.
func listQuestions(qs []int) string {
	n := min(len(qs), maxListed)
	parts := make([]string, n)
	for i, q := range qs[:n] {
		parts[i] = strconv.Itoa(q)
	}
	s := strings.Join(parts, ", ")
	if len(qs) > n {
		s += fmt.Sprintf(" and %d more", len(qs)-n)
	}
	return s
}
