package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a sheet is moved to a state that does
// not follow from its current one.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is the lifecycle position of one sheet evaluation.
type State string

const (
	StateUnevaluated         State = "unevaluated"
	StateRectified           State = "rectified"
	StateRectificationFailed State = "rectification_failed"
	StateClassified          State = "classified"
	StateScored              State = "scored"
	StateClean               State = "clean"
	StateFlagged             State = "flagged"
)

var transitions = map[State][]State{
	StateUnevaluated:         {StateRectified, StateRectificationFailed, StateFlagged},
	StateRectified:           {StateClassified},
	StateRectificationFailed: {StateClassified},
	StateClassified:          {StateScored},
	StateScored:              {StateClean, StateFlagged},
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateClean || s == StateFlagged
}

// Next returns to if it is a legal successor of s.
//
// Unevaluated may jump directly to Flagged when the sheet cannot be decoded
// or no answer key exists for its version.
func (s State) Next(to State) (State, error) {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}

// SectionScore is the score of one section.
type SectionScore struct {
	Name string `json:"name"`

	// Score is the number of correctly answered questions.
	Score int `json:"score"`

	// Scored is the number of questions that had a key entry.
	Scored int `json:"scored"`
}

// ScoreRecord is the result of evaluating one sheet.
type ScoreRecord struct {
	SheetID         string         `json:"sheet_id"`
	Source          string         `json:"source,omitempty"`
	Version         string         `json:"version"`
	Sections        []SectionScore `json:"sections"`
	TotalScore      int            `json:"total_score"`
	ScoredQuestions int            `json:"scored_questions"`
	Flagged         bool           `json:"flagged"`
	FlagReason      string         `json:"flag_reason,omitempty"`
	Answers         StudentAnswer  `json:"answers"`
	State           State          `json:"state"`
	Rectified       bool           `json:"rectified"`
	BubblesDetected int            `json:"bubbles_detected"`
	BubblesExpected int            `json:"bubbles_expected"`
	EvaluatedAt     time.Time      `json:"evaluated_at"`
}

// Section returns the score of the named section.
func (r *ScoreRecord) Section(name string) (SectionScore, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return SectionScore{}, false
}
