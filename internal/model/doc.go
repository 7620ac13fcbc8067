// Package model defines the data types shared by every stage of the answer
// sheet evaluation pipeline.
//
// # Types
//
//   - GridSpec and Section describe the sheet layout: which question numbers
//     belong to which subject, how many options each question has, and how
//     questions are arranged in columns.
//   - Bubble is one answer bubble located on a rectified sheet, together with
//     its measured fill ratio.
//   - StudentAnswer maps question numbers to the set of marked option indices.
//   - AnswerKey is the versioned set of correct options.
//   - ScoreRecord is the final output of one evaluation.
//   - State tracks the lifecycle of one sheet through the pipeline.
//
// # Option Labels
//
// Options are addressed by zero-based index inside the package and rendered as
// lower-case letters ("a", "b", ...) at the edges. OptionLabel and
// OptionIndex convert between the two.
//
// # Immutability
//
// Values produced by a stage are not modified by later stages. Stages that
// need to annotate data (for example the classifier setting fill ratios) copy
// the slice they receive.
package model
