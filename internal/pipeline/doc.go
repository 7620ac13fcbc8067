// Package pipeline grades answer sheet photographs end to end.
//
// An Evaluator runs one sheet through the stages in order:
//
//	decode -> rectify -> normalize illumination -> binarize -> locate bubbles
//	       -> classify fill -> assemble answers -> score + flag
//
// and tracks the sheet through its lifecycle states (model.State). Every
// stage is a pure function of its input and the evaluator's configuration,
// which is copied at construction and never changed, so one Evaluator can
// serve many goroutines.
//
// A sheet that cannot be graded still yields a record: a missing answer key
// or an unreadable image produces a flagged record with a zero score and a
// reason. Evaluate returns an error only when it could not finish, for
// example because its context ended.
//
// BatchProcessor evaluates many sheets with bounded concurrency using
// errgroup. Each sheet runs under its own timeout; a failure, timeout or
// panic in one sheet is counted and the batch carries on.
package pipeline
