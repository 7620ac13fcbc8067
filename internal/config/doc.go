// Package config holds the single configuration surface of the grader.
//
// Every stage of the pipeline reads its tunables from one Config value:
// rectification thresholds, illumination gain, binarization, bubble location
// strategy and filters, the fill threshold, flagging rules and batch limits.
//
// # Sources
//
// NewConfig returns the defaults for the standard five-subject, 100 question
// sheet. LoadFile overlays a YAML file on top of those defaults, so a file only
// needs the keys it changes. FindConfigFile looks for an explicit path, then
// .omr.yaml in the working directory, then config.yaml in the XDG config
// directory.
//
// # Validation
//
// Validate returns one of the sentinel errors in errors.go (or
// model.ErrInvalidGrid for layout problems) so callers can use errors.Is.
package config
