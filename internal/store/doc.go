// Package store provides SQLite-based storage for answer keys and grading
// results.
//
// Two tables are kept:
//   - answer_keys: every uploaded key, by version; the newest upload of a
//     version is the one used for grading
//   - results: one ScoreRecord per (sheet_id, version), stored as JSON next
//     to the columns the review queue filters on
//
// The sheet id is the SHA-256 of the image bytes, so re-submitting the same
// photograph under the same version never creates a second result.
// InsertResult reports whether it wrote a row.
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no cgo. One connection is kept open so concurrent batch workers
// serialize their writes.
package store
