// Package main provides the omr command line grader.
//
// omr grades photographed or scanned multiple-choice answer sheets against
// answer keys kept in a local SQLite store.
//
// Usage:
//
//	omr key import key.csv --version A
//	omr evaluate --version A sheet.jpg
//	omr batch --version A scans/
//	omr review
//
// See --help for all available options.
package main

func main() {
	Execute()
}
