// Package report renders evaluated sheets for people and tools.
//
// JSONWriter emits score records as JSON for scripts and the MCP server.
// MarkdownWriter renders a review summary: totals, per-section averages and
// the queue of flagged sheets with the reasons they need a second look.
package report
