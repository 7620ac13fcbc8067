// Package server implements the MCP (Model Context Protocol) server for the
// answer sheet grader.
//
// This package provides a JSON-RPC 2.0 server that exposes grading and its
// intermediate vision stages through the MCP protocol, so an assistant can
// grade a sheet and also inspect why a sheet was flagged.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Grading:
//   - omr_evaluate: Grade a sheet against its version's answer key
//
// Vision stages:
//   - omr_rectify: Perspective-correct a photographed sheet
//   - omr_locate_bubbles: Locate and classify bubbles, optionally with an overlay
//
// Answer keys and layout:
//   - omr_parse_answer_key: Parse (and optionally save) a CSV or YAML key
//   - omr_grid_spec: Describe the configured sheet layout
//
// # Image Caching
//
// Decoded sheets are cached by path for the lifetime of the process, so
// rectifying, locating and grading the same photograph decodes it once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A sheet that cannot be graded (unknown version, no bubbles) is not an
// error: omr_evaluate returns a flagged record with the reason.
//
// # Usage
//
//	srv := server.New(cfg, db, server.WithStore(db), server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
