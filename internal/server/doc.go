// Package server implements the MCP (Model Context Protocol) server for the
// despeckle filter.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata, including channel count
//   - image_dimensions: Get width and height
//
// Despeckle Operations:
//   - image_despeckle: Filter a whole image, inline or to output_path
//   - image_despeckle_preview: Filter a region for tuning
//   - image_compare: Sample-level difference between two images
//
// Color Operations:
//   - image_sample_color: Get color and gray level at a pixel
//   - image_sample_colors_multi: Sample multiple points
//
// OCR Operations (each with an optional despeckle pre-pass):
//   - image_ocr_full: Extract all text
//   - image_ocr_region: Extract text from region
//   - image_detect_text_regions: Find text bounding boxes
//
// Filter parameters left out of a call fall back to the configured defaults
// (see package config).
//
// # Progress
//
// A tools/call carrying params._meta.progressToken receives
// notifications/progress messages with progress in [0, 1] and total 1 while
// the filter runs, at most one per whole percent.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32602 (malformed params) or
//     -32601 (unknown method)
//   - message: Human-readable error description
//   - data: The Go error string, naming the offending parameter for filter
//     parameter errors
//
// # Usage
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := server.New(cfg).Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
