// Package server implements the MCP (Model Context Protocol) server for signature
// verification tools.
//
// This package provides a JSON-RPC 2.0 server that exposes enrollment, verification
// and inspection through the MCP protocol, so an assistant can enroll reference
// signatures, verify candidates and look at what the pipeline sees.
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
// Inspection:
//   - signature_load: Image metadata
//   - signature_preprocess: One preprocessing stage as PNG
//   - signature_edges: Canny edge map as PNG
//   - signature_keypoints: Detected keypoints
//   - signature_strokes: Connected stroke metrics
//
// Enrollment and verification:
//   - signature_enroll: Store a template for a key
//   - signature_verify: Score a candidate against a key's template
//
// Template management:
//   - template_list, template_delete
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and data {"kind": ..., "message": ...}. The kind is image_load,
// insufficient_features, not_found, write, invalid_input, unknown_tool or
// internal. A failed verification is an error, never a "not authentic" result.
//
// # Usage
//
//	svc, err := verifier.NewFromConfig(cfg, log)
//	if err != nil {
//	    return err
//	}
//	return server.New(svc, log).Run()
package server
