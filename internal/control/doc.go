// Package control exposes launcher operations as Model Context Protocol
// tools.
//
// The same tool registry serves two callers: an MCP session over a
// transport (stdio for the mcp command) and direct in-process calls from the
// interactive shell. Tool failures are reported inside the result with
// IsError set, never as protocol errors.
package control
