// Package server provides the shared context of the MCP server.
//
// ServerContext carries one process-wide session whose state backs the
// OAuth token cache, the consent broker and lifecycle built over it, and
// a lazily created Google Chat client. Tool handlers acquire the client
// through the context; before the user has authorized, acquisition fails
// with a consent-required error the handlers translate into authorization
// instructions.
package server
