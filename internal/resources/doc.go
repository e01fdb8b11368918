// Package resources provides MCP resources for exposing session data.
// Resources are read-only data sources that MCP clients can fetch, such as
// the current authorization status.
package resources
