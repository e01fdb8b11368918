// Package cmd implements the command-line interface for chatscout.
//
// This package provides the following commands:
//   - chat: Start the interactive Google Chat assistant in the terminal
//   - serve: Start the MCP server to provide Google Chat tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The chat command is the default command when no subcommand is specified.
package cmd
