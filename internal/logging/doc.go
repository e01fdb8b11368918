// Package logging provides structured logging utilities for the chatscout
// application.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithComponent(slog.Default(), "auth")
//	logger.Info("token refreshed",
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("cached credential",
//	    "access_token", logging.SanitizeToken(tok.AccessToken))
//
// # Security Considerations
//
// Tokens are never logged directly; SanitizeToken replaces them with a
// length indicator. All output goes to stderr so stdout stays reserved for
// the conversation transcript and the MCP stdio transport.
package logging
