package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyComponent = "component"
	KeyOperation = "operation"
	KeySession   = "session_id"
	KeyAgent     = "agent"
	KeyTool      = "tool"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging. They mirror the status field of
// structured tool results so log lines and tool payloads agree.
const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusError   = "error"
)

// Setup installs the process-wide slog handler. All log output goes to
// stderr so the conversation transcript on stdout stays clean; the same
// constraint applies to the MCP stdio transport, which owns stdout.
func Setup(debug bool) {
	SetupWithWriter(os.Stderr, debug)
}

// SetupWithWriter is Setup with an explicit destination, used by tests.
func SetupWithWriter(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Component returns a slog attribute for the component name.
func Component(component string) slog.Attr {
	return slog.String(KeyComponent, component)
}

// Session returns a slog attribute for the session id.
func Session(id string) slog.Attr {
	return slog.String(KeySession, id)
}

// Agent returns a slog attribute for the agent name.
func Agent(name string) slog.Attr {
	return slog.String(KeyAgent, name)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes (like JWT headers) can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
