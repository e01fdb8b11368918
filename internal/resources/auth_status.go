package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/server"
)

// RegisterAuthResources registers the authorization status resource.
// It lets MCP clients check whether Google Chat access is authorized
// without calling a data tool and reading its error text.
func RegisterAuthResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	statusResource := mcp.NewResource(
		"auth://status",
		"Google Chat Authorization Status",
		mcp.WithResourceDescription("Current state of the cached Google Chat OAuth tokens"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(statusResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAuthStatus(ctx, request, sc)
	})

	return nil
}

// handleAuthStatus reports the token cache state. It never touches the
// network; an expired-but-refreshable token shows up as unauthorized with
// canRefresh true.
func handleAuthStatus(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	status := map[string]interface{}{
		"authorized": false,
	}

	tok, err := sc.Store().Get(sc.State())
	switch {
	case err == nil:
		status["authorized"] = tok.Valid()
		status["canRefresh"] = tok.CanRefresh()
		status["scopes"] = tok.Scopes
		if !tok.Expiry.IsZero() {
			status["expiry"] = tok.Expiry.Format(time.RFC3339)
		}
	case errors.Is(err, google.ErrNoToken):
		status["description"] = "No tokens cached yet. Use google_chat_get_auth_url to start authorization."
	case errors.Is(err, google.ErrCorruptToken):
		status["description"] = "Cached tokens are unreadable. Re-run authorization to replace them."
	default:
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	jsonData, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
