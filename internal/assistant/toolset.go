package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/googleapi"

	"github.com/teemow/chatscout/internal/chat"
	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

// chatAPI is the slice of the Chat client the tools use.
type chatAPI interface {
	SearchSpaces(ctx context.Context, query string) ([]chat.Space, error)
	ListMessages(ctx context.Context, space, filter string) ([]chat.Message, error)
}

// Toolset provides the Chat tools over a shared credential lifecycle. Each
// call resolves the credential first; while consent is in flight the tools
// answer with a pending envelope instead of data.
type Toolset struct {
	auth      *google.Lifecycle
	newClient func(ctx context.Context, tok *google.TokenSet) (chatAPI, error)
	logger    *slog.Logger
}

// NewToolset builds the toolset over the given credential lifecycle.
func NewToolset(auth *google.Lifecycle) *Toolset {
	ts := &Toolset{
		auth:   auth,
		logger: logging.WithComponent(slog.Default(), "assistant"),
	}
	ts.newClient = func(ctx context.Context, tok *google.TokenSet) (chatAPI, error) {
		return chat.NewClient(ctx, tok.HTTPClient(ctx))
	}
	return ts
}

// SearchSpacesTool finds Chat spaces by display name.
func (ts *Toolset) SearchSpacesTool() runtime.Tool {
	return runtime.NewFuncTool(&runtime.Declaration{
		Name: "search_all_chat_spaces",
		Description: "Searches through ALL of the user's Google Chat spaces and filters them " +
			"by a display name query. Handles authentication and pagination automatically.",
		Parameters: &runtime.Schema{
			Type: "object",
			Properties: map[string]*runtime.Schema{
				"query": {
					Type:        "string",
					Description: "Substring to match against space display names, case-insensitively.",
				},
			},
			Required: []string{"query"},
		},
	}, ts.searchSpaces)
}

// ListMessagesTool reads recent messages from one space.
func (ts *Toolset) ListMessagesTool() runtime.Tool {
	return runtime.NewFuncTool(&runtime.Declaration{
		Name: "list_space_messages",
		Description: "Lists messages in a given Google Chat space, newest first. " +
			"'parent' is the resource name of the space, e.g. 'spaces/AAAAAAAAAAA'.",
		Parameters: &runtime.Schema{
			Type: "object",
			Properties: map[string]*runtime.Schema{
				"parent": {
					Type:        "string",
					Description: "Resource name of the space, e.g. 'spaces/AAAAAAAAAAA'.",
				},
				"filter": {
					Type:        "string",
					Description: "Optional Chat API message filter, e.g. 'createTime > \"2025-01-01T00:00:00Z\"'.",
				},
			},
			Required: []string{"parent"},
		},
	}, ts.listMessages)
}

func (ts *Toolset) searchSpaces(ctx context.Context, tc *runtime.ToolContext, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	logger := ts.logger.With(logging.Tool("search_all_chat_spaces"))

	client, result, err := ts.authorizedClient(ctx, tc, logger)
	if client == nil {
		return result, err
	}

	spaces, err := client.SearchSpaces(ctx, query)
	if err != nil {
		logger.Warn("space search failed", logging.Err(err))
		return errorResult(err), nil
	}

	if len(spaces) == 0 {
		return map[string]any{
			"status":  "success",
			"message": "No chat spaces found matching your query.",
		}, nil
	}

	found := make([]map[string]any, 0, len(spaces))
	for _, s := range spaces {
		found = append(found, map[string]any{"displayName": s.DisplayName, "name": s.Name})
	}
	logger.Info("spaces found", "count", len(found), logging.Status(logging.StatusSuccess))
	return map[string]any{"status": "success", "found_spaces": found}, nil
}

func (ts *Toolset) listMessages(ctx context.Context, tc *runtime.ToolContext, args map[string]any) (map[string]any, error) {
	parent, _ := args["parent"].(string)
	if parent == "" {
		return nil, fmt.Errorf("parent argument is required")
	}
	filter, _ := args["filter"].(string)
	logger := ts.logger.With(logging.Tool("list_space_messages"))

	client, result, err := ts.authorizedClient(ctx, tc, logger)
	if client == nil {
		return result, err
	}

	msgs, err := client.ListMessages(ctx, parent, filter)
	if err != nil {
		logger.Warn("message listing failed", logging.Err(err))
		return errorResult(err), nil
	}

	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]any{
			"author":     m.Author,
			"text":       m.Text,
			"createTime": m.CreateTime,
		})
	}
	logger.Info("messages listed", "count", len(out), logging.Status(logging.StatusSuccess))
	return map[string]any{"messages": out}, nil
}

// authorizedClient resolves the credential and builds a Chat client. A nil
// client means the caller must return the accompanying result and error as
// they are; the pending envelope travels this path.
func (ts *Toolset) authorizedClient(ctx context.Context, tc *runtime.ToolContext, logger *slog.Logger) (chatAPI, map[string]any, error) {
	tok, err := ts.auth.Resolve(ctx, tc)
	if err != nil {
		if errors.Is(err, google.ErrConsentRequired) {
			logger.Info("awaiting user authentication", logging.Status(logging.StatusPending))
			return nil, pendingResult(), nil
		}
		return nil, nil, err
	}

	client, err := ts.newClient(ctx, tok)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build Chat client: %w", err)
	}
	return client, nil, nil
}

// pendingResult is the envelope a tool returns while user consent is in
// flight.
func pendingResult() map[string]any {
	return map[string]any{
		"status":  "pending",
		"message": "Awaiting user authentication.",
	}
}

func errorResult(err error) map[string]any {
	return map[string]any{
		"status":  "error",
		"message": "An API error occurred: " + apiErrorMessage(err),
	}
}

// apiErrorMessage prefers the API's own error message over the transport
// wrapping around it.
func apiErrorMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return err.Error()
}
