package chat_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/chatscout/internal/chat"
	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/server"
)

// RegisterChatTools registers all Google Chat tools with the MCP server
func RegisterChatTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Search spaces
	searchSpacesTool := mcp.NewTool("chat_search_spaces",
		mcp.WithDescription("Search Google Chat spaces by display name, matching case-insensitively across all spaces the user can see"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to match against space display names. An empty string matches every space."),
		),
	)

	s.AddTool(searchSpacesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchSpaces(ctx, request, sc)
	})

	// List messages
	listMessagesTool := mcp.NewTool("chat_list_messages",
		mcp.WithDescription("List recent messages from a Google Chat space, newest first (up to 500)"),
		mcp.WithString("parent",
			mcp.Required(),
			mcp.Description("The resource name of the space (e.g., 'spaces/AAAA1234')"),
		),
		mcp.WithString("filter",
			mcp.Description("Optional Chat API filter (e.g., 'createTime > \"2025-01-01T00:00:00Z\"' or 'thread.name = spaces/AAAA1234/threads/XYZ')"),
		),
	)

	s.AddTool(listMessagesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListMessages(ctx, request, sc)
	})

	// Get OAuth URL tool
	getAuthURLTool := mcp.NewTool("google_chat_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize Google Chat access"),
	)

	s.AddTool(getAuthURLTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetAuthURL(ctx, request, sc)
	})

	// Save authorization code tool
	saveAuthCodeTool := mcp.NewTool("google_chat_save_auth_code",
		mcp.WithDescription("Save the OAuth callback URL or authorization code to complete Google Chat authentication"),
		mcp.WithString("auth_code",
			mcp.Required(),
			mcp.Description("The full callback URL from the browser's address bar after authorizing, or the bare authorization code"),
		),
	)

	s.AddTool(saveAuthCodeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSaveAuthCode(ctx, request, sc)
	})

	return nil
}

// chatClient acquires the Chat client, translating a missing authorization
// into instructions for completing the OAuth flow.
func chatClient(ctx context.Context, sc *server.ServerContext) (*chat.Client, error) {
	client, err := sc.ChatClient(ctx)
	if errors.Is(err, google.ErrConsentRequired) {
		authURL := sc.Broker().AuthCodeURL(google.DefaultRedirectURI)
		return nil, fmt.Errorf(`Google Chat is not authorized yet. To authorize access:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google Chat
4. Copy the ENTIRE URL from your browser's address bar after redirection

5. Provide the callback URL to your AI agent
   The agent will use the google_chat_save_auth_code tool to complete authentication.

Note: You only need to authorize once. The tokens will be automatically refreshed.`, authURL)
	}
	return client, err
}

func handleSearchSpaces(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	// An empty query is a valid search that matches every space, so only
	// a missing argument is rejected.
	query, ok := args["query"].(string)
	if !ok {
		return mcp.NewToolResultError("query is required"), nil
	}

	client, err := chatClient(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	spaces, err := client.SearchSpaces(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search spaces: %v", err)), nil
	}

	if len(spaces) == 0 {
		return mcp.NewToolResultText("No chat spaces found matching your query."), nil
	}

	result := fmt.Sprintf("Found %d space(s):\n\n", len(spaces))
	for i, s := range spaces {
		name := s.DisplayName
		if name == "" {
			name = "(unnamed space)"
		}
		result += fmt.Sprintf("%d. %s\n", i+1, name)
		result += fmt.Sprintf("   Resource Name: %s\n", s.Name)
	}

	return mcp.NewToolResultText(result), nil
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	parent, ok := args["parent"].(string)
	if !ok || parent == "" {
		return mcp.NewToolResultError("parent is required"), nil
	}

	filter := ""
	if filterVal, ok := args["filter"].(string); ok {
		filter = filterVal
	}

	client, err := chatClient(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	messages, err := client.ListMessages(ctx, parent, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list messages: %v", err)), nil
	}

	if len(messages) == 0 {
		return mcp.NewToolResultText("No messages found in this space."), nil
	}

	result := fmt.Sprintf("Found %d message(s), newest first:\n\n", len(messages))
	for _, m := range messages {
		result += fmt.Sprintf("[%s] %s: %s\n", m.CreateTime, m.Author, m.Text)
	}

	return mcp.NewToolResultText(result), nil
}

func handleGetAuthURL(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	authURL := sc.Broker().AuthCodeURL(google.DefaultRedirectURI)

	result := fmt.Sprintf(`To authorize Google Chat access:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google Chat
4. Copy the ENTIRE URL from your browser's address bar after redirection

5. Call the google_chat_save_auth_code tool with the callback URL to complete authentication`, authURL)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	authCode, _ := args["auth_code"].(string)
	authCode = strings.TrimSpace(authCode)
	if authCode == "" {
		return mcp.NewToolResultError("auth_code is required"), nil
	}

	// The user may paste the whole callback URL instead of the bare code.
	if strings.Contains(authCode, "://") {
		code, err := google.AuthCodeFromCallback(authCode)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read the callback URL: %v", err)), nil
		}
		authCode = code
	}

	if _, err := sc.Broker().ExchangeCode(ctx, sc.State(), authCode, google.DefaultRedirectURI); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code: %v", err)), nil
	}

	return mcp.NewToolResultText("✅ Authorization successful! Google Chat tokens saved. You can now use the chat_search_spaces and chat_list_messages tools."), nil
}
