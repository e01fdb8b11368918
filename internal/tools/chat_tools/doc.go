// Package chat_tools provides MCP tools for interacting with the Google Chat API.
//
// This package registers tools that allow MCP clients to search the user's
// chat spaces and read messages from them, plus the OAuth pair that
// completes authorization when no tokens are cached yet.
//
// Available tools:
//
// Chat Data (Read):
//   - chat_search_spaces - Find spaces whose display name matches a query
//   - chat_list_messages - List recent messages from a space, newest first
//
// Authorization:
//   - google_chat_get_auth_url - Get the OAuth URL to authorize Google Chat access
//   - google_chat_save_auth_code - Save the callback URL or authorization code to complete authentication
//
// All data tools require OAuth authorization. When no usable tokens exist,
// they return instructions for completing the authorization flow instead of
// failing opaquely.
package chat_tools
