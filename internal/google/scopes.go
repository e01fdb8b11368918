package google

// DefaultOAuthScopes are the Google OAuth scopes the assistant requests.
// Both are read-only: the assistant never writes to Chat.
//
// The scopes provide access to:
//   - Chat spaces: list the spaces the user is a member of
//   - Chat messages: read messages in those spaces
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/chat.spaces.readonly",
	"https://www.googleapis.com/auth/chat.messages.readonly",
}
