package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

// TokenCacheKey is the session state key the user's Chat tokens live under.
const TokenCacheKey = "google_chat_user_tokens"

var (
	// ErrNoToken reports an empty credential cache.
	ErrNoToken = errors.New("no cached token")

	// ErrCorruptToken reports a cache entry that cannot be decoded.
	ErrCorruptToken = errors.New("corrupt cached token")
)

// Store reads and writes the cached TokenSet in session state. Entries are
// stored as plain JSON maps, never as package types, so the state remains
// serializable data.
type Store struct {
	logger *slog.Logger
}

// NewStore creates a token store.
func NewStore() *Store {
	return &Store{logger: logging.WithComponent(slog.Default(), "auth")}
}

// Get returns the cached token set. ErrNoToken means the cache is empty.
// ErrCorruptToken means an entry exists but is unusable; callers decide
// whether to clear it.
func (s *Store) Get(state *runtime.State) (*TokenSet, error) {
	raw, ok := state.Get(TokenCacheKey)
	if !ok {
		return nil, ErrNoToken
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptToken, err)
	}
	var tok TokenSet
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptToken, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", ErrCorruptToken)
	}

	return &tok, nil
}

// Put caches the token set, replacing any previous entry.
func (s *Store) Put(state *runtime.State, tok *TokenSet) error {
	if tok == nil {
		return fmt.Errorf("token set must not be nil")
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token set: %w", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		return fmt.Errorf("failed to encode token set: %w", err)
	}

	state.Set(TokenCacheKey, entry)
	s.logger.Debug("cached token set",
		"access_token", logging.SanitizeToken(tok.AccessToken),
		"has_refresh_token", tok.RefreshToken != "")
	return nil
}

// Clear empties the credential cache.
func (s *Store) Clear(state *runtime.State) {
	state.Delete(TokenCacheKey)
	s.logger.Debug("cleared token cache")
}
