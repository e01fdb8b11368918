package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the key-value store attached to a session. Tools use it to
// persist data across turns, most importantly cached OAuth tokens.
//
// A conversation advances strictly one turn at a time, but the MCP serve
// mode can hit the same state from concurrent tool calls, so access is
// guarded.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState returns an empty state.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Get returns the value stored under key and whether it was present.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key from the state. Deleting an absent key is a no-op.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Len returns the number of stored keys.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Session is one conversation: identity, shared state and the content
// history fed to the model on every turn.
type Session struct {
	ID       string
	AppName  string
	UserID   string
	Created  time.Time
	state    *State
	mu       sync.Mutex
	contents []*Content
}

// State returns the session's key-value state.
func (s *Session) State() *State {
	return s.state
}

// AddContent appends a content entry to the conversation history.
func (s *Session) AddContent(c *Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents = append(s.contents, c)
}

// Contents returns a copy of the conversation history in order.
func (s *Session) Contents() []*Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Content, len(s.contents))
	copy(out, s.contents)
	return out
}

// newChildSession derives an ephemeral session for a delegated agent run.
// The child gets its own empty history but shares the parent's state, so
// tools of the delegate see the same credential cache.
func newChildSession(parent *Session) *Session {
	return &Session{
		ID:      uuid.NewString(),
		AppName: parent.AppName,
		UserID:  parent.UserID,
		Created: time.Now(),
		state:   parent.state,
	}
}

// SessionService manages conversation sessions.
type SessionService interface {
	// Create registers a new session. An empty sessionID is replaced by a
	// generated one.
	Create(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// Get returns the session with the given id.
	Get(ctx context.Context, sessionID string) (*Session, error)
}

// InMemorySessionService keeps sessions in a mutex-guarded map. It is the
// only implementation this process needs; sessions live as long as the
// process does.
type InMemorySessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemorySessionService returns an empty session service.
func NewInMemorySessionService() *InMemorySessionService {
	return &InMemorySessionService{sessions: make(map[string]*Session)}
}

// Create registers a new session with empty state and history.
func (s *InMemorySessionService) Create(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; exists {
		return nil, fmt.Errorf("session %q already exists", sessionID)
	}

	session := &Session{
		ID:      sessionID,
		AppName: appName,
		UserID:  userID,
		Created: time.Now(),
		state:   NewState(),
	}
	s.sessions[sessionID] = session
	return session, nil
}

// Get returns the session with the given id, or an error if unknown.
func (s *InMemorySessionService) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session %q", sessionID)
	}
	return session, nil
}
