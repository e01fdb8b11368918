package server

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/chatscout/internal/chat"
	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

// ServerContext holds the shared state of the MCP server: one process-wide
// session whose state backs the token cache, the credential machinery built
// over it, and the Google Chat client derived from the current tokens.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	session  *runtime.Session
	store    *google.Store
	broker   *google.Broker
	auth     *google.Lifecycle
	chatOpts []option.ClientOption

	mu         sync.RWMutex
	chatClient *chat.Client
	chatToken  string
	shutdown   bool

	logger *slog.Logger
}

// NewServerContext creates a new server context with an empty token cache.
// Tools acquire the Chat client lazily; until the user authorizes, every
// acquisition reports that consent is required. Extra client options are
// passed through to the Chat client, so tests can point it at a fake
// endpoint.
func NewServerContext(ctx context.Context, conf *oauth2.Config, chatOpts ...option.ClientOption) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sessions := runtime.NewInMemorySessionService()
	session, err := sessions.Create(shutdownCtx, "chatscout-mcp", "mcp-user", "")
	if err != nil {
		cancel()
		return nil, err
	}

	store := google.NewStore()
	broker := google.NewBroker(conf, store)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		session:  session,
		store:    store,
		broker:   broker,
		auth:     google.NewLifecycle(conf, store, broker),
		chatOpts: chatOpts,
		logger:   logging.WithComponent(slog.Default(), "server"),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// State returns the session state backing the token cache.
func (sc *ServerContext) State() *runtime.State {
	return sc.session.State()
}

// Store returns the token store.
func (sc *ServerContext) Store() *google.Store {
	return sc.store
}

// Broker returns the consent broker.
func (sc *ServerContext) Broker() *google.Broker {
	return sc.broker
}

// ChatClient returns a Google Chat client over the current tokens, creating
// or refreshing it as needed. Before the user has authorized it returns
// google.ErrConsentRequired.
func (sc *ServerContext) ChatClient(ctx context.Context) (*chat.Client, error) {
	tok, err := sc.auth.Resolve(ctx, runtime.NewToolContext(sc.session, ""))
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Reuse the cached client as long as the access token it was built
	// with is still the current one.
	if sc.chatClient != nil && sc.chatToken == tok.AccessToken {
		return sc.chatClient, nil
	}

	client, err := chat.NewClient(sc.ctx, tok.HTTPClient(sc.ctx), sc.chatOpts...)
	if err != nil {
		return nil, err
	}
	sc.chatClient = client
	sc.chatToken = tok.AccessToken
	return client, nil
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
