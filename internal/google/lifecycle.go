package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

// Lifecycle resolves the Chat credential for one tool call: the cached
// token when it is still valid, a silent refresh when possible, and
// interactive consent through the broker otherwise.
type Lifecycle struct {
	conf   *oauth2.Config
	store  *Store
	broker *Broker
	logger *slog.Logger
}

// NewLifecycle wires a lifecycle over the shared OAuth configuration,
// token store, and consent broker.
func NewLifecycle(conf *oauth2.Config, store *Store, broker *Broker) *Lifecycle {
	return &Lifecycle{
		conf:   conf,
		store:  store,
		broker: broker,
		logger: logging.WithComponent(slog.Default(), "auth"),
	}
}

// Resolve returns a usable token set, or ErrConsentRequired after raising
// a credential request on the tool context. A valid cached token is
// returned without any network traffic. Cache corruption clears the cache;
// a failed refresh leaves it in place. Both fall through to consent rather
// than surfacing to the caller.
func (l *Lifecycle) Resolve(ctx context.Context, tc *runtime.ToolContext) (*TokenSet, error) {
	logger := l.logger.With(logging.Operation("resolve"))

	cached, err := l.store.Get(tc.State())
	switch {
	case err == nil:
		if cached.Valid() {
			logger.Debug("using cached token",
				"access_token", logging.SanitizeToken(cached.AccessToken))
			return cached, nil
		}
		if cached.CanRefresh() {
			refreshed, rerr := l.refresh(ctx, cached)
			if rerr == nil {
				if perr := l.store.Put(tc.State(), refreshed); perr != nil {
					return nil, perr
				}
				logger.Info("token refreshed", logging.Status(logging.StatusSuccess))
				return refreshed, nil
			}
			logger.Debug("token refresh failed, falling back to consent", logging.Err(rerr))
		} else {
			logger.Debug("cached token expired without refresh token")
		}
	case errors.Is(err, ErrCorruptToken):
		logger.Warn("clearing corrupt token cache", logging.Err(err))
		l.store.Clear(tc.State())
	case errors.Is(err, ErrNoToken):
		logger.Debug("token cache empty")
	default:
		return nil, err
	}

	return l.broker.BeginOrContinue(tc)
}

// refresh renews the access token at the token endpoint. The oauth2 token
// source carries the old refresh token forward when the endpoint does not
// issue a new one.
func (l *Lifecycle) refresh(ctx context.Context, tok *TokenSet) (*TokenSet, error) {
	fresh, err := l.conf.TokenSource(ctx, tok.oauth2Token()).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	scopes := tok.Scopes
	if len(scopes) == 0 {
		scopes = l.conf.Scopes
	}
	return newTokenSet(fresh, l.conf.Endpoint.TokenURL, scopes), nil
}
