package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

// ErrConsentRequired reports that credential resolution cannot proceed
// without user consent. By the time a caller sees it, the credential
// request has already been recorded on the tool context; the tool should
// return its pending result and let the turn suspend.
var ErrConsentRequired = errors.New("user consent required")

// Broker runs the interactive half of the credential lifecycle. It owns the
// one credential spec every consent request carries, raises requests
// through the tool context, and exchanges completed consents for tokens.
type Broker struct {
	conf   *oauth2.Config
	store  *Store
	spec   *runtime.CredentialSpec
	logger *slog.Logger
}

// NewBroker builds a broker over the given OAuth configuration. The
// credential spec is derived once here; every request the broker raises
// shares it.
func NewBroker(conf *oauth2.Config, store *Store) *Broker {
	return &Broker{
		conf:   conf,
		store:  store,
		spec:   specFromConfig(conf),
		logger: logging.WithComponent(slog.Default(), "auth"),
	}
}

func specFromConfig(conf *oauth2.Config) *runtime.CredentialSpec {
	return &runtime.CredentialSpec{
		AuthURL:      conf.Endpoint.AuthURL,
		TokenURL:     conf.Endpoint.TokenURL,
		Scopes:       append([]string(nil), conf.Scopes...),
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		AuthURI:      conf.AuthCodeURL("state", oauth2.AccessTypeOffline),
	}
}

// Spec returns the credential spec shared by all consent requests.
func (b *Broker) Spec() *runtime.CredentialSpec {
	return b.spec
}

// AuthCodeURL returns the consent page URL for the given redirect URI.
func (b *Broker) AuthCodeURL(redirectURI string) string {
	return b.conf.AuthCodeURL("state", oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("redirect_uri", redirectURI))
}

// BeginOrContinue finishes consent when the runtime attached a completed
// exchange to this call, minting and caching a token set from it.
// Otherwise it raises a credential request on the tool context and reports
// ErrConsentRequired.
func (b *Broker) BeginOrContinue(tc *runtime.ToolContext) (*TokenSet, error) {
	if res := tc.ConsentResult(); res != nil {
		tok := &TokenSet{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			TokenURI:     b.conf.Endpoint.TokenURL,
			Scopes:       append([]string(nil), b.conf.Scopes...),
		}
		if err := b.store.Put(tc.State(), tok); err != nil {
			return nil, err
		}
		b.logger.Info("consent completed, token cached", logging.Status(logging.StatusSuccess))
		return tok, nil
	}

	tc.RequestCredential(b.spec)
	b.logger.Info("credential request raised", logging.Status(logging.StatusPending))
	return nil, ErrConsentRequired
}

// Exchange turns a pasted callback URL into tokens. It parses the
// authorization code out of the URL and redeems it at the token endpoint,
// presenting the redirect URI the code was issued for. It implements
// runtime.CredentialExchanger.
func (b *Broker) Exchange(ctx context.Context, resp *runtime.CredentialResponse) (*runtime.ConsentResult, error) {
	code, err := AuthCodeFromCallback(resp.CallbackURL)
	if err != nil {
		return nil, err
	}

	tok, err := b.conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam("redirect_uri", resp.RedirectURI))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	b.logger.Info("authorization code exchanged",
		logging.Status(logging.StatusSuccess),
		"access_token", logging.SanitizeToken(tok.AccessToken))
	return &runtime.ConsentResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		RedirectURI:  resp.RedirectURI,
		CallbackURL:  resp.CallbackURL,
	}, nil
}

// ExchangeCode redeems a bare authorization code and caches the resulting
// token set. It serves flows where the user pastes the code itself rather
// than the full callback URL.
func (b *Broker) ExchangeCode(ctx context.Context, state *runtime.State, code, redirectURI string) (*TokenSet, error) {
	opts := []oauth2.AuthCodeOption{}
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	tok, err := b.conf.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	set := newTokenSet(tok, b.conf.Endpoint.TokenURL, b.conf.Scopes)
	if err := b.store.Put(state, set); err != nil {
		return nil, err
	}
	return set, nil
}

// AuthCodeFromCallback extracts the code query parameter from a callback
// URL. An error parameter in the URL means the user denied access on the
// consent page.
func AuthCodeFromCallback(callbackURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(callbackURL))
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}

	q := u.Query()
	if denial := q.Get("error"); denial != "" {
		return "", fmt.Errorf("authorization was denied: %s", denial)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("callback URL carries no authorization code")
	}
	return code, nil
}
