package google

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenSet is the cached Chat API credential for one user. It is flat JSON
// data so it survives the untyped session state boundary.
type TokenSet struct {
	// AccessToken authorizes Chat API calls until Expiry.
	AccessToken string `json:"access_token"`

	// RefreshToken allows silent renewal. Without one, an expired access
	// token can only be replaced by running interactive consent again.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenURI is the endpoint refresh requests are sent to.
	TokenURI string `json:"token_uri,omitempty"`

	// Scopes are the access scopes the token was granted for.
	Scopes []string `json:"scopes,omitempty"`

	// Expiry is when the access token stops working. The zero time means
	// the token does not report an expiry.
	Expiry time.Time `json:"expiry,omitempty"`
}

// Valid reports whether the access token is usable right now, applying the
// same expiry slack the oauth2 package uses. It never touches the network.
func (t *TokenSet) Valid() bool {
	return t != nil && t.oauth2Token().Valid()
}

// CanRefresh reports whether the set carries a refresh token.
func (t *TokenSet) CanRefresh() bool {
	return t != nil && t.RefreshToken != ""
}

// TokenSource returns a static source over the access token, for building
// API clients. Renewal stays with the lifecycle, so the source never
// refreshes on its own.
func (t *TokenSet) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(t.oauth2Token())
}

// HTTPClient returns an HTTP client that authorizes requests with the
// access token.
func (t *TokenSet) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, t.TokenSource())
}

func (t *TokenSet) oauth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

// newTokenSet records an oauth2 token together with the endpoint and scopes
// it was issued against.
func newTokenSet(tok *oauth2.Token, tokenURI string, scopes []string) *TokenSet {
	return &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     tokenURI,
		Scopes:       append([]string(nil), scopes...),
		Expiry:       tok.Expiry,
	}
}
