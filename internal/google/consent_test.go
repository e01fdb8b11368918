package google

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/chatscout/internal/runtime"
)

func TestBrokerSpecShape(t *testing.T) {
	_, broker, _ := newTestAuth(t, &fakeTokenEndpoint{})

	spec := broker.Spec()
	require.NotNil(t, spec)
	assert.Equal(t, "client-id", spec.ClientID)
	assert.Equal(t, "client-secret", spec.ClientSecret)
	assert.Equal(t, DefaultOAuthScopes, spec.Scopes)

	u, err := url.Parse(spec.AuthURI)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, strings.Join(DefaultOAuthScopes, " "), q.Get("scope"))
	assert.Empty(t, q.Get("redirect_uri"), "the consumer appends the redirect URI")
}

func TestBrokerAuthCodeURLAppendsRedirect(t *testing.T) {
	_, broker, _ := newTestAuth(t, &fakeTokenEndpoint{})

	u, err := url.Parse(broker.AuthCodeURL("http://localhost:8000/callback"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "http://localhost:8000/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline", q.Get("access_type"))
}

func TestBrokerBeginOrContinueRaisesRequest(t *testing.T) {
	_, broker, store := newTestAuth(t, &fakeTokenEndpoint{})
	tc := newToolContext(t)

	tok, err := broker.BeginOrContinue(tc)
	require.ErrorIs(t, err, ErrConsentRequired)
	assert.Nil(t, tok)
	assert.Same(t, broker.Spec(), tc.PendingCredential())

	_, err = store.Get(tc.State())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestBrokerExchangeParsesCallbackURL(t *testing.T) {
	ep := &fakeTokenEndpoint{payload: map[string]any{
		"access_token":  "at",
		"token_type":    "Bearer",
		"refresh_token": "rt",
		"expires_in":    3600,
	}}
	_, broker, _ := newTestAuth(t, ep)

	res, err := broker.Exchange(context.Background(), &runtime.CredentialResponse{
		CallbackURL: "http://localhost:8000/callback?state=state&code=auth-code",
		RedirectURI: "http://localhost:8000/callback",
	})
	require.NoError(t, err)

	assert.Equal(t, "at", res.AccessToken)
	assert.Equal(t, "rt", res.RefreshToken)
	assert.Equal(t, "http://localhost:8000/callback", res.RedirectURI)
	assert.EqualValues(t, 1, ep.hits.Load())

	form := ep.form()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "auth-code", form.Get("code"))
	assert.Equal(t, "http://localhost:8000/callback", form.Get("redirect_uri"))
	assert.Equal(t, "client-id", form.Get("client_id"))
}

func TestBrokerExchangeRejectsBadCallbacks(t *testing.T) {
	tests := []struct {
		name        string
		callbackURL string
	}{
		{
			name:        "no code parameter",
			callbackURL: "http://localhost:8000/callback?state=state",
		},
		{
			name:        "consent denied",
			callbackURL: "http://localhost:8000/callback?error=access_denied",
		},
		{
			name:        "not a URL",
			callbackURL: "http://[::1]:namedport/callback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := &fakeTokenEndpoint{}
			_, broker, _ := newTestAuth(t, ep)

			_, err := broker.Exchange(context.Background(), &runtime.CredentialResponse{
				CallbackURL: tt.callbackURL,
				RedirectURI: "http://localhost:8000/callback",
			})
			assert.Error(t, err)
			assert.EqualValues(t, 0, ep.hits.Load(), "a bad callback never reaches the token endpoint")
		})
	}
}

func TestBrokerExchangeCodeCachesTokens(t *testing.T) {
	ep := &fakeTokenEndpoint{payload: map[string]any{
		"access_token":  "at",
		"token_type":    "Bearer",
		"refresh_token": "rt",
		"expires_in":    3600,
	}}
	_, broker, store := newTestAuth(t, ep)
	tc := newToolContext(t)

	set, err := broker.ExchangeCode(context.Background(), tc.State(), "raw-code", "http://localhost:8000/callback")
	require.NoError(t, err)
	assert.Equal(t, "at", set.AccessToken)
	assert.Equal(t, "rt", set.RefreshToken)

	form := ep.form()
	assert.Equal(t, "raw-code", form.Get("code"))
	assert.Equal(t, "http://localhost:8000/callback", form.Get("redirect_uri"))

	cached, err := store.Get(tc.State())
	require.NoError(t, err)
	assert.Equal(t, "at", cached.AccessToken)
}
