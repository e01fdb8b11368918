package google

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Environment variables carrying the OAuth client credentials.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
)

// DefaultRedirectURI is the loopback redirect registered for the installed
// application. No listener is bound to it; the user copies the callback URL
// out of the browser by hand.
const DefaultRedirectURI = "http://localhost:8000/callback"

// Config carries the OAuth client credentials of the installed application.
type Config struct {
	ClientID     string
	ClientSecret string
}

// ConfigFromEnv reads the client credentials from the environment. All
// missing variables are reported by name in one error.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
	}

	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// OAuthConfig builds the oauth2 configuration for the Chat scopes against
// the Google endpoints. No redirect URL is baked in; each flow supplies the
// redirect URI it was started with.
func (c Config) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       DefaultOAuthScopes,
	}
}
