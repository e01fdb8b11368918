// Package google manages the OAuth2 credential for the Google Chat API.
//
// The credential lives in session state as a TokenSet under a single cache
// key. Lifecycle.Resolve is the entry point for tools: it returns the
// cached token when it is still valid, refreshes it silently when a
// refresh token allows that, and otherwise raises an interactive consent
// request through the Broker and reports ErrConsentRequired. The Broker
// also implements the exchange half of the handshake, turning a pasted
// callback URL into tokens.
package google
