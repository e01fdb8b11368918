package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// CredentialRequestFunction is the name of the synthetic function call the
// runner emits when a tool requests user consent, and of the function
// response that resumes the suspended call. It is the only long-running
// function this runtime produces.
const CredentialRequestFunction = "request_credential"

// ErrInvalidCredentialPayload reports a credential payload that crossed the
// runtime boundary in an unexpected shape. This is an integration fault in
// the caller, never a user-facing condition.
var ErrInvalidCredentialPayload = errors.New("invalid credential payload")

// CredentialSpec describes an OAuth2 authorization-code request: where to
// send the user, where to exchange the code, and on whose behalf. It is
// built once per process from configuration and travels unchanged inside
// every credential request the runtime emits.
type CredentialSpec struct {
	// AuthURL and TokenURL are the provider endpoints.
	AuthURL  string `json:"authUrl"`
	TokenURL string `json:"tokenUrl"`

	// Scopes are the access scopes consent is requested for.
	Scopes []string `json:"scopes"`

	// ClientID and ClientSecret identify the OAuth client.
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`

	// AuthURI is the fully parameterized authorization URI, missing only
	// the redirect_uri the presenting side appends.
	AuthURI string `json:"authUri"`
}

// ConsentResult is a completed consent exchange: the tokens minted from the
// authorization code plus the request context they came from. It is
// produced once per consent and consumed exactly once by the suspended
// call it resumes.
type ConsentResult struct {
	AccessToken  string
	RefreshToken string
	RedirectURI  string
	CallbackURL  string
}

// CredentialResponse is the payload of a credential function response: the
// callback URL the user pasted and the redirect URI it was issued for.
type CredentialResponse struct {
	CallbackURL string `json:"callbackUrl"`
	RedirectURI string `json:"redirectUri"`
}

// CredentialExchanger turns a consent callback into tokens. The runner
// calls it exactly once per resumption, before re-running the suspended
// tool call.
type CredentialExchanger interface {
	Exchange(ctx context.Context, resp *CredentialResponse) (*ConsentResult, error)
}

// credentialRequestArgs is the decoded argument payload of an emitted
// credential request.
type credentialRequestArgs struct {
	FunctionCallID string          `json:"functionCallId"`
	Spec           *CredentialSpec `json:"authSpec"`
}

// newCredentialRequestCall builds the function call that announces a
// pending consent for the tool call identified by toolCallID.
func newCredentialRequestCall(id, toolCallID string, spec *CredentialSpec) (*FunctionCall, error) {
	args, err := toArgsMap(credentialRequestArgs{FunctionCallID: toolCallID, Spec: spec})
	if err != nil {
		return nil, fmt.Errorf("encode credential request: %w", err)
	}
	return &FunctionCall{ID: id, Name: CredentialRequestFunction, Args: args}, nil
}

// ParseCredentialRequest validates and decodes the arguments of a
// credential request function call taken from an event stream.
func ParseCredentialRequest(fc *FunctionCall) (*CredentialSpec, error) {
	if fc == nil || fc.Name != CredentialRequestFunction {
		return nil, fmt.Errorf("%w: not a %s call", ErrInvalidCredentialPayload, CredentialRequestFunction)
	}
	var args credentialRequestArgs
	if err := fromArgsMap(fc.Args, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentialPayload, err)
	}
	if args.Spec == nil {
		return nil, fmt.Errorf("%w: missing authSpec", ErrInvalidCredentialPayload)
	}
	if args.Spec.AuthURI == "" {
		return nil, fmt.Errorf("%w: authSpec has no authorization URI", ErrInvalidCredentialPayload)
	}
	return args.Spec, nil
}

// ParseCredentialResponse validates and decodes the payload of a credential
// function response submitted to resume a suspended call.
func ParseCredentialResponse(fr *FunctionResponse) (*CredentialResponse, error) {
	if fr == nil || fr.Name != CredentialRequestFunction {
		return nil, fmt.Errorf("%w: not a %s response", ErrInvalidCredentialPayload, CredentialRequestFunction)
	}
	var resp CredentialResponse
	if err := fromArgsMap(fr.Response, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentialPayload, err)
	}
	if resp.CallbackURL == "" {
		return nil, fmt.Errorf("%w: missing callbackUrl", ErrInvalidCredentialPayload)
	}
	if resp.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing redirectUri", ErrInvalidCredentialPayload)
	}
	return &resp, nil
}

// NewCredentialResponse builds the function response that answers the
// credential request with the given id.
func NewCredentialResponse(requestID, callbackURL, redirectURI string) (*FunctionResponse, error) {
	payload, err := toArgsMap(CredentialResponse{CallbackURL: callbackURL, RedirectURI: redirectURI})
	if err != nil {
		return nil, fmt.Errorf("encode credential response: %w", err)
	}
	return &FunctionResponse{ID: requestID, Name: CredentialRequestFunction, Response: payload}, nil
}

// credentialResponsePart returns the credential function response carried
// by the content, or nil when the content is ordinary user input.
func credentialResponsePart(c *Content) *FunctionResponse {
	if c == nil {
		return nil
	}
	for _, p := range c.Parts {
		if p.FunctionResponse != nil && p.FunctionResponse.Name == CredentialRequestFunction {
			return p.FunctionResponse
		}
	}
	return nil
}

// toArgsMap and fromArgsMap convert between typed payloads and the untyped
// maps that function calls carry, going through JSON so field tags decide
// the shape on both sides.
func toArgsMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromArgsMap(m map[string]any, v any) error {
	if m == nil {
		return errors.New("empty payload")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
