package runtime

import (
	"errors"
	"reflect"
	"testing"
)

func testSpec() *CredentialSpec {
	return &CredentialSpec{
		AuthURL:      "https://accounts.google.com/o/oauth2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		Scopes:       []string{"https://www.googleapis.com/auth/chat.spaces.readonly"},
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth?client_id=client-id&response_type=code",
	}
}

func TestCredentialRequestRoundTrip(t *testing.T) {
	spec := testSpec()

	fc, err := newCredentialRequestCall("req-1", "call-1", spec)
	if err != nil {
		t.Fatalf("newCredentialRequestCall() error = %v", err)
	}
	if fc.Name != CredentialRequestFunction {
		t.Errorf("call name = %q, want %q", fc.Name, CredentialRequestFunction)
	}
	if fc.Args["functionCallId"] != "call-1" {
		t.Errorf("functionCallId = %v, want %q", fc.Args["functionCallId"], "call-1")
	}

	got, err := ParseCredentialRequest(fc)
	if err != nil {
		t.Fatalf("ParseCredentialRequest() error = %v", err)
	}
	if !reflect.DeepEqual(got, spec) {
		t.Errorf("decoded spec differs:\n got %+v\nwant %+v", got, spec)
	}
}

func TestParseCredentialRequestRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		fc   *FunctionCall
	}{
		{
			name: "nil call",
			fc:   nil,
		},
		{
			name: "wrong function name",
			fc:   &FunctionCall{Name: "search_all_chat_spaces"},
		},
		{
			name: "no args",
			fc:   &FunctionCall{Name: CredentialRequestFunction},
		},
		{
			name: "missing spec",
			fc:   &FunctionCall{Name: CredentialRequestFunction, Args: map[string]any{"functionCallId": "x"}},
		},
		{
			name: "spec without auth uri",
			fc: &FunctionCall{Name: CredentialRequestFunction, Args: map[string]any{
				"functionCallId": "x",
				"authSpec":       map[string]any{"clientId": "c"},
			}},
		},
		{
			name: "spec of wrong type",
			fc: &FunctionCall{Name: CredentialRequestFunction, Args: map[string]any{
				"functionCallId": "x",
				"authSpec":       "not an object",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCredentialRequest(tt.fc)
			if err == nil {
				t.Fatal("ParseCredentialRequest() accepted malformed payload")
			}
			if !errors.Is(err, ErrInvalidCredentialPayload) {
				t.Errorf("error = %v, want ErrInvalidCredentialPayload", err)
			}
		})
	}
}

func TestCredentialResponseRoundTrip(t *testing.T) {
	fr, err := NewCredentialResponse("req-1", "http://localhost:8000/callback?code=abc", "http://localhost:8000/callback")
	if err != nil {
		t.Fatalf("NewCredentialResponse() error = %v", err)
	}
	if fr.ID != "req-1" || fr.Name != CredentialRequestFunction {
		t.Errorf("response addressing = %q/%q", fr.ID, fr.Name)
	}

	resp, err := ParseCredentialResponse(fr)
	if err != nil {
		t.Fatalf("ParseCredentialResponse() error = %v", err)
	}
	if resp.CallbackURL != "http://localhost:8000/callback?code=abc" {
		t.Errorf("CallbackURL = %q", resp.CallbackURL)
	}
	if resp.RedirectURI != "http://localhost:8000/callback" {
		t.Errorf("RedirectURI = %q", resp.RedirectURI)
	}
}

func TestParseCredentialResponseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		fr   *FunctionResponse
	}{
		{
			name: "nil response",
			fr:   nil,
		},
		{
			name: "wrong name",
			fr:   &FunctionResponse{Name: "other", Response: map[string]any{"callbackUrl": "x", "redirectUri": "y"}},
		},
		{
			name: "empty payload",
			fr:   &FunctionResponse{Name: CredentialRequestFunction},
		},
		{
			name: "missing callback",
			fr:   &FunctionResponse{Name: CredentialRequestFunction, Response: map[string]any{"redirectUri": "y"}},
		},
		{
			name: "missing redirect",
			fr:   &FunctionResponse{Name: CredentialRequestFunction, Response: map[string]any{"callbackUrl": "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCredentialResponse(tt.fr)
			if err == nil {
				t.Fatal("ParseCredentialResponse() accepted malformed payload")
			}
			if !errors.Is(err, ErrInvalidCredentialPayload) {
				t.Errorf("error = %v, want ErrInvalidCredentialPayload", err)
			}
		})
	}
}

func TestEventCredentialRequest(t *testing.T) {
	authCall, err := newCredentialRequestCall("req-9", "call-9", testSpec())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ev   *Event
		want bool
	}{
		{
			name: "credential request with long-running id",
			ev: &Event{
				Content:            &Content{Role: RoleModel, Parts: []Part{{FunctionCall: authCall}}},
				LongRunningToolIDs: []string{"req-9"},
			},
			want: true,
		},
		{
			name: "same call without long-running marker",
			ev: &Event{
				Content: &Content{Role: RoleModel, Parts: []Part{{FunctionCall: authCall}}},
			},
			want: false,
		},
		{
			name: "ordinary tool call marked long-running",
			ev: &Event{
				Content:            &Content{Role: RoleModel, Parts: []Part{{FunctionCall: &FunctionCall{ID: "req-9", Name: "search_all_chat_spaces"}}}},
				LongRunningToolIDs: []string{"req-9"},
			},
			want: false,
		},
		{
			name: "text only event",
			ev: &Event{
				Content: &Content{Role: RoleModel, Parts: []Part{{Text: "hi"}}},
			},
			want: false,
		},
		{
			name: "nil content",
			ev:   &Event{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ev.CredentialRequest()
			if (got != nil) != tt.want {
				t.Errorf("CredentialRequest() = %v, want present=%v", got, tt.want)
			}
		})
	}
}
