package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/runtime"
)

// scriptedModel replays canned response streams, one per GenerateStream
// call, and records the requests it saw.
type scriptedModel struct {
	scripts  [][]*runtime.Chunk
	requests []*runtime.Request
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) GenerateStream(ctx context.Context, req *runtime.Request) (<-chan *runtime.Chunk, error) {
	m.requests = append(m.requests, req)
	if len(m.requests) > len(m.scripts) {
		return nil, fmt.Errorf("unexpected model call %d", len(m.requests))
	}
	script := m.scripts[len(m.requests)-1]
	ch := make(chan *runtime.Chunk, len(script))
	for _, c := range script {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// tokenEndpoint fakes the OAuth token endpoint, counting exchanges and
// capturing the last form it was sent.
type tokenEndpoint struct {
	hits atomic.Int64

	mu       sync.Mutex
	lastForm url.Values
}

func (e *tokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.hits.Add(1)
	_ = r.ParseForm()
	e.mu.Lock()
	e.lastForm = r.Form
	e.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"access_token":"minted-access","refresh_token":"minted-refresh","expires_in":3600,"token_type":"Bearer"}`)
}

func (e *tokenEndpoint) form() url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastForm
}

// driverFixture wires a TurnDriver to a real runner, a credential-guarded
// search tool and an in-process token endpoint. Only the model and the user
// are scripted.
type driverFixture struct {
	driver   *TurnDriver
	out      *bytes.Buffer
	model    *scriptedModel
	store    *google.Store
	session  *runtime.Session
	endpoint *tokenEndpoint
	toolRuns atomic.Int64
	pastes   []string
	prompts  []string
}

func newDriverFixture(t *testing.T, scripts ...[]*runtime.Chunk) *driverFixture {
	t.Helper()

	f := &driverFixture{
		out:      &bytes.Buffer{},
		model:    &scriptedModel{scripts: scripts},
		endpoint: &tokenEndpoint{},
	}

	srv := httptest.NewServer(f.endpoint)
	t.Cleanup(srv.Close)

	conf := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: google.DefaultOAuthScopes,
	}

	f.store = google.NewStore()
	broker := google.NewBroker(conf, f.store)
	auth := google.NewLifecycle(conf, f.store, broker)

	agent := &runtime.Agent{
		Name:        "orchestrator_agent",
		Model:       f.model,
		Instruction: "Answer with the chat tools.",
		Tools:       []runtime.Tool{f.newSearchTool(auth)},
	}

	sessions := runtime.NewInMemorySessionService()
	sess, err := sessions.Create(context.Background(), "chat-agent-cli", "cli-user", "")
	require.NoError(t, err)
	f.session = sess

	runner := runtime.NewRunner(agent, sessions, broker)
	f.driver = NewTurnDriver(runner, sess.ID, f.out, f.promptFunc)
	return f
}

func (f *driverFixture) newSearchTool(auth *google.Lifecycle) runtime.Tool {
	decl := &runtime.Declaration{
		Name:        "search_all_chat_spaces",
		Description: "Searches chat spaces by name.",
		Parameters: &runtime.Schema{
			Type: "object",
			Properties: map[string]*runtime.Schema{
				"query": {Type: "string", Description: "Substring to match against space names."},
			},
			Required: []string{"query"},
		},
	}
	return runtime.NewFuncTool(decl, func(ctx context.Context, tc *runtime.ToolContext, args map[string]any) (map[string]any, error) {
		f.toolRuns.Add(1)
		tok, err := auth.Resolve(ctx, tc)
		if errors.Is(err, google.ErrConsentRequired) {
			return map[string]any{"status": "pending", "message": "Awaiting user authentication."}, nil
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "success", "token": tok.AccessToken}, nil
	})
}

func (f *driverFixture) promptFunc(prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.pastes) == 0 {
		return "", fmt.Errorf("unexpected consent prompt")
	}
	next := f.pastes[0]
	f.pastes = f.pastes[1:]
	return next, nil
}

func searchCall(query string) *runtime.Chunk {
	return &runtime.Chunk{Calls: []*runtime.FunctionCall{{
		Name: "search_all_chat_spaces",
		Args: map[string]any{"query": query},
	}}}
}

func TestTurnStreamsPlainAnswer(t *testing.T) {
	f := newDriverFixture(t, []*runtime.Chunk{{Text: "Hello"}, {Text: " there."}})

	require.NoError(t, f.driver.Turn(context.Background(), "hi"))

	assert.Equal(t, "\nAgent > Hello there.\n", f.out.String())
	require.Len(t, f.model.requests, 1)
	contents := f.model.requests[0].Contents
	require.NotEmpty(t, contents)
	assert.Equal(t, "hi", contents[len(contents)-1].Text())
	assert.Empty(t, f.prompts)
}

func TestTurnWhitespacePasteCancelsConsent(t *testing.T) {
	f := newDriverFixture(t, []*runtime.Chunk{searchCall("eng")})
	f.pastes = []string{"   \t  "}

	require.NoError(t, f.driver.Turn(context.Background(), "find the eng spaces"))

	out := f.out.String()
	assert.Contains(t, out, "--- AUTHENTICATION REQUIRED ---")
	assert.Contains(t, out, "Authentication cancelled.")
	assert.Equal(t, 1, strings.Count(out, "\nAgent > "), "a cancelled turn must not resume")

	assert.EqualValues(t, 0, f.endpoint.hits.Load(), "cancellation must not touch the token endpoint")
	assert.EqualValues(t, 1, f.toolRuns.Load())
	assert.Len(t, f.model.requests, 1)

	_, err := f.store.Get(f.session.State())
	assert.ErrorIs(t, err, google.ErrNoToken)

	require.Len(t, f.prompts, 1)
	assert.Equal(t, "\n4. Paste the full callback URL here and press Enter:\n> ", f.prompts[0])
}

func TestTurnCompletesConsentHandshake(t *testing.T) {
	f := newDriverFixture(t,
		[]*runtime.Chunk{searchCall("eng")},
		[]*runtime.Chunk{{Text: "All set."}},
		[]*runtime.Chunk{searchCall("eng again")},
		[]*runtime.Chunk{{Text: "Still here."}},
	)
	f.pastes = []string{"http://localhost:8000/callback?state=state&code=split-code"}

	require.NoError(t, f.driver.Turn(context.Background(), "find the eng spaces"))

	out := f.out.String()
	assert.Equal(t, 1, strings.Count(out, "--- AUTHENTICATION REQUIRED ---"))
	assert.Contains(t, out, "redirect_uri=http%3A%2F%2Flocalhost%3A8000%2Fcallback")
	assert.Contains(t, out, "state=state")
	assert.Contains(t, out, "All set.")
	assert.Equal(t, 2, strings.Count(out, "\nAgent > "), "one stream plus one resumption")

	assert.EqualValues(t, 1, f.endpoint.hits.Load(), "the callback is exchanged exactly once")
	form := f.endpoint.form()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "split-code", form.Get("code"))
	assert.Equal(t, google.DefaultRedirectURI, form.Get("redirect_uri"))

	tok, err := f.store.Get(f.session.State())
	require.NoError(t, err)
	assert.Equal(t, "minted-access", tok.AccessToken)
	assert.Equal(t, "minted-refresh", tok.RefreshToken)

	assert.EqualValues(t, 2, f.toolRuns.Load(), "the suspended call re-runs exactly once")
	require.Len(t, f.model.requests, 2)
	resumed := f.model.requests[1].Contents
	last := resumed[len(resumed)-1]
	require.Len(t, last.Parts, 1)
	fr := last.Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "search_all_chat_spaces", fr.Name)
	assert.Equal(t, "success", fr.Response["status"])

	// A later turn runs on the cached tokens without a fresh handshake.
	require.NoError(t, f.driver.Turn(context.Background(), "search again"))

	out = f.out.String()
	assert.Equal(t, 1, strings.Count(out, "--- AUTHENTICATION REQUIRED ---"), "cached tokens must not trigger another consent")
	assert.Contains(t, out, "Still here.")
	assert.EqualValues(t, 1, f.endpoint.hits.Load())
	assert.Empty(t, f.pastes)
}

func TestTurnSurfacesModelFailure(t *testing.T) {
	f := newDriverFixture(t, []*runtime.Chunk{{Err: errors.New("model unavailable")}})

	err := f.driver.Turn(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorContains(t, err, "model unavailable")
	assert.Empty(t, f.out.String())
}

func TestConsentURLAppendsRedirectParameter(t *testing.T) {
	got, err := consentURL("https://accounts.example.com/auth?response_type=code&client_id=x", google.DefaultRedirectURI)
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.example.com/auth?response_type=code&client_id=x&redirect_uri=http%3A%2F%2Flocalhost%3A8000%2Fcallback", got)

	_, err = consentURL("", google.DefaultRedirectURI)
	assert.Error(t, err)
}
