package runtime

import "context"

// Schema is the subset of JSON Schema the model backend understands for
// tool parameter declarations.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Declaration describes a tool to the model backend.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Tool is a callable exposed to an agent. Run returns the structured result
// that becomes the function response; errors are reserved for faults the
// model cannot act on.
type Tool interface {
	Name() string
	Declaration() *Declaration
	Run(ctx context.Context, tc *ToolContext, args map[string]any) (map[string]any, error)
}

// ToolFunc is the signature of a plain tool function.
type ToolFunc func(ctx context.Context, tc *ToolContext, args map[string]any) (map[string]any, error)

// FuncTool adapts a ToolFunc and its declaration into a Tool.
type FuncTool struct {
	decl *Declaration
	fn   ToolFunc
}

// NewFuncTool wraps fn as a Tool described by decl.
func NewFuncTool(decl *Declaration, fn ToolFunc) *FuncTool {
	return &FuncTool{decl: decl, fn: fn}
}

// Name returns the declared tool name.
func (t *FuncTool) Name() string { return t.decl.Name }

// Declaration returns the tool declaration.
func (t *FuncTool) Declaration() *Declaration { return t.decl }

// Run invokes the wrapped function.
func (t *FuncTool) Run(ctx context.Context, tc *ToolContext, args map[string]any) (map[string]any, error) {
	return t.fn(ctx, tc, args)
}

// ToolContext is handed to a tool for the duration of one call. It exposes
// session state and the credential handshake: a tool that cannot proceed
// without user consent records a credential request and the runner turns it
// into a pending signal on the event stream.
type ToolContext struct {
	inv    *invocation
	sess   *Session
	callID string

	credentialRequest *CredentialSpec
	consentResult     *ConsentResult
}

// NewToolContext builds a standalone tool context over the given session,
// for callers that invoke tools directly instead of through a runner, such
// as the MCP server mode. Delegation to agent tools is unavailable on a
// standalone context.
func NewToolContext(sess *Session, callID string) *ToolContext {
	return &ToolContext{sess: sess, callID: callID}
}

// State returns the session state shared by all tools of the conversation.
func (tc *ToolContext) State() *State { return tc.sess.State() }

// CallID returns the id of the function call being served.
func (tc *ToolContext) CallID() string { return tc.callID }

// InvocationID returns the id of the enclosing invocation.
func (tc *ToolContext) InvocationID() string {
	if tc.inv == nil {
		return ""
	}
	return tc.inv.id
}

// RequestCredential records that this call needs user consent described by
// spec. The tool should then return its pending result; the runner emits
// the credential request after the function response and suspends the call
// for later resumption.
func (tc *ToolContext) RequestCredential(spec *CredentialSpec) {
	tc.credentialRequest = spec
}

// PendingCredential returns the credential request recorded during this
// call, or nil.
func (tc *ToolContext) PendingCredential() *CredentialSpec {
	return tc.credentialRequest
}

// ConsentResult returns the completed consent exchange attached to this
// call, or nil. It is non-nil exactly when the call is the re-run of a
// previously suspended call.
func (tc *ToolContext) ConsentResult() *ConsentResult {
	return tc.consentResult
}

// AttachConsentResult hands a completed consent exchange to the tool run.
// The runner attaches one when it re-runs a suspended call.
func (tc *ToolContext) AttachConsentResult(res *ConsentResult) {
	tc.consentResult = res
}
