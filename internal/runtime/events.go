package runtime

import "strings"

// Roles used in conversation contents. They match the wire roles of the
// Gemini API: everything that is not model output is carried as user input,
// including function responses.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// FunctionCall is a request by the model (or the runtime itself) to invoke a
// named tool with the given arguments.
type FunctionCall struct {
	// ID uniquely identifies this call within the conversation. The model
	// backend does not assign ids, so the runner does.
	ID string `json:"id,omitempty"`

	// Name is the tool name as declared to the model.
	Name string `json:"name"`

	// Args holds the call arguments as decoded JSON.
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a tool result back into the conversation,
// addressed to the originating call by id.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// Part is one piece of a content: exactly one of Text, FunctionCall or
// FunctionResponse is set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Content is a single conversation entry: a role plus an ordered list of
// parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserContent builds a user content holding a single text part.
func NewUserContent(text string) *Content {
	return &Content{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// NewFunctionResponseContent builds the content that submits a function
// response back to the runtime, for example the consent callback of a
// credential request.
func NewFunctionResponseContent(fr *FunctionResponse) *Content {
	return &Content{Role: RoleUser, Parts: []Part{{FunctionResponse: fr}}}
}

// Text concatenates all text parts of the content.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FunctionCalls returns the function call parts of the content in order.
func (c *Content) FunctionCalls() []*FunctionCall {
	if c == nil {
		return nil
	}
	var calls []*FunctionCall
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}

// Event is one element of the stream produced by a Runner invocation.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// InvocationID ties the event to the invocation that produced it.
	InvocationID string `json:"invocationId"`

	// Author is the name of the agent that produced the event, or "user"
	// for echoed user input.
	Author string `json:"author"`

	// Content carries the event payload. May be nil for error events.
	Content *Content `json:"content,omitempty"`

	// LongRunningToolIDs enumerates ids of function calls in this event
	// that will not complete within the invocation. A credential request
	// is the one long-running call this runtime emits.
	LongRunningToolIDs []string `json:"longRunningToolIds,omitempty"`

	// Err reports an invocation failure. When set the stream ends after
	// this event.
	Err error `json:"-"`
}

// CredentialRequest returns the pending credential request carried by the
// event, or nil. A credential request is a function call named
// CredentialRequestFunction whose id is listed as long-running.
func (e *Event) CredentialRequest() *FunctionCall {
	if e == nil || e.Content == nil || len(e.LongRunningToolIDs) == 0 {
		return nil
	}
	longRunning := make(map[string]bool, len(e.LongRunningToolIDs))
	for _, id := range e.LongRunningToolIDs {
		longRunning[id] = true
	}
	for _, fc := range e.Content.FunctionCalls() {
		if fc.Name == CredentialRequestFunction && longRunning[fc.ID] {
			return fc
		}
	}
	return nil
}
