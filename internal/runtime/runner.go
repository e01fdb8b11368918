package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teemow/chatscout/internal/logging"
)

// maxToolRounds bounds the model/tool loop of a single invocation so a
// model that keeps calling tools cannot spin forever.
const maxToolRounds = 8

// Runner drives an agent over a session: it feeds user input to the model,
// dispatches tool calls, and streams the resulting events. When a tool
// requests user consent the runner suspends the call, emits a credential
// request on the stream, and resumes when the matching credential response
// is submitted as the next input.
type Runner struct {
	agent     *Agent
	sessions  SessionService
	exchanger CredentialExchanger
	logger    *slog.Logger

	mu        sync.Mutex
	suspended map[string]*suspendedCall
}

// suspendedCall remembers everything needed to finish a tool batch after
// the user completes consent: the calls of the batch, the results already
// collected, and which call is waiting.
type suspendedCall struct {
	sessionID string
	calls     []*FunctionCall
	results   map[string]map[string]any
	pendingID string
	spec      *CredentialSpec
}

// NewRunner builds a runner for the given agent. The exchanger turns
// consent callbacks into tokens; it may be nil if the agent's tools never
// request credentials.
func NewRunner(agent *Agent, sessions SessionService, exchanger CredentialExchanger) *Runner {
	return &Runner{
		agent:     agent,
		sessions:  sessions,
		exchanger: exchanger,
		logger:    logging.WithComponent(slog.Default(), "runtime"),
		suspended: make(map[string]*suspendedCall),
	}
}

// invocation is the per-turn bookkeeping shared by the runner loop and the
// tool contexts it hands out.
type invocation struct {
	id      string
	runner  *Runner
	session *Session
	events  chan *Event
}

// emit delivers an event to the consumer. It reports false when the
// consumer is gone, which cancels the rest of the invocation.
func (inv *invocation) emit(ctx context.Context, ev *Event) bool {
	ev.ID = uuid.NewString()
	ev.InvocationID = inv.id
	select {
	case inv.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (inv *invocation) emitError(ctx context.Context, err error) {
	inv.emit(ctx, &Event{Author: inv.runner.agent.Name, Err: err})
}

// Run starts one conversation turn. Ordinary user text begins a fresh model
// exchange; a credential function response resumes the suspended call it is
// addressed to. The returned channel is closed when the turn completes,
// suspends on a credential request, or fails. Callers abandon a stream by
// cancelling ctx.
func (r *Runner) Run(ctx context.Context, sessionID string, msg *Content) (<-chan *Event, error) {
	if msg == nil || len(msg.Parts) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	session, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	inv := &invocation{
		id:      uuid.NewString(),
		runner:  r,
		session: session,
		events:  make(chan *Event),
	}

	go func() {
		defer close(inv.events)
		if fr := credentialResponsePart(msg); fr != nil {
			r.resume(ctx, inv, fr)
			return
		}
		session.AddContent(msg)
		r.loop(ctx, inv, nil)
	}()

	return inv.events, nil
}

// loop runs model rounds until the model answers without tool calls, the
// turn suspends on a credential request, or an error ends it. A non-nil
// seed is a completed batch of function responses appended before the
// first round, used when resuming.
func (r *Runner) loop(ctx context.Context, inv *invocation, seed *Content) {
	agent := r.agent
	logger := r.logger.With(logging.Session(inv.session.ID), logging.Agent(agent.Name))

	if seed != nil {
		inv.session.AddContent(seed)
	}

	for round := 0; round < maxToolRounds; round++ {
		req := &Request{
			SystemInstruction: agent.Instruction,
			Contents:          inv.session.Contents(),
			Tools:             agent.declarations(),
		}
		stream, err := agent.Model.GenerateStream(ctx, req)
		if err != nil {
			logger.Error("model request failed", logging.Err(err))
			inv.emitError(ctx, fmt.Errorf("model request: %w", err))
			return
		}

		assembled := &Content{Role: RoleModel}
		var calls []*FunctionCall
		for chunk := range stream {
			if chunk.Err != nil {
				logger.Error("model stream failed", logging.Err(chunk.Err))
				inv.emitError(ctx, fmt.Errorf("model stream: %w", chunk.Err))
				return
			}
			if chunk.Text != "" {
				assembled.Parts = append(assembled.Parts, Part{Text: chunk.Text})
				ev := &Event{Author: agent.Name, Content: &Content{Role: RoleModel, Parts: []Part{{Text: chunk.Text}}}}
				if !inv.emit(ctx, ev) {
					return
				}
			}
			for _, fc := range chunk.Calls {
				if fc.ID == "" {
					fc.ID = uuid.NewString()
				}
				calls = append(calls, fc)
				assembled.Parts = append(assembled.Parts, Part{FunctionCall: fc})
			}
		}

		if len(assembled.Parts) > 0 {
			inv.session.AddContent(assembled)
		}
		if len(calls) == 0 {
			return
		}

		callContent := &Content{Role: RoleModel}
		for _, fc := range calls {
			callContent.Parts = append(callContent.Parts, Part{FunctionCall: fc})
		}
		if !inv.emit(ctx, &Event{Author: agent.Name, Content: callContent}) {
			return
		}

		results := make(map[string]map[string]any)
		pendingID, spec, err := r.runBatch(ctx, inv, agent, calls, results, nil)
		if err != nil {
			return
		}
		if pendingID != "" {
			r.suspendBatch(ctx, inv, calls, results, pendingID, spec)
			return
		}
		inv.session.AddContent(batchResponses(calls, results))
	}

	inv.emitError(ctx, fmt.Errorf("agent %s exceeded %d tool rounds", agent.Name, maxToolRounds))
}

// runBatch executes every call not yet present in results, recording each
// result and emitting its function response event. It stops early when a
// tool requests a credential and returns that call's id and spec; the
// pending call's placeholder result is emitted but not recorded, so the
// resumed run replaces it.
func (r *Runner) runBatch(ctx context.Context, inv *invocation, agent *Agent, calls []*FunctionCall, results map[string]map[string]any, consent map[string]*ConsentResult) (string, *CredentialSpec, error) {
	logger := r.logger.With(logging.Session(inv.session.ID), logging.Agent(agent.Name))

	for _, fc := range calls {
		if _, done := results[fc.ID]; done {
			continue
		}

		var result map[string]any
		var pending *CredentialSpec

		tool := agent.tool(fc.Name)
		if tool == nil {
			logger.Warn("model called unknown tool", logging.Tool(fc.Name))
			result = map[string]any{"error": fmt.Sprintf("unknown tool %q", fc.Name)}
		} else {
			tc := &ToolContext{inv: inv, sess: inv.session, callID: fc.ID}
			if consent != nil {
				tc.consentResult = consent[fc.ID]
			}
			out, err := tool.Run(ctx, tc, fc.Args)
			if err != nil {
				logger.Warn("tool failed", logging.Tool(fc.Name), logging.Err(err))
				result = map[string]any{"error": err.Error()}
			} else {
				result = out
			}
			pending = tc.credentialRequest
		}

		fr := &FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
		ev := &Event{Author: agent.Name, Content: &Content{Role: RoleUser, Parts: []Part{{FunctionResponse: fr}}}}
		if !inv.emit(ctx, ev) {
			return "", nil, ctx.Err()
		}

		if pending != nil {
			return fc.ID, pending, nil
		}
		results[fc.ID] = result
	}
	return "", nil, nil
}

// suspendBatch records the interrupted batch and emits the long-running
// credential request that the conversation driver presents to the user.
func (r *Runner) suspendBatch(ctx context.Context, inv *invocation, calls []*FunctionCall, results map[string]map[string]any, pendingID string, spec *CredentialSpec) {
	requestID := uuid.NewString()
	authCall, err := newCredentialRequestCall(requestID, pendingID, spec)
	if err != nil {
		inv.emitError(ctx, err)
		return
	}

	r.mu.Lock()
	r.suspended[requestID] = &suspendedCall{
		sessionID: inv.session.ID,
		calls:     calls,
		results:   results,
		pendingID: pendingID,
		spec:      spec,
	}
	r.mu.Unlock()

	r.logger.Info("turn suspended awaiting user consent",
		logging.Session(inv.session.ID),
		logging.Status(logging.StatusPending))

	inv.emit(ctx, &Event{
		Author:             r.agent.Name,
		Content:            &Content{Role: RoleModel, Parts: []Part{{FunctionCall: authCall}}},
		LongRunningToolIDs: []string{requestID},
	})
}

// resume finishes a turn that suspended on a credential request: it
// exchanges the callback for tokens, re-runs the waiting call with the
// consent attached, and feeds the completed batch back into the model
// loop. The suspended entry is consumed before anything else happens, so a
// request id resumes at most once.
func (r *Runner) resume(ctx context.Context, inv *invocation, fr *FunctionResponse) {
	logger := r.logger.With(logging.Session(inv.session.ID))

	r.mu.Lock()
	sc := r.suspended[fr.ID]
	delete(r.suspended, fr.ID)
	r.mu.Unlock()

	if sc == nil {
		inv.emitError(ctx, fmt.Errorf("%w: no suspended call for credential request %q", ErrInvalidCredentialPayload, fr.ID))
		return
	}
	if sc.sessionID != inv.session.ID {
		inv.emitError(ctx, fmt.Errorf("%w: credential request %q belongs to another session", ErrInvalidCredentialPayload, fr.ID))
		return
	}

	resp, err := ParseCredentialResponse(fr)
	if err != nil {
		inv.emitError(ctx, err)
		return
	}
	if r.exchanger == nil {
		inv.emitError(ctx, fmt.Errorf("no credential exchanger configured"))
		return
	}

	result, err := r.exchanger.Exchange(ctx, resp)
	if err != nil {
		logger.Error("consent exchange failed", logging.Err(err))
		inv.emitError(ctx, fmt.Errorf("exchange consent callback: %w", err))
		return
	}
	logger.Info("turn resumed after consent", logging.Status(logging.StatusSuccess))

	consent := map[string]*ConsentResult{sc.pendingID: result}
	pendingID, spec, err := r.runBatch(ctx, inv, r.agent, sc.calls, sc.results, consent)
	if err != nil {
		return
	}
	if pendingID != "" {
		r.suspendBatch(ctx, inv, sc.calls, sc.results, pendingID, spec)
		return
	}

	r.loop(ctx, inv, batchResponses(sc.calls, sc.results))
}

// batchResponses assembles the function responses of a completed batch in
// call order.
func batchResponses(calls []*FunctionCall, results map[string]map[string]any) *Content {
	responses := &Content{Role: RoleUser}
	for _, fc := range calls {
		responses.Parts = append(responses.Parts, Part{FunctionResponse: &FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: results[fc.ID],
		}})
	}
	return responses
}

// runDelegate executes a delegated agent to completion on an ephemeral
// child session. Text is collected rather than streamed; the caller
// receives the final response. When a delegate tool requests a credential
// the delegate's pending result is handed back so the outer call can
// return it, with the request re-raised on parent.
func (inv *invocation) runDelegate(ctx context.Context, agent *Agent, request string, parent *ToolContext) (string, map[string]any, error) {
	child := newChildSession(parent.sess)
	child.AddContent(NewUserContent(request))
	logger := inv.runner.logger.With(logging.Session(child.ID), logging.Agent(agent.Name))
	logger.Debug("delegating to agent")

	for round := 0; round < maxToolRounds; round++ {
		req := &Request{
			SystemInstruction: agent.Instruction,
			Contents:          child.Contents(),
			Tools:             agent.declarations(),
		}
		stream, err := agent.Model.GenerateStream(ctx, req)
		if err != nil {
			return "", nil, fmt.Errorf("delegate %s: model request: %w", agent.Name, err)
		}

		assembled := &Content{Role: RoleModel}
		var calls []*FunctionCall
		var text strings.Builder
		for chunk := range stream {
			if chunk.Err != nil {
				return "", nil, fmt.Errorf("delegate %s: model stream: %w", agent.Name, chunk.Err)
			}
			if chunk.Text != "" {
				text.WriteString(chunk.Text)
				assembled.Parts = append(assembled.Parts, Part{Text: chunk.Text})
			}
			for _, fc := range chunk.Calls {
				if fc.ID == "" {
					fc.ID = uuid.NewString()
				}
				calls = append(calls, fc)
				assembled.Parts = append(assembled.Parts, Part{FunctionCall: fc})
			}
		}

		if len(assembled.Parts) > 0 {
			child.AddContent(assembled)
		}
		if len(calls) == 0 {
			return text.String(), nil, nil
		}

		responses := &Content{Role: RoleUser}
		for _, fc := range calls {
			var result map[string]any

			tool := agent.tool(fc.Name)
			if tool == nil {
				logger.Warn("delegate called unknown tool", logging.Tool(fc.Name))
				result = map[string]any{"error": fmt.Sprintf("unknown tool %q", fc.Name)}
			} else {
				tc := &ToolContext{inv: inv, sess: child, callID: fc.ID, consentResult: parent.consentResult}
				out, err := tool.Run(ctx, tc, fc.Args)
				if err != nil {
					logger.Warn("delegate tool failed", logging.Tool(fc.Name), logging.Err(err))
					result = map[string]any{"error": err.Error()}
				} else {
					result = out
				}
				if tc.credentialRequest != nil {
					parent.RequestCredential(tc.credentialRequest)
					return "", result, nil
				}
			}

			responses.Parts = append(responses.Parts, Part{FunctionResponse: &FunctionResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: result,
			}})
		}
		child.AddContent(responses)
	}

	return "", nil, fmt.Errorf("delegate %s exceeded %d tool rounds", agent.Name, maxToolRounds)
}
