package runtime

import (
	"context"
	"fmt"
)

// Agent is a model bound to an instruction and a set of tools. Agents do
// not run themselves; a Runner (or an AgentTool delegating from another
// agent) drives them.
type Agent struct {
	// Name identifies the agent in events and logs.
	Name string

	// Description tells a delegating agent what this agent is for.
	Description string

	// Instruction is the system instruction sent with every model request.
	Instruction string

	// Model is the LLM backend that produces this agent's responses.
	Model Model

	// Tools are the callables exposed to the model.
	Tools []Tool
}

// tool returns the agent's tool with the given name, or nil.
func (a *Agent) tool(name string) Tool {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// declarations returns the tool declarations sent to the model.
func (a *Agent) declarations() []*Declaration {
	if len(a.Tools) == 0 {
		return nil
	}
	decls := make([]*Declaration, 0, len(a.Tools))
	for _, t := range a.Tools {
		decls = append(decls, t.Declaration())
	}
	return decls
}

// AgentTool exposes a whole agent as a callable tool, so an orchestrating
// agent can delegate a sub-task in a single function call. The delegate
// runs on an ephemeral session that shares the caller's state; a
// credential request raised inside the delegate propagates to the outer
// call unchanged.
type AgentTool struct {
	agent *Agent
}

// NewAgentTool wraps agent as a Tool named after the agent.
func NewAgentTool(agent *Agent) *AgentTool {
	return &AgentTool{agent: agent}
}

// Name returns the delegate agent's name.
func (t *AgentTool) Name() string { return t.agent.Name }

// Declaration describes the delegation call: a single request string.
func (t *AgentTool) Declaration() *Declaration {
	return &Declaration{
		Name:        t.agent.Name,
		Description: t.agent.Description,
		Parameters: &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"request": {
					Type:        "string",
					Description: "The task or question to hand to the agent.",
				},
			},
			Required: []string{"request"},
		},
	}
}

// Run executes the delegate agent to completion and returns its final
// response text. If a tool of the delegate requests a credential, the
// delegate's pending result is returned as this call's result and the
// request is re-raised on the outer tool context.
func (t *AgentTool) Run(ctx context.Context, tc *ToolContext, args map[string]any) (map[string]any, error) {
	request, _ := args["request"].(string)
	if request == "" {
		return nil, fmt.Errorf("agent tool %s: request argument is required", t.agent.Name)
	}
	if tc.inv == nil {
		return nil, fmt.Errorf("agent tool %s: no invocation attached", t.agent.Name)
	}

	text, pendingResult, err := tc.inv.runDelegate(ctx, t.agent, request, tc)
	if err != nil {
		return nil, err
	}
	if pendingResult != nil {
		return pendingResult, nil
	}
	return map[string]any{"result": text}, nil
}
