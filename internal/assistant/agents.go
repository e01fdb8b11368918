package assistant

import (
	"fmt"
	"time"

	"github.com/teemow/chatscout/internal/runtime"
)

// Default models behind the agent pair. The orchestrator routes and
// searches; the heavier analysis model reads message histories.
const (
	defaultOrchestratorModel = "gemini-2.5-flash"
	defaultAnalysisModel     = "gemini-2.5-pro"
)

// ModelProvider binds model names to runtime models.
type ModelProvider interface {
	Model(name string) runtime.Model
}

// Option adjusts how the agent pair is assembled.
type Option func(*config)

type config struct {
	orchestratorModel string
	analysisModel     string
}

// WithOrchestratorModel overrides the orchestrator's model. An empty name
// keeps the default.
func WithOrchestratorModel(name string) Option {
	return func(c *config) {
		if name != "" {
			c.orchestratorModel = name
		}
	}
}

// WithAnalysisModel overrides the analysis delegate's model. An empty name
// keeps the default.
func WithAnalysisModel(name string) Option {
	return func(c *config) {
		if name != "" {
			c.analysisModel = name
		}
	}
}

// New builds the orchestrator agent with its message-analysis delegate.
func New(models ModelProvider, tools *Toolset, opts ...Option) *runtime.Agent {
	cfg := config{
		orchestratorModel: defaultOrchestratorModel,
		analysisModel:     defaultAnalysisModel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	analysis := &runtime.Agent{
		Name: "message_analysis_agent",
		Description: "Specialist agent that retrieves the messages of a Google Chat space " +
			"and answers questions about their content.",
		Instruction: "You are a specialist in analyzing Google Chat messages. " +
			"Use the `list_space_messages` tool to retrieve messages and then " +
			"answer the user's question based on their content. " +
			"Provide concise and relevant answers.",
		Model: models.Model(cfg.analysisModel),
		Tools: []runtime.Tool{tools.ListMessagesTool()},
	}

	return &runtime.Agent{
		Name:        "orchestrator_agent",
		Description: "Primary Google Chat assistant.",
		Instruction: orchestratorInstruction(time.Now()),
		Model:       models.Model(cfg.orchestratorModel),
		Tools: []runtime.Tool{
			tools.SearchSpacesTool(),
			runtime.NewAgentTool(analysis),
		},
	}
}

func orchestratorInstruction(now time.Time) string {
	return fmt.Sprintf("The current date is %s.\n", now.Format("2006-01-02")) +
		"You are the primary assistant for Google Chat. Your job is to orchestrate tasks.\n" +
		"1. First, use the `search_all_chat_spaces` tool to find a chat space if the user asks.\n" +
		"2. Once a space is identified, if the user wants to ask questions about the *content* of that space " +
		"(e.g., 'summarize', 'what was said about X', 'find messages from yesterday'), " +
		"you MUST delegate the task by calling the `message_analysis_agent` tool. " +
		"Pass the user's full query and the space ID (`parent` parameter) to the analysis agent."
}
