// Package runtime is the agent runtime: sessions, events, tools and the
// runner that drives a model/tool conversation loop.
//
// A Runner invocation is consumed as a stream of events. Text events arrive
// as the model generates them. When a tool cannot proceed without user
// consent it records a credential request on its ToolContext; the runner
// then emits a long-running request_credential function call, suspends the
// tool batch, and ends the stream. Submitting the matching credential
// function response as the next input exchanges the consent callback for
// tokens and finishes the suspended batch, so the conversation picks up
// exactly where it stopped.
//
// The model backend stays behind the Model interface; this package never
// talks to an LLM service itself.
package runtime
