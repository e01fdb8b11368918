package runtime

import "context"

// Request is one model invocation: instruction, conversation so far and the
// tools the model may call.
type Request struct {
	SystemInstruction string
	Contents          []*Content
	Tools             []*Declaration
}

// Chunk is one increment of a streamed model response. Text chunks arrive
// as they are generated; function calls are delivered on the chunk that
// carries them. A non-nil Err ends the stream.
type Chunk struct {
	Text  string
	Calls []*FunctionCall
	Err   error
}

// Model is the LLM backend boundary. Implementations stream partial
// responses over a channel that is closed when the response is complete.
type Model interface {
	// Name returns the backend model identifier.
	Name() string

	// GenerateStream starts a streamed completion for req. The returned
	// channel is closed by the implementation; callers stop consuming by
	// cancelling ctx.
	GenerateStream(ctx context.Context, req *Request) (<-chan *Chunk, error)
}
