package openai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single model call. Purpose labels metrics and lets
// non-network engines pick an output shape; it is not sent upstream.
type CompletionRequest struct {
	Purpose     string
	Model       string
	Messages    []Message
	Temperature *float64
	SchemaName  string
	Schema      map[string]any
}

type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Client is the model provider surface used by the generation pipeline.
type Client interface {
	Embedder
	Completer
	DefaultModel() string
}
