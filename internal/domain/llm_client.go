package domain

import "context"

// LLMClient defines the capability to send prompts to an LLM and receive
// textual responses. The same client serves relevance grading and answer
// generation; only the prompt differs.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}

// VectorEncoder turns text into embedding vectors via an external service.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
