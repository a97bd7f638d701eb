package llm

import "context"

// Generator produces a natural-language completion for a fully assembled
// prompt. Implementations make exactly one attempt; retries are the
// caller's decision.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
