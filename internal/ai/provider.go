package ai

import "context"

// Provider generates bot reply text. Content quality is the provider's
// problem; timing and delivery are handled by the scheduler.
type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}
