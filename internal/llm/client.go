// Package llm provides the LLM transport used by every capability: a
// provider-agnostic completion interface, a Gemini REST client for one-shot
// structured calls, and a genai-SDK chat wrapper for the persistent
// per-character conversations.
package llm

import "context"

// Client is the completion interface capabilities are built on. All calls
// block until the provider responds or ctx is done.
type Client interface {
	// Complete sends a bare prompt and returns the completion text.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a prompt under a system instruction.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// CompleteJSON sends a prompt under a system instruction with JSON
	// response mode enabled; the returned text is a JSON document.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Message is one role-tagged entry of a chat history. Role is "user" or
// "model" (Gemini's name for the assistant role).
type Message struct {
	Role    string
	Content string
}

// Chat is a persistent conversation whose history the provider carries
// across calls.
type Chat interface {
	// Send appends a user message and returns the model's reply.
	Send(ctx context.Context, message string) (string, error)
}

// ChatFactory creates persistent chats. One chat per (session, character)
// is created lazily by the orchestrator's actor cache.
type ChatFactory interface {
	NewChat(ctx context.Context, systemPrompt string, history []Message) (Chat, error)
}
