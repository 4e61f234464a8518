package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIChatFactory creates persistent Gemini chats through the genai SDK.
// The SDK carries conversation history server-side per chat object, which is
// what gives each character genuine memory continuity across turns.
type GenAIChatFactory struct {
	client *genai.Client
	model  string
}

// NewGenAIChatFactory creates a chat factory for the given model.
func NewGenAIChatFactory(ctx context.Context, apiKey, model string) (*GenAIChatFactory, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIChatFactory{client: client, model: model}, nil
}

// NewChat opens a chat with the given system prompt, optionally resuming
// from an existing role-tagged history (used after process restarts, where
// the character's memory is rebuilt from persisted session state).
func (f *GenAIChatFactory) NewChat(ctx context.Context, systemPrompt string, history []Message) (Chat, error) {
	var contents []*genai.Content
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == "model" || msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	chat, err := f.client.Chats.Create(ctx, f.model, config, contents)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &genaiChat{chat: chat}, nil
}

type genaiChat struct {
	chat *genai.Chat
}

func (c *genaiChat) Send(ctx context.Context, message string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
