package agents

import (
	"context"
	"fmt"

	"cubicle/internal/content"
	"cubicle/internal/game"
	"cubicle/internal/llm"
	"cubicle/internal/logging"
	"cubicle/internal/prompt"
)

// ChatActorFactory builds chat-backed character actors. Each actor owns a
// persistent chat whose history is rebuilt from the character's saved
// memory, so a process restart does not reset the character's voice.
type ChatActorFactory struct {
	chats   llm.ChatFactory
	loader  *content.Loader
	builder *prompt.Builder
}

// NewChatActorFactory creates the actor factory.
func NewChatActorFactory(chats llm.ChatFactory, loader *content.Loader, builder *prompt.Builder) *ChatActorFactory {
	return &ChatActorFactory{chats: chats, loader: loader, builder: builder}
}

// NewActor creates an actor for one character, seeding the chat with the
// character's persona prompt and persisted memory.
func (f *ChatActorFactory) NewActor(ctx context.Context, tc game.TurnContext, character game.Character) (CharacterActor, error) {
	scenario, err := f.loader.LoadScenario(tc.ModuleID, tc.ScenarioID)
	if err != nil {
		return nil, err
	}

	system := f.builder.CharacterSystemPrompt(character, scenario)
	history := make([]llm.Message, 0, len(character.Memory))
	for _, m := range character.Memory {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	chat, err := f.chats.NewChat(ctx, system, history)
	if err != nil {
		return nil, fmt.Errorf("actor chat for %s: %w", character.ID, err)
	}
	logging.AgentsDebug("created actor for %s with %d remembered messages", character.ID, len(history))
	return &chatActor{characterID: character.ID, chat: chat}, nil
}

type chatActor struct {
	characterID string
	chat        llm.Chat
}

func (a *chatActor) React(ctx context.Context, req ReactRequest) (string, error) {
	msg := fmt.Sprintf("[SITUATION] %s\n[YOUR DIRECTIVE] %s\n\nRespond with a single in-character line of dialogue.",
		req.Situation, req.Directive)
	line, err := a.chat.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("actor %s: %w", a.characterID, err)
	}
	return line, nil
}
