package api

import "cubicle/internal/game"

// SessionView is the client-facing projection of a session. Character
// memory and narrator directives stay server-side; the client sees only
// what the player would.
type SessionView struct {
	ID          string             `json:"id"`
	Status      game.SessionStatus `json:"status"`
	PlayerHP    int                `json:"player_hp"`
	CurrentStep int                `json:"current_step"`
	MaxSteps    int                `json:"max_steps"`
	Turn        *TurnView          `json:"turn,omitempty"`
}

// TurnView is the client-facing projection of the latest turn.
type TurnView struct {
	Step      int                      `json:"step"`
	Situation string                   `json:"situation"`
	Reactions []game.CharacterReaction `json:"reactions"`
	Choices   []game.Choice            `json:"choices"`
}

func sessionView(s *game.Session) SessionView {
	v := SessionView{
		ID:          s.ID,
		Status:      s.Status,
		PlayerHP:    s.PlayerHP,
		CurrentStep: s.CurrentStep,
		MaxSteps:    s.MaxSteps,
	}
	if t := s.CurrentTurn(); t != nil {
		v.Turn = &TurnView{
			Step:      t.Step,
			Situation: t.Situation,
			Reactions: t.Reactions,
			Choices:   t.ChoicesOffered,
		}
	}
	return v
}
