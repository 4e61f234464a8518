package game

import "testing"

func TestClampHP(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{140, 100},
	}
	for _, c := range cases {
		if got := ClampHP(c.in); got != c.want {
			t.Errorf("ClampHP(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDefaultScoringBounds(t *testing.T) {
	min, max := DefaultScoring().Bounds()
	if min != -40 {
		t.Errorf("expected min -40, got %d", min)
	}
	if max != 10 {
		t.Errorf("expected max 10, got %d", max)
	}
}

func TestIsOfferedChoice(t *testing.T) {
	s := &Session{
		History: []Turn{{
			Step: 0,
			ChoicesOffered: []Choice{
				{Label: "Check in with Claire", Valence: ValencePositive},
				{Label: "Keep working", Valence: ValenceNeutral},
				{Label: "Laugh along", Valence: ValenceNegative},
			},
		}},
	}

	if !s.IsOfferedChoice("Keep working") {
		t.Error("expected exact choice text to match")
	}
	if !s.IsOfferedChoice("  Keep working  ") {
		t.Error("expected whitespace-trimmed choice to match")
	}
	if s.IsOfferedChoice("Do something else entirely") {
		t.Error("free text must not match an offered choice")
	}

	empty := &Session{}
	if empty.IsOfferedChoice("anything") {
		t.Error("session with no history has no offered choices")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := &Session{
		ID:       "s1",
		Status:   StatusActive,
		PlayerHP: 80,
		Characters: []Character{{
			ID:     "claire",
			Memory: []Message{{Role: "user", Content: "hello"}},
		}},
		History: []Turn{{Step: 0, Situation: "the office hums along"}},
	}

	c := s.Clone()
	c.PlayerHP = 10
	c.Characters[0].Memory = append(c.Characters[0].Memory, Message{Role: "model", Content: "hi"})
	c.History[0].Situation = "changed"

	if s.PlayerHP != 80 {
		t.Errorf("clone mutation leaked into original HP: %d", s.PlayerHP)
	}
	if len(s.Characters[0].Memory) != 1 {
		t.Errorf("clone mutation leaked into original memory: %d entries", len(s.Characters[0].Memory))
	}
	if s.History[0].Situation != "the office hums along" {
		t.Errorf("clone mutation leaked into original history: %q", s.History[0].Situation)
	}
}

func TestCurrentTurn(t *testing.T) {
	s := &Session{}
	if s.CurrentTurn() != nil {
		t.Error("empty history has no current turn")
	}
	s.History = []Turn{{Step: 0}, {Step: 1}}
	if got := s.CurrentTurn(); got == nil || got.Step != 1 {
		t.Errorf("expected latest turn (step 1), got %+v", got)
	}
}

func TestTurnEvaluated(t *testing.T) {
	entry := Turn{Step: 0}
	if entry.Evaluated() {
		t.Error("entry turn must not count as evaluated")
	}
	played := Turn{Step: 1, Evaluation: &Evaluation{Score: 70}}
	if !played.Evaluated() {
		t.Error("turn with evaluation must count as evaluated")
	}
}
