package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cubicle/internal/agents"
	"cubicle/internal/content"
	"cubicle/internal/game"
	"cubicle/internal/guardrail"
	"cubicle/internal/orchestrator"
	"cubicle/internal/session"
	"cubicle/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const testScenarioYAML = `
id: cubicle-ally
module_id: posh
title: Your Cubicle Ally
setup: A Monday morning in an open-plan office.
max_steps: 6
starting_hp: 100
rubric:
  goal: Practice bystander intervention.
characters:
  - id: marcus
    persona: The office jokester.
    role: instigator
    personality: loud
  - id: claire
    persona: A focused engineer.
    role: target
    personality: reserved
entry_turn:
  situation: Marcus leans over the cubicle wall with another comment.
  choices_offered:
    - label: Check in with Claire
      valence: positive
    - label: Keep working
      valence: neutral
    - label: Laugh along
      valence: negative
`

type stubEvaluator struct{ eval game.Evaluation }

func (s *stubEvaluator) Evaluate(ctx context.Context, req agents.EvaluateRequest) (game.Evaluation, error) {
	return s.eval, nil
}

type stubNarrator struct{ out game.ScenarioOutput }

func (s *stubNarrator) Advance(ctx context.Context, req agents.AdvanceRequest) (game.ScenarioOutput, error) {
	return s.out, nil
}

type stubActor struct{}

func (stubActor) React(ctx context.Context, req agents.ReactRequest) (string, error) {
	return "Relax, it was a joke!", nil
}

type stubActorFactory struct{}

func (stubActorFactory) NewActor(ctx context.Context, tc game.TurnContext, c game.Character) (agents.CharacterActor, error) {
	return stubActor{}, nil
}

type stubCoach struct{ debrief agents.Debrief }

func (s *stubCoach) Debrief(ctx context.Context, req agents.DebriefRequest) (agents.Debrief, error) {
	return s.debrief, nil
}

func narratorOutput() game.ScenarioOutput {
	return game.ScenarioOutput{
		TurnOrder:        []string{"marcus"},
		Directives:       map[string]string{"marcus": "double down"},
		SituationSummary: "Marcus repeats the joke louder, looking for a reaction.",
		NextChoices: []game.Choice{
			{Label: "Name the behavior", Valence: game.ValencePositive},
			{Label: "Stay quiet", Valence: game.ValenceNeutral},
			{Label: "Laugh", Valence: game.ValenceNegative},
		},
		BranchLabel: "escalation",
	}
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	scenDir := filepath.Join(dir, "posh", "scenarios")
	if err := os.MkdirAll(scenDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scenDir, "cubicle-ally.yaml"), []byte(testScenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}
	loader, err := content.NewLoader(dir)
	if err != nil {
		t.Fatal(err)
	}

	sessions := session.NewManager(store.NewMemoryStore())
	orch := orchestrator.New(orchestrator.Config{
		Sessions:  sessions,
		Guard:     guardrail.New(nil),
		Evaluator: &stubEvaluator{eval: game.Evaluation{Score: 70, HPDelta: -5, Reasoning: "fine"}},
		Narrator:  &stubNarrator{out: narratorOutput()},
		Actors:    orchestrator.NewActorCache(stubActorFactory{}),
	})
	srv := NewServer(ServerConfig{
		Sessions:     sessions,
		Orchestrator: orch,
		Initializer:  content.NewInitializer(loader),
		Loader:       loader,
		Coach:        &stubCoach{debrief: agents.Debrief{Outcome: "won", OverallScore: 80, Summary: "well handled"}},
	})
	return srv, srv.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func startSession(t *testing.T, h http.Handler) SessionView {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/sessions",
		`{"module_id":"posh","scenario_id":"cubicle-ally","profile":{"name":"Jordan"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("start session: status %d, body %s", w.Code, w.Body.String())
	}
	var view SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	return view
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}

func TestListScenarios(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/modules/posh/scenarios", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cubicle-ally") {
		t.Errorf("expected scenario id in body: %s", w.Body.String())
	}
}

func TestStartSessionReturnsEntryTurn(t *testing.T) {
	_, h := newTestServer(t)
	view := startSession(t, h)

	if view.Status != game.StatusActive {
		t.Errorf("expected active, got %s", view.Status)
	}
	if view.PlayerHP != 100 {
		t.Errorf("expected hp 100, got %d", view.PlayerHP)
	}
	if view.Turn == nil || view.Turn.Step != 0 {
		t.Fatalf("expected the entry turn, got %+v", view.Turn)
	}
	if len(view.Turn.Choices) != 3 {
		t.Errorf("expected 3 entry choices, got %d", len(view.Turn.Choices))
	}
}

func TestStartSessionBadRequest(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/sessions", `{"module_id":"posh"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStartSessionUnknownScenario(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/sessions",
		`{"module_id":"posh","scenario_id":"ghost","profile":{"name":"Jordan"}}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitTurn(t *testing.T) {
	_, h := newTestServer(t)
	view := startSession(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/sessions/"+view.ID+"/turns",
		`{"input":"I check in with Claire."}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var after SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatal(err)
	}
	if after.CurrentStep != 1 || after.PlayerHP != 95 {
		t.Errorf("turn not applied: %+v", after)
	}
	if after.Turn == nil || after.Turn.Situation == "" {
		t.Fatalf("expected the new turn in the view, got %+v", after.Turn)
	}
	if len(after.Turn.Reactions) != 1 || after.Turn.Reactions[0].CharacterID != "marcus" {
		t.Errorf("reactions missing: %+v", after.Turn)
	}
}

func TestSubmitTurnRejectedInput(t *testing.T) {
	_, h := newTestServer(t)
	view := startSession(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/sessions/"+view.ID+"/turns", `{"input":"   "}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "empty_input") {
		t.Errorf("expected violation code in body: %s", w.Body.String())
	}
}

func TestSubmitTurnUnknownSession(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/sessions/nope/turns", `{"input":"hello there"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRetryOnlyAfterLoss(t *testing.T) {
	srv, h := newTestServer(t)
	view := startSession(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/sessions/"+view.ID+"/retry", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("active session retry must 409, got %d", w.Code)
	}

	// Force a loss, then retry succeeds and restores the entry turn.
	loseSession(t, srv, view.ID)
	w = doJSON(t, h, http.MethodPost, "/api/sessions/"+view.ID+"/retry", "")
	if w.Code != http.StatusOK {
		t.Fatalf("retry after loss: %d: %s", w.Code, w.Body.String())
	}
	var after SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatal(err)
	}
	if after.Status != game.StatusActive || after.PlayerHP != 100 || after.CurrentStep != 0 {
		t.Errorf("reset state wrong: %+v", after)
	}
	if after.Turn == nil || after.Turn.Step != 0 {
		t.Errorf("entry turn not re-seeded: %+v", after.Turn)
	}
}

func TestDebrief(t *testing.T) {
	srv, h := newTestServer(t)
	view := startSession(t, h)

	// Active sessions have nothing to debrief yet.
	w := doJSON(t, h, http.MethodGet, "/api/sessions/"+view.ID+"/debrief", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for active session, got %d", w.Code)
	}

	loseSession(t, srv, view.ID)
	w = doJSON(t, h, http.MethodGet, "/api/sessions/"+view.ID+"/debrief", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var d agents.Debrief
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.OverallScore != 80 {
		t.Errorf("unexpected debrief: %+v", d)
	}
}

// loseSession drains the session's HP through the lifecycle manager so the
// handlers under test see a genuine loss.
func loseSession(t *testing.T, srv *Server, id string) {
	t.Helper()
	ctx := context.Background()
	for i := 1; ; i++ {
		working, err := srv.sessions.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		s, err := srv.sessions.ApplyTurn(ctx, working, game.Turn{
			Step:       i,
			Situation:  "it keeps getting worse",
			Evaluation: &game.Evaluation{Score: 10, HPDelta: -40, Reasoning: "bad"},
			HPDelta:    -40,
		})
		if err != nil {
			t.Fatal(err)
		}
		if s.Status == game.StatusLost {
			return
		}
		if s.Status == game.StatusWon || i > 10 {
			t.Fatalf("failed to lose session, status %s after %d turns", s.Status, i)
		}
	}
}
