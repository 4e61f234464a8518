package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledIsNoOp(t *testing.T) {
	if err := Initialize(Options{Enabled: false}); err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	// Must not panic or create files.
	Session("session message %d", 1)
	Turn("turn message")
	Get(CategoryAgents).Warn("warn message")
}

func TestWritesToCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Enabled: true, Dir: dir, Level: "debug"}); err != nil {
		t.Fatal(err)
	}

	Session("applied turn %d", 3)
	GuardrailWarn("clamped score")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "session.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "applied turn 3") {
		t.Errorf("session log missing message: %s", data)
	}

	warn, err := os.ReadFile(filepath.Join(dir, "logs", "guardrail.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(warn), "[WARN] clamped score") {
		t.Errorf("guardrail log missing warning: %s", warn)
	}
}

func TestBootAndDriftCategories(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Enabled: true, Dir: dir, Level: "debug"}); err != nil {
		t.Fatal(err)
	}

	Boot("engine wired on :8080")
	Drift("level=struggling avg=42.0")
	CloseAll()

	boot, err := os.ReadFile(filepath.Join(dir, "logs", "boot.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(boot), "engine wired on :8080") {
		t.Errorf("boot log missing message: %s", boot)
	}

	drift, err := os.ReadFile(filepath.Join(dir, "logs", "drift.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(drift), "level=struggling") {
		t.Errorf("drift log missing message: %s", drift)
	}
}

func TestLevelGate(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Enabled: true, Dir: dir, Level: "warn"}); err != nil {
		t.Fatal(err)
	}

	Turn("info message")
	Get(CategoryTurn).Warn("warn message")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "turn.log"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "info message") {
		t.Error("info must be suppressed at warn level")
	}
	if !strings.Contains(string(data), "warn message") {
		t.Error("warn must pass at warn level")
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(Options{
		Enabled:    true,
		Dir:        dir,
		Categories: map[string]bool{"turn": false},
	})
	if err != nil {
		t.Fatal(err)
	}

	Turn("filtered out")
	Session("kept")
	CloseAll()

	if _, err := os.Stat(filepath.Join(dir, "logs", "turn.log")); !os.IsNotExist(err) {
		t.Error("disabled category must not create a file")
	}
	if _, err := os.Stat(filepath.Join(dir, "logs", "session.log")); err != nil {
		t.Errorf("enabled category must create a file: %v", err)
	}
}
