package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"cubicle/internal/logging"
)

// Skill is a reusable behavioral bundle attached to characters. A skill
// shapes how a character behaves without changing who they are — that is
// the persona's job.
type Skill struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	PromptInjection string   `yaml:"prompt_injection"`
	ConflictsWith   []string `yaml:"conflicts_with"`
}

// SkillRegistry holds every skill definition loaded at startup.
type SkillRegistry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewSkillRegistry returns an empty registry.
func NewSkillRegistry() *SkillRegistry {
	return &SkillRegistry{skills: make(map[string]Skill)}
}

// LoadDir loads every .yaml file in dir. A missing directory is not an
// error — scenarios without skills are valid.
func (r *SkillRegistry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read skills dir: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read skill %s: %w", path, err)
		}
		var skill Skill
		if err := yaml.Unmarshal(data, &skill); err != nil {
			return fmt.Errorf("parse skill %s: %w", path, err)
		}
		if skill.ID == "" {
			return fmt.Errorf("skill %s has no id", path)
		}
		r.skills[skill.ID] = skill
	}
	logging.Content("loaded %d skill definitions from %s", len(r.skills), dir)
	return nil
}

// Get retrieves a skill by id.
func (r *SkillRegistry) Get(id string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[id]
	return s, ok
}

// GetMany retrieves multiple skills, skipping unknown ids with a log entry
// rather than failing the session over a missing prompt fragment.
func (r *SkillRegistry) GetMany(ids []string) []Skill {
	out := make([]Skill, 0, len(ids))
	for _, id := range ids {
		s, ok := r.Get(id)
		if !ok {
			logging.Content("skill %q not found, skipping injection", id)
			continue
		}
		out = append(out, s)
	}
	return out
}

// ValidateCompatibility returns a description of every conflicting pair in
// the given skill set. Empty result means no conflicts.
func (r *SkillRegistry) ValidateCompatibility(ids []string) []string {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	var conflicts []string
	for _, skill := range r.GetMany(ids) {
		for _, other := range skill.ConflictsWith {
			if present[other] {
				conflicts = append(conflicts, fmt.Sprintf("%s conflicts with %s", skill.ID, other))
			}
		}
	}
	return conflicts
}
