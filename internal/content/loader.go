package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"cubicle/internal/logging"
)

// ErrScenarioNotFound indicates an unknown module or scenario id.
var ErrScenarioNotFound = errors.New("scenario not found")

// Loader reads scenario YAML files from a modules directory and caches them
// by module/scenario key. Layout:
//
//	<dir>/skills/*.yaml
//	<dir>/<module_id>/scenarios/<scenario_id>.yaml
//
// An optional fsnotify watcher invalidates the cache when a file under the
// modules directory changes, so edited scenarios are picked up without a
// restart.
type Loader struct {
	dir    string
	skills *SkillRegistry

	mu    sync.RWMutex
	cache map[string]*Scenario

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLoader creates a loader rooted at dir and loads skill definitions.
func NewLoader(dir string) (*Loader, error) {
	registry := NewSkillRegistry()
	if err := registry.LoadDir(filepath.Join(dir, "skills")); err != nil {
		return nil, err
	}
	return &Loader{
		dir:    dir,
		skills: registry,
		cache:  make(map[string]*Scenario),
	}, nil
}

// Skills returns the skill registry.
func (l *Loader) Skills() *SkillRegistry { return l.skills }

// LoadScenario loads a scenario by module and scenario id, cache-first.
func (l *Loader) LoadScenario(moduleID, scenarioID string) (*Scenario, error) {
	key := moduleID + "/" + scenarioID

	l.mu.RLock()
	if s, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return s, nil
	}
	l.mu.RUnlock()

	path := filepath.Join(l.dir, moduleID, "scenarios", scenarioID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario %s/%s at %s: %w", moduleID, scenarioID, path, ErrScenarioNotFound)
		}
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = &scenario
	l.mu.Unlock()
	logging.Content("loaded scenario %s (%s)", key, scenario.Title)
	return &scenario, nil
}

// ListScenarios returns the scenario ids available for a module.
func (l *Loader) ListScenarios(moduleID string) ([]string, error) {
	dir := filepath.Join(l.dir, moduleID, "scenarios")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return ids, nil
}

// Watch starts invalidating the cache on filesystem changes under the
// modules directory. Safe to skip for short-lived processes.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch every directory under the root; fsnotify is not recursive.
	err = filepath.WalkDir(l.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch modules dir: %w", err)
	}

	l.watcher = watcher
	l.done = make(chan struct{})
	go l.watchLoop()
	logging.Content("watching %s for content changes", l.dir)
	return nil
}

func (l *Loader) watchLoop() {
	for {
		select {
		case <-l.done:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			l.mu.Lock()
			n := len(l.cache)
			l.cache = make(map[string]*Scenario)
			l.mu.Unlock()
			if n > 0 {
				logging.Content("content change detected (%s), dropped %d cached scenarios", event.Name, n)
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logging.Content("watcher error: %v", err)
		}
	}
}

// Close stops the watcher if one is running.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	close(l.done)
	return l.watcher.Close()
}
