package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Paths locates the default and per-class scenario files.
type Paths struct {
	BaseDir string // e.g. ./config/scenarios
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "default.yaml")
}

func (p Paths) ClassPath(class string) string {
	return filepath.Join(p.BaseDir, "classes", class+".yaml")
}

// Loader reads scenario YAML and merges default → class.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: class name, "" for default only
}

func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

// Paths returns the files the loader reads, for watching.
func (l *Loader) Paths(class string) []string {
	out := []string{l.paths.DefaultPath()}
	if class != "" {
		out = append(out, l.paths.ClassPath(class))
	}
	return out
}

// LoadMerged returns default.yaml overlaid with classes/<class>.yaml. Both
// files are optional; a missing file contributes nothing.
func (l *Loader) LoadMerged(class string) (RawConfig, error) {
	l.mu.RLock()
	if cfg, ok := l.cache[class]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	merged := defCfg
	if class != "" {
		classCfg, err := readYAML(l.paths.ClassPath(class))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read class %s: %w", class, err)
		}
		merged = mergeRaw(defCfg, classCfg)
	}

	l.mu.Lock()
	l.cache[class] = merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears the cache. Call after the watcher sees a change.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads one file. Missing files return a zero config, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// mergeRaw overlays b on a: every field b sets wins. A non-empty event_pool
// replaces the whole pool.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	if b.StartingCash != nil {
		out.StartingCash = b.StartingCash
	}
	if b.StartingDebt != nil {
		out.StartingDebt = b.StartingDebt
	}
	if b.Stimulus != nil {
		out.Stimulus = b.Stimulus
	}
	if b.WelcomeMessage != nil {
		out.WelcomeMessage = b.WelcomeMessage
	}
	if len(b.EventPool) > 0 {
		out.EventPool = append([]string(nil), b.EventPool...)
	}
	if b.JournalSize != nil {
		out.JournalSize = b.JournalSize
	}
	return out
}
