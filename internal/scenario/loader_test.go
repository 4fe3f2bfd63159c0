package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveDefaultsWhenNoFiles(t *testing.T) {
	s, err := NewLoader(t.TempDir()).Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if s.StartingCash != 1500 || s.StartingDebt != 0 || s.Stimulus != 500 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.WelcomeMessage != "Welcome!" || s.JournalSize != 200 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if len(s.Events()) != 5 {
		t.Fatalf("default pool should hold all five events, got %v", s.EventPool)
	}
}

func TestClassOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir)
	writeFile(t, l.paths.DefaultPath(), "version: v1\nstarting_cash: 2000\nstimulus: 400\n")
	writeFile(t, l.paths.ClassPath("p3"), "version: v1-p3\nstimulus: 0\nevent_pool: [The Carbon Tax]\n")

	s, err := l.Resolve("p3")
	if err != nil {
		t.Fatal(err)
	}
	if s.Version != "v1-p3" || s.StartingCash != 2000 || s.Stimulus != 0 {
		t.Fatalf("merge wrong: %+v", s)
	}
	if len(s.EventPool) != 1 || s.EventPool[0] != "The Carbon Tax" {
		t.Fatalf("pool should be replaced: %v", s.EventPool)
	}

	base, err := l.Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if base.Stimulus != 400 {
		t.Fatalf("default-only resolve should ignore class file: %+v", base)
	}
}

func TestValidateRawCollectsAllErrors(t *testing.T) {
	neg := -1
	zero := 0
	err := ValidateRaw(RawConfig{
		StartingCash: &neg,
		Stimulus:     &neg,
		JournalSize:  &zero,
		EventPool:    []string{"The Carbon Tax", "Meteor Strike", "None", "The Carbon Tax"},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"starting_cash", "stimulus", "journal_size", "Meteor Strike", "must name an event", "listed twice"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestResolveRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir)
	writeFile(t, l.paths.DefaultPath(), "starting_cash: [oops\n")
	if _, err := l.Resolve(""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInvalidateReloads(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir)
	writeFile(t, l.paths.DefaultPath(), "starting_cash: 100\n")
	s, _ := l.Resolve("")
	if s.StartingCash != 100 {
		t.Fatalf("got %d", s.StartingCash)
	}
	writeFile(t, l.paths.DefaultPath(), "starting_cash: 200\n")
	if s, _ = l.Resolve(""); s.StartingCash != 100 {
		t.Fatalf("cached value expected, got %d", s.StartingCash)
	}
	l.Invalidate()
	if s, _ = l.Resolve(""); s.StartingCash != 200 {
		t.Fatalf("after invalidate got %d", s.StartingCash)
	}
}

func TestFileWatcherReportsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	writeFile(t, path, "starting_cash: 1\n")

	changed := make(chan string, 4)
	w := NewFileWatcher([]string{path}, 10*time.Millisecond, func(p string) { changed <- p })
	w.Start()
	defer w.Stop()

	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-changed:
		if p != path {
			t.Fatalf("changed path = %s", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report change")
	}
	w.Stop()
}
