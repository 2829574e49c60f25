package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"hornkb/internal/kb"
	"hornkb/internal/term"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(dir string) Config {
	return Config{
		Dir:       dir,
		Extension: ".kb",
		Debounce:  50 * time.Millisecond,
		Knowledge: kb.DefaultConfig(),
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()

	reloaded := make(chan *kb.KnowledgeBase, 8)
	w, err := New(testConfig(dir), nil, func(kbase *kb.KnowledgeBase) {
		reloaded <- kbase
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	content := "fact: (isa cube block)\nrule: ((isa ?x block)) -> (movable ?x)\n"
	if err := os.WriteFile(filepath.Join(dir, "world.kb"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case kbase := <-reloaded:
		answers, err := kbase.Ask(term.NewStatement("movable", "?x"))
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if len(answers) != 1 {
			t.Errorf("Ask() returned %d answers, want 1", len(answers))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := w.Stats().Reloads; got < 1 {
		t.Errorf("Stats().Reloads = %d, want >= 1", got)
	}
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()

	w, err := New(testConfig(dir), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The event must never register.
	time.Sleep(200 * time.Millisecond)
	if got := w.Stats().FilesChanged; got != 0 {
		t.Errorf("Stats().FilesChanged = %d, want 0", got)
	}
}

func TestWatcherKeepsGoingAfterBadFile(t *testing.T) {
	dir := t.TempDir()

	reloaded := make(chan struct{}, 8)
	w, err := New(testConfig(dir), nil, func(*kb.KnowledgeBase) {
		reloaded <- struct{}{}
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "broken.kb"), []byte("fact: (isa cube\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !waitFor(t, 5*time.Second, func() bool { return w.Stats().ReloadErrors >= 1 }) {
		t.Fatal("reload error never recorded")
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.kb"), []byte("fact: (isa cube block)\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not recover after a bad file")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(testConfig(t.TempDir()), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcherStartOnMissingDir(t *testing.T) {
	w, err := New(testConfig(filepath.Join(t.TempDir(), "absent")), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("Start() expected error for missing directory")
	} else if err := w.watcher.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
