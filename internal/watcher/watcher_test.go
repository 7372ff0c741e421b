package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type changes struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *changes) record(paths []string) {
	c.mu.Lock()
	c.calls = append(c.calls, paths)
	c.mu.Unlock()
}

func (c *changes) snapshot() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.calls...)
}

func startWatcher(t *testing.T, dir string, exts []string, c *changes) *Watcher {
	t.Helper()
	w := NewWatcher(dir, exts, c.record, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DebouncesBurstIntoOneChange(t *testing.T) {
	dir := t.TempDir()
	c := &changes{}
	startWatcher(t, dir, []string{".txt"}, c)

	for _, name := range []string{"a.txt", "b.txt", "a.txt"} {
		if err := writeFile(filepath.Join(dir, name), "hello"); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(500 * time.Millisecond)

	calls := c.snapshot()
	if len(calls) != 1 {
		t.Fatalf("onChange called %d times, want 1: %v", len(calls), calls)
	}
	if len(calls[0]) != 2 {
		t.Errorf("paths = %v, want a.txt and b.txt", calls[0])
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	c := &changes{}
	startWatcher(t, dir, []string{".txt"}, c)

	if err := writeFile(filepath.Join(dir, "notes.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, ".hidden.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	if calls := c.snapshot(); len(calls) != 0 {
		t.Errorf("expected no changes, got %v", calls)
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	if err := writeFile(path, "bye"); err != nil {
		t.Fatal(err)
	}
	c := &changes{}
	startWatcher(t, dir, nil, c)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	calls := c.snapshot()
	if len(calls) != 1 || len(calls[0]) != 1 || calls[0][0] != path {
		t.Errorf("calls = %v, want [[%s]]", calls, path)
	}
}

func TestWatcher_StopDiscardsPending(t *testing.T) {
	dir := t.TempDir()
	c := &changes{}
	w := NewWatcher(dir, nil, c.record, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "a.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()
	time.Sleep(350 * time.Millisecond)

	if calls := c.snapshot(); len(calls) != 0 {
		t.Errorf("expected no changes after Stop, got %v", calls)
	}
}

func TestWatcher_StartMissingRoot(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error for missing root")
	}
}

func TestRelevant(t *testing.T) {
	w := NewWatcher("/corpus", []string{".txt"}, nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/corpus/a.txt", true},
		{"/corpus/A.TXT", true},
		{"/corpus/a.md", false},
		{"/corpus/.a.txt", false},
		{"/corpus/sub/a.txt", false},
		{"/elsewhere/a.txt", false},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.path); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func TestWatcher_NilLogger(t *testing.T) {
	dir := t.TempDir()
	c := &changes{}
	w := NewWatcher(dir, nil, c.record, WithLogger(nil), WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	if err := writeFile(filepath.Join(dir, "a.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if calls := c.snapshot(); len(calls) != 1 {
		t.Errorf("onChange called %d times, want 1", len(calls))
	}
}
