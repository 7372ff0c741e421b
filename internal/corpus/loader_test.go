package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.txt":   "the dog sat",
		"a.txt":   "the cat sat",
		".hidden": "secret",
	})
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, filepath.Join(dir, "nested"), map[string]string{"c.txt": "ignored"})

	c, err := NewLoader(nil).Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.Documents[0].ID != "a.txt" || c.Documents[1].ID != "b.txt" {
		t.Errorf("order = %s, %s; want a.txt, b.txt", c.Documents[0].ID, c.Documents[1].ID)
	}
	if c.Documents[0].Text != "the cat sat" {
		t.Errorf("text = %q", c.Documents[0].Text)
	}
	if c.Documents[1].Path != filepath.Join(dir, "b.txt") {
		t.Errorf("path = %q", c.Documents[1].Path)
	}
}

func TestLoad_extensionFilter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"keep.txt":  "kept",
		"KEEP2.MD":  "kept too",
		"drop.json": "{}",
	})
	c, err := NewLoader(nil, WithExtensions([]string{".txt", "md"})).Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLoad_notFound(t *testing.T) {
	dir := t.TempDir()
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(dir, "missing"))
	if !errors.Is(err, ErrCorpusNotFound) {
		t.Errorf("err = %v, want ErrCorpusNotFound", err)
	}

	file := filepath.Join(dir, "file.txt")
	writeFiles(t, dir, map[string]string{"file.txt": "x"})
	_, err = NewLoader(nil).Load(context.Background(), file)
	if !errors.Is(err, ErrCorpusNotFound) {
		t.Errorf("err = %v, want ErrCorpusNotFound for a regular file", err)
	}
}

func TestLoad_unreadableDocument(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.txt":   "fine",
		"broken.pdf": "not really a pdf",
	})

	t.Run("skipped by default", func(t *testing.T) {
		c, err := NewLoader(nil).Load(context.Background(), dir)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if c.Len() != 1 || c.Documents[0].ID != "good.txt" {
			t.Errorf("documents = %+v, want only good.txt", c.Documents)
		}
		if len(c.Skipped) != 1 || filepath.Base(c.Skipped[0].Path) != "broken.pdf" {
			t.Errorf("skipped = %+v, want broken.pdf", c.Skipped)
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		_, err := NewLoader(nil, WithStrict(true)).Load(context.Background(), dir)
		var uerr *UnreadableDocumentError
		if !errors.As(err, &uerr) {
			t.Fatalf("err = %v, want UnreadableDocumentError", err)
		}
		if filepath.Base(uerr.Path) != "broken.pdf" {
			t.Errorf("path = %q", uerr.Path)
		}
	})
}

func TestLoad_cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "x", "b.txt": "y"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader(nil).Load(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		want    bool
	}{
		{"a.txt", []string{".txt", ".md"}, true},
		{"A.TXT", []string{".txt"}, true},
		{"a.md", []string{"md"}, true},
		{"a.go", []string{".txt"}, false},
		{"noext", []string{".txt"}, false},
		{"anything.bin", nil, true},
	}
	for _, tt := range tests {
		if got := ExtensionAllowed(tt.name, tt.allowed); got != tt.want {
			t.Errorf("ExtensionAllowed(%q, %v) = %v, want %v", tt.name, tt.allowed, got, tt.want)
		}
	}
}

func TestLoad_nilLogger(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.txt":   "fine",
		"broken.pdf": "not really a pdf",
	})
	c, err := NewLoader(nil, WithLogger(nil)).Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 || len(c.Skipped) != 1 {
		t.Errorf("documents = %d, skipped = %d; want 1 and 1", c.Len(), len(c.Skipped))
	}
}
