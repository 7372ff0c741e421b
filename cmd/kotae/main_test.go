package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ranking"
)

func TestArgsReorder(t *testing.T) {
	boolFlags := map[string]bool{"once": true, "debug": true}
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after corpus are moved first",
			args:     []string{"corpus", "--files", "2"},
			expected: []string{"--files", "2", "corpus"},
		},
		{
			name:     "flags first returns same order",
			args:     []string{"--files", "2", "corpus"},
			expected: []string{"--files", "2", "corpus"},
		},
		{
			name:     "bool flag does not consume the corpus",
			args:     []string{"--once", "corpus", "--debug"},
			expected: []string{"--once", "--debug", "corpus"},
		},
		{
			name:     "flag with equals sign",
			args:     []string{"corpus", "--output=json"},
			expected: []string{"--output=json", "corpus"},
		},
		{
			name:     "double dash ends flags",
			args:     []string{"--", "-odd-dir"},
			expected: []string{"-odd-dir"},
		},
		{
			name:     "empty args",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args, boolFlags)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	t.Run("exactly one corpus", func(t *testing.T) {
		opts, err := parseArgs([]string{"corpus", "--once", "--sentences", "3"}, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		if opts.corpus != "corpus" || !opts.once || opts.sentences != 3 || !opts.set["sentences"] {
			t.Errorf("opts = %+v", opts)
		}
		if opts.set["files"] {
			t.Error("files should not be marked as set")
		}
	})

	for _, args := range [][]string{nil, {"a", "b"}, {"--once"}} {
		var stderr bytes.Buffer
		if _, err := parseArgs(args, &stderr); !errors.Is(err, errUsage) {
			t.Errorf("parseArgs(%v) err = %v, want usage error", args, err)
		}
		if !strings.Contains(stderr.String(), "Usage: kotae") {
			t.Errorf("parseArgs(%v) did not print usage: %q", args, stderr.String())
		}
	}

	if _, err := parseArgs([]string{"--files", "x", "corpus"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Errorf("bad flag value err = %v, want usage error", err)
	}
}

func TestLoadConfig_missingDefaultUsesDefaults(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("default config exists on this machine")
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		t.Skip("config.yaml present in working directory")
	}
	cfg, path, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if path != "" || cfg.Ranking.FileMatches != 1 {
		t.Errorf("path = %q, cfg = %+v", path, cfg.Ranking)
	}
}

func TestLoadConfig_explicitMissingPathFails(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

type fakeAsker struct {
	queries []string
	err     error
}

func (f *fakeAsker) Ask(_ context.Context, req *models.AskRequest) (*models.Answer, error) {
	f.queries = append(f.queries, req.Query)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Answer{
		Query:     req.Query,
		Sentences: []models.RankedSentence{{Text: "answer to " + req.Query, Rank: 1}},
	}, nil
}

func TestRunPrompt(t *testing.T) {
	f := &fakeAsker{}
	var out bytes.Buffer
	err := runPrompt(context.Background(), f, strings.NewReader("first\nsecond\n"), &out, cli.OutputText, false)
	if err != nil {
		t.Fatal(err)
	}
	want := "Query: answer to first\nQuery: answer to second\nQuery: \n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if !reflect.DeepEqual(f.queries, []string{"first", "second"}) {
		t.Errorf("queries = %v", f.queries)
	}
}

func TestRunPrompt_once(t *testing.T) {
	f := &fakeAsker{}
	var out bytes.Buffer
	if err := runPrompt(context.Background(), f, strings.NewReader("first\nsecond\n"), &out, cli.OutputText, true); err != nil {
		t.Fatal(err)
	}
	if len(f.queries) != 1 || out.String() != "Query: answer to first\n" {
		t.Errorf("queries = %v, output = %q", f.queries, out.String())
	}
}

func TestRunPrompt_askError(t *testing.T) {
	f := &fakeAsker{err: ranking.ErrInvalidCount}
	err := runPrompt(context.Background(), f, strings.NewReader("q\n"), &bytes.Buffer{}, cli.OutputText, false)
	if !errors.Is(err, ranking.ErrInvalidCount) {
		t.Errorf("err = %v, want ErrInvalidCount", err)
	}
}

func TestRun_endToEnd(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{"a.txt": "the cat sat", "b.txt": "the dog sat"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("debug: false\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{dir, "--config", cfgPath, "--once"}, strings.NewReader("cat\n"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
	if stdout.String() != "Query: the cat sat\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRun_failures(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("debug: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no corpus", []string{"--config", cfgPath}, "Usage: kotae"},
		{"missing corpus", []string{"--config", cfgPath, filepath.Join(t.TempDir(), "missing")}, "Failed to load corpus"},
		{"zero files", []string{"--config", cfgPath, "--files", "0", t.TempDir()}, "Invalid configuration"},
		{"bad output", []string{"--output", "xml", t.TempDir()}, "unknown output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, strings.NewReader(""), &stdout, &stderr); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.want)
			}
		})
	}
}

func TestRun_version(t *testing.T) {
	var stdout bytes.Buffer
	if code := run([]string{"--version"}, strings.NewReader(""), &stdout, &bytes.Buffer{}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "kotae version") {
		t.Errorf("stdout = %q", stdout.String())
	}
}
