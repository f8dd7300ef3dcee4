package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/irdom/cache"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	in := writeFile(t, "doc.html", `<p data-block="0">hello</p>`)
	tests := []struct {
		name string
		o    options
		want string
	}{
		{"plain", options{in: in}, "hello"},
		{"quote", options{in: in, cmd: "quote", caret: 2}, "> hello"},
		{"heading", options{in: in, cmd: "headings", level: "## "}, "## hello"},
		{"html", options{in: in, cmd: "quote", printHTML: true}, `<blockquote data-block="0"><p data-block="0">hello</p></blockquote>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), slog.Default(), tt.o, &out); err != nil {
				t.Fatal(err)
			}
			if got := strings.TrimSpace(out.String()); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_Cache(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "editor.db")
	cfg := writeFile(t, "editor.yaml", "id: doc\ncache:\n  enable: true\n  path: "+dbPath+"\n")
	in := writeFile(t, "doc.html", `<p data-block="0">x</p>`)

	var out bytes.Buffer
	if err := run(context.Background(), slog.Default(), options{configPath: cfg, in: in, cmd: "line"}, &out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("cache database not created: %v", err)
	}
}

func TestRun_ClearCache(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "editor.db")
	cfg := writeFile(t, "editor.yaml", "id: doc\ncache:\n  enable: true\n  path: "+dbPath+"\n  busy_timeout: 2000\n  synchronous: full\n")
	in := writeFile(t, "doc.html", `<p data-block="0">x</p>`)

	if err := run(ctx, slog.Default(), options{configPath: cfg, in: in, cmd: "quote"}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if got := cached(t, dbPath); got != "> x" {
		t.Fatalf("cached: %q", got)
	}

	if err := run(ctx, slog.Default(), options{configPath: cfg, in: in, clearCache: true}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if got := cached(t, dbPath); got != "" {
		t.Errorf("cache not cleared: %q", got)
	}
}

func TestRun_BadCacheOption(t *testing.T) {
	cfg := writeFile(t, "editor.yaml", "cache:\n  enable: true\n  synchronous: sometimes\n")
	in := writeFile(t, "doc.html", `<p data-block="0">x</p>`)
	if err := run(context.Background(), slog.Default(), options{configPath: cfg, in: in}, &bytes.Buffer{}); !errors.Is(err, cache.ErrInvalidOption) {
		t.Errorf("got %v, want ErrInvalidOption", err)
	}
}

// cached returns the document stored for editor "doc", or "" when none is.
func cached(t *testing.T, path string) string {
	t.Helper()
	db, err := cache.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	got, err := cache.NewStore(db, nil).Get(context.Background(), "vditordoc")
	if errors.Is(err, cache.ErrNotFound) {
		return ""
	}
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestRun_UnknownCommand(t *testing.T) {
	in := writeFile(t, "doc.html", `<p data-block="0">x</p>`)
	if err := run(context.Background(), slog.Default(), options{in: in, cmd: "bold"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error")
	}
}
