// CLAUDE:SUMMARY CLI entry point: loads an IR DOM document, applies a toolbar command at a caret offset, flushes the pipeline, prints Markdown.
// Command irdom drives a headless editing instance from the shell.
//
// Usage:
//
//	irdom -in doc.html                               # print the Markdown form
//	irdom -in doc.html -cmd quote -caret 3           # quote the block at offset 3
//	irdom -in doc.html -cmd headings -level "## "    # make the block a level 2 heading
//	irdom -in doc.html -cmd link -active -html       # remove a link, print the IR DOM
//	irdom -config editor.yaml -in doc.html -cmd line # persist through the configured cache
//	irdom -config editor.yaml -in doc.html -clear-cache
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/net/html"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/irdom/cache"
	"github.com/hazyhaar/irdom/caret"
	"github.com/hazyhaar/irdom/config"
	"github.com/hazyhaar/irdom/editor"
	"github.com/hazyhaar/irdom/toolbar"
)

type options struct {
	configPath string
	in         string
	cmd        string
	active     bool
	level      string
	caret      int
	printHTML  bool
	clearCache bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to editor.yaml config file")
	flag.StringVar(&o.in, "in", "-", "IR DOM input file, - for stdin")
	flag.StringVar(&o.cmd, "cmd", "", "toolbar command: headings, quote, link, line")
	flag.BoolVar(&o.active, "active", false, "take the removal path of the command")
	flag.StringVar(&o.level, "level", "", "heading prefix for -cmd headings, empty removes")
	flag.IntVar(&o.caret, "caret", 0, "caret position as an offset into the document text")
	flag.BoolVar(&o.printHTML, "html", false, "print the IR DOM instead of Markdown")
	flag.BoolVar(&o.clearCache, "clear-cache", false, "remove the cached document of the configured editor id")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o, os.Stdout); err != nil {
		logger.Error("irdom: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options, out io.Writer) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return err
		}
	}

	markup, err := readInput(o.in)
	if err != nil {
		return err
	}

	deps := editor.Deps{Logger: logger}
	if cfg.Cache.Enable {
		db, err := cache.Open(cfg.Cache.Path,
			cache.WithMkdirAll(),
			cache.WithBusyTimeout(cfg.Cache.BusyTimeout),
			cache.WithSynchronous(cfg.Cache.Synchronous),
		)
		if err != nil {
			return err
		}
		defer db.Close()
		deps.Store = cache.NewStore(db, logger)
	}

	inst, err := editor.New(cfg, markup, deps)
	if err != nil {
		return err
	}
	defer inst.Close()

	inst.Do(func(root *html.Node, b *caret.Bridge) {
		b.Set(caret.PointAt(root, o.caret))
	})

	if o.cmd != "" {
		cmd := toolbar.Command{Kind: toolbar.ParseKind(o.cmd), Active: o.active, Level: o.level}
		if err := inst.Toolbar(ctx, cmd); err != nil {
			return err
		}
		inst.Flush(ctx)
		logger.Info("irdom: command applied", "command", cmd.Kind, "active", cmd.Active, "editor", inst.ID())
	}

	if o.clearCache {
		if err := inst.ClearCache(ctx); err != nil {
			return err
		}
		logger.Info("irdom: cache cleared", "editor", inst.ID())
	}

	if o.printHTML {
		_, err := fmt.Fprintln(out, inst.HTML())
		return err
	}
	md, err := inst.Markdown()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, md)
	return err
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("irdom: read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("irdom: read input: %w", err)
	}
	return string(data), nil
}
