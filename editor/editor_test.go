package editor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/irdom/cache"
	"github.com/hazyhaar/irdom/caret"
	"github.com/hazyhaar/irdom/codeblock"
	"github.com/hazyhaar/irdom/config"
	"github.com/hazyhaar/irdom/dom"
	"github.com/hazyhaar/irdom/hint"
	"github.com/hazyhaar/irdom/process"
	"github.com/hazyhaar/irdom/toolbar"
)

type hintRecorder struct {
	rendered [][]hint.Candidate
	keys     []string
	reopened int
	// onRender runs inside Render.
	onRender func()
}

func (h *hintRecorder) Render(_ context.Context, c []hint.Candidate, key string) {
	h.rendered = append(h.rendered, c)
	h.keys = append(h.keys, key)
	if h.onRender != nil {
		h.onRender()
	}
}

func (h *hintRecorder) Reopen(context.Context) { h.reopened++ }

type undoRecorder struct {
	n     int
	snaps []process.Snapshot
	// onAdd runs inside AddToUndoStack.
	onAdd func()
}

func (u *undoRecorder) AddToUndoStack(_ context.Context, snap process.Snapshot) {
	u.n++
	u.snaps = append(u.snaps, snap)
	if u.onAdd != nil {
		u.onAdd()
	}
}

type fixture struct {
	inst   *Instance
	sched  *process.ManualScheduler
	sel    *caret.Headless
	store  *cache.Store
	inputs []string
	undo   undoRecorder
	hints  *hintRecorder
}

func newFixture(t *testing.T, cfg *config.Config, markup string) *fixture {
	t.Helper()
	f := &fixture{
		sched: process.NewManualScheduler(),
		sel:   caret.NewHeadless(),
		store: cache.NewStore(cache.OpenMemory(t), nil),
		hints: &hintRecorder{},
	}
	inst, err := New(cfg, markup, Deps{
		Selection: f.sel,
		Hint:      f.hints,
		Input:     func(s string) { f.inputs = append(f.inputs, s) },
		Store:     f.store,
		Undo:      &f.undo,
		Scheduler: f.sched,
		NewID:     func() string { return "doc" },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(inst.Close)
	f.inst = inst
	return f
}

func (f *fixture) caretIn(t *testing.T, data string, offset int) {
	t.Helper()
	f.inst.Do(func(root *html.Node, b *caret.Bridge) {
		n := dom.FindFirst(root, func(n *html.Node) bool { return n.Type == html.TextNode && n.Data == data })
		if n == nil {
			t.Fatalf("text %q not found", data)
		}
		b.Set(caret.Collapsed(n, offset))
	})
}

func TestNew_DefaultID(t *testing.T) {
	inst, err := New(nil, `<p data-block="0">x</p>`, Deps{})
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close()
	if len(inst.ID()) != 36 {
		t.Errorf("want a UUID, got %q", inst.ID())
	}
}

func TestToolbar_TriggersDebouncedPipeline(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enable = true
	f := newFixture(t, cfg, `<p data-block="0">hello</p>`)
	ctx := context.Background()

	f.caretIn(t, "hello", 2)
	if err := f.inst.Toolbar(ctx, toolbar.Command{Kind: toolbar.Quote}); err != nil {
		t.Fatal(err)
	}
	if len(f.inputs) != 0 {
		t.Fatal("pipeline ran before the debounce window")
	}

	f.sched.Advance(cfg.Debounce)
	if len(f.inputs) != 1 || f.inputs[0] != "> hello" {
		t.Fatalf("inputs: %q", f.inputs)
	}
	if f.undo.n != 1 {
		t.Errorf("undo: %d", f.undo.n)
	}
	got, err := f.store.Get(ctx, "vditordoc")
	if err != nil {
		t.Fatal(err)
	}
	if got != "> hello" {
		t.Errorf("cached: %q", got)
	}
}

func TestToolbar_Burst(t *testing.T) {
	f := newFixture(t, nil, `<p data-block="0">a</p><p data-block="0">b</p>`)
	ctx := context.Background()

	f.caretIn(t, "a", 1)
	if err := f.inst.Toolbar(ctx, toolbar.Command{Kind: toolbar.Quote}); err != nil {
		t.Fatal(err)
	}
	f.caretIn(t, "b", 1)
	if err := f.inst.Toolbar(ctx, toolbar.Command{Kind: toolbar.Quote}); err != nil {
		t.Fatal(err)
	}

	f.sched.Advance(config.Default().Debounce)
	if len(f.inputs) != 1 {
		t.Fatalf("want one run, got %d", len(f.inputs))
	}
	if !strings.Contains(f.inputs[0], "> a") || !strings.Contains(f.inputs[0], "> b") {
		t.Errorf("run must see the final tree: %q", f.inputs[0])
	}
}

func TestProcessAfterRender_Hint(t *testing.T) {
	f := newFixture(t, nil, `<div data-block="0" data-type="code-block"><span class="vditor-ir__marker vditor-ir__marker--info" data-type="code-block-info">`+dom.Zwsp+`pyth</span><pre><code>x</code></pre></div><p data-block="0">after</p>`)
	ctx := context.Background()

	f.caretIn(t, dom.Zwsp+"pyth", len(dom.Zwsp+"pyth"))
	f.inst.ProcessAfterRender(ctx, process.Options{EnableHint: true, EnableInput: true})

	if len(f.hints.keys) != 1 || f.hints.keys[0] != "pyth" {
		t.Fatalf("keys: %q", f.hints.keys)
	}
	var values []string
	for _, c := range f.hints.rendered[0] {
		values = append(values, c.Value)
	}
	if strings.Join(values, ",") != "python,python-repl" {
		t.Errorf("candidates: %v", values)
	}

	f.caretIn(t, "after", 0)
	f.inst.ProcessAfterRender(ctx, process.Options{EnableHint: true})
	if f.hints.reopened != 1 {
		t.Errorf("reopened: %d", f.hints.reopened)
	}

	f.inst.ProcessAfterRender(ctx, process.DefaultOptions())
	if f.hints.reopened != 1 || len(f.hints.keys) != 1 {
		t.Error("hint pass must not run without EnableHint")
	}
}

func TestComposition(t *testing.T) {
	cfg := config.Default()
	cfg.Host.CompositionSensitive = true
	f := newFixture(t, cfg, `<p data-block="0">x</p>`)

	f.inst.SetComposing(true)
	f.inst.ProcessAfterRender(context.Background(), process.DefaultOptions())
	f.sched.Advance(cfg.Debounce)
	if len(f.inputs) != 0 {
		t.Fatal("run during composition")
	}

	f.inst.SetComposing(false)
	f.inst.ProcessAfterRender(context.Background(), process.DefaultOptions())
	f.sched.Advance(cfg.Debounce)
	if len(f.inputs) != 1 {
		t.Errorf("inputs: %v", f.inputs)
	}
}

func TestFlushAndMarkdown(t *testing.T) {
	f := newFixture(t, nil, `<p data-block="0">title</p>`)
	ctx := context.Background()

	f.caretIn(t, "title", 0)
	if err := f.inst.Toolbar(ctx, toolbar.Command{Kind: toolbar.Heading, Level: "# "}); err != nil {
		t.Fatal(err)
	}
	if !f.inst.Flush(ctx) {
		t.Fatal("flush")
	}
	md, err := f.inst.Markdown()
	if err != nil {
		t.Fatal(err)
	}
	if md != "# title" || f.inputs[0] != md {
		t.Errorf("markdown %q, inputs %q", md, f.inputs)
	}
	if f.inst.Flush(ctx) {
		t.Error("second flush has nothing to run")
	}
}

func TestRenderPreviews(t *testing.T) {
	var langs []string
	inst, err := New(nil, `<div data-block="0"><pre class="vditor-ir__preview"><code class="language-mermaid">graph</code></pre></div><div data-block="0"><pre class="vditor-ir__preview"><code class="language-go">x</code></pre></div>`, Deps{
		Backends: codeblock.Backends{
			Mermaid:   codeblock.BackendFunc(func(context.Context, codeblock.Request) error { langs = append(langs, "mermaid"); return nil }),
			Highlight: codeblock.BackendFunc(func(context.Context, codeblock.Request) error { langs = append(langs, "hl"); return nil }),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close()

	if n := inst.RenderPreviews(context.Background()); n != 2 {
		t.Errorf("panels: %d", n)
	}
	if strings.Join(langs, ",") != "mermaid,hl" {
		t.Errorf("calls: %v", langs)
	}
}

// within fails the test when fn does not return in time.
func within(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never returned", what)
	}
}

func TestUndoSinkReadsDocument(t *testing.T) {
	f := newFixture(t, nil, `<p data-block="0">hello</p>`)
	ctx := context.Background()
	var seen []string
	f.undo.onAdd = func() { seen = append(seen, f.inst.HTML()) }

	f.caretIn(t, "hello", 0)
	if err := f.inst.Toolbar(ctx, toolbar.Command{Kind: toolbar.Line}); err != nil {
		t.Fatal(err)
	}
	within(t, "debounced run", func() { f.sched.Advance(config.Default().Debounce) })

	if err := f.inst.Toolbar(ctx, toolbar.Command{Kind: toolbar.Quote}); err != nil {
		t.Fatal(err)
	}
	within(t, "flush", func() { f.inst.Flush(ctx) })

	if len(seen) != 2 {
		t.Fatalf("undo calls: %d", len(seen))
	}
	for i, snap := range f.undo.snaps {
		if snap.ID != "doc" || snap.HTML != seen[i] {
			t.Errorf("run %d: snapshot %+v, document %s", i, snap, seen[i])
		}
	}
	if !strings.Contains(seen[0], "<hr") {
		t.Errorf("first read: %s", seen[0])
	}
}

func TestHintSinkReadsDocument(t *testing.T) {
	f := newFixture(t, nil, `<div data-block="0" data-type="code-block"><span class="vditor-ir__marker vditor-ir__marker--info" data-type="code-block-info">PyTh</span><pre><code>x</code></pre></div>`)
	var seen string
	f.hints.onRender = func() { seen = f.inst.HTML() }

	f.caretIn(t, "PyTh", 4)
	within(t, "hint pass", func() {
		f.inst.ProcessAfterRender(context.Background(), process.Options{EnableHint: true})
	})
	if !strings.Contains(seen, "PyTh") {
		t.Errorf("hint sink read %q", seen)
	}
}

func TestProcessAfterRender_HintKeepsTypedCase(t *testing.T) {
	f := newFixture(t, nil, `<div data-block="0" data-type="code-block"><span class="vditor-ir__marker vditor-ir__marker--info" data-type="code-block-info">`+dom.Zwsp+`PyTh </span><pre><code>x</code></pre></div>`)

	f.caretIn(t, dom.Zwsp+"PyTh ", 3)
	f.inst.ProcessAfterRender(context.Background(), process.Options{EnableHint: true})

	if len(f.hints.keys) != 1 || f.hints.keys[0] != "PyTh" {
		t.Fatalf("keys: %q", f.hints.keys)
	}
	var values []string
	for _, c := range f.hints.rendered[0] {
		values = append(values, c.Value)
	}
	if strings.Join(values, ",") != "python,python-repl" {
		t.Errorf("candidates: %v", values)
	}
}

func TestClearCache(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enable = true
	f := newFixture(t, cfg, `<p data-block="0">keep</p>`)
	ctx := context.Background()

	f.inst.ProcessAfterRender(ctx, process.DefaultOptions())
	f.inst.Flush(ctx)
	if _, err := f.store.Get(ctx, "vditordoc"); err != nil {
		t.Fatalf("before clear: %v", err)
	}

	f.inst.ProcessAfterRender(ctx, process.DefaultOptions())
	if err := f.inst.ClearCache(ctx); err != nil {
		t.Fatal(err)
	}
	f.sched.Advance(cfg.Debounce)
	if _, err := f.store.Get(ctx, "vditordoc"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("after clear: %v", err)
	}
}
