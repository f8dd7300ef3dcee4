// CLAUDE:SUMMARY Per-instance editing context: owns the tree, caret bridge, toolbar, code renderer, hinter and change pipeline.
// Package editor assembles one instant-render editing instance.
//
// An Instance serializes every user turn (toolbar command, caret move,
// render request) and the debounced pipeline run behind a single mutex, so
// the tree is never observed mid-mutation. Collaborators the host provides
// (caret, renderer backends, hint popup, counter, undo stack) are injected
// through Deps; nil ones are skipped.
//
// The hint popup and the pipeline sinks are called after the mutex is
// released and may call back into the Instance. The caret, the toolbar
// status sink and the renderer backends run under it and must not.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/hazyhaar/irdom/caret"
	"github.com/hazyhaar/irdom/codeblock"
	"github.com/hazyhaar/irdom/config"
	"github.com/hazyhaar/irdom/dom"
	"github.com/hazyhaar/irdom/hint"
	"github.com/hazyhaar/irdom/markdown"
	"github.com/hazyhaar/irdom/process"
	"github.com/hazyhaar/irdom/toolbar"
)

// Deps are the host collaborators of an Instance.
type Deps struct {
	// Selection is the host caret. Defaults to a headless caret.
	Selection caret.Selection

	Backends codeblock.Backends
	Status   toolbar.StatusSink
	Hint     hint.Sink

	Input       process.InputFunc
	Counter     process.Counter
	Store       process.Store
	Diagnostics process.Diagnostics
	Undo        process.Undo

	// Scheduler defaults to the runtime timer.
	Scheduler process.Scheduler

	// NewID generates the instance ID when the configuration has none.
	// Defaults to UUIDv7.
	NewID func() string

	Logger *slog.Logger
}

func (d *Deps) defaults() {
	if d.Selection == nil {
		d.Selection = caret.NewHeadless()
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
}

// Instance is one editor.
type Instance struct {
	id     string
	logger *slog.Logger

	mu         sync.Mutex
	root       *html.Node
	bridge     *caret.Bridge
	toolbar    *toolbar.Dispatcher
	renderer   *codeblock.Renderer
	serializer *markdown.Serializer
	pipeline   *process.Pipeline
	hint       hint.Sink

	store    process.Store
	cacheKey string
}

// New builds an Instance over the IR DOM markup. A nil cfg uses
// config.Default().
func New(cfg *config.Config, markup string, deps Deps) (*Instance, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	deps.defaults()

	root, err := dom.NewRoot(markup)
	if err != nil {
		return nil, fmt.Errorf("editor: new: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = deps.NewID()
	}
	logger := deps.Logger.With("editor", id)

	inst := &Instance{
		id:         id,
		logger:     logger,
		root:       root,
		bridge:     caret.NewBridge(root, deps.Selection),
		serializer: markdown.New(),
		hint:       deps.Hint,
		store:      deps.Store,
		cacheKey:   process.CacheKey(cfg.Cache.Namespace, id),
	}

	counter := deps.Counter
	if !cfg.Counter.Enable {
		counter = nil
	}
	inst.pipeline = process.New(process.Config{
		ID:                   id,
		Root:                 root,
		Serializer:           inst.serializer,
		Input:                deps.Input,
		Counter:              counter,
		CounterMax:           cfg.Counter.Max,
		Store:                deps.Store,
		Cache:                cfg.Cache.Enable,
		CacheKey:             inst.cacheKey,
		Diagnostics:          deps.Diagnostics,
		Undo:                 deps.Undo,
		Debounce:             cfg.Debounce,
		Scheduler:            deps.Scheduler,
		CompositionSensitive: cfg.Host.CompositionSensitive,
		Locker:               &inst.mu,
		Logger:               logger,
	})
	inst.toolbar = toolbar.New(toolbar.Config{
		Bridge: inst.bridge,
		Status: deps.Status,
		OnChange: func(ctx context.Context) {
			inst.pipeline.Trigger(ctx, process.DefaultOptions())
		},
		Logger: logger,
	})
	inst.renderer = codeblock.New(codeblock.Config{
		Backends:  deps.Backends,
		CDN:       cfg.CDN,
		Lang:      cfg.Lang,
		Math:      cfg.Preview.Math,
		Highlight: cfg.Preview.Hljs,
		Logger:    logger,
	})

	logger.Debug("editor: created", "blocks", dom.ChildCount(root))
	return inst, nil
}

// ID returns the instance ID.
func (i *Instance) ID() string { return i.id }

// Toolbar applies a toolbar command.
func (i *Instance) Toolbar(ctx context.Context, cmd toolbar.Command) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.toolbar.Apply(ctx, cmd)
}

// ProcessAfterRender runs the hint pass when opts.EnableHint is set, then
// schedules the change pipeline.
func (i *Instance) ProcessAfterRender(ctx context.Context, opts process.Options) {
	i.mu.Lock()
	var notify func()
	if opts.EnableHint {
		notify = i.hintPass(ctx)
	}
	i.pipeline.Trigger(ctx, opts)
	i.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// hintPass reads the caret and returns the hint sink call to make once the
// lock is released: languages while the caret is in a code block info
// string, a reopen elsewhere.
func (i *Instance) hintPass(ctx context.Context) func() {
	if i.hint == nil {
		return nil
	}
	sink := i.hint
	call := func(fn func()) func() {
		return func() {
			defer func() {
				if p := recover(); p != nil {
					i.logger.Error("editor: hint sink panicked", "panic", fmt.Sprint(p))
				}
			}()
			fn()
		}
	}

	r := i.bridge.Read()
	info := dom.ClosestByAttribute(r.StartContainer, dom.AttrType, dom.TypeCodeBlockInfo)
	if info == nil {
		return call(func() { sink.Reopen(ctx) })
	}
	raw := dom.TextContent(info)
	candidates, typed := hint.Match(hint.Key(raw)), hint.Typed(raw)
	return call(func() { sink.Render(ctx, candidates, typed) })
}

// RenderCodeBlock renders one preview panel and returns the content type
// used.
func (i *Instance) RenderCodeBlock(ctx context.Context, panel *html.Node) codeblock.ContentType {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.renderer.Render(ctx, panel)
}

// RenderPreviews renders every preview panel of the document. It returns
// the number of panels rendered.
func (i *Instance) RenderPreviews(ctx context.Context) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	panels := dom.FindAll(i.root, func(n *html.Node) bool { return dom.HasClass(n, dom.ClassPreview) })
	for _, p := range panels {
		i.renderer.Render(ctx, p)
	}
	return len(panels)
}

// SetComposing records an input-method composition start or end.
func (i *Instance) SetComposing(on bool) { i.pipeline.SetComposing(on) }

// SetSelection moves the live caret.
func (i *Instance) SetSelection(r caret.Range) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.bridge.Set(r)
}

// Do runs fn with exclusive access to the editing root and caret bridge.
// fn must not retain either after returning.
func (i *Instance) Do(fn func(root *html.Node, b *caret.Bridge)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	fn(i.root, i.bridge)
}

// HTML returns the current IR DOM markup.
func (i *Instance) HTML() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return dom.InnerHTML(i.root)
}

// Markdown returns the serialized document.
func (i *Instance) Markdown() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.serializer.Serialize(i.root)
}

// Flush runs a pending pipeline run immediately. It reports whether one
// ran. The pipeline takes the instance lock itself while serializing.
func (i *Instance) Flush(ctx context.Context) bool {
	return i.pipeline.Flush(ctx)
}

// deleter is implemented by stores that can drop a document.
type deleter interface {
	Delete(ctx context.Context, key string) error
}

// ClearCache drops a pending run and removes the cached document. Stores
// without a Delete method are left as they are.
func (i *Instance) ClearCache(ctx context.Context) error {
	i.pipeline.Cancel()
	d, ok := i.store.(deleter)
	if !ok {
		return nil
	}
	if err := d.Delete(ctx, i.cacheKey); err != nil {
		return fmt.Errorf("editor: clear cache: %w", err)
	}
	i.logger.Debug("editor: cache cleared", "key", i.cacheKey)
	return nil
}

// Close drops any pending pipeline run.
func (i *Instance) Close() {
	i.pipeline.Cancel()
	i.logger.Debug("editor: closed")
}
