// CLAUDE:SUMMARY Debounced, composition-aware change pipeline: serialize, input callback, counter, cache, diagnostics, undo.
// Package process runs the post-edit workflow of an editor instance.
//
// Every Trigger cancels the pending run and schedules a new one after the
// debounce window, so a burst of edits produces a single run that sees the
// tree as it was after the last edit. A run serializes the tree, then
// notifies each configured sink in order:
//
//	input callback → counter → cache → diagnostics → undo stack
//
// The tree lock (Config.Locker) is held only while the run serializes the
// tree. Sinks are called after it is released and receive a Snapshot, so
// they may call back into the editor. Each sink call is isolated: an error
// or panic is logged and the run continues with the next step.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/irdom/dom"
)

// DefaultDebounce is the delay between the last trigger and the run.
const DefaultDebounce = 800 * time.Millisecond

// Options are per-trigger switches.
type Options struct {
	EnableAddUndoStack bool `json:"enable_add_undo_stack" yaml:"enable_add_undo_stack"`
	// EnableHint runs the language hint pass before scheduling. The
	// pipeline itself ignores it.
	EnableHint  bool `json:"enable_hint" yaml:"enable_hint"`
	EnableInput bool `json:"enable_input" yaml:"enable_input"`
}

// DefaultOptions enables everything but hinting.
func DefaultOptions() Options {
	return Options{EnableAddUndoStack: true, EnableInput: true}
}

// Serializer turns the tree into canonical text.
type Serializer interface {
	Serialize(root *html.Node) (string, error)
}

// InputFunc receives the serialized text after each run.
type InputFunc func(text string)

// Counter displays the text length.
type Counter interface {
	Render(ctx context.Context, length, max int)
}

// Store persists the text.
type Store interface {
	Set(ctx context.Context, key, value string) error
}

// Snapshot is the document state a run publishes. It is taken while the
// tree is locked and may be kept by sinks.
type Snapshot struct {
	// ID is the editor instance ID.
	ID string
	// Markdown is the serialized text.
	Markdown string
	// HTML is the IR DOM markup of the editing root, markers included.
	HTML string
}

// Diagnostics re-renders derived visualizations of the document.
type Diagnostics interface {
	RenderDerived(ctx context.Context, snap Snapshot)
}

// Undo records a state on the undo stack.
type Undo interface {
	AddToUndoStack(ctx context.Context, snap Snapshot)
}

// CacheKey builds the persistence key of an instance.
func CacheKey(namespace, id string) string {
	return namespace + id
}

// Config configures a Pipeline.
type Config struct {
	// ID is copied into every Snapshot.
	ID string
	// Root is the live tree to serialize.
	Root       *html.Node
	Serializer Serializer

	Input      InputFunc
	Counter    Counter
	CounterMax int
	// Store receives the text under CacheKey when Cache is set.
	Store       Store
	Cache       bool
	CacheKey    string
	Diagnostics Diagnostics
	Undo        Undo

	// Debounce defaults to DefaultDebounce.
	Debounce  time.Duration
	Scheduler Scheduler

	// CompositionSensitive marks hosts where running during an IME
	// composition corrupts the next composition.
	CompositionSensitive bool

	// Locker, when set, guards the tree. A run holds it while serializing.
	// Editors pass the lock that serializes user turns.
	Locker sync.Locker

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Scheduler == nil {
		c.Scheduler = TimerScheduler{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline is the per-instance change pipeline. It owns the pending job
// and the composition flag.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	gen         uint64
	pending     Job
	pendingOpts Options

	// sinkMu keeps runs from interleaving their sink calls.
	sinkMu sync.Mutex

	composing atomic.Bool
	runs      atomic.Int64
}

// New creates a Pipeline. cfg.Root and cfg.Serializer are required.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{cfg: cfg, logger: cfg.Logger}
}

// SetComposing records whether an input-method composition is in progress.
func (p *Pipeline) SetComposing(on bool) { p.composing.Store(on) }

// Composing reports the composition flag.
func (p *Pipeline) Composing() bool { return p.composing.Load() }

// Runs returns the number of completed runs.
func (p *Pipeline) Runs() int64 { return p.runs.Load() }

// Pending reports whether a run is scheduled.
func (p *Pipeline) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Trigger cancels the pending run and schedules a new one. The run keeps
// the values of ctx but not its cancellation: it outlives the caller.
func (p *Pipeline) Trigger(ctx context.Context, opts Options) {
	ctx = context.WithoutCancel(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending != nil {
		p.pending.Cancel()
	}
	p.gen++
	gen := p.gen
	p.pendingOpts = opts
	p.pending = p.cfg.Scheduler.Schedule(p.cfg.Debounce, func() { p.fire(ctx, gen) })
}

// Cancel drops the pending run, if any.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		p.pending.Cancel()
		p.pending = nil
	}
	p.gen++
}

// Flush runs the pending run now. It reports whether a run completed. The
// caller must not hold cfg.Locker.
func (p *Pipeline) Flush(ctx context.Context) bool {
	unlock := p.lockTree()

	p.mu.Lock()
	if p.pending == nil {
		p.mu.Unlock()
		unlock()
		return false
	}
	p.pending.Cancel()
	p.pending = nil
	p.gen++
	opts := p.pendingOpts
	p.mu.Unlock()

	return p.run(ctx, opts, unlock)
}

func (p *Pipeline) fire(ctx context.Context, gen uint64) {
	unlock := p.lockTree()

	p.mu.Lock()
	if gen != p.gen {
		// Superseded by a later trigger that raced with this timer.
		p.mu.Unlock()
		unlock()
		return
	}
	p.pending = nil
	opts := p.pendingOpts
	p.mu.Unlock()

	p.run(ctx, opts, unlock)
}

func (p *Pipeline) lockTree() (unlock func()) {
	if p.cfg.Locker == nil {
		return func() {}
	}
	p.cfg.Locker.Lock()
	return p.cfg.Locker.Unlock
}

// run takes the snapshot, calls unlock, then publishes to the sinks.
func (p *Pipeline) run(ctx context.Context, opts Options, unlock func()) bool {
	snap, ok := p.snapshot()
	unlock()
	if !ok {
		return false
	}
	p.publish(ctx, opts, snap)
	return true
}

func (p *Pipeline) snapshot() (Snapshot, bool) {
	if p.cfg.CompositionSensitive && p.composing.Load() {
		// The next keystroke schedules a new run.
		p.logger.Debug("process: composition in progress, run skipped")
		return Snapshot{}, false
	}

	snap := Snapshot{ID: p.cfg.ID}
	if err := p.step("serialize", func() error {
		var err error
		snap.Markdown, err = p.cfg.Serializer.Serialize(p.cfg.Root)
		return err
	}); err != nil {
		return Snapshot{}, false
	}
	snap.HTML = dom.InnerHTML(p.cfg.Root)
	return snap, true
}

func (p *Pipeline) publish(ctx context.Context, opts Options, snap Snapshot) {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()

	text := snap.Markdown
	if p.cfg.Input != nil && opts.EnableInput {
		p.step("input", func() error {
			p.cfg.Input(text)
			return nil
		})
	}
	if p.cfg.Counter != nil {
		p.step("counter", func() error {
			p.cfg.Counter.Render(ctx, utf8.RuneCountInString(text), p.cfg.CounterMax)
			return nil
		})
	}
	if p.cfg.Cache && p.cfg.Store != nil {
		p.step("cache", func() error {
			return p.cfg.Store.Set(ctx, p.cfg.CacheKey, text)
		})
	}
	if p.cfg.Diagnostics != nil {
		p.step("diagnostics", func() error {
			p.cfg.Diagnostics.RenderDerived(ctx, snap)
			return nil
		})
	}
	if p.cfg.Undo != nil && opts.EnableAddUndoStack {
		p.step("undo", func() error {
			p.cfg.Undo.AddToUndoStack(ctx, snap)
			return nil
		})
	}

	p.runs.Add(1)
	p.logger.Debug("process: run complete", "length", len(text))
}

// step runs fn, turning a panic into an error. Failures are logged.
func (p *Pipeline) step(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			p.logger.Warn("process: step failed", "step", name, "error", err)
		}
	}()
	return fn()
}
