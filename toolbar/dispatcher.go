// CLAUDE:SUMMARY CommandDispatcher applying or removing quote, link, line and heading against the caret with marker round-trips.
// Package toolbar applies toolbar commands to the live tree.
//
// Every command keeps the caret stable the same way: capture a marker at
// the caret, rewrite the tree (often through markup), resolve the marker
// back into a caret. A command then refreshes the toolbar highlight and
// hands over to the change pipeline.
package toolbar

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/irdom/caret"
	"github.com/hazyhaar/irdom/dom"
)

// ErrUnknownCommand is returned for commands outside the closed set.
var ErrUnknownCommand = errors.New("toolbar: unknown command")

const (
	blockOpen     = `<p data-block="0">`
	quoteOpen     = `<blockquote data-block="0">`
	seedMarkup    = blockOpen + dom.MarkerHTML + `</p>`
	lineMarkup    = `<hr data-block="0">` + blockOpen + "\n" + dom.MarkerHTML + `</p>`
	emptyLinkHTML = "[" + dom.MarkerHTML + "]()"
)

var headingAtoms = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// Config configures a Dispatcher.
type Config struct {
	// Bridge gives access to the editing root and the live caret.
	Bridge *caret.Bridge

	// Status receives the toolbar highlight after each command. Optional.
	Status StatusSink

	// OnChange runs after every command, typically the change pipeline.
	OnChange func(ctx context.Context)

	// Logger for debug/error messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Status == nil {
		c.Status = StatusFunc(func(context.Context, States) {})
	}
	if c.OnChange == nil {
		c.OnChange = func(context.Context) {}
	}
}

// Dispatcher applies toolbar commands.
type Dispatcher struct {
	cfg    Config
	bridge *caret.Bridge
	root   *nethtml.Node
	logger *slog.Logger
}

// New creates a Dispatcher. cfg.Bridge is required.
func New(cfg Config) *Dispatcher {
	cfg.defaults()
	return &Dispatcher{
		cfg:    cfg,
		bridge: cfg.Bridge,
		root:   cfg.Bridge.Root(),
		logger: cfg.Logger,
	}
}

// Apply runs cmd against the current selection. Removal commands that find
// nothing to remove are silent no-ops; the toolbar may lag the tree.
func (d *Dispatcher) Apply(ctx context.Context, cmd Command) error {
	if cmd.Kind == Unknown {
		return ErrUnknownCommand
	}
	if n := d.bridge.Sweep(); n > 0 {
		d.logger.Warn("toolbar: stale marker removed", "count", n)
	}
	d.logger.Debug("toolbar: apply", "command", cmd.Kind, "active", cmd.Active, "level", cmd.Level)

	var marked bool
	var err error
	switch {
	case cmd.Kind == Heading:
		// Level alone picks the path: empty removes, anything else sets.
		marked, err = d.heading(cmd)
	case cmd.Active:
		marked, err = d.remove(cmd)
	default:
		marked, err = d.insert(cmd)
	}

	if marked {
		// A marker is never left behind, even when the rewrite failed.
		if _, rerr := d.bridge.Resolve(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}
	if err != nil {
		return fmt.Errorf("toolbar: %s: %w", cmd.Kind, err)
	}

	d.Refresh(ctx)
	d.cfg.OnChange(ctx)
	return nil
}

// Refresh publishes the toolbar highlight for the current caret.
func (d *Dispatcher) Refresh(ctx context.Context) {
	d.cfg.Status.Highlight(ctx, ActiveStates(d.bridge.Read()))
}

func (d *Dispatcher) remove(cmd Command) (bool, error) {
	r := d.bridge.Read()
	target := typeElement(r)

	switch cmd.Kind {
	case Quote:
		quote := dom.ClosestByMatchTag(target, "BLOCKQUOTE")
		if quote == nil {
			return false, nil
		}
		if _, err := d.bridge.Capture(); err != nil {
			return false, err
		}
		inner := dom.InnerHTML(quote)
		if blankQuote(quote) {
			inner = blockOpen + inner + `</p>`
		}
		return true, dom.ReplaceWithHTML(quote, inner)

	case Link:
		a := dom.ClosestByAttribute(target, dom.AttrType, dom.TypeLink)
		if a == nil {
			return false, nil
		}
		if label := dom.ClosestByClassName(target, dom.ClassLinkText); label != nil && dom.Contains(a, label) {
			if _, err := d.bridge.Capture(); err != nil {
				return false, err
			}
			return true, dom.ReplaceWithHTML(a, dom.InnerHTML(label))
		}
		markup := dom.MarkerHTML
		if label := dom.FindFirst(a, func(n *nethtml.Node) bool { return dom.HasClass(n, dom.ClassLinkText) }); label != nil {
			markup = dom.InnerHTML(label) + dom.MarkerHTML
		}
		return true, dom.ReplaceWithHTML(a, markup)
	}

	d.logger.Debug("toolbar: nothing to remove", "command", cmd.Kind)
	return false, nil
}

func (d *Dispatcher) insert(cmd Command) (bool, error) {
	if d.root.FirstChild == nil {
		if err := dom.SetInnerHTML(d.root, seedMarkup); err != nil {
			return false, err
		}
		if _, err := d.bridge.Resolve(); err != nil {
			return false, err
		}
	}
	r := d.bridge.Read()
	target := typeElement(r)

	switch cmd.Kind {
	case Line:
		if b := dom.ClosestBlock(target); b != nil {
			target = b
		}
		if target == nil || target == d.root || target.Parent == nil {
			nodes, err := dom.ParseFragment(lineMarkup, d.root)
			if err != nil {
				return false, err
			}
			for _, n := range nodes {
				d.root.AppendChild(n)
			}
			return true, nil
		}
		return true, dom.InsertAfterHTML(target, lineMarkup)

	case Quote:
		block := dom.ClosestBlock(target)
		if block == nil {
			return false, nil
		}
		if _, err := d.bridge.Capture(); err != nil {
			return false, err
		}
		return true, dom.ReplaceWithHTML(block, quoteOpen+dom.OuterHTML(block)+`</blockquote>`)

	case Link:
		markup := emptyLinkHTML
		if text := r.Text(d.root); text != "" {
			markup = "[" + html.EscapeString(text) + "](" + dom.MarkerHTML + ")"
		}
		return true, d.bridge.InsertHTML(markup)
	}
	return false, nil
}

// heading adds, changes or removes the heading marker of the current block.
func (d *Dispatcher) heading(cmd Command) (bool, error) {
	block := dom.ClosestBlock(typeElement(d.bridge.Read()))
	if block == nil || (block.DataAtom != atom.P && headingLevelOf(block) == 0) {
		return false, nil
	}

	if cmd.Level == "" {
		if headingLevelOf(block) == 0 {
			return false, nil
		}
		if _, err := d.bridge.Capture(); err != nil {
			return false, err
		}
		if span := headingMarker(block); span != nil {
			for c := span.FirstChild; c != nil; {
				next := c.NextSibling
				if !dom.IsMarker(c) {
					span.RemoveChild(c)
				}
				c = next
			}
			dom.Unwrap(span)
		}
		dom.Rename(block, atom.P)
		removeAttr(block, "data-marker")
		dom.Normalize(block)
		return true, nil
	}

	level := parseLevel(cmd.Level)
	if level == 0 {
		return false, fmt.Errorf("invalid heading level %q", cmd.Level)
	}
	if _, err := d.bridge.Capture(); err != nil {
		return false, err
	}
	prefix := strings.Repeat("#", level) + " "
	span := headingMarker(block)
	if span == nil {
		span = dom.NewElement(atom.Span,
			"class", dom.ClassMarker+" "+dom.ClassHeadingMarker,
			dom.AttrType, dom.TypeHeadingMarker)
		block.InsertBefore(span, block.FirstChild)
	}
	for c := span.FirstChild; c != nil; {
		next := c.NextSibling
		span.RemoveChild(c)
		if dom.IsMarker(c) {
			block.InsertBefore(c, span.NextSibling)
		}
		c = next
	}
	span.AppendChild(dom.NewText(prefix))
	dom.Rename(block, headingAtoms[level-1])
	dom.SetAttr(block, "data-marker", "#")
	return true, nil
}

// ActiveStates computes the toolbar highlight at r.
func ActiveStates(r caret.Range) States {
	var s States
	n := typeElement(r)
	if n == nil {
		return s
	}
	s.Quote = dom.ClosestByMatchTag(n, "BLOCKQUOTE") != nil
	s.Link = dom.ClosestByAttribute(n, dom.AttrType, dom.TypeLink) != nil
	if b := dom.ClosestBlock(n); b != nil {
		if lvl := headingLevelOf(b); lvl > 0 {
			s.Heading, s.HeadingLevel = true, lvl
		}
	}
	return s
}

// typeElement is the node a command applies to: the start container, or
// the root child at the start offset when the caret sits on the root.
func typeElement(r caret.Range) *nethtml.Node {
	n := r.StartContainer
	if n == nil {
		return nil
	}
	if n.Type == nethtml.ElementNode && dom.HasClass(n, dom.ClassRoot) {
		if c := dom.ChildAt(n, r.StartOffset); c != nil {
			return c
		}
		return n.LastChild
	}
	return n
}

// inlineAtoms may sit in a quote that is otherwise empty.
var inlineAtoms = map[atom.Atom]bool{
	atom.Span: true, atom.Em: true, atom.Strong: true, atom.B: true, atom.I: true,
	atom.S: true, atom.Code: true, atom.A: true, atom.Br: true, atom.Wbr: true,
}

// blankQuote reports whether quote has no text and no block content. Its
// children then need a paragraph to stay inside a block once unwrapped.
func blankQuote(quote *nethtml.Node) bool {
	if strings.TrimSpace(dom.TextContent(quote)) != "" {
		return false
	}
	block := dom.FindFirst(quote, func(n *nethtml.Node) bool {
		return n != quote && n.Type == nethtml.ElementNode && (dom.IsBlock(n) || !inlineAtoms[n.DataAtom])
	})
	return block == nil
}

func headingMarker(block *nethtml.Node) *nethtml.Node {
	for c := block.FirstChild; c != nil; c = c.NextSibling {
		if dom.HasClass(c, dom.ClassHeadingMarker) {
			return c
		}
	}
	return nil
}

func headingLevelOf(n *nethtml.Node) int {
	for i, a := range headingAtoms {
		if n.DataAtom == a {
			return i + 1
		}
	}
	return 0
}

// parseLevel accepts "#".."######" (trailing space allowed), "1".."6" and
// "h1".."h6".
func parseLevel(s string) int {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(strings.TrimPrefix(s, "h")); err == nil {
		if n >= 1 && n <= 6 {
			return n
		}
		return 0
	}
	if strings.Trim(s, "#") != "" {
		return 0
	}
	if n := len(s); n >= 1 && n <= 6 {
		return n
	}
	return 0
}

func removeAttr(n *nethtml.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}
