// CLAUDE:SUMMARY RangeBridge between the host caret and <wbr> bookmarks: Read, Capture, Resolve, InsertHTML.
// Package caret translates between the host's live caret and marker
// bookmarks stored in the tree.
//
// The Bridge is the only component allowed to read or write the live
// caret. Callers that mutate the tree capture a marker first, mutate, then
// resolve the marker back into a caret:
//
//	b := caret.NewBridge(root, caret.NewHeadless())
//	if _, err := b.Capture(); err != nil { ... }
//	// rewrite the tree
//	r, err := b.Resolve()
package caret

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/hazyhaar/irdom/dom"
)

// ErrNoMarkerFound is returned by Resolve when the tree holds no marker.
// It signals a caller bug: every Resolve must follow exactly one Capture or
// one markup insertion carrying a marker.
var ErrNoMarkerFound = errors.New("caret: no marker found")

// Selection is the host's live caret.
type Selection interface {
	// Range returns the live range, false when the host has no caret.
	Range() (Range, bool)
	SetRange(Range)
	Clear()
}

// Headless is an in-memory Selection for tests and non-interactive hosts.
type Headless struct {
	r  Range
	ok bool
}

// NewHeadless returns a Selection with no caret.
func NewHeadless() *Headless { return &Headless{} }

func (h *Headless) Range() (Range, bool) { return h.r, h.ok }

func (h *Headless) SetRange(r Range) { h.r, h.ok = r, !r.IsZero() }

func (h *Headless) Clear() { h.r, h.ok = Range{}, false }

// Bridge binds an editing root to a host selection.
type Bridge struct {
	root *html.Node
	sel  Selection
}

// NewBridge creates a Bridge for root.
func NewBridge(root *html.Node, sel Selection) *Bridge {
	if sel == nil {
		sel = NewHeadless()
	}
	return &Bridge{root: root, sel: sel}
}

// Root returns the editing root.
func (b *Bridge) Root() *html.Node { return b.root }

// Read returns the live caret. When the host has none, or its range lies
// outside the root, a collapsed range at the start of the root is returned.
func (b *Bridge) Read() Range {
	r, ok := b.sel.Range()
	if !ok || r.IsZero() || !dom.Contains(b.root, r.StartContainer) || !dom.Contains(b.root, r.EndContainer) {
		return Collapsed(b.root, 0)
	}
	return r
}

// Set moves the live caret.
func (b *Bridge) Set(r Range) { b.sel.SetRange(r) }

// Capture replaces the live caret by a marker at its start position. Any
// marker already present is removed first, so the tree holds exactly one.
// Without a live caret an existing marker is kept where it is.
func (b *Bridge) Capture() (*html.Node, error) {
	r, live := b.sel.Range()
	if !live || r.IsZero() || !dom.Contains(b.root, r.StartContainer) {
		if markers := dom.FindMarkers(b.root); len(markers) > 0 {
			for _, m := range markers[1:] {
				detach(m)
			}
			return markers[0], nil
		}
		r = Collapsed(b.root, 0)
	} else if b.Sweep() > 0 {
		r, _ = b.sel.Range()
	}
	m := dom.NewMarker()
	dom.InsertAt(r.StartContainer, r.StartOffset, m)
	if m.Parent == nil {
		return nil, fmt.Errorf("caret: capture: caret container is detached")
	}
	b.sel.Clear()
	return m, nil
}

// Sweep removes every marker from the tree and returns how many it removed.
// A live caret stays on the same content: its ends are pinned by temporary
// nodes while the markers go, so the text nodes a marker separated may merge
// under it.
func (b *Bridge) Sweep() int {
	markers := dom.FindMarkers(b.root)
	if len(markers) == 0 {
		return 0
	}
	r, live := b.sel.Range()
	if !live || r.IsZero() || !dom.Contains(b.root, r.StartContainer) {
		for _, m := range markers {
			detach(m)
		}
		return len(markers)
	}
	if !dom.Contains(b.root, r.EndContainer) {
		r = r.Start()
	}

	if r.Collapsed() {
		pin := boundary()
		dom.InsertAt(r.StartContainer, r.StartOffset, pin)
		for _, m := range markers {
			detach(m)
		}
		b.sel.SetRange(detach(pin))
		return len(markers)
	}

	end, start := boundary(), boundary()
	// The end is inserted first: splitting at the end never shifts the start.
	dom.InsertAt(r.EndContainer, r.EndOffset, end)
	dom.InsertAt(r.StartContainer, r.StartOffset, start)
	for _, m := range markers {
		detach(m)
	}
	// The start goes first: detaching it only appends to text before it.
	s := detach(start)
	e := detach(end)
	b.sel.SetRange(Range{StartContainer: s.StartContainer, StartOffset: s.StartOffset, EndContainer: e.StartContainer, EndOffset: e.StartOffset})
	return len(markers)
}

// Resolve removes the marker and places the live caret where it stood.
func (b *Bridge) Resolve() (Range, error) {
	markers := dom.FindMarkers(b.root)
	if len(markers) == 0 {
		return Range{}, ErrNoMarkerFound
	}
	// Only the first marker carries the caret; any other is a leftover.
	for _, m := range markers[1:] {
		detach(m)
	}
	r := detach(markers[0])
	b.sel.SetRange(r)
	return r, nil
}

// InsertHTML replaces the live selection by markup, the way the host's
// native insertHTML affordance does. The markup is sanitized first.
func (b *Bridge) InsertHTML(markup string) error {
	r := DeleteContents(b.Read())
	container := r.StartContainer
	parent := container
	if container.Type == html.TextNode {
		parent = container.Parent
	}
	if parent == nil {
		return fmt.Errorf("caret: insert html: caret container is detached")
	}

	nodes, err := dom.ParseFragment(dom.Sanitize(markup), parent)
	if err != nil {
		return fmt.Errorf("caret: insert html: %w", err)
	}
	anchor := boundary()
	dom.InsertAt(container, r.StartOffset, anchor)
	for _, n := range nodes {
		anchor.Parent.InsertBefore(n, anchor)
	}
	after := detach(anchor)
	off := TextOffset(parent, after.StartContainer, after.StartOffset)
	dom.Normalize(parent)
	b.sel.SetRange(PointAt(parent, off))
	return nil
}
