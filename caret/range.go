// CLAUDE:SUMMARY Range boundary points over the live tree, text extraction and content deletion.
package caret

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/irdom/dom"
)

// Range is a pair of boundary points in the live tree. Offsets into text
// nodes are byte offsets, offsets into elements are child indices. A Range
// is only valid until the next mutation of the tree.
type Range struct {
	StartContainer *html.Node
	StartOffset    int
	EndContainer   *html.Node
	EndOffset      int
}

// Collapsed returns a zero-width range at (n, offset).
func Collapsed(n *html.Node, offset int) Range {
	return Range{StartContainer: n, StartOffset: offset, EndContainer: n, EndOffset: offset}
}

// IsZero reports whether r has no containers.
func (r Range) IsZero() bool {
	return r.StartContainer == nil
}

// Collapsed reports whether start and end coincide.
func (r Range) Collapsed() bool {
	return r.StartContainer == r.EndContainer && r.StartOffset == r.EndOffset
}

// Start returns the collapsed start of r.
func (r Range) Start() Range {
	return Collapsed(r.StartContainer, r.StartOffset)
}

// Text returns the text selected by r within root.
func (r Range) Text(root *html.Node) string {
	if r.IsZero() || r.Collapsed() {
		return ""
	}
	text := dom.TextContent(root)
	s, e := TextOffset(root, r.StartContainer, r.StartOffset), TextOffset(root, r.EndContainer, r.EndOffset)
	if s > e {
		s, e = e, s
	}
	if s < 0 || e > len(text) {
		return ""
	}
	return text[s:e]
}

// TextOffset converts a boundary point into a byte offset within the text
// content of root. It returns -1 when the container is outside root.
func TextOffset(root, container *html.Node, offset int) int {
	if !dom.Contains(root, container) {
		return -1
	}
	total := 0
	found := -1
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n == container {
			if n.Type == html.TextNode {
				found = total + clamp(offset, 0, len(n.Data))
				return true
			}
			i := 0
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if i == offset {
					found = total
					return true
				}
				total += len(dom.TextContent(c))
				i++
			}
			found = total
			return true
		}
		if n.Type == html.TextNode {
			total += len(n.Data)
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

// PointAt converts a byte offset within the text content of root back into
// a collapsed range. Offsets past the end land after the last child.
func PointAt(root *html.Node, offset int) Range {
	var found *Range
	total := 0
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode {
			if offset <= total+len(n.Data) {
				r := Collapsed(n, offset-total)
				found = &r
				return true
			}
			total += len(n.Data)
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if offset >= 0 && walk(root) {
		return *found
	}
	return Collapsed(root, dom.ChildCount(root))
}

// boundary is a temporary element marking a range end during deletion. It
// has no atom so it never collides with real content.
func boundary() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "irdom-boundary", DataAtom: atom.Atom(0)}
}

// DeleteContents removes the content selected by r and returns the
// collapsed range where it used to start.
func DeleteContents(r Range) Range {
	if r.IsZero() || r.Collapsed() {
		return r.Start()
	}
	end, start := boundary(), boundary()
	// The end is inserted first: splitting at the end never shifts the start.
	dom.InsertAt(r.EndContainer, r.EndOffset, end)
	dom.InsertAt(r.StartContainer, r.StartOffset, start)
	deleteBetween(start, end)
	detach(end)
	return detach(start)
}

// deleteBetween removes every node strictly between s and e in document
// order, keeping the ancestors of e.
func deleteBetween(s, e *html.Node) {
	for n := s; n != nil; n = n.Parent {
		for sib := n.NextSibling; sib != nil; {
			next := sib.NextSibling
			if sib == e {
				return
			}
			if dom.Contains(sib, e) {
				deleteBefore(sib, e)
				return
			}
			sib.Parent.RemoveChild(sib)
			sib = next
		}
	}
}

// deleteBefore removes the descendants of n that precede e.
func deleteBefore(n, e *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c == e {
			return
		}
		if dom.Contains(c, e) {
			deleteBefore(c, e)
			return
		}
		n.RemoveChild(c)
		c = next
	}
}

// detach removes the placeholder node m, merges the text nodes it
// separated and returns the collapsed range it stood for.
func detach(m *html.Node) Range {
	parent := m.Parent
	prev, next := m.PrevSibling, m.NextSibling
	parent.RemoveChild(m)

	switch {
	case prev != nil && prev.Type == html.TextNode:
		off := len(prev.Data)
		if next != nil && next.Type == html.TextNode {
			prev.Data += next.Data
			parent.RemoveChild(next)
		}
		return Collapsed(prev, off)
	case next != nil && next.Type == html.TextNode:
		return Collapsed(next, 0)
	case prev != nil:
		return Collapsed(parent, dom.Index(prev)+1)
	case next != nil:
		return Collapsed(parent, dom.Index(next))
	default:
		return Collapsed(parent, 0)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
