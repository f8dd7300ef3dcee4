// CLAUDE:SUMMARY Caret marker node (<wbr>): creation, lookup, removal and positional insertion.
package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkerHTML is the markup form of the caret marker.
const MarkerHTML = "<wbr>"

// NewMarker creates a detached caret marker.
func NewMarker() *html.Node {
	return NewElement(atom.Wbr)
}

// IsMarker reports whether n is a caret marker. Markers are identified by
// tag alone.
func IsMarker(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.Wbr
}

// FindMarkers returns every marker below root, in document order.
func FindMarkers(root *html.Node) []*html.Node {
	return FindAll(root, IsMarker)
}

// RemoveMarkers detaches every marker below root and merges the text nodes
// they separated. It returns the number of markers removed.
func RemoveMarkers(root *html.Node) int {
	markers := FindMarkers(root)
	for _, m := range markers {
		parent := m.Parent
		if parent == nil {
			continue
		}
		parent.RemoveChild(m)
		Normalize(parent)
	}
	return len(markers)
}

// InsertAt inserts the detached node n at a boundary point. For a text
// container the offset is a byte offset and the text node is split; for an
// element it is a child index, clamped to the child count.
func InsertAt(container *html.Node, offset int, n *html.Node) {
	if container.Type == html.TextNode {
		parent := container.Parent
		if parent == nil {
			return
		}
		switch {
		case offset <= 0:
			parent.InsertBefore(n, container)
		case offset >= len(container.Data):
			parent.InsertBefore(n, container.NextSibling)
		default:
			tail := NewText(container.Data[offset:])
			container.Data = container.Data[:offset]
			parent.InsertBefore(tail, container.NextSibling)
			parent.InsertBefore(n, tail)
		}
		return
	}
	container.InsertBefore(n, ChildAt(container, offset))
}
