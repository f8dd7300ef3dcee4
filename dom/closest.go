// CLAUDE:SUMMARY Read-only upward ancestor queries: nearest block, attribute, class or tag match.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Closest walks upward from n (inclusive) and returns the first element
// matching pred, or nil when the walk leaves the tree.
func Closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && pred(n) {
			return n
		}
	}
	return nil
}

// ClosestBlock returns the nearest ancestor flagged as a block.
func ClosestBlock(n *html.Node) *html.Node {
	return ClosestByAttribute(n, AttrBlock, "0")
}

// ClosestByAttribute returns the nearest ancestor whose attribute name equals value.
func ClosestByAttribute(n *html.Node, name, value string) *html.Node {
	return Closest(n, func(e *html.Node) bool {
		return HasAttr(e, name) && Attr(e, name) == value
	})
}

// ClosestByClassName returns the nearest ancestor whose class list contains name.
func ClosestByClassName(n *html.Node, name string) *html.Node {
	return Closest(n, func(e *html.Node) bool {
		return HasClass(e, name)
	})
}

// ClosestByMatchTag returns the nearest ancestor with the given tag. Tags
// compare case-insensitively so "BLOCKQUOTE" and "blockquote" both match.
func ClosestByMatchTag(n *html.Node, tag string) *html.Node {
	return Closest(n, func(e *html.Node) bool {
		return strings.EqualFold(e.Data, tag)
	})
}

// IsBlock reports whether n is flagged as a block.
func IsBlock(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && Attr(n, AttrBlock) == "0"
}
