// CLAUDE:SUMMARY IR DOM vocabulary, editing root construction and subtree markup get/set over x/net/html.
// Package dom holds the live document tree of an instant-render editor.
//
// The tree is a plain golang.org/x/net/html node hierarchy. The editing root
// is a div.vditor-reset element whose children are blocks (elements carrying
// data-block="0"). Structural rewrites go through markup (render then
// reparse) so that a caret marker, being a node itself, survives them.
//
// Usage:
//
//	root, err := dom.NewRoot(`<p data-block="0">hello</p>`)
//	p := dom.ClosestBlock(root.FirstChild.FirstChild)
//	err = dom.ReplaceWithHTML(p, `<blockquote data-block="0">`+dom.OuterHTML(p)+`</blockquote>`)
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IR DOM vocabulary shared with the host renderer.
const (
	ClassRoot          = "vditor-reset"
	ClassLinkText      = "vditor-ir__link"
	ClassLinkURL       = "vditor-ir__url"
	ClassPreview       = "vditor-ir__preview"
	ClassMarker        = "vditor-ir__marker"
	ClassHeadingMarker = "vditor-ir__marker--heading"
	ClassMath          = "vditor-math"

	AttrBlock = "data-block"
	AttrType  = "data-type"

	TypeLink          = "a"
	TypeCodeBlockInfo = "code-block-info"
	TypeHeadingMarker = "heading-marker"

	// Zwsp is the zero-width space the host uses as a placeholder character.
	Zwsp = "\u200b"
)

// NewRoot parses an IR DOM fragment into a fresh editing root.
func NewRoot(markup string) (*html.Node, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     atom.Div.String(),
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: ClassRoot}},
	}
	if err := SetInnerHTML(root, markup); err != nil {
		return nil, err
	}
	return root, nil
}

// NewElement creates a detached element. Attributes are given as key, value pairs.
func NewElement(a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// OuterHTML renders n and its subtree.
func OuterHTML(n *html.Node) string {
	var sb strings.Builder
	// Rendering into a strings.Builder never fails for well-formed trees.
	_ = html.Render(&sb, n)
	return sb.String()
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return sb.String()
}

// ParseFragment parses markup in the context of the element ctxNode. The
// returned nodes are detached.
func ParseFragment(markup string, ctxNode *html.Node) ([]*html.Node, error) {
	if ctxNode == nil || ctxNode.Type != html.ElementNode {
		return nil, fmt.Errorf("dom: parse fragment: context is not an element")
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), contextOf(ctxNode))
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// contextOf returns a detached copy of n usable as a parsing context. The
// copy keeps DataAtom consistent with Data, which the parser requires.
func contextOf(n *html.Node) *html.Node {
	a := atom.Lookup([]byte(n.Data))
	return &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: a}
}

// SetInnerHTML replaces the children of n with the parsed markup.
func SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := ParseFragment(markup, n)
	if err != nil {
		return err
	}
	RemoveChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// ReplaceWithHTML replaces n in its parent by the parsed markup, the
// equivalent of assigning outerHTML.
func ReplaceWithHTML(n *html.Node, markup string) error {
	parent := n.Parent
	if parent == nil {
		return fmt.Errorf("dom: replace %s: node is detached", n.Data)
	}
	nodes, err := ParseFragment(markup, parent)
	if err != nil {
		return err
	}
	for _, c := range nodes {
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
	return nil
}

// InsertAfterHTML parses markup and inserts it right after n.
func InsertAfterHTML(n *html.Node, markup string) error {
	parent := n.Parent
	if parent == nil {
		return fmt.Errorf("dom: insert after %s: node is detached", n.Data)
	}
	nodes, err := ParseFragment(markup, parent)
	if err != nil {
		return err
	}
	next := n.NextSibling
	for _, c := range nodes {
		parent.InsertBefore(c, next)
	}
	return nil
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// Unwrap replaces n by its children.
func Unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

// ChildAt returns the i-th child of n, or nil when out of range.
func ChildAt(n *html.Node, i int) *html.Node {
	if i < 0 {
		return nil
	}
	c := n.FirstChild
	for ; c != nil && i > 0; i-- {
		c = c.NextSibling
	}
	return c
}

// Index returns the position of n among its siblings.
func Index(n *html.Node) int {
	i := 0
	for c := n.PrevSibling; c != nil; c = c.PrevSibling {
		i++
	}
	return i
}

// ChildCount returns the number of children of n.
func ChildCount(n *html.Node) int {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i++
	}
	return i
}

// Contains reports whether other is n or one of its descendants.
func Contains(n, other *html.Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// Normalize merges adjacent text children of n and drops empty ones.
func Normalize(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != html.TextNode {
			c = next
			continue
		}
		for next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			after := next.NextSibling
			n.RemoveChild(next)
			next = after
		}
		if c.Data == "" {
			n.RemoveChild(c)
		}
		c = next
	}
}

// TextContent concatenates the text of every text node below n.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Attr returns the value of an attribute on a node.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries the attribute key.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or adds an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether the class list of n contains name.
func HasClass(n *html.Node, name string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == name {
			return true
		}
	}
	return false
}

// Rename changes the tag of an element in place.
func Rename(n *html.Node, a atom.Atom) {
	n.Data = a.String()
	n.DataAtom = a
}

// FindFirst returns the first descendant of n (inclusive) matching pred, in
// document order.
func FindFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := FindFirst(c, pred); m != nil {
			return m
		}
	}
	return nil
}

// FindAll returns every descendant of n (inclusive) matching pred.
func FindAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
