// CLAUDE:SUMMARY Canonical Markdown form of the IR DOM: lowers IR syntax spans to plain HTML, converts with html-to-markdown.
// Package markdown serializes the live tree to Markdown.
//
// The IR DOM keeps Markdown syntax visible as marker spans ("## ", "[",
// "](", ...) next to the semantic elements. Serialization first lowers the
// tree to plain HTML on a copy: caret markers, marker spans and preview
// panels are dropped, link spans become anchors, and zero-width spaces are
// stripped. The copy is then converted with html-to-markdown.
package markdown

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/irdom/dom"
)

// syntaxTypes are data-type values of spans that only carry Markdown syntax.
var syntaxTypes = map[string]bool{
	dom.TypeHeadingMarker:     true,
	dom.TypeCodeBlockInfo:     true,
	"code-block-open-marker":  true,
	"code-block-close-marker": true,
}

// Serializer converts editing roots to Markdown. It is safe for concurrent
// use.
type Serializer struct {
	conv *converter.Converter
}

// New creates a Serializer with the base, commonmark and table plugins.
// Escaping is off: text in the tree is already Markdown source.
func New() *Serializer {
	return &Serializer{
		conv: converter.NewConverter(
			converter.WithEscapeMode(converter.EscapeModeDisabled),
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Serialize returns the Markdown form of root. The tree is not modified.
func (s *Serializer) Serialize(root *html.Node) (string, error) {
	if root == nil {
		return "", fmt.Errorf("markdown: serialize: nil root")
	}
	markup := Lower(root)
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	md, err := s.conv.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Lower renders the children of root as plain HTML without IR syntax.
func Lower(root *html.Node) string {
	var sb strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := lower(c); n != nil {
			_ = html.Render(&sb, n)
		}
	}
	return sb.String()
}

// lower returns a detached plain copy of n, or nil when n carries no content.
func lower(n *html.Node) *html.Node {
	switch n.Type {
	case html.TextNode:
		text := strings.ReplaceAll(n.Data, dom.Zwsp, "")
		if text == "" {
			return nil
		}
		return dom.NewText(text)
	case html.ElementNode:
	default:
		return nil
	}

	switch {
	case dom.IsMarker(n), dom.HasClass(n, dom.ClassPreview), dom.HasClass(n, dom.ClassMarker):
		return nil
	case syntaxTypes[dom.Attr(n, dom.AttrType)]:
		return nil
	case dom.Attr(n, dom.AttrType) == dom.TypeLink:
		return lowerLink(n)
	}

	cp := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}
	for _, a := range n.Attr {
		if a.Key == dom.AttrBlock || a.Key == dom.AttrType || a.Key == "data-marker" {
			continue
		}
		cp.Attr = append(cp.Attr, a)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if lc := lower(c); lc != nil {
			cp.AppendChild(lc)
		}
	}
	return cp
}

// lowerLink turns an IR link span into an anchor.
func lowerLink(n *html.Node) *html.Node {
	var label, href string
	if l := dom.FindFirst(n, func(c *html.Node) bool { return dom.HasClass(c, dom.ClassLinkText) }); l != nil {
		label = strings.ReplaceAll(dom.TextContent(l), dom.Zwsp, "")
	}
	if u := dom.FindFirst(n, func(c *html.Node) bool { return dom.HasClass(c, dom.ClassLinkURL) }); u != nil {
		href = strings.TrimSpace(strings.ReplaceAll(dom.TextContent(u), dom.Zwsp, ""))
	}
	a := dom.NewElement(atom.A, "href", href)
	if label != "" {
		a.AppendChild(dom.NewText(label))
	}
	return a
}
