// CLAUDE:SUMMARY ContentTypeRenderer dispatching a preview panel to abc, mermaid, echarts, graphviz, math or highlight+decorate.
// Package codeblock renders the preview panel of fenced blocks.
//
// The declared content type comes from the class of the panel's inner code
// element ("language-mermaid" → mermaid). Dispatch is an exact match, first
// match wins, and every unrecognized language takes the code path: the
// syntax highlighter runs first, then the code decorator that relies on the
// highlighted markup.
//
// Backends are external. Each one receives the container element and the
// asset delivery source; failures are logged and never interrupt the caller.
package codeblock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/irdom/dom"
)

// ContentType is the declared kind of a fenced block.
type ContentType int

const (
	// Code is the fallback for plain code and every unrecognized language.
	Code ContentType = iota
	ABC
	Mermaid
	ECharts
	Graphviz
	Math
)

func (c ContentType) String() string {
	switch c {
	case ABC:
		return "abc"
	case Mermaid:
		return "mermaid"
	case ECharts:
		return "echarts"
	case Graphviz:
		return "graphviz"
	case Math:
		return "math"
	default:
		return "code"
	}
}

// LanguagePrefix precedes the language in the class of a code element.
const LanguagePrefix = "language-"

// MermaidSelector scopes the mermaid renderer to this editor's previews.
const MermaidSelector = "." + dom.ClassPreview + " .language-mermaid"

// ParseContentType maps a language string to a ContentType. The match is
// exact; anything else is Code.
func ParseContentType(lang string) ContentType {
	switch lang {
	case "abc":
		return ABC
	case "mermaid":
		return Mermaid
	case "echarts":
		return ECharts
	case "graphviz":
		return Graphviz
	case "math":
		return Math
	default:
		return Code
	}
}

// LanguageOf returns the declared language of a preview panel: the class of
// its first code element stripped of LanguagePrefix.
func LanguageOf(panel *html.Node) string {
	code := dom.FindFirst(panel, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Code
	})
	if code == nil {
		return ""
	}
	return strings.Replace(dom.Attr(code, "class"), LanguagePrefix, "", 1)
}

// MathOptions configures the math typesetting backend.
type MathOptions struct {
	Engine      string            `json:"engine" yaml:"engine"` // KaTeX | MathJax
	InlineDigit bool              `json:"inline_digit" yaml:"inline_digit"`
	Macros      map[string]string `json:"macros,omitempty" yaml:"macros"`
}

// HighlightOptions configures the syntax highlighter.
type HighlightOptions struct {
	Enable     bool   `json:"enable" yaml:"enable"`
	Style      string `json:"style" yaml:"style"`
	LineNumber bool   `json:"line_number" yaml:"line_number"`
}

// Request is what a backend receives.
type Request struct {
	// Container is the element to render into.
	Container *html.Node
	// CDN is the origin assets are fetched from.
	CDN string
	// Selector limits the backend to matching elements (mermaid).
	Selector string
	// Math is set for the math backend.
	Math *MathOptions
	// Highlight is set for the highlighter.
	Highlight *HighlightOptions
	// Lang is the UI language, for the code decorator.
	Lang string
}

// Backend is an external renderer.
type Backend interface {
	Render(ctx context.Context, req Request) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) error

func (f BackendFunc) Render(ctx context.Context, req Request) error { return f(ctx, req) }

// Backends groups one backend per content type. Nil entries are skipped.
type Backends struct {
	ABC       Backend
	Mermaid   Backend
	ECharts   Backend
	Graphviz  Backend
	Math      Backend
	Highlight Backend
	Decorate  Backend
}

// Config configures a Renderer.
type Config struct {
	Backends  Backends
	CDN       string
	Lang      string
	Math      MathOptions
	Highlight HighlightOptions
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Renderer dispatches preview panels to backends.
type Renderer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	cfg.defaults()
	return &Renderer{cfg: cfg, logger: cfg.Logger}
}

// Render dispatches panel by its declared content type and returns the type
// it used.
func (r *Renderer) Render(ctx context.Context, panel *html.Node) ContentType {
	lang := LanguageOf(panel)
	ct := ParseContentType(lang)
	b := r.cfg.Backends

	switch ct {
	case ABC:
		r.call(ctx, ct, b.ABC, Request{Container: panel, CDN: r.cfg.CDN})
	case Mermaid:
		r.call(ctx, ct, b.Mermaid, Request{Container: panel, CDN: r.cfg.CDN, Selector: MermaidSelector})
	case ECharts:
		r.call(ctx, ct, b.ECharts, Request{Container: panel, CDN: r.cfg.CDN})
	case Graphviz:
		r.call(ctx, ct, b.Graphviz, Request{Container: panel, CDN: r.cfg.CDN})
	case Math:
		markup := `<code class="` + LanguagePrefix + `math"><div class="` + dom.ClassMath + `">` + dom.InnerHTML(panel) + `</div></code>`
		if err := dom.SetInnerHTML(panel, markup); err != nil {
			r.logger.Error("codeblock: wrap math failed", "error", err)
			return ct
		}
		container := panel.Parent
		if container == nil {
			container = panel
		}
		math := r.cfg.Math
		r.call(ctx, ct, b.Math, Request{Container: container, CDN: r.cfg.CDN, Math: &math})
	default:
		hl := r.cfg.Highlight
		hl.Enable = true
		r.call(ctx, ct, b.Highlight, Request{Container: panel, CDN: r.cfg.CDN, Highlight: &hl})
		r.call(ctx, ct, b.Decorate, Request{Container: panel, CDN: r.cfg.CDN, Lang: r.cfg.Lang})
	}

	r.logger.Debug("codeblock: rendered", "lang", lang, "type", ct)
	return ct
}

// call invokes one backend, containing its errors and panics.
func (r *Renderer) call(ctx context.Context, ct ContentType, b Backend, req Request) {
	if b == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("codeblock: backend panicked", "type", ct, "panic", fmt.Sprint(p))
		}
	}()
	if err := b.Render(ctx, req); err != nil {
		r.logger.Warn("codeblock: backend failed", "type", ct, "error", err)
	}
}
