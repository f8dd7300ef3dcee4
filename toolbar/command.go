// CLAUDE:SUMMARY Closed enumeration of toolbar commands and the toolbar status published after each command.
package toolbar

import (
	"context"
	"strings"
)

// Kind identifies a toolbar command.
type Kind int

const (
	Unknown Kind = iota
	Heading
	Quote
	Link
	Line
)

func (k Kind) String() string {
	switch k {
	case Heading:
		return "headings"
	case Quote:
		return "quote"
	case Link:
		return "link"
	case Line:
		return "line"
	default:
		return "unknown"
	}
}

// ParseKind maps a toolbar button name (its data-type) to a Kind.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "headings", "heading":
		return Heading
	case "quote":
		return Quote
	case "link":
		return Link
	case "line":
		return Line
	default:
		return Unknown
	}
}

// Command is one toolbar action.
type Command struct {
	Kind Kind
	// Active is the "current" state the toolbar reports for the button.
	// Active commands take the removal path, except Heading which follows
	// Level.
	Active bool
	// Level is the heading prefix to apply ("#", "## ", ...). Empty removes
	// the heading, whether Active is set or not.
	Level string
}

// States is the toolbar highlight at the caret.
type States struct {
	Heading      bool
	HeadingLevel int
	Quote        bool
	Link         bool
}

// Active reports whether the button for k should be shown as current.
func (s States) Active(k Kind) bool {
	switch k {
	case Heading:
		return s.Heading
	case Quote:
		return s.Quote
	case Link:
		return s.Link
	default:
		return false
	}
}

// StatusSink receives toolbar highlight refreshes. Presentation is the
// host's business.
type StatusSink interface {
	Highlight(ctx context.Context, s States)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(ctx context.Context, s States)

func (f StatusFunc) Highlight(ctx context.Context, s States) { f(ctx, s) }
