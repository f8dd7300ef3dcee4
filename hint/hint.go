// CLAUDE:SUMMARY LanguageHinter: substring match of a typed code-fence language against the fixed vocabulary.
// Package hint produces code-language candidates for the autocomplete popup.
package hint

import (
	"context"
	"strings"

	"github.com/hazyhaar/irdom/dom"
)

// languages is the ordered vocabulary of recognized code languages.
var languages = []string{
	"mermaid", "echarts", "mindmap", "plantuml", "abc", "graphviz", "flowchart", "apache",
	"js", "ts", "html", "markmap",
	// common
	"properties", "bash", "c", "csharp", "cpp", "css", "coffeescript", "diff", "go", "xml",
	"http", "json", "java", "javascript", "kotlin", "less", "lua", "makefile", "markdown",
	"nginx", "objectivec", "php", "php-template", "perl", "plaintext", "python", "python-repl",
	"r", "ruby", "rust", "scss", "sql", "shell", "swift", "ini", "typescript", "vbnet", "yaml",
	"ada", "clojure", "dart", "erb", "fortran", "gradle", "haskell", "julia", "julia-repl",
	"lisp", "matlab", "pgsql", "powershell", "sql_more", "stata", "cmake", "mathematica",
	// ext
	"solidity", "yul",
}

// Languages returns a copy of the vocabulary.
func Languages() []string {
	return append([]string(nil), languages...)
}

// Candidate is one autocomplete entry.
type Candidate struct {
	Display string `json:"html"`
	Value   string `json:"value"`
}

// Sink is the autocomplete popup.
type Sink interface {
	// Render shows candidates for key.
	Render(ctx context.Context, candidates []Candidate, key string)
	// Reopen shows the last rendered state again without recomputing it.
	Reopen(ctx context.Context)
}

// Typed is raw typed text with zero-width spaces removed and trimmed. Its
// case is kept for display.
func Typed(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, dom.Zwsp, ""))
}

// Key is the matching form of raw typed text: Typed, lower-cased.
func Key(raw string) string {
	return strings.ToLower(Typed(raw))
}

// Match returns the entries of Languages containing key, in vocabulary
// order. An empty key matches everything.
func Match(key string) []Candidate {
	return MatchIn(languages, key)
}

// MatchIn is Match over an arbitrary vocabulary.
func MatchIn(vocab []string, key string) []Candidate {
	key = Key(key)
	out := make([]Candidate, 0, len(vocab))
	for _, lang := range vocab {
		if strings.Contains(strings.ToLower(lang), key) {
			out = append(out, Candidate{Display: lang, Value: lang})
		}
	}
	return out
}
