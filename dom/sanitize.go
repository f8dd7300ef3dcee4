// CLAUDE:SUMMARY bluemonday policy restricting inserted markup to the IR DOM vocabulary.
package dom

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func irPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements(
			"p", "blockquote", "hr", "span", "a", "code", "pre", "div",
			"h1", "h2", "h3", "h4", "h5", "h6",
			"ul", "ol", "li", "em", "strong", "s", "br", "wbr",
		)
		p.AllowNoAttrs().OnElements("wbr", "span", "hr", "br")
		p.AllowAttrs(AttrBlock, AttrType, "class", "data-marker").Globally()
		policy = p
	})
	return policy
}

// Sanitize filters markup down to the elements and attributes the editor
// produces itself. Scripts, handlers and foreign attributes are dropped.
func Sanitize(markup string) string {
	return irPolicy().Sanitize(markup)
}
