package testing

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
)

// HTMLAssert provides HTML-specific assertions over a rendered fragment.
// Matching is textual.
type HTMLAssert struct {
	t    testing.TB
	html string
}

// NewHTMLAssert creates a new HTML assertion helper.
func NewHTMLAssert(t testing.TB, html string) *HTMLAssert {
	return &HTMLAssert{t: t, html: html}
}

// HasElement asserts that a tag opens with every given attribute.
// Attributes are written as they render, e.g. `name="email"`.
func (ha *HTMLAssert) HasElement(tag string, attrs ...string) *HTMLAssert {
	ha.t.Helper()
	if ha.findElement(tag, attrs) == "" {
		ha.t.Errorf("No <%s> with %v in HTML:\n%s", tag, attrs, ha.html)
	}
	return ha
}

// NoElement asserts that no tag opens with every given attribute.
func (ha *HTMLAssert) NoElement(tag string, attrs ...string) *HTMLAssert {
	ha.t.Helper()
	if el := ha.findElement(tag, attrs); el != "" {
		ha.t.Errorf("Unexpected element %s", el)
	}
	return ha
}

func (ha *HTMLAssert) findElement(tag string, attrs []string) string {
	re := regexp.MustCompile(fmt.Sprintf(`<%s\b[^>]*>`, regexp.QuoteMeta(tag)))
	for _, el := range re.FindAllString(ha.html, -1) {
		ok := true
		for _, attr := range attrs {
			if !strings.Contains(el, attr) {
				ok = false
				break
			}
		}
		if ok {
			return el
		}
	}
	return ""
}

// HasText asserts that the HTML contains specific text.
func (ha *HTMLAssert) HasText(text string) *HTMLAssert {
	ha.t.Helper()
	if !strings.Contains(ha.html, text) {
		ha.t.Errorf("Text not found: %q", text)
	}
	return ha
}

// HasClass asserts that some element carries class.
func (ha *HTMLAssert) HasClass(class string) *HTMLAssert {
	ha.t.Helper()
	re := regexp.MustCompile(fmt.Sprintf(`class="([^"]* )?%s( [^"]*)?"`, regexp.QuoteMeta(class)))
	if !re.MatchString(ha.html) {
		ha.t.Errorf("No element with class %q", class)
	}
	return ha
}

// HasID asserts that the HTML contains an element with a specific ID.
func (ha *HTMLAssert) HasID(id string) *HTMLAssert {
	ha.t.Helper()
	if !strings.Contains(ha.html, fmt.Sprintf(`id="%s"`, id)) {
		ha.t.Errorf("No element with id %q", id)
	}
	return ha
}
