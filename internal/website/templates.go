// Package website renders the page shell shared by the landing page and the
// live signup page: document head, theme attribute, navigation and styles.
// Everything is inline so a page is a single response.
package website

// PageConfig describes one page.
type PageConfig struct {
	// Title is the page title (shown in browser tab and search results)
	Title string
	// Description is the meta description
	Description string
	// Language is the page language (default: "ko")
	Language string
	// Theme is written to data-theme on <html>: light, dark or system.
	Theme string
	// Path is the request path, used as the return target of theme links.
	Path string
	// ThemeLabels maps light, dark, system and label to display text.
	ThemeLabels map[string]string
	// Scripts are script URLs appended to the body.
	Scripts []string
}

// DefaultPageConfig returns a PageConfig with sensible defaults.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Language: "ko",
		Theme:    "system",
		Path:     "/",
	}
}
