package website

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// Themes in switcher order.
var Themes = []string{"light", "dark", "system"}

// RenderHead generates the <head> section.
func RenderHead(cfg PageConfig, customCSS string) string {
	var sb strings.Builder

	sb.WriteString("<head>\n")
	sb.WriteString(`<meta charset="UTF-8">` + "\n")
	sb.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">` + "\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(cfg.Title)))
	if cfg.Description != "" {
		sb.WriteString(fmt.Sprintf(`<meta name="description" content="%s">`+"\n", html.EscapeString(cfg.Description)))
	}
	sb.WriteString(`<meta name="color-scheme" content="light dark">` + "\n")
	sb.WriteString(`<meta name="robots" content="noindex">` + "\n")

	sb.WriteString("<style>\n")
	sb.WriteString(RenderStyles())
	if customCSS != "" {
		sb.WriteString("\n")
		sb.WriteString(customCSS)
	}
	sb.WriteString("\n</style>\n")
	sb.WriteString("</head>\n")

	return sb.String()
}

// RenderThemeSwitcher renders one link per theme. Each link stores the
// preference and comes back to cfg.Path.
func RenderThemeSwitcher(cfg PageConfig) string {
	var sb strings.Builder
	next := cfg.Path
	if next == "" {
		next = "/"
	}

	label := cfg.ThemeLabels["label"]
	if label == "" {
		label = "Theme"
	}
	sb.WriteString(fmt.Sprintf("<nav class=\"theme-switcher\" aria-label=\"%s\">\n", html.EscapeString(label)))
	for _, theme := range Themes {
		text := cfg.ThemeLabels[theme]
		if text == "" {
			text = theme
		}
		current := ""
		if theme == cfg.Theme {
			current = ` aria-current="true"`
		}
		href := "/theme?value=" + url.QueryEscape(theme) + "&next=" + url.QueryEscape(next)
		sb.WriteString(fmt.Sprintf("<a href=\"%s\" data-theme-option=\"%s\"%s>%s</a>\n",
			html.EscapeString(href), theme, current, html.EscapeString(text)))
	}
	sb.WriteString("</nav>\n")
	return sb.String()
}

// RenderDocument wraps content in a complete HTML document.
func RenderDocument(cfg PageConfig, customCSS, bodyContent string) string {
	def := DefaultPageConfig()
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.Theme == "" {
		cfg.Theme = def.Theme
	}

	var scripts strings.Builder
	for _, src := range cfg.Scripts {
		scripts.WriteString(fmt.Sprintf("<script src=\"%s\" defer></script>\n", html.EscapeString(src)))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="%s" data-theme="%s">
%s<body>
%s%s
%s</body>
</html>`, html.EscapeString(cfg.Language), html.EscapeString(cfg.Theme),
		RenderHead(cfg, customCSS), RenderThemeSwitcher(cfg), bodyContent, scripts.String())
}
