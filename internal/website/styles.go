package website

import (
	"fmt"
	"sort"
	"strings"
)

// Light and Dark are the two palettes. "system" follows prefers-color-scheme.
var (
	Light = map[string]string{
		"bg":          "#FFFFFF",
		"bgAlt":       "#F8FAFC",
		"text":        "#0F172A",
		"textMuted":   "#475569",
		"border":      "#E2E8F0",
		"primary":     "#0F172A",
		"primaryText": "#F8FAFC",
		"danger":      "#DC2626",
		"dangerText":  "#FFFFFF",
		"ring":        "#94A3B8",
	}

	Dark = map[string]string{
		"bg":          "#020817",
		"bgAlt":       "#0F172A",
		"text":        "#F8FAFC",
		"textMuted":   "#94A3B8",
		"border":      "#1E293B",
		"primary":     "#F8FAFC",
		"primaryText": "#0F172A",
		"danger":      "#F87171",
		"dangerText":  "#0F172A",
		"ring":        "#CBD5E1",
	}
)

// FontFamily uses the system font stack.
var FontFamily = `system-ui, -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Apple SD Gothic Neo', 'Noto Sans KR', sans-serif`

// FontMono is used for the submitted data panel.
var FontMono = `'SF Mono', SFMono-Regular, ui-monospace, Menlo, Consolas, monospace`

// RenderStyles generates the CSS shared by every page.
func RenderStyles() string {
	var sb strings.Builder
	sb.WriteString(cssReset())
	sb.WriteString(cssThemes())
	sb.WriteString(cssBase())
	sb.WriteString(cssButtons())
	sb.WriteString(cssCard())
	sb.WriteString(cssFields())
	sb.WriteString(cssSteps())
	sb.WriteString(cssOverlays())
	sb.WriteString(cssAccessibility())
	return sb.String()
}

func cssReset() string {
	return `
*,*::before,*::after{box-sizing:border-box;margin:0;padding:0}
html{-webkit-text-size-adjust:100%}
body{line-height:1.6;-webkit-font-smoothing:antialiased}
input,button,select{font:inherit}
a{color:inherit}
`
}

func vars(colors map[string]string) string {
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Sprintf("--color-%s:%s", name, colors[name]))
	}
	return strings.Join(out, ";")
}

func cssThemes() string {
	light, dark := vars(Light), vars(Dark)
	return fmt.Sprintf(`
:root{%s;--font-sans:%s;--font-mono:%s}
html[data-theme="dark"]{%s}
@media (prefers-color-scheme:dark){html[data-theme="system"]{%s}}
`, light, FontFamily, FontMono, dark, dark)
}

func cssBase() string {
	return `
body{font-family:var(--font-sans);background:var(--color-bg);color:var(--color-text);min-height:100vh}
.theme-switcher{position:fixed;top:1rem;right:1rem;display:flex;gap:0.5rem;font-size:0.875rem}
.theme-switcher a{color:var(--color-textMuted);text-decoration:none}
.theme-switcher a[aria-current]{color:var(--color-text);font-weight:600}
.landing{min-height:100vh;display:flex;flex-direction:column;align-items:center;justify-content:center;gap:1.5rem}
.landing h1{font-size:2rem;font-weight:800}
`
}

func cssButtons() string {
	return `
.btn{display:inline-flex;align-items:center;justify-content:center;padding:0.5rem 1rem;font-size:0.875rem;font-weight:500;border-radius:0.375rem;border:1px solid transparent;cursor:pointer;min-height:2.5rem;text-decoration:none;transition:background .2s ease}
.btn:focus-visible{outline:2px solid var(--color-ring);outline-offset:2px}
.btn-primary{background:var(--color-primary);color:var(--color-primaryText)}
.btn-primary:hover{opacity:.9}
.btn-ghost{background:transparent;color:var(--color-text)}
.btn-ghost:hover{background:var(--color-bgAlt)}
`
}

func cssCard() string {
	return `
.signup{position:absolute;top:50%;left:50%;transform:translate(-50%,-50%);width:min(380px,calc(100% - 2rem))}
.card{background:var(--color-bg);border:1px solid var(--color-border);border-radius:0.75rem;box-shadow:0 1px 3px rgba(0,0,0,.08);overflow:hidden}
.card-header{padding:1.5rem 1.5rem 0.5rem}
.card-title{font-size:1.5rem;font-weight:600;line-height:1.2}
.card-description{color:var(--color-textMuted);font-size:0.875rem;margin-top:0.375rem}
.card-body{padding:1rem 1.5rem 1.5rem}
`
}

func cssFields() string {
	return `
.field{display:flex;flex-direction:column;gap:0.375rem;margin-bottom:0.75rem}
.field label{font-size:0.875rem;font-weight:500}
.field input,.field select{height:2.5rem;padding:0 0.75rem;border:1px solid var(--color-border);border-radius:0.375rem;background:var(--color-bg);color:var(--color-text)}
.field input:focus,.field select:focus{outline:2px solid var(--color-ring);outline-offset:1px}
.field [aria-invalid="true"]{border-color:var(--color-danger)}
.field-error{color:var(--color-danger);font-size:0.8rem;font-weight:500}
.step-notice{margin:0 0 0.75rem}
`
}

// cssSteps lays both field groups in the same grid cell; the inline
// translateX of each group slides it in or out.
func cssSteps() string {
	return `
.steps{display:grid;overflow:hidden}
.step{grid-area:1/1;border:0;min-width:0;transition:transform .3s ease-in-out}
.actions{display:flex;gap:0.5rem;margin-top:0.5rem}
`
}

func cssOverlays() string {
	return `
.toast{position:fixed;bottom:1rem;right:1rem;display:flex;align-items:center;gap:1rem;padding:1rem 1.25rem;border-radius:0.5rem;box-shadow:0 4px 12px rgba(0,0,0,.15);animation:toast-in .2s ease-out}
.toast-destructive{background:var(--color-danger);color:var(--color-dangerText)}
.toast-title{font-weight:600;font-size:0.9rem}
.toast-close{background:none;border:0;color:inherit;font-size:1.25rem;cursor:pointer}
.result{position:fixed;inset:0;margin:auto;width:min(420px,calc(100% - 2rem));height:fit-content;background:var(--color-bg);border:1px solid var(--color-border);border-radius:0.75rem;padding:1.5rem;box-shadow:0 10px 30px rgba(0,0,0,.2)}
.result pre{font-family:var(--font-mono);font-size:0.8rem;background:var(--color-bgAlt);padding:1rem;border-radius:0.375rem;margin:1rem 0;overflow:auto}
@keyframes toast-in{from{transform:translateY(100%);opacity:0}to{transform:none;opacity:1}}
`
}

func cssAccessibility() string {
	return `
@media (prefers-reduced-motion:reduce){.step,.toast{transition:none;animation:none}}
`
}
