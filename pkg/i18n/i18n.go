// Package i18n provides message catalogues and locale negotiation.
package i18n

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Translator holds the catalogues of every supported locale.
type Translator struct {
	fallback     string
	translations map[string]map[string]string // locale -> key -> value
	mu           sync.RWMutex
}

// NewTranslator creates a translator whose missing keys fall back to
// fallbackLocale.
func NewTranslator(fallbackLocale string) *Translator {
	return &Translator{
		fallback:     fallbackLocale,
		translations: make(map[string]map[string]string),
	}
}

// Fallback returns the fallback locale.
func (t *Translator) Fallback() string {
	return t.fallback
}

// Load merges translations for a locale.
func (t *Translator) Load(locale string, translations map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.translations[locale] == nil {
		t.translations[locale] = make(map[string]string)
	}

	for key, value := range translations {
		t.translations[locale][key] = value
	}
}

// Locales returns the loaded locales, fallback first.
func (t *Translator) Locales() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	locales := make([]string, 0, len(t.translations))
	for locale := range t.translations {
		if locale != t.fallback {
			locales = append(locales, locale)
		}
	}
	sort.Strings(locales)
	if _, ok := t.translations[t.fallback]; ok {
		locales = append([]string{t.fallback}, locales...)
	}
	return locales
}

// Has reports whether a catalogue exists for locale.
func (t *Translator) Has(locale string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.translations[locale]
	return ok
}

// T translates key for locale. Unknown keys are returned as is.
// Positional arguments replace %1, %2, ... in the message.
func (t *Translator) T(locale, key string, args ...any) string {
	if value := t.get(locale, key); value != "" {
		return interpolate(value, args...)
	}

	if locale != t.fallback {
		if value := t.get(t.fallback, key); value != "" {
			return interpolate(value, args...)
		}
	}

	return key
}

// Match picks the best loaded locale for an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) string {
	supported := t.Locales()
	if len(supported) == 0 {
		return t.fallback
	}

	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return supported[0]
	}

	tags := make([]language.Tag, len(supported))
	for i, s := range supported {
		tags[i] = language.Make(s)
	}

	_, idx, conf := language.NewMatcher(tags).Match(desired...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// For returns a Localizer bound to locale.
func (t *Translator) For(locale string) Localizer {
	if !t.Has(locale) {
		locale = t.fallback
	}
	return Localizer{t: t, locale: locale}
}

func (t *Translator) get(locale, key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if translations, ok := t.translations[locale]; ok {
		return translations[key]
	}
	return ""
}

func interpolate(template string, args ...any) string {
	result := template
	for i, arg := range args {
		placeholder := fmt.Sprintf("%%%d", i+1)
		result = strings.ReplaceAll(result, placeholder, fmt.Sprint(arg))
	}
	return result
}

// Localizer translates for one locale.
type Localizer struct {
	t      *Translator
	locale string
}

// Locale returns the bound locale.
func (l Localizer) Locale() string {
	return l.locale
}

// T translates key. A zero Localizer returns keys unchanged.
func (l Localizer) T(key string, args ...any) string {
	if l.t == nil {
		return interpolate(key, args...)
	}
	return l.t.T(l.locale, key, args...)
}

// Context helpers

type localizerContextKey struct{}

// WithLocalizer adds a localizer to context.
func WithLocalizer(ctx context.Context, l Localizer) context.Context {
	return context.WithValue(ctx, localizerContextKey{}, l)
}

// FromContext retrieves the localizer from context. The zero value is
// returned when none is set.
func FromContext(ctx context.Context) Localizer {
	l, _ := ctx.Value(localizerContextKey{}).(Localizer)
	return l
}

// T translates using the localizer from context.
func T(ctx context.Context, key string, args ...any) string {
	return FromContext(ctx).T(key, args...)
}

// Resolve returns forced when it is loaded, otherwise the best match for
// the request's Accept-Language header.
func (t *Translator) Resolve(r *http.Request, forced string) string {
	if forced != "" && t.Has(forced) {
		return forced
	}
	return t.Match(r.Header.Get("Accept-Language"))
}

// Middleware stores a Localizer for the resolved locale in the request
// context and sets Content-Language.
func Middleware(t *Translator, forced string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := t.For(t.Resolve(r, forced))
			w.Header().Set("Content-Language", l.Locale())
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), l)))
		})
	}
}
