// Package i18n resolves request locales and looks up translated messages
// from per-locale YAML catalogs using dot-separated keys.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yml
var localeFS embed.FS

// PreferredLangCookie mirrors the browser cookie carrying the chosen locale.
const PreferredLangCookie = "preferred-lang"

type Translator struct {
	catalogs map[string]map[string]any
	fallback string
	ordered  []string // locales in matcher order, fallback first
	matcher  language.Matcher
}

// New loads the embedded catalogs. fallback must name one of them.
func New(fallback string) (*Translator, error) {
	return NewFromFS(localeFS, fallback)
}

// NewFromFS loads every locales/*.yml catalog from fsys.
func NewFromFS(fsys fs.FS, fallback string) (*Translator, error) {
	entries, err := fs.Glob(fsys, "locales/*.yml")
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}

	t := &Translator{
		catalogs: make(map[string]map[string]any),
		fallback: fallback,
	}

	for _, name := range entries {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", name, err)
		}

		var catalog map[string]any
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", name, err)
		}

		locale := strings.TrimSuffix(path.Base(name), ".yml")
		if _, err := language.Parse(locale); err != nil {
			return nil, fmt.Errorf("catalog %s has no valid locale name: %w", name, err)
		}

		t.catalogs[locale] = catalog
	}

	if _, ok := t.catalogs[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q has no catalog", fallback)
	}

	// The matcher prefers earlier tags, so the fallback goes first.
	t.ordered = append(t.ordered, fallback)
	for locale := range t.catalogs {
		if locale != fallback {
			t.ordered = append(t.ordered, locale)
		}
	}
	sort.Strings(t.ordered[1:])

	tags := make([]language.Tag, len(t.ordered))
	for i, locale := range t.ordered {
		tags[i] = language.MustParse(locale)
	}
	t.matcher = language.NewMatcher(tags)

	return t, nil
}

// T looks up a dot-separated key in the locale's catalog, falling back to
// the default locale and finally to the key itself. Args are applied with
// Sprintf when present.
func (t *Translator) T(locale, key string, args ...any) string {
	msg, ok := t.lookup(locale, key)
	if !ok && locale != t.fallback {
		msg, ok = t.lookup(t.fallback, key)
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

func (t *Translator) lookup(locale, key string) (string, bool) {
	node, ok := t.catalogs[locale]
	if !ok {
		return "", false
	}

	parts := strings.Split(key, ".")
	for i, part := range parts {
		value, ok := node[part]
		if !ok {
			return "", false
		}
		if i == len(parts)-1 {
			s, ok := value.(string)
			return s, ok
		}
		node, ok = value.(map[string]any)
		if !ok {
			return "", false
		}
	}
	return "", false
}

// Supported reports whether a catalog exists for the locale.
func (t *Translator) Supported(locale string) bool {
	_, ok := t.catalogs[locale]
	return ok
}

// Fallback returns the default locale.
func (t *Translator) Fallback() string {
	return t.fallback
}

// Tag parses a locale into a language tag, defaulting to the fallback's.
func (t *Translator) Tag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.MustParse(t.fallback)
	}
	return tag
}

// Resolve picks the request locale: explicit path prefix first, then the
// preferred-lang cookie, then Accept-Language, then the default.
func (t *Translator) Resolve(r *http.Request) string {
	if locale := pathLocale(r.URL.Path); locale != "" && t.Supported(locale) {
		return locale
	}

	if c, err := r.Cookie(PreferredLangCookie); err == nil && t.Supported(c.Value) {
		return c.Value
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		if prefs, _, err := language.ParseAcceptLanguage(header); err == nil {
			_, index, conf := t.matcher.Match(prefs...)
			if conf > language.No {
				return t.ordered[index]
			}
		}
	}

	return t.fallback
}

func pathLocale(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i > 0 {
		p = p[:i]
	}
	if len(p) == 2 || (len(p) == 5 && p[2] == '-') {
		return p
	}
	return ""
}
