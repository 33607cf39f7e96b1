// Package locale resolves user-facing strings from TOML bundles embedded in the binary.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed locales/*.toml
var files embed.FS

// Localizer resolves a dotted message key to display text.
type Localizer interface {
	T(key string) string
}

// Bundle holds the flattened catalog for every embedded language.
type Bundle struct {
	fallback string
	catalogs map[string]map[string]string
}

// Load parses every embedded bundle. fallback names the language consulted
// when a key is missing from the requested one.
func Load(fallback string) (*Bundle, error) {
	entries, err := fs.ReadDir(files, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	b := &Bundle{
		fallback: fallback,
		catalogs: make(map[string]map[string]string, len(entries)),
	}

	for _, entry := range entries {
		name := entry.Name()
		if path.Ext(name) != ".toml" {
			continue
		}

		data, err := files.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		catalog := make(map[string]string)
		flatten("", raw, catalog)
		b.catalogs[strings.TrimSuffix(name, ".toml")] = catalog
	}

	if _, ok := b.catalogs[fallback]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, fallback)
	}

	return b, nil
}

// Languages returns the available language tags in sorted order.
func (b *Bundle) Languages() []string {
	langs := make([]string, 0, len(b.catalogs))
	for lang := range b.catalogs {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// Supports reports whether lang has an embedded bundle.
func (b *Bundle) Supports(lang string) bool {
	_, ok := b.catalogs[lang]
	return ok
}

// Missing lists the fallback keys that lang does not translate, sorted.
func (b *Bundle) Missing(lang string) []string {
	catalog, ok := b.catalogs[lang]
	if !ok {
		return nil
	}
	var keys []string
	for key := range b.catalogs[b.fallback] {
		if _, ok := catalog[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// For returns a Localizer for lang. Unknown languages resolve against the fallback.
func (b *Bundle) For(lang string) Localizer {
	primary, ok := b.catalogs[lang]
	if !ok {
		primary = b.catalogs[b.fallback]
	}
	return &localizer{
		primary:  primary,
		fallback: b.catalogs[b.fallback],
	}
}

// FromRequest picks the language from the lang query parameter, then from
// Accept-Language, then the fallback.
func (b *Bundle) FromRequest(r *http.Request) Localizer {
	if lang := r.URL.Query().Get("lang"); b.Supports(lang) {
		return b.For(lang)
	}

	for tag := range strings.SplitSeq(r.Header.Get("Accept-Language"), ",") {
		tag, _, _ = strings.Cut(strings.TrimSpace(tag), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if b.Supports(base) {
			return b.For(base)
		}
	}

	return b.For(b.fallback)
}

type localizer struct {
	primary  map[string]string
	fallback map[string]string
}

// T returns the key itself when neither catalog defines it.
func (l *localizer) T(key string) string {
	if v, ok := l.primary[key]; ok {
		return v
	}
	if v, ok := l.fallback[key]; ok {
		return v
	}
	return key
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
