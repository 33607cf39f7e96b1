package locale_test

import (
	"errors"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/JaimeStill/dermis/internal/locale"
)

func TestLoad(t *testing.T) {
	b, err := locale.Load("en")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	langs := b.Languages()
	if !slices.Equal(langs, []string{"en", "uk"}) {
		t.Errorf("Languages() = %v, want [en uk]", langs)
	}
}

func TestLoadUnknownFallback(t *testing.T) {
	_, err := locale.Load("fr")
	if !errors.Is(err, locale.ErrUnknownLanguage) {
		t.Errorf("Load(fr) error = %v, want ErrUnknownLanguage", err)
	}
}

func TestTranslate(t *testing.T) {
	b, err := locale.Load("en")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		lang string
		key  string
		want string
	}{
		{"english key", "en", "xai_methods.show_heatmap", "Show heatmap"},
		{"ukrainian key", "uk", "xai_methods.show_heatmap", "Показати теплову карту"},
		{"ukrainian error", "uk", "errors.forbidden", "У вас немає доступу до цього ресурсу."},
		{"ukrainian unknown class", "uk", "analysis.unknown_class", "невідомо"},
		{"unknown language uses default", "de", "errors.not_found", "The requested resource was not found."},
		{"missing key returns key", "en", "xai_methods.nope", "xai_methods.nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.For(tt.lang).T(tt.key); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestCatalogsComplete(t *testing.T) {
	b, err := locale.Load("en")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, lang := range b.Languages() {
		t.Run(lang, func(t *testing.T) {
			if missing := b.Missing(lang); len(missing) > 0 {
				t.Errorf("Missing(%q) = %v, want none", lang, missing)
			}
		})
	}

	if got := b.Missing("de"); got != nil {
		t.Errorf("Missing(de) = %v, want nil", got)
	}
}

func TestFromRequest(t *testing.T) {
	b, err := locale.Load("en")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"query parameter", "/methods?lang=uk", "", "Показати накладання"},
		{"accept-language region", "/methods", "uk-UA,uk;q=0.9,en;q=0.8", "Показати накладання"},
		{"unsupported header", "/methods", "de-DE", "Show overlay"},
		{"query wins over header", "/methods?lang=en", "uk", "Show overlay"},
		{"no preference", "/methods", "", "Show overlay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			if got := b.FromRequest(req).T("xai_methods.show_overlay"); got != tt.want {
				t.Errorf("T() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_LOCALE_DEFAULT", "uk")

	cfg := &locale.Config{}
	if err := cfg.Finalize(&locale.Env{Default: "TEST_LOCALE_DEFAULT"}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Default != "uk" {
		t.Errorf("Default = %q, want uk", cfg.Default)
	}

	cfg = &locale.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Default != "en" {
		t.Errorf("Default = %q, want en", cfg.Default)
	}
}
