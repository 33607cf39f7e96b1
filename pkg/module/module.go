// Package module mounts self-contained HTTP modules under single-segment path
// prefixes, each with its own middleware stack.
package module

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/JaimeStill/dermis/pkg/middleware"
)

// Module serves an inner router under a path prefix. Requests reach the inner
// router with the prefix removed.
type Module struct {
	prefix     string
	router     http.Handler
	middleware middleware.System

	once    sync.Once
	handler http.Handler
}

// New creates a Module for prefix (e.g. "/api"). Panics if the prefix is not
// a single path segment with a leading slash.
func New(prefix string, router http.Handler) *Module {
	if err := ValidatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix:     prefix,
		router:     router,
		middleware: middleware.New(),
	}
}

// ValidatePrefix reports whether prefix can name a module.
func ValidatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1 || len(prefix) == 1:
		return fmt.Errorf("module prefix must be a single path segment: %s", prefix)
	}
	return nil
}

// Use adds middleware to the module's stack. Middleware added after the first
// request has been served is ignored.
func (m *Module) Use(mw middleware.Middleware) {
	m.middleware.Use(mw)
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Handler returns the inner router wrapped with the module's middleware. The
// chain is built once.
func (m *Module) Handler() http.Handler {
	m.once.Do(func() {
		m.handler = m.middleware.Apply(m.router)
	})
	return m.handler
}

// ServeHTTP strips the module prefix and dispatches to the wrapped router.
func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.Handler().ServeHTTP(w, strip(r, m.prefix))
}

func strip(r *http.Request, prefix string) *http.Request {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	if path == "" {
		path = "/"
	}

	out := r.Clone(r.Context())
	out.URL = new(url.URL)
	*out.URL = *r.URL
	out.URL.Path = path
	out.URL.RawPath = ""
	return out
}
