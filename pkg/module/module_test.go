package module_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/dermis/pkg/module"
)

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"/api", false},
		{"/blobs", false},
		{"", true},
		{"/", true},
		{"api", true},
		{"/api/v1", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			err := module.ValidatePrefix(tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			}
		})
	}
}

func TestNewPanicsOnInvalidPrefix(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New did not panic")
		}
	}()
	module.New("/api/v1", http.NewServeMux())
}

func TestModuleStripsPrefix(t *testing.T) {
	mux := http.NewServeMux()

	var paths []string
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
	})

	m := module.New("/api", mux)

	var wrapped int
	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped++
			next.ServeHTTP(w, r)
		})
	})

	for _, p := range []string{"/api/sessions/1", "/api"} {
		req := httptest.NewRequest("GET", p, nil)
		m.ServeHTTP(httptest.NewRecorder(), req)
		if req.URL.Path != p {
			t.Errorf("original request mutated: %s", req.URL.Path)
		}
	}

	if len(paths) != 2 || paths[0] != "/sessions/1" || paths[1] != "/" {
		t.Errorf("inner paths = %v", paths)
	}
	if wrapped != 2 {
		t.Errorf("middleware calls = %d, want 2", wrapped)
	}
}

func TestRouterDispatch(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /methods", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("native"))
	})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"module", "/api/methods", http.StatusOK, "api"},
		{"trailing slash", "/api/methods/", http.StatusOK, "api"},
		{"native", "/healthz", http.StatusOK, "native"},
		{"unmatched", "/apis/methods", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" {
				if body, _ := io.ReadAll(rec.Body); string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
		})
	}
}

func TestRouterRejectsDuplicateMount(t *testing.T) {
	router := module.NewRouter()
	router.Mount(module.New("/api", http.NewServeMux()))

	defer func() {
		if recover() == nil {
			t.Error("duplicate mount did not panic")
		}
	}()
	router.Mount(module.New("/api", http.NewServeMux()))
}
