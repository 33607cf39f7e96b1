package images_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/pkg/lifecycle"
	"github.com/JaimeStill/dermis/pkg/storage"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *fakeSource) FetchImage(_ context.Context, imageID, token string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[imageID] {
		return nil, "", errors.New("fetch failed")
	}
	return []byte("bytes-of-" + imageID), "image/png", nil
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// gatedSource blocks each fetch until release is closed.
type gatedSource struct {
	started chan string
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		started: make(chan string, 4),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) FetchImage(_ context.Context, imageID, _ string) ([]byte, string, error) {
	g.started <- imageID
	<-g.release
	return []byte(imageID), "image/png", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(src images.Source) *images.Manager {
	return images.NewManager(src, images.NewBlobs("/api/blobs"), discardLogger())
}

func TestAcquireAnonymous(t *testing.T) {
	src := &fakeSource{}
	m := newManager(src)

	r := m.Acquire(context.Background(), "iVBORw0KGgo", "")
	if r == nil {
		t.Fatal("Acquire() returned nil")
	}
	if r.Kind != images.KindInline {
		t.Errorf("kind = %s, want inline", r.Kind)
	}
	if r.Handle != "data:image/png;base64,iVBORw0KGgo" {
		t.Errorf("handle = %s", r.Handle)
	}
	if r.Revocable() {
		t.Error("inline resource should not be revocable")
	}
	if src.count() != 0 {
		t.Errorf("fetches = %d, want 0", src.count())
	}

	m.Release(r)
	if m.Blobs().Len() != 0 {
		t.Errorf("live blobs = %d, want 0", m.Blobs().Len())
	}
}

func TestAcquireAuthenticated(t *testing.T) {
	src := &fakeSource{}
	m := newManager(src)

	r := m.Acquire(context.Background(), "overlay-1", "tok")
	if r == nil {
		t.Fatal("Acquire() returned nil")
	}
	if r.Kind != images.KindRevocable {
		t.Errorf("kind = %s, want revocable", r.Kind)
	}
	if !strings.HasPrefix(r.Handle, "/api/blobs/") {
		t.Errorf("handle = %s, want /api/blobs/ prefix", r.Handle)
	}
	if m.Blobs().Len() != 1 {
		t.Fatalf("live blobs = %d, want 1", m.Blobs().Len())
	}
	if m.Blobs().Size() != int64(len("bytes-of-overlay-1")) {
		t.Errorf("size = %d", m.Blobs().Size())
	}

	m.Release(r)
	if m.Blobs().Len() != 0 {
		t.Errorf("live blobs after release = %d, want 0", m.Blobs().Len())
	}

	m.Release(r)
	m.Release(nil)
}

func TestAcquireUnavailable(t *testing.T) {
	src := &fakeSource{fail: map[string]bool{"broken": true}}
	m := newManager(src)

	if r := m.Acquire(context.Background(), "broken", "tok"); r != nil {
		t.Errorf("Acquire(broken) = %+v, want nil", r)
	}
	if r := m.Acquire(context.Background(), "", "tok"); r != nil {
		t.Errorf("Acquire(empty) = %+v, want nil", r)
	}
	if r := m.Acquire(context.Background(), "", ""); r != nil {
		t.Errorf("Acquire(empty, anonymous) = %+v, want nil", r)
	}
	if m.Blobs().Len() != 0 {
		t.Errorf("live blobs = %d, want 0", m.Blobs().Len())
	}
}

func TestSlotReloadReleasesPrevious(t *testing.T) {
	m := newManager(&fakeSource{})
	slot := m.NewSlot()
	ctx := context.Background()

	first := slot.Load(ctx, "overlay", "tok")
	if first == nil {
		t.Fatal("Load(overlay) returned nil")
	}

	second := slot.Load(ctx, "heatmap", "tok")
	if second == nil {
		t.Fatal("Load(heatmap) returned nil")
	}

	if m.Blobs().Len() != 1 {
		t.Errorf("live blobs = %d, want 1", m.Blobs().Len())
	}
	if slot.Current() != second {
		t.Error("slot should hold the latest resource")
	}

	state := slot.State()
	if state.Status != images.StatusReady || state.ImageID != "heatmap" || state.Handle != second.Handle {
		t.Errorf("state = %+v", state)
	}

	slot.Close()
	if m.Blobs().Len() != 0 {
		t.Errorf("live blobs after close = %d, want 0", m.Blobs().Len())
	}
	if r := slot.Load(ctx, "overlay", "tok"); r != nil {
		t.Error("Load after Close should return nil")
	}
}

func TestSlotUnavailable(t *testing.T) {
	m := newManager(&fakeSource{fail: map[string]bool{"gone": true}})
	slot := m.NewSlot()

	if r := slot.Load(context.Background(), "gone", "tok"); r != nil {
		t.Fatalf("Load() = %+v, want nil", r)
	}
	if state := slot.State(); state.Status != images.StatusUnavailable {
		t.Errorf("status = %s, want unavailable", state.Status)
	}
}

func TestSlotReleaseBeforeFetchCompletes(t *testing.T) {
	src := newGatedSource()
	m := newManager(src)
	slot := m.NewSlot()

	done := make(chan *images.Resource)
	go func() {
		done <- slot.Load(context.Background(), "overlay", "tok")
	}()

	<-src.started
	if state := slot.State(); state.Status != images.StatusLoading {
		t.Errorf("status while fetching = %s, want loading", state.Status)
	}

	slot.Release()
	close(src.release)

	if r := <-done; r != nil {
		t.Errorf("Load() = %+v, want nil after release", r)
	}
	if slot.Current() != nil {
		t.Error("released slot should hold nothing")
	}
	if m.Blobs().Len() != 0 {
		t.Errorf("live blobs = %d, want 0", m.Blobs().Len())
	}
	if state := slot.State(); state.Status != images.StatusEmpty {
		t.Errorf("status = %s, want empty", state.Status)
	}
}

func TestSlotSupersededLoad(t *testing.T) {
	src := newGatedSource()
	m := newManager(src)
	slot := m.NewSlot()

	first := make(chan *images.Resource)
	go func() {
		first <- slot.Load(context.Background(), "overlay", "tok")
	}()
	<-src.started

	second := make(chan *images.Resource)
	go func() {
		second <- slot.Load(context.Background(), "heatmap", "tok")
	}()
	<-src.started

	close(src.release)

	if r := <-first; r != nil {
		t.Errorf("superseded Load() = %+v, want nil", r)
	}
	r := <-second
	if r == nil || r.ImageID != "heatmap" {
		t.Fatalf("latest Load() = %+v, want heatmap", r)
	}
	if m.Blobs().Len() != 1 {
		t.Errorf("live blobs = %d, want 1", m.Blobs().Len())
	}
}

func TestHandlerServe(t *testing.T) {
	m := newManager(&fakeSource{})
	h := images.NewHandler(m.Blobs(), discardLogger())

	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}

	r := m.Acquire(context.Background(), "overlay", "tok")
	path := strings.TrimPrefix(r.Handle, "/api")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("content-type = %s", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "bytes-of-overlay" {
		t.Errorf("body = %q", rec.Body.String())
	}

	m.Release(r)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after revoke = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/blobs/not-a-uuid", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for malformed id = %d, want 404", rec.Code)
	}
}

type fakeStore struct {
	blobs map[string]string
}

func (f *fakeStore) Start(*lifecycle.Coordinator) error { return nil }

func (f *fakeStore) Download(_ context.Context, key string) (*storage.Blob, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Blob{
		Body:          io.NopCloser(bytes.NewReader([]byte(data))),
		ContentLength: int64(len(data)),
	}, nil
}

func TestStorageSource(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	src := images.NewStorageSource(&fakeStore{blobs: map[string]string{"xai/o1": png}}, "xai/")

	data, contentType, err := src.FetchImage(context.Background(), "o1", "")
	if err != nil {
		t.Fatalf("FetchImage() error = %v", err)
	}
	if string(data) != png {
		t.Errorf("data = %q", data)
	}
	if contentType != "image/png" {
		t.Errorf("content type = %s, want image/png", contentType)
	}

	_, _, err = src.FetchImage(context.Background(), "missing", "")
	if !errors.Is(err, images.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	cfg := &images.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Source != images.SourceRemote || cfg.UsesStorage() {
		t.Errorf("source = %s, want remote", cfg.Source)
	}

	t.Setenv("TEST_IMAGES_SOURCE", "storage")
	cfg = &images.Config{}
	if err := cfg.Finalize(&images.Env{Source: "TEST_IMAGES_SOURCE"}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if !cfg.UsesStorage() {
		t.Error("UsesStorage() = false, want true")
	}

	cfg = &images.Config{Source: "ftp"}
	if err := cfg.Finalize(nil); !errors.Is(err, images.ErrInvalidSource) {
		t.Errorf("Finalize() error = %v, want ErrInvalidSource", err)
	}
}
