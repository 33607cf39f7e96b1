package history

import (
	"cmp"
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/pkg/pagination"
)

// AllClasses disables the class filter.
const AllClasses = "all"

// Query selects a page of history rows, optionally restricted to one predicted class.
type Query struct {
	pagination.PageRequest
	Class string `json:"class"`
}

// QueryFromValues parses page, page_size and class query parameters.
func QueryFromValues(values url.Values, cfg pagination.Config) Query {
	return Query{
		PageRequest: pagination.PageRequestFromQuery(values, cfg),
		Class:       values.Get("class"),
	}
}

func (q Query) matches(row remote.HistorySummary) bool {
	if q.Class == "" || strings.EqualFold(q.Class, AllClasses) {
		return true
	}
	return strings.EqualFold(row.PredictedClass, q.Class)
}

// newestFirst sorts rows by timestamp, most recent first.
func newestFirst(rows []remote.HistorySummary) {
	slices.SortStableFunc(rows, func(a, b remote.HistorySummary) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// filter returns the rows matching q in their current order.
func filter(rows []remote.HistorySummary, q Query) []remote.HistorySummary {
	out := make([]remote.HistorySummary, 0, len(rows))
	for _, row := range rows {
		if q.matches(row) {
			out = append(out, row)
		}
	}
	return out
}

// classes returns the distinct predicted classes in sorted order.
func classes(rows []remote.HistorySummary) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		if row.PredictedClass == "" || seen[row.PredictedClass] {
			continue
		}
		seen[row.PredictedClass] = true
		out = append(out, row.PredictedClass)
	}
	slices.SortFunc(out, cmp.Compare[string])
	return out
}

// Gallery is a paged grid of history cards with one thumbnail slot per visible card.
// Changing page releases the thumbnails of the previous page.
type Gallery struct {
	id     uuid.UUID
	token  string
	client remote.Client
	images *images.Manager
	paging pagination.Config
	logger *slog.Logger

	mu     sync.Mutex
	rows   []remote.HistorySummary
	query  Query
	page   pagination.PageResult[remote.HistorySummary]
	thumbs []*images.Slot
	closed bool
}

func openGallery(
	ctx context.Context,
	client remote.Client,
	manager *images.Manager,
	paging pagination.Config,
	token string,
	q Query,
	logger *slog.Logger,
) (*Gallery, error) {
	id := uuid.New()
	g := &Gallery{
		id:     id,
		token:  token,
		client: client,
		images: manager,
		paging: paging,
		logger: logger.With("gallery", id),
	}

	if err := g.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := g.Show(ctx, q); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// ID returns the view identifier.
func (g *Gallery) ID() uuid.UUID {
	return g.id
}

// OwnedBy reports whether token opened the view.
func (g *Gallery) OwnedBy(token string) bool {
	return g.token == token
}

// Query returns the filter and page currently shown.
func (g *Gallery) Query() Query {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.query
}

// Refresh reloads the rows from the remote store. The visible page is not
// changed until the next Show.
func (g *Gallery) Refresh(ctx context.Context) error {
	rows, err := g.client.ListHistory(ctx, g.token)
	if err != nil {
		return err
	}
	newestFirst(rows)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrViewNotFound
	}
	g.rows = rows
	return nil
}

// Show displays the page selected by q and loads its thumbnails concurrently.
func (g *Gallery) Show(ctx context.Context, q Query) error {
	q.Normalize(g.paging)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrViewNotFound
	}

	page := pagination.Slice(filter(g.rows, q), q.PageRequest)
	q.Page = page.Page

	previous := g.thumbs
	thumbs := make([]*images.Slot, len(page.Data))
	for i := range thumbs {
		thumbs[i] = g.images.NewSlot()
	}

	g.query = q
	g.page = page
	g.thumbs = thumbs
	g.mu.Unlock()

	for _, s := range previous {
		s.Close()
	}

	eg, ectx := errgroup.WithContext(ctx)
	for i, row := range page.Data {
		eg.Go(func() error {
			thumbs[i].Load(ectx, row.ImageID, g.token)
			return nil
		})
	}
	eg.Wait()

	g.logger.Debug("page shown", "page", page.Page, "class", q.Class, "cards", len(page.Data))
	return nil
}

// Close releases every thumbnail.
func (g *Gallery) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	thumbs := g.thumbs
	g.thumbs = nil
	g.mu.Unlock()

	for _, s := range thumbs {
		s.Close()
	}
}

// Card is one history row as displayed in the gallery.
type Card struct {
	ID             string           `json:"id"`
	PredictedClass string           `json:"predicted_class"`
	Confidence     float64          `json:"confidence"`
	Timestamp      time.Time        `json:"timestamp"`
	Thumbnail      images.SlotState `json:"thumbnail"`
}

// GallerySnapshot is the view model of a gallery.
type GallerySnapshot struct {
	ID      uuid.UUID                   `json:"id"`
	Class   string                      `json:"class"`
	Classes []string                    `json:"classes"`
	Page    pagination.PageResult[Card] `json:"page"`
}

// Snapshot returns the current view model.
func (g *Gallery) Snapshot() GallerySnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	cards := make([]Card, len(g.page.Data))
	for i, row := range g.page.Data {
		cards[i] = Card{
			ID:             row.ID,
			PredictedClass: row.PredictedClass,
			Confidence:     row.Confidence,
			Timestamp:      row.Timestamp,
		}
		if i < len(g.thumbs) {
			cards[i].Thumbnail = g.thumbs[i].State()
		}
	}

	class := g.query.Class
	if class == "" {
		class = AllClasses
	}

	pageSize := max(g.page.PageSize, 1)
	return GallerySnapshot{
		ID:      g.id,
		Class:   class,
		Classes: append([]string{AllClasses}, classes(g.rows)...),
		Page:    pagination.NewPageResult(cards, g.page.Total, max(g.page.Page, 1), pageSize),
	}
}
