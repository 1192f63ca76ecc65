package core

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	NoCharactersFound = "Nenhum personagem encontrado"
	ScrollThreshold   = 100
)

// FilterReport is handed to the completion hook once every favorite lookup
// of a RenderFiltered call has finished.
type FilterReport struct {
	Generation uint64
	Filters    Filters
	Requested  int
	Matched    int
	Failed     int
	Stale      int
}

type Option func(*Gallery)

func WithEvents(events Events) Option {
	return func(g *Gallery) { g.events = events }
}

func WithSession(id string) Option {
	return func(g *Gallery) { g.session = id }
}

// WithFilterConcurrency bounds the number of concurrent favorite lookups.
// Zero or less means no bound.
func WithFilterConcurrency(n int) Option {
	return func(g *Gallery) { g.filterLimit = n }
}

func WithFilterDone(fn func(FilterReport)) Option {
	return func(g *Gallery) { g.onFilterDone = fn }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gallery) { g.now = now }
}

// Gallery owns the view state of one browser session and drives the
// paged, search and favorites views over a Surface.
type Gallery struct {
	log          *slog.Logger
	chars        Characters
	favs         *Favorites
	events       Events
	session      string
	filterLimit  int
	onFilterDone func(FilterReport)
	now          func() time.Time

	// renderMu serializes surface writes with generation changes.
	renderMu sync.Mutex

	mu         sync.Mutex
	page       int
	loading    bool
	loadingGen uint64
	view       View
	generation uint64
	genCtx     context.Context
	genCancel  context.CancelFunc
	query      string
	filters    Filters
	lastActive time.Time
}

func NewGallery(log *slog.Logger, chars Characters, favs *Favorites, opts ...Option) (*Gallery, error) {
	if log == nil || chars == nil || favs == nil {
		return nil, ErrNilDependency
	}
	g := &Gallery{
		log:   log,
		chars: chars,
		favs:  favs,
		now:   time.Now,
		page:  1,
		view:  ViewIdle,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.genCtx, g.genCancel = context.WithCancel(context.Background())
	g.lastActive = g.now()
	return g, nil
}

func (g *Gallery) Session() string { return g.session }

func (g *Gallery) Favorites() *Favorites { return g.favs }

func (g *Gallery) Page() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page
}

func (g *Gallery) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}

func (g *Gallery) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

func (g *Gallery) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}

func (g *Gallery) Query() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.query
}

func (g *Gallery) Filters() Filters {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filters
}

func (g *Gallery) LastActive() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActive
}

// Close cancels whatever the current generation still runs.
func (g *Gallery) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.genCancel()
}

// transition starts a new view generation. Lookups of the previous one are
// cancelled and their late results are discarded.
func (g *Gallery) transition(v View) uint64 {
	g.renderMu.Lock()
	defer g.renderMu.Unlock()
	g.mu.Lock()
	defer g.mu.Unlock()

	g.genCancel()
	g.generation++
	g.genCtx, g.genCancel = context.WithCancel(context.Background())
	g.view = v
	g.loading = false
	g.lastActive = g.now()
	g.log.Debug("view transition", "session", g.session, "view", v.String(), "generation", g.generation)
	return g.generation
}

type run struct {
	gen  uint64
	ctx  context.Context
	stop func()
}

// attach binds ctx to generation gen: the returned context is cancelled when
// either ctx ends or gen is superseded.
func (g *Gallery) attach(ctx context.Context, gen uint64) run {
	g.mu.Lock()
	genCtx, current := g.genCtx, g.generation == gen
	g.lastActive = g.now()
	g.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	if !current {
		cancel()
		return run{gen: gen, ctx: ctx, stop: cancel}
	}
	stop := context.AfterFunc(genCtx, cancel)
	return run{gen: gen, ctx: ctx, stop: func() {
		stop()
		cancel()
	}}
}

// render runs fn only while gen is still the current generation.
func (g *Gallery) render(gen uint64, fn func()) bool {
	g.renderMu.Lock()
	defer g.renderMu.Unlock()
	g.mu.Lock()
	current := g.generation == gen
	g.mu.Unlock()
	if !current {
		return false
	}
	fn()
	return true
}

func (g *Gallery) startLoading(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loading || g.generation != gen {
		return false
	}
	g.loading = true
	g.loadingGen = gen
	return true
}

func (g *Gallery) finishLoading(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loading && g.loadingGen == gen {
		g.loading = false
	}
}

// Start shows the paged view from page 1. It runs on every page load, so a
// reload lists from the top again.
func (g *Gallery) Start(ctx context.Context, s Surface) Result {
	gen := g.transition(ViewPaged)
	g.mu.Lock()
	if g.generation == gen {
		g.page = 1
	}
	g.mu.Unlock()
	g.render(gen, s.Clear)
	return g.fetchPage(ctx, gen, s, 1)
}

// FetchPage appends page n to the surface. It is a no-op while another page
// fetch is in flight.
func (g *Gallery) FetchPage(ctx context.Context, s Surface, n int) Result {
	return g.fetchPage(ctx, g.Generation(), s, n)
}

func (g *Gallery) fetchPage(ctx context.Context, gen uint64, s Surface, n int) Result {
	if n < 1 {
		return failed(ErrBadArguments)
	}
	if !g.startLoading(gen) {
		return Result{Kind: KindSkipped}
	}
	r := g.attach(ctx, gen)
	defer r.stop()
	return g.loadPage(r, s, n)
}

// loadPage expects the in-flight flag to be held for r.gen and releases it.
func (g *Gallery) loadPage(r run, s Surface, n int) Result {
	defer g.finishLoading(r.gen)

	chars, err := g.chars.Page(r.ctx, n)
	if err != nil {
		if Classify(err) == KindCanceled {
			g.log.Debug("page fetch cancelled", "page", n)
		} else {
			g.log.Warn("page fetch failed", "page", n, "error", err)
		}
		return failed(err)
	}
	ok := g.render(r.gen, func() {
		for _, c := range chars {
			RenderCard(s, c, g.favs)
		}
	})
	if !ok {
		return Result{Kind: KindStale}
	}
	if len(chars) == 0 {
		return Result{Kind: KindEmpty}
	}
	return Result{Kind: KindOK, Rendered: len(chars)}
}

// Search replaces the surface with the characters matching query, or with
// the NoCharactersFound message when there are none or the request fails.
func (g *Gallery) Search(ctx context.Context, s Surface, query string) Result {
	return g.search(ctx, g.Generation(), s, query)
}

func (g *Gallery) search(ctx context.Context, gen uint64, s Surface, query string) Result {
	r := g.attach(ctx, gen)
	defer r.stop()

	chars, err := g.chars.Search(r.ctx, query)
	if err == nil && len(chars) > 0 {
		ok := g.render(gen, func() {
			s.Clear()
			for _, c := range chars {
				RenderCard(s, c, g.favs)
			}
		})
		if !ok {
			return Result{Kind: KindStale}
		}
		return Result{Kind: KindOK, Rendered: len(chars)}
	}

	res := Result{Kind: KindEmpty}
	if err != nil {
		res = failed(err)
		if res.Kind != KindNotFound && res.Kind != KindCanceled {
			g.log.Warn("search failed", "query", query, "error", err)
		}
	}
	ok := g.render(gen, func() {
		s.Clear()
		s.Message(NoCharactersFound)
	})
	if !ok {
		return Result{Kind: KindStale, Err: err}
	}
	return res
}

// RenderFiltered looks up every favorite concurrently and renders the ones
// matching filters in the order the lookups complete.
func (g *Gallery) RenderFiltered(ctx context.Context, s Surface, filters Filters) Result {
	return g.renderFiltered(ctx, g.Generation(), s, filters)
}

func (g *Gallery) renderFiltered(ctx context.Context, gen uint64, s Surface, filters Filters) Result {
	r := g.attach(ctx, gen)
	defer r.stop()

	ids := g.favs.IDs()
	var matched, failedN, stale atomic.Int32
	var firstErr error
	var errOnce sync.Once

	eg, egCtx := errgroup.WithContext(r.ctx)
	if g.filterLimit > 0 {
		eg.SetLimit(g.filterLimit)
	}
	for _, id := range ids {
		eg.Go(func() error {
			c, err := g.chars.ByID(egCtx, id)
			if err != nil {
				failedN.Add(1)
				errOnce.Do(func() { firstErr = err })
				if Classify(err) != KindCanceled {
					g.log.Warn("favorite lookup failed", "id", id, "error", err)
				}
				return nil
			}
			if !filters.Match(c) {
				return nil
			}
			if g.render(gen, func() { RenderCard(s, c, g.favs) }) {
				matched.Add(1)
			} else {
				stale.Add(1)
			}
			return nil
		})
	}
	_ = eg.Wait()

	report := FilterReport{
		Generation: gen,
		Filters:    filters,
		Requested:  len(ids),
		Matched:    int(matched.Load()),
		Failed:     int(failedN.Load()),
		Stale:      int(stale.Load()),
	}
	g.log.Debug("favorites filtered",
		"generation", gen, "requested", report.Requested, "matched", report.Matched,
		"failed", report.Failed, "stale", report.Stale)
	if g.onFilterDone != nil {
		g.onFilterDone(report)
	}

	switch {
	case report.Stale > 0 || g.Generation() != gen:
		return Result{Kind: KindStale, Rendered: report.Matched}
	case report.Requested > 0 && report.Failed == report.Requested:
		return Result{Kind: Classify(firstErr), Err: firstErr}
	case report.Matched == 0:
		return Result{Kind: KindEmpty}
	default:
		return Result{Kind: KindOK, Rendered: report.Matched}
	}
}

// OnInput handles a change of the search field.
func (g *Gallery) OnInput(ctx context.Context, s Surface, text string) Result {
	query := strings.TrimSpace(text)
	if query == "" {
		gen := g.transition(ViewPaged)
		g.setQuery("")
		g.render(gen, s.Clear)
		return g.fetchPage(ctx, gen, s, g.Page())
	}
	gen := g.transition(ViewSearch)
	g.setQuery(query)
	g.render(gen, s.Clear)
	return g.search(ctx, gen, s, query)
}

// OnScroll loads the next page when the paged view is scrolled near its end.
// It leaves the cursor alone while a page fetch is in flight.
func (g *Gallery) OnScroll(ctx context.Context, s Surface, vp Viewport) Result {
	g.mu.Lock()
	if g.view != ViewPaged || g.loading || !vp.NearBottom(ScrollThreshold) {
		g.mu.Unlock()
		return Result{Kind: KindSkipped}
	}
	g.page++
	n, gen := g.page, g.generation
	g.loading, g.loadingGen = true, gen
	g.mu.Unlock()

	r := g.attach(ctx, gen)
	defer r.stop()
	return g.loadPage(r, s, n)
}

// OnFavoritesFilter switches to the favorites view filtered by filters.
func (g *Gallery) OnFavoritesFilter(ctx context.Context, s Surface, filters Filters) Result {
	gen := g.transition(ViewFavorites)
	g.setFilters(filters)
	g.render(gen, s.Clear)
	return g.renderFiltered(ctx, gen, s, filters)
}

// Refresh renders the current view again from scratch.
func (g *Gallery) Refresh(ctx context.Context, s Surface) Result {
	switch v := g.View(); v {
	case ViewSearch:
		return g.OnInput(ctx, s, g.Query())
	case ViewFavorites:
		return g.OnFavoritesFilter(ctx, s, g.Filters())
	default:
		return g.Start(ctx, s)
	}
}

// ToggleFavorite flips id in the favorites set. The current view is left
// untouched; callers that want it redrawn call Refresh.
func (g *Gallery) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	if id <= 0 {
		return false, ErrBadArguments
	}
	fav, err := g.favs.Toggle(ctx, id)
	if err != nil {
		return fav, err
	}

	g.mu.Lock()
	g.lastActive = g.now()
	g.mu.Unlock()

	if g.events != nil {
		g.events.PublishFavoriteToggled(ctx, FavoriteToggled{
			Session:  g.session,
			ID:       id,
			Favorite: fav,
			IDs:      g.favs.IDs(),
		})
	}
	return fav, nil
}

func (g *Gallery) setQuery(q string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.query = q
}

func (g *Gallery) setFilters(f Filters) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filters = f
}
