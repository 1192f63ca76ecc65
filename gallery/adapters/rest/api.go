package rest

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"morty.dev/characters/gallery/adapters/rest/middleware"
	"morty.dev/characters/gallery/core"
)

const maxBodyBytes = 4096

//go:embed templates/*.html
var templatesFS embed.FS

func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}

type Sessions interface {
	Get(ctx context.Context, id string) (*core.Gallery, error)
}

type pingReply struct {
	Replies map[string]string `json:"replies"`
}

type toggleReply struct {
	ID       int  `json:"id"`
	Favorite bool `json:"favorite"`
}

type favoritesReply struct {
	IDs []int `json:"ids"`
}

type inputRequest struct {
	Text string `json:"text"`
}

type pageData struct {
	Statuses []core.Choice
	Species  []core.Choice
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func gallery(log *slog.Logger, sessions Sessions, w http.ResponseWriter, r *http.Request) (*core.Gallery, bool) {
	g, err := sessions.Get(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, core.ErrBadArguments) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return nil, false
		}
		log.Error("cannot open session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return g, true
}

func NewPageHandler(log *slog.Logger, tmpl *template.Template) http.HandlerFunc {
	data := pageData{
		Statuses: core.Choices(core.CategoryStatus),
		Species:  core.Choices(core.CategorySpecies),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
			log.Error("page render failed", "error", err)
		}
	}
}

func NewPingHandler(log *slog.Logger, pingers map[string]core.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := pingReply{Replies: map[string]string{}}
		for name, p := range pingers {
			if err := p.Ping(r.Context()); err != nil {
				log.Warn("ping failed", "service", name, "error", err)
				resp.Replies[name] = "unavailable"
				continue
			}
			resp.Replies[name] = "ok"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// newEventHandler decodes an event of type T and streams the surface
// operations produced by handle.
func newEventHandler[T any](
	log *slog.Logger, sessions Sessions, tmpl *template.Template,
	handle func(ctx context.Context, g *core.Gallery, s core.Surface, in T) core.Result,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeBody(w, r, &in); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		g, ok := gallery(log, sessions, w, r)
		if !ok {
			return
		}

		s := newStreamSurface(log, tmpl, w)
		res := handle(r.Context(), g, s, in)
		if res.Err != nil && res.Kind != core.KindCanceled && res.Kind != core.KindStale {
			log.Debug("event finished with error", "kind", res.Kind, "error", res.Err)
		}
		s.Done(res)
	}
}

func NewStartHandler(log *slog.Logger, sessions Sessions, tmpl *template.Template) http.HandlerFunc {
	return newEventHandler(log, sessions, tmpl, func(ctx context.Context, g *core.Gallery, s core.Surface, _ struct{}) core.Result {
		return g.Start(ctx, s)
	})
}

func NewInputHandler(log *slog.Logger, sessions Sessions, tmpl *template.Template) http.HandlerFunc {
	return newEventHandler(log, sessions, tmpl, func(ctx context.Context, g *core.Gallery, s core.Surface, in inputRequest) core.Result {
		return g.OnInput(ctx, s, in.Text)
	})
}

func NewScrollHandler(log *slog.Logger, sessions Sessions, tmpl *template.Template) http.HandlerFunc {
	return newEventHandler(log, sessions, tmpl, func(ctx context.Context, g *core.Gallery, s core.Surface, vp core.Viewport) core.Result {
		return g.OnScroll(ctx, s, vp)
	})
}

func NewFilterHandler(log *slog.Logger, sessions Sessions, tmpl *template.Template) http.HandlerFunc {
	return newEventHandler(log, sessions, tmpl, func(ctx context.Context, g *core.Gallery, s core.Surface, f core.Filters) core.Result {
		return g.OnFavoritesFilter(ctx, s, f)
	})
}

func NewRefreshHandler(log *slog.Logger, sessions Sessions, tmpl *template.Template) http.HandlerFunc {
	return newEventHandler(log, sessions, tmpl, func(ctx context.Context, g *core.Gallery, s core.Surface, _ struct{}) core.Result {
		return g.Refresh(ctx, s)
	})
}

func NewToggleHandler(log *slog.Logger, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil || id <= 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		g, ok := gallery(log, sessions, w, r)
		if !ok {
			return
		}

		fav, err := g.ToggleFavorite(r.Context(), id)
		if err != nil {
			log.Error("toggle favorite failed", "id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toggleReply{ID: id, Favorite: fav})
	}
}

func NewFavoritesHandler(log *slog.Logger, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := gallery(log, sessions, w, r)
		if !ok {
			return
		}
		ids := g.Favorites().IDs()
		if ids == nil {
			ids = []int{}
		}
		writeJSON(w, http.StatusOK, favoritesReply{IDs: ids})
	}
}
