package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sessionKeyPrefix = "favorites:"

// Sessions keeps one Gallery per browser session. Favorites of a session are
// stored under "favorites:<id>".
type Sessions struct {
	log   *slog.Logger
	chars Characters
	store KV
	opts  []Option

	mu        sync.Mutex
	galleries map[string]*Gallery
}

func NewSessions(log *slog.Logger, chars Characters, store KV, opts ...Option) (*Sessions, error) {
	if log == nil || chars == nil || store == nil {
		return nil, ErrNilDependency
	}
	return &Sessions{
		log:       log,
		chars:     chars,
		store:     store,
		opts:      opts,
		galleries: make(map[string]*Gallery),
	}, nil
}

func SessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Get returns the gallery of session id, loading its favorites on first use.
func (s *Sessions) Get(ctx context.Context, id string) (*Gallery, error) {
	if id == "" {
		return nil, ErrBadArguments
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.galleries[id]; ok {
		return g, nil
	}
	favs, err := LoadFavorites(ctx, s.log, s.store, SessionKey(id))
	if err != nil {
		return nil, err
	}
	opts := append(append([]Option(nil), s.opts...), WithSession(id))
	g, err := NewGallery(s.log, s.chars, favs, opts...)
	if err != nil {
		return nil, err
	}
	s.galleries[id] = g
	s.log.Debug("session opened", "session", id, "favorites", favs.Len())
	return g, nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.galleries)
}

// Evict drops sessions idle for longer than idle. Favorites stay persisted.
func (s *Sessions) Evict(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, g := range s.galleries {
		if now.Sub(g.LastActive()) <= idle {
			continue
		}
		g.Close()
		delete(s.galleries, id)
		n++
	}
	return n
}

func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, g := range s.galleries {
		g.Close()
		delete(s.galleries, id)
	}
}
