package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

const FavoritesKey = "favorites"

type Favorites struct {
	log   *slog.Logger
	store KV
	key   string

	mu  sync.RWMutex
	ids []int
}

// LoadFavorites reads the persisted set. Missing or unreadable data yields an empty set.
func LoadFavorites(ctx context.Context, log *slog.Logger, store KV, key string) (*Favorites, error) {
	if log == nil || store == nil {
		return nil, ErrNilDependency
	}
	if key == "" {
		key = FavoritesKey
	}
	f := &Favorites{log: log, store: store, key: key, ids: []int{}}

	data, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn("cannot read favorites, starting empty", "key", key, "error", err)
		}
		return f, nil
	}

	var raw []favoriteID
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("invalid favorites data, starting empty", "key", key, "error", err)
		return f, nil
	}
	for _, id := range raw {
		if !slices.Contains(f.ids, int(id)) {
			f.ids = append(f.ids, int(id))
		}
	}
	return f, nil
}

func (f *Favorites) IsFavorite(id int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Contains(f.ids, id)
}

func (f *Favorites) IDs() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.ids)
}

func (f *Favorites) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Toggle removes id if present, appends it otherwise, and persists the whole set.
// It reports whether id is a favorite afterwards. On a failed write the
// in-memory set keeps the change.
func (f *Favorites) Toggle(ctx context.Context, id int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var added bool
	if i := slices.Index(f.ids, id); i >= 0 {
		f.ids = slices.Delete(f.ids, i, i+1)
	} else {
		f.ids = append(f.ids, id)
		added = true
	}

	data, err := json.Marshal(f.ids)
	if err != nil {
		return added, err
	}
	if err := f.store.Set(ctx, f.key, data); err != nil {
		return added, fmt.Errorf("save favorites: %w", err)
	}
	return added, nil
}
