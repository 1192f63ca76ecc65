package core

import "context"

// Characters is the remote character API.
type Characters interface {
	Page(ctx context.Context, n int) ([]Character, error)
	Search(ctx context.Context, query string) ([]Character, error)
	ByID(ctx context.Context, id int) (Character, error)
}

// KV is a flat key-value store. Get returns ErrNotFound for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Surface receives rendered output. Implementations must not clear on Append.
type Surface interface {
	Clear()
	Append(card Card)
	Message(text string)
}

type Events interface {
	PublishFavoriteToggled(ctx context.Context, ev FavoriteToggled)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type FavoriteToggled struct {
	Session  string `json:"session"`
	ID       int    `json:"id"`
	Favorite bool   `json:"favorite"`
	IDs      []int  `json:"ids"`
}
