package core_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"morty.dev/characters/gallery/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
	sets int
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sets++
	m.data[key] = value
	return nil
}

// op is one recorded surface operation.
type op struct {
	kind string
	id   int
	text string
	fav  bool
}

type recordingSurface struct {
	mu     sync.Mutex
	ops    []op
	notify chan struct{}
}

func newSurface() *recordingSurface {
	return &recordingSurface{notify: make(chan struct{}, 64)}
}

func (s *recordingSurface) record(o op) {
	s.mu.Lock()
	s.ops = append(s.ops, o)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *recordingSurface) Clear() { s.record(op{kind: "clear"}) }

func (s *recordingSurface) Append(c core.Card) {
	s.record(op{kind: "card", id: c.ID, text: c.Status + "/" + c.Species, fav: c.Favorite})
}

func (s *recordingSurface) Message(text string) { s.record(op{kind: "message", text: text}) }

func (s *recordingSurface) Ops() []op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]op(nil), s.ops...)
}

// Cards returns the ids rendered since the last clear.
func (s *recordingSurface) Cards() []int {
	var ids []int
	for _, o := range s.Ops() {
		switch o.kind {
		case "clear":
			ids = nil
		case "card":
			ids = append(ids, o.id)
		}
	}
	return ids
}

func (s *recordingSurface) waitCards(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for len(s.Cards()) < n {
		select {
		case <-s.notify:
		case <-deadline:
			t.Fatalf("expected %d cards, got %v", n, s.Cards())
		}
	}
}

type fakeCharacters struct {
	mu         sync.Mutex
	pages      map[int][]core.Character
	byID       map[int]core.Character
	search     map[string][]core.Character
	pageErr    error
	gates      map[int]chan struct{} // per-id gate for ByID
	pageGate   chan struct{}
	searchGate chan struct{}

	pageCalls   []int
	searchCalls []string
	byIDCalls   []int
	started     chan string
}

func newFakeCharacters() *fakeCharacters {
	return &fakeCharacters{
		pages:   map[int][]core.Character{},
		byID:    map[int]core.Character{},
		search:  map[string][]core.Character{},
		gates:   map[int]chan struct{}{},
		started: make(chan string, 64),
	}
}

func (f *fakeCharacters) wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCharacters) Page(ctx context.Context, n int) ([]core.Character, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, n)
	gate, err, chars := f.pageGate, f.pageErr, f.pages[n]
	f.mu.Unlock()
	f.started <- "page"

	if err := f.wait(ctx, gate); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return chars, nil
}

func (f *fakeCharacters) Search(ctx context.Context, q string) ([]core.Character, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, q)
	gate := f.searchGate
	chars, ok := f.search[q]
	f.mu.Unlock()
	f.started <- "search"

	if err := f.wait(ctx, gate); err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrNotFound
	}
	return chars, nil
}

func (f *fakeCharacters) ByID(ctx context.Context, id int) (core.Character, error) {
	f.mu.Lock()
	f.byIDCalls = append(f.byIDCalls, id)
	gate := f.gates[id]
	c, ok := f.byID[id]
	f.mu.Unlock()
	f.started <- "byid"

	if err := f.wait(ctx, gate); err != nil {
		return core.Character{}, err
	}
	if !ok {
		return core.Character{}, core.ErrNotFound
	}
	return c, nil
}

func (f *fakeCharacters) PageCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pageCalls...)
}

func (f *fakeCharacters) waitStarted(t *testing.T, what string) {
	t.Helper()
	select {
	case got := <-f.started:
		require.Equal(t, what, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("%s request was not issued", what)
	}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []core.FavoriteToggled
}

func (e *recordingEvents) PublishFavoriteToggled(_ context.Context, ev core.FavoriteToggled) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func character(id int, status, species string) core.Character {
	return core.Character{ID: id, Name: "c" + string(rune('0'+id)), Status: status, Species: species}
}
