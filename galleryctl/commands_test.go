package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"morty.dev/characters/gallery/adapters/memory"
	"morty.dev/characters/gallery/core"
)

type stubCharacters struct {
	pages  map[int][]core.Character
	search map[string][]core.Character
	byID   map[int]core.Character
}

func (s *stubCharacters) Page(_ context.Context, n int) ([]core.Character, error) {
	chars, ok := s.pages[n]
	if !ok {
		return nil, core.ErrUnavailable
	}
	return chars, nil
}

func (s *stubCharacters) Search(_ context.Context, q string) ([]core.Character, error) {
	chars, ok := s.search[q]
	if !ok {
		return nil, core.ErrNotFound
	}
	return chars, nil
}

func (s *stubCharacters) ByID(_ context.Context, id int) (core.Character, error) {
	c, ok := s.byID[id]
	if !ok {
		return core.Character{}, core.ErrUnavailable
	}
	return c, nil
}

var (
	rick  = core.Character{ID: 1, Name: "Rick Sanchez", Status: "Alive", Species: "Human"}
	bird  = core.Character{ID: 47, Name: "Birdperson", Status: "Dead", Species: "Alien"}
	jerry = core.Character{ID: 5, Name: "Jerry Smith", Status: "unknown", Species: "Human"}
)

func newStubCharacters() *stubCharacters {
	return &stubCharacters{
		pages:  map[int][]core.Character{1: {rick, jerry}, 2: {bird}},
		search: map[string][]core.Character{"bird": {bird}},
		byID:   map[int]core.Character{1: rick, 5: jerry, 47: bird},
	}
}

func execute(t *testing.T, store core.KV, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	a := &app{
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		chars: newStubCharacters(),
		store: store,
	}
	defer a.close()

	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPageCommand(t *testing.T) {
	out, err := execute(t, memory.New(), "page")
	require.NoError(t, err)
	require.Equal(t, "☆ #1    Rick Sanchez  Vivo / Humano\n☆ #5    Jerry Smith  Desconhecido / Humano\n", out)

	out, err = execute(t, memory.New(), "page", "2")
	require.NoError(t, err)
	require.Contains(t, out, "Birdperson  Morto / Alienígena")
}

func TestPageCommandErrors(t *testing.T) {
	_, err := execute(t, memory.New(), "page", "0")
	require.ErrorContains(t, err, `invalid page "0"`)

	_, err = execute(t, memory.New(), "page", "9")
	require.ErrorIs(t, err, core.ErrUnavailable)
	require.ErrorContains(t, err, "page 9: unavailable")
}

func TestSearchCommand(t *testing.T) {
	out, err := execute(t, memory.New(), "search", "bird")
	require.NoError(t, err)
	require.Equal(t, "☆ #47   Birdperson  Morto / Alienígena\n", out)

	out, err = execute(t, memory.New(), "search", "nobody")
	require.NoError(t, err)
	require.Equal(t, core.NoCharactersFound+"\n", out)
}

func TestFavoritesCommands(t *testing.T) {
	store := memory.New()

	out, err := execute(t, store, "favorites", "list")
	require.NoError(t, err)
	require.Equal(t, "no favorites yet\n", out)

	for _, id := range []string{"47", "1", "5"} {
		out, err = execute(t, store, "favorites", "toggle", id)
		require.NoError(t, err)
		require.Equal(t, "★ #"+id+" added to favorites\n", out)
	}

	out, err = execute(t, store, "favorites", "list", "--species", "Human")
	require.NoError(t, err)
	require.Contains(t, out, "★ #1    Rick Sanchez  Vivo / Humano\n")
	require.Contains(t, out, "★ #5    Jerry Smith  Desconhecido / Humano\n")
	require.NotContains(t, out, "Birdperson")
	require.Contains(t, out, "2 of 3 favorites shown\n")

	out, err = execute(t, store, "favorites", "toggle", "1")
	require.NoError(t, err)
	require.Equal(t, "☆ #1 removed from favorites\n", out)

	out, err = execute(t, store, "favorites", "list", "--status", "Alive")
	require.NoError(t, err)
	require.Equal(t, "0 of 2 favorites shown\n", out)

	data, err := store.Get(context.Background(), core.FavoritesKey)
	require.NoError(t, err)
	require.JSONEq(t, `[47,5]`, string(data))
}

func TestFavoritesListReportsFailures(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Set(context.Background(), core.FavoritesKey, []byte(`[47,"99"]`)))

	out, err := execute(t, store, "favorites", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Birdperson")
	require.Contains(t, out, "1 of 2 favorites shown, 1 failed\n")
}

func TestToggleRejectsBadID(t *testing.T) {
	_, err := execute(t, memory.New(), "favorites", "toggle", "x")
	require.ErrorContains(t, err, `invalid id "x"`)
}

func TestSQLiteStorePersists(t *testing.T) {
	color.NoColor = true
	path := filepath.Join(t.TempDir(), "favorites.db")

	run := func(args ...string) string {
		a := &app{log: slog.New(slog.NewTextHandler(io.Discard, nil)), chars: newStubCharacters()}
		defer a.close()
		var out bytes.Buffer
		root := newRootCmd(a)
		root.SetOut(&out)
		root.SetArgs(append([]string{"--db-driver", "sqlite", "--db", path}, args...))
		require.NoError(t, root.Execute())
		return out.String()
	}

	run("favorites", "toggle", "47")
	out := run("favorites", "list")
	require.Contains(t, out, "★ #47   Birdperson")
	require.Contains(t, out, "1 of 1 favorites shown\n")
}

func TestUnknownDriver(t *testing.T) {
	a := &app{log: slog.New(slog.NewTextHandler(io.Discard, nil)), chars: newStubCharacters()}
	root := newRootCmd(a)
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--db-driver", "mongo", "page"})
	require.ErrorContains(t, root.Execute(), `unknown db driver "mongo"`)
}

func TestConsoleSurfaceClear(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	s := newConsoleSurface(&out)

	s.Clear()
	s.Message("one")
	s.Clear()
	s.Append(core.NewCard(rick, nil))

	require.Equal(t, "one\n\n☆ #1    Rick Sanchez  Vivo / Humano\n", out.String())
}
