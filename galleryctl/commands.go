package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"morty.dev/characters/gallery/adapters/db"
	"morty.dev/characters/gallery/adapters/memory"
	"morty.dev/characters/gallery/adapters/rickmorty"
	"morty.dev/characters/gallery/core"
)

const driverMemory = "memory"

// app holds the dependencies shared by all commands. Fields left nil are
// built from flags before a command runs.
type app struct {
	log   *slog.Logger
	chars core.Characters
	store core.KV

	logLevel    string
	apiURL      string
	apiTimeout  time.Duration
	apiAttempts int
	dbDriver    string
	dbAddress   string
	noColor     bool

	closers []func()
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.noColor {
		color.NoColor = true
	}
	if a.log == nil {
		a.log = mustMakeLogger(a.logLevel, cmd.ErrOrStderr())
	}
	if a.chars == nil {
		client, err := rickmorty.NewClient(a.apiURL, a.apiTimeout, a.apiAttempts, a.log)
		if err != nil {
			return fmt.Errorf("failed to create api client: %w", err)
		}
		a.chars = client
	}
	if a.store == nil {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		a.store = store
	}
	return nil
}

func (a *app) openStore() (core.KV, error) {
	switch a.dbDriver {
	case driverMemory:
		return memory.New(), nil
	case db.DriverSQLite, db.DriverPostgres:
		store, err := db.New(a.log, a.dbDriver, a.dbAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to open favorites db: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate favorites db: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", a.dbDriver)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) gallery(ctx context.Context, opts ...core.Option) (*core.Gallery, error) {
	favs, err := core.LoadFavorites(ctx, a.log, a.store, core.FavoritesKey)
	if err != nil {
		return nil, err
	}
	g, err := core.NewGallery(a.log, a.chars, favs, opts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, g.Close)
	return g, nil
}

// check turns a failed result into a command error. Searches without matches
// are not failures.
func check(what string, res core.Result) error {
	if res.OK() || res.Kind == core.KindNotFound {
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("%s: %s: %w", what, res.Kind, res.Err)
	}
	return fmt.Errorf("%s: %s", what, res.Kind)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "galleryctl",
		Short: "Browse Rick and Morty characters from the terminal",
		Long: `galleryctl lists, searches and filters characters of the Rick and Morty API
and keeps a local list of favorites.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "ERROR", "log level: DEBUG, INFO or ERROR")
	flags.StringVar(&a.apiURL, "api-url", rickmorty.DefaultBaseURL, "character endpoint")
	flags.DurationVar(&a.apiTimeout, "api-timeout", 10*time.Second, "per-request timeout")
	flags.IntVar(&a.apiAttempts, "api-attempts", 3, "attempts per request")
	flags.StringVar(&a.dbDriver, "db-driver", db.DriverSQLite, "favorites store: sqlite, pgx or memory")
	flags.StringVar(&a.dbAddress, "db", "galleryctl.db", "favorites store address")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(pageCmd(a))
	root.AddCommand(searchCmd(a))
	root.AddCommand(favoritesCmd(a))
	return root
}

func pageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "page [n]",
		Short: "List one page of characters",
		Long: `List one page of characters. Pages start at 1.

Examples:
  galleryctl page
  galleryctl page 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return fmt.Errorf("invalid page %q", args[0])
				}
				n = v
			}
			g, err := a.gallery(cmd.Context())
			if err != nil {
				return err
			}
			res := g.FetchPage(cmd.Context(), newConsoleSurface(cmd.OutOrStdout()), n)
			return check(fmt.Sprintf("page %d", n), res)
		},
	}
}

func searchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <name>",
		Short: "Search characters by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.gallery(cmd.Context())
			if err != nil {
				return err
			}
			res := g.Search(cmd.Context(), newConsoleSurface(cmd.OutOrStdout()), args[0])
			return check("search", res)
		},
	}
}

func favoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List and edit favorite characters",
	}
	cmd.AddCommand(favoritesListCmd(a))
	cmd.AddCommand(favoritesToggleCmd(a))
	return cmd
}

func favoritesListCmd(a *app) *cobra.Command {
	var filters core.Filters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show favorites, optionally filtered",
		Long: `Show favorites as their lookups complete.

Examples:
  galleryctl favorites list
  galleryctl favorites list --status Alive --species Human`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			var report core.FilterReport
			g, err := a.gallery(cmd.Context(), core.WithFilterDone(func(r core.FilterReport) {
				report = r
			}))
			if err != nil {
				return err
			}
			if g.Favorites().Len() == 0 {
				fmt.Fprintln(out, "no favorites yet")
				return nil
			}
			res := g.OnFavoritesFilter(cmd.Context(), newConsoleSurface(out), filters)
			summary := fmt.Sprintf("%d of %d favorites shown", report.Matched, report.Requested)
			if report.Failed > 0 {
				summary += color.New(color.FgRed).Sprintf(", %d failed", report.Failed)
			}
			fmt.Fprintln(out, idColor.Sprint(summary))
			return check("favorites", res)
		},
	}
	cmd.Flags().StringVar(&filters.Status, "status", "", "status filter: Alive, Dead or unknown")
	cmd.Flags().StringVar(&filters.Species, "species", "", "species filter, e.g. Human")
	return cmd
}

func favoritesToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Add or remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			g, err := a.gallery(cmd.Context())
			if err != nil {
				return err
			}
			fav, err := g.ToggleFavorite(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if fav {
				fmt.Fprintf(out, "%s #%d added to favorites\n", starColor.Sprint("★"), id)
			} else {
				fmt.Fprintf(out, "☆ #%d removed from favorites\n", id)
			}
			return nil
		},
	}
}

func mustMakeLogger(levelStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		panic("unknown log level: " + levelStr)
	}
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
