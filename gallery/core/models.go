package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Character struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Status  string `json:"status"`
	Species string `json:"species"`
}

// Filters select favorites by exact status and species. Empty fields match anything.
type Filters struct {
	Status  string `json:"status"`
	Species string `json:"species"`
}

func (f Filters) Match(c Character) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Species != "" && c.Species != f.Species {
		return false
	}
	return true
}

type View int

const (
	ViewIdle View = iota
	ViewPaged
	ViewSearch
	ViewFavorites
)

func (v View) String() string {
	switch v {
	case ViewPaged:
		return "paged"
	case ViewSearch:
		return "search"
	case ViewFavorites:
		return "favorites"
	default:
		return "idle"
	}
}

// Viewport carries the scroll metrics reported by the page.
type Viewport struct {
	ScrollY      float64 `json:"scroll_y"`
	InnerHeight  float64 `json:"inner_height"`
	ScrollHeight float64 `json:"scroll_height"`
}

// NearBottom reports whether the viewport is within threshold pixels of the end.
func (v Viewport) NearBottom(threshold float64) bool {
	return v.ScrollY+v.InnerHeight >= v.ScrollHeight-threshold
}

// favoriteID decodes both 7 and "7" so lists written by older clients still load.
type favoriteID int

func (id *favoriteID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*id = favoriteID(n)
	return nil
}
