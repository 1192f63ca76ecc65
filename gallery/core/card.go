package core

type Card struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Favorite bool   `json:"favorite"`
	Status   string `json:"status"`
	Species  string `json:"species"`
}

type FavoriteChecker interface {
	IsFavorite(id int) bool
}

func NewCard(c Character, favs FavoriteChecker) Card {
	return Card{
		ID:       c.ID,
		Name:     c.Name,
		Image:    c.Image,
		Favorite: favs != nil && favs.IsFavorite(c.ID),
		Status:   Translate(CategoryStatus, c.Status),
		Species:  Translate(CategorySpecies, c.Species),
	}
}

// RenderCard appends the card for c to the surface.
func RenderCard(s Surface, c Character, favs FavoriteChecker) {
	s.Append(NewCard(c, favs))
}
