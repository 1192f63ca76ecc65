package core

const (
	CategoryStatus  = "status"
	CategorySpecies = "species"
)

var translations = map[string]map[string]string{
	CategoryStatus: {
		"Alive":   "Vivo",
		"Dead":    "Morto",
		"unknown": "Desconhecido",
	},
	CategorySpecies: {
		"Human": "Humano",
		"Alien": "Alienígena",
		"Robot": "Robô",
	},
}

// Translate returns the display string for value, or value itself when unmapped.
func Translate(category, value string) string {
	if s, ok := translations[category][value]; ok {
		return s
	}
	return value
}

var choiceOrder = map[string][]string{
	CategoryStatus:  {"Alive", "Dead", "unknown"},
	CategorySpecies: {"Human", "Alien", "Robot"},
}

// Choice is one selectable filter value with its display label.
type Choice struct {
	Value string
	Label string
}

func Choices(category string) []Choice {
	values := choiceOrder[category]
	out := make([]Choice, 0, len(values))
	for _, v := range values {
		out = append(out, Choice{Value: v, Label: Translate(category, v)})
	}
	return out
}
