package extraction

import (
	"strings"
)

// Units is the fixed unit vocabulary used by the inventory.
var Units = []string{"kg", "g", "l", "ml", "pcs"}

var unitAliases = map[string]string{
	"kg":         "kg",
	"kgs":        "kg",
	"kilo":       "kg",
	"kilogram":   "kg",
	"kilograms":  "kg",
	"g":          "g",
	"gr":         "g",
	"grs":        "g",
	"gram":       "g",
	"grams":      "g",
	"l":          "l",
	"lt":         "l",
	"ltr":        "l",
	"litre":      "l",
	"liter":      "l",
	"litri":      "l",
	"litres":     "l",
	"liters":     "l",
	"ml":         "ml",
	"millilitre": "ml",
	"milliliter": "ml",
	"pcs":        "pcs",
	"pc":         "pcs",
	"piece":      "pcs",
	"pieces":     "pcs",
	"buc":        "pcs",
	"bucati":     "pcs",
	"unit":       "pcs",
	"units":      "pcs",
	"ea":         "pcs",
	"each":       "pcs",
}

// NormalizeKey trims, lowercases and collapses internal whitespace runs to a
// single space. It is idempotent.
func NormalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}

// NormalizeUnit maps a unit onto the inventory vocabulary. Unknown units are
// returned lowercased and trimmed with known set to false.
func NormalizeUnit(unit string) (normalized string, known bool) {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), ".")
	if canonical, ok := unitAliases[u]; ok {
		return canonical, true
	}
	return u, false
}
