// Package catalog holds the ingredient and recipe keys line items are
// normalized to.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/stockx/extractor/internal/extraction"
	"gopkg.in/yaml.v3"
)

// Catalog validation errors.
var (
	ErrEmptyCatalog     = errors.New("catalog has no ingredients and no recipes")
	ErrEmptyKey         = errors.New("key is empty")
	ErrKeyNotNormalized = errors.New("key must be lowercase and single-spaced")
	ErrDuplicateKey     = errors.New("duplicate key")
)

//go:embed default.yaml
var defaultCatalog []byte

// Entry is one catalog key with the printed names known to map to it.
type Entry struct {
	Key     string   `yaml:"key"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// Catalog is the set of keys the inventory backend knows about.
type Catalog struct {
	Ingredients []Entry `yaml:"ingredients"`
	Recipes     []Entry `yaml:"recipes"`
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	return &c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

// Validate checks that every key is non-empty, normalized and unique within its list.
func (c *Catalog) Validate() error {
	if len(c.Ingredients) == 0 && len(c.Recipes) == 0 {
		return ErrEmptyCatalog
	}
	if err := validateEntries("ingredients", c.Ingredients); err != nil {
		return err
	}
	return validateEntries("recipes", c.Recipes)
}

func validateEntries(list string, entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		switch {
		case e.Key == "":
			return fmt.Errorf("%w: %s[%d]", ErrEmptyKey, list, i)
		case extraction.NormalizeKey(e.Key) != e.Key:
			return fmt.Errorf("%w: %s[%d] %q", ErrKeyNotNormalized, list, i, e.Key)
		case seen[e.Key]:
			return fmt.Errorf("%w: %s[%d] %q", ErrDuplicateKey, list, i, e.Key)
		}
		seen[e.Key] = true
	}
	return nil
}

// InvoiceHints returns prompt hints restricting invoice items to the ingredient keys.
func (c *Catalog) InvoiceHints() extraction.Hints {
	return hints(c.Ingredients)
}

// ReceiptHints returns prompt hints restricting receipt items to the recipe keys.
func (c *Catalog) ReceiptHints() extraction.Hints {
	return hints(c.Recipes)
}

func hints(entries []Entry) extraction.Hints {
	var h extraction.Hints
	for _, e := range entries {
		h.KnownKeys = append(h.KnownKeys, e.Key)
		for _, alias := range e.Aliases {
			h.Examples = append(h.Examples, extraction.Example{Name: alias, Key: e.Key})
		}
	}
	return h
}

// UnknownIngredients returns the distinct ingredient keys of data that are not
// in the catalog, in order of first appearance.
func (c *Catalog) UnknownIngredients(data extraction.InvoiceData) []string {
	keys := make([]string, 0, len(data.Items))
	for _, item := range data.Items {
		keys = append(keys, item.IngredientKey)
	}
	return unknown(c.Ingredients, keys)
}

// UnknownRecipes returns the distinct recipe keys of data that are not in the
// catalog, in order of first appearance.
func (c *Catalog) UnknownRecipes(data extraction.ReceiptData) []string {
	keys := make([]string, 0, len(data.Items))
	for _, item := range data.Items {
		keys = append(keys, item.RecipeKey)
	}
	return unknown(c.Recipes, keys)
}

func unknown(entries []Entry, keys []string) []string {
	if len(entries) == 0 {
		return nil
	}
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Key] = true
	}

	var missing []string
	for _, k := range keys {
		if !known[k] && !slices.Contains(missing, k) {
			missing = append(missing, k)
		}
	}
	return missing
}
