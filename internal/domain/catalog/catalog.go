package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryApparel     Category = "apparel"
	CategoryMusic       Category = "music"
	CategoryAccessories Category = "accessories"
)

var (
	ErrItemNotFound    = errors.New("catalog item not found")
	ErrDuplicateItem   = errors.New("duplicate catalog item id")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidCategory = errors.New("unknown category")
	ErrEmptySizes      = errors.New("size list must not contain empty labels")
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryApparel, CategoryMusic, CategoryAccessories:
		return true
	}
	return false
}

type Item struct {
	ID       int             `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	ImageURL string          `json:"image_url" yaml:"image_url"`
	Category Category        `json:"category" yaml:"category"`
	Sizes    []string        `json:"sizes,omitempty" yaml:"sizes,omitempty"`
}

// RequiresSize reports whether a size must be chosen before the item can be added
func (i Item) RequiresSize() bool {
	return len(i.Sizes) > 0
}

// OffersSize reports whether size is one of the item's variants
func (i Item) OffersSize(size string) bool {
	return slices.Contains(i.Sizes, size)
}

func (i Item) clone() Item {
	i.Sizes = slices.Clone(i.Sizes)
	return i
}

func (i Item) validate() error {
	if i.Name == "" {
		return fmt.Errorf("item %d: %w", i.ID, ErrInvalidName)
	}
	if !i.Price.IsPositive() {
		return fmt.Errorf("item %d: %w", i.ID, ErrInvalidPrice)
	}
	if !i.Category.Valid() {
		return fmt.Errorf("item %d: %w: %q", i.ID, ErrInvalidCategory, i.Category)
	}
	for _, s := range i.Sizes {
		if s == "" {
			return fmt.Errorf("item %d: %w", i.ID, ErrEmptySizes)
		}
	}
	return nil
}

// Catalog is the fixed list of purchasable items. It is never mutated after New.
type Catalog struct {
	items []Item
	byID  map[int]int
}

// New validates items and builds a catalog preserving their order
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[int]int, len(items)),
	}
	for _, item := range items {
		if err := item.validate(); err != nil {
			return nil, err
		}
		if _, exists := c.byID[item.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateItem, item.ID)
		}
		item = item.clone()
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Get returns the item with the given id
func (c *Catalog) Get(id int) (Item, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	return c.items[idx].clone(), nil
}

// Items returns a copy of all items in catalog order
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	for i, item := range c.items {
		out[i] = item.clone()
	}
	return out
}

// ByCategory returns the items of one category in catalog order
func (c *Catalog) ByCategory(category Category) []Item {
	var out []Item
	for _, item := range c.items {
		if item.Category == category {
			out = append(out, item.clone())
		}
	}
	return out
}

func (c *Catalog) Len() int { return len(c.items) }
