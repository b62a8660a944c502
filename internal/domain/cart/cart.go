package cart

import (
	"errors"
	"fmt"

	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

var (
	ErrSizeRequired      = errors.New("size selection is required for this item")
	ErrSizeNotOffered    = errors.New("size is not offered for this item")
	ErrSizeNotApplicable = errors.New("item does not come in sizes")
	ErrInvalidQuantity   = errors.New("quantity must not be negative")
	ErrLineNotFound      = errors.New("cart line not found")
)

// Line is one (item, size) combination. Name, price and image are copied
// from the catalog when the line is created.
type Line struct {
	ItemID    int             `json:"item_id"`
	Size      string          `json:"size,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns unit price x quantity
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) matches(itemID int, size string) bool {
	return l.ItemID == itemID && l.Size == size
}

// Cart keeps lines in insertion order. The zero value is an empty cart.
type Cart struct {
	Items []Line `json:"lines"`
}

func New() *Cart {
	return &Cart{}
}

// AddItem increments the quantity of the (item, size) line or appends a new
// line with quantity 1
func (c *Cart) AddItem(item catalog.Item, size string) error {
	if err := checkSize(item, size); err != nil {
		return err
	}

	if idx := c.indexOf(item.ID, size); idx >= 0 {
		c.Items[idx].Quantity++
		return nil
	}

	c.Items = append(c.Items, Line{
		ItemID:    item.ID,
		Size:      size,
		Name:      item.Name,
		UnitPrice: item.Price,
		ImageURL:  item.ImageURL,
		Quantity:  1,
	})
	return nil
}

// RemoveItem deletes the (item, size) line. Removing a missing line is a no-op.
func (c *Cart) RemoveItem(itemID int, size string) {
	if idx := c.indexOf(itemID, size); idx >= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	}
}

// SetQuantity overwrites the quantity of an existing line; 0 removes it
func (c *Cart) SetQuantity(itemID int, size string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		c.RemoveItem(itemID, size)
		return nil
	}

	idx := c.indexOf(itemID, size)
	if idx < 0 {
		return fmt.Errorf("%w: item %d size %q", ErrLineNotFound, itemID, size)
	}
	c.Items[idx].Quantity = quantity
	return nil
}

// Total is the sum of every line's subtotal
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Items {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount is the sum of quantities across lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.Items))
	copy(out, c.Items)
	return out
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) Clear() { c.Items = nil }

func (c *Cart) indexOf(itemID int, size string) int {
	for i, l := range c.Items {
		if l.matches(itemID, size) {
			return i
		}
	}
	return -1
}

func checkSize(item catalog.Item, size string) error {
	switch {
	case item.RequiresSize() && size == "":
		return ErrSizeRequired
	case item.RequiresSize() && !item.OffersSize(size):
		return fmt.Errorf("%w: %q", ErrSizeNotOffered, size)
	case !item.RequiresSize() && size != "":
		return ErrSizeNotApplicable
	}
	return nil
}
