package cart

import (
	"errors"
	"slices"

	"github.com/example/merch-storefront/internal/domain/catalog"
)

var ErrGateClosed = errors.New("no size selection in progress")

// SizeGate holds back an add for a sized item until one of its sizes is
// chosen. Only one item can be pending at a time.
type SizeGate struct {
	pending *catalog.Item
}

// Request opens the gate for item. It returns false for unsized items,
// which callers add directly.
func (g *SizeGate) Request(item catalog.Item) bool {
	if !item.RequiresSize() {
		return false
	}
	g.pending = &item
	return true
}

// Pending returns the item awaiting a size
func (g *SizeGate) Pending() (catalog.Item, bool) {
	if g.pending == nil {
		return catalog.Item{}, false
	}
	return *g.pending, true
}

func (g *SizeGate) IsOpen() bool { return g.pending != nil }

func (g *SizeGate) Options() []string {
	if g.pending == nil {
		return nil
	}
	return slices.Clone(g.pending.Sizes)
}

// Select resolves the pending item with size and closes the gate. An
// unknown size leaves the gate open.
func (g *SizeGate) Select(size string) (catalog.Item, string, error) {
	if g.pending == nil {
		return catalog.Item{}, "", ErrGateClosed
	}
	if !g.pending.OffersSize(size) {
		return catalog.Item{}, "", ErrSizeNotOffered
	}
	item := *g.pending
	g.pending = nil
	return item, size, nil
}

// Cancel closes the gate without a selection
func (g *SizeGate) Cancel() {
	g.pending = nil
}
