package shop

import "github.com/example/merch-storefront/internal/domain/checkout"

// Cart Commands
type AddToCart struct {
	SessionID string `json:"-"`
	ItemID    int    `json:"item_id"`
	Size      string `json:"size,omitempty"`
}

type SetQuantity struct {
	SessionID string `json:"-"`
	ItemID    int    `json:"-"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	SessionID string `json:"-"`
	ItemID    int    `json:"-"`
	Size      string `json:"-"`
}

// Checkout Commands
type SelectMethod struct {
	SessionID string `json:"-"`
	Method    string `json:"method"`
}

type SubmitDetails struct {
	SessionID string            `json:"-"`
	Customer  checkout.Customer `json:"customer"`
}
