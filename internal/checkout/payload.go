// Package checkout builds the payment-gateway request from the cart. The
// gateway call itself lives elsewhere; this package only guarantees that
// the charged amounts come out of the same pricing resolver the cart
// displays, so the two can never disagree.
package checkout

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/nima-atelier/storefront/internal/cart"
	"github.com/nima-atelier/storefront/internal/pricing"
)

const Currency = "chf"

var ErrEmptyCart = errors.New("no items to checkout")

// Payload is the gateway checkout-session request body.
type Payload struct {
	ClientReferenceID string     `json:"client_reference_id"`
	Currency          string     `json:"currency"`
	LineItems         []LineItem `json:"line_items"`
}

// LineItem is one gateway line. UnitAmount is in minor units (rappen).
type LineItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
	Image      string `json:"image,omitempty"`
}

// Build turns cart lines into a gateway payload. Each line's unit amount is
// the discounted unit price from the pricing resolver, rounded to minor
// units. An empty cart is an error; the storefront never opens a payment
// session for nothing.
func Build(lines []cart.LineItem) (Payload, error) {
	if len(lines) == 0 {
		return Payload{}, ErrEmptyCart
	}

	items := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		resolved := pricing.Resolve(pricing.Input{
			Price:           line.BasePrice,
			DiscountPercent: line.DiscountPercent,
			Quantity:        float64(line.Quantity),
		})

		items = append(items, LineItem{
			ProductID:  line.ProductID,
			Name:       lineName(line),
			UnitAmount: int64(math.Round(resolved.UnitPrice * 100)),
			Quantity:   resolved.Quantity,
			Image:      line.Image,
		})
	}

	return Payload{
		ClientReferenceID: uuid.New().String(),
		Currency:          Currency,
		LineItems:         items,
	}, nil
}

func lineName(line cart.LineItem) string {
	if line.Name == "" {
		return "Product"
	}
	return line.Name
}
