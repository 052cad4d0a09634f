package pricing

import "math"

// Input carries the raw economics of a single product or cart line, exactly
// as received from the backend or from persisted cart data. All fields may
// hold garbage; Resolve normalizes instead of erroring.
type Input struct {
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount"`
	Quantity        float64 `json:"quantity"`
}

// Line is the normalized per-line economics. It is the single source of
// truth for money math: cart totals, checkout payloads, and display all read
// from it.
type Line struct {
	BasePrice       float64 `json:"base_price"`
	DiscountPercent float64 `json:"discount_percent"`
	HasDiscount     bool    `json:"has_discount"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	LineTotal       float64 `json:"line_total"`
	LineDiscount    float64 `json:"line_discount"`
}

// Totals aggregates resolved lines across a cart.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	DiscountTotal float64 `json:"discount_total"`
	Total         float64 `json:"total"`
}

// NormalizePrice clamps a price to a non-negative value. NaN and Inf
// collapse to zero.
func NormalizePrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// NormalizeDiscount clamps a discount percentage into [0, 100]. NaN and
// Inf collapse to zero.
func NormalizeDiscount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NormalizeQuantity floors a quantity to an integer of at least 1.
func NormalizeQuantity(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return 1
	}
	return int(math.Floor(v))
}

// Resolve turns raw line input into normalized line economics. It is pure
// and total: invalid numbers clamp, nothing panics.
func Resolve(in Input) Line {
	basePrice := NormalizePrice(in.Price)
	discount := NormalizeDiscount(in.DiscountPercent)
	hasDiscount := discount > 0
	quantity := NormalizeQuantity(in.Quantity)

	unitPrice := basePrice
	if hasDiscount {
		unitPrice = basePrice * (1 - discount/100)
	}
	lineTotal := unitPrice * float64(quantity)

	var lineDiscount float64
	if hasDiscount {
		lineDiscount = (basePrice - unitPrice) * float64(quantity)
	}

	return Line{
		BasePrice:       basePrice,
		DiscountPercent: discount,
		HasDiscount:     hasDiscount,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		LineTotal:       lineTotal,
		LineDiscount:    lineDiscount,
	}
}

// Sum folds Resolve over all lines. DiscountTotal is derived from the same
// two accumulations as Subtotal and Total, so Subtotal-DiscountTotal ==
// Total holds bit-exact and the displayed cart never drifts from the
// charged amount.
func Sum(inputs []Input) Totals {
	var t Totals
	for _, in := range inputs {
		line := Resolve(in)
		t.Subtotal += line.BasePrice * float64(line.Quantity)
		t.Total += line.LineTotal
	}
	t.DiscountTotal = t.Subtotal - t.Total
	return t
}
