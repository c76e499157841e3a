package domain

import "github.com/shopspring/decimal"

// Combo is a curated bundle of parts sold at a percentage discount.
// A valid combo has exactly one motherboard, exactly one CPU, at least one
// RAM line and at least one disk line, all hardware-compatible.
type Combo struct {
	ID              int64
	Name            string
	DiscountPercent decimal.Decimal
	Lines           []ComboLine
}

type ComboLine struct {
	PartID   int64
	Quantity int
}

// DiscountedPrice applies the combo discount to a base line total.
// The result is not rounded; totals are rounded once at invoice time.
func (c *Combo) DiscountedPrice(base decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(c.DiscountPercent.Div(decimal.NewFromInt(100)))
	return base.Mul(factor)
}
