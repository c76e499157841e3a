package service

import (
	"github.com/shopspring/decimal"

	"github.com/compustore/compustore/internal/core/domain"
)

// lineTotal sums price*quantity over resolved lines without rounding.
func lineTotal(lines []domain.ResolvedLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		qty := decimal.NewFromInt(int64(lines[i].Quantity))
		total = total.Add(lines[i].Part.Price.Mul(qty))
	}
	return total
}

// saleTotal computes the invoice total: combo lines get the combo discount,
// individually selected lines are summed at full price. Intermediate values
// stay unrounded; the final total is rounded to 2 decimal places half-up.
func saleTotal(combo *domain.Combo, comboLines, individualLines []domain.ResolvedLine) decimal.Decimal {
	total := lineTotal(individualLines)
	if combo != nil {
		total = total.Add(combo.DiscountedPrice(lineTotal(comboLines)))
	}
	return total.Round(2)
}
