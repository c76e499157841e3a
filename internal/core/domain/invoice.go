package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the durable record of one committed purchase. Rows are
// append-only: an invoice is created exactly once and never mutated.
type Invoice struct {
	ID         string
	CustomerID int64
	ComboID    *int64
	Total      decimal.Decimal
	OrderDate  time.Time
	Lines      []InvoiceLine
}

// InvoiceLine is a denormalized copy of a sale line at the time of sale,
// including the unit price then in effect.
type InvoiceLine struct {
	PartID    int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type Customer struct {
	ID   int64
	Name string
}
