package port

import "context"

// StockReader serves advisory stock reads outside any transaction.
// Values are best-effort snapshots; the authoritative check happens under
// row locks inside a purchase transaction.
type StockReader interface {
	Quantity(ctx context.Context, partID int64) (int, error)
	AllLevels(ctx context.Context) (map[int64]int, error)
	LowStock(ctx context.Context, threshold int) (map[int64]int, error)
}

// StockCache mirrors stock levels for fast advisory reads (UI availability
// display). It is updated best-effort after a purchase commits and may lag
// the database.
type StockCache interface {
	// SetLevel overwrites the cached level for a part.
	SetLevel(ctx context.Context, partID int64, quantity int) error

	// Level returns the cached level and whether the part was cached.
	Level(ctx context.Context, partID int64) (int, bool, error)

	// DecrementLevel lowers the cached level, never below zero.
	DecrementLevel(ctx context.Context, partID int64, quantity int) error
}
