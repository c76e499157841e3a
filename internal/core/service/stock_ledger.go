package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/compustore/compustore/internal/core/domain"
	"github.com/compustore/compustore/internal/port"
)

// StockLedger owns available-quantity state. Reservations run under row
// locks inside a purchase transaction; the read helpers are advisory
// snapshots served from the cache when possible.
type StockLedger struct {
	reader port.StockReader
	cache  port.StockCache
	log    *slog.Logger
}

func NewStockLedger(reader port.StockReader, cache port.StockCache, log *slog.Logger) *StockLedger {
	if log == nil {
		log = slog.Default()
	}
	return &StockLedger{reader: reader, cache: cache, log: log}
}

// sortLinesByPartID orders sale lines ascending by part id. Every code path
// that locks more than one part must lock in this order, otherwise two
// purchases sharing two parts can deadlock against each other.
func sortLinesByPartID(lines []domain.SaleLine) []domain.SaleLine {
	sorted := make([]domain.SaleLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartID < sorted[j].PartID })
	return sorted
}

// Reserve verifies and decrements every line within tx, all-or-nothing.
// On the first line with insufficient stock it returns an
// InsufficientStockError and leaves every quantity untouched; the caller's
// rollback releases the row locks.
func (l *StockLedger) Reserve(ctx context.Context, tx port.PurchaseTx, lines []domain.SaleLine) error {
	sorted := sortLinesByPartID(lines)

	// First pass: lock every row and verify availability before touching
	// any quantity.
	for _, line := range sorted {
		qty, err := tx.LockQuantity(ctx, line.PartID)
		if err != nil {
			return fmt.Errorf("lock part %d: %w", line.PartID, err)
		}
		if qty < line.Quantity {
			return &domain.InsufficientStockError{
				PartID:    line.PartID,
				Required:  line.Quantity,
				Available: qty,
			}
		}
	}

	for _, line := range sorted {
		if err := tx.DeductStock(ctx, line.PartID, line.Quantity); err != nil {
			return fmt.Errorf("deduct part %d: %w", line.PartID, err)
		}
	}

	return nil
}

// GetQuantity returns the advisory stock level for a part, preferring the
// cache and falling back to the database.
func (l *StockLedger) GetQuantity(ctx context.Context, partID int64) (int, error) {
	if l.cache != nil {
		qty, ok, err := l.cache.Level(ctx, partID)
		if err != nil {
			l.log.Warn("stock cache read failed", "part_id", partID, "error", err)
		} else if ok {
			return qty, nil
		}
	}
	return l.reader.Quantity(ctx, partID)
}

// IsStockAvailable reports whether at least qty units appear available.
// Advisory only: the authoritative check happens under the row lock in
// Reserve.
func (l *StockLedger) IsStockAvailable(ctx context.Context, partID int64, qty int) (bool, error) {
	current, err := l.GetQuantity(ctx, partID)
	if err != nil {
		return false, err
	}
	return current >= qty, nil
}

func (l *StockLedger) IsOutOfStock(ctx context.Context, partID int64) (bool, error) {
	current, err := l.GetQuantity(ctx, partID)
	if err != nil {
		return false, err
	}
	return current <= 0, nil
}

func (l *StockLedger) GetAllLevels(ctx context.Context) (map[int64]int, error) {
	return l.reader.AllLevels(ctx)
}

func (l *StockLedger) GetLowStock(ctx context.Context, threshold int) (map[int64]int, error) {
	return l.reader.LowStock(ctx, threshold)
}

// NoteCommittedSale lowers cached levels after a purchase commits.
// Best-effort: a cache failure only means a stale advisory read until the
// next sync.
func (l *StockLedger) NoteCommittedSale(ctx context.Context, lines []domain.SaleLine) {
	if l.cache == nil {
		return
	}
	for _, line := range lines {
		if err := l.cache.DecrementLevel(ctx, line.PartID, line.Quantity); err != nil {
			l.log.Warn("stock cache decrement failed", "part_id", line.PartID, "error", err)
		}
	}
}

// SyncCache overwrites the cache with current database levels.
func (l *StockLedger) SyncCache(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	levels, err := l.reader.AllLevels(ctx)
	if err != nil {
		return fmt.Errorf("read stock levels: %w", err)
	}
	for partID, qty := range levels {
		if err := l.cache.SetLevel(ctx, partID, qty); err != nil {
			return fmt.Errorf("cache level for part %d: %w", partID, err)
		}
	}
	return nil
}
