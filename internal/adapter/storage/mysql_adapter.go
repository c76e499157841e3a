package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/compustore/compustore/internal/core/domain"
	"github.com/compustore/compustore/internal/port"
)

const mysqlDupEntry = 1062

// MySQLAdapter backs the purchase store, the catalog and the invoice
// reader with one MySQL database.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) Begin(ctx context.Context) (port.PurchaseTx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &mysqlTx{tx: tx}, nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) LockQuantity(ctx context.Context, partID int64) (int, error) {
	var qty int
	err := t.tx.QueryRowContext(ctx,
		`SELECT quantity FROM parts WHERE part_id = ? FOR UPDATE`, partID,
	).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrPartNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock stock row: %w", err)
	}
	return qty, nil
}

func (t *mysqlTx) DeductStock(ctx context.Context, partID int64, quantity int) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE parts
		SET quantity = quantity - ?
		WHERE part_id = ? AND quantity >= ?`,
		quantity, partID, quantity,
	)
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}

	// The row is locked and availability was just verified, so an
	// unmatched row means the guard caught something gone badly wrong.
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deduct stock: part %d no longer has %d units", partID, quantity)
	}
	return nil
}

func (t *mysqlTx) InvoiceExists(ctx context.Context, invoiceID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_id = ?)`, invoiceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invoice: %w", err)
	}
	return exists, nil
}

func (t *mysqlTx) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO invoices (invoice_id, customer_id, combo_id, total, order_date)
		VALUES (?, ?, ?, ?, ?)`,
		inv.ID, inv.CustomerID, inv.ComboID, inv.Total, inv.OrderDate,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDupEntry {
			return domain.ErrDuplicateInvoiceID
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	for _, line := range inv.Lines {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO invoice_lines (invoice_id, part_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			inv.ID, line.PartID, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}
	return nil
}

func (t *mysqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *mysqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Quantity reads a part's stock level outside any transaction.
func (m *MySQLAdapter) Quantity(ctx context.Context, partID int64) (int, error) {
	var qty int
	err := m.db.QueryRowContext(ctx,
		`SELECT quantity FROM parts WHERE part_id = ?`, partID,
	).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrPartNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return qty, nil
}

func (m *MySQLAdapter) AllLevels(ctx context.Context) (map[int64]int, error) {
	return m.levels(ctx, `SELECT part_id, quantity FROM parts`)
}

func (m *MySQLAdapter) LowStock(ctx context.Context, threshold int) (map[int64]int, error) {
	return m.levels(ctx, `SELECT part_id, quantity FROM parts WHERE quantity <= ?`, threshold)
}

func (m *MySQLAdapter) levels(ctx context.Context, query string, args ...any) (map[int64]int, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock levels: %w", err)
	}
	defer rows.Close()

	levels := make(map[int64]int)
	for rows.Next() {
		var partID int64
		var qty int
		if err := rows.Scan(&partID, &qty); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels[partID] = qty
	}
	return levels, rows.Err()
}
