package storage

import (
	"context"
	"fmt"

	"github.com/compustore/compustore/internal/core/domain"
)

func (m *MySQLAdapter) Exists(ctx context.Context, invoiceID string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_id = ?)`, invoiceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invoice: %w", err)
	}
	return exists, nil
}

func (m *MySQLAdapter) GetAll(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT invoice_id, customer_id, combo_id, total, order_date
		FROM invoices ORDER BY order_date, invoice_id`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.CustomerID, &inv.ComboID, &inv.Total, &inv.OrderDate); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range invoices {
		lines, err := m.invoiceLines(ctx, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Lines = lines
	}
	return invoices, nil
}

func (m *MySQLAdapter) invoiceLines(ctx context.Context, invoiceID string) ([]domain.InvoiceLine, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT part_id, quantity, unit_price
		FROM invoice_lines WHERE invoice_id = ? ORDER BY part_id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.InvoiceLine
	for rows.Next() {
		var line domain.InvoiceLine
		if err := rows.Scan(&line.PartID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
