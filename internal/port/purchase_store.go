package port

import (
	"context"

	"github.com/compustore/compustore/internal/core/domain"
)

// PurchaseStore opens the single transaction a purchase attempt runs in.
type PurchaseStore interface {
	Begin(ctx context.Context) (PurchaseTx, error)
}

// PurchaseTx is the transactional surface of one purchase attempt. Stock
// reservation and invoice persistence happen on the same PurchaseTx so a
// rollback undoes both.
type PurchaseTx interface {
	// LockQuantity acquires an exclusive row lock on the part's stock
	// record and returns the current quantity. It blocks while a
	// concurrent transaction holds the same lock.
	LockQuantity(ctx context.Context, partID int64) (int, error)

	// DeductStock decrements the part's quantity. Callers must hold the
	// row lock via LockQuantity and have verified availability first.
	DeductStock(ctx context.Context, partID int64, quantity int) error

	// InvoiceExists reports whether an invoice id is already taken,
	// as seen from within this transaction.
	InvoiceExists(ctx context.Context, invoiceID string) (bool, error)

	// InsertInvoice persists the invoice header and its lines. It returns
	// domain.ErrDuplicateInvoiceID on a unique-key collision so the
	// coordinator can regenerate the id instead of aborting the sale.
	InsertInvoice(ctx context.Context, inv *domain.Invoice) error

	Commit() error
	Rollback() error
}
