package port

import (
	"context"

	"github.com/compustore/compustore/internal/core/domain"
)

// InvoiceReader serves non-transactional invoice queries: id existence for
// the generator and listing for reporting.
type InvoiceReader interface {
	Exists(ctx context.Context, invoiceID string) (bool, error)
	GetAll(ctx context.Context) ([]domain.Invoice, error)
}
