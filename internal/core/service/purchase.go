package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/compustore/compustore/internal/core/domain"
	"github.com/compustore/compustore/internal/port"
)

// PurchaseState tracks the progress of one purchase attempt. An attempt is
// terminal after a single run: it ends Committed or Failed.
type PurchaseState int

const (
	StateCreated PurchaseState = iota
	StateLinesResolved
	StateStockReserved
	StateInvoicePersisted
	StateCommitted
	StateFailed
)

func (s PurchaseState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLinesResolved:
		return "lines_resolved"
	case StateStockReserved:
		return "stock_reserved"
	case StateInvoicePersisted:
		return "invoice_persisted"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// PurchaseRequest is a proposed sale: an optional combo plus individually
// selected parts.
type PurchaseRequest struct {
	CustomerID int64
	ComboID    *int64
	Lines      []domain.SaleLine
}

// PurchaseCoordinator turns a purchase request into a committed invoice.
// Stock reservation and invoice persistence share one transaction; any
// failure before commit rolls the whole unit back and leaves stock
// untouched.
type PurchaseCoordinator struct {
	store    port.PurchaseStore
	catalog  port.Catalog
	ledger   *StockLedger
	invoices port.InvoiceReader
	ids      *InvoiceIDGenerator
	log      *slog.Logger
}

func NewPurchaseCoordinator(
	store port.PurchaseStore,
	catalog port.Catalog,
	ledger *StockLedger,
	invoices port.InvoiceReader,
	ids *InvoiceIDGenerator,
	log *slog.Logger,
) *PurchaseCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &PurchaseCoordinator{
		store:    store,
		catalog:  catalog,
		ledger:   ledger,
		invoices: invoices,
		ids:      ids,
		log:      log,
	}
}

// purchaseAttempt is the request-scoped state of one ExecutePurchase run.
type purchaseAttempt struct {
	id    string
	state PurchaseState

	combo           *domain.Combo
	comboLines      []domain.ResolvedLine
	individualLines []domain.ResolvedLine
	saleLines       []domain.SaleLine
}

func (a *purchaseAttempt) to(s PurchaseState) {
	a.state = s
}

// ExecutePurchase runs the full sale: resolve lines, re-validate the combo,
// reserve stock, mint an invoice id, persist the invoice and commit.
// It returns the new invoice id, or a classified error with zero observable
// side effects.
func (c *PurchaseCoordinator) ExecutePurchase(ctx context.Context, req PurchaseRequest) (string, error) {
	attempt := &purchaseAttempt{id: uuid.NewString(), state: StateCreated}
	log := c.log.With("attempt_id", attempt.id, "customer_id", req.CustomerID)

	invoiceID, err := c.run(ctx, attempt, req)
	if err != nil {
		attempt.to(StateFailed)
		log.Info("purchase failed", "state", attempt.state.String(), "error", err)
		return "", err
	}

	log.Info("purchase committed", "invoice_id", invoiceID)

	// Post-commit observability only: the sale is already durable, so a
	// failed check is logged for manual follow-up, never rolled back.
	c.verifyConsistency(ctx, log, invoiceID, attempt.saleLines)
	c.ledger.NoteCommittedSale(ctx, attempt.saleLines)

	return invoiceID, nil
}

func (c *PurchaseCoordinator) run(ctx context.Context, attempt *purchaseAttempt, req PurchaseRequest) (string, error) {
	ok, err := c.catalog.CustomerExists(ctx, req.CustomerID)
	if err != nil {
		return "", fmt.Errorf("resolve customer %d: %w", req.CustomerID, err)
	}
	if !ok {
		return "", domain.ErrCustomerNotFound
	}

	if err := c.resolveLines(ctx, attempt, req); err != nil {
		return "", err
	}
	attempt.to(StateLinesResolved)

	// Defensive re-check: the combo was validated at creation time, but
	// catalog data may have changed since.
	if attempt.combo != nil {
		if err := ValidateCombo(attempt.comboLines); err != nil {
			return "", err
		}
	}

	total := saleTotal(attempt.combo, attempt.comboLines, attempt.individualLines)

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return "", &domain.PersistenceError{Cause: err}
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			c.log.Error("rollback failed", "attempt_id", attempt.id, "error", rbErr)
		}
	}()

	if err := c.ledger.Reserve(ctx, tx, attempt.saleLines); err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			return "", insufficient
		}
		return "", &domain.PersistenceError{Cause: err}
	}
	attempt.to(StateStockReserved)

	invoiceID, err := c.persistInvoice(ctx, tx, attempt, req, total)
	if err != nil {
		return "", err
	}
	attempt.to(StateInvoicePersisted)

	if err := tx.Commit(); err != nil {
		return "", &domain.PersistenceError{Cause: err}
	}
	committed = true
	attempt.to(StateCommitted)

	return invoiceID, nil
}

// resolveLines flattens combo lines and individually selected lines into one
// de-duplicated sale-line list, resolving every part from the catalog.
func (c *PurchaseCoordinator) resolveLines(ctx context.Context, attempt *purchaseAttempt, req PurchaseRequest) error {
	merged := make(map[int64]int)

	if req.ComboID != nil {
		combo, err := c.catalog.ResolveCombo(ctx, *req.ComboID)
		if err != nil {
			return err
		}
		attempt.combo = combo
		for _, line := range combo.Lines {
			part, err := c.catalog.ResolvePart(ctx, line.PartID)
			if err != nil {
				return err
			}
			attempt.comboLines = append(attempt.comboLines, domain.ResolvedLine{Part: *part, Quantity: line.Quantity})
			merged[line.PartID] += line.Quantity
		}
	}

	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("part %d: %w", line.PartID, domain.ErrInvalidQuantity)
		}
		part, err := c.catalog.ResolvePart(ctx, line.PartID)
		if err != nil {
			return err
		}
		attempt.individualLines = append(attempt.individualLines, domain.ResolvedLine{Part: *part, Quantity: line.Quantity})
		merged[line.PartID] += line.Quantity
	}

	if len(merged) == 0 {
		return domain.ErrEmptySale
	}

	lines := make([]domain.SaleLine, 0, len(merged))
	for partID, qty := range merged {
		lines = append(lines, domain.SaleLine{PartID: partID, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].PartID < lines[j].PartID })
	attempt.saleLines = lines

	return nil
}

// persistInvoice mints an id and inserts the invoice, regenerating the id on
// a duplicate-key collision up to the generator's retry bound.
func (c *PurchaseCoordinator) persistInvoice(
	ctx context.Context,
	tx port.PurchaseTx,
	attempt *purchaseAttempt,
	req PurchaseRequest,
	total decimal.Decimal,
) (string, error) {
	unitPrices := make(map[int64]decimal.Decimal, len(attempt.comboLines)+len(attempt.individualLines))
	for _, line := range attempt.comboLines {
		unitPrices[line.Part.ID] = line.Part.Price
	}
	for _, line := range attempt.individualLines {
		unitPrices[line.Part.ID] = line.Part.Price
	}

	invoiceLines := make([]domain.InvoiceLine, 0, len(attempt.saleLines))
	for _, line := range attempt.saleLines {
		invoiceLines = append(invoiceLines, domain.InvoiceLine{
			PartID:    line.PartID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrices[line.PartID],
		})
	}

	for tries := 0; tries < maxIDAttempts; tries++ {
		invoiceID, err := c.ids.Generate(ctx, tx.InvoiceExists)
		if err != nil {
			if errors.Is(err, domain.ErrIDGenerationExhausted) {
				return "", err
			}
			return "", &domain.PersistenceError{Cause: err}
		}

		inv := &domain.Invoice{
			ID:         invoiceID,
			CustomerID: req.CustomerID,
			ComboID:    req.ComboID,
			Total:      total,
			OrderDate:  time.Now(),
			Lines:      invoiceLines,
		}

		err = tx.InsertInvoice(ctx, inv)
		if err == nil {
			return invoiceID, nil
		}
		if errors.Is(err, domain.ErrDuplicateInvoiceID) {
			// Lost a race on the id despite the existence check; mint
			// a new one.
			c.log.Warn("invoice id collided on insert", "attempt_id", attempt.id, "invoice_id", invoiceID)
			continue
		}
		return "", &domain.PersistenceError{Cause: err}
	}

	return "", domain.ErrIDGenerationExhausted
}

// verifyConsistency re-reads the committed invoice and sanity-checks stock
// levels. Failures are warnings for manual follow-up.
func (c *PurchaseCoordinator) verifyConsistency(ctx context.Context, log *slog.Logger, invoiceID string, lines []domain.SaleLine) {
	exists, err := c.invoices.Exists(ctx, invoiceID)
	if err != nil {
		log.Warn("consistency check: invoice lookup failed", "invoice_id", invoiceID, "error", err)
	} else if !exists {
		log.Warn("consistency check: committed invoice not found", "invoice_id", invoiceID)
	}

	for _, line := range lines {
		qty, err := c.ledger.reader.Quantity(ctx, line.PartID)
		if err != nil {
			log.Warn("consistency check: stock read failed", "part_id", line.PartID, "error", err)
			continue
		}
		if qty < 0 {
			log.Warn("consistency check: negative stock level", "part_id", line.PartID, "quantity", qty)
		}
	}
}
