package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/compustore/compustore/internal/core/domain"
	"github.com/compustore/compustore/internal/port"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory purchase store with real per-row mutexes, so
// concurrent transactions contend the way they would on database row locks.
type fakeStore struct {
	mu       sync.Mutex
	stock    map[int64]int
	rowLocks map[int64]*sync.Mutex
	invoices map[string]domain.Invoice
	reserved map[string]bool // ids claimed by in-flight transactions
	begins   int

	insertErr     error // injected InsertInvoice failure
	dupCollisions int   // next N inserts report a duplicate invoice id
}

func newFakeStore(stock map[int64]int) *fakeStore {
	s := &fakeStore{
		stock:    make(map[int64]int),
		rowLocks: make(map[int64]*sync.Mutex),
		invoices: make(map[string]domain.Invoice),
		reserved: make(map[string]bool),
	}
	for id, qty := range stock {
		s.stock[id] = qty
	}
	return s
}

func (s *fakeStore) Begin(ctx context.Context) (port.PurchaseTx, error) {
	s.mu.Lock()
	s.begins++
	s.mu.Unlock()
	return &fakeTx{store: s, deducts: make(map[int64]int)}, nil
}

func (s *fakeStore) rowLock(partID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rowLocks[partID]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[partID] = m
	}
	return m
}

// StockReader

func (s *fakeStore) Quantity(ctx context.Context, partID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.stock[partID]
	if !ok {
		return 0, domain.ErrPartNotFound
	}
	return qty, nil
}

func (s *fakeStore) AllLevels(ctx context.Context) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	levels := make(map[int64]int, len(s.stock))
	for id, qty := range s.stock {
		levels[id] = qty
	}
	return levels, nil
}

func (s *fakeStore) LowStock(ctx context.Context, threshold int) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	levels := make(map[int64]int)
	for id, qty := range s.stock {
		if qty <= threshold {
			levels[id] = qty
		}
	}
	return levels, nil
}

// InvoiceReader

func (s *fakeStore) Exists(ctx context.Context, invoiceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.invoices[invoiceID]
	return ok, nil
}

func (s *fakeStore) GetAll(ctx context.Context) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, inv)
	}
	return out, nil
}

type fakeTx struct {
	store     *fakeStore
	lockOrder []int64
	held      []int64
	deducts   map[int64]int
	pending   *domain.Invoice
	done      bool
}

func (t *fakeTx) LockQuantity(ctx context.Context, partID int64) (int, error) {
	t.store.mu.Lock()
	_, ok := t.store.stock[partID]
	t.store.mu.Unlock()
	if !ok {
		return 0, domain.ErrPartNotFound
	}

	t.store.rowLock(partID).Lock()
	t.held = append(t.held, partID)
	t.lockOrder = append(t.lockOrder, partID)

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.stock[partID], nil
}

func (t *fakeTx) DeductStock(ctx context.Context, partID int64, quantity int) error {
	t.deducts[partID] += quantity
	return nil
}

func (t *fakeTx) InvoiceExists(ctx context.Context, invoiceID string) (bool, error) {
	return t.store.Exists(ctx, invoiceID)
}

func (t *fakeTx) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	if t.store.dupCollisions > 0 {
		t.store.dupCollisions--
		return domain.ErrDuplicateInvoiceID
	}
	// Unique constraint: an id claimed by a committed invoice or an
	// in-flight transaction collides.
	if t.store.reserved[inv.ID] {
		return domain.ErrDuplicateInvoiceID
	}
	if _, ok := t.store.invoices[inv.ID]; ok {
		return domain.ErrDuplicateInvoiceID
	}
	t.store.reserved[inv.ID] = true
	cp := *inv
	t.pending = &cp
	return nil
}

func (t *fakeTx) Commit() error {
	t.store.mu.Lock()
	for partID, qty := range t.deducts {
		t.store.stock[partID] -= qty
	}
	if t.pending != nil {
		t.store.invoices[t.pending.ID] = *t.pending
		delete(t.store.reserved, t.pending.ID)
	}
	t.store.mu.Unlock()

	t.release()
	t.done = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	if t.pending != nil {
		t.store.mu.Lock()
		delete(t.store.reserved, t.pending.ID)
		t.store.mu.Unlock()
	}
	t.release()
	t.done = true
	return nil
}

func (t *fakeTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.store.rowLock(t.held[i]).Unlock()
	}
	t.held = nil
}

type fakeCatalog struct {
	parts     map[int64]domain.Part
	combos    map[int64]domain.Combo
	customers map[int64]bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		parts:     make(map[int64]domain.Part),
		combos:    make(map[int64]domain.Combo),
		customers: make(map[int64]bool),
	}
}

func (c *fakeCatalog) ResolvePart(ctx context.Context, partID int64) (*domain.Part, error) {
	p, ok := c.parts[partID]
	if !ok {
		return nil, domain.ErrPartNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) ResolveCombo(ctx context.Context, comboID int64) (*domain.Combo, error) {
	combo, ok := c.combos[comboID]
	if !ok {
		return nil, domain.ErrComboNotFound
	}
	return &combo, nil
}

func (c *fakeCatalog) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	return c.customers[customerID], nil
}

func (c *fakeCatalog) PartsByKind(ctx context.Context, kind domain.Kind) ([]domain.Part, error) {
	var parts []domain.Part
	for _, p := range c.parts {
		if p.Kind == kind {
			parts = append(parts, p)
		}
	}
	return parts, nil
}

// Part builders for a known-compatible AM4/DDR4/SATA test catalog.

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testMotherboard(id int64, price string) domain.Part {
	return domain.Part{
		ID: id, SerialNumber: "MB-" + price, Kind: domain.KindMotherboard,
		Price: money(price), Quantity: 10, Brand: "ASUS", Model: "Prime",
		Motherboard: &domain.MotherboardSpec{Socket: "AM4", RAMType: "DDR4", DiskInterfaces: "SATA,NVMe"},
	}
}

func testCPU(id int64, price string) domain.Part {
	return domain.Part{
		ID: id, SerialNumber: "CPU-" + price, Kind: domain.KindCPU,
		Price: money(price), Quantity: 10, Brand: "AMD", Model: "Ryzen",
		CPU: &domain.CPUSpec{Socket: "AM4", Cores: 6},
	}
}

func testRAM(id int64, price string) domain.Part {
	return domain.Part{
		ID: id, SerialNumber: "RAM-" + price, Kind: domain.KindRAM,
		Price: money(price), Quantity: 10, Brand: "Kingston", Model: "Fury",
		RAM: &domain.RAMSpec{MemoryType: "DDR4", CapacityGB: 16},
	}
}

func testDisk(id int64, price string) domain.Part {
	return domain.Part{
		ID: id, SerialNumber: "DSK-" + price, Kind: domain.KindDisk,
		Price: money(price), Quantity: 10, Brand: "WD", Model: "Blue",
		Disk: &domain.DiskSpec{Interface: "SATA", CapacityGB: 1000},
	}
}
