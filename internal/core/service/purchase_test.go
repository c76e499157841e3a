package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compustore/compustore/internal/core/domain"
)

const (
	testCustomer = int64(42)
	testComboID  = int64(1)
)

// newTestEngine wires a coordinator over the in-memory fakes with a
// known-compatible combo: MB $180 + CPU $220 + RAM $45 + disk $55 at 10%
// discount, base total $500.00.
func newTestEngine(stock map[int64]int) (*PurchaseCoordinator, *fakeStore, *fakeCatalog) {
	catalog := newFakeCatalog()
	catalog.customers[testCustomer] = true
	catalog.parts[1] = testMotherboard(1, "180.00")
	catalog.parts[2] = testCPU(2, "220.00")
	catalog.parts[3] = testRAM(3, "45.00")
	catalog.parts[4] = testDisk(4, "55.00")
	catalog.parts[5] = testDisk(5, "80.00")
	catalog.combos[testComboID] = domain.Combo{
		ID: testComboID, Name: "AM4 build", DiscountPercent: money("10"),
		Lines: []domain.ComboLine{
			{PartID: 1, Quantity: 1},
			{PartID: 2, Quantity: 1},
			{PartID: 3, Quantity: 1},
			{PartID: 4, Quantity: 1},
		},
	}

	if stock == nil {
		stock = map[int64]int{1: 10, 2: 10, 3: 10, 4: 10, 5: 10}
	}
	store := newFakeStore(stock)

	coordinator := NewPurchaseCoordinator(
		store, catalog,
		NewStockLedger(store, nil, discardLogger()),
		store,
		NewInvoiceIDGenerator(),
		discardLogger(),
	)
	return coordinator, store, catalog
}

func comboPtr(id int64) *int64 { return &id }

func TestExecutePurchase_ComboHappyPath(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)

	invoiceID, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		ComboID:    comboPtr(testComboID),
	})
	require.NoError(t, err)
	assert.True(t, IsValidInvoiceID(invoiceID))

	// Each combo part decremented by its line quantity.
	assert.Equal(t, map[int64]int{1: 9, 2: 9, 3: 9, 4: 9, 5: 10}, store.stock)

	// Exactly one invoice, $500.00 base discounted 10% to $450.00.
	require.Len(t, store.invoices, 1)
	inv := store.invoices[invoiceID]
	assert.Equal(t, testCustomer, inv.CustomerID)
	require.NotNil(t, inv.ComboID)
	assert.Equal(t, testComboID, *inv.ComboID)
	assert.Equal(t, "450.00", inv.Total.StringFixed(2))
	assert.Len(t, inv.Lines, 4)
}

func TestExecutePurchase_MergesComboAndIndividualLines(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)

	invoiceID, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		ComboID:    comboPtr(testComboID),
		Lines: []domain.SaleLine{
			{PartID: 4, Quantity: 2}, // also in the combo: quantities sum
			{PartID: 5, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, store.stock[4], "combo 1 + individual 2")
	assert.Equal(t, 9, store.stock[5])

	inv := store.invoices[invoiceID]
	// 450.00 combo + 2*55.00 + 80.00 individual
	assert.Equal(t, "640.00", inv.Total.StringFixed(2))

	// The duplicated part appears once, with the merged quantity.
	counts := make(map[int64]int)
	for _, l := range inv.Lines {
		counts[l.PartID]++
		if l.PartID == 4 {
			assert.Equal(t, 3, l.Quantity)
		}
	}
	assert.Equal(t, 1, counts[4])
}

func TestExecutePurchase_IndividualOnly(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)

	invoiceID, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		Lines:      []domain.SaleLine{{PartID: 3, Quantity: 2}},
	})
	require.NoError(t, err)

	inv := store.invoices[invoiceID]
	assert.Nil(t, inv.ComboID)
	assert.Equal(t, "90.00", inv.Total.StringFixed(2))
	assert.Equal(t, 8, store.stock[3])
}

func TestExecutePurchase_EmptySale(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)

	_, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
	})
	assert.ErrorIs(t, err, domain.ErrEmptySale)
	assert.Zero(t, store.begins, "no transaction should have been opened")
}

func TestExecutePurchase_UnknownCustomer(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)

	_, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: 999,
		Lines:      []domain.SaleLine{{PartID: 3, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	assert.Zero(t, store.begins)
}

func TestExecutePurchase_InvalidQuantity(t *testing.T) {
	coordinator, _, _ := newTestEngine(nil)

	_, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		Lines:      []domain.SaleLine{{PartID: 3, Quantity: 0}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestExecutePurchase_IncompatibleComboRejectedBeforeReservation(t *testing.T) {
	coordinator, store, catalog := newTestEngine(nil)

	// Catalog changed since the combo was created: the CPU is now
	// LGA1700 while the motherboard stayed AM4. The defensive re-check
	// must catch it before any transaction is opened.
	cpu := catalog.parts[2]
	cpu.CPU = &domain.CPUSpec{Socket: "LGA1700", Cores: 8}
	catalog.parts[2] = cpu

	_, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		ComboID:    comboPtr(testComboID),
	})

	var incompatible *domain.IncompatibleComponentsError
	require.ErrorAs(t, err, &incompatible)
	assert.Contains(t, incompatible.Reason, "socket")

	assert.Zero(t, store.begins, "validation failure must precede the transaction")
	assert.Equal(t, 10, store.stock[1])
	assert.Empty(t, store.invoices)
}

func TestExecutePurchase_InsufficientStock(t *testing.T) {
	coordinator, store, _ := newTestEngine(map[int64]int{1: 10, 2: 10, 3: 10, 4: 10, 5: 2})

	_, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		Lines:      []domain.SaleLine{{PartID: 5, Quantity: 3}},
	})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5), insufficient.PartID)
	assert.Equal(t, 3, insufficient.Required)
	assert.Equal(t, 2, insufficient.Available)

	assert.Equal(t, 2, store.stock[5], "stock must be untouched")
	assert.Empty(t, store.invoices)
}

func TestExecutePurchase_PersistenceFailureRollsBackReservation(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)
	store.insertErr = errors.New("connection lost")

	_, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		ComboID:    comboPtr(testComboID),
	})

	var persistence *domain.PersistenceError
	require.ErrorAs(t, err, &persistence)

	// Atomicity: the reservation made before the insert failed must be
	// rolled back with it.
	assert.Equal(t, map[int64]int{1: 10, 2: 10, 3: 10, 4: 10, 5: 10}, store.stock)
	assert.Empty(t, store.invoices)
}

func TestExecutePurchase_RegeneratesIDOnInsertCollision(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)
	store.dupCollisions = 2

	invoiceID, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		Lines:      []domain.SaleLine{{PartID: 3, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, IsValidInvoiceID(invoiceID))
	assert.Len(t, store.invoices, 1)
	assert.Equal(t, 9, store.stock[3])
}

func TestExecutePurchase_IDCollisionExhaustionAborts(t *testing.T) {
	coordinator, store, _ := newTestEngine(nil)
	store.dupCollisions = 1000 // every insert collides

	_, err := coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
		CustomerID: testCustomer,
		Lines:      []domain.SaleLine{{PartID: 3, Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrIDGenerationExhausted)

	// The aborted attempt leaves no partial state behind.
	assert.Equal(t, 10, store.stock[3])
	assert.Empty(t, store.invoices)
}

func TestExecutePurchase_ConcurrentContentionOnLastUnit(t *testing.T) {
	coordinator, store, _ := newTestEngine(map[int64]int{1: 10, 2: 10, 3: 10, 4: 10, 5: 1})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
				CustomerID: testCustomer,
				Lines:      []domain.SaleLine{{PartID: 5, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	successes, shortfalls := 0, 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			shortfalls++
		}
	}

	assert.Equal(t, 1, successes, "exactly one purchase wins the last unit")
	assert.Equal(t, 1, shortfalls, "the loser sees the shortfall")
	assert.Equal(t, 0, store.stock[5])
	assert.Len(t, store.invoices, 1)
}

func TestExecutePurchase_NoOversellUnderLoad(t *testing.T) {
	const initial = 20
	const attempts = 50
	coordinator, store, _ := newTestEngine(map[int64]int{1: 10, 2: 10, 3: 10, 4: 10, 5: initial})

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = coordinator.ExecutePurchase(context.Background(), PurchaseRequest{
				CustomerID: testCustomer,
				Lines:      []domain.SaleLine{{PartID: 5, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		}
	}

	assert.Equal(t, initial, successes)
	assert.Equal(t, 0, store.stock[5])
	assert.GreaterOrEqual(t, store.stock[5], 0, "stock can never go negative")
	assert.Len(t, store.invoices, initial)
}
