package service

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/compustore/compustore/internal/core/domain"
)

const (
	invoiceIDPrefix   = "INV"
	maxIDAttempts     = 10
	randomSuffixMin   = 100
	randomSuffixBound = 1000
)

var invoiceIDPattern = regexp.MustCompile(`^INV-\d{8}-\d{6}-\d{3}$`)

// IsValidInvoiceID reports whether s matches the INV-yyyyMMdd-HHmmss-RRR
// format produced by the generator.
func IsValidInvoiceID(s string) bool {
	return invoiceIDPattern.MatchString(s)
}

// ExistsFunc answers whether a candidate invoice id is already persisted.
type ExistsFunc func(ctx context.Context, invoiceID string) (bool, error)

// InvoiceIDGenerator mints human-readable invoice ids that are unique
// against persisted invoices. Clock and randomness are injected so tests
// can force collisions deterministically.
type InvoiceIDGenerator struct {
	now     func() time.Time
	randInt func(n int) int
}

func NewInvoiceIDGenerator() *InvoiceIDGenerator {
	return &InvoiceIDGenerator{now: time.Now, randInt: rand.Intn}
}

// NewInvoiceIDGeneratorWith builds a generator with an injected clock and
// randomness source, for tests.
func NewInvoiceIDGeneratorWith(now func() time.Time, randInt func(n int) int) *InvoiceIDGenerator {
	return &InvoiceIDGenerator{now: now, randInt: randInt}
}

// Generate produces a fresh invoice id, checking each candidate against
// exists. It gives up after a fixed number of attempts and returns
// domain.ErrIDGenerationExhausted; with a 900-value random suffix per
// second that is vanishingly rare, but it must surface, not hang.
func (g *InvoiceIDGenerator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := g.candidate()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check invoice id %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", domain.ErrIDGenerationExhausted
}

func (g *InvoiceIDGenerator) candidate() string {
	now := g.now()
	suffix := randomSuffixMin + g.randInt(randomSuffixBound-randomSuffixMin)
	return fmt.Sprintf("%s-%s-%s-%03d",
		invoiceIDPrefix, now.Format("20060102"), now.Format("150405"), suffix)
}
