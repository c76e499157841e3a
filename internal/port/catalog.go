package port

import (
	"context"

	"github.com/compustore/compustore/internal/core/domain"
)

// Catalog provides read access to parts, combos and customers. The purchase
// engine never mutates catalog data through this interface.
type Catalog interface {
	// ResolvePart returns the part with its kind-specific attributes, or
	// domain.ErrPartNotFound.
	ResolvePart(ctx context.Context, partID int64) (*domain.Part, error)

	// ResolveCombo returns the combo with its lines, or
	// domain.ErrComboNotFound.
	ResolveCombo(ctx context.Context, comboID int64) (*domain.Combo, error)

	// CustomerExists is an existence check only; the engine does not
	// validate customer business fields.
	CustomerExists(ctx context.Context, customerID int64) (bool, error)

	// PartsByKind lists catalog parts of one kind.
	PartsByKind(ctx context.Context, kind domain.Kind) ([]domain.Part, error)
}

// ComboRepository persists combo definitions. Validation happens in the
// combo service before any write reaches this interface.
type ComboRepository interface {
	InsertCombo(ctx context.Context, combo *domain.Combo) (int64, error)
	UpdateCombo(ctx context.Context, combo *domain.Combo) error
	DeleteCombo(ctx context.Context, comboID int64) error
	ListCombos(ctx context.Context) ([]domain.Combo, error)
}
