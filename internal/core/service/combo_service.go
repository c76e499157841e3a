package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/compustore/compustore/internal/core/domain"
	"github.com/compustore/compustore/internal/port"
)

var (
	ErrDiscountOutOfRange = errors.New("discount percent must be between 0 and 100")
	ErrComboEmpty         = errors.New("a combo must contain at least one part")
)

var hundred = decimal.NewFromInt(100)

// ComboService manages combo definitions. Every create and update runs the
// compatibility validator, so invalid combos never reach the catalog.
type ComboService struct {
	catalog port.Catalog
	combos  port.ComboRepository
}

func NewComboService(catalog port.Catalog, combos port.ComboRepository) *ComboService {
	return &ComboService{catalog: catalog, combos: combos}
}

// Validate resolves the proposed lines against the catalog and runs the
// compatibility rules. It is used both by combo creation and, defensively,
// inside the purchase flow.
func (s *ComboService) Validate(ctx context.Context, lines []domain.ComboLine) error {
	resolved, err := s.resolve(ctx, lines)
	if err != nil {
		return err
	}
	return ValidateCombo(resolved)
}

func (s *ComboService) Create(ctx context.Context, combo *domain.Combo) (int64, error) {
	if err := s.check(ctx, combo); err != nil {
		return 0, err
	}
	return s.combos.InsertCombo(ctx, combo)
}

func (s *ComboService) Update(ctx context.Context, combo *domain.Combo) error {
	if combo.ID <= 0 {
		return domain.ErrComboNotFound
	}
	if err := s.check(ctx, combo); err != nil {
		return err
	}
	return s.combos.UpdateCombo(ctx, combo)
}

func (s *ComboService) Delete(ctx context.Context, comboID int64) error {
	if comboID <= 0 {
		return domain.ErrComboNotFound
	}
	return s.combos.DeleteCombo(ctx, comboID)
}

func (s *ComboService) List(ctx context.Context) ([]domain.Combo, error) {
	return s.combos.ListCombos(ctx)
}

// CompatibleParts lists catalog parts of targetKind that are pairwise
// compatible with the selected part. Used to narrow choices while a combo
// is being assembled.
func (s *ComboService) CompatibleParts(ctx context.Context, partID int64, targetKind domain.Kind) ([]domain.Part, error) {
	selected, err := s.catalog.ResolvePart(ctx, partID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.catalog.PartsByKind(ctx, targetKind)
	if err != nil {
		return nil, err
	}

	compatible := make([]domain.Part, 0, len(candidates))
	for i := range candidates {
		if Compatible(selected, &candidates[i]) {
			compatible = append(compatible, candidates[i])
		}
	}
	return compatible, nil
}

func (s *ComboService) check(ctx context.Context, combo *domain.Combo) error {
	if combo.DiscountPercent.IsNegative() || combo.DiscountPercent.GreaterThan(hundred) {
		return ErrDiscountOutOfRange
	}
	if len(combo.Lines) == 0 {
		return ErrComboEmpty
	}
	return s.Validate(ctx, combo.Lines)
}

func (s *ComboService) resolve(ctx context.Context, lines []domain.ComboLine) ([]domain.ResolvedLine, error) {
	resolved := make([]domain.ResolvedLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("part %d: %w", line.PartID, domain.ErrInvalidQuantity)
		}
		part, err := s.catalog.ResolvePart(ctx, line.PartID)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, domain.ResolvedLine{Part: *part, Quantity: line.Quantity})
	}
	return resolved, nil
}
