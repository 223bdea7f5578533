package checkout

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListSales pages through a branch's completed sales, newest first.
func (s *service) ListSales(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*SaleListDTO, error) {
	if branchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	sales, next, err := s.repo.ListSales(ctx, branchID, cursor, params.Limit)
	if err != nil {
		return nil, err
	}

	out := &SaleListDTO{Items: make([]ReceiptDTO, 0, len(sales))}
	for i := range sales {
		out.Items = append(out.Items, *NewSaleReceipt(&sales[i]))
	}
	if next != nil {
		out.Cursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

// GetSale returns one sale receipt. Sales of other branches are reported as
// not found.
func (s *service) GetSale(ctx context.Context, branchID, saleID uuid.UUID) (*ReceiptDTO, error) {
	sale, err := s.repo.FindSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.BranchID != branchID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("sale %s not found", saleID))
	}
	return NewSaleReceipt(sale), nil
}
