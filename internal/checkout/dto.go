package checkout

import (
	"time"

	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptDTO describes a persisted sale or stock transfer.
type ReceiptDTO struct {
	Kind                string           `json:"kind"`
	ID                  uuid.UUID        `json:"id"`
	SessionID           uuid.UUID        `json:"session_id"`
	BranchID            uuid.UUID        `json:"branch_id"`
	DestinationBranchID *uuid.UUID       `json:"destination_branch_id,omitempty"`
	Channel             string           `json:"channel,omitempty"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	DiscountPercent     decimal.Decimal  `json:"discount_percent"`
	Discount            decimal.Decimal  `json:"discount"`
	Total               decimal.Decimal  `json:"total"`
	Lines               []ReceiptLineDTO `json:"lines"`
	CreatedAt           time.Time        `json:"created_at"`
}

type ReceiptLineDTO struct {
	ProductID        uuid.UUID       `json:"product_id"`
	UnitID           uuid.UUID       `json:"unit_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineTotal        decimal.Decimal `json:"line_total"`
	AccountingUnitID uuid.UUID       `json:"accounting_unit_id"`
	StockQuantity    decimal.Decimal `json:"stock_quantity"`
}

func NewSaleReceipt(sale *models.Sale) *ReceiptDTO {
	dto := &ReceiptDTO{
		Kind:            enums.SessionKindSale.String(),
		ID:              sale.ID,
		SessionID:       sale.SessionID,
		BranchID:        sale.BranchID,
		Channel:         channelString(sale.Channel),
		Subtotal:        pricing.PresentCurrency(sale.Subtotal),
		DiscountPercent: pricing.PresentPercent(sale.DiscountPercent),
		Discount:        pricing.PresentCurrency(sale.Discount),
		Total:           pricing.PresentCurrency(sale.Total),
		Lines:           make([]ReceiptLineDTO, 0, len(sale.Lines)),
		CreatedAt:       sale.CreatedAt,
	}
	for _, l := range sale.Lines {
		dto.Lines = append(dto.Lines, ReceiptLineDTO{
			ProductID:        l.ProductID,
			UnitID:           l.UnitID,
			Quantity:         l.Quantity,
			UnitPrice:        pricing.PresentCurrency(l.UnitPrice),
			LineTotal:        pricing.PresentCurrency(l.LineTotal),
			AccountingUnitID: l.AccountingUnitID,
			StockQuantity:    l.StockQuantity,
		})
	}
	return dto
}

// NewTransferReceipt reports a transfer. Transfers carry no discount, so the
// subtotal equals the total.
func NewTransferReceipt(t *models.StockTransfer) *ReceiptDTO {
	dest := t.DestinationBranchID
	total := pricing.PresentCurrency(t.Total)
	dto := &ReceiptDTO{
		Kind:                enums.SessionKindTransfer.String(),
		ID:                  t.ID,
		SessionID:           t.SessionID,
		BranchID:            t.SourceBranchID,
		DestinationBranchID: &dest,
		Channel:             channelString(t.Channel),
		Subtotal:            total,
		DiscountPercent:     decimal.Zero,
		Discount:            decimal.Zero,
		Total:               total,
		Lines:               make([]ReceiptLineDTO, 0, len(t.Lines)),
		CreatedAt:           t.CreatedAt,
	}
	for _, l := range t.Lines {
		dto.Lines = append(dto.Lines, ReceiptLineDTO{
			ProductID:        l.ProductID,
			UnitID:           l.UnitID,
			Quantity:         l.Quantity,
			UnitPrice:        pricing.PresentCurrency(l.UnitPrice),
			LineTotal:        pricing.PresentCurrency(l.LineTotal),
			AccountingUnitID: l.AccountingUnitID,
			StockQuantity:    l.StockQuantity,
		})
	}
	return dto
}

// SaleListDTO is one page of a branch's sales history.
type SaleListDTO struct {
	Items  []ReceiptDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

func channelString(ch *enums.SellingChannel) string {
	if ch == nil {
		return ""
	}
	return ch.String()
}
