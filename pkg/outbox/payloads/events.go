package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovement is the stock a completed session took from or added to a
// branch, in that branch's accounting unit.
type StockMovement struct {
	ProductID        uuid.UUID       `json:"product_id"`
	UnitID           uuid.UUID       `json:"unit_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	AccountingUnitID uuid.UUID       `json:"accounting_unit_id"`
	StockQuantity    decimal.Decimal `json:"stock_quantity"`
	LineTotal        decimal.Decimal `json:"line_total"`
}

// SaleCompletedEvent is emitted when a sale session is checked out.
type SaleCompletedEvent struct {
	SaleID          uuid.UUID       `json:"sale_id"`
	SessionID       uuid.UUID       `json:"session_id"`
	BranchID        uuid.UUID       `json:"branch_id"`
	Channel         string          `json:"channel,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Total           decimal.Decimal `json:"total"`
	Lines           []StockMovement `json:"lines"`
}

// StockTransferCompletedEvent is emitted when stock moves between branches.
type StockTransferCompletedEvent struct {
	TransferID          uuid.UUID       `json:"transfer_id"`
	SessionID           uuid.UUID       `json:"session_id"`
	StoreID             uuid.UUID       `json:"store_id"`
	SourceBranchID      uuid.UUID       `json:"source_branch_id"`
	DestinationBranchID uuid.UUID       `json:"destination_branch_id"`
	Total               decimal.Decimal `json:"total"`
	Lines               []StockMovement `json:"lines"`
}
