package session

import (
	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionDTO is the session payload returned to clients. Money is rounded for
// display only.
type SessionDTO struct {
	ID                  uuid.UUID  `json:"id"`
	Kind                string     `json:"kind"`
	Status              string     `json:"status"`
	StoreID             uuid.UUID  `json:"store_id"`
	BranchID            uuid.UUID  `json:"branch_id"`
	DestinationBranchID *uuid.UUID `json:"destination_branch_id,omitempty"`
	PricingMode         string     `json:"pricing_mode"`
	Channel             string     `json:"channel,omitempty"`
	Lines               []LineDTO  `json:"lines"`
	Totals              TotalsDTO  `json:"totals"`
	Ready               bool       `json:"ready"`
}

type LineDTO struct {
	ID          string           `json:"id"`
	ProductID   string           `json:"product_id"`
	ProductName string           `json:"product_name"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitID      string           `json:"unit_id"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal   *decimal.Decimal `json:"line_total,omitempty"`
	TaxPercent  *decimal.Decimal `json:"tax_percent,omitempty"`
	Error       *LineErrorDTO    `json:"error,omitempty"`
}

// LineErrorDTO tells the cashier which line cannot be priced and why.
type LineErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TotalsDTO struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	PricedLines     int             `json:"priced_lines"`
	UnpricedLines   int             `json:"unpriced_lines"`
}

// NewSessionDTO snapshots s. Callers must hold the session's registry slot.
func NewSessionDTO(s *Session) *SessionDTO {
	cfg := s.Config()
	totals := s.Totals()
	dto := &SessionDTO{
		ID:          s.ID(),
		Kind:        cfg.Kind.String(),
		Status:      s.Status().String(),
		StoreID:     cfg.StoreID,
		BranchID:    cfg.BranchID,
		PricingMode: cfg.Mode.String(),
		Channel:     s.Channel().String(),
		Totals: TotalsDTO{
			Subtotal:        pricing.PresentCurrency(totals.Subtotal),
			DiscountPercent: pricing.PresentPercent(totals.DiscountPercent),
			Discount:        pricing.PresentCurrency(totals.Discount),
			Total:           pricing.PresentCurrency(totals.Total),
			PricedLines:     totals.PricedLines,
			UnpricedLines:   totals.UnpricedLines,
		},
		Ready: s.Ready() == nil,
	}
	if cfg.DestinationBranchID != uuid.Nil {
		dest := cfg.DestinationBranchID
		dto.DestinationBranchID = &dest
	}

	views := s.Lines()
	dto.Lines = make([]LineDTO, 0, len(views))
	for _, v := range views {
		line := LineDTO{
			ID:          v.ID,
			ProductID:   v.ProductID,
			ProductName: v.ProductName,
			Quantity:    v.Quantity,
			UnitID:      v.UnitID,
		}
		if v.Price != nil {
			unitPrice := pricing.PresentCurrency(v.Price.UnitPrice)
			lineTotal := pricing.PresentCurrency(v.Price.LineTotal)
			tax := pricing.PresentPercent(v.Price.TaxPercent)
			line.UnitPrice, line.LineTotal, line.TaxPercent = &unitPrice, &lineTotal, &tax
		}
		if v.Err != nil {
			line.Error = &LineErrorDTO{Code: string(pkgerrors.CodeInternal), Message: v.Err.Error()}
			if typed := pkgerrors.As(v.Err); typed != nil {
				line.Error.Code = string(typed.Code())
				line.Error.Message = typed.Message()
			}
		}
		dto.Lines = append(dto.Lines, line)
	}
	return dto
}
