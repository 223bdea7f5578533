package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/branchpos-backend/internal/session"
	"github.com/angelmondragon/branchpos-backend/internal/stock"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/angelmondragon/branchpos-backend/pkg/metrics"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/branchpos-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service completes sale and transfer sessions.
type Service interface {
	Checkout(ctx context.Context, branchID, sessionID uuid.UUID) (*ReceiptDTO, error)
	ListSales(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*SaleListDTO, error)
	GetSale(ctx context.Context, branchID, saleID uuid.UUID) (*ReceiptDTO, error)
}

type ServiceParams struct {
	Tx       txRunner
	Repo     *Repository
	Registry *session.Registry
	Metrics  *metrics.PricingMetrics
	Logger   *logger.Logger
	// Outbox receives sale.completed and stock_transfer.completed in the
	// checkout transaction. Nil disables event emission.
	Outbox eventEmitter
}

type service struct {
	tx       txRunner
	repo     *Repository
	registry *session.Registry
	metrics  *metrics.PricingMetrics
	logg     *logger.Logger
	outbox   eventEmitter
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		registry: params.Registry,
		metrics:  params.Metrics,
		logg:     params.Logger,
		outbox:   params.Outbox,
	}, nil
}

// pricedLine is a session line resolved to ids and its accounting quantity.
type pricedLine struct {
	productID     uuid.UUID
	unitID        uuid.UUID
	quantity      decimal.Decimal
	unitPrice     decimal.Decimal
	lineTotal     decimal.Decimal
	taxPercent    decimal.Decimal
	accountingID  uuid.UUID
	stockQuantity decimal.Decimal
}

// Checkout holds the session for the whole transaction so the cart cannot
// change while it is persisted. The session only becomes checked_out after
// the commit.
func (s *service) Checkout(ctx context.Context, branchID, sessionID uuid.UUID) (*ReceiptDTO, error) {
	var receipt *ReceiptDTO
	err := s.registry.Do(sessionID, func(sess *session.Session) error {
		cfg := sess.Config()
		if cfg.BranchID != branchID {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("session %s not found", sessionID))
		}
		if err := sess.Ready(); err != nil {
			return err
		}

		lines, err := resolveLines(sess.Lines())
		if err != nil {
			return err
		}

		switch cfg.Kind {
		case enums.SessionKindSale:
			receipt, err = s.completeSale(ctx, sess, lines)
		case enums.SessionKindTransfer:
			receipt, err = s.completeTransfer(ctx, sess, lines)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid session kind %q", cfg.Kind))
		}
		if err != nil {
			return err
		}
		if err := sess.MarkCheckedOut(); err != nil {
			return err
		}
		s.metrics.IncOutcome(cfg.Kind.String(), session.OutcomeCheckedOut)
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"session_id": sessionID.String(), "error": err.Error()}), "checkout rejected")
		}
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"session_id": sessionID.String(),
			"kind":       receipt.Kind,
			"record_id":  receipt.ID.String(),
		}), "session checked out")
	}
	return receipt, nil
}

func (s *service) completeSale(ctx context.Context, sess *session.Session, lines []pricedLine) (*ReceiptDTO, error) {
	cfg := sess.Config()
	totals := sess.Totals()
	sale := &models.Sale{
		BranchID:        cfg.BranchID,
		SessionID:       sess.ID(),
		UserID:          cfg.UserID,
		PricingMode:     cfg.Mode,
		Channel:         channelPtr(sess.Channel()),
		Subtotal:        totals.Subtotal,
		DiscountPercent: totals.DiscountPercent,
		Discount:        totals.Discount,
		Total:           totals.Total,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.deduct(ctx, txRepo, cfg.Catalog, cfg.BranchID, lines); err != nil {
			return err
		}
		sale.Lines = make([]models.SaleLine, 0, len(lines))
		for i, l := range lines {
			sale.Lines = append(sale.Lines, models.SaleLine{
				Position:         i,
				ProductID:        l.productID,
				UnitID:           l.unitID,
				Quantity:         l.quantity,
				UnitPrice:        l.unitPrice,
				LineTotal:        l.lineTotal,
				TaxPercent:       l.taxPercent,
				AccountingUnitID: l.accountingID,
				StockQuantity:    l.stockQuantity,
			})
		}
		if err := txRepo.CreateSale(ctx, sale); err != nil {
			return err
		}
		return s.emit(ctx, tx, saleCompleted(sale))
	})
	if err != nil {
		return nil, wrapTx(err, "complete sale")
	}
	return NewSaleReceipt(sale), nil
}

func (s *service) completeTransfer(ctx context.Context, sess *session.Session, lines []pricedLine) (*ReceiptDTO, error) {
	cfg := sess.Config()
	transfer := &models.StockTransfer{
		StoreID:             cfg.StoreID,
		SourceBranchID:      cfg.BranchID,
		DestinationBranchID: cfg.DestinationBranchID,
		SessionID:           sess.ID(),
		UserID:              cfg.UserID,
		PricingMode:         cfg.Mode,
		Channel:             channelPtr(sess.Channel()),
		Total:               sess.Totals().Subtotal,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.deduct(ctx, txRepo, cfg.Catalog, cfg.BranchID, lines); err != nil {
			return err
		}
		if err := s.receive(ctx, txRepo, cfg.Catalog, cfg.DestinationBranchID, lines); err != nil {
			return err
		}
		transfer.Lines = make([]models.StockTransferLine, 0, len(lines))
		for i, l := range lines {
			transfer.Lines = append(transfer.Lines, models.StockTransferLine{
				Position:         i,
				ProductID:        l.productID,
				UnitID:           l.unitID,
				Quantity:         l.quantity,
				UnitPrice:        l.unitPrice,
				LineTotal:        l.lineTotal,
				AccountingUnitID: l.accountingID,
				StockQuantity:    l.stockQuantity,
			})
		}
		if err := txRepo.CreateTransfer(ctx, transfer); err != nil {
			return err
		}
		return s.emit(ctx, tx, transferCompleted(transfer))
	})
	if err != nil {
		return nil, wrapTx(err, "complete transfer")
	}
	return NewTransferReceipt(transfer), nil
}

// deduct converts every line into the source record's accounting unit and
// takes the per-product sum off the branch stock. It fills in the
// accounting fields of lines.
func (s *service) deduct(ctx context.Context, txRepo *Repository, catalog units.Resolver, branchID uuid.UUID, lines []pricedLine) error {
	records, err := txRepo.StockRecords(ctx, branchID, productIDs(lines))
	if err != nil {
		return err
	}

	totals := map[uuid.UUID]decimal.Decimal{}
	var order []uuid.UUID
	for i := range lines {
		l := &lines[i]
		rec, ok := records[l.productID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("no stock recorded for product %s", l.productID)).
				WithDetails(map[string]any{"product_id": l.productID.String(), "branch_id": branchID.String()})
		}
		qty, err := stock.ToAccounting(catalog, l.quantity, l.unitID.String(), rec.AccountingUnitID.String())
		if err != nil {
			s.observe(err)
			return err
		}
		l.accountingID = rec.AccountingUnitID
		l.stockQuantity = qty
		if _, seen := totals[l.productID]; !seen {
			order = append(order, l.productID)
		}
		totals[l.productID] = totals[l.productID].Add(qty)
	}

	for _, productID := range order {
		if err := txRepo.DeductStock(ctx, productID, branchID, totals[productID]); err != nil {
			return err
		}
	}
	return nil
}

// receive credits the destination branch, converting into its own accounting
// unit when it already keeps a record.
func (s *service) receive(ctx context.Context, txRepo *Repository, catalog units.Resolver, branchID uuid.UUID, lines []pricedLine) error {
	records, err := txRepo.StockRecords(ctx, branchID, productIDs(lines))
	if err != nil {
		return err
	}
	for _, l := range lines {
		unitID := l.accountingID
		qty := l.stockQuantity
		if rec, ok := records[l.productID]; ok && rec.AccountingUnitID != l.accountingID {
			unitID = rec.AccountingUnitID
			if qty, err = units.ConvertQuantityByID(catalog, l.stockQuantity, l.accountingID.String(), unitID.String()); err != nil {
				s.observe(err)
				return err
			}
		}
		if err := txRepo.AddStock(ctx, l.productID, branchID, unitID, qty); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.outbox == nil {
		return nil
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue checkout event")
	}
	return nil
}

func saleCompleted(sale *models.Sale) outbox.DomainEvent {
	data := payloads.SaleCompletedEvent{
		SaleID:          sale.ID,
		SessionID:       sale.SessionID,
		BranchID:        sale.BranchID,
		Channel:         channelString(sale.Channel),
		Subtotal:        sale.Subtotal,
		DiscountPercent: sale.DiscountPercent,
		Total:           sale.Total,
		Lines:           make([]payloads.StockMovement, 0, len(sale.Lines)),
	}
	for _, l := range sale.Lines {
		data.Lines = append(data.Lines, payloads.StockMovement{
			ProductID:        l.ProductID,
			UnitID:           l.UnitID,
			Quantity:         l.Quantity,
			AccountingUnitID: l.AccountingUnitID,
			StockQuantity:    l.StockQuantity,
			LineTotal:        l.LineTotal,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   sale.ID,
		Actor:         &outbox.ActorRef{UserID: sale.UserID, BranchID: sale.BranchID},
		Data:          data,
	}
}

func transferCompleted(t *models.StockTransfer) outbox.DomainEvent {
	data := payloads.StockTransferCompletedEvent{
		TransferID:          t.ID,
		SessionID:           t.SessionID,
		StoreID:             t.StoreID,
		SourceBranchID:      t.SourceBranchID,
		DestinationBranchID: t.DestinationBranchID,
		Total:               t.Total,
		Lines:               make([]payloads.StockMovement, 0, len(t.Lines)),
	}
	for _, l := range t.Lines {
		data.Lines = append(data.Lines, payloads.StockMovement{
			ProductID:        l.ProductID,
			UnitID:           l.UnitID,
			Quantity:         l.Quantity,
			AccountingUnitID: l.AccountingUnitID,
			StockQuantity:    l.StockQuantity,
			LineTotal:        l.LineTotal,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventStockTransferCompleted,
		AggregateType: enums.AggregateStockTransfer,
		AggregateID:   t.ID,
		Actor:         &outbox.ActorRef{UserID: t.UserID, BranchID: t.SourceBranchID},
		Data:          data,
	}
}

func (s *service) observe(err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code().IsPricing() {
		s.metrics.IncError(strings.ToLower(string(typed.Code())))
	}
}

func resolveLines(views []session.LineView) ([]pricedLine, error) {
	out := make([]pricedLine, 0, len(views))
	for _, v := range views {
		if v.Price == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("line %s is not priced", v.ID))
		}
		productID, err := uuid.Parse(v.ProductID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %s has an invalid product id", v.ID))
		}
		unitID, err := uuid.Parse(v.UnitID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %s has an invalid unit id", v.ID))
		}
		out = append(out, pricedLine{
			productID:  productID,
			unitID:     unitID,
			quantity:   v.Quantity,
			unitPrice:  v.Price.UnitPrice,
			lineTotal:  v.Price.LineTotal,
			taxPercent: v.Price.TaxPercent,
		})
	}
	return out, nil
}

func productIDs(lines []pricedLine) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, l := range lines {
		if !seen[l.productID] {
			seen[l.productID] = true
			out = append(out, l.productID)
		}
	}
	return out
}

func channelPtr(ch enums.SellingChannel) *enums.SellingChannel {
	if ch == "" {
		return nil
	}
	return &ch
}

func wrapTx(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
