package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/internal/session"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/db"
	"github.com/angelmondragon/branchpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/metrics"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	conn     *gorm.DB
	svc      Service
	repo     *Repository
	events   *outbox.Repository
	registry *session.Registry
	reg      *prometheus.Registry
	catalog  *units.Catalog
	store    uuid.UUID
	branch   uuid.UUID
	dest     uuid.UUID
	piece    uuid.UUID
	dozen    uuid.UUID
	soap     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	piece, dozen := uuid.New(), uuid.New()
	f := &fixture{
		conn:     conn,
		repo:     NewRepository(conn),
		events:   outbox.NewRepository(conn),
		registry: session.NewRegistry(session.RegistryOptions{}),
		reg:      prometheus.NewRegistry(),
		catalog: units.MustCatalog(
			units.Unit{ID: piece.String(), Name: "Piece", BaseQuantity: decimal.NewFromInt(1)},
			units.Unit{ID: dozen.String(), Name: "Dozen", BaseQuantity: decimal.NewFromInt(12)},
		),
		store:  uuid.New(),
		branch: uuid.New(),
		dest:   uuid.New(),
		piece:  piece,
		dozen:  dozen,
		soap:   uuid.New(),
	}
	svc, err := NewService(ServiceParams{
		Tx:       db.NewFromConn(conn),
		Repo:     f.repo,
		Registry: f.registry,
		Metrics:  metrics.NewPricingMetrics(f.reg),
		Outbox:   outbox.NewService(f.events, nil),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// product sells soap at 10 per piece on the retail channel.
func (f *fixture) product() pricing.Product {
	return pricing.Product{
		ID:          f.soap.String(),
		Name:        "Soap",
		SoldUnitIDs: []string{f.piece.String(), f.dozen.String()},
		Channels: map[enums.SellingChannel]pricing.PriceChannel{
			enums.SellingChannelRetail: {
				Channel:      enums.SellingChannelRetail,
				UnitID:       f.piece.String(),
				SellingPrice: decimal.NewFromInt(10),
				UnitQuantity: decimal.NewFromInt(1),
			},
		},
	}
}

func (f *fixture) open(t *testing.T, kind enums.SessionKind) *session.Session {
	t.Helper()
	cfg := session.Config{
		Kind:            kind,
		StoreID:         f.store,
		BranchID:        f.branch,
		Mode:            enums.PricingModeAutomatic,
		EnabledChannels: []enums.SellingChannel{enums.SellingChannelRetail},
		Channel:         enums.SellingChannelRetail,
		Catalog:         f.catalog,
	}
	if kind == enums.SessionKindTransfer {
		cfg.DestinationBranchID = f.dest
	}
	sess, err := session.New(uuid.New(), cfg)
	require.NoError(t, err)
	require.NoError(t, f.registry.Add(sess))
	return sess
}

func (f *fixture) addLine(t *testing.T, sess *session.Session, qty int64, unit uuid.UUID) {
	t.Helper()
	require.NoError(t, f.registry.Do(sess.ID(), func(s *session.Session) error {
		_, err := s.AddLine(f.product(), decimal.NewFromInt(qty), unit.String())
		return err
	}))
}

func (f *fixture) seedStock(t *testing.T, branch, unit uuid.UUID, qty string) {
	t.Helper()
	require.NoError(t, f.conn.Create(&models.StockRecord{
		ProductID:        f.soap,
		BranchID:         branch,
		AccountingUnitID: unit,
		Quantity:         decimal.RequireFromString(qty),
	}).Error)
}

func (f *fixture) stock(t *testing.T, branch uuid.UUID) models.StockRecord {
	t.Helper()
	var rec models.StockRecord
	require.NoError(t, f.conn.First(&rec, "product_id = ? AND branch_id = ?", f.soap, branch).Error)
	return rec
}

func (f *fixture) status(t *testing.T, id uuid.UUID) enums.SessionStatus {
	t.Helper()
	var status enums.SessionStatus
	require.NoError(t, f.registry.Do(id, func(s *session.Session) error {
		status = s.Status()
		return nil
	}))
	return status
}

func outcomes(t *testing.T, reg *prometheus.Registry, kind, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "branchpos_session_outcomes_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["kind"] == kind && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestCheckoutSaleDeductsConvertedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.branch, f.dozen, "5")

	sess := f.open(t, enums.SessionKindSale)
	f.addLine(t, sess, 1, f.dozen)
	f.addLine(t, sess, 6, f.piece)
	require.NoError(t, f.registry.Do(sess.ID(), func(s *session.Session) error {
		return s.SetDiscountPercent(decimal.NewFromInt(10))
	}))

	receipt, err := f.svc.Checkout(ctx, f.branch, sess.ID())
	require.NoError(t, err)

	assert.Equal(t, "sale", receipt.Kind)
	assert.Equal(t, "retail", receipt.Channel)
	assert.True(t, receipt.Subtotal.Equal(decimal.NewFromInt(180)), "got %s", receipt.Subtotal)
	assert.True(t, receipt.Discount.Equal(decimal.NewFromInt(18)))
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(162)))
	require.Len(t, receipt.Lines, 2)
	assert.Equal(t, f.dozen, receipt.Lines[1].AccountingUnitID)
	assert.True(t, receipt.Lines[1].StockQuantity.Equal(decimal.RequireFromString("0.5")))

	rec := f.stock(t, f.branch)
	assert.True(t, rec.Quantity.Equal(decimal.RequireFromString("3.5")), "got %s", rec.Quantity)
	assert.Equal(t, enums.SessionStatusCheckedOut, f.status(t, sess.ID()))
	assert.Equal(t, 1.0, outcomes(t, f.reg, "sale", "checked_out"))

	sale, err := f.repo.FindSale(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), sale.SessionID)
	require.Len(t, sale.Lines, 2)
	assert.Equal(t, f.piece, sale.Lines[1].UnitID)

	events, err := f.events.FindByAggregate(enums.AggregateSale, receipt.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventSaleCompleted, events[0].EventType)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal([]byte(events[0].Payload), &envelope))
	var payload payloads.SaleCompletedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, receipt.ID, payload.SaleID)
	assert.True(t, payload.Total.Equal(decimal.NewFromInt(162)))
	require.Len(t, payload.Lines, 2)
	assert.True(t, payload.Lines[1].StockQuantity.Equal(decimal.RequireFromString("0.5")))

	_, err = f.svc.Checkout(ctx, f.branch, sess.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestCheckoutRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.branch, f.dozen, "1")

	sess := f.open(t, enums.SessionKindSale)
	f.addLine(t, sess, 1, f.dozen)
	f.addLine(t, sess, 1, f.piece)

	_, err := f.svc.Checkout(context.Background(), f.branch, sess.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)

	assert.Equal(t, enums.SessionStatusPopulated, f.status(t, sess.ID()))
	assert.True(t, f.stock(t, f.branch).Quantity.Equal(decimal.NewFromInt(1)))

	var sales, events int64
	require.NoError(t, f.conn.Model(&models.Sale{}).Count(&sales).Error)
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.Zero(t, sales)
	assert.Zero(t, events)
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func TestCheckoutRollsBackWhenEventCannotBeQueued(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.branch, f.dozen, "5")
	svc, err := NewService(ServiceParams{
		Tx:       db.NewFromConn(f.conn),
		Repo:     f.repo,
		Registry: f.registry,
		Outbox:   failingEmitter{},
	})
	require.NoError(t, err)

	sess := f.open(t, enums.SessionKindSale)
	f.addLine(t, sess, 1, f.dozen)

	_, err = svc.Checkout(context.Background(), f.branch, sess.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency), "got %v", err)
	assert.True(t, f.stock(t, f.branch).Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, enums.SessionStatusPopulated, f.status(t, sess.ID()))
}

func TestCheckoutRequiresStockRecord(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t, enums.SessionKindSale)
	f.addLine(t, sess, 2, f.piece)

	_, err := f.svc.Checkout(context.Background(), f.branch, sess.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestCheckoutRequiresReadySession(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.branch, f.dozen, "5")
	ctx := context.Background()

	empty := f.open(t, enums.SessionKindSale)
	_, err := f.svc.Checkout(ctx, f.branch, empty.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	unpriced := f.open(t, enums.SessionKindSale)
	require.NoError(t, f.registry.Do(unpriced.ID(), func(s *session.Session) error {
		p := f.product()
		p.Channels = nil
		_, err := s.AddLine(p, decimal.NewFromInt(1), f.piece.String())
		return err
	}))
	_, err = f.svc.Checkout(ctx, f.branch, unpriced.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	assert.True(t, f.stock(t, f.branch).Quantity.Equal(decimal.NewFromInt(5)))
}

func TestCheckoutScopesToBranch(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.branch, f.dozen, "5")
	sess := f.open(t, enums.SessionKindSale)
	f.addLine(t, sess, 1, f.piece)

	_, err := f.svc.Checkout(context.Background(), uuid.New(), sess.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = f.svc.Checkout(context.Background(), f.branch, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCheckoutTransferCreatesDestinationRecord(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.branch, f.dozen, "5")

	sess := f.open(t, enums.SessionKindTransfer)
	f.addLine(t, sess, 2, f.dozen)

	receipt, err := f.svc.Checkout(context.Background(), f.branch, sess.ID())
	require.NoError(t, err)

	assert.Equal(t, "transfer", receipt.Kind)
	require.NotNil(t, receipt.DestinationBranchID)
	assert.Equal(t, f.dest, *receipt.DestinationBranchID)
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(240)), "got %s", receipt.Total)

	assert.True(t, f.stock(t, f.branch).Quantity.Equal(decimal.NewFromInt(3)))
	dest := f.stock(t, f.dest)
	assert.Equal(t, f.dozen, dest.AccountingUnitID)
	assert.True(t, dest.Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1.0, outcomes(t, f.reg, "transfer", "checked_out"))

	transfer, err := f.repo.FindTransfer(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, f.branch, transfer.SourceBranchID)
	assert.Len(t, transfer.Lines, 1)

	events, err := f.events.FindByAggregate(enums.AggregateStockTransfer, receipt.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventStockTransferCompleted, events[0].EventType)
}

func TestCheckoutTransferConvertsIntoDestinationUnit(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.branch, f.dozen, "5")
	f.seedStock(t, f.dest, f.piece, "10")

	sess := f.open(t, enums.SessionKindTransfer)
	f.addLine(t, sess, 1, f.dozen)

	_, err := f.svc.Checkout(context.Background(), f.branch, sess.ID())
	require.NoError(t, err)

	dest := f.stock(t, f.dest)
	assert.Equal(t, f.piece, dest.AccountingUnitID)
	assert.True(t, dest.Quantity.Equal(decimal.NewFromInt(22)), "got %s", dest.Quantity)
}

func TestRepositoryDeductStockGuardsQuantity(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.branch, f.piece, "4")
	ctx := context.Background()

	require.NoError(t, f.repo.DeductStock(ctx, f.soap, f.branch, decimal.NewFromInt(4)))
	assert.True(t, f.stock(t, f.branch).Quantity.IsZero())

	err := f.repo.DeductStock(ctx, f.soap, f.branch, decimal.NewFromInt(1))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)

	records, err := f.repo.StockRecords(ctx, f.branch, []uuid.UUID{f.soap, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
