package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/branchpos-backend/internal/branches"
	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/angelmondragon/branchpos-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes product pricing operations scoped to the caller's branch.
type Service interface {
	Preview(ctx context.Context, branchID uuid.UUID, input PricingInput) (*PricingDTO, error)
	Create(ctx context.Context, branchID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, branchID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, branchID, productID uuid.UUID) (*ProductDTO, error)
	// PricingSnapshot rebuilds the product's price sources from the stored
	// inputs for use by checkout sessions.
	PricingSnapshot(ctx context.Context, storeID, productID uuid.UUID) (pricing.Product, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU      string
	Name     string
	IsActive bool
	Pricing  PricingInput
}

// UpdateProductInput holds optional mutation values for a product. A nil
// Pricing leaves every price source untouched.
type UpdateProductInput struct {
	SKU      *string
	Name     *string
	IsActive *bool
	Pricing  *PricingInput
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type branchLoader interface {
	Branch(ctx context.Context, id uuid.UUID) (*branches.Branch, error)
	Catalog(ctx context.Context, storeID uuid.UUID) (*units.Catalog, error)
}

type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Branches branchLoader
	Metrics  *metrics.PricingMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	tx       txRunner
	branches branchLoader
	metrics  *metrics.PricingMetrics
	logg     *logger.Logger
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Branches == nil {
		return nil, fmt.Errorf("branch service required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		branches: params.Branches,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) Preview(ctx context.Context, branchID uuid.UUID, input PricingInput) (*PricingDTO, error) {
	branch, catalog, err := s.scope(ctx, branchID)
	if err != nil {
		return nil, err
	}
	derived, err := s.derive(catalog, branch, input)
	if err != nil {
		return nil, err
	}
	dto := NewPricingDTO(derived)
	return &dto, nil
}

// Create derives every price source and stores the product with the branch's
// opening stock in one transaction.
func (s *service) Create(ctx context.Context, branchID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)
	if input.SKU == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name are required")
	}

	branch, catalog, err := s.scope(ctx, branchID)
	if err != nil {
		return nil, err
	}
	derived, err := s.derive(catalog, branch, input.Pricing)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		StoreID:  branch.StoreID,
		SKU:      input.SKU,
		Name:     input.Name,
		IsActive: input.IsActive,
	}
	if err := applyDerived(catalog, product, input.Pricing, derived); err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, product); err != nil {
			return err
		}
		return s.writeStock(ctx, txRepo, catalog, product.ID, branch.ID, derived)
	}); err != nil {
		return nil, wrapTx(err, "create product")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"product_id": product.ID.String(),
			"branch_id":  branch.ID.String(),
		}), "product created")
	}
	return s.load(ctx, branch, product.ID)
}

func (s *service) Update(ctx context.Context, branchID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	branch, catalog, err := s.scope(ctx, branchID)
	if err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, branch.StoreID, productID)
	if err != nil {
		return nil, err
	}

	if input.SKU != nil {
		if product.SKU = strings.TrimSpace(*input.SKU); product.SKU == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
	}
	if input.Name != nil {
		if product.Name = strings.TrimSpace(*input.Name); product.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	var derived *Derived
	if input.Pricing != nil {
		if derived, err = s.derive(catalog, branch, *input.Pricing); err != nil {
			return nil, err
		}
		if err := applyDerived(catalog, product, *input.Pricing, derived); err != nil {
			return nil, err
		}
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Update(ctx, product); err != nil {
			return err
		}
		if derived == nil {
			return nil
		}
		return s.writeStock(ctx, txRepo, catalog, product.ID, branch.ID, derived)
	}); err != nil {
		return nil, wrapTx(err, "update product")
	}
	return s.load(ctx, branch, product.ID)
}

func (s *service) Get(ctx context.Context, branchID, productID uuid.UUID) (*ProductDTO, error) {
	branch, err := s.branches.Branch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, branch, productID)
}

func (s *service) PricingSnapshot(ctx context.Context, storeID, productID uuid.UUID) (pricing.Product, error) {
	catalog, err := s.branches.Catalog(ctx, storeID)
	if err != nil {
		return pricing.Product{}, err
	}
	product, err := s.repo.FindByID(ctx, storeID, productID)
	if err != nil {
		return pricing.Product{}, err
	}
	if !product.IsActive {
		return pricing.Product{}, pkgerrors.New(pkgerrors.CodeConflict, "product is inactive").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	snap, err := snapshotFromModel(catalog, product)
	if err != nil {
		s.observe(err)
		return pricing.Product{}, err
	}
	return snap, nil
}

func (s *service) scope(ctx context.Context, branchID uuid.UUID) (*branches.Branch, *units.Catalog, error) {
	branch, err := s.branches.Branch(ctx, branchID)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := s.branches.Catalog(ctx, branch.StoreID)
	if err != nil {
		return nil, nil, err
	}
	return branch, catalog, nil
}

func (s *service) derive(catalog units.Resolver, branch *branches.Branch, input PricingInput) (*Derived, error) {
	derived, err := Derive(catalog, branch, input)
	if err != nil {
		s.observe(err)
		return nil, err
	}
	return derived, nil
}

func (s *service) observe(err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code().IsPricing() {
		s.metrics.IncError(strings.ToLower(string(typed.Code())))
	}
}

func (s *service) writeStock(ctx context.Context, txRepo *Repository, catalog units.Resolver, productID, branchID uuid.UUID, derived *Derived) error {
	if derived.Stock == nil {
		return nil
	}
	unitID, err := unitUUID(catalog, derived.Stock.AccountingUnitID)
	if err != nil {
		return err
	}
	return txRepo.UpsertStock(ctx, &models.StockRecord{
		ProductID:        productID,
		BranchID:         branchID,
		AccountingUnitID: unitID,
		Quantity:         derived.Stock.Quantity,
	})
}

func (s *service) load(ctx context.Context, branch *branches.Branch, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, branch.StoreID, productID)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.FindStock(ctx, productID, branch.ID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product, rec), nil
}

// applyDerived copies the form inputs and derived values onto the model,
// replacing its child rows.
func applyDerived(catalog units.Resolver, product *models.Product, input PricingInput, derived *Derived) error {
	purchaseUnit, err := unitUUID(catalog, input.Purchase.UnitID)
	if err != nil {
		return err
	}
	accountingUnit, err := unitUUID(catalog, input.AccountingUnitID)
	if err != nil {
		return err
	}
	product.PurchaseUnitID = purchaseUnit
	product.PurchaseTotalPrice = input.Purchase.TotalPrice
	product.PurchaseQuantity = input.Purchase.Quantity
	product.CostPerBaseUnit = derived.Cost.CostPerBaseUnit
	product.CostPerPurchaseUnit = derived.Cost.CostPerPurchaseUnit
	product.AccountingUnitID = accountingUnit

	product.SoldUnits = make([]models.ProductSoldUnit, 0, len(derived.SoldUnitIDs))
	for i, id := range derived.SoldUnitIDs {
		unitID, err := unitUUID(catalog, id)
		if err != nil {
			return err
		}
		product.SoldUnits = append(product.SoldUnits, models.ProductSoldUnit{ProductID: product.ID, UnitID: unitID, Position: i})
	}

	product.Channels = make([]models.ProductPriceChannel, 0, len(derived.Channels))
	for _, c := range derived.Channels {
		unitID, err := unitUUID(catalog, c.UnitID)
		if err != nil {
			return err
		}
		product.Channels = append(product.Channels, models.ProductPriceChannel{
			ProductID:     product.ID,
			Channel:       c.Channel,
			UnitID:        unitID,
			UnitCost:      c.UnitCost,
			MarkupPercent: c.MarkupPercent,
			SellingPrice:  c.SellingPrice,
			MarginPercent: c.MarginPercent,
			UnitQuantity:  c.UnitQuantity,
		})
	}

	entries := derived.Manual.Entries()
	product.ManualPrices = make([]models.ProductManualPrice, 0, len(entries))
	for _, e := range entries {
		unitID, err := unitUUID(catalog, e.UnitID)
		if err != nil {
			return err
		}
		product.ManualPrices = append(product.ManualPrices, models.ProductManualPrice{
			ProductID:  product.ID,
			UnitID:     unitID,
			Price:      e.Price,
			TaxPercent: e.TaxPercent,
		})
	}
	return nil
}

// snapshotFromModel restores channels from the stored cost and selling price
// so sessions charge exactly what the product form saved.
func snapshotFromModel(catalog units.Resolver, p *models.Product) (pricing.Product, error) {
	snap := pricing.Product{
		ID:          p.ID.String(),
		Name:        p.Name,
		SoldUnitIDs: make([]string, 0, len(p.SoldUnits)),
		Channels:    make(map[enums.SellingChannel]pricing.PriceChannel, len(p.Channels)),
	}
	for _, su := range p.SoldUnits {
		snap.SoldUnitIDs = append(snap.SoldUnitIDs, su.UnitID.String())
	}
	for _, c := range p.Channels {
		rebuilt, err := channelFromModel(c).Restore(catalog, p.CostPerBaseUnit)
		if err != nil {
			return pricing.Product{}, err
		}
		snap.Channels[c.Channel] = rebuilt
	}
	entries := make([]pricing.ManualPriceEntry, 0, len(p.ManualPrices))
	for _, m := range p.ManualPrices {
		entries = append(entries, pricing.ManualPriceEntry{UnitID: m.UnitID.String(), Price: m.Price, TaxPercent: m.TaxPercent})
	}
	manual, err := pricing.NewManualPriceTable(catalog, entries)
	if err != nil {
		return pricing.Product{}, err
	}
	snap.Manual = manual
	return snap, nil
}

func channelFromModel(c models.ProductPriceChannel) pricing.PriceChannel {
	return pricing.PriceChannel{
		Channel:       c.Channel,
		UnitID:        c.UnitID.String(),
		UnitCost:      c.UnitCost,
		MarkupPercent: c.MarkupPercent,
		SellingPrice:  c.SellingPrice,
		MarginPercent: c.MarginPercent,
		UnitQuantity:  c.UnitQuantity,
	}
}

func unitUUID(catalog units.Resolver, id string) (uuid.UUID, error) {
	u, err := catalog.Resolve(id)
	if err != nil {
		return uuid.Nil, err
	}
	parsed, err := uuid.Parse(u.ID)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unit id %q is not a uuid", u.ID))
	}
	return parsed, nil
}

func wrapTx(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
