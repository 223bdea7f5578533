package product

import (
	"context"

	"github.com/angelmondragon/branchpos-backend/internal/repo"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists products with their price sources and branch stock.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// Create inserts the product together with its sold units, channels and
// manual prices.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return repo.Translate(r.DB(ctx).Create(product).Error, "product")
}

// Update saves the product row and replaces every child row with the ones
// carried on product.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	db := r.DB(ctx)
	if err := db.Omit(clause.Associations).Save(product).Error; err != nil {
		return repo.Translate(err, "product")
	}
	if err := replaceChildren(db, product.ID, &models.ProductSoldUnit{}, product.SoldUnits); err != nil {
		return repo.Translate(err, "product sold units")
	}
	if err := replaceChildren(db, product.ID, &models.ProductPriceChannel{}, product.Channels); err != nil {
		return repo.Translate(err, "product channels")
	}
	if err := replaceChildren(db, product.ID, &models.ProductManualPrice{}, product.ManualPrices); err != nil {
		return repo.Translate(err, "product manual prices")
	}
	return nil
}

func replaceChildren[T any](db *gorm.DB, productID uuid.UUID, model any, rows []T) error {
	if err := db.Where("product_id = ?", productID).Delete(model).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.Create(&rows).Error
}

// FindByID loads a store's product with every price source.
func (r *Repository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Preload("SoldUnits", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Channels").
		Preload("ManualPrices").
		Where("store_id = ?", storeID).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, repo.Translate(err, "product")
	}
	return &product, nil
}

// UpsertStock writes the branch's on-hand figure, replacing any previous one.
func (r *Repository) UpsertStock(ctx context.Context, record *models.StockRecord) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"accounting_unit_id", "quantity", "updated_at"}),
	}).Create(record).Error
	return repo.Translate(err, "stock record")
}

// FindStock returns nil without error when the branch has no record yet.
func (r *Repository) FindStock(ctx context.Context, productID, branchID uuid.UUID) (*models.StockRecord, error) {
	var rec models.StockRecord
	err := r.DB(ctx).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, repo.Translate(err, "stock record")
	}
	if rec.ProductID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}
