package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/branchpos-backend/internal/repo"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists completed sessions and moves branch stock.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return repo.Translate(r.DB(ctx).Create(sale).Error, "sale")
}

func (r *Repository) CreateTransfer(ctx context.Context, transfer *models.StockTransfer) error {
	return repo.Translate(r.DB(ctx).Create(transfer).Error, "stock transfer")
}

// StockRecords returns the branch's records for the given products keyed by
// product id. Products without a record are absent from the map.
func (r *Repository) StockRecords(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]models.StockRecord, error) {
	out := make(map[uuid.UUID]models.StockRecord, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []models.StockRecord
	if err := r.DB(ctx).
		Where("branch_id = ? AND product_id IN ?", branchID, productIDs).
		Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "stock records")
	}
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}

// DeductStock lowers the on-hand quantity only when enough is available.
func (r *Repository) DeductStock(ctx context.Context, productID, branchID uuid.UUID, qty decimal.Decimal) error {
	res := r.DB(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ? AND branch_id = ? AND quantity >= ?", productID, branchID, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return repo.Translate(res.Error, "stock record")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for product %s", productID)).
			WithDetails(map[string]any{"product_id": productID.String(), "requested": qty.String()})
	}
	return nil
}

// AddStock increases the on-hand quantity, creating the record when the
// branch has none yet. qty must already be in accountingUnitID.
func (r *Repository) AddStock(ctx context.Context, productID, branchID, accountingUnitID uuid.UUID, qty decimal.Decimal) error {
	record := &models.StockRecord{
		ProductID:        productID,
		BranchID:         branchID,
		AccountingUnitID: accountingUnitID,
		Quantity:         qty,
	}
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("stock_records.quantity + excluded.quantity"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(record).Error
	return repo.Translate(err, "stock record")
}

func (r *Repository) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, repo.Translate(err, "sale")
	}
	return &sale, nil
}

func (r *Repository) FindTransfer(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	var transfer models.StockTransfer
	err := r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&transfer, "id = ?", id).Error
	if err != nil {
		return nil, repo.Translate(err, "stock transfer")
	}
	return &transfer, nil
}

// ListSales returns a branch's sales newest first. The returned cursor points
// at the last row of the page and is nil when no further rows exist.
func (r *Repository) ListSales(ctx context.Context, branchID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Sale, *pagination.Cursor, error) {
	query := r.DB(ctx).Model(&models.Sale{}).Where("branch_id = ?", branchID)
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var sales []models.Sale
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&sales).Error
	if err != nil {
		return nil, nil, repo.Translate(err, "sales")
	}

	page, next := pagination.Trim(sales, limit, func(s models.Sale) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}
