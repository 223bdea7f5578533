package branches

import (
	"context"

	"github.com/angelmondragon/branchpos-backend/internal/repo"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads branch configuration and store unit tables.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) FindBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	if err := r.DB(ctx).First(&branch, "id = ?", id).Error; err != nil {
		return nil, repo.Translate(err, "branch")
	}
	return &branch, nil
}

// ListUnits returns the store's units in display order.
func (r *Repository) ListUnits(ctx context.Context, storeID uuid.UUID) ([]models.Unit, error) {
	var list []models.Unit
	if err := r.DB(ctx).
		Where("store_id = ?", storeID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, repo.Translate(err, "units")
	}
	return list, nil
}

func (r *Repository) CreateBranch(ctx context.Context, branch *models.Branch) error {
	return repo.Translate(r.DB(ctx).Create(branch).Error, "branch")
}

func (r *Repository) CreateUnit(ctx context.Context, unit *models.Unit) error {
	return repo.Translate(r.DB(ctx).Create(unit).Error, "unit")
}
