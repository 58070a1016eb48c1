package repository

import (
	"context"

	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssetRepository interface {
	Create(ctx context.Context, asset *model.Asset) error
	Update(ctx context.Context, asset *model.Asset) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	ListAll(ctx context.Context) ([]model.Asset, error)
	List(ctx context.Context, page, limit int) ([]model.Asset, int64, error)
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Create(asset).Error
}

func (r *assetRepository) Update(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Save(asset).Error
}

func (r *assetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Asset{}).Error
}

func (r *assetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *assetRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) ListAll(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset
	if err := GetDB(ctx, r.db).Order("created_at desc").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepository) List(ctx context.Context, page, limit int) ([]model.Asset, int64, error) {
	var assets []model.Asset
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Asset{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&assets).Error; err != nil {
		return nil, 0, err
	}

	return assets, total, nil
}
