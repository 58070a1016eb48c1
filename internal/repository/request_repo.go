package repository

import (
	"context"

	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	Update(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error)
	ListByStatus(ctx context.Context, status string) ([]model.Request, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Request, error)
	DeleteByAsset(ctx context.Context, assetID uuid.UUID) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) Update(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).Preload("Asset").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByStatus matches status exactly, including case.
func (r *requestRepository) ListByStatus(ctx context.Context, status string) ([]model.Request, error) {
	var requests []model.Request
	if err := GetDB(ctx, r.db).Preload("Asset").Where("status = ?", status).
		Order("created_at asc").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Request, error) {
	var requests []model.Request
	if err := GetDB(ctx, r.db).Preload("Asset").Where("user_id = ?", userID).
		Order("created_at desc").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) DeleteByAsset(ctx context.Context, assetID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Where("asset_id = ?", assetID).Delete(&model.Request{})
	return res.RowsAffected, res.Error
}
