package repository

import (
	"context"
	"fmt"

	"assetdesk/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountAssets(ctx context.Context) (total int64, allocated int64, err error)
	CountRequestsByStatus(ctx context.Context) ([]model.StatusCount, error)
	TopRequestedAssets(ctx context.Context, limit int) ([]model.AssetRequested, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountAssets(ctx context.Context) (int64, int64, error) {
	var total, allocated int64
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Asset{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count assets: %w", err)
	}
	if err := db.Model(&model.Asset{}).Where("allocated_to IS NOT NULL").Count(&allocated).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count allocated assets: %w", err)
	}
	return total, allocated, nil
}

func (r *statisticsRepository) CountRequestsByStatus(ctx context.Context) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	if err := GetDB(ctx, r.db).Model(&model.Request{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("count DESC").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	return counts, nil
}

func (r *statisticsRepository) TopRequestedAssets(ctx context.Context, limit int) ([]model.AssetRequested, error) {
	var rankings []model.AssetRequested
	if err := GetDB(ctx, r.db).Table("requests").
		Select("assets.id as asset_id, assets.name as asset_name, COUNT(requests.id) as request_count, SUM(requests.quantity) as total_quantity").
		Joins("JOIN assets ON assets.id = requests.asset_id").
		Group("assets.id, assets.name").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top requested assets: %w", err)
	}
	return rankings, nil
}
