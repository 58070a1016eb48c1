package service

import (
	"context"

	"assetdesk/internal/model"
	"assetdesk/internal/repository"
)

const topRequestedLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context) (model.InventoryStatistics, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics summarizes allocation state and request volume across the whole inventory
func (s *statisticsService) GetStatistics(ctx context.Context) (model.InventoryStatistics, error) {
	var stats model.InventoryStatistics

	total, allocated, err := s.repo.CountAssets(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalAssets = total
	stats.AllocatedAssets = allocated
	stats.UnallocatedAssets = total - allocated

	byStatus, err := s.repo.CountRequestsByStatus(ctx)
	if err != nil {
		return stats, err
	}
	if byStatus == nil {
		byStatus = []model.StatusCount{}
	}
	stats.RequestsByStatus = byStatus

	top, err := s.repo.TopRequestedAssets(ctx, topRequestedLimit)
	if err != nil {
		return stats, err
	}
	if top == nil {
		top = []model.AssetRequested{}
	}
	stats.TopRequested = top

	return stats, nil
}
