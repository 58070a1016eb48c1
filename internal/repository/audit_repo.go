package repository

import (
	"context"

	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows an audit listing. Zero fields match everything.
type AuditFilter struct {
	Action   string
	EntityID string
	UserID   *uuid.UUID
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) scoped(ctx context.Context, filter AuditFilter) *gorm.DB {
	q := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	return q
}

// List returns one page of matching entries, newest first, with the actor preloaded.
func (r *auditRepository) List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	var total int64
	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := []model.AuditLog{}
	err := r.scoped(ctx, filter).
		Preload("User").
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
