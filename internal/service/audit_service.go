package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditQuery is the optional filter set of the audit listing.
type AuditQuery struct {
	Action   string `form:"action" binding:"omitempty,max=50"`
	EntityID string `form:"entity_id" binding:"omitempty,max=100"`
	UserID   string `form:"user_id" binding:"omitempty,uuid"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, query AuditQuery, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, query AuditQuery, page, limit int) ([]AuditLogResponse, int64, error) {
	filter := repository.AuditFilter{
		Action:   strings.TrimSpace(query.Action),
		EntityID: strings.TrimSpace(query.EntityID),
	}
	if query.UserID != "" {
		uid, err := uuid.Parse(query.UserID)
		if err != nil {
			return nil, 0, validationError("invalid user_id %q", query.UserID)
		}
		filter.UserID = &uid
	}

	logs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(timeLayout),
		})
	}

	return res, total, nil
}

// recordAudit writes one audit row; call it with the transaction context of the mutation.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actor uuid.UUID, action, entityID, entityName string, details interface{}) error {
	var uid *uuid.UUID
	if actor != uuid.Nil {
		uid = &actor
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	entry := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
