package service

import (
	"context"
	"fmt"
	"strings"

	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRequestDTO has no user field: the requester always comes from the caller's token.
type CreateRequestDTO struct {
	AssetID  string `json:"asset_id" binding:"required,uuid"`
	Reason   string `json:"reason" binding:"required,max=200"`
	Quantity int    `json:"quantity" binding:"required,gt=0,lte=2147483647"`
	Urgency  string `json:"urgency" binding:"required,max=50"`
}

type UpdateRequestStatusDTO struct {
	Status string `json:"status" binding:"required,max=50"`
}

type RequestResponse struct {
	ID            string              `json:"id"`
	AssetID       string              `json:"asset_id"`
	AssetName     string              `json:"asset_name,omitempty"`
	UserID        string              `json:"user_id"`
	Reason        string              `json:"reason"`
	Quantity      int                 `json:"quantity"`
	Urgency       string              `json:"urgency"`
	Status        string              `json:"status"`
	EstimatedCost decimal.NullDecimal `json:"estimated_cost"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}

type RequestService interface {
	CreateRequest(ctx context.Context, userID uuid.UUID, req CreateRequestDTO) (RequestResponse, error)
	// UpdateRequestStatus stores any non-empty status; transitions are not checked.
	UpdateRequestStatus(ctx context.Context, userID uuid.UUID, id string, req UpdateRequestStatusDTO) (RequestResponse, error)
	ListPendingRequests(ctx context.Context) ([]RequestResponse, error)
	ListCompletedRequests(ctx context.Context) ([]RequestResponse, error)
	ListUserRequests(ctx context.Context, userID uuid.UUID) ([]RequestResponse, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	assetRepo   repository.AssetRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	assetRepo repository.AssetRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		assetRepo:   assetRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
	}
}

func toRequestResponse(r *model.Request) RequestResponse {
	res := RequestResponse{
		ID:        r.ID.String(),
		AssetID:   r.AssetID.String(),
		UserID:    r.UserID.String(),
		Reason:    r.Reason,
		Quantity:  r.Quantity,
		Urgency:   r.Urgency,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.Format(timeLayout),
		UpdatedAt: r.UpdatedAt.Format(timeLayout),
	}
	if r.Asset != nil {
		res.AssetName = r.Asset.Name
		if r.Asset.UnitCost.Valid {
			res.EstimatedCost = decimal.NewNullDecimal(r.Asset.UnitCost.Decimal.Mul(decimal.NewFromInt(int64(r.Quantity))))
		}
	}
	return res
}

func toRequestResponses(requests []model.Request) []RequestResponse {
	res := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		res = append(res, toRequestResponse(&requests[i]))
	}
	return res
}

func (s *requestService) CreateRequest(ctx context.Context, userID uuid.UUID, req CreateRequestDTO) (RequestResponse, error) {
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return RequestResponse{}, validationError("invalid asset_id %q", req.AssetID)
	}
	reason := strings.TrimSpace(req.Reason)
	urgency := strings.TrimSpace(req.Urgency)
	if reason == "" || urgency == "" {
		return RequestResponse{}, validationError("reason and urgency are required")
	}
	if req.Quantity <= 0 || req.Quantity > model.MaxRequestQuantity {
		return RequestResponse{}, validationError("quantity must be between 1 and %d", model.MaxRequestQuantity)
	}

	request := model.Request{
		AssetID:  assetID,
		UserID:   userID,
		Reason:   reason,
		Quantity: req.Quantity,
		Urgency:  urgency,
		Status:   model.RequestStatusPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.FindByID(txCtx, assetID)
		if err != nil {
			if repository.IsNotFound(err) {
				return validationError("asset %s does not exist", assetID)
			}
			return fmt.Errorf("database error: %w", err)
		}
		if _, err := s.userRepo.GetByID(txCtx, userID); err != nil {
			if repository.IsNotFound(err) {
				return validationError("requesting user does not exist")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		request.Asset = asset

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionCreateRequest, request.ID.String(), asset.Name, map[string]interface{}{
			"asset_id": assetID.String(),
			"quantity": request.Quantity,
			"urgency":  request.Urgency,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	res := toRequestResponse(&request)
	publish(s.events, EventRequestCreated, map[string]interface{}{
		"request": res,
		"user_id": res.UserID,
	})
	return res, nil
}

func (s *requestService) UpdateRequestStatus(ctx context.Context, userID uuid.UUID, id string, req UpdateRequestStatusDTO) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, validationError("invalid request id %q", id)
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		return RequestResponse{}, validationError("status is required")
	}

	var request *model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		request, findErr = s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			if repository.IsNotFound(findErr) {
				return notFound("request")
			}
			return fmt.Errorf("database error: %w", findErr)
		}

		previous := request.Status
		request.Status = status
		if err := s.requestRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		// The locked row comes back bare; the response still names the asset.
		asset, err := s.assetRepo.FindByID(txCtx, request.AssetID)
		if err != nil && !repository.IsNotFound(err) {
			return fmt.Errorf("database error: %w", err)
		}
		request.Asset = asset

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionUpdateRequestStatus, request.ID.String(), status, map[string]interface{}{
			"from": previous,
			"to":   status,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	res := toRequestResponse(request)
	publish(s.events, EventRequestStatusUpdated, map[string]interface{}{
		"request_id": res.ID,
		"user_id":    res.UserID,
		"status":     res.Status,
	})
	return res, nil
}

func (s *requestService) ListPendingRequests(ctx context.Context) ([]RequestResponse, error) {
	requests, err := s.requestRepo.ListByStatus(ctx, model.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending requests: %w", err)
	}
	return toRequestResponses(requests), nil
}

func (s *requestService) ListCompletedRequests(ctx context.Context) ([]RequestResponse, error) {
	requests, err := s.requestRepo.ListByStatus(ctx, model.RequestStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completed requests: %w", err)
	}
	return toRequestResponses(requests), nil
}

func (s *requestService) ListUserRequests(ctx context.Context, userID uuid.UUID) ([]RequestResponse, error) {
	requests, err := s.requestRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user requests: %w", err)
	}
	return toRequestResponses(requests), nil
}
