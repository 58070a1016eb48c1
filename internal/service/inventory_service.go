package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"assetdesk/internal/media"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateAssetRequest struct {
	Name        string           `json:"name" binding:"required,max=100"`
	Description string           `json:"description" binding:"required,max=200"`
	Category    string           `json:"category" binding:"required,max=100"`
	ImageURL    string           `json:"image_url" binding:"omitempty,url,max=255"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
}

// UpdateAssetRequest carries a partial update; nil fields are left untouched.
// An empty image_url clears the image, so the url rule is applied by
// UpdateAsset rather than the binding tag.
type UpdateAssetRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=100"`
	Description *string          `json:"description" binding:"omitempty,max=200"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	ImageURL    *string          `json:"image_url" binding:"omitempty,max=255"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
}

type AllocateAssetRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type AssetResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	ImageURL    string              `json:"image_url"`
	UnitCost    decimal.NullDecimal `json:"unit_cost"`
	AllocatedTo *string             `json:"allocated_to"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

type InventoryService interface {
	CreateAsset(ctx context.Context, userID uuid.UUID, req CreateAssetRequest, image io.Reader) (AssetResponse, error)
	GetAsset(ctx context.Context, id string) (AssetResponse, error)
	UpdateAsset(ctx context.Context, userID uuid.UUID, id string, req UpdateAssetRequest, image io.Reader) (AssetResponse, error)
	DeleteAsset(ctx context.Context, userID uuid.UUID, id string) error
	// ListAssets returns every asset when limit is zero, otherwise one page.
	ListAssets(ctx context.Context, page, limit int) ([]AssetResponse, int64, error)
	AllocateAsset(ctx context.Context, userID uuid.UUID, id string, req AllocateAssetRequest) (AssetResponse, error)
}

type inventoryService struct {
	assetRepo   repository.AssetRepository
	requestRepo repository.RequestRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	media       media.Store
	events      EventPublisher
}

func NewInventoryService(
	assetRepo repository.AssetRepository,
	requestRepo repository.RequestRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	mediaStore media.Store,
	events EventPublisher,
) InventoryService {
	return &inventoryService{
		assetRepo:   assetRepo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		media:       mediaStore,
		events:      events,
	}
}

func toAssetResponse(a *model.Asset) AssetResponse {
	res := AssetResponse{
		ID:          a.ID.String(),
		Name:        a.Name,
		Description: a.Description,
		Category:    a.Category,
		ImageURL:    a.ImageURL,
		UnitCost:    a.UnitCost,
		CreatedAt:   a.CreatedAt.Format(timeLayout),
		UpdatedAt:   a.UpdatedAt.Format(timeLayout),
	}
	if a.AllocatedTo != nil {
		holder := a.AllocatedTo.String()
		res.AllocatedTo = &holder
	}
	return res
}

func parseAssetID(id string) (uuid.UUID, error) {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, validationError("invalid asset id %q", id)
	}
	return assetID, nil
}

var fieldRules = validator.New()

func checkImageURL(v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	if err := fieldRules.Var(strings.TrimSpace(*v), "url,max=255"); err != nil {
		return validationError("image_url must be a valid URL")
	}
	return nil
}

func checkUnitCost(cost *decimal.Decimal) error {
	if cost != nil && cost.IsNegative() {
		return validationError("unit_cost must not be negative")
	}
	return nil
}

// uploadImage stores the image, if any, before any row is touched.
func (s *inventoryService) uploadImage(ctx context.Context, image io.Reader) (media.Object, error) {
	if image == nil {
		return media.Object{}, nil
	}
	if s.media == nil {
		return media.Object{}, fmt.Errorf("%w: no media store configured", ErrMediaUpload)
	}

	obj, err := s.media.Upload(ctx, image)
	if err != nil {
		if errors.Is(err, media.ErrNotAnImage) || errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrEmptyUpload) {
			return media.Object{}, validationError("%v", err)
		}
		return media.Object{}, fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	return obj, nil
}

// discardImage removes a freshly uploaded image whose row never got committed.
func (s *inventoryService) discardImage(ctx context.Context, obj media.Object) {
	if !obj.New {
		return
	}
	if err := s.media.Delete(context.WithoutCancel(ctx), obj.URL); err != nil {
		log.Printf("failed to discard orphaned image %s: %v", obj.URL, err)
	}
}

func (s *inventoryService) CreateAsset(ctx context.Context, userID uuid.UUID, req CreateAssetRequest, image io.Reader) (AssetResponse, error) {
	asset := model.Asset{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    strings.TrimSpace(req.ImageURL),
	}
	if asset.Name == "" || asset.Description == "" || asset.Category == "" {
		return AssetResponse{}, validationError("name, description and category are required")
	}
	if err := checkUnitCost(req.UnitCost); err != nil {
		return AssetResponse{}, err
	}
	if req.UnitCost != nil {
		asset.UnitCost = decimal.NewNullDecimal(*req.UnitCost)
	}

	obj, err := s.uploadImage(ctx, image)
	if err != nil {
		return AssetResponse{}, err
	}
	if obj.URL != "" {
		asset.ImageURL = obj.URL
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.assetRepo.Create(txCtx, &asset); err != nil {
			return fmt.Errorf("failed to create asset: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, userID, model.ActionCreateAsset, asset.ID.String(), asset.Name, map[string]interface{}{
			"name":      asset.Name,
			"category":  asset.Category,
			"image_url": asset.ImageURL,
		})
	})
	if err != nil {
		s.discardImage(ctx, obj)
		return AssetResponse{}, err
	}

	res := toAssetResponse(&asset)
	publish(s.events, EventAssetCreated, map[string]interface{}{"asset": res})
	return res, nil
}

func (s *inventoryService) GetAsset(ctx context.Context, id string) (AssetResponse, error) {
	assetID, err := parseAssetID(id)
	if err != nil {
		return AssetResponse{}, err
	}

	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		if repository.IsNotFound(err) {
			return AssetResponse{}, notFound("asset")
		}
		return AssetResponse{}, fmt.Errorf("database error: %w", err)
	}
	return toAssetResponse(asset), nil
}

func (s *inventoryService) UpdateAsset(ctx context.Context, userID uuid.UUID, id string, req UpdateAssetRequest, image io.Reader) (AssetResponse, error) {
	assetID, err := parseAssetID(id)
	if err != nil {
		return AssetResponse{}, err
	}
	for field, v := range map[string]*string{"name": req.Name, "description": req.Description, "category": req.Category} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return AssetResponse{}, validationError("%s must not be empty", field)
		}
	}
	if err := checkUnitCost(req.UnitCost); err != nil {
		return AssetResponse{}, err
	}
	if err := checkImageURL(req.ImageURL); err != nil {
		return AssetResponse{}, err
	}

	obj, err := s.uploadImage(ctx, image)
	if err != nil {
		return AssetResponse{}, err
	}

	var asset *model.Asset
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		asset, findErr = s.assetRepo.FindByIDForUpdate(txCtx, assetID)
		if findErr != nil {
			if repository.IsNotFound(findErr) {
				return notFound("asset")
			}
			return fmt.Errorf("database error: %w", findErr)
		}

		changed := map[string]interface{}{}
		if req.Name != nil {
			asset.Name = strings.TrimSpace(*req.Name)
			changed["name"] = asset.Name
		}
		if req.Description != nil {
			asset.Description = strings.TrimSpace(*req.Description)
			changed["description"] = asset.Description
		}
		if req.Category != nil {
			asset.Category = strings.TrimSpace(*req.Category)
			changed["category"] = asset.Category
		}
		if req.ImageURL != nil {
			asset.ImageURL = strings.TrimSpace(*req.ImageURL)
			changed["image_url"] = asset.ImageURL
		}
		// The replaced upload stays on disk; content-addressed files may back other assets.
		if obj.URL != "" {
			asset.ImageURL = obj.URL
			changed["image_url"] = asset.ImageURL
		}
		if req.UnitCost != nil {
			asset.UnitCost = decimal.NewNullDecimal(*req.UnitCost)
			changed["unit_cost"] = req.UnitCost.String()
		}

		if err := s.assetRepo.Update(txCtx, asset); err != nil {
			return fmt.Errorf("failed to update asset: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, userID, model.ActionUpdateAsset, asset.ID.String(), asset.Name, changed)
	})
	if err != nil {
		s.discardImage(ctx, obj)
		return AssetResponse{}, err
	}

	res := toAssetResponse(asset)
	publish(s.events, EventAssetUpdated, map[string]interface{}{"asset": res})
	return res, nil
}

// DeleteAsset removes the asset together with every request that references it.
func (s *inventoryService) DeleteAsset(ctx context.Context, userID uuid.UUID, id string) error {
	assetID, err := parseAssetID(id)
	if err != nil {
		return err
	}

	var removed int64
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.FindByIDForUpdate(txCtx, assetID)
		if err != nil {
			if repository.IsNotFound(err) {
				return notFound("asset")
			}
			return fmt.Errorf("database error: %w", err)
		}

		removed, err = s.requestRepo.DeleteByAsset(txCtx, assetID)
		if err != nil {
			return fmt.Errorf("failed to delete requests for asset: %w", err)
		}
		if err := s.assetRepo.Delete(txCtx, assetID); err != nil {
			return fmt.Errorf("failed to delete asset: %w", err)
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionDeleteAsset, asset.ID.String(), asset.Name, map[string]interface{}{
			"deleted":          true,
			"requests_removed": removed,
		})
	})
	if err != nil {
		return err
	}

	publish(s.events, EventAssetDeleted, map[string]interface{}{
		"asset_id":         assetID.String(),
		"requests_removed": removed,
	})
	return nil
}

func (s *inventoryService) ListAssets(ctx context.Context, page, limit int) ([]AssetResponse, int64, error) {
	var assets []model.Asset
	var total int64
	var err error

	if limit <= 0 {
		assets, err = s.assetRepo.ListAll(ctx)
		total = int64(len(assets))
	} else {
		if page <= 0 {
			page = 1
		}
		assets, total, err = s.assetRepo.List(ctx, page, limit)
	}
	if err != nil {
		return nil, 0, err
	}

	res := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		res = append(res, toAssetResponse(&assets[i]))
	}
	return res, total, nil
}

// AllocateAsset hands the asset to a user, replacing any previous holder.
func (s *inventoryService) AllocateAsset(ctx context.Context, userID uuid.UUID, id string, req AllocateAssetRequest) (AssetResponse, error) {
	assetID, err := parseAssetID(id)
	if err != nil {
		return AssetResponse{}, err
	}
	holderID, err := uuid.Parse(req.UserID)
	if err != nil {
		return AssetResponse{}, validationError("invalid user_id %q", req.UserID)
	}

	var asset *model.Asset
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		asset, findErr = s.assetRepo.FindByIDForUpdate(txCtx, assetID)
		if findErr != nil {
			if repository.IsNotFound(findErr) {
				return notFound("asset")
			}
			return fmt.Errorf("database error: %w", findErr)
		}

		holder, findErr := s.userRepo.GetByID(txCtx, holderID)
		if findErr != nil {
			if repository.IsNotFound(findErr) {
				return notFound("user")
			}
			return fmt.Errorf("database error: %w", findErr)
		}

		asset.AllocatedTo = &holder.ID
		if err := s.assetRepo.Update(txCtx, asset); err != nil {
			return fmt.Errorf("failed to allocate asset: %w", err)
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionAllocateAsset, asset.ID.String(), asset.Name, map[string]interface{}{
			"user_id":  holder.ID.String(),
			"username": holder.Username,
		})
	})
	if err != nil {
		return AssetResponse{}, err
	}

	res := toAssetResponse(asset)
	publish(s.events, EventAssetAllocated, map[string]interface{}{
		"asset_id": res.ID,
		"user_id":  holderID.String(),
	})
	return res, nil
}
