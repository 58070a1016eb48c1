package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"assetdesk/internal/access"
	"assetdesk/internal/middleware"
	"assetdesk/internal/service"
	"assetdesk/pkg/pagination"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	gate             *middleware.Gate
}

func NewInventoryHandler(inventoryService service.InventoryService, gate *middleware.Gate) *InventoryHandler {
	useJSONFieldNames()
	return &InventoryHandler{inventoryService: inventoryService, gate: gate}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	assets := router.Group("/inventory/assets")
	{
		assets.GET("", h.gate.Require(access.OpListAssets), h.ListAssets)
		assets.POST("", h.gate.Require(access.OpCreateAsset), h.CreateAsset)
		assets.GET("/:id", h.gate.Require(access.OpGetAsset), h.GetAsset)
		assets.PUT("/:id", h.gate.Require(access.OpUpdateAsset), h.UpdateAsset)
		assets.DELETE("/:id", h.gate.Require(access.OpDeleteAsset), h.DeleteAsset)
		assets.POST("/:id/allocate", h.gate.Require(access.OpAllocateAsset), h.AllocateAsset)
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// imageUpload opens the optional "image" part of a multipart form. The returned
// closer is never nil.
func imageUpload(c *gin.Context) (io.Reader, func(), error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return f, func() { _ = f.Close() }, nil
}

// formDecimal parses an optional decimal form field.
func formDecimal(c *gin.Context, key string) (*decimal.Decimal, bool) {
	raw, ok := c.GetPostForm(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	return &d, true
}

func formString(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

func badUnitCost(c *gin.Context) {
	c.JSON(http.StatusBadRequest, response.Invalid("Invalid request payload", map[string]string{"unit_cost": "decimal"}))
}

// GetAsset fetches a single asset
// @Summary      Get asset
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  response.Response{data=service.AssetResponse}
// @Failure      404  {object}  response.Response
// @Router       /inventory/assets/{id} [get]
func (h *InventoryHandler) GetAsset(c *gin.Context) {
	asset, err := h.inventoryService.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Asset retrieved", asset))
}

// ListAssets handles retrieving inventory assets
// @Summary      List assets
// @Description  Returns every asset, or a single page when page or limit is given
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Number of items per page"
// @Success      200    {object}  response.Response{data=[]service.AssetResponse}
// @Failure      500    {object}  response.Response
// @Router       /inventory/assets [get]
func (h *InventoryHandler) ListAssets(c *gin.Context) {
	p, paged := pagination.ParseOptional(c)
	if !paged {
		assets, _, err := h.inventoryService.ListAssets(c.Request.Context(), 0, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success("Assets retrieved", assets))
		return
	}

	assets, total, err := h.inventoryService.ListAssets(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Assets retrieved", response.Paged{
		Items: assets,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}

// CreateAsset creates a new inventory asset, optionally with an image
// @Summary      Create asset
// @Description  Accepts JSON, or multipart/form-data with an optional "image" file
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        payload  body      service.CreateAssetRequest  true  "Create Asset Payload"
// @Success      201      {object}  response.Response{data=service.AssetResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /inventory/assets [post]
func (h *InventoryHandler) CreateAsset(c *gin.Context) {
	var req service.CreateAssetRequest
	var image io.Reader
	closeImage := func() {}

	if isMultipart(c) {
		req.Name = c.PostForm("name")
		req.Description = c.PostForm("description")
		req.Category = c.PostForm("category")
		req.ImageURL = c.PostForm("image_url")
		cost, ok := formDecimal(c, "unit_cost")
		if !ok {
			badUnitCost(c)
			return
		}
		req.UnitCost = cost
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			respondBindError(c, err)
			return
		}

		var err error
		image, closeImage, err = imageUpload(c)
		if err != nil {
			respondBindError(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	defer closeImage()

	asset, err := h.inventoryService.CreateAsset(c.Request.Context(), callerID(c), req, image)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success("Asset created", asset))
}

// UpdateAsset merges the supplied fields onto an existing asset
// @Summary      Update asset
// @Description  Partial update; omitted fields are kept. A new "image" file replaces the image url.
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        id       path      string                      true  "Asset ID"
// @Param        payload  body      service.UpdateAssetRequest  true  "Update Asset Payload"
// @Success      200      {object}  response.Response{data=service.AssetResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /inventory/assets/{id} [put]
func (h *InventoryHandler) UpdateAsset(c *gin.Context) {
	var req service.UpdateAssetRequest
	var image io.Reader
	closeImage := func() {}

	if isMultipart(c) {
		req.Name = formString(c, "name")
		req.Description = formString(c, "description")
		req.Category = formString(c, "category")
		req.ImageURL = formString(c, "image_url")
		cost, ok := formDecimal(c, "unit_cost")
		if !ok {
			badUnitCost(c)
			return
		}
		req.UnitCost = cost
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			respondBindError(c, err)
			return
		}

		var err error
		image, closeImage, err = imageUpload(c)
		if err != nil {
			respondBindError(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	defer closeImage()

	asset, err := h.inventoryService.UpdateAsset(c.Request.Context(), callerID(c), c.Param("id"), req, image)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Asset updated", asset))
}

// DeleteAsset removes an asset and every request referencing it
// @Summary      Delete asset
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /inventory/assets/{id} [delete]
func (h *InventoryHandler) DeleteAsset(c *gin.Context) {
	if err := h.inventoryService.DeleteAsset(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Asset deleted", nil))
}

// AllocateAsset assigns an asset to a user, replacing the current holder
// @Summary      Allocate asset
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Asset ID"
// @Param        payload  body      service.AllocateAssetRequest  true  "Allocation Payload"
// @Success      200      {object}  response.Response{data=service.AssetResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /inventory/assets/{id}/allocate [post]
func (h *InventoryHandler) AllocateAsset(c *gin.Context) {
	var req service.AllocateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	asset, err := h.inventoryService.AllocateAsset(c.Request.Context(), callerID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Asset allocated", asset))
}
