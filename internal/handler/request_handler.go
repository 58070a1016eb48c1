package handler

import (
	"net/http"

	"assetdesk/internal/access"
	"assetdesk/internal/middleware"
	"assetdesk/internal/service"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
	gate           *middleware.Gate
}

func NewRequestHandler(requestService service.RequestService, gate *middleware.Gate) *RequestHandler {
	useJSONFieldNames()
	return &RequestHandler{requestService: requestService, gate: gate}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/inventory/requests")
	{
		requests.POST("", h.gate.Require(access.OpCreateRequest), h.CreateRequest)
		requests.PATCH("/:id", h.gate.Require(access.OpUpdateRequestStatus), h.UpdateRequestStatus)
		requests.GET("/pending", h.gate.Require(access.OpListPendingRequests), h.ListPendingRequests)
		requests.GET("/completed", h.gate.Require(access.OpListCompletedRequests), h.ListCompletedRequests)
	}

	router.GET("/inventory/user/requests", h.gate.Require(access.OpListOwnRequests), h.ListUserRequests)
}

// CreateRequest files an allocation request for the caller
// @Summary      Create request
// @Description  Creates a request in status "Pending". The requester is always the authenticated caller.
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestDTO  true  "Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /inventory/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := h.requestService.CreateRequest(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success("Request created", created))
}

// UpdateRequestStatus overwrites the status of a request
// @Summary      Update request status
// @Description  Any non-empty status is stored as given
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Request ID"
// @Param        payload  body      service.UpdateRequestStatusDTO  true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /inventory/requests/{id} [patch]
func (h *RequestHandler) UpdateRequestStatus(c *gin.Context) {
	var req service.UpdateRequestStatusDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.requestService.UpdateRequestStatus(c.Request.Context(), callerID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Request status updated", updated))
}

// ListPendingRequests lists requests whose status is exactly "Pending"
// @Summary      List pending requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Router       /inventory/requests/pending [get]
func (h *RequestHandler) ListPendingRequests(c *gin.Context) {
	requests, err := h.requestService.ListPendingRequests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success("Pending requests retrieved", requests))
}

// ListCompletedRequests lists requests whose status is exactly "approved"
// @Summary      List completed requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Router       /inventory/requests/completed [get]
func (h *RequestHandler) ListCompletedRequests(c *gin.Context) {
	requests, err := h.requestService.ListCompletedRequests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success("Completed requests retrieved", requests))
}

// ListUserRequests lists the caller's own requests
// @Summary      List own requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Router       /inventory/user/requests [get]
func (h *RequestHandler) ListUserRequests(c *gin.Context) {
	requests, err := h.requestService.ListUserRequests(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success("User requests retrieved", requests))
}
