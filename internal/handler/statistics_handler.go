package handler

import (
	"net/http"

	"assetdesk/internal/access"
	"assetdesk/internal/middleware"
	"assetdesk/internal/service"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	gate              *middleware.Gate
}

func NewStatisticsHandler(statisticsService service.StatisticsService, gate *middleware.Gate) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, gate: gate}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/inventory/statistics", h.gate.Require(access.OpViewStatistics), h.GetStatistics)
}

// @Summary      Get inventory statistics
// @Description  Asset allocation totals, request counts per status and the most requested assets
// @Tags         Statistics
// @Produce      json
// @Success      200 {object} response.Response{data=model.InventoryStatistics}
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      403 {object} response.Response "Forbidden"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /inventory/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statisticsService.GetStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Statistics retrieved", stats))
}
