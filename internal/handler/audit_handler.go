package handler

import (
	"net/http"

	"assetdesk/internal/access"
	"assetdesk/internal/middleware"
	"assetdesk/internal/service"
	"assetdesk/pkg/pagination"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	gate         *middleware.Gate
}

func NewAuditHandler(auditService service.AuditService, gate *middleware.Gate) *AuditHandler {
	useJSONFieldNames()
	return &AuditHandler{auditService: auditService, gate: gate}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/inventory/audit-logs", h.gate.Require(access.OpListAuditLogs), h.GetAuditLogs)
}

// GetAuditLogs retrieves paginated records, newest first, with the acting user joined in.
// action, entity_id and user_id narrow the listing.
// @Summary      Get audit logs
// @Description  Retrieves the mutation history of users, assets and requests
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Param        action     query     string  false  "Exact action, e.g. UPDATE_ASSET"
// @Param        entity_id  query     string  false  "Id of the affected asset, request or user"
// @Param        user_id    query     string  false  "Acting user id"
// @Success      200        {object}  response.Response{data=response.Paged}
// @Failure      400        {object}  response.Response
// @Router       /inventory/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	var query service.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), query, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Audit logs retrieved", response.Paged{
		Items: logs,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}
