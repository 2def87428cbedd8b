package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/SscSPs/fee_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type dashboardHandler struct {
	dashboardService portssvc.DashboardSvc
}

// registerDashboardRoutes registers the summary statistics route.
func registerDashboardRoutes(rg *gin.RouterGroup, ds portssvc.DashboardSvc) {
	h := &dashboardHandler{dashboardService: ds}

	rg.GET("/dashboard", h.getDashboard)
}

// getDashboard godoc
// @Summary Dashboard statistics
// @Description Aggregates the fee balance rows of a branch and academic year. Results may be served from a short-lived cache.
// @Tags dashboard
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   classID query string false "Filter by class"
// @Param   routeID query string false "Filter by transport route"
// @Param   feeKind query string false "TUITION or TRANSPORT"
// @Success 200 {object} dto.DashboardResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Statistics unavailable"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/dashboard [get]
func (h *dashboardHandler) getDashboard(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.DashboardParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query params for Dashboard")
		return
	}

	stats, err := h.dashboardService.Dashboard(c.Request.Context(), requestScope(c), params.ToDashboardFilter())
	if err != nil {
		respondError(c, logger, err, "Failed to compute dashboard")
		return
	}
	c.JSON(http.StatusOK, dto.ToDashboardResponse(stats))
}
