package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/SscSPs/fee_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type feeStructureHandler struct {
	feeStructureService portssvc.FeeStructureSvc
}

// registerFeeStructureRoutes registers the fee structure lookup.
func registerFeeStructureRoutes(rg *gin.RouterGroup, fs portssvc.FeeStructureSvc) {
	h := &feeStructureHandler{feeStructureService: fs}

	rg.POST("/fee-structure/resolve", h.resolve)
}

// resolve godoc
// @Summary Resolve a fee structure
// @Description Returns the nominal tuition and transport fees of a placement with their term breakdown
// @Tags fee-structure
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   placement body dto.ResolveFeeStructureRequest true "Placement"
// @Success 200 {object} dto.FeeStructureResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "No fee structure configured"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/fee-structure/resolve [post]
func (h *feeStructureHandler) resolve(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.ResolveFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for ResolveFeeStructure")
		return
	}

	s, err := h.feeStructureService.Resolve(c.Request.Context(), requestScope(c), req.ToQuery())
	if err != nil {
		respondError(c, logger, err, "Failed to resolve fee structure")
		return
	}
	c.JSON(http.StatusOK, dto.ToFeeStructureResponse(s))
}
