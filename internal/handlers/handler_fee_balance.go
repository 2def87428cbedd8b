package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/SscSPs/fee_ledger_app/internal/middleware"
	"github.com/SscSPs/fee_ledger_app/internal/utils"
	"github.com/gin-gonic/gin"
)

// feeBalanceHandler handles HTTP requests related to fee balance rows.
type feeBalanceHandler struct {
	feeBalanceService portssvc.FeeBalanceSvcFacade
	bulkService       portssvc.BulkInitializerSvc
	posthogClient     *utils.PosthogClientWrapper
}

// newFeeBalanceHandler creates a new feeBalanceHandler.
func newFeeBalanceHandler(fs portssvc.FeeBalanceSvcFacade, bs portssvc.BulkInitializerSvc, posthogClient *utils.PosthogClientWrapper) *feeBalanceHandler {
	return &feeBalanceHandler{
		feeBalanceService: fs,
		bulkService:       bs,
		posthogClient:     posthogClient,
	}
}

// registerFeeBalanceRoutes registers routes related to fee balance rows.
func registerFeeBalanceRoutes(balances *gin.RouterGroup, fs portssvc.FeeBalanceSvcFacade, bs portssvc.BulkInitializerSvc, posthogClient *utils.PosthogClientWrapper) {
	h := newFeeBalanceHandler(fs, bs, posthogClient)

	balances.GET("", h.listFeeBalances)
	balances.POST("", h.createFeeBalance)
	balances.POST("/bulk", h.bulkInitialize)
	balances.GET("/:enrollment_id/:fee_kind", h.getFeeBalance)
	balances.POST("/:enrollment_id/:fee_kind/cancel", h.cancelFeeBalance)
}

// listFeeBalances godoc
// @Summary List fee balances
// @Description Lists the fee balance rows of a branch and academic year. Cancelled rows are excluded unless requested.
// @Tags balances
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollmentID query string false "Filter by enrollment"
// @Param   classID query string false "Filter by class"
// @Param   groupID query string false "Filter by group"
// @Param   courseID query string false "Filter by course"
// @Param   routeID query string false "Filter by transport route"
// @Param   feeKind query string false "TUITION or TRANSPORT"
// @Param   includeCancelled query bool false "Include cancelled rows"
// @Success 200 {object} dto.ListFeeBalancesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list fee balances"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances [get]
func (h *feeBalanceHandler) listFeeBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListFeeBalancesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query params for ListFeeBalances")
		return
	}

	balances, err := h.feeBalanceService.ListFeeBalances(c.Request.Context(), requestScope(c), params.ToBalanceFilter())
	if err != nil {
		respondError(c, logger, err, "Failed to list fee balances")
		return
	}

	logger.Debug("Fee balances listed", slog.Int("count", len(balances)))
	c.JSON(http.StatusOK, dto.ToListFeeBalancesResponse(balances))
}

// getFeeBalance godoc
// @Summary Get a fee balance
// @Description Retrieves one fee balance row with its terms
// @Tags balances
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Success 200 {object} dto.FeeBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Failure 422 {object} map[string]string "Unknown fee kind"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind} [get]
func (h *feeBalanceHandler) getFeeBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	key, err := balanceKey(c)
	if err != nil {
		respondError(c, logger, err, "Invalid fee balance key")
		return
	}

	b, err := h.feeBalanceService.GetFeeBalance(c.Request.Context(), requestScope(c), key)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve fee balance")
		return
	}
	c.JSON(http.StatusOK, dto.ToFeeBalanceResponse(b))
}

// createFeeBalance godoc
// @Summary Create a fee balance
// @Description Resolves the enrollment's fee structure and creates one fee balance row
// @Tags balances
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   balance body dto.CreateFeeBalanceRequest true "Enrollment and fee kind"
// @Success 201 {object} dto.FeeBalanceResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Enrollment or fee structure not found"
// @Failure 409 {object} map[string]string "Fee balance already exists"
// @Failure 422 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances [post]
func (h *feeBalanceHandler) createFeeBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateFeeBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for CreateFeeBalance")
		return
	}
	kind, err := domain.ParseFeeKind(string(req.FeeKind))
	if err != nil {
		respondError(c, logger, err, "Invalid fee kind")
		return
	}
	req.FeeKind = kind

	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("enrollment_id", req.EnrollmentID), slog.String("fee_kind", string(req.FeeKind)))
	logger.Info("Received request to create fee balance")

	b, err := h.feeBalanceService.CreateFeeBalance(c.Request.Context(), requestScope(c), req, actor)
	if err != nil {
		respondError(c, logger, err, "Failed to create fee balance")
		return
	}

	middleware.PosthogEvent(c, h.posthogClient, "fee_balance_created", map[string]any{
		"fee_kind":  string(b.FeeKind),
		"total_fee": utils.FormatMoney(b.TotalFee),
	})
	c.JSON(http.StatusCreated, dto.ToFeeBalanceResponse(b))
}

// bulkInitialize godoc
// @Summary Initialize a cohort
// @Description Creates every missing fee balance row for the active enrollments of a class. Existing rows are skipped.
// @Tags balances
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   cohort body dto.BulkInitRequest true "Cohort selector"
// @Success 200 {object} dto.BulkInitResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Transient failure, retry"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/bulk [post]
func (h *feeBalanceHandler) bulkInitialize(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.BulkInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for BulkInitialize")
		return
	}
	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	result, err := h.bulkService.InitializeForCohort(c.Request.Context(), requestScope(c), req.ToCohortFilter(), actor)
	if err != nil {
		respondError(c, logger, err, "Failed to initialize cohort")
		return
	}

	middleware.PosthogEvent(c, h.posthogClient, "cohort_initialized", map[string]any{
		"class_id":        req.ClassID,
		"created":         result.CreatedCount,
		"skipped":         len(result.SkippedEnrollmentIDs),
		"failed":          len(result.Failures),
		"total_requested": result.TotalRequested,
	})
	c.JSON(http.StatusOK, dto.ToBulkInitResponse(result))
}

// cancelFeeBalance godoc
// @Summary Cancel a fee balance
// @Description Moves a fee balance row to its terminal CANCELLED state. Refunds remain possible.
// @Tags balances
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Param   cancel body dto.CancelFeeBalanceRequest true "Cancellation reason"
// @Success 200 {object} dto.FeeBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Failure 409 {object} map[string]string "Already cancelled"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind}/cancel [post]
func (h *feeBalanceHandler) cancelFeeBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	key, err := balanceKey(c)
	if err != nil {
		respondError(c, logger, err, "Invalid fee balance key")
		return
	}
	var req dto.CancelFeeBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for CancelFeeBalance")
		return
	}
	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	b, err := h.feeBalanceService.CancelFeeBalance(c.Request.Context(), requestScope(c), key, req, actor)
	if err != nil {
		respondError(c, logger, err, "Failed to cancel fee balance")
		return
	}

	middleware.PosthogEvent(c, h.posthogClient, "fee_balance_cancelled", map[string]any{"fee_kind": string(key.FeeKind)})
	c.JSON(http.StatusOK, dto.ToFeeBalanceResponse(b))
}
