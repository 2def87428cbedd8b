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

// concessionHandler handles HTTP requests related to row concessions.
type concessionHandler struct {
	concessionService portssvc.ConcessionSvcFacade
	posthogClient     *utils.PosthogClientWrapper
}

// newConcessionHandler creates a new concessionHandler.
func newConcessionHandler(cs portssvc.ConcessionSvcFacade, posthogClient *utils.PosthogClientWrapper) *concessionHandler {
	return &concessionHandler{
		concessionService: cs,
		posthogClient:     posthogClient,
	}
}

// registerConcessionRoutes registers the concession routes of a fee balance row.
func registerConcessionRoutes(row *gin.RouterGroup, cs portssvc.ConcessionSvcFacade, posthogClient *utils.PosthogClientWrapper) {
	h := newConcessionHandler(cs, posthogClient)

	row.PATCH("/concession", h.applyConcession)
	row.POST("/concession/lock", h.lockConcession)
	row.POST("/concession/unlock", h.unlockConcession)
	row.GET("/concession/events", h.listConcessionEvents)
}

// applyConcession godoc
// @Summary Apply a concession
// @Description Sets the concession of a row to an absolute amount and re-splits its terms. Fails while the concession is locked.
// @Tags concessions
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Param   concession body dto.ConcessionRequest true "Concession amount"
// @Success 200 {object} dto.FeeBalanceResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Failure 409 {object} map[string]string "Concession locked or row cancelled"
// @Failure 422 {object} map[string]string "Invalid concession"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind}/concession [patch]
func (h *concessionHandler) applyConcession(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	key, err := balanceKey(c)
	if err != nil {
		respondError(c, logger, err, "Invalid fee balance key")
		return
	}
	var req dto.ConcessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for ApplyConcession")
		return
	}
	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("enrollment_id", key.EnrollmentID), slog.String("fee_kind", string(key.FeeKind)))
	logger.Info("Received request to apply concession", slog.String("amount", req.Amount.String()))

	b, err := h.concessionService.ApplyConcession(c.Request.Context(), requestScope(c), key, req, actor)
	if err != nil {
		respondError(c, logger, err, "Failed to apply concession")
		return
	}

	middleware.PosthogEvent(c, h.posthogClient, "concession_applied", map[string]any{
		"fee_kind": string(key.FeeKind),
		"amount":   utils.FormatMoney(req.Amount),
	})
	c.JSON(http.StatusOK, dto.ToFeeBalanceResponse(b))
}

// lockConcession godoc
// @Summary Lock a concession
// @Description Freezes the concession of a row. Locking an already locked row changes nothing.
// @Tags concessions
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Param   lock body dto.ConcessionLockRequest false "Reason"
// @Success 200 {object} dto.FeeBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind}/concession/lock [post]
func (h *concessionHandler) lockConcession(c *gin.Context) {
	h.toggleLock(c, true)
}

// unlockConcession godoc
// @Summary Unlock a concession
// @Description Lifts the concession lock of a row. Requires the ADMIN role.
// @Tags concessions
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Param   unlock body dto.ConcessionLockRequest false "Reason"
// @Success 200 {object} dto.FeeBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind}/concession/unlock [post]
func (h *concessionHandler) unlockConcession(c *gin.Context) {
	h.toggleLock(c, false)
}

func (h *concessionHandler) toggleLock(c *gin.Context, lock bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	key, err := balanceKey(c)
	if err != nil {
		respondError(c, logger, err, "Invalid fee balance key")
		return
	}
	// The body is optional
	var req dto.ConcessionLockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, logger, err, "JSON for concession lock")
			return
		}
	}
	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	var (
		b     *domain.FeeBalance
		event string
	)
	if lock {
		event = "concession_locked"
		b, err = h.concessionService.LockConcession(c.Request.Context(), requestScope(c), key, req, actor)
	} else {
		event = "concession_unlocked"
		b, err = h.concessionService.UnlockConcession(c.Request.Context(), requestScope(c), key, req, actor)
	}
	if err != nil {
		respondError(c, logger, err, "Failed to change concession lock")
		return
	}

	middleware.PosthogEvent(c, h.posthogClient, event, map[string]any{"fee_kind": string(key.FeeKind)})
	c.JSON(http.StatusOK, dto.ToFeeBalanceResponse(b))
}

// listConcessionEvents godoc
// @Summary List concession events
// @Description Returns the concession audit trail of a row, oldest first
// @Tags concessions
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Success 200 {array} dto.ConcessionEventResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind}/concession/events [get]
func (h *concessionHandler) listConcessionEvents(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	key, err := balanceKey(c)
	if err != nil {
		respondError(c, logger, err, "Invalid fee balance key")
		return
	}

	events, err := h.concessionService.ListConcessionEvents(c.Request.Context(), requestScope(c), key)
	if err != nil {
		respondError(c, logger, err, "Failed to list concession events")
		return
	}
	c.JSON(http.StatusOK, dto.ToConcessionEventResponses(events))
}
