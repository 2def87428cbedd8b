package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/SscSPs/fee_ledger_app/internal/middleware"
	"github.com/SscSPs/fee_ledger_app/internal/utils"
	"github.com/gin-gonic/gin"
)

type reservationHandler struct {
	feeBalanceService portssvc.FeeBalanceWriterSvc
	posthogClient     *utils.PosthogClientWrapper
}

// registerReservationRoutes registers routes that act on admission reservations.
func registerReservationRoutes(reservations *gin.RouterGroup, fs portssvc.FeeBalanceWriterSvc, posthogClient *utils.PosthogClientWrapper) {
	h := &reservationHandler{feeBalanceService: fs, posthogClient: posthogClient}

	reservations.POST("/:reservation_id/convert", h.convertReservation)
}

// convertReservation godoc
// @Summary Convert a reservation
// @Description Seeds an enrollment's fee balance rows from the fees agreed when the seat was reserved.
// @Description Kinds that already have a row are reported as skipped.
// @Tags reservations
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   reservation_id path string true "Reservation ID"
// @Param   conversion body dto.ConvertReservationRequest true "Target enrollment"
// @Success 200 {object} dto.ConversionResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reservation or enrollment not found"
// @Failure 422 {object} map[string]string "Reservation cannot be converted"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/reservations/{reservation_id}/convert [post]
func (h *reservationHandler) convertReservation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	reservationID := c.Param("reservation_id")

	var req dto.ConvertReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for ConvertReservation")
		return
	}
	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("reservation_id", reservationID), slog.String("enrollment_id", req.EnrollmentID))
	logger.Info("Received request to convert reservation")

	result, err := h.feeBalanceService.ConvertReservation(c.Request.Context(), requestScope(c), reservationID, req, actor)
	if err != nil {
		respondError(c, logger, err, "Failed to convert reservation")
		return
	}

	middleware.PosthogEvent(c, h.posthogClient, "reservation_converted", map[string]any{
		"created": len(result.Balances),
		"skipped": len(result.SkippedKinds),
	})
	c.JSON(http.StatusOK, dto.ToConversionResponse(result))
}
