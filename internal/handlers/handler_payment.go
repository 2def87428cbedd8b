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

// paymentHandler handles HTTP requests that move money.
type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
	posthogClient  *utils.PosthogClientWrapper
}

// newPaymentHandler creates a new paymentHandler.
func newPaymentHandler(ps portssvc.PaymentSvcFacade, posthogClient *utils.PosthogClientWrapper) *paymentHandler {
	return &paymentHandler{
		paymentService: ps,
		posthogClient:  posthogClient,
	}
}

// registerTermPaymentRoutes registers the money routes of a fee balance row.
func registerTermPaymentRoutes(row *gin.RouterGroup, ps portssvc.PaymentSvcFacade, posthogClient *utils.PosthogClientWrapper) {
	h := newPaymentHandler(ps, posthogClient)

	row.PATCH("/term-payment", h.postTermPayment)
	row.POST("/refund", h.refund)
}

// registerPaymentRoutes registers the scope-wide payment routes.
func registerPaymentRoutes(payments *gin.RouterGroup, ps portssvc.PaymentSvcFacade, posthogClient *utils.PosthogClientWrapper) {
	h := newPaymentHandler(ps, posthogClient)

	payments.POST("", h.postPayment)
	payments.GET("", h.listPayments)
}

// postTermPayment godoc
// @Summary Post a term payment
// @Description Applies a payment to a row. The hinted term is filled first, then terms in order, and any excess becomes overpayment.
// @Description Retried requests carrying the same idempotency key return the original outcome.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Param   Idempotency-Key header string false "Idempotency key, used when the body carries none"
// @Param   payment body dto.TermPaymentRequest true "Payment details"
// @Success 200 {object} dto.PostingResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Failure 409 {object} map[string]string "Row cancelled or concurrent update"
// @Failure 422 {object} map[string]string "Invalid amount or reused idempotency key"
// @Failure 503 {object} map[string]string "Transient failure, retry"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind}/term-payment [patch]
func (h *paymentHandler) postTermPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	key, err := balanceKey(c)
	if err != nil {
		respondError(c, logger, err, "Invalid fee balance key")
		return
	}
	var req dto.TermPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for PostTermPayment")
		return
	}
	req.IdempotencyKey = idempotencyKey(c, req.IdempotencyKey)

	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("enrollment_id", key.EnrollmentID), slog.String("fee_kind", string(key.FeeKind)))
	logger.Info("Received term payment", slog.String("amount", req.Amount.String()), slog.Int("term_hint", req.Term))

	result, err := h.paymentService.PostTermPayment(c.Request.Context(), requestScope(c), key, req, actor)
	if err != nil {
		respondError(c, logger, err, "Failed to post term payment")
		return
	}

	if !result.Replayed {
		middleware.PosthogEvent(c, h.posthogClient, "term_payment_posted", map[string]any{
			"fee_kind":       string(key.FeeKind),
			"amount":         utils.FormatMoney(req.Amount),
			"payment_method": string(req.PaymentMethod),
		})
	}
	c.JSON(http.StatusOK, dto.ToPostingResponse(result))
}

// refund godoc
// @Summary Refund a row
// @Description Returns money held against a row, taking overpayment first and then the latest terms.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollment_id path string true "Enrollment ID"
// @Param   fee_kind path string true "TUITION or TRANSPORT"
// @Param   Idempotency-Key header string false "Idempotency key, used when the body carries none"
// @Param   refund body dto.RefundRequest true "Refund details"
// @Success 200 {object} dto.PostingResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fee balance not found"
// @Failure 422 {object} map[string]string "Refund exceeds credited money"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/balances/{enrollment_id}/{fee_kind}/refund [post]
func (h *paymentHandler) refund(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	key, err := balanceKey(c)
	if err != nil {
		respondError(c, logger, err, "Invalid fee balance key")
		return
	}
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for Refund")
		return
	}
	req.IdempotencyKey = idempotencyKey(c, req.IdempotencyKey)

	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("enrollment_id", key.EnrollmentID), slog.String("fee_kind", string(key.FeeKind)))
	logger.Info("Received refund", slog.String("amount", req.Amount.String()))

	result, err := h.paymentService.Refund(c.Request.Context(), requestScope(c), key, req, actor)
	if err != nil {
		respondError(c, logger, err, "Failed to refund")
		return
	}

	if !result.Replayed {
		middleware.PosthogEvent(c, h.posthogClient, "refund_posted", map[string]any{
			"fee_kind": string(key.FeeKind),
			"amount":   utils.FormatMoney(req.Amount),
		})
	}
	c.JSON(http.StatusOK, dto.ToPostingResponse(result))
}

// postPayment godoc
// @Summary Record a payment
// @Description Records money received for any purpose. Term purposes are applied to the enrollment's tuition or transport row.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   Idempotency-Key header string false "Idempotency key, used when the body carries none"
// @Param   payment body dto.PostPaymentRequest true "Payment details"
// @Success 201 {object} dto.PostingResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/payments [post]
func (h *paymentHandler) postPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.PostPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "JSON for PostPayment")
		return
	}
	req.IdempotencyKey = idempotencyKey(c, req.IdempotencyKey)

	actor, ok := requireActor(c, logger)
	if !ok {
		return
	}

	logger.Info("Received payment", slog.String("purpose", req.Purpose.Kind), slog.String("amount", req.Amount.String()))

	result, err := h.paymentService.PostPayment(c.Request.Context(), requestScope(c), req, actor)
	if err != nil {
		respondError(c, logger, err, "Failed to post payment")
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	} else {
		middleware.PosthogEvent(c, h.posthogClient, "payment_posted", map[string]any{
			"purpose":        req.Purpose.Kind,
			"amount":         utils.FormatMoney(req.Amount),
			"payment_method": string(req.PaymentMethod),
		})
	}
	c.JSON(status, dto.ToPostingResponse(result))
}

// listPayments godoc
// @Summary List payments
// @Description Lists payment events of a branch and academic year, newest first
// @Tags payments
// @Produce  json
// @Param   branch_id path string true "Branch ID"
// @Param   academic_year_id path string true "Academic year ID"
// @Param   enrollmentID query string false "Filter by enrollment"
// @Param   feeKind query string false "TUITION or TRANSPORT"
// @Param   reservationID query string false "Filter by reservation"
// @Param   direction query string false "PAYMENT or REFUND"
// @Param   from query string false "Income date lower bound (YYYY-MM-DD)"
// @Param   to query string false "Income date upper bound (YYYY-MM-DD)"
// @Param   limit query int false "Page size (max 200)"
// @Param   nextToken query string false "Token for the next page"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /branches/{branch_id}/years/{academic_year_id}/payments [get]
func (h *paymentHandler) listPayments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListPaymentsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query params for ListPayments")
		return
	}

	resp, err := h.paymentService.ListPayments(c.Request.Context(), requestScope(c), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list payments")
		return
	}
	c.JSON(http.StatusOK, resp)
}
