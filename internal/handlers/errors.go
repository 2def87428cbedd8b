package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised on 503 responses.
const retryAfterSeconds = "1"

// errorMapping ties a sentinel error to its HTTP status and machine-readable code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// Checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{apperrors.ErrDuplicate, http.StatusConflict, "ALREADY_EXISTS"},
	{apperrors.ErrLocked, http.StatusConflict, "CONCESSION_LOCKED"},
	{apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
	{apperrors.ErrCancelled, http.StatusConflict, "CANCELLED"},
	{apperrors.ErrInvalidAmount, http.StatusUnprocessableEntity, "INVALID_AMOUNT"},
	{apperrors.ErrInvalidConcession, http.StatusUnprocessableEntity, "INVALID_CONCESSION"},
	{apperrors.ErrIdempotencyKeyReuse, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED"},
	{apperrors.ErrValidation, http.StatusUnprocessableEntity, "VALIDATION"},
	{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{apperrors.ErrTransient, http.StatusServiceUnavailable, "TRANSIENT"},
	{apperrors.ErrStatsUnavailable, http.StatusServiceUnavailable, "STATS_UNAVAILABLE"},
}

// respondError writes the error body for a failed service call and logs it at a level matching its status.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			status, code = m.status, m.code
			break
		}
	}

	body := gin.H{"error": err.Error(), "code": code}
	var ledgerErr *apperrors.LedgerError
	if errors.As(err, &ledgerErr) {
		body["details"] = ledgerErr
	}

	switch {
	case status == http.StatusServiceUnavailable:
		logger.Warn(fallback, slog.String("error", err.Error()))
		c.Header("Retry-After", retryAfterSeconds)
	case status >= http.StatusInternalServerError:
		// Internal errors are not echoed to the caller
		logger.Error(fallback, slog.String("error", err.Error()))
		body["error"] = fallback
	default:
		logger.Warn(fallback, slog.String("error", err.Error()), slog.String("code", code))
	}
	c.JSON(status, body)
}

// respondBindError writes a 400 for a request that could not be decoded.
func respondBindError(c *gin.Context, logger *slog.Logger, err error, what string) {
	logger.Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error(), "code": "BAD_REQUEST"})
}
