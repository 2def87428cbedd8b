package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/SscSPs/fee_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// requestScope reads the branch and academic year from the route.
func requestScope(c *gin.Context) domain.Scope {
	return domain.Scope{BranchID: c.Param("branch_id"), AcademicYearID: c.Param("academic_year_id")}
}

// balanceKey reads the row key from the route. The fee kind is accepted in any letter case.
func balanceKey(c *gin.Context) (domain.BalanceKey, error) {
	kind, err := domain.ParseFeeKind(c.Param("fee_kind"))
	if err != nil {
		return domain.BalanceKey{}, err
	}
	return domain.BalanceKey{EnrollmentID: c.Param("enrollment_id"), FeeKind: kind}, nil
}

// requireActor returns the authenticated actor, writing a 401 when there is none.
func requireActor(c *gin.Context, logger *slog.Logger) (domain.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		logger.Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "UNAUTHORIZED"})
		return domain.Actor{}, false
	}
	return actor, true
}

// idempotencyKey prefers the key in the body and falls back to the Idempotency-Key header.
func idempotencyKey(c *gin.Context, fromBody *string) *string {
	if fromBody != nil && *fromBody != "" {
		return fromBody
	}
	if header := c.GetHeader(middleware.IdempotencyKeyHeader); header != "" {
		return &header
	}
	return nil
}
