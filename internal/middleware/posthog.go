package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/fee_ledger_app/internal/utils"
	"github.com/gin-gonic/gin"
)

// PosthogMiddleware records one analytics event per successful ledger mutation.
// Reads are not tracked; handlers emit their own domain events through PosthogEvent.
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if !posthogClient.IsInitialized() || c.Request.Method == http.MethodGet {
			return
		}
		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		route := c.FullPath()
		if route == "" {
			return
		}
		actor, ok := GetActorFromContext(c)
		if !ok {
			return
		}

		props := ledgerEventProperties(c, string(actor.Role))
		props["status_code"] = c.Writer.Status()
		posthogClient.EnqueueForBranch(actor.UserID, c.Param("branch_id"), routeEventName(c.Request.Method, route), props)
	}
}

// PosthogEvent sends a domain event on behalf of the authenticated actor.
func PosthogEvent(c *gin.Context, posthogClient *utils.PosthogClientWrapper, eventName string, properties map[string]any) {
	if !posthogClient.IsInitialized() {
		return
	}
	actor, ok := GetActorFromContext(c)
	if !ok {
		return
	}

	props := ledgerEventProperties(c, string(actor.Role))
	for k, v := range properties {
		props[k] = v
	}
	posthogClient.EnqueueForBranch(actor.UserID, c.Param("branch_id"), eventName, props)
}

// routeEventName turns "PATCH /api/v1/branches/:branch_id/..." into "patch_branches_balances_term-payment".
func routeEventName(method, route string) string {
	parts := []string{strings.ToLower(method)}
	for _, seg := range strings.Split(route, "/") {
		if seg == "" || seg == "api" || seg == "v1" || seg == "years" || strings.HasPrefix(seg, ":") {
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "_")
}

func ledgerEventProperties(c *gin.Context, role string) map[string]any {
	props := map[string]any{
		"route":      c.FullPath(),
		"role":       role,
		"request_id": GetRequestIDFromCtx(c.Request.Context()),
	}
	if year := c.Param("academic_year_id"); year != "" {
		props["academic_year_id"] = year
	}
	if kind := c.Param("fee_kind"); kind != "" {
		props["fee_kind"] = strings.ToUpper(kind)
	}
	return props
}
