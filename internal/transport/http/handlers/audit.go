package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/transport/http/middleware"
	"github.com/securticket/securticket/internal/usecase"
)

// AuditHandler exposes the audit trail to operators.
type AuditHandler struct {
	audit *usecase.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *usecase.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// RegisterRoutes binds the audit routes. Callers are expected to have applied
// authentication middleware to the group.
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
}

// list returns audit entries, newest first, with optional filters.
func (h *AuditHandler) list(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var filter port.AuditFilter

	if raw := c.Query("account_id"); raw != "" {
		accountID := raw
		filter.AccountID = &accountID
	}
	if raw := c.Query("action"); raw != "" {
		action := raw
		filter.Action = &action
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "since must be an RFC 3339 timestamp"))
			return
		}
		filter.Since = &since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	entries, err := h.audit.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, newAuditEntryResponse(entry))
	}

	c.JSON(http.StatusOK, responses)
}
