package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/repository"
	"github.com/securticket/securticket/internal/transport/http/middleware"
	"github.com/securticket/securticket/internal/usecase"
)

// EventHandler exposes the event catalog endpoints.
type EventHandler struct {
	catalog *usecase.CatalogService
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(catalog *usecase.CatalogService) *EventHandler {
	return &EventHandler{catalog: catalog}
}

// RegisterPublicRoutes binds the read-only catalog routes.
func (h *EventHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.GET("/:id", h.get)
}

// RegisterAdminRoutes binds the catalog management routes. Callers are
// expected to have applied authentication middleware to the group.
func (h *EventHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("", h.create)
	r.PUT("/:id", h.update)
	r.DELETE("/:id", h.delete)
	r.POST("/:id/resize", h.resize)
}

// list returns catalog events, optionally filtered by category and start time.
func (h *EventHandler) list(c *gin.Context) {
	var filter port.EventFilter

	if raw := c.Query("category"); raw != "" {
		category := domain.EventCategory(raw)
		filter.Category = &category
	}
	if raw := c.Query("after"); raw != "" {
		after, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "after must be an RFC 3339 timestamp"))
			return
		}
		filter.After = &after
	}

	events, err := h.catalog.ListEvents(c.Request.Context(), filter)
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrInvalidCategory, status: http.StatusBadRequest, message: "unknown event category"},
		}, http.StatusInternalServerError, "failed to list events")
		return
	}

	responses := make([]EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, newEventResponse(event))
	}

	c.JSON(http.StatusOK, responses)
}

// get returns a single catalog event.
func (h *EventHandler) get(c *gin.Context) {
	event, err := h.catalog.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: repository.ErrNotFound, status: http.StatusNotFound, message: "event not found"},
		}, http.StatusInternalServerError, "failed to load event")
		return
	}

	c.JSON(http.StatusOK, newEventResponse(*event))
}

// create adds a new catalog event.
func (h *EventHandler) create(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid event payload"))
		return
	}

	event, err := h.catalog.CreateEvent(c.Request.Context(), actor, eventInput(req), requestMeta(c))
	if err != nil {
		respondCatalogError(c, err, "failed to create event")
		return
	}

	c.JSON(http.StatusCreated, newEventResponse(*event))
}

// update replaces the descriptive fields of an event. Seat counters are
// managed exclusively through resize and the booking flow.
func (h *EventHandler) update(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid event payload"))
		return
	}

	event, err := h.catalog.UpdateEvent(c.Request.Context(), actor, c.Param("id"), eventInput(req), requestMeta(c))
	if err != nil {
		respondCatalogError(c, err, "failed to update event")
		return
	}

	c.JSON(http.StatusOK, newEventResponse(*event))
}

// delete removes an event from the catalog.
func (h *EventHandler) delete(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.catalog.DeleteEvent(c.Request.Context(), actor, c.Param("id"), requestMeta(c)); err != nil {
		respondCatalogError(c, err, "failed to delete event")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "event deleted"})
}

// resize changes an event's total capacity while preserving sold seats.
func (h *EventHandler) resize(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resize payload"))
		return
	}

	result, err := h.catalog.ResizeEvent(c.Request.Context(), actor, c.Param("id"), req.TotalSeats, requestMeta(c))
	if err != nil {
		respondCatalogError(c, err, "failed to resize event")
		return
	}

	c.JSON(http.StatusOK, ResizeResponse{
		TotalSeats:     result.TotalSeats,
		AvailableSeats: result.AvailableSeats,
		Oversold:       result.Oversold,
	})
}

func eventInput(req EventRequest) usecase.EventInput {
	return usecase.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.EventCategory(req.Category),
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		TotalSeats:  req.TotalSeats,
		PriceMinor:  req.PriceMinor,
		Currency:    req.Currency,
	}
}

func respondCatalogError(c *gin.Context, err error, fallback string) {
	respondMapped(c, err, []errorCase{
		{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient permissions"},
		{err: usecase.ErrInvalidCategory, status: http.StatusBadRequest, message: "unknown event category"},
		{err: usecase.ErrInvalidCapacity, status: http.StatusBadRequest, message: "capacity must be positive"},
		{err: usecase.ErrInvalidEventInput, status: http.StatusBadRequest, message: "invalid event payload"},
		{err: repository.ErrNotFound, status: http.StatusNotFound, message: "event not found"},
	}, http.StatusInternalServerError, fallback)
}
