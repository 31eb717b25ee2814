package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/repository"
	"github.com/securticket/securticket/internal/transport/http/middleware"
	"github.com/securticket/securticket/internal/usecase"
)

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	bookings *usecase.BookingService
	payments *usecase.PaymentService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(bookings *usecase.BookingService, payments *usecase.PaymentService) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		payments: payments,
	}
}

// RegisterRoutes binds booking routes. Callers are expected to have applied
// authentication middleware to the group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.create)
	r.GET("", h.listOwn)
	r.GET("/:id", h.get)
	r.POST("/:id/cancel", h.cancel)
	r.POST("/:id/payment-intent", h.createPaymentIntent)
	r.GET("/:id/payment", h.paymentStatus)
}

// RegisterAdminRoutes binds the operator-only booking routes.
func (h *BookingHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("", h.listAll)
}

// create reserves seats and records a pending booking atomically.
func (h *BookingHandler) create(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid booking payload"))
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), actor, req.EventID, req.Seats, requestMeta(c))
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrInvalidSeatCount, status: http.StatusBadRequest, message: "seats must be positive"},
			{err: usecase.ErrSoldOut, status: http.StatusConflict, message: "not enough seats available"},
			{err: repository.ErrNotFound, status: http.StatusNotFound, message: "event not found"},
		}, http.StatusInternalServerError, "failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, newBookingResponse(*booking))
}

// listOwn returns the authenticated account's bookings.
func (h *BookingHandler) listOwn(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	bookings, err := h.bookings.ListForActor(c.Request.Context(), actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list bookings"))
		return
	}

	c.JSON(http.StatusOK, bookingResponses(bookings))
}

// listAll returns every booking in the system.
func (h *BookingHandler) listAll(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	bookings, err := h.bookings.ListAll(c.Request.Context(), actor)
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, bookingResponses(bookings))
}

// get returns a single booking visible to the actor.
func (h *BookingHandler) get(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient permissions"},
			{err: repository.ErrNotFound, status: http.StatusNotFound, message: "booking not found"},
		}, http.StatusInternalServerError, "failed to load booking")
		return
	}

	c.JSON(http.StatusOK, newBookingResponse(*booking))
}

// cancel voids a booking and releases its seats back to the event.
func (h *BookingHandler) cancel(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), actor, c.Param("id"), requestMeta(c))
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient permissions"},
			{err: usecase.ErrAlreadyCancelled, status: http.StatusConflict, message: "booking is already cancelled"},
			{err: repository.ErrNotFound, status: http.StatusNotFound, message: "booking not found"},
		}, http.StatusInternalServerError, "failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, newBookingResponse(*booking))
}

// createPaymentIntent opens a provider payment intent for a pending booking.
func (h *BookingHandler) createPaymentIntent(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	intent, err := h.payments.CreateIntent(c.Request.Context(), actor, c.Param("id"), requestMeta(c))
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient permissions"},
			{err: usecase.ErrBookingNotPayable, status: http.StatusConflict, message: "booking is not awaiting payment"},
			{err: repository.ErrNotFound, status: http.StatusNotFound, message: "booking not found"},
		}, http.StatusInternalServerError, "failed to create payment intent")
		return
	}

	c.JSON(http.StatusCreated, PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Status:          intent.Status,
	})
}

// paymentStatus returns the provider-side state of the booking's payment.
func (h *BookingHandler) paymentStatus(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	intent, err := h.payments.Status(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient permissions"},
			{err: usecase.ErrNoPaymentIntent, status: http.StatusNotFound, message: "no payment intent for this booking"},
			{err: repository.ErrNotFound, status: http.StatusNotFound, message: "booking not found"},
		}, http.StatusInternalServerError, "failed to load payment status")
		return
	}

	c.JSON(http.StatusOK, PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		Status:          intent.Status,
	})
}

func bookingResponses(bookings []domain.Booking) []BookingResponse {
	responses := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		responses = append(responses, newBookingResponse(booking))
	}
	return responses
}
