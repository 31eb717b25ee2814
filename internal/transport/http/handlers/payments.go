package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/securticket/securticket/internal/infra/payment"
	"github.com/securticket/securticket/internal/usecase"
)

// PaymentHandler receives provider webhook callbacks. The endpoint is
// unauthenticated; trust comes from the signature on the payload.
type PaymentHandler struct {
	payments *usecase.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *usecase.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RegisterRoutes binds the webhook route.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhook", h.webhook)
}

// webhook verifies and applies a provider event. The raw body is passed to
// verification untouched; any re-serialization would break the signature.
func (h *PaymentHandler) webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to read webhook body"))
		return
	}

	signature := c.GetHeader("Stripe-Signature")

	err = h.payments.HandleWebhook(c.Request.Context(), payload, signature, requestMeta(c))
	if err != nil {
		respondMapped(c, err, []errorCase{
			{err: payment.ErrInvalidSignature, status: http.StatusBadRequest, message: "invalid webhook signature"},
			{err: payment.ErrMalformedPayload, status: http.StatusBadRequest, message: "malformed webhook payload"},
		}, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "received"})
}
