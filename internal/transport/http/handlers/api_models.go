package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/securticket/securticket/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with the trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// AccountSummary is the public view of an account.
type AccountSummary struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Phone     *string     `json:"phone,omitempty"`
	FirstName string      `json:"first_name,omitempty"`
	LastName  string      `json:"last_name,omitempty"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	LastLogin *time.Time  `json:"last_login,omitempty"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Phone:     account.Phone,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.Role,
		CreatedAt: account.CreatedAt,
		LastLogin: account.LastLogin,
	}
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	Account     AccountSummary `json:"account"`
}

// ChangePasswordRequest defines the password change payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PasswordStrengthRequest carries a candidate password for scoring.
type PasswordStrengthRequest struct {
	Password string `json:"password" binding:"required"`
}

// EventRequest defines the payload for creating or updating an event.
type EventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Category    string    `json:"category" binding:"required"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	TotalSeats  int       `json:"total_seats"`
	PriceMinor  int64     `json:"price_minor"`
	Currency    string    `json:"currency"`
}

// EventResponse is the public view of a catalog event.
type EventResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category"`
	Venue          string    `json:"venue,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	PriceMinor     int64     `json:"price_minor"`
	Currency       string    `json:"currency"`
}

func newEventResponse(event domain.Event) EventResponse {
	return EventResponse{
		ID:             event.ID,
		Title:          event.Title,
		Description:    event.Description,
		Category:       string(event.Category),
		Venue:          event.Venue,
		StartsAt:       event.StartsAt,
		TotalSeats:     event.TotalSeats,
		AvailableSeats: event.AvailableSeats,
		PriceMinor:     event.PriceMinor,
		Currency:       event.Currency,
	}
}

// ResizeRequest defines the capacity change payload.
type ResizeRequest struct {
	TotalSeats int `json:"total_seats" binding:"required"`
}

// ResizeResponse reports the counters after a capacity change.
type ResizeResponse struct {
	TotalSeats     int  `json:"total_seats"`
	AvailableSeats int  `json:"available_seats"`
	Oversold       bool `json:"oversold"`
}

// BookingRequest defines the payload for creating a booking.
type BookingRequest struct {
	EventID string `json:"event_id" binding:"required"`
	Seats   int    `json:"seats" binding:"required"`
}

// BookingResponse is the public view of a booking.
type BookingResponse struct {
	ID              string    `json:"id"`
	Reference       string    `json:"reference"`
	EventID         string    `json:"event_id"`
	AccountID       string    `json:"account_id"`
	Seats           int       `json:"seats"`
	TotalPriceMinor int64     `json:"total_price_minor"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newBookingResponse(booking domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              booking.ID,
		Reference:       booking.Reference,
		EventID:         booking.EventID,
		AccountID:       booking.AccountID,
		Seats:           booking.SeatsBooked,
		TotalPriceMinor: booking.TotalPriceMinor,
		Currency:        booking.Currency,
		Status:          string(booking.Status),
		PaymentIntentID: booking.PaymentIntentID,
		CreatedAt:       booking.CreatedAt,
		UpdatedAt:       booking.UpdatedAt,
	}
}

// PaymentIntentResponse carries the provider intent handle back to the client.
type PaymentIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret,omitempty"`
	Status          string `json:"status"`
}

// AuditEntryResponse is the operator view of an audit entry.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	AccountID *string        `json:"account_id,omitempty"`
	Action    string         `json:"action"`
	SourceIP  string         `json:"source_ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func newAuditEntryResponse(entry domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        entry.ID,
		AccountID: entry.AccountID,
		Action:    entry.Action,
		SourceIP:  entry.SourceIP,
		UserAgent: entry.UserAgent,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	}
}
