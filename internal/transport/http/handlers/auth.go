package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/securticket/securticket/internal/infra/security"
	"github.com/securticket/securticket/internal/transport/http/middleware"
	"github.com/securticket/securticket/internal/usecase"
)

// AuthHandler exposes authentication and account endpoints.
type AuthHandler struct {
	auth     *usecase.AuthService
	accounts *usecase.AccountService
	tokens   *security.TokenManager
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, accounts *usecase.AccountService, tokens *security.TokenManager) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		accounts: accounts,
		tokens:   tokens,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	r.POST("/register", h.register)

	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/password/strength", h.passwordStrength)

	authed := r.Group("")
	authed.Use(middleware.RequireAuth(h.tokens))
	authed.GET("/me", h.me)
	authed.POST("/password/change", h.changePassword)
}

// register creates a new customer account.
func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegisterInput{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Password:  req.Password,
	}

	account, err := h.accounts.Register(c.Request.Context(), input, requestMeta(c))
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Error()))
			return
		}
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrUsernameTaken, status: http.StatusConflict, message: "username already registered"},
		}, http.StatusInternalServerError, "failed to register account")
		return
	}

	c.JSON(http.StatusCreated, newAccountSummary(*account))
}

// login exchanges credentials for an access token.
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, requestMeta(c))
	if err != nil {
		var lockedErr *usecase.AccountLockedError
		if errors.As(err, &lockedErr) {
			retryAfter := int(lockedErr.Remaining.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusLocked, NewErrorResponse(c, lockedErr.Error()))
			return
		}
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrInvalidCredentials, status: http.StatusUnauthorized, message: "invalid username or password"},
		}, http.StatusInternalServerError, "failed to sign in")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(result.TokenTTL.Seconds()),
		Account:     newAccountSummary(result.Account),
	})
}

// me returns the profile of the authenticated account.
func (h *AuthHandler) me(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.accounts.GetProfile(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load profile"))
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// changePassword rotates the authenticated account's password.
func (h *AuthHandler) changePassword(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password change payload"))
		return
	}

	err := h.accounts.ChangePassword(c.Request.Context(), actor.ID, req.OldPassword, req.NewPassword, requestMeta(c))
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Error()))
			return
		}
		respondMapped(c, err, []errorCase{
			{err: usecase.ErrWrongOldPassword, status: http.StatusBadRequest, message: "old password is incorrect"},
			{err: usecase.ErrPasswordReused, status: http.StatusBadRequest, message: "password was used recently, choose a different one"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// passwordStrength scores a candidate password without persisting anything.
func (h *AuthHandler) passwordStrength(c *gin.Context) {
	var req PasswordStrengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	c.JSON(http.StatusOK, h.accounts.PasswordStrength(req.Password))
}

// requestMeta extracts client metadata for audit trail purposes.
func requestMeta(c *gin.Context) usecase.RequestMeta {
	return middleware.GetRequestContext(c).Meta()
}
