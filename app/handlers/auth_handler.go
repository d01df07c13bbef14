// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"time"

	"github.com/nemaec/obra-erp/app/dto"
	businessflow "github.com/nemaec/obra-erp/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	RefreshToken(c fiber.Ctx) error
	Captcha(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	loginFlow businessflow.LoginFlow
	validator *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(loginFlow businessflow.LoginFlow) *AuthHandler {
	return &AuthHandler{
		loginFlow: loginFlow,
		validator: validator.New(),
	}
}

// Login handles user authentication
// @Summary User Login
// @Description Authenticate a monitor or authority account with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Login successful with tokens"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication failed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	metadata := clientMetadata(c)

	result, err := h.loginFlow.Login(createRequestContext(c, "/api/v1/auth/login"), &req, metadata)
	if err != nil {
		if businessflow.IsUsuarioNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		if businessflow.IsAccountInactive(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Account is inactive", dto.ErrorAccountInactive, nil)
		}
		if businessflow.IsIncorrectPassword(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Incorrect password", dto.ErrorIncorrectPassword, nil)
		}
		if businessflow.IsCaptchaRequired(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Captcha challenge is required for authority accounts", dto.ErrorCaptchaRequired, nil)
		}
		if businessflow.IsCaptchaInvalid(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Captcha verification failed", dto.ErrorCaptchaInvalid, nil)
		}

		log.Println("Login failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result.Data)
}

// RefreshToken exchanges a refresh token for a new token pair
// @Summary Refresh Tokens
// @Description Exchange a valid refresh token for new access and refresh tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Tokens refreshed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	metadata := clientMetadata(c)

	result, err := h.loginFlow.RefreshTokens(createRequestContext(c, "/api/v1/auth/refresh"), &req, metadata)
	if err != nil {
		if businessflow.IsUsuarioNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		if businessflow.IsAccountInactive(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Account is inactive", dto.ErrorAccountInactive, nil)
		}

		log.Println("Token refresh failed", err)
		return errorResponse(c, fiber.StatusUnauthorized, "Token refresh failed", "TOKEN_REFRESH_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result.Data)
}

// Captcha issues a rotate-captcha challenge for authority login
// @Summary Captcha Challenge
// @Description Generate a rotate-captcha challenge required on authority logins
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaResponse} "Challenge generated"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/captcha [get]
func (h *AuthHandler) Captcha(c fiber.Ctx) error {
	result, err := h.loginFlow.GenerateCaptcha(createRequestContext(c, "/api/v1/auth/captcha"))
	if err != nil {
		log.Println("Captcha generation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Captcha generation failed", "CAPTCHA_GENERATION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Captcha challenge generated", result)
}

// Health handles health check requests
// @Summary Health Check
// @Description Check the health status of the API
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Service is healthy"
// @Router /api/v1/health [get]
func (h *AuthHandler) Health(c fiber.Ctx) error {
	return successResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
