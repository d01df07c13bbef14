// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/services"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	usuarioRepo  repository.UsuarioRepository
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, usuarioRepo repository.UsuarioRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		usuarioRepo:  usuarioRepo,
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, errResp := m.validate(c)
		if errResp != nil {
			return errResp
		}

		// Store user information in context for downstream handlers
		c.Locals("usuario_id", claims.UsuarioID)
		c.Locals("rol", claims.Rol)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		if usuario, err := m.usuarioRepo.ByID(context.Background(), claims.UsuarioID); err == nil && usuario != nil {
			if !usuario.IsActive {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
					Success: false,
					Message: "Account is inactive",
					Error:   dto.ErrorDetail{Code: "ACCOUNT_INACTIVE"},
				})
			}
			c.Locals("usuario_nombre", usuario.NombreCompleto)
		}

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireAutoridad restricts an endpoint to authority accounts. It must run
// after Authenticate.
func (m *AuthMiddleware) RequireAutoridad() fiber.Handler {
	return func(c fiber.Ctx) error {
		rol, ok := c.Locals("rol").(models.RolUsuario)
		if !ok || rol != models.RolAutoridad {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "This operation requires an authority account",
				Error:   dto.ErrorDetail{Code: "AUTORIDAD_REQUIRED"},
			})
		}
		return c.Next()
	}
}

// OptionalAuth validates JWT tokens if present, but doesn't require them
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Next()
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			return c.Next()
		}

		c.Locals("usuario_id", claims.UsuarioID)
		c.Locals("rol", claims.Rol)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

func (m *AuthMiddleware) validate(c fiber.Ctx) (*services.TokenClaims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Authorization header is required",
			Error:   dto.ErrorDetail{Code: "MISSING_AUTHORIZATION_HEADER"},
		})
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Invalid authorization header format. Expected 'Bearer <token>'",
			Error:   dto.ErrorDetail{Code: "INVALID_AUTHORIZATION_FORMAT"},
		})
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Access token is required",
			Error:   dto.ErrorDetail{Code: "MISSING_ACCESS_TOKEN"},
		})
	}

	claims, err := m.tokenService.ValidateToken(token)
	if err != nil {
		var errorCode string
		var message string

		if errors.Is(err, services.ErrTokenExpired) {
			errorCode = "TOKEN_EXPIRED"
			message = "Access token has expired"
		} else if errors.Is(err, services.ErrTokenInvalid) {
			errorCode = "TOKEN_INVALID"
			message = "Invalid access token"
		} else if errors.Is(err, services.ErrTokenRevoked) {
			errorCode = "TOKEN_REVOKED"
			message = "Access token has been revoked"
		} else {
			errorCode = "TOKEN_VALIDATION_FAILED"
			message = "Token validation failed"
		}

		return nil, c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error:   dto.ErrorDetail{Code: errorCode},
		})
	}

	return claims, nil
}

// GetUsuarioIDFromContext extracts the account id from the request context
func GetUsuarioIDFromContext(c fiber.Ctx) (uint, bool) {
	usuarioID, ok := c.Locals("usuario_id").(uint)
	return usuarioID, ok
}

// GetUsuarioNombreFromContext extracts the account's full name from the
// request context
func GetUsuarioNombreFromContext(c fiber.Ctx) (string, bool) {
	nombre, ok := c.Locals("usuario_nombre").(string)
	return nombre, ok
}

// GetRolFromContext extracts the account role from the request context
func GetRolFromContext(c fiber.Ctx) (models.RolUsuario, bool) {
	rol, ok := c.Locals("rol").(models.RolUsuario)
	return rol, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
