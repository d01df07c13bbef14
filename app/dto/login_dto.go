// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// LoginRequest represents the request payload for user login.
// Authority accounts must also solve a rotate captcha.
type LoginRequest struct {
	Email        string   `json:"email" validate:"required,email,max=255"`
	Password     string   `json:"password" validate:"required,min=8,max=100"`
	CaptchaID    *string  `json:"captcha_id,omitempty" validate:"omitempty,uuid4"`
	CaptchaAngle *float64 `json:"captcha_angle,omitempty" validate:"omitempty,gte=0,lte=360"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		TokenType    string      `json:"token_type"`
		ExpiresIn    int         `json:"expires_in"`
		Usuario      UsuarioInfo `json:"usuario"`
		ExpiresAt    time.Time   `json:"expires_at"`
	} `json:"data"`
}

// UsuarioInfo represents user information returned in login response
type UsuarioInfo struct {
	ID             uint   `json:"id"`
	UUID           string `json:"uuid"`
	Email          string `json:"email"`
	NombreCompleto string `json:"nombre_completo"`
	Rol            string `json:"rol"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at"`
}

// RefreshTokenRequest represents the request to rotate tokens
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CaptchaResponse carries a rotate captcha challenge
type CaptchaResponse struct {
	ChallengeID string `json:"challenge_id"`
	MasterImage string `json:"master_image"`
	ThumbImage  string `json:"thumb_image"`
}

// Common error codes for login operations
const (
	ErrorUserNotFound      = "USER_NOT_FOUND"
	ErrorIncorrectPassword = "INCORRECT_PASSWORD"
	ErrorAccountInactive   = "ACCOUNT_INACTIVE"
	ErrorCaptchaRequired   = "CAPTCHA_REQUIRED"
	ErrorCaptchaInvalid    = "CAPTCHA_INVALID"
)

func (dto *LoginResponse) SetUsuarioInfo(id uint, uuid, email, nombre, rol string, isActive bool, createdAt time.Time) {
	dto.Data.Usuario = UsuarioInfo{
		ID:             id,
		UUID:           uuid,
		Email:          email,
		NombreCompleto: nombre,
		Rol:            rol,
		IsActive:       isActive,
		CreatedAt:      createdAt.Format(time.RFC3339),
	}
}
