// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/services"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginFlow handles user authentication operations
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshTokens(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	GenerateCaptcha(ctx context.Context) (*dto.CaptchaResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	usuarioRepo  repository.UsuarioRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	captchaSvc   services.CaptchaService
	db           *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	usuarioRepo repository.UsuarioRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	captchaSvc services.CaptchaService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		usuarioRepo:  usuarioRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		captchaSvc:   captchaSvc,
		db:           db,
	}
}

// Login authenticates a user with email and password. Authority accounts
// must also pass a rotate captcha before the password is even checked.
func (lf *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	var usuario *models.Usuario

	resp, err := runInTransaction(ctx, lf.db, func(ctx context.Context) (*dto.LoginResponse, error) {
		var err error
		usuario, err = lf.usuarioRepo.ByEmail(ctx, request.Email)
		if err != nil {
			return nil, err
		}
		if usuario == nil {
			return nil, ErrUsuarioNotFound
		}

		if !usuario.IsActive {
			return nil, ErrAccountInactive
		}

		if usuario.EsAutoridad() && lf.captchaSvc != nil {
			if request.CaptchaID == nil || request.CaptchaAngle == nil {
				return nil, ErrCaptchaRequired
			}
			if !lf.captchaSvc.VerifyRotate(ctx, *request.CaptchaID, *request.CaptchaAngle) {
				return nil, ErrCaptchaInvalid
			}
		}

		if err := bcrypt.CompareHashAndPassword([]byte(usuario.PasswordHash), []byte(request.Password)); err != nil {
			return nil, ErrIncorrectPassword
		}

		if err := lf.usuarioRepo.UpdateLastLogin(ctx, usuario.ID, utils.UTCNow()); err != nil {
			return nil, err
		}

		return lf.buildLoginResponse(*usuario)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = lf.LogLoginAttempt(ctx, usuario, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("User logged in successfully: %d", resp.Data.Usuario.ID)
	_ = lf.LogLoginAttempt(ctx, usuario, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return resp, nil
}

// RefreshTokens rotates an access/refresh token pair
func (lf *LoginFlowImpl) RefreshTokens(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	accessToken, refreshToken, err := lf.tokenService.RefreshToken(request.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", err)
	}

	claims, err := lf.tokenService.ValidateToken(accessToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", err)
	}

	usuario, err := lf.usuarioRepo.ByID(ctx, claims.UsuarioID)
	if err != nil {
		return nil, err
	}
	if usuario == nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", ErrUsuarioNotFound)
	}
	if !usuario.IsActive {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", ErrAccountInactive)
	}

	resp := &dto.LoginResponse{
		Success: true,
		Message: "Tokens refreshed",
	}
	resp.Data.AccessToken = accessToken
	resp.Data.RefreshToken = refreshToken
	resp.Data.TokenType = "Bearer"
	resp.Data.ExpiresIn = utils.AccessTokenTTLSeconds
	resp.Data.ExpiresAt = utils.UTCNowAdd(utils.AccessTokenTTL)
	resp.SetUsuarioInfo(usuario.ID, usuario.UUID.String(), usuario.Email, usuario.NombreCompleto, usuario.Rol.String(), usuario.IsActive, usuario.CreatedAt)

	return resp, nil
}

// GenerateCaptcha creates a rotate captcha challenge for authority logins
func (lf *LoginFlowImpl) GenerateCaptcha(ctx context.Context) (*dto.CaptchaResponse, error) {
	if lf.captchaSvc == nil {
		return nil, ErrCacheNotAvailable
	}
	challenge, err := lf.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_GENERATION_FAILED", "Captcha generation failed", err)
	}
	return &dto.CaptchaResponse{
		ChallengeID: challenge.ID,
		MasterImage: challenge.MasterImageBase64,
		ThumbImage:  challenge.ThumbImageBase64,
	}, nil
}

func (lf *LoginFlowImpl) buildLoginResponse(usuario models.Usuario) (*dto.LoginResponse, error) {
	accessToken, refreshToken, err := lf.tokenService.GenerateTokens(usuario.ID, usuario.Rol)
	if err != nil {
		return nil, err
	}

	resp := &dto.LoginResponse{
		Success: true,
		Message: "Login successful",
	}
	resp.Data.AccessToken = accessToken
	resp.Data.RefreshToken = refreshToken
	resp.Data.TokenType = "Bearer"
	resp.Data.ExpiresIn = utils.AccessTokenTTLSeconds
	resp.Data.ExpiresAt = utils.UTCNowAdd(utils.AccessTokenTTL)
	resp.Data.Usuario = ToUsuarioInfo(usuario)

	return resp, nil
}

func (lf *LoginFlowImpl) LogLoginAttempt(ctx context.Context, usuario *models.Usuario, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	var usuarioID *uint
	if usuario != nil {
		usuarioID = &usuario.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UsuarioID:    usuarioID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return lf.auditRepo.Save(ctx, audit)
}
