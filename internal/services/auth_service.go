package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/scolarfaso/backend/internal/config"
	"github.com/scolarfaso/backend/internal/models"
	jwtpkg "github.com/scolarfaso/backend/pkg/jwt"
	"gorm.io/gorm"
)

// AuthService is the caller-side orchestration around the OTP service: it
// ties verification outcomes to the user directory and to token issuance.
type AuthService struct {
	db          *gorm.DB
	redis       *redis.Client
	cfg         *config.Config
	otpService  *OTPService
	userService *UserService
}

func NewAuthService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, otpService *OTPService, userService *UserService) *AuthService {
	return &AuthService{
		db:          db,
		redis:       redisClient,
		cfg:         cfg,
		otpService:  otpService,
		userService: userService,
	}
}

// RequestLoginOTP issues a login code for an existing, active account.
func (a *AuthService) RequestLoginOTP(phoneNumber string) (*OTPResult, error) {
	user, err := a.userService.GetUserByPhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDeactivated
	}
	return a.otpService.RequestOTP(phoneNumber, models.PurposeLogin)
}

// VerifyLoginOTP verifies a login code and, on success, issues an access and
// a refresh token. The refresh token is persisted so it can be revoked.
func (a *AuthService) VerifyLoginOTP(phoneNumber, code string) (string, string, *models.User, error) {
	user, err := a.userService.GetUserByPhone(phoneNumber)
	if err != nil {
		return "", "", nil, err
	}
	if !user.IsActive {
		return "", "", nil, ErrUserDeactivated
	}

	if err := a.otpService.VerifyOTP(phoneNumber, code, models.PurposeLogin); err != nil {
		return "", "", nil, err
	}

	accessToken, err := jwtpkg.GenerateToken(user.ID.String(), user.Role, jwtpkg.AccessToken, a.cfg.JWTSecret, a.cfg.JWTAccessTokenDuration)
	if err != nil {
		return "", "", nil, err
	}

	refreshToken, err := jwtpkg.GenerateToken(user.ID.String(), user.Role, jwtpkg.RefreshToken, a.cfg.JWTSecret, a.cfg.JWTRefreshTokenDuration)
	if err != nil {
		return "", "", nil, err
	}

	refreshTokenModel := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(a.cfg.JWTRefreshTokenDuration),
	}
	if err := a.db.Create(refreshTokenModel).Error; err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return accessToken, refreshToken, user, nil
}

// RequestPasswordResetOTP issues a password_reset code for an existing account.
func (a *AuthService) RequestPasswordResetOTP(phoneNumber string) (*OTPResult, error) {
	if _, err := a.userService.GetUserByPhone(phoneNumber); err != nil {
		return nil, err
	}
	return a.otpService.RequestOTP(phoneNumber, models.PurposePasswordReset)
}

// ResetPassword verifies a password_reset code then stores the new password.
func (a *AuthService) ResetPassword(phoneNumber, code, newPassword string) error {
	user, err := a.userService.GetUserByPhone(phoneNumber)
	if err != nil {
		return err
	}

	if err := a.otpService.VerifyOTP(phoneNumber, code, models.PurposePasswordReset); err != nil {
		return err
	}

	return a.userService.SetPassword(user.ID, newPassword)
}

// RefreshToken generates a new access token from a valid refresh token.
func (a *AuthService) RefreshToken(refreshToken string) (string, error) {
	claims, err := jwtpkg.ValidateToken(refreshToken, a.cfg.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token")
	}
	if claims.TokenType != jwtpkg.RefreshToken {
		return "", fmt.Errorf("invalid token type")
	}

	var tokenModel models.RefreshToken
	if err := a.db.Where("token = ?", refreshToken).First(&tokenModel).Error; err != nil {
		return "", fmt.Errorf("refresh token not found")
	}
	if time.Now().After(tokenModel.ExpiresAt) {
		return "", fmt.Errorf("refresh token expired")
	}

	return jwtpkg.GenerateToken(claims.UserID, claims.Role, jwtpkg.AccessToken, a.cfg.JWTSecret, a.cfg.JWTAccessTokenDuration)
}

// Logout invalidates all refresh tokens for a user.
func (a *AuthService) Logout(userID uuid.UUID) error {
	return a.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

// ValidateAccessToken validates an access token and returns its claims.
func (a *AuthService) ValidateAccessToken(token string) (*jwtpkg.Claims, error) {
	claims, err := jwtpkg.ValidateToken(token, a.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwtpkg.AccessToken {
		return nil, fmt.Errorf("invalid token type")
	}

	// Blacklist probe is best effort. If Redis is down the request proceeds.
	ctx := context.Background()
	blacklistKey := fmt.Sprintf("blacklist:token:%s", token)
	exists, err := a.redis.Exists(ctx, blacklistKey).Result()
	if err != nil {
		log.Printf("WARN: Could not connect to Redis to check token blacklist: %v", err)
	} else if exists > 0 {
		return nil, fmt.Errorf("token is blacklisted")
	}

	return claims, nil
}

// CleanupExpiredTokens removes expired refresh tokens.
func (a *AuthService) CleanupExpiredTokens() error {
	return a.db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}
