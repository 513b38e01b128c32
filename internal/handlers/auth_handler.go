package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scolarfaso/backend/internal/models"
	"github.com/scolarfaso/backend/internal/services"
	"github.com/scolarfaso/backend/pkg/validation"
)

type AuthHandler struct {
	authService  *services.AuthService
	otpService   *services.OTPService
	userService  *services.UserService
	auditService *services.AuditService
}

func NewAuthHandler(authService *services.AuthService, otpService *services.OTPService, userService *services.UserService, auditService *services.AuditService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		otpService:   otpService,
		userService:  userService,
		auditService: auditService,
	}
}

// otpErrorResponse maps the service error taxonomy to a status and a stable
// machine-readable code. Clients key on the code field, statuses are
// advisory.
func otpErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPhoneFormat):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_phone_format", "error": "Invalid phone number format"})
	case errors.Is(err, services.ErrInvalidPurpose):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_purpose", "error": "Unknown OTP purpose"})
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"code": "rate_limited", "error": "Too many codes requested. Please wait a few minutes."})
	case errors.Is(err, services.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_code", "error": "Invalid code"})
	case errors.Is(err, services.ErrExpired):
		c.JSON(http.StatusBadRequest, gin.H{"code": "expired", "error": "Code expired. Please request a new one."})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "user_not_found", "error": "No account for this phone number"})
	case errors.Is(err, services.ErrUserDeactivated):
		c.JSON(http.StatusForbidden, gin.H{"code": "account_deactivated", "error": "Account is deactivated"})
	case errors.Is(err, services.ErrStore):
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "store_error", "error": "Service temporarily unavailable"})
	case errors.Is(err, services.ErrSend):
		c.JSON(http.StatusBadGateway, gin.H{"code": "send_error", "error": "Could not send the SMS. Please try again."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "error": "Internal error"})
	}
}

func otpResultBody(result *services.OTPResult) gin.H {
	body := gin.H{
		"success":    true,
		"expires_at": result.ExpiresAt,
	}
	if result.DebugCode != "" {
		body["debug_code"] = result.DebugCode
	}
	return body
}

// RequestOTP issues a code for any purpose (generic endpoint used by the
// mobile app for phone verification and payment confirmation).
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone" binding:"required"`
		Purpose string `json:"purpose" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purpose := models.OtpPurpose(req.Purpose)
	result, err := h.otpService.RequestOTP(req.Phone, purpose)
	h.auditService.RecordResult("otp_request", req.Phone, req.Purpose, err, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		otpErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, otpResultBody(result))
}

// VerifyOTP checks a code for any purpose.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone" binding:"required"`
		Code    string `json:"code" binding:"required"`
		Purpose string `json:"purpose" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validation.ValidateOTPCode(req.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_code", "error": "Invalid code"})
		return
	}

	err := h.otpService.VerifyOTP(req.Phone, req.Code, models.OtpPurpose(req.Purpose))
	h.auditService.RecordResult("otp_verify", req.Phone, req.Purpose, err, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		otpErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// Login requests a login code for an existing account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.RequestLoginOTP(req.Phone)
	h.auditService.RecordResult("login_request", req.Phone, string(models.PurposeLogin), err, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		otpErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, otpResultBody(result))
}

// LoginVerify exchanges a valid login code for tokens.
func (h *AuthHandler) LoginVerify(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, refreshToken, user, err := h.authService.VerifyLoginOTP(req.Phone, req.Code)
	h.auditService.RecordResult("login", req.Phone, string(models.PurposeLogin), err, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		otpErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": gin.H{
			"id":        user.ID,
			"phone":     user.Phone,
			"name":      user.Name,
			"role":      user.Role,
			"school_id": user.SchoolID,
		},
	})
}

// ForgotPassword requests a password_reset code.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.RequestPasswordResetOTP(req.Phone)
	h.auditService.RecordResult("password_forgot", req.Phone, string(models.PurposePasswordReset), err, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		otpErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, otpResultBody(result))
}

// ResetPassword verifies a password_reset code and stores the new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Phone       string `json:"phone" binding:"required"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validation.ValidatePassword(req.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must contain at least one uppercase letter, one lowercase letter and one number"})
		return
	}

	err := h.authService.ResetPassword(req.Phone, req.Code, req.NewPassword)
	h.auditService.RecordResult("password_reset", req.Phone, string(models.PurposePasswordReset), err, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		otpErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.authService.Logout(userID.(uuid.UUID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}
