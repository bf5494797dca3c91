package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlmaths/practice-backend/internal/middleware"
	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/hlmaths/practice-backend/internal/response"
	"github.com/hlmaths/practice-backend/internal/service"
	"github.com/hlmaths/practice-backend/internal/validator"
)

// AuthHandler handles registration, verification and login endpoints.
type AuthHandler struct {
	authService   *service.AuthService
	userService   *service.UserService
	verifyService *service.VerificationService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	userService *service.UserService,
	verifyService *service.VerificationService,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		userService:   userService,
		verifyService: verifyService,
	}
}

// Register godoc
// POST /api/v1/auth/register
// Creates an unverified account and emails a verification code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if err := h.verifyService.Issue(c.Request.Context(), user.Email, model.PurposeEmailVerification); err != nil {
		// The account exists; the user can request a fresh code later.
		response.Success(c, http.StatusCreated, gin.H{"user": user, "code_sent": false})
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user, "code_sent": true})
}

// VerifyEmail godoc
// POST /api/v1/auth/verify-email
// Confirms an account with the emailed code.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req model.VerifyEmailRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ok, err := h.verifyService.Verify(c.Request.Context(), req.Email, model.PurposeEmailVerification, req.Code)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !ok {
		// Wrong, expired, locked and unknown codes all land here.
		response.Fail(c, http.StatusUnauthorized, response.ErrCodeInvalid)
		return
	}

	if err := h.userService.MarkEmailVerified(c.Request.Context(), req.Email); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.userService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(user.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if !user.EmailVerified {
		response.Fail(c, http.StatusForbidden, response.ErrEmailNotVerified)
		return
	}

	token, err := h.authService.GenerateToken(c.Request.Context(), user.ID, user.Role)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.LoginResponse{Token: token, User: *user})
}

// Logout godoc
// POST /api/v1/auth/logout
// Invalidates the active session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// RequestCode godoc
// POST /api/v1/auth/request-code
// Issues a verification code for the given purpose. Always responds with
// success so callers cannot probe which addresses have accounts.
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req model.RequestCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.userService.GetByEmail(c.Request.Context(), req.Email); err == nil {
		_ = h.verifyService.Issue(c.Request.Context(), req.Email, req.Purpose)
	}

	response.Success(c, http.StatusOK, gin.H{"code_sent": true})
}

// ResetPassword godoc
// POST /api/v1/auth/reset-password
// Sets a new password, gated by a password_reset code.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ok, err := h.verifyService.Verify(c.Request.Context(), req.Email, model.PurposePasswordReset, req.Code)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrCodeInvalid)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if err := h.userService.SetPassword(c.Request.Context(), req.Email, hash); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Outstanding sessions keep their validity window; the password change
	// only affects future logins.
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
