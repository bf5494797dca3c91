package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hlmaths/practice-backend/internal/middleware"
	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/progress"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/hlmaths/practice-backend/internal/response"
	"github.com/hlmaths/practice-backend/internal/service"
	"github.com/hlmaths/practice-backend/internal/validator"
)

// PracticeHandler handles attempt submission and progress queries.
type PracticeHandler struct {
	practiceService *service.PracticeService
	userService     *service.UserService
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(practiceService *service.PracticeService, userService *service.UserService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService, userService: userService}
}

// SubmitAttempt godoc
// POST /api/v1/practice/attempts
// Records a practice submission and returns the attempt plus the updated
// tree snapshot.
func (h *PracticeHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.practiceService.SubmitAttempt(c.Request.Context(), claims.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuestionUnknown):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, result)
}

// GetProgress godoc
// GET /api/v1/practice/progress
// Returns the serialized progress tree verbatim for progress-bar rendering.
func (h *PracticeHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snapshot, err := h.practiceService.GetProgress(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": snapshot})
}

// ListAttempts godoc
// GET /api/v1/practice/attempts
// Returns the flattened attempt list, most recently completed first.
func (h *PracticeHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.practiceService.ListAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if attempts == nil {
		attempts = []progress.Attempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetActivity godoc
// GET /api/v1/practice/activity?days=30
// Returns the user's per-day submission aggregates.
func (h *PracticeHandler) GetActivity(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		days = 30
	}

	activity, err := h.userService.RecentActivity(c.Request.Context(), claims.UserID, days)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if activity == nil {
		activity = []model.DailyActivity{}
	}

	response.Success(c, http.StatusOK, gin.H{"activity": activity})
}
