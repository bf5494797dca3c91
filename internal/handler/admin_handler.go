package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/response"
	"github.com/hlmaths/practice-backend/internal/service"
)

// AdminHandler handles user administration endpoints.
type AdminHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(userService *service.UserService, authService *service.AuthService) *AdminHandler {
	return &AdminHandler{userService: userService, authService: authService}
}

// ListUsers godoc
// GET /api/v1/admin/users?page=&per_page=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, perPage := parsePagination(c)

	users, total, err := h.userService.List(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if users == nil {
		users = []model.User{}
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"users": users}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// ResetUserSession godoc
// DELETE /api/v1/admin/users/:id/session
// Invalidates a user's active session, forcing a fresh login.
func (h *AdminHandler) ResetUserSession(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.authService.ResetSession(c.Request.Context(), userID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
