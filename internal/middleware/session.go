package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlmaths/practice-backend/internal/response"
	"github.com/hlmaths/practice-backend/internal/service"
)

// CheckActiveSession validates the JWT's JTI against the active session in
// Redis. A mismatch means the user logged in elsewhere, logged out, or an
// admin reset the session; the token is rejected even though its signature
// is still valid.
func CheckActiveSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.ValidateSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
