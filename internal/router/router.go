package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/handler"
	"github.com/hlmaths/practice-backend/internal/middleware"
	"github.com/hlmaths/practice-backend/internal/response"
	"github.com/hlmaths/practice-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Practice *handler.PracticeHandler
	Question *handler.QuestionHandler
	Admin    *handler.AdminHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes: generous enough for normal flows,
	// tight enough to blunt code guessing and email spamming.
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/verify-email", handlers.Auth.VerifyEmail)
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/request-code", handlers.Auth.RequestCode)
		auth.POST("/reset-password", handlers.Auth.ResetPassword)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Practice Group (JWT + Active Session) ──────────────────────
	practiceAPI := router.Group("/api/v1/practice")
	practiceAPI.Use(
		middleware.RequireJWT(authService),
		middleware.CheckActiveSession(authService),
	)
	{
		practiceAPI.GET("/questions", handlers.Question.ListQuestions)
		practiceAPI.GET("/questions/random", handlers.Question.GetRandomQuestions)
		practiceAPI.GET("/questions/:id", handlers.Question.GetQuestion)
		practiceAPI.GET("/topics", handlers.Question.ListTopics)

		practiceAPI.POST("/attempts", handlers.Practice.SubmitAttempt)
		practiceAPI.GET("/attempts", handlers.Practice.ListAttempts)
		practiceAPI.GET("/progress", handlers.Practice.GetProgress)
		practiceAPI.GET("/activity", handlers.Practice.GetActivity)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/progress/stream", handlers.WS.ProgressStream)
	}

	// ─── 4. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireJWT(authService), middleware.RequireAdmin())
	{
		adminAPI.POST("/questions", handlers.Question.CreateQuestion)
		adminAPI.PUT("/questions/:id", handlers.Question.UpdateQuestion)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeleteQuestion)

		adminAPI.GET("/users", handlers.Admin.ListUsers)
		adminAPI.DELETE("/users/:id/session", handlers.Admin.ResetUserSession)
	}

	return router
}
