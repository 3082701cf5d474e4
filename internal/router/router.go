package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/opopir/opopir-backend/internal/config"
	"github.com/opopir/opopir-backend/internal/handler"
	"github.com/opopir/opopir-backend/internal/middleware"
	"github.com/opopir/opopir-backend/internal/response"
	"github.com/opopir/opopir-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Exam      *handler.ExamHandler
	Review    *handler.ReviewHandler
	ErrorBank *handler.ErrorBankHandler
	WS        *handler.WSHandler
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the login route (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.GetProfile)
	}

	// ─── 2. Catalog Group ──────────────────────────────────────────────
	catalog := router.Group("/api/v1/catalog")
	catalog.Use(middleware.RequireJWT(authService))
	{
		catalog.GET("/scales", handlers.Catalog.GetScales)
	}

	// ─── 3. Exam Group ─────────────────────────────────────────────────
	exams := router.Group("/api/v1/exams")
	exams.Use(middleware.RequireJWT(authService))
	{
		exams.POST("", handlers.Exam.StartExam)
		exams.GET("", handlers.Exam.GetHistory)
		exams.GET("/active", handlers.Exam.GetActive)
		exams.GET("/:session_id/state", handlers.Exam.GetState)
		exams.GET("/:session_id/paper", handlers.Exam.GetPaper)
		exams.PUT("/:session_id/answers/:position", handlers.Exam.PutAnswer)
		exams.POST("/:session_id/submit", handlers.Exam.Submit)
		exams.GET("/:session_id/review", handlers.Review.GetReview)
	}

	// ─── 4. Error Bank Group ───────────────────────────────────────────
	errorsAPI := router.Group("/api/v1/errors")
	errorsAPI.Use(middleware.RequireJWT(authService))
	{
		errorsAPI.GET("", handlers.ErrorBank.GetErrors)
	}

	// ─── 5. WebSocket Group (Query-Token Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/exams/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
