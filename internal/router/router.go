package router

import (
	"net/http"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/handler"
	"github.com/examarena/examarena-backend/internal/middleware"
	"github.com/examarena/examarena-backend/internal/response"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Catalog     *handler.CatalogHandler
	Attempt     *handler.AttemptHandler
	Leaderboard *handler.LeaderboardHandler
	Profile     *handler.ProfileHandler
	AdminExam   *handler.AdminExamHandler
	Dashboard   *handler.DashboardHandler
	WS          *handler.WSHandler
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

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve uploaded profile pictures statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Authenticated Group (JWT + Single Session) ─────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireAuth(authService),
		middleware.CheckSession(authService),
	)
	{
		// Exam catalog
		api.GET("/exams", handlers.Catalog.ListExams)
		api.GET("/exams/:exam_id", handlers.Catalog.GetExam)

		// Attempts
		api.POST("/exams/:exam_id/attempts", handlers.Attempt.Start)
		api.GET("/exams/:exam_id/attempts/me/paper", handlers.Attempt.GetPaper)
		api.GET("/exams/:exam_id/attempts/me/state", handlers.Attempt.GetState)
		api.PUT("/exams/:exam_id/attempts/me/answers", handlers.Attempt.Autosave)
		api.POST("/exams/:exam_id/attempts/me/submit", handlers.Attempt.Submit)
		api.GET("/exams/:exam_id/attempts/me/result", handlers.Attempt.Result)
		api.GET("/me/attempts", handlers.Attempt.ListMine)

		// Leaderboard
		api.GET("/leaderboard", handlers.Leaderboard.Top)

		// Profile self-service
		api.GET("/me/profile", handlers.Auth.Me)
		api.PUT("/me/profile", handlers.Profile.Update)
		api.PUT("/me/password", handlers.Profile.UpdatePassword)
		api.POST("/me/profile/picture", handlers.Profile.UploadPicture)
	}

	// ─── 3. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.ExamStream)
	}

	// ─── 4. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireAuth(authService),
		middleware.CheckSession(authService),
		middleware.RequireAdmin(),
	)
	{
		// Dashboard
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboard)

		// Exam management
		adminAPI.GET("/exams", handlers.AdminExam.List)
		adminAPI.POST("/exams", handlers.AdminExam.Create)
		adminAPI.GET("/exams/:exam_id", handlers.AdminExam.Get)
		adminAPI.PUT("/exams/:exam_id", handlers.AdminExam.Update)
		adminAPI.DELETE("/exams/:exam_id", handlers.AdminExam.Delete)
		adminAPI.POST("/exams/:exam_id/publish", handlers.AdminExam.Publish)
		adminAPI.POST("/exams/:exam_id/announce", handlers.AdminExam.AnnounceResults)

		// Question management
		adminAPI.GET("/exams/:exam_id/questions", handlers.AdminExam.ListQuestions)
		adminAPI.POST("/exams/:exam_id/questions", handlers.AdminExam.AddQuestion)
		adminAPI.DELETE("/exams/:exam_id/questions/:question_id", handlers.AdminExam.DeleteQuestion)

		// Results table
		adminAPI.GET("/exams/:exam_id/attempts", handlers.AdminExam.ListAttempts)
	}

	return router
}
