package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pollsite/poll-api/internal/auth"
	"github.com/pollsite/poll-api/internal/config"
	"github.com/pollsite/poll-api/internal/handlers"
	"github.com/pollsite/poll-api/internal/logger"
	authmw "github.com/pollsite/poll-api/internal/middleware/auth"
	"github.com/pollsite/poll-api/internal/middleware/events"
	"github.com/pollsite/poll-api/internal/services"
	"github.com/pollsite/poll-api/internal/storage"
	"github.com/pollsite/poll-api/internal/storage/objectstore"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	repos      storage.Container
	blobs      objectstore.ImageStore
	tokens     *auth.TokenIssuer
}

// New creates a new server instance
func New(cfg *config.Config, repos storage.Container, blobs objectstore.ImageStore, tokens *auth.TokenIssuer) *Server {
	return &Server{
		config: cfg,
		repos:  repos,
		blobs:  blobs,
		tokens: tokens,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: s.Router(),

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router configures the HTTP router with middleware and routes
func (s *Server) Router() *gin.Engine {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(events.CreateEvent())
	router.Use(gin.Recovery())
	router.Use(cors.New(s.corsConfig()))

	// Multipart forms larger than this spill to temp files
	if s.config.Upload.MaxFileSize > 0 {
		router.MaxMultipartMemory = s.config.Upload.MaxFileSize
	}

	polls := services.NewPollService(s.repos, s.blobs, s.config.Upload.MaxFileSize)
	accounts := services.NewAccountService(s.repos, s.blobs, s.tokens)

	questionHandler := handlers.NewQuestionHandler(polls)
	imageHandler := handlers.NewImageHandler(polls, s.config.Upload.MaxFileSize)
	userHandler := handlers.NewUserHandler(accounts)

	router.GET("/ping", s.ping)

	s.setupAPIRoutes(router, questionHandler, imageHandler, userHandler)

	return router
}

func (s *Server) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()

	origins := config.SplitList(s.config.CORS.AllowOrigins)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	if methods := config.SplitList(s.config.CORS.AllowMethods); len(methods) > 0 {
		corsConfig.AllowMethods = methods
	}
	if headers := config.SplitList(s.config.CORS.AllowHeaders); len(headers) > 0 {
		corsConfig.AllowHeaders = headers
	}
	corsConfig.ExposeHeaders = []string{events.RequestIDHeader}

	return corsConfig
}

func (s *Server) ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.repos.Health(ctx); err != nil {
		logger.Get().Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"message": "Poll API storage is unavailable",
			"status":  "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Poll API is running",
		"status":  "healthy",
	})
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(
	router *gin.Engine,
	questionHandler *handlers.QuestionHandler,
	imageHandler *handlers.ImageHandler,
	userHandler *handlers.UserHandler,
) {
	requireAuth := authmw.RequireAuth(s.tokens)
	optionalAuth := authmw.OptionalAuth(s.tokens)

	api := router.Group("/api")
	{
		api.POST("/auth/login", userHandler.Login)

		users := api.Group("/users")
		{
			users.POST("", userHandler.Register)
			users.GET("/me", requireAuth, userHandler.Me)
			users.GET("/me/questions", requireAuth, questionHandler.ListMine)
			users.DELETE("/me", requireAuth, userHandler.DeleteMe)
		}

		questions := api.Group("/questions")
		{
			questions.GET("", questionHandler.ListQuestions)
			questions.POST("", optionalAuth, questionHandler.CreateQuestion)
			questions.GET("/:id", optionalAuth, questionHandler.GetQuestion)
			questions.DELETE("/:id", requireAuth, questionHandler.DeleteQuestion)
			questions.POST("/:id/choices", requireAuth, questionHandler.AddChoice)
			questions.POST("/:id/vote", questionHandler.Vote)
			questions.GET("/:id/results", questionHandler.Results)
			questions.POST("/:id/images", requireAuth, imageHandler.UploadImage)
		}

		api.GET("/images/:id", optionalAuth, imageHandler.GetImage)
	}
}
