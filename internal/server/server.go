package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillforge/quill/internal/config"
	"github.com/quillforge/quill/internal/models"
	"github.com/quillforge/quill/internal/service"
	"github.com/quillforge/quill/internal/service/social"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Schedules *service.ScheduleStore
	Templates *service.TemplateStore
	Executor  *service.Executor
	Poller    *service.Poller
	Overview  *service.OverviewService
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	schedules := service.NewScheduleStore(db, logger)
	templates := service.NewTemplateStore(db, logger)
	generator := service.NewOpenAIGenerator(&cfg.Generator, logger)

	var socialMgr *social.Manager
	if cfg.Social.Enabled {
		socialMgr = social.NewManager(generator, cfg.Social.Accounts, logger, db)
		for _, network := range models.SocialNetworks {
			if err := socialMgr.RegisterPublisher(social.NewWebhookPublisher(network, cfg.Social.WebhookURL)); err != nil {
				logger.Error("Failed to register social publisher",
					zap.String("network", network), zap.Error(err))
			}
		}
	}

	executor := service.NewExecutor(schedules, templates, generator, socialMgr, db, logger)
	poller := service.NewPoller(&cfg.Scheduler, schedules, executor, logger)
	overview := service.NewOverviewService(db, logger)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:    cfg,
		DB:        db,
		Router:    router,
		Logger:    logger,
		Schedules: schedules,
		Templates: templates,
		Executor:  executor,
		Poller:    poller,
		Overview:  overview,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		scheduler := api.Group("/scheduler")
		{
			scheduler.POST("/create-from-time", s.handleCreateFromTime)
			scheduler.POST("/create", s.handleCreate)
			scheduler.POST("/schedule-immediate", s.handleScheduleImmediate)
			scheduler.POST("/convert-time-to-cron", s.handleConvertTimeToCron)
			scheduler.POST("/validate-cron", s.handleValidateCron)
			scheduler.GET("/list", s.handleList)
			scheduler.GET("/status/overview", s.handleStatusOverview)
			scheduler.GET("/:id", s.handleGet)
			scheduler.PUT("/:id", s.handleUpdate)
			scheduler.DELETE("/:id", s.handleDelete)
			scheduler.POST("/:id/start", s.handleStart)
			scheduler.POST("/:id/stop", s.handleStop)
			scheduler.POST("/:id/execute", s.handleExecute)
			scheduler.GET("/:id/generated-blogs", s.handleGeneratedBlogs)
			scheduler.GET("/:id/execution-history", s.handleExecutionHistory)
		}

		// The poller entry point, intended to be hit on a fixed external
		// cadence. Always answers 200, even when nothing is due.
		api.GET("/blog-scheduler/check-schedules", s.handleCheckSchedules)

		templates := api.Group("/templates")
		{
			templates.GET("", s.handleListTemplates)
			templates.POST("", s.handleCreateTemplate)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start the internal poll loop
	if err := s.Poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the poller first
	s.Poller.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
