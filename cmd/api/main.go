package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edulink/tutor-market-api/api/swagger"
	"github.com/edulink/tutor-market-api/internal/handler"
	"github.com/edulink/tutor-market-api/internal/middleware"
	"github.com/edulink/tutor-market-api/internal/models"
	"github.com/edulink/tutor-market-api/internal/repository"
	"github.com/edulink/tutor-market-api/internal/service"
	"github.com/edulink/tutor-market-api/pkg/cache"
	"github.com/edulink/tutor-market-api/pkg/config"
	"github.com/edulink/tutor-market-api/pkg/database"
	"github.com/edulink/tutor-market-api/pkg/logger"
	corsmiddleware "github.com/edulink/tutor-market-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edulink/tutor-market-api/pkg/middleware/requestid"
)

// @title Tutor Market API
// @version 1.0.0
// @description Tutoring marketplace backend: courses, orders, reviews and teacher qualifications
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	qualificationRepo := repository.NewQualificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheEnabled, cfg.Catalog.CacheTTL, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, orderRepo, reviewRepo, cacheSvc, validate, logr)
	orderSvc := service.NewOrderService(orderRepo, courseRepo, reviewRepo, metricsSvc, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, orderRepo, cacheSvc, validate, logr)
	ratingSvc := service.NewRatingService(reviewRepo, courseRepo, logr)
	qualificationSvc := service.NewQualificationService(qualificationRepo, userRepo, teacherRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, userRepo, courseRepo, qualificationRepo, qualificationSvc, validate, logr)
	exportSvc := service.NewExportService(orderRepo, qualificationRepo, logr)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, reviewSvc, ratingSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	qualificationHandler := handler.NewQualificationHandler(qualificationSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.GET("/:id/reviews", courseHandler.Reviews)
		courses.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Create)
		courses.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Update)
		courses.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Delete)
		courses.POST("/:id/recompute-rating", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), courseHandler.RecomputeRating)
	}

	orders := api.Group("/orders", middleware.JWT(authSvc))
	{
		orders.POST("", middleware.RequireRoles(models.RoleStudent), orderHandler.Create)
		orders.GET("", orderHandler.List)
		orders.GET("/:id", orderHandler.Get)
		orders.POST("/:id/pay", middleware.RequireRoles(models.RoleStudent), orderHandler.Pay)
		orders.POST("/:id/cancel", orderHandler.Cancel)
		orders.POST("/:id/complete", middleware.RequireRoles(models.RoleTeacher), orderHandler.Complete)
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("/:id", reviewHandler.Get)
		reviews.GET("/mine", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent), reviewHandler.Mine)
		reviews.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent), reviewHandler.Create)
		reviews.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent), reviewHandler.Update)
		reviews.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent), reviewHandler.Delete)
	}

	qualifications := api.Group("/qualifications", middleware.JWT(authSvc))
	{
		qualifications.POST("", middleware.RequireRoles(models.RoleTeacher), qualificationHandler.Submit)
		qualifications.GET("/mine", middleware.RequireRoles(models.RoleTeacher), qualificationHandler.Mine)
		qualifications.GET("/pending", middleware.RequireRoles(models.RoleAdmin), qualificationHandler.Pending)
		qualifications.GET("/reviewed", middleware.RequireRoles(models.RoleAdmin), qualificationHandler.Reviewed)
		qualifications.POST("/:id/review", middleware.RequireRoles(models.RoleAdmin), qualificationHandler.Review)
		qualifications.POST("/batch-review", middleware.RequireRoles(models.RoleAdmin), qualificationHandler.BatchReview)
		qualifications.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher), qualificationHandler.Delete)
	}

	teachers := api.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.GET("/:id/qualifications", teacherHandler.Qualifications)
		teachers.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), teacherHandler.Create)
		teachers.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), teacherHandler.Update)
		teachers.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), teacherHandler.Delete)
	}

	if cfg.Exports.Enabled {
		exports := api.Group("/exports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		{
			exports.GET("/orders", exportHandler.OrdersCSV)
			exports.GET("/qualifications", exportHandler.QualificationReport)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
