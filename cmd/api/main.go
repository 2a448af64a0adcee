package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campuskit/college-admin-api/api/swagger"
	"github.com/campuskit/college-admin-api/internal/handler"
	"github.com/campuskit/college-admin-api/internal/middleware"
	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/repository"
	"github.com/campuskit/college-admin-api/internal/service"
	"github.com/campuskit/college-admin-api/pkg/cache"
	"github.com/campuskit/college-admin-api/pkg/config"
	"github.com/campuskit/college-admin-api/pkg/database"
	"github.com/campuskit/college-admin-api/pkg/jobs"
	"github.com/campuskit/college-admin-api/pkg/logger"
	"github.com/campuskit/college-admin-api/pkg/mailer"
	corsmiddleware "github.com/campuskit/college-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/college-admin-api/pkg/middleware/requestid"
)

// @title College Admin API
// @version 1.0.0
// @description Multi-tenant administrative backend for colleges
// @BasePath /api/v1
// @schemes http

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailGateway := mailer.NewSMTPGateway(mailer.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		SenderName: cfg.SMTP.SenderName,
		FromEmail:  cfg.SMTP.FromEmail,
	}, logr)

	mailQueue := jobs.NewQueue("mailer", service.NewMailJobHandler(mailGateway, logr), jobs.QueueConfig{
		Workers:    cfg.Mailer.Workers,
		MaxRetries: cfg.Mailer.MaxRetries,
		RetryDelay: cfg.Mailer.RetryDelay,
		Logger:     logr,
	})
	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	userRepo := repository.NewUserRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	invitationSvc := service.NewInvitationService(invitationRepo, userRepo, profileRepo, departmentRepo, mailQueue, validate, logr, service.InvitationConfig{
		Duration:     time.Duration(cfg.Invitations.DurationDays) * 24 * time.Hour,
		FrontendBase: cfg.Invitations.FrontendBase,
	})
	userSvc := service.NewUserService(userRepo, departmentRepo, collegeRepo, mailQueue, validate, logr)
	collegeSvc := service.NewCollegeService(collegeRepo, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, userRepo, invitationSvc, validate, logr)
	batchSvc := service.NewBatchService(batchRepo, userRepo, departmentRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, userRepo, departmentRepo, validate, logr)
	metricsSvc := service.NewMetricsService()
	dashboardSvc := service.NewDashboardService(collegeRepo, redisClient, metricsSvc, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(userRepo, departmentRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	invitationHandler := handler.NewInvitationHandler(invitationSvc)
	userHandler := handler.NewUserHandler(userSvc)
	collegeHandler := handler.NewCollegeHandler(collegeSvc)
	departmentHandler := handler.NewDepartmentHandler(departmentSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

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
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/register", userHandler.Register)
		auth.GET("/verify-invitation/:token", invitationHandler.Verify)
		auth.POST("/complete-registration", invitationHandler.Complete)
	}

	api.GET("/colleges", collegeHandler.List)

	authed := api.Group("", middleware.JWT(authSvc), middleware.RequireAccount(userRepo))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/colleges/:id", collegeHandler.Get)
		authed.PUT("/colleges/profile", middleware.MinRole(models.RoleCollegeAdmin), collegeHandler.UpdateProfile)

		invitations := authed.Group("/invitations", middleware.MinRole(models.RoleCollegeAdmin))
		{
			invitations.POST("", invitationHandler.Issue)
			invitations.GET("", invitationHandler.List)
			invitations.POST("/:token/resend", invitationHandler.Resend)
		}

		users := authed.Group("/users")
		{
			users.GET("", middleware.MinRole(models.RoleHOD), userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", middleware.MinRole(models.RoleCollegeAdmin), userHandler.Update)
			users.DELETE("/:id", middleware.MinRole(models.RoleCollegeAdmin), userHandler.Delete)
			users.POST("/:id/verify", middleware.MinRole(models.RoleCollegeAdmin), userHandler.VerifyAlumni)
		}

		departments := authed.Group("/departments")
		{
			departments.GET("", departmentHandler.List)
			departments.GET("/:id", departmentHandler.Get)
			departments.POST("", middleware.MinRole(models.RoleCollegeAdmin), departmentHandler.Create)
			departments.PUT("/:id", middleware.MinRole(models.RoleCollegeAdmin), departmentHandler.Update)
			departments.PUT("/:id/hod", middleware.MinRole(models.RoleCollegeAdmin), departmentHandler.AssignHOD)
			departments.POST("/:id/events", middleware.MinRole(models.RoleHOD), departmentHandler.AddEvent)
			departments.DELETE("/:id", middleware.MinRole(models.RoleCollegeAdmin), departmentHandler.Delete)
		}

		batches := authed.Group("/batches")
		{
			batches.GET("", batchHandler.List)
			batches.GET("/:id", batchHandler.Get)
			batches.POST("", middleware.MinRole(models.RoleHOD), batchHandler.Create)
			batches.PUT("/:id", middleware.MinRole(models.RoleHOD), batchHandler.Update)
			batches.POST("/:id/students", middleware.MinRole(models.RoleHOD), batchHandler.AddStudents)
			batches.DELETE("/:id/students/:userId", middleware.MinRole(models.RoleHOD), batchHandler.RemoveStudent)
			batches.DELETE("/:id", middleware.MinRole(models.RoleHOD), batchHandler.Delete)
		}

		subjects := authed.Group("/subjects")
		{
			subjects.GET("", subjectHandler.List)
			subjects.GET("/:id", subjectHandler.Get)
			subjects.POST("", middleware.MinRole(models.RoleHOD), subjectHandler.Create)
			subjects.PUT("/:id", middleware.MinRole(models.RoleHOD), subjectHandler.Update)
			subjects.DELETE("/:id", middleware.MinRole(models.RoleHOD), subjectHandler.Delete)
		}

		authed.GET("/dashboard/stats", middleware.MinRole(models.RoleClerk), dashboardHandler.Stats)

		exports := authed.Group("/exports", middleware.MinRole(models.RoleClerk))
		{
			exports.GET("/users.csv", middleware.Audit(userRepo, "export", "users"), exportHandler.UsersCSV)
			exports.GET("/departments.pdf", middleware.Audit(userRepo, "export", "departments"), exportHandler.DepartmentsPDF)
		}

		authed.GET("/metrics/snapshot", middleware.MinRole(models.RoleSuperAdmin), metricsHandler.Snapshot)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}
}
