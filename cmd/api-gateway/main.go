package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/unisched/presentation-api/api/swagger"
	"github.com/unisched/presentation-api/internal/handler"
	"github.com/unisched/presentation-api/internal/middleware"
	"github.com/unisched/presentation-api/internal/repository"
	"github.com/unisched/presentation-api/internal/service"
	"github.com/unisched/presentation-api/pkg/cache"
	"github.com/unisched/presentation-api/pkg/config"
	"github.com/unisched/presentation-api/pkg/database"
	"github.com/unisched/presentation-api/pkg/logger"
	"github.com/unisched/presentation-api/pkg/mailer"
	corsmiddleware "github.com/unisched/presentation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unisched/presentation-api/pkg/middleware/requestid"
)

// @title University Presentation Scheduling API
// @version 1.0.0
// @description Booking, availability, and reschedule workflows for student presentations
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	presentationRepo := repository.NewPresentationRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	requestRepo := repository.NewRescheduleRequestRepository(db)
	displacementRepo := repository.NewRescheduledLectureRepository(db)
	examinerRepo := repository.NewExaminerRepository(db)
	venueRepo := repository.NewVenueRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	metricsSvc := service.NewMetricsService()

	notifications := service.NewNotificationService(
		examinerRepo, studentRepo, groupRepo, mailer.NewSMTPMailer(cfg.Mail), cfg.Notifications, logr)
	notifications.Start(context.Background())
	defer notifications.Stop()

	availabilitySvc := service.NewAvailabilityService(presentationRepo, validate, logr)
	suggestionSvc := service.NewSuggestionService(
		presentationRepo, timetableRepo, examinerRepo, studentRepo, venueRepo, requestRepo,
		cacheRepo, cfg.Scheduling, validate, logr)
	displacementSvc := service.NewDisplacementService(
		timetableRepo, displacementRepo, cfg.Scheduling, logr)
	presentationSvc := service.NewPresentationService(
		presentationRepo, availabilitySvc, suggestionSvc, displacementSvc,
		notifications, cacheRepo, metricsSvc, validate, logr)
	rescheduleSvc := service.NewRescheduleService(
		requestRepo, presentationSvc, availabilitySvc, notifications, metricsSvc, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, cfg.Scheduling, validate, logr)

	presentationHandler := handler.NewPresentationHandler(presentationSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	suggestionHandler := handler.NewSuggestionHandler(suggestionSvc)
	rescheduleHandler := handler.NewRescheduleHandler(rescheduleSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, displacementSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/presentations", presentationHandler.Create)
		api.GET("/presentations", presentationHandler.List)
		api.GET("/presentations/:id", presentationHandler.Get)
		api.PUT("/presentations/:id", presentationHandler.Reschedule)
		api.DELETE("/presentations/:id", presentationHandler.Delete)
		api.GET("/presentations/:id/reschedule-suggestion", suggestionHandler.SuggestForReschedule)
		api.GET("/examiners/:id/presentations", presentationHandler.ListForExaminer)
		api.GET("/students/:id/presentations", presentationHandler.ListForStudent)

		api.POST("/availability/check", availabilityHandler.Check)
		api.GET("/availability/free-windows", availabilityHandler.FreeWindows)

		api.GET("/suggestions/best-date", suggestionHandler.BestDate)
		api.POST("/suggestions/slot", suggestionHandler.SuggestSlot)

		api.POST("/reschedule-requests", rescheduleHandler.Submit)
		api.GET("/reschedule-requests", rescheduleHandler.List)
		api.POST("/reschedule-requests/purge", rescheduleHandler.PurgeRejected)
		api.POST("/reschedule-requests/:id/resolve", rescheduleHandler.Resolve)
		api.DELETE("/reschedule-requests/:id", rescheduleHandler.Delete)
		api.GET("/users/:id/reschedule-requests", rescheduleHandler.ListForRequester)
		api.DELETE("/users/:id/reschedule-requests/approved", rescheduleHandler.DeleteApprovedForRequester)
		api.DELETE("/users/:id/reschedule-requests/rejected", rescheduleHandler.DeleteRejectedForRequester)

		api.POST("/timetables", timetableHandler.Create)
		api.GET("/timetables", timetableHandler.List)
		api.GET("/timetables/:id", timetableHandler.Get)
		api.PUT("/timetables/:id/slots", timetableHandler.UpdateSlots)
		api.DELETE("/timetables/:id", timetableHandler.Delete)
		api.GET("/groups/:id/timetable", timetableHandler.GetForGroup)
		api.GET("/groups/:id/free-time", timetableHandler.FreeTime)
		api.GET("/lecturers/:id/displacements", timetableHandler.Displacements)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
