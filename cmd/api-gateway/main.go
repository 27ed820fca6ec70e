package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/palace-events/events-api/api/swagger"
	"github.com/palace-events/events-api/internal/handler"
	"github.com/palace-events/events-api/internal/importer"
	"github.com/palace-events/events-api/internal/middleware"
	"github.com/palace-events/events-api/internal/models"
	"github.com/palace-events/events-api/internal/repository"
	"github.com/palace-events/events-api/internal/service"
	"github.com/palace-events/events-api/migrations"
	"github.com/palace-events/events-api/pkg/cache"
	"github.com/palace-events/events-api/pkg/config"
	"github.com/palace-events/events-api/pkg/database"
	"github.com/palace-events/events-api/pkg/feedtoken"
	"github.com/palace-events/events-api/pkg/logger"
	corsmiddleware "github.com/palace-events/events-api/pkg/middleware/cors"
	reqidmiddleware "github.com/palace-events/events-api/pkg/middleware/requestid"
)

// @title Palace Community Events API
// @version 1.0.0
// @description Community events calendar: month grid, day detail, attendance, imports and iCalendar feeds.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type handlers struct {
	calendar   *handler.CalendarHandler
	days       *handler.DayHandler
	events     *handler.EventHandler
	attendance *handler.AttendanceHandler
	imports    *handler.ImportHandler
	proxy      *handler.ProxyHandler
	auth       *handler.AuthHandler
	metrics    *handler.MetricsHandler
}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, migrations.FS)
	if err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("files", applied))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, search cache disabled", zap.Error(err))
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	eventRepo := repository.NewEventRepository(db)
	attendeeRepo := repository.NewAttendeeRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	location := cfg.Calendar.Location()
	calendarSettings := service.CalendarSettings{Location: location, WeekStart: cfg.Calendar.Weekday()}
	changes := service.NewEventFeed(0, logr)
	searchCache := service.NewSearchCache(cacheRepo, metricsSvc, cfg.Importer.SearchCacheTTL, logr, redisClient != nil)

	client := importer.NewClient(importer.ClientConfig{
		TicketmasterURL:   cfg.Importer.TicketmasterURL,
		APIKey:            cfg.Importer.TicketmasterKey,
		FallbackEndpoints: cfg.Importer.FallbackEndpoints,
		PageSize:          cfg.Importer.PageSize,
		Timeout:           cfg.Importer.Timeout,
		Location:          location,
	}, nil, logr)
	signer := feedtoken.NewSigner(cfg.Feeds.TokenSecret, cfg.Feeds.TokenTTL)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	calendarSvc := service.NewCalendarService(eventRepo, calendarSettings, metricsSvc, logr)
	daySvc := service.NewDayService(eventRepo, attendeeRepo, calendarSettings, metricsSvc, logr)
	eventSvc := service.NewEventService(eventRepo, userRepo, changes, validate, logr, service.EventConfig{
		DeleteConfirmDelay: cfg.Events.DeleteConfirmDelay,
		Location:           location,
	})
	attendanceSvc := service.NewAttendanceService(eventRepo, attendeeRepo, eventRepo, changes, logr)
	importSvc := service.NewImportService(client, eventRepo, searchCache, changes, metricsSvc, validate, logr, service.ImportConfig{
		DefaultKeyword:  cfg.Importer.DefaultKeyword,
		DefaultLocation: cfg.Importer.DefaultLocation,
	})
	feedSvc := service.NewFeedService(eventRepo, eventRepo, eventRepo, signer, calendarSettings, logr)
	exportSvc := service.NewExportService(eventRepo, attendeeRepo, location, logr)
	profileSvc := service.NewProfileService(authSvc, eventRepo, logr)

	importHandler := handler.NewImportHandler(importSvc, nil)
	if cfg.Schedule.Enabled {
		scheduled, err := service.NewScheduledImporter(importSvc, service.ScheduleSettings{
			Cron:     cfg.Schedule.Cron,
			Searches: cfg.Schedule.SavedSearches,
			OwnerID:  cfg.Schedule.SystemUserID,
			Workers:  cfg.Schedule.Workers,
			Retries:  cfg.Schedule.Retries,
		}, logr)
		if err != nil {
			logr.Fatal("invalid import schedule", zap.Error(err))
		}
		if err := scheduled.Start(ctx); err != nil {
			logr.Fatal("failed to start scheduled import", zap.Error(err))
		}
		defer scheduled.Stop()
		importHandler = handler.NewImportHandler(importSvc, scheduled)
	}

	h := handlers{
		calendar:   handler.NewCalendarHandler(calendarSvc, feedSvc, changes, metricsSvc, logr),
		days:       handler.NewDayHandler(daySvc),
		events:     handler.NewEventHandler(eventSvc, feedSvc),
		attendance: handler.NewAttendanceHandler(attendanceSvc, exportSvc),
		imports:    importHandler,
		proxy:      handler.NewProxyHandler(client, logr),
		auth:       handler.NewAuthHandler(authSvc, profileSvc, feedSvc),
		metrics:    handler.NewMetricsHandler(metricsSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())
	registerRoutes(r, cfg, authSvc, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, auth middleware.TokenValidator, h handlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.metrics.Prometheus)
		r.GET("/metrics/summary", middleware.JWT(auth), middleware.RequireRoles(models.RoleStaff), h.metrics.Summary)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Calendar apps subscribe to the origin-relative URL issued by /me/calendar-feed.
	r.GET("/feeds/:token", h.auth.Feed)

	functions := r.Group("/functions")
	functions.OPTIONS("/ticketmaster", h.proxy.Preflight)
	functions.GET("/ticketmaster", h.proxy.Ticketmaster)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/register", h.auth.Register)
	api.POST("/auth/login", h.auth.Login)

	public := api.Group("")
	public.Use(middleware.OptionalJWT(auth))
	public.GET("/calendar", h.calendar.Month)
	public.GET("/calendar/stream", h.calendar.Stream)
	public.GET("/calendar.ics", h.calendar.ICS)
	public.GET("/days/:date", h.days.Detail)
	public.GET("/days/:date/:genre", h.days.Detail)
	public.GET("/events", h.events.List)
	public.GET("/events/:id", h.events.Get)
	public.GET("/events/:id/calendar-link", h.events.CalendarLink)
	public.GET("/events/:id/ics", h.events.ICS)
	public.GET("/events/:id/attendees", h.attendance.Status)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))
	secured.POST("/events", h.events.Create)
	secured.DELETE("/events/:id", h.events.Delete)
	secured.PUT("/events/:id/attendees/me", h.attendance.Attend)
	secured.DELETE("/events/:id/attendees/me", h.attendance.Unattend)
	secured.GET("/events/:id/attendees/export", h.attendance.Export)
	secured.GET("/imports/search", h.imports.Search)
	secured.POST("/imports", h.imports.Import)
	secured.GET("/me", h.auth.Me)
	secured.GET("/me/attending", h.attendance.Mine)
	secured.GET("/me/calendar-feed", h.auth.FeedLink)

	staff := secured.Group("")
	staff.Use(middleware.RequireRoles(models.RoleStaff))
	staff.GET("/imports/scheduled", h.imports.ScheduledReports)
	staff.POST("/imports/scheduled/run", h.imports.RunScheduled)
	staff.DELETE("/imports/search/cache", h.imports.FlushCache)
	staff.PUT("/users/:id/role", h.auth.SetRole)
}
