package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"astrobook/config"
	"astrobook/cron"
	"astrobook/database"
	auditRepo "astrobook/database/repository/audit"
	bookingRepo "astrobook/database/repository/booking"
	serviceRepo "astrobook/database/repository/service"
	"astrobook/handlers"
	"astrobook/routes"
	"astrobook/services/admin"
	"astrobook/services/booking"
	"astrobook/services/calendar"
	"astrobook/services/meeting"
	"astrobook/services/notification"
	"astrobook/services/payment"
	"astrobook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Stores.
	db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("main: postgres", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("main: migrate", zap.Error(err))
	}
	if cfg.SeedServices {
		n, err := database.SeedServices(ctx, db, database.DefaultServices)
		if err != nil {
			logger.Fatal("main: seed services", zap.Error(err))
		}
		logger.Info("seeded services", zap.Int("inserted", n))
	}

	mongoClient, err := database.ConnectMongo(ctx, cfg.MongoURL, logger)
	if err != nil {
		logger.Fatal("main: mongo", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())
	audit := auditRepo.NewMongoAuditRepo(mongoClient.Database(cfg.MongoDatabase))
	if err := audit.EnsureIndexes(ctx); err != nil {
		logger.Warn("main: audit indexes", zap.Error(err))
	}

	redisClient, err := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisCacheDB)
	if err != nil {
		logger.Fatal("main: redis", zap.Error(err))
	}
	defer redisClient.Close()
	slotCache := utils.NewRedisSlotCache(redisClient, cfg.SlotCacheTTL, logger)

	ledger := bookingRepo.NewPostgresBookingRepo(db)
	services := serviceRepo.NewPostgresServiceRepo(db)

	// External collaborators.
	loc := cfg.Location()
	var googleOpts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		googleOpts = append(googleOpts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}
	cal, err := calendar.NewGoogleCalendar(ctx, cfg.GoogleCalendarID, loc, logger, googleOpts...)
	if err != nil {
		logger.Fatal("main: google calendar", zap.Error(err))
	}
	availability := calendar.NewAvailabilitySource(cal, calendar.Markers{
		Summary: cfg.AvailabilityMarkerSummary,
		ColorID: cfg.AvailabilityMarkerColorID,
	}, cfg.ExternalTimeout, logger)

	payments := payment.NewStripeProcessor(cfg.StripeKey, cfg.StripeWebhookSecret, cfg.Currency, nil, logger)

	var meetings meeting.Provider
	if cfg.ZoomEnabled() {
		meetings = meeting.NewZoomClient(meeting.ZoomConfig{
			AccountID:    cfg.ZoomAccountID,
			ClientID:     cfg.ZoomClientID,
			ClientSecret: cfg.ZoomClientSecret,
			HostUser:     cfg.ZoomHostUser,
			APIBaseURL:   cfg.ZoomAPIBaseURL,
			TokenURL:     cfg.ZoomTokenURL,
		}, &http.Client{Timeout: cfg.ExternalTimeout})
	} else {
		logger.Warn("zoom is not configured, bookings will have no meeting link")
	}

	mailer := notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	notifier := notification.NewEmailNotifier(mailer, cfg.OperatorEmail, cfg.SiteName, loc, logger)

	// Booking core.
	settings, err := booking.SettingsFromConfig(cfg)
	if err != nil {
		logger.Fatal("main: booking settings", zap.Error(err))
	}
	slots := booking.NewSlotGenerator(availability, ledger, services, slotCache, settings, logger)
	coordinator := booking.NewReservationCoordinator(booking.Dependencies{
		Ledger:   ledger,
		Services: services,
		Slots:    slots,
		Payments: payments,
		Calendar: cal,
		Meetings: meetings,
		Notifier: notifier,
		Audit:    audit,
	}, settings, logger)

	// Hold-expiry sweep.
	worker := cron.NewHoldWorker(cron.WorkerConfig{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisQueueDB,
		SweepInterval: cfg.HoldSweepInterval,
		Location:      loc,
	}, coordinator, logger)
	if err := worker.Start(); err != nil {
		logger.Fatal("main: hold sweeper", zap.Error(err))
	}
	defer worker.Shutdown()

	health := utils.NewHealthMonitor(30*time.Second, logger)
	health.Register("postgres", db.PingContext)
	health.Register("mongo", func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) })
	health.Register("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	health.Start(ctx)

	auth := admin.NewAuthService(cfg.AdminEmail, cfg.AdminPasswordHash, utils.NewTokenIssuer(cfg.JWTSecret, cfg.AdminTokenTTL), logger)
	handlerBundle := handlers.NewHandlerBundle(handlers.Deps{
		Reservations: coordinator,
		Slots:        slots,
		Catalog:      admin.NewCatalogService(services, logger),
		Auth:         auth,
		Blocks:       availability,
		Payments:     payments,
		Health:       health,
		Location:     loc,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := routes.RegisterRoutes(router, handlerBundle, routes.Options{
		AllowedOrigins:    cfg.AllowedOrigins,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
		TrustedProxies:    cfg.TrustedProxyList(),
	}, logger); err != nil {
		logger.Fatal("main: routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
