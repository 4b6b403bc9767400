package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-booking-api/internal/config"
	"github.com/jwalitptl/clinic-booking-api/internal/email"
	adminHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/admin"
	doctorHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-booking-api/internal/handler/health"
	promHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/prometheus"
	userHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/user"
	"github.com/jwalitptl/clinic-booking-api/internal/middleware"
	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	"github.com/jwalitptl/clinic-booking-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-booking-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-booking-api/internal/router"
	authService "github.com/jwalitptl/clinic-booking-api/internal/service/auth"
	"github.com/jwalitptl/clinic-booking-api/internal/service/booking"
	"github.com/jwalitptl/clinic-booking-api/internal/service/dashboard"
	doctorService "github.com/jwalitptl/clinic-booking-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-booking-api/internal/service/notification"
	"github.com/jwalitptl/clinic-booking-api/internal/service/payment"
	userService "github.com/jwalitptl/clinic-booking-api/internal/service/user"
	"github.com/jwalitptl/clinic-booking-api/pkg/auth"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/messaging"
	"github.com/jwalitptl/clinic-booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
	"github.com/jwalitptl/clinic-booking-api/pkg/security"
	"github.com/jwalitptl/clinic-booking-api/pkg/storage"
)

func main() {
	configFile := flag.String("config", "", "path to config.yml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	appLogger.SetGlobal()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("clinic", registry)

	// Initialize database
	store, db := openStore(ctx, cfg.Database)
	if db != nil {
		defer db.Close()
	}

	broker := openBroker(ctx, cfg.Redis)
	defer broker.Close()

	sender, err := newSender(cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure email")
	}

	images, err := newImageStore(ctx, cfg.Storage, cfg.Server.MaxUploadBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure image storage")
	}

	// Initialize services
	var notifier notification.Notifier
	var notifications *notification.Service
	if cfg.Notification.Enabled {
		notifications = notification.NewService(
			sender,
			messaging.NewPublisher(broker, cfg.Redis.Channel),
			appLogger,
			m,
			cfg.Notification.Timeout,
		)
		notifier = notifications
	}

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, map[model.Role]time.Duration{
		model.RoleUser:   time.Duration(cfg.JWT.UserExpiryHours) * time.Hour,
		model.RoleDoctor: time.Duration(cfg.JWT.DoctorExpiryHours) * time.Hour,
		model.RoleAdmin:  time.Duration(cfg.JWT.AdminExpiryHours) * time.Hour,
	})
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)

	authSvc := authService.NewService(
		store.Users,
		store.Doctors,
		jwtSvc,
		hasher,
		authService.NewGoogleVerifier(cfg.Google.ClientID),
		authService.AdminCredentials{Email: cfg.Admin.Email, Password: cfg.Admin.Password},
		appLogger,
	)
	doctorSvc := doctorService.NewService(store.Doctors, store.Slots, images, hasher, cfg.Cache.DoctorListTTL, m, appLogger)
	userSvc := userService.NewService(store.Users, images, appLogger)
	coordinator := booking.NewCoordinator(store, notifier, doctorSvc, m, appLogger)
	dashboardSvc := dashboard.NewService(store, dashboard.Config{
		AdminIncludeCancelled:  cfg.Dashboard.AdminIncludeCancelled,
		DoctorIncludeCancelled: cfg.Dashboard.DoctorIncludeCancelled,
		LatestLimit:            cfg.Dashboard.LatestLimit,
	})

	gateway := payment.NewStripeGateway(cfg.Payment.StripeSecretKey, cfg.Payment.Timeout, appLogger).
		WithDryRun(cfg.Payment.DryRun || cfg.Payment.StripeSecretKey == "")
	if cfg.Payment.StripeBaseURL != "" {
		gateway = gateway.WithBaseURL(cfg.Payment.StripeBaseURL)
	}
	paymentSvc := payment.NewService(store.Appointments, gateway, notifier, payment.Config{
		Currency:        cfg.Payment.Currency,
		RejectCancelled: cfg.Payment.RejectCancelled,
	}, m, appLogger)

	// Initialize middleware
	middleware.RegisterValidation()
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, cfg.Admin.Email)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		cors.AllowOrigins = cfg.Server.CORSOrigins
	}

	var pinger health.Pinger
	if db != nil {
		pinger = db
	}

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		health.NewHandler(pinger),
		promHandler.New(registry),
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:      cfg.Server.RateLimitBurst,
			CORSConfig:     cors,
			Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Metrics:        m,
		},
		adminHandler.NewHandler(authSvc, doctorSvc, coordinator, dashboardSvc),
		doctorHandler.NewHandler(authSvc, doctorSvc, coordinator, dashboardSvc),
		userHandler.NewHandler(authSvc, userSvc, coordinator, paymentSvc),
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("db", cfg.Database.Driver).Bool("payments_live", gateway.Live()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if notifications != nil {
		notifications.Wait()
	}

	log.Info().Msg("server exited properly")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, *sqlx.DB) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New().Store(), nil
	}
	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	return postgres.NewStore(db), db
}

func openBroker(ctx context.Context, cfg config.RedisConfig) messaging.Broker {
	if !cfg.Enabled {
		return messaging.NopBroker{}
	}
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("redis unavailable; appointment events are not published")
		return messaging.NopBroker{}
	}
	return broker
}

func newSender(cfg config.EmailConfig) (email.Sender, error) {
	var sender email.Sender
	switch cfg.Provider {
	case "smtp":
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		})
	case "sendgrid":
		sg, err := email.NewSendGridSender(email.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		})
		if err != nil {
			return nil, err
		}
		sender = sg
	default:
		sender = email.NewStubSender(log.Logger)
	}
	return email.WithTimeout(sender, cfg.Timeout), nil
}

func newImageStore(ctx context.Context, cfg config.StorageConfig, maxBytes int64) (storage.ImageStore, error) {
	if cfg.Provider != "s3" {
		return storage.DataURLStore{MaxBytes: maxBytes}, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket, awsCfg.Region, cfg.Prefix, cfg.PublicBaseURL, cfg.UploadTimeout), nil
}
