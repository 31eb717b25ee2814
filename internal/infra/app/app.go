// Package app assembles the process: configuration, infrastructure clients,
// repositories, services, and the HTTP server lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/infra/config"
	"github.com/securticket/securticket/internal/infra/database"
	kafkainfra "github.com/securticket/securticket/internal/infra/kafka"
	"github.com/securticket/securticket/internal/infra/logger"
	"github.com/securticket/securticket/internal/infra/payment"
	redisinfra "github.com/securticket/securticket/internal/infra/redis"
	"github.com/securticket/securticket/internal/infra/security"
	"github.com/securticket/securticket/internal/infra/telemetry"
	postgresrepo "github.com/securticket/securticket/internal/repository/postgres"
	redisrepo "github.com/securticket/securticket/internal/repository/redis"
	"github.com/securticket/securticket/internal/transport/http/middleware"
	"github.com/securticket/securticket/internal/transport/http/routes"
	"github.com/securticket/securticket/internal/usecase"
)

// Application holds the wired process and its closable resources.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.JWT.Secret, cfg.App.Name, cfg.JWT.AccessTokenTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var auditStream port.AuditSink
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub audit stream", zap.Error(err))
			auditStream = kafkainfra.NewStubPublisher(log)
		} else {
			auditStream = kafkainfra.NewAuditPublisher(producer, cfg.App, log)
			log.Info("kafka audit stream initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub audit stream")
		auditStream = kafkainfra.NewStubPublisher(log)
	}

	auditRecorder := usecase.NewAuditRecorder(repos.Audit, auditStream, log)

	provider, err := payment.NewStripeClient(cfg.Payment, log, nil)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init payment provider: %w", err)
	}

	passwordValidator := security.DefaultPasswordValidator()

	authService := usecase.NewAuthService(cfg.Security, repos.Accounts, tokens, auditRecorder, log)
	accountService := usecase.NewAccountService(cfg.Security, repos.Accounts, passwordValidator, auditRecorder, log)
	catalogService := usecase.NewCatalogService(repos.Events, auditRecorder, log)
	bookingService := usecase.NewBookingService(cfg.Booking, repos.Bookings, repos.Events, auditRecorder, log)
	paymentService := usecase.NewPaymentService(repos.Bookings, provider, provider, auditRecorder, log)
	auditService := usecase.NewAuditService(repos.Audit)

	loginWindow := cfg.RateLimit.LoginWindow
	if loginWindow <= 0 {
		loginWindow = 15 * time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "securticket:rate-limit",
		TTL:       loginWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	httpMetrics := middleware.NewHTTPMetrics(metrics.Registry(), metrics.Namespace())

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Tokens:      tokens,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Registry:    metrics.Registry(),
		Services: routes.ServiceSet{
			Auth:     authService,
			Accounts: accountService,
			Catalog:  catalogService,
			Bookings: bookingService,
			Payments: paymentService,
			Audit:    auditService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails. Resources are released on the way out.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting ticketing API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
