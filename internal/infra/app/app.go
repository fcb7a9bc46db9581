package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/infra/database"
	kafkainfra "github.com/arklim/account-service/internal/infra/kafka"
	"github.com/arklim/account-service/internal/infra/logger"
	mongoinfra "github.com/arklim/account-service/internal/infra/mongo"
	redisinfra "github.com/arklim/account-service/internal/infra/redis"
	"github.com/arklim/account-service/internal/infra/security"
	"github.com/arklim/account-service/internal/infra/telemetry"
	mongorepo "github.com/arklim/account-service/internal/repository/mongo"
	postgresrepo "github.com/arklim/account-service/internal/repository/postgres"
	redisrepo "github.com/arklim/account-service/internal/repository/redis"
	"github.com/arklim/account-service/internal/transport/http/middleware"
	"github.com/arklim/account-service/internal/transport/http/routes"
	"github.com/arklim/account-service/internal/usecase"
)

const serviceVersion = "1.0.0"

// Application owns every long-lived client of the process.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	store    userStore
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// userStore is the selected user directory plus its lifecycle hooks.
type userStore struct {
	users port.UserRepository
	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s userStore) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// New connects every backend and assembles the HTTP engine. Clients opened
// before a failure are closed again.
func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	if cfg.Telemetry.TracingEnabled {
		a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, serviceVersion, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	a.store, err = openUserStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokens, err := security.NewTokenIssuer(security.TokenIssuerConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	policy := security.NewPasswordPolicy(cfg.PasswordPolicy)

	var events port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, perr := kafkainfra.NewProducer(cfg.Kafka, log)
		if perr != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(perr))
			events = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = producer
			events = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		events = kafkainfra.NewStubPublisher(log)
	}

	authMetrics, err := telemetry.NewAuthMetrics(prometheus.DefaultRegisterer, "account")
	if err != nil {
		return nil, fmt.Errorf("init auth metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	rdb := a.redis.Client()
	attempts := redisrepo.NewAttemptCounterRepository(rdb, cfg.Auth.AttemptKeyPrefix)
	profiles := redisrepo.NewProfileCacheRepository(rdb, cfg.Auth.ProfileKeyPrefix)
	requestLog := redisrepo.NewRequestLogRepository(rdb, cfg.RateLimit.KeyPrefix, cfg.RateLimit.Window)

	authService := usecase.NewAuthService(usecase.AuthDeps{
		Users:    a.store.users,
		Attempts: attempts,
		Profiles: profiles,
		Hasher:   hasher,
		Tokens:   tokens,
		Events:   events,
		Metrics:  authMetrics,
		Logger:   log,
	}, usecase.AuthConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		AttemptWindow:   cfg.Auth.LoginAttemptsWindow,
		ProfileCacheTTL: cfg.Auth.ProfileCacheTTL,
	})

	registrationService := usecase.NewRegistrationService(usecase.RegistrationDeps{
		Users:   a.store.users,
		Hasher:  hasher,
		Policy:  policy,
		Events:  events,
		Metrics: authMetrics,
		Logger:  log,
	})

	profileService := usecase.NewProfileService(usecase.ProfileDeps{
		Users:     a.store.users,
		Profiles:  profiles,
		Hasher:    hasher,
		Policy:    policy,
		Generator: security.GenerateRandomPassword,
		Events:    events,
		Metrics:   authMetrics,
		Logger:    log,
	}, usecase.ProfileConfig{
		CacheTTL:                cfg.Auth.ProfileCacheTTL,
		GeneratedPasswordLength: cfg.PasswordPolicy.GeneratedLength,
	})

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(requestLog, log),
		Metrics:     httpMetrics,
		Database:    a.store,
		Cache:       a.redis,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Profiles:     profileService,
		},
	})

	return a, nil
}

func openUserStore(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (userStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		client, err := mongoinfra.NewClient(ctx, cfg.Mongo, log)
		if err != nil {
			return userStore{}, fmt.Errorf("init mongo: %w", err)
		}
		repo := mongorepo.NewUserRepository(client.Database(), cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return userStore{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return userStore{users: repo, ping: client.Ping, close: client.Close}, nil

	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			return userStore{}, fmt.Errorf("init postgres: %w", err)
		}
		if cfg.Store.Migrate {
			if err := database.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return userStore{}, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return userStore{
			users: postgresrepo.NewUserRepository(pool),
			ping:  pool.Ping,
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil
	}
}

// Run serves HTTP until ctx is cancelled, then drains connections and
// releases the backends.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       durationOr(a.cfg.HTTP.ReadTimeout, 30*time.Second),
		WriteTimeout:      durationOr(a.cfg.HTTP.WriteTimeout, 30*time.Second),
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
		zap.String("env", a.cfg.App.Env),
		zap.String("store", a.cfg.Store.Driver),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErrCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), durationOr(a.cfg.HTTP.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown server: %w", err)
	}
	a.close(shutdownCtx)

	return runErr
}

func (a *Application) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.store.close != nil {
		if err := a.store.close(ctx); err != nil {
			a.logger.Warn("close user store", zap.Error(err))
		}
	}
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
