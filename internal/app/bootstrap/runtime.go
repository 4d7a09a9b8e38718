package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/adapters/cache"
	eventadapter "github.com/carpoolnetwork/trust-service/internal/adapters/events"
	grpcadapter "github.com/carpoolnetwork/trust-service/internal/adapters/grpc"
	httpadapter "github.com/carpoolnetwork/trust-service/internal/adapters/http"
	"github.com/carpoolnetwork/trust-service/internal/adapters/postgres"
	"github.com/carpoolnetwork/trust-service/internal/adapters/security"
	"github.com/carpoolnetwork/trust-service/internal/adapters/telemetry"
	"github.com/carpoolnetwork/trust-service/internal/application"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *health.Server
	grpcAddr   string
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.PoolConfig{MaxConns: cfg.MaxDBConns})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	tokens, err := security.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	repos := postgres.NewRepositories(db)
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:           cfg.ServiceID,
			TrustScoreCacheTTL:    cfg.TrustScoreCacheTTL,
			RefreshLimitPerMinute: cfg.RefreshLimitPerMinute,
			IdempotencyTTL:        cfg.IdempotencyTTL,
			EventDedupTTL:         cfg.EventDedupTTL,
			PendingQueueLimit:     cfg.PendingQueueLimit,
		},
		Logger:      logger,
		Profiles:    repos.Profiles,
		Licenses:    repos.Licenses,
		Insurance:   repos.Insurance,
		Reliability: repos.Reliability,
		Outbox:      repos.Outbox,
		EventDedup:  repos.EventDedup,
		Idempotency: repos.Idempotency,
		Tokens:      tokens,
		Cache:       cache.NewRedisCache(redisClient),
		Encryption:  security.NewAESGCMEncryption(cfg.EncryptionSeed),
		Metrics:     metrics,
	})

	ready := func(ctx context.Context) error {
		if err := postgres.Ping(ctx, db); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}
	router := httpadapter.NewRouter(httpadapter.NewHandler(service), ready, metrics)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewTrustInternalServer(service))

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	topics, eventByTopic := cfg.ConsumedTopics(eventadapter.ConsumedEventTypes())
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicsOut)
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, topics)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	outbox := eventadapter.NewOutboxWorker(logger, repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, service, eventByTopic, cfg.ConsumerPollInterval, cfg.ConsumerBatchSize)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcHealth: healthSrv,
		grpcAddr:   fmt.Sprintf(":%d", cfg.GRPCPort),
		outbox:     outbox,
		consumer:   consumer,
		cleanupFn: func(context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", r.grpcAddr)
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen grpc: %w", err)
	}
	errCh := make(chan error, 2)
	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	r.logger.InfoContext(ctx, "api started",
		"module", "bootstrap",
		"layer", "runtime",
		"operation", "run_api",
		"outcome", "success",
		"http_addr", r.httpServer.Addr,
		"grpc_addr", r.grpcAddr,
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", runErr)
	}
	r.grpcHealth.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.cleanupFn(context.Background())
	errCh := make(chan error, 2)

	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
