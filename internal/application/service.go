package application

import (
	"log/slog"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/ports"
)

type Service struct {
	cfg         Config
	logger      *slog.Logger
	profiles    ports.ProfileRepository
	licenses    ports.LicenseRepository
	insurance   ports.InsuranceRepository
	reliability ports.ReliabilityRepository
	outbox      ports.OutboxRepository
	eventDedup  ports.EventDedupRepository
	idempotency ports.IdempotencyRepository
	tokens      ports.TokenValidator
	cache       ports.Cache
	encryption  ports.Encryption
	metrics     ports.Metrics
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Logger      *slog.Logger
	Profiles    ports.ProfileRepository
	Licenses    ports.LicenseRepository
	Insurance   ports.InsuranceRepository
	Reliability ports.ReliabilityRepository
	Outbox      ports.OutboxRepository
	EventDedup  ports.EventDedupRepository
	Idempotency ports.IdempotencyRepository
	Tokens      ports.TokenValidator
	Cache       ports.Cache
	Encryption  ports.Encryption
	Metrics     ports.Metrics
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "trust-service"
	}
	if cfg.TrustScoreCacheTTL <= 0 {
		cfg.TrustScoreCacheTTL = 5 * time.Minute
	}
	if cfg.RefreshLimitPerMinute <= 0 {
		cfg.RefreshLimitPerMinute = 5
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.PendingQueueLimit <= 0 {
		cfg.PendingQueueLimit = 50
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Service{
		cfg:         cfg,
		logger:      logger,
		profiles:    deps.Profiles,
		licenses:    deps.Licenses,
		insurance:   deps.Insurance,
		reliability: deps.Reliability,
		outbox:      deps.Outbox,
		eventDedup:  deps.EventDedup,
		idempotency: deps.Idempotency,
		tokens:      deps.Tokens,
		cache:       deps.Cache,
		encryption:  deps.Encryption,
		metrics:     metrics,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
