package postgres

import (
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Profiles    ports.ProfileRepository
	Licenses    ports.LicenseRepository
	Insurance   ports.InsuranceRepository
	Reliability ports.ReliabilityRepository
	Outbox      ports.OutboxRepository
	EventDedup  ports.EventDedupRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Profiles:    &profileRepository{db: db},
		Licenses:    &licenseRepository{db: db},
		Insurance:   &insuranceRepository{db: db},
		Reliability: &reliabilityRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
