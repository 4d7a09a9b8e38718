package postgres

import (
	"context"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reliabilityRepository struct {
	db *gorm.DB
}

func (r *reliabilityRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.ReliabilityScore, error) {
	var rec reliabilityScoreModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		return domain.ReliabilityScore{}, storageErr(err)
	}
	return toDomainReliability(rec), nil
}

func (r *reliabilityRepository) Upsert(ctx context.Context, score domain.ReliabilityScore) error {
	rec := toReliabilityModel(score)
	return storageErr(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&rec).Error)
}

func (r *reliabilityRepository) ListActiveRestrictions(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.BookingRestriction, error) {
	var rows []bookingRestrictionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)", userID, now, now).
		Order("starts_at asc").
		Find(&rows).Error; err != nil {
		return nil, storageErr(err)
	}
	out := make([]domain.BookingRestriction, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainRestriction(row))
	}
	return out, nil
}

func (r *reliabilityRepository) CreateRestriction(ctx context.Context, restriction domain.BookingRestriction) error {
	rec := bookingRestrictionModel{
		RestrictionID:   restriction.RestrictionID,
		UserID:          restriction.UserID,
		RestrictionType: restriction.RestrictionType,
		Reason:          restriction.Reason,
		StartsAt:        restriction.StartsAt,
		EndsAt:          restriction.EndsAt,
		IsActive:        restriction.Active,
		CreatedAt:       restriction.CreatedAt,
	}
	return storageErr(r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error)
}

var _ ports.ReliabilityRepository = (*reliabilityRepository)(nil)
