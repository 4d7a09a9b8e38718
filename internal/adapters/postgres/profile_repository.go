package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileRepository struct {
	db *gorm.DB
}

func (r *profileRepository) CreateIfMissing(ctx context.Context, params ports.CreateProfileParams) (domain.Profile, bool, error) {
	rec := trustProfileModel{
		UserID:        params.UserID,
		Email:         params.Email,
		EmailVerified: params.EmailVerified,
		CreatedAt:     params.CreatedAt,
		UpdatedAt:     params.CreatedAt,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return domain.Profile{}, false, storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByUserID(ctx, params.UserID)
		return existing, false, err
	}
	return toDomainProfile(rec), true, nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Profile, error) {
	var rec trustProfileModel
	if err := r.db.WithContext(ctx).Where("user_id = ? AND deleted_at IS NULL", userID).Take(&rec).Error; err != nil {
		return domain.Profile{}, storageErr(err)
	}
	return toDomainProfile(rec), nil
}

func (r *profileRepository) UpdateVerificationFlags(ctx context.Context, params ports.VerificationFlagsParams) (domain.Profile, error) {
	updates := map[string]any{
		"updated_at": params.UpdatedAt,
	}
	if params.EmailVerified != nil {
		updates["email_verified"] = *params.EmailVerified
	}
	if params.PhoneNumber != nil {
		updates["phone_number"] = strings.TrimSpace(*params.PhoneNumber)
	}
	if params.PhoneVerified != nil {
		updates["phone_verified"] = *params.PhoneVerified
	}
	if params.PhotoVerified != nil {
		updates["photo_verified"] = *params.PhotoVerified
	}
	res := r.db.WithContext(ctx).Model(&trustProfileModel{}).
		Where("user_id = ? AND deleted_at IS NULL", params.UserID).
		Updates(updates)
	if res.Error != nil {
		return domain.Profile{}, storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Profile{}, domain.ErrNotFound
	}
	return r.GetByUserID(ctx, params.UserID)
}

// RecordCompletedRide locks the profile row so concurrent ride events fold
// ratings into the average one at a time.
func (r *profileRepository) RecordCompletedRide(ctx context.Context, params ports.RecordRideParams) (domain.Profile, error) {
	var out trustProfileModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND deleted_at IS NULL", params.UserID).
			Take(&out).Error; err != nil {
			return err
		}
		if params.AsDriver {
			out.RidesOffered++
		} else {
			out.RidesTaken++
		}
		if params.Rating != nil {
			out.AverageRating, out.RatingCount = domain.ApplyRating(out.AverageRating, out.RatingCount, *params.Rating)
		}
		out.UpdatedAt = params.UpdatedAt
		return tx.Model(&trustProfileModel{}).Where("user_id = ?", params.UserID).Updates(map[string]any{
			"rides_offered":  out.RidesOffered,
			"rides_taken":    out.RidesTaken,
			"average_rating": out.AverageRating,
			"rating_count":   out.RatingCount,
			"updated_at":     out.UpdatedAt,
		}).Error
	})
	if err != nil {
		return domain.Profile{}, storageErr(err)
	}
	return toDomainProfile(out), nil
}

func (r *profileRepository) SaveTrustScore(ctx context.Context, userID uuid.UUID, score int, computedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&trustProfileModel{}).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Updates(map[string]any{
			"trust_score":             score,
			"trust_score_computed_at": computedAt,
		})
	if res.Error != nil {
		return storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *profileRepository) SoftDeleteByUserID(ctx context.Context, userID uuid.UUID, deletedAt time.Time) error {
	return storageErr(r.db.WithContext(ctx).Model(&trustProfileModel{}).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Updates(map[string]any{
			"deleted_at": deletedAt,
			"updated_at": deletedAt,
		}).Error)
}

var _ ports.ProfileRepository = (*profileRepository)(nil)
