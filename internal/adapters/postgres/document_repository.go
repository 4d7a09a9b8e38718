package postgres

import (
	"context"
	"fmt"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type licenseRepository struct {
	db *gorm.DB
}

func (r *licenseRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.DriverLicense, error) {
	var rec driverLicenseModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		return domain.DriverLicense{}, storageErr(err)
	}
	return toDomainLicense(rec), nil
}

// Upsert is keyed by user. A resubmission replaces the previous license and
// puts it back into review.
func (r *licenseRepository) Upsert(ctx context.Context, params ports.UpsertLicenseParams) (domain.DriverLicense, error) {
	rec := driverLicenseModel{
		LicenseID:              uuid.New(),
		UserID:                 params.UserID,
		Status:                 string(domain.LicenseStatusPending),
		LicenseNumberEncrypted: params.LicenseNumberEncrypted,
		ExpiryDate:             params.ExpiryDate,
		DocumentKey:            params.DocumentKey,
		SubmittedAt:            params.SubmittedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":                   string(domain.LicenseStatusPending),
			"license_number_encrypted": params.LicenseNumberEncrypted,
			"expiry_date":              params.ExpiryDate,
			"document_key":             params.DocumentKey,
			"submitted_at":             params.SubmittedAt,
			"rejection_reason":         "",
			"reviewed_at":              nil,
			"reviewed_by":              nil,
		}),
	}).Create(&rec).Error
	if err != nil {
		return domain.DriverLicense{}, storageErr(err)
	}
	return r.GetByUserID(ctx, params.UserID)
}

func (r *licenseRepository) UpdateStatus(ctx context.Context, userID uuid.UUID, status domain.LicenseStatus, review ports.ReviewParams) (domain.DriverLicense, error) {
	res := r.db.WithContext(ctx).Model(&driverLicenseModel{}).
		Where("user_id = ? AND status = ?", userID, string(domain.LicenseStatusPending)).
		Updates(map[string]any{
			"status":           string(status),
			"rejection_reason": review.Reason,
			"reviewed_at":      review.ReviewedAt,
			"reviewed_by":      review.ReviewedBy,
		})
	if res.Error != nil {
		return domain.DriverLicense{}, storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByUserID(ctx, userID); err != nil {
			return domain.DriverLicense{}, err
		}
		return domain.DriverLicense{}, fmt.Errorf("%w: license already reviewed", domain.ErrConflict)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *licenseRepository) ListPending(ctx context.Context, limit, offset int) ([]domain.DriverLicense, error) {
	var rows []driverLicenseModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.LicenseStatusPending)).
		Order("submitted_at asc").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, storageErr(err)
	}
	out := make([]domain.DriverLicense, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLicense(row))
	}
	return out, nil
}

type insuranceRepository struct {
	db *gorm.DB
}

func (r *insuranceRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.VehicleInsurance, error) {
	var rows []vehicleInsuranceModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("submitted_at desc").Find(&rows).Error; err != nil {
		return nil, storageErr(err)
	}
	out := make([]domain.VehicleInsurance, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainInsurance(row))
	}
	return out, nil
}

func (r *insuranceRepository) GetByID(ctx context.Context, insuranceID uuid.UUID) (domain.VehicleInsurance, error) {
	var rec vehicleInsuranceModel
	if err := r.db.WithContext(ctx).Where("insurance_id = ?", insuranceID).Take(&rec).Error; err != nil {
		return domain.VehicleInsurance{}, storageErr(err)
	}
	return toDomainInsurance(rec), nil
}

func (r *insuranceRepository) Create(ctx context.Context, params ports.CreateInsuranceParams) (domain.VehicleInsurance, error) {
	rec := vehicleInsuranceModel{
		InsuranceID:  uuid.New(),
		UserID:       params.UserID,
		Status:       string(domain.InsuranceStatusPending),
		Provider:     params.Provider,
		PolicyNumber: params.PolicyNumber,
		ExpiryDate:   params.ExpiryDate,
		DocumentKey:  params.DocumentKey,
		SubmittedAt:  params.SubmittedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.VehicleInsurance{}, storageErr(err)
	}
	return toDomainInsurance(rec), nil
}

func (r *insuranceRepository) UpdateStatus(ctx context.Context, insuranceID uuid.UUID, status domain.InsuranceStatus, review ports.ReviewParams) (domain.VehicleInsurance, error) {
	res := r.db.WithContext(ctx).Model(&vehicleInsuranceModel{}).
		Where("insurance_id = ? AND status = ?", insuranceID, string(domain.InsuranceStatusPending)).
		Updates(map[string]any{
			"status":           string(status),
			"rejection_reason": review.Reason,
			"reviewed_at":      review.ReviewedAt,
			"reviewed_by":      review.ReviewedBy,
		})
	if res.Error != nil {
		return domain.VehicleInsurance{}, storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, insuranceID); err != nil {
			return domain.VehicleInsurance{}, err
		}
		return domain.VehicleInsurance{}, fmt.Errorf("%w: insurance already reviewed", domain.ErrConflict)
	}
	return r.GetByID(ctx, insuranceID)
}

var (
	_ ports.LicenseRepository   = (*licenseRepository)(nil)
	_ ports.InsuranceRepository = (*insuranceRepository)(nil)
)
