package postgres

import "github.com/carpoolnetwork/trust-service/internal/domain"

func toDomainProfile(m trustProfileModel) domain.Profile {
	return domain.Profile{
		UserID:             m.UserID,
		Email:              m.Email,
		EmailVerified:      m.EmailVerified,
		PhoneNumber:        m.PhoneNumber,
		PhoneVerified:      m.PhoneVerified,
		PhotoVerified:      m.PhotoVerified,
		Bio:                m.Bio,
		AvatarURL:          m.AvatarURL,
		AverageRating:      m.AverageRating,
		RatingCount:        m.RatingCount,
		RidesOffered:       m.RidesOffered,
		RidesTaken:         m.RidesTaken,
		TrustScore:         m.TrustScore,
		TrustScoreComputed: m.TrustScoreComputed,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		DeletedAt:          m.DeletedAt,
	}
}

func toDomainLicense(m driverLicenseModel) domain.DriverLicense {
	return domain.DriverLicense{
		LicenseID:              m.LicenseID,
		UserID:                 m.UserID,
		Status:                 domain.LicenseStatus(m.Status),
		LicenseNumberEncrypted: m.LicenseNumberEncrypted,
		ExpiryDate:             m.ExpiryDate,
		DocumentKey:            m.DocumentKey,
		RejectionReason:        m.RejectionReason,
		SubmittedAt:            m.SubmittedAt,
		ReviewedAt:             m.ReviewedAt,
		ReviewedBy:             m.ReviewedBy,
	}
}

func toDomainInsurance(m vehicleInsuranceModel) domain.VehicleInsurance {
	return domain.VehicleInsurance{
		InsuranceID:     m.InsuranceID,
		UserID:          m.UserID,
		Status:          domain.InsuranceStatus(m.Status),
		Provider:        m.Provider,
		PolicyNumber:    m.PolicyNumber,
		ExpiryDate:      m.ExpiryDate,
		DocumentKey:     m.DocumentKey,
		RejectionReason: m.RejectionReason,
		SubmittedAt:     m.SubmittedAt,
		ReviewedAt:      m.ReviewedAt,
		ReviewedBy:      m.ReviewedBy,
	}
}

func toDomainReliability(m reliabilityScoreModel) domain.ReliabilityScore {
	return domain.ReliabilityScore{
		UserID:                  m.UserID,
		TotalRides:              m.TotalRides,
		CompletedRides:          m.CompletedRides,
		CancelledRides:          m.CancelledRides,
		LastMinuteCancellations: m.LastMinuteCancellations,
		CompletionRate:          m.CompletionRate,
		CancellationRate:        m.CancellationRate,
		Score:                   m.ReliabilityScore,
		WarningCount:            m.WarningCount,
		IsInGracePeriod:         m.IsInGracePeriod,
		GraceRidesRemaining:     m.GraceRidesRemaining,
		UpdatedAt:               m.UpdatedAt,
	}
}

func toReliabilityModel(s domain.ReliabilityScore) reliabilityScoreModel {
	return reliabilityScoreModel{
		UserID:                  s.UserID,
		TotalRides:              s.TotalRides,
		CompletedRides:          s.CompletedRides,
		CancelledRides:          s.CancelledRides,
		LastMinuteCancellations: s.LastMinuteCancellations,
		CompletionRate:          s.CompletionRate,
		CancellationRate:        s.CancellationRate,
		ReliabilityScore:        s.Score,
		WarningCount:            s.WarningCount,
		IsInGracePeriod:         s.IsInGracePeriod,
		GraceRidesRemaining:     s.GraceRidesRemaining,
		UpdatedAt:               s.UpdatedAt,
	}
}

func toDomainRestriction(m bookingRestrictionModel) domain.BookingRestriction {
	return domain.BookingRestriction{
		RestrictionID:   m.RestrictionID,
		UserID:          m.UserID,
		RestrictionType: m.RestrictionType,
		Reason:          m.Reason,
		StartsAt:        m.StartsAt,
		EndsAt:          m.EndsAt,
		Active:          m.IsActive,
		CreatedAt:       m.CreatedAt,
	}
}
