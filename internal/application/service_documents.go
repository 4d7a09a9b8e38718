package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
)

func (s *Service) SubmitLicense(ctx context.Context, userID uuid.UUID, req SubmitLicenseRequest, idempotencyKey string) (LicenseView, error) {
	number := domain.NormalizeLicenseNumber(req.LicenseNumber)
	if err := domain.ValidateLicenseNumber(number); err != nil {
		return LicenseView{}, err
	}
	expiry, err := domain.ParseDate("expiry_date", req.ExpiryDate)
	if err != nil {
		return LicenseView{}, err
	}
	now := s.nowFn()
	if err := domain.ValidateFutureExpiry("expiry_date", expiry, now); err != nil {
		return LicenseView{}, err
	}
	if err := domain.ValidateDocumentKey(req.DocumentKey); err != nil {
		return LicenseView{}, err
	}
	if _, err := s.profiles.GetByUserID(ctx, userID); err != nil {
		return LicenseView{}, err
	}
	request := map[string]any{
		"op": "submit_license", "user_id": userID.String(), "number": number, "expiry": req.ExpiryDate, "document_key": req.DocumentKey,
	}
	return runIdempotent(ctx, s, idempotencyKey, "submit_license", request, func() (LicenseView, error) {
		encrypted, err := s.encryption.Encrypt(userID.String(), number)
		if err != nil {
			return LicenseView{}, fmt.Errorf("%w: encrypt license number", domain.ErrDependencyUnavailable)
		}
		license, err := s.licenses.Upsert(ctx, ports.UpsertLicenseParams{
			UserID:                 userID,
			LicenseNumberEncrypted: encrypted,
			ExpiryDate:             expiry,
			DocumentKey:            req.DocumentKey,
			SubmittedAt:            now,
		})
		if err != nil {
			return LicenseView{}, err
		}
		_ = s.enqueueDocumentEvent(ctx, eventDocumentSubmitted, userID, documentEventData{
			DocumentType: "driver_license",
			DocumentID:   license.LicenseID.String(),
			Status:       string(license.Status),
		})
		// a resubmission resets a verified license to pending, which can lower the score
		s.rescore(ctx, userID, "license_submitted")
		return s.toLicenseView(license), nil
	})
}

func (s *Service) SubmitInsurance(ctx context.Context, userID uuid.UUID, req SubmitInsuranceRequest, idempotencyKey string) (InsuranceView, error) {
	if err := domain.ValidateProvider(req.Provider); err != nil {
		return InsuranceView{}, err
	}
	if err := domain.ValidatePolicyNumber(req.PolicyNumber); err != nil {
		return InsuranceView{}, err
	}
	expiry, err := domain.ParseDate("expiry_date", req.ExpiryDate)
	if err != nil {
		return InsuranceView{}, err
	}
	now := s.nowFn()
	if err := domain.ValidateFutureExpiry("expiry_date", expiry, now); err != nil {
		return InsuranceView{}, err
	}
	if err := domain.ValidateDocumentKey(req.DocumentKey); err != nil {
		return InsuranceView{}, err
	}
	if _, err := s.profiles.GetByUserID(ctx, userID); err != nil {
		return InsuranceView{}, err
	}
	request := map[string]any{
		"op": "submit_insurance", "user_id": userID.String(), "provider": req.Provider, "policy": req.PolicyNumber, "expiry": req.ExpiryDate,
		"document_key": req.DocumentKey,
	}
	return runIdempotent(ctx, s, idempotencyKey, "submit_insurance", request, func() (InsuranceView, error) {
		ins, err := s.insurance.Create(ctx, ports.CreateInsuranceParams{
			UserID:       userID,
			Provider:     strings.TrimSpace(req.Provider),
			PolicyNumber: strings.TrimSpace(req.PolicyNumber),
			ExpiryDate:   expiry,
			DocumentKey:  req.DocumentKey,
			SubmittedAt:  now,
		})
		if err != nil {
			return InsuranceView{}, err
		}
		_ = s.enqueueDocumentEvent(ctx, eventDocumentSubmitted, userID, documentEventData{
			DocumentType: "vehicle_insurance",
			DocumentID:   ins.InsuranceID.String(),
			Status:       string(ins.Status),
		})
		return toInsuranceView(ins), nil
	})
}

func (s *Service) ListDocuments(ctx context.Context, userID uuid.UUID) (DocumentsResponse, error) {
	resp := DocumentsResponse{Insurance: []InsuranceView{}}
	license, err := s.licenses.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return DocumentsResponse{}, err
	default:
		view := s.toLicenseView(license)
		resp.License = &view
	}
	list, err := s.insurance.ListByUserID(ctx, userID)
	if err != nil {
		return DocumentsResponse{}, err
	}
	for _, ins := range list {
		resp.Insurance = append(resp.Insurance, toInsuranceView(ins))
	}
	return resp, nil
}

func (s *Service) AdminListPendingLicenses(ctx context.Context, limit, offset int) ([]LicenseView, error) {
	if limit <= 0 || limit > s.cfg.PendingQueueLimit {
		limit = s.cfg.PendingQueueLimit
	}
	if offset < 0 {
		offset = 0
	}
	pending, err := s.licenses.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]LicenseView, 0, len(pending))
	for _, lic := range pending {
		out = append(out, s.toLicenseView(lic))
	}
	return out, nil
}

func (s *Service) AdminApproveLicense(ctx context.Context, userID uuid.UUID, req AdminReviewRequest) (LicenseView, error) {
	current, err := s.licenses.GetByUserID(ctx, userID)
	if err != nil {
		return LicenseView{}, err
	}
	if err := requirePending(string(current.Status), string(domain.LicenseStatusPending), "license"); err != nil {
		return LicenseView{}, err
	}
	if domain.IsExpired(current.ExpiryDate, s.nowFn()) {
		return LicenseView{}, fmt.Errorf("%w: license already expired", domain.ErrConflict)
	}
	return s.reviewLicense(ctx, userID, domain.LicenseStatusVerified, req)
}

func (s *Service) AdminRejectLicense(ctx context.Context, userID uuid.UUID, req AdminReviewRequest) (LicenseView, error) {
	if err := domain.ValidateRejectionReason(req.Reason); err != nil {
		return LicenseView{}, err
	}
	current, err := s.licenses.GetByUserID(ctx, userID)
	if err != nil {
		return LicenseView{}, err
	}
	if err := requirePending(string(current.Status), string(domain.LicenseStatusPending), "license"); err != nil {
		return LicenseView{}, err
	}
	return s.reviewLicense(ctx, userID, domain.LicenseStatusRejected, req)
}

// requirePending rejects reviews of documents that already left pending.
func requirePending(status, pending, document string) error {
	if status != pending {
		return fmt.Errorf("%w: %s is %s, only pending documents can be reviewed", domain.ErrConflict, document, status)
	}
	return nil
}

func (s *Service) reviewLicense(ctx context.Context, userID uuid.UUID, status domain.LicenseStatus, req AdminReviewRequest) (LicenseView, error) {
	license, err := s.licenses.UpdateStatus(ctx, userID, status, ports.ReviewParams{
		Reason:     strings.TrimSpace(req.Reason),
		ReviewedAt: s.nowFn(),
		ReviewedBy: req.ActorID,
	})
	if err != nil {
		return LicenseView{}, err
	}
	_ = s.enqueueDocumentEvent(ctx, eventDocumentReviewed, userID, documentEventData{
		DocumentType: "driver_license",
		DocumentID:   license.LicenseID.String(),
		Status:       string(license.Status),
		Reason:       license.RejectionReason,
		ReviewedBy:   req.ActorID.String(),
	})
	s.rescore(ctx, userID, "license_reviewed")
	return s.toLicenseView(license), nil
}

func (s *Service) AdminApproveInsurance(ctx context.Context, insuranceID uuid.UUID, req AdminReviewRequest) (InsuranceView, error) {
	current, err := s.insurance.GetByID(ctx, insuranceID)
	if err != nil {
		return InsuranceView{}, err
	}
	if err := requirePending(string(current.Status), string(domain.InsuranceStatusPending), "insurance"); err != nil {
		return InsuranceView{}, err
	}
	if domain.IsExpired(current.ExpiryDate, s.nowFn()) {
		return InsuranceView{}, fmt.Errorf("%w: insurance already expired", domain.ErrConflict)
	}
	return s.reviewInsurance(ctx, insuranceID, domain.InsuranceStatusActive, req)
}

func (s *Service) AdminRejectInsurance(ctx context.Context, insuranceID uuid.UUID, req AdminReviewRequest) (InsuranceView, error) {
	if err := domain.ValidateRejectionReason(req.Reason); err != nil {
		return InsuranceView{}, err
	}
	current, err := s.insurance.GetByID(ctx, insuranceID)
	if err != nil {
		return InsuranceView{}, err
	}
	if err := requirePending(string(current.Status), string(domain.InsuranceStatusPending), "insurance"); err != nil {
		return InsuranceView{}, err
	}
	return s.reviewInsurance(ctx, insuranceID, domain.InsuranceStatusRejected, req)
}

func (s *Service) reviewInsurance(ctx context.Context, insuranceID uuid.UUID, status domain.InsuranceStatus, req AdminReviewRequest) (InsuranceView, error) {
	ins, err := s.insurance.UpdateStatus(ctx, insuranceID, status, ports.ReviewParams{
		Reason:     strings.TrimSpace(req.Reason),
		ReviewedAt: s.nowFn(),
		ReviewedBy: req.ActorID,
	})
	if err != nil {
		return InsuranceView{}, err
	}
	_ = s.enqueueDocumentEvent(ctx, eventDocumentReviewed, ins.UserID, documentEventData{
		DocumentType: "vehicle_insurance",
		DocumentID:   ins.InsuranceID.String(),
		Status:       string(ins.Status),
		Reason:       ins.RejectionReason,
		ReviewedBy:   req.ActorID.String(),
	})
	s.rescore(ctx, ins.UserID, "insurance_reviewed")
	return toInsuranceView(ins), nil
}

func (s *Service) AdminSetVerificationFlags(ctx context.Context, userID uuid.UUID, req VerificationFlagsRequest) (TrustScoreResponse, error) {
	if req.EmailVerified == nil && req.PhoneNumber == nil && req.PhoneVerified == nil && req.PhotoVerified == nil {
		return TrustScoreResponse{}, fmt.Errorf("%w: no verification flags supplied", domain.ErrInvalidInput)
	}
	if _, err := s.profiles.UpdateVerificationFlags(ctx, ports.VerificationFlagsParams{
		UserID:        userID,
		EmailVerified: req.EmailVerified,
		PhoneNumber:   req.PhoneNumber,
		PhoneVerified: req.PhoneVerified,
		PhotoVerified: req.PhotoVerified,
		UpdatedAt:     s.nowFn(),
	}); err != nil {
		return TrustScoreResponse{}, err
	}
	s.invalidateScore(ctx, userID)
	return s.persistTrustScore(ctx, userID)
}

func (s *Service) toLicenseView(license domain.DriverLicense) LicenseView {
	view := LicenseView{
		UserID:          license.UserID.String(),
		Status:          string(license.Status),
		ExpiryDate:      license.ExpiryDate.Format(time.DateOnly),
		DocumentKey:     license.DocumentKey,
		RejectionReason: license.RejectionReason,
		SubmittedAt:     license.SubmittedAt,
		ReviewedAt:      license.ReviewedAt,
	}
	if len(license.LicenseNumberEncrypted) > 0 {
		if number, err := s.encryption.Decrypt(license.UserID.String(), license.LicenseNumberEncrypted); err == nil {
			view.LicenseNumberMasked = maskTail(number, 4)
		}
	}
	return view
}

func maskTail(v string, visible int) string {
	if len(v) <= visible {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-visible) + v[len(v)-visible:]
}
