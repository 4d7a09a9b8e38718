package http

import (
	"context"
	"net/http"

	"github.com/carpoolnetwork/trust-service/internal/application"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Service is the application surface the HTTP adapter drives.
type Service interface {
	ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error)
	GetTrustScore(ctx context.Context, userID uuid.UUID) (application.TrustScoreResponse, error)
	RefreshTrustScore(ctx context.Context, userID uuid.UUID) (application.TrustScoreResponse, error)
	GetReliability(ctx context.Context, userID uuid.UUID) (application.ReliabilityResponse, error)
	GetAchievements(ctx context.Context, userID uuid.UUID) (application.AchievementsResponse, error)
	GetCompleteness(ctx context.Context, userID uuid.UUID) (application.CompletenessResponse, error)
	ListDocuments(ctx context.Context, userID uuid.UUID) (application.DocumentsResponse, error)
	SubmitLicense(ctx context.Context, userID uuid.UUID, req application.SubmitLicenseRequest, idempotencyKey string) (application.LicenseView, error)
	SubmitInsurance(ctx context.Context, userID uuid.UUID, req application.SubmitInsuranceRequest, idempotencyKey string) (application.InsuranceView, error)
	AdminListPendingLicenses(ctx context.Context, limit, offset int) ([]application.LicenseView, error)
	AdminApproveLicense(ctx context.Context, userID uuid.UUID, req application.AdminReviewRequest) (application.LicenseView, error)
	AdminRejectLicense(ctx context.Context, userID uuid.UUID, req application.AdminReviewRequest) (application.LicenseView, error)
	AdminApproveInsurance(ctx context.Context, insuranceID uuid.UUID, req application.AdminReviewRequest) (application.InsuranceView, error)
	AdminRejectInsurance(ctx context.Context, insuranceID uuid.UUID, req application.AdminReviewRequest) (application.InsuranceView, error)
	AdminSetVerificationFlags(ctx context.Context, userID uuid.UUID, req application.VerificationFlagsRequest) (application.TrustScoreResponse, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ReadinessCheck reports whether backing stores are reachable.
type ReadinessCheck func(ctx context.Context) error

func NewRouter(handler *Handler, ready ReadinessCheck, recorder RequestRecorder) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware(recorder))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", err)
				writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
				return
			}
		}
		writeMessage(w, http.StatusOK, "ready")
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/trust", func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/users/{user_id}/score", handler.getUserTrustScore)
			r.Get("/me/score", handler.getMyTrustScore)
			r.Post("/me/score/refresh", handler.refreshMyTrustScore)
			r.Get("/me/reliability", handler.getMyReliability)
			r.Get("/me/achievements", handler.getMyAchievements)
			r.Get("/me/completeness", handler.getMyCompleteness)
			r.Get("/me/documents", handler.listMyDocuments)
			r.Put("/me/license", handler.submitLicense)
			r.Post("/me/insurance", handler.submitInsurance)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Use(adminOnly)
			r.Get("/licenses/pending", handler.adminListPendingLicenses)
			r.Post("/licenses/{user_id}/approve", handler.adminApproveLicense)
			r.Post("/licenses/{user_id}/reject", handler.adminRejectLicense)
			r.Post("/insurance/{insurance_id}/approve", handler.adminApproveInsurance)
			r.Post("/insurance/{insurance_id}/reject", handler.adminRejectInsurance)
			r.Put("/users/{user_id}/verification", handler.adminSetVerification)
		})
	})
	return r
}
