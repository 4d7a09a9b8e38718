package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/carpoolnetwork/trust-service/internal/application"
	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type reviewBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) getUserTrustScore(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "get_user_trust_score", fmt.Errorf("%w: invalid user_id", domain.ErrInvalidInput))
		return
	}
	resp, err := h.service.GetTrustScore(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_user_trust_score", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getMyTrustScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "get_my_trust_score")
		return
	}
	resp, err := h.service.GetTrustScore(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_my_trust_score", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) refreshMyTrustScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "refresh_trust_score")
		return
	}
	resp, err := h.service.RefreshTrustScore(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh_trust_score", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getMyReliability(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "get_reliability")
		return
	}
	resp, err := h.service.GetReliability(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_reliability", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getMyAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "get_achievements")
		return
	}
	resp, err := h.service.GetAchievements(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_achievements", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getMyCompleteness(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "get_completeness")
		return
	}
	resp, err := h.service.GetCompleteness(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_completeness", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listMyDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "list_documents")
		return
	}
	resp, err := h.service.ListDocuments(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_documents", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) submitLicense(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "submit_license")
		return
	}
	var req application.SubmitLicenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "submit_license", fmt.Errorf("invalid json body: %v", err))
		return
	}
	resp, err := h.service.SubmitLicense(r.Context(), userID, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeMappedError(r.Context(), w, "submit_license", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) submitInsurance(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, "submit_insurance")
		return
	}
	var req application.SubmitInsuranceRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "submit_insurance", fmt.Errorf("invalid json body: %v", err))
		return
	}
	resp, err := h.service.SubmitInsurance(r.Context(), userID, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeMappedError(r.Context(), w, "submit_insurance", err)
		return
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func (h *Handler) adminListPendingLicenses(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	resp, err := h.service.AdminListPendingLicenses(r.Context(), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_list_pending_licenses", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"items":  resp,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) adminApproveLicense(w http.ResponseWriter, r *http.Request) {
	serveReview(w, r, "admin_approve_license", "user_id", h.service.AdminApproveLicense)
}

func (h *Handler) adminRejectLicense(w http.ResponseWriter, r *http.Request) {
	serveReview(w, r, "admin_reject_license", "user_id", h.service.AdminRejectLicense)
}

func (h *Handler) adminApproveInsurance(w http.ResponseWriter, r *http.Request) {
	serveReview(w, r, "admin_approve_insurance", "insurance_id", h.service.AdminApproveInsurance)
}

func (h *Handler) adminRejectInsurance(w http.ResponseWriter, r *http.Request) {
	serveReview(w, r, "admin_reject_insurance", "insurance_id", h.service.AdminRejectInsurance)
}

// serveReview handles the approve/reject family. The body is optional for
// approvals; rejections validate the reason in the service.
func serveReview[T any](w http.ResponseWriter, r *http.Request, operation, param string, review func(context.Context, uuid.UUID, application.AdminReviewRequest) (T, error)) {
	actorID, ok := callerID(r.Context())
	if !ok {
		writeUnauthorized(r.Context(), w, operation)
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeValidationError(r.Context(), w, operation, fmt.Errorf("%w: invalid %s", domain.ErrInvalidInput, param))
		return
	}
	var body reviewBody
	if err := decodeBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeValidationError(r.Context(), w, operation, fmt.Errorf("invalid json body: %v", err))
		return
	}
	resp, err := review(r.Context(), targetID, application.AdminReviewRequest{
		ActorID: actorID,
		Reason:  body.Reason,
	})
	if err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) adminSetVerification(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "admin_set_verification", fmt.Errorf("%w: invalid user_id", domain.ErrInvalidInput))
		return
	}
	var req application.VerificationFlagsRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "admin_set_verification", fmt.Errorf("invalid json body: %v", err))
		return
	}
	resp, err := h.service.AdminSetVerificationFlags(r.Context(), userID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_set_verification", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
