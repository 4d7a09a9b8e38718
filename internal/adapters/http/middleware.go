package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyClaims    ctxKey = "claims"
)

const roleAdmin = "ADMIN"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpLogger().ErrorContext(r.Context(), "panic recovered",
					"operation", "recover",
					"outcome", "failure",
					"request_id", requestIDFromContext(r.Context()),
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration)
}

func loggingMiddleware(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			if recorder != nil {
				recorder.RecordRequest(r.Context(), r.Method, route, rec.status, elapsed)
			}
			httpLogger().InfoContext(r.Context(), "http request",
				"operation", "serve",
				"outcome", outcomeFor(rec.status),
				"method", r.Method,
				"route", route,
				"status_code", rec.status,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", requestIDFromContext(r.Context()),
			)
		})
	}
}

func outcomeFor(status int) string {
	if status >= 400 {
		return "failure"
	}
	return "success"
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeUnauthorized(r.Context(), w, "auth")
			return
		}
		claims, err := h.service.ValidateToken(r.Context(), raw)
		if err != nil {
			writeUnauthorized(r.Context(), w, "auth")
			return
		}
		if _, err := uuid.Parse(claims.UserID); err != nil {
			writeUnauthorized(r.Context(), w, "auth")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || !strings.EqualFold(claims.Role, roleAdmin) {
			writeMappedError(r.Context(), w, "admin_check", domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerTokenFromHeader(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", domain.ErrUnauthorized
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", domain.ErrUnauthorized
	}
	return token, nil
}

func claimsFromContext(ctx context.Context) (ports.AuthClaims, bool) {
	v := ctx.Value(ctxKeyClaims)
	claims, ok := v.(ports.AuthClaims)
	return claims, ok
}

// callerID returns the authenticated user. authMiddleware has already
// checked that the subject parses.
func callerID(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func requestIDFromContext(ctx context.Context) string {
	v := ctx.Value(ctxKeyRequestID)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
