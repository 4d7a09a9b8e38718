package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidateLicenseNumber(t *testing.T) {
	t.Parallel()

	if err := ValidateLicenseNumber(NormalizeLicenseNumber(" d123-4567 89 ")); err != nil {
		t.Fatalf("expected valid license number, got %v", err)
	}
	if err := ValidateLicenseNumber("ab"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestValidateFutureExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.May, 1, 23, 0, 0, 0, time.UTC)
	if err := ValidateFutureExpiry("expiry_date", now, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected same-day expiry to be rejected, got %v", err)
	}
	if err := ValidateFutureExpiry("expiry_date", now.AddDate(0, 0, 1), now); err != nil {
		t.Fatalf("expected next-day expiry to pass, got %v", err)
	}
	if err := ValidateFutureExpiry("expiry_date", time.Time{}, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing expiry to be rejected, got %v", err)
	}
}

func TestValidateDocumentKey(t *testing.T) {
	t.Parallel()

	if err := ValidateDocumentKey(""); err != nil {
		t.Fatalf("empty key should be allowed: %v", err)
	}
	if err := ValidateDocumentKey("licenses/u1/front.jpg"); err != nil {
		t.Fatalf("expected valid key: %v", err)
	}
	if err := ValidateDocumentKey("../etc/passwd"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected traversal to be rejected, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate("expiry_date", "2027-01-31")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if got.Year() != 2027 || got.Month() != time.January || got.Day() != 31 {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := ParseDate("expiry_date", "31/01/2027"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
