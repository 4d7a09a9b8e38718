package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	licenseNumberPattern = regexp.MustCompile(`^[A-Z0-9-]{5,20}$`)
	policyNumberPattern  = regexp.MustCompile(`^[A-Za-z0-9/-]{4,40}$`)
	documentKeyPattern   = regexp.MustCompile(`^[a-zA-Z0-9/_.-]{1,255}$`)
	restrictionTypes     = map[string]struct{}{
		"booking_suspended":        {},
		"instant_booking_disabled": {},
		"warning":                  {},
	}
)

func NormalizeLicenseNumber(v string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v), " ", ""))
}

func ValidateLicenseNumber(v string) error {
	if !licenseNumberPattern.MatchString(v) {
		return fmt.Errorf("%w: license_number must be 5-20 letters, digits or hyphens", ErrInvalidInput)
	}
	return nil
}

func ValidatePolicyNumber(v string) error {
	if !policyNumberPattern.MatchString(strings.TrimSpace(v)) {
		return fmt.Errorf("%w: policy_number must be 4-40 characters", ErrInvalidInput)
	}
	return nil
}

func ValidateProvider(v string) error {
	trimmed := strings.TrimSpace(v)
	if len(trimmed) < 2 || len(trimmed) > 100 {
		return fmt.Errorf("%w: provider must be 2-100 chars", ErrInvalidInput)
	}
	return nil
}

// ValidateDocumentKey accepts an empty key; documents are optional.
func ValidateDocumentKey(v string) error {
	if v == "" {
		return nil
	}
	if strings.Contains(v, "..") || !documentKeyPattern.MatchString(v) {
		return fmt.Errorf("%w: invalid document_key", ErrInvalidInput)
	}
	return nil
}

// ValidateFutureExpiry requires an expiry strictly after today.
func ValidateFutureExpiry(field string, expiry, now time.Time) error {
	if expiry.IsZero() {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, field)
	}
	if !calendarDay(expiry).After(calendarDay(now)) {
		return fmt.Errorf("%w: %s must be in the future", ErrInvalidInput, field)
	}
	return nil
}

func ParseDate(field, v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return t, nil
}

func ValidateRejectionReason(v string) error {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return fmt.Errorf("%w: rejection_reason required", ErrInvalidInput)
	}
	if len(trimmed) > 500 {
		return fmt.Errorf("%w: rejection_reason must be <= 500 chars", ErrInvalidInput)
	}
	return nil
}

func ValidateRestrictionType(v string) error {
	if _, ok := restrictionTypes[v]; !ok {
		return fmt.Errorf("%w: unsupported restriction_type", ErrInvalidInput)
	}
	return nil
}

func ValidateRating(v float64) error {
	if v < 1 || v > maxRating {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	return nil
}
