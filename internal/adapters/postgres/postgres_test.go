package postgres

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestStorageErrMapsToDomain(t *testing.T) {
	t.Parallel()

	if storageErr(nil) != nil {
		t.Fatal("nil should stay nil")
	}
	if !errors.Is(storageErr(gorm.ErrRecordNotFound), domain.ErrNotFound) {
		t.Fatal("record not found should map to ErrNotFound")
	}
	if !errors.Is(storageErr(gorm.ErrDuplicatedKey), domain.ErrConflict) {
		t.Fatal("duplicated key should map to ErrConflict")
	}
	dup := errors.New(`ERROR: duplicate key value violates unique constraint "driver_licenses_user_id_key"`)
	if !errors.Is(storageErr(dup), domain.ErrConflict) {
		t.Fatal("unique violation text should map to ErrConflict")
	}
	if !errors.Is(storageErr(errors.New("connection refused")), domain.ErrStorageUnavailable) {
		t.Fatal("other errors should map to ErrStorageUnavailable")
	}
}

func TestReliabilityModelRoundTrip(t *testing.T) {
	t.Parallel()

	in := domain.ReliabilityScore{
		UserID:                  uuid.New(),
		TotalRides:              12,
		CompletedRides:          10,
		CancelledRides:          2,
		LastMinuteCancellations: 1,
		CompletionRate:          0.833,
		CancellationRate:        0.167,
		Score:                   81,
		WarningCount:            1,
		IsInGracePeriod:         true,
		GraceRidesRemaining:     2,
		UpdatedAt:               time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	if out := toDomainReliability(toReliabilityModel(in)); out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestToDomainRestrictionCarriesActiveFlag(t *testing.T) {
	t.Parallel()

	ends := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	got := toDomainRestriction(bookingRestrictionModel{
		RestrictionID:   uuid.New(),
		RestrictionType: "booking_suspended",
		EndsAt:          &ends,
		IsActive:        true,
	})
	if !got.Active || got.EndsAt == nil || !got.EndsAt.Equal(ends) {
		t.Fatalf("unexpected restriction %+v", got)
	}
}

func TestEmbeddedMigrationsOrdered(t *testing.T) {
	t.Parallel()

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least two migrations, got %d", len(entries))
	}
	prev := ""
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			t.Fatalf("unexpected migration file %s", e.Name())
		}
		if e.Name() <= prev {
			t.Fatalf("migrations not ordered: %s after %s", e.Name(), prev)
		}
		prev = e.Name()
	}
}
