package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
)

type fakeProfiles struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]domain.Profile
	getErr error
	saved  map[uuid.UUID]int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[uuid.UUID]domain.Profile{}, saved: map[uuid.UUID]int{}}
}

func (f *fakeProfiles) put(p domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.UserID] = p
}

func (f *fakeProfiles) CreateIfMissing(_ context.Context, params ports.CreateProfileParams) (domain.Profile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[params.UserID]; ok {
		return p, false, nil
	}
	p := domain.Profile{
		UserID:        params.UserID,
		Email:         params.Email,
		EmailVerified: params.EmailVerified,
		CreatedAt:     params.CreatedAt,
		UpdatedAt:     params.CreatedAt,
	}
	f.rows[params.UserID] = p
	return p, true, nil
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID uuid.UUID) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Profile{}, f.getErr
	}
	p, ok := f.rows[userID]
	if !ok || p.DeletedAt != nil {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) UpdateVerificationFlags(_ context.Context, params ports.VerificationFlagsParams) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[params.UserID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	if params.EmailVerified != nil {
		p.EmailVerified = *params.EmailVerified
	}
	if params.PhoneNumber != nil {
		p.PhoneNumber = *params.PhoneNumber
	}
	if params.PhoneVerified != nil {
		p.PhoneVerified = *params.PhoneVerified
	}
	if params.PhotoVerified != nil {
		p.PhotoVerified = *params.PhotoVerified
	}
	p.UpdatedAt = params.UpdatedAt
	f.rows[params.UserID] = p
	return p, nil
}

func (f *fakeProfiles) RecordCompletedRide(_ context.Context, params ports.RecordRideParams) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[params.UserID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	if params.AsDriver {
		p.RidesOffered++
	} else {
		p.RidesTaken++
	}
	if params.Rating != nil {
		p.AverageRating, p.RatingCount = domain.ApplyRating(p.AverageRating, p.RatingCount, *params.Rating)
	}
	f.rows[params.UserID] = p
	return p, nil
}

func (f *fakeProfiles) SaveTrustScore(_ context.Context, userID uuid.UUID, score int, computedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.TrustScore = &score
	p.TrustScoreComputed = &computedAt
	f.rows[userID] = p
	f.saved[userID] = score
	return nil
}

func (f *fakeProfiles) SoftDeleteByUserID(_ context.Context, userID uuid.UUID, deletedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.DeletedAt = &deletedAt
	f.rows[userID] = p
	return nil
}

type fakeLicenses struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]domain.DriverLicense
	getErr    error
	upsertErr error
	upserts   int
}

func newFakeLicenses() *fakeLicenses {
	return &fakeLicenses{rows: map[uuid.UUID]domain.DriverLicense{}}
}

func (f *fakeLicenses) GetByUserID(_ context.Context, userID uuid.UUID) (domain.DriverLicense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.DriverLicense{}, f.getErr
	}
	lic, ok := f.rows[userID]
	if !ok {
		return domain.DriverLicense{}, domain.ErrNotFound
	}
	return lic, nil
}

func (f *fakeLicenses) Upsert(_ context.Context, params ports.UpsertLicenseParams) (domain.DriverLicense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		err := f.upsertErr
		f.upsertErr = nil
		return domain.DriverLicense{}, err
	}
	f.upserts++
	lic, ok := f.rows[params.UserID]
	if !ok {
		lic = domain.DriverLicense{LicenseID: uuid.New(), UserID: params.UserID}
	}
	lic.Status = domain.LicenseStatusPending
	lic.LicenseNumberEncrypted = params.LicenseNumberEncrypted
	lic.ExpiryDate = params.ExpiryDate
	lic.DocumentKey = params.DocumentKey
	lic.SubmittedAt = params.SubmittedAt
	lic.RejectionReason = ""
	lic.ReviewedAt = nil
	lic.ReviewedBy = nil
	f.rows[params.UserID] = lic
	return lic, nil
}

func (f *fakeLicenses) UpdateStatus(_ context.Context, userID uuid.UUID, status domain.LicenseStatus, review ports.ReviewParams) (domain.DriverLicense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.rows[userID]
	if !ok {
		return domain.DriverLicense{}, domain.ErrNotFound
	}
	if lic.Status != domain.LicenseStatusPending {
		return domain.DriverLicense{}, domain.ErrConflict
	}
	lic.Status = status
	lic.RejectionReason = review.Reason
	reviewedAt := review.ReviewedAt
	reviewedBy := review.ReviewedBy
	lic.ReviewedAt = &reviewedAt
	lic.ReviewedBy = &reviewedBy
	f.rows[userID] = lic
	return lic, nil
}

func (f *fakeLicenses) ListPending(_ context.Context, limit, offset int) ([]domain.DriverLicense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DriverLicense, 0)
	for _, lic := range f.rows {
		if lic.Status == domain.LicenseStatusPending {
			out = append(out, lic)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeInsurance struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]domain.VehicleInsurance
	listErr error
}

func newFakeInsurance() *fakeInsurance {
	return &fakeInsurance{rows: map[uuid.UUID]domain.VehicleInsurance{}}
}

func (f *fakeInsurance) ListByUserID(_ context.Context, userID uuid.UUID) ([]domain.VehicleInsurance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.VehicleInsurance, 0)
	for _, ins := range f.rows {
		if ins.UserID == userID {
			out = append(out, ins)
		}
	}
	return out, nil
}

func (f *fakeInsurance) GetByID(_ context.Context, insuranceID uuid.UUID) (domain.VehicleInsurance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ins, ok := f.rows[insuranceID]
	if !ok {
		return domain.VehicleInsurance{}, domain.ErrNotFound
	}
	return ins, nil
}

func (f *fakeInsurance) Create(_ context.Context, params ports.CreateInsuranceParams) (domain.VehicleInsurance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ins := domain.VehicleInsurance{
		InsuranceID:  uuid.New(),
		UserID:       params.UserID,
		Status:       domain.InsuranceStatusPending,
		Provider:     params.Provider,
		PolicyNumber: params.PolicyNumber,
		ExpiryDate:   params.ExpiryDate,
		DocumentKey:  params.DocumentKey,
		SubmittedAt:  params.SubmittedAt,
	}
	f.rows[ins.InsuranceID] = ins
	return ins, nil
}

func (f *fakeInsurance) UpdateStatus(_ context.Context, insuranceID uuid.UUID, status domain.InsuranceStatus, review ports.ReviewParams) (domain.VehicleInsurance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ins, ok := f.rows[insuranceID]
	if !ok {
		return domain.VehicleInsurance{}, domain.ErrNotFound
	}
	if ins.Status != domain.InsuranceStatusPending {
		return domain.VehicleInsurance{}, domain.ErrConflict
	}
	ins.Status = status
	ins.RejectionReason = review.Reason
	reviewedAt := review.ReviewedAt
	ins.ReviewedAt = &reviewedAt
	f.rows[insuranceID] = ins
	return ins, nil
}

type fakeReliability struct {
	mu           sync.Mutex
	scores       map[uuid.UUID]domain.ReliabilityScore
	restrictions []domain.BookingRestriction
}

func newFakeReliability() *fakeReliability {
	return &fakeReliability{scores: map[uuid.UUID]domain.ReliabilityScore{}}
}

func (f *fakeReliability) GetByUserID(_ context.Context, userID uuid.UUID) (domain.ReliabilityScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scores[userID]
	if !ok {
		return domain.ReliabilityScore{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeReliability) Upsert(_ context.Context, score domain.ReliabilityScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[score.UserID] = score
	return nil
}

func (f *fakeReliability) ListActiveRestrictions(_ context.Context, userID uuid.UUID, _ time.Time) ([]domain.BookingRestriction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.BookingRestriction, 0)
	for _, r := range f.restrictions {
		if r.UserID == userID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReliability) CreateRestriction(_ context.Context, restriction domain.BookingRestriction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restrictions = append(f.restrictions, restriction)
	return nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) FetchUnpublished(context.Context, int) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, time.Time) error { return nil }

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (f *fakeOutbox) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeDedup) IsDuplicate(_ context.Context, eventID string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[eventID], nil
}

func (f *fakeDedup) MarkProcessed(_ context.Context, eventID, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	f.seen[eventID] = true
	return nil
}

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]*ports.IdempotencyRecord
}

func (f *fakeIdempotency) Get(_ context.Context, key string, _ time.Time) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.keys[key]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeIdempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = map[string]*ports.IdempotencyRecord{}
	}
	if _, ok := f.keys[key]; ok {
		return errors.New("already reserved")
	}
	f.keys[key] = &ports.IdempotencyRecord{Key: key, RequestHash: requestHash, Status: "reserved", ExpiresAt: expiresAt}
	return nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key string, responseBody []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.keys[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = "completed"
	rec.ResponseBody = append([]byte(nil), responseBody...)
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.keys[key]; ok && rec.Status == "reserved" {
		delete(f.keys, key)
	}
	return nil
}

type fakeCache struct {
	mu       sync.Mutex
	values   map[string]string
	ttls     map[string]time.Duration
	counters map[string]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}, ttls: map[string]time.Duration{}, counters: map[string]int64{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) ttl(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttls[key]
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeCache) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

type reverseEncryption struct{}

func (reverseEncryption) Encrypt(userID string, value string) ([]byte, error) {
	return []byte(userID + "|" + value), nil
}

func (reverseEncryption) Decrypt(userID string, payload []byte) (string, error) {
	raw := string(payload)
	prefix := userID + "|"
	if !strings.HasPrefix(raw, prefix) {
		return "", errors.New("wrong key")
	}
	return strings.TrimPrefix(raw, prefix), nil
}

type fakeTokens struct {
	claims map[string]ports.AuthClaims
}

func (f fakeTokens) ValidateToken(_ context.Context, token string) (ports.AuthClaims, error) {
	c, ok := f.claims[token]
	if !ok {
		return ports.AuthClaims{}, errors.New("invalid token")
	}
	return c, nil
}

type fakeMetrics struct {
	mu            sync.Mutex
	scores        int
	incomplete    int
	fetchFailures map[string]int
	persisted     int
}

func (m *fakeMetrics) RecordTrustScore(_ context.Context, _ int, incomplete bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores++
	if incomplete {
		m.incomplete++
	}
}

func (m *fakeMetrics) RecordFetchFailure(_ context.Context, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchFailures == nil {
		m.fetchFailures = map[string]int{}
	}
	m.fetchFailures[source]++
}

func (m *fakeMetrics) RecordScorePersisted(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted++
}

type testHarness struct {
	svc         *Service
	profiles    *fakeProfiles
	licenses    *fakeLicenses
	insurance   *fakeInsurance
	reliability *fakeReliability
	outbox      *fakeOutbox
	cache       *fakeCache
	metrics     *fakeMetrics
	now         time.Time
}

func newHarness() *testHarness {
	h := &testHarness{
		profiles:    newFakeProfiles(),
		licenses:    newFakeLicenses(),
		insurance:   newFakeInsurance(),
		reliability: newFakeReliability(),
		outbox:      &fakeOutbox{},
		cache:       newFakeCache(),
		metrics:     &fakeMetrics{},
		now:         time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(Dependencies{
		Profiles:    h.profiles,
		Licenses:    h.licenses,
		Insurance:   h.insurance,
		Reliability: h.reliability,
		Outbox:      h.outbox,
		EventDedup:  &fakeDedup{},
		Idempotency: &fakeIdempotency{},
		Tokens:      fakeTokens{claims: map[string]ports.AuthClaims{}},
		Cache:       h.cache,
		Encryption:  reverseEncryption{},
		Metrics:     h.metrics,
	})
	h.svc.nowFn = func() time.Time { return h.now }
	return h
}
