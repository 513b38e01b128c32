package services

import (
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scolarfaso/backend/internal/config"
	"github.com/scolarfaso/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// fakeOTPStore is an in-memory OTPStore. MarkUsed is guarded by the mutex so
// it has the same claim-once behavior the conditional UPDATE gives the real
// store.
type fakeOTPStore struct {
	mu   sync.Mutex
	rows []*models.OtpCode

	failCount  error
	failInsert error
	failFind   error
	failMark   error
}

func (f *fakeOTPStore) CountRecent(phoneNumber string, windowStart time.Time) (int64, error) {
	if f.failCount != nil {
		return 0, f.failCount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.rows {
		if r.PhoneNumber == phoneNumber && !r.CreatedAt.Before(windowStart) {
			count++
		}
	}
	return count, nil
}

func (f *fakeOTPStore) Insert(otp *models.OtpCode) error {
	if f.failInsert != nil {
		return f.failInsert
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	row := *otp
	f.rows = append(f.rows, &row)
	return nil
}

func (f *fakeOTPStore) FindLatestValid(phoneNumber, code string, purpose models.OtpPurpose) (*models.OtpCode, error) {
	if f.failFind != nil {
		return nil, f.failFind
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.OtpCode
	for _, r := range f.rows {
		if r.PhoneNumber != phoneNumber || r.Code != code || r.Purpose != purpose || r.IsUsed {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	row := *latest
	return &row, nil
}

func (f *fakeOTPStore) MarkUsed(id uuid.UUID, usedAt time.Time) (bool, error) {
	if f.failMark != nil {
		return false, f.failMark
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			if r.IsUsed {
				return false, nil
			}
			r.IsUsed = true
			at := usedAt
			r.UsedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOTPStore) DeleteExpired(now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	var deleted int64
	for _, r := range f.rows {
		if r.ExpiresAt.Before(now) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeOTPStore) lastRow(t *testing.T) *models.OtpCode {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.rows)
	row := *f.rows[len(f.rows)-1]
	return &row
}

func (f *fakeOTPStore) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	to       []string
	err      error
}

func (f *fakeSender) Send(to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.messages = append(f.messages, body)
	return nil
}

func (f *fakeSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func newTestOTPService(store *fakeOTPStore, sender *fakeSender, start time.Time) (*OTPService, *time.Time) {
	current := start
	svc := NewOTPService(store, sender, &config.Config{})
	svc.now = func() time.Time { return current }
	return svc, &current
}

func TestRequestOTPIssuesCode(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestOTPService(store, sender, t0)

	result, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "+22670123456", result.PhoneNumber)
	assert.Equal(t, t0.Add(5*time.Minute), result.ExpiresAt)
	assert.Empty(t, result.DebugCode)

	row := store.lastRow(t)
	assert.Equal(t, "+22670123456", row.PhoneNumber)
	assert.Regexp(t, codePattern, row.Code)
	assert.Equal(t, models.PurposeLogin, row.Purpose)
	assert.Equal(t, t0, row.CreatedAt)
	assert.Equal(t, t0.Add(5*time.Minute), row.ExpiresAt)
	assert.False(t, row.IsUsed)
	assert.Nil(t, row.UsedAt)

	require.Equal(t, 1, sender.sent())
	assert.Equal(t, "+22670123456", sender.to[0])
	assert.Contains(t, sender.messages[0], row.Code)
	assert.Contains(t, sender.messages[0], "5 minutes")
}

func TestRequestOTPNormalizesPhone(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	_, err := svc.RequestOTP("70 12 34 56", models.PurposePhoneVerification)
	require.NoError(t, err)
	assert.Equal(t, "+22670123456", store.lastRow(t).PhoneNumber)
}

func TestRequestOTPInvalidPhone(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	_, err := svc.RequestOTP("12345", models.PurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidPhoneFormat)
	assert.Zero(t, store.rowCount())
	assert.Zero(t, sender.sent())
}

func TestRequestOTPInvalidPurpose(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	_, err := svc.RequestOTP("+22670123456", models.OtpPurpose("signup"))
	assert.ErrorIs(t, err, ErrInvalidPurpose)
	assert.Zero(t, store.rowCount())
	assert.Zero(t, sender.sent())
}

func TestRequestOTPRateLimit(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, clock := newTestOTPService(store, sender, t0)

	for i := 0; i < 3; i++ {
		_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
		require.NoError(t, err)
	}

	// Fourth request inside the window fails, no row, no SMS.
	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, store.rowCount())
	assert.Equal(t, 3, sender.sent())

	// The cap is global across purposes for the number.
	_, err = svc.RequestOTP("+22670123456", models.PurposePaymentConfirmation)
	assert.ErrorIs(t, err, ErrRateLimited)

	// Other numbers are unaffected.
	_, err = svc.RequestOTP("+22676999999", models.PurposeLogin)
	assert.NoError(t, err)

	// Once the window slides past the issuances, requests succeed again.
	*clock = t0.Add(5*time.Minute + time.Second)
	_, err = svc.RequestOTP("+22670123456", models.PurposeLogin)
	assert.NoError(t, err)
}

func TestRequestOTPStoreFailureSendsNothing(t *testing.T) {
	store := &fakeOTPStore{failInsert: ErrStore}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	assert.ErrorIs(t, err, ErrStore)
	assert.Zero(t, sender.sent())
}

func TestRequestOTPSendFailureKeepsRowValid(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{err: errors.New("gateway down")}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestOTPService(store, sender, t0)

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	assert.ErrorIs(t, err, ErrSend)

	// The persisted row stays verifiable: a user who got the code through
	// another channel can still complete the flow.
	row := store.lastRow(t)
	assert.NoError(t, svc.VerifyOTP("+22670123456", row.Code, models.PurposeLogin))
}

func TestRequestOTPDebugCodeGate(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc := NewOTPService(store, sender, &config.Config{OTPDebugResponse: true})

	result, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, store.lastRow(t).Code, result.DebugCode)
}

func TestVerifyOTPSingleUse(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestOTPService(store, sender, t0)

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	code := store.lastRow(t).Code

	require.NoError(t, svc.VerifyOTP("+22670123456", code, models.PurposeLogin))

	row := store.lastRow(t)
	assert.True(t, row.IsUsed)
	require.NotNil(t, row.UsedAt)
	assert.Equal(t, t0, *row.UsedAt)

	// Well before expiry, the same code must never verify again.
	err = svc.VerifyOTP("+22670123456", code, models.PurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyOTPExpiry(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, clock := newTestOTPService(store, sender, t0)

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	code := store.lastRow(t).Code

	*clock = t0.Add(5*time.Minute + time.Second)
	err = svc.VerifyOTP("+22670123456", code, models.PurposeLogin)
	assert.ErrorIs(t, err, ErrExpired)

	// The row is left untouched, just permanently unusable.
	row := store.lastRow(t)
	assert.False(t, row.IsUsed)
}

func TestVerifyOTPAtExpiryBoundary(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, clock := newTestOTPService(store, sender, t0)

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	code := store.lastRow(t).Code

	*clock = t0.Add(5 * time.Minute)
	assert.NoError(t, svc.VerifyOTP("+22670123456", code, models.PurposeLogin))
}

func TestVerifyOTPWrongPurpose(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	code := store.lastRow(t).Code

	err = svc.VerifyOTP("+22670123456", code, models.PurposePasswordReset)
	assert.ErrorIs(t, err, ErrInvalidCode)

	// The row stays claimable for its own purpose.
	assert.NoError(t, svc.VerifyOTP("+22670123456", code, models.PurposeLogin))
}

func TestVerifyOTPUnknownCode(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	err := svc.VerifyOTP("+22670123456", "000000", models.PurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyOTPNormalizesPhone(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	code := store.lastRow(t).Code

	assert.NoError(t, svc.VerifyOTP("070123456", code, models.PurposeLogin))
}

func TestVerifyOTPStoreFailures(t *testing.T) {
	sender := &fakeSender{}

	store := &fakeOTPStore{failFind: ErrStore}
	svc, _ := newTestOTPService(store, sender, time.Now())
	assert.ErrorIs(t, svc.VerifyOTP("+22670123456", "123456", models.PurposeLogin), ErrStore)

	store = &fakeOTPStore{}
	svc, _ = newTestOTPService(store, sender, time.Now())
	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	code := store.lastRow(t).Code
	store.failMark = ErrStore
	assert.ErrorIs(t, svc.VerifyOTP("+22670123456", code, models.PurposeLogin), ErrStore)
}

// Outstanding codes are independent: issuing a second code does not
// invalidate the first one.
func TestMultipleOutstandingCodes(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, clock := newTestOTPService(store, sender, t0)

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	first := store.lastRow(t).Code

	*clock = t0.Add(time.Minute)
	_, err = svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	second := store.lastRow(t).Code

	assert.NoError(t, svc.VerifyOTP("+22670123456", second, models.PurposeLogin))
	if first != second {
		assert.NoError(t, svc.VerifyOTP("+22670123456", first, models.PurposeLogin))
	}
}

// Two racing verifications of the same code must produce exactly one success.
func TestVerifyOTPConcurrentRace(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc, _ := newTestOTPService(store, sender, time.Now())

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)
	code := store.lastRow(t).Code

	const attempts = 2
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.VerifyOTP("+22670123456", code, models.PurposeLogin)
		}()
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrInvalidCode)
			failures++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, failures)
}

func TestCleanupExpired(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, clock := newTestOTPService(store, sender, t0)

	_, err := svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)

	*clock = t0.Add(4 * time.Minute)
	_, err = svc.RequestOTP("+22670123456", models.PurposeLogin)
	require.NoError(t, err)

	*clock = t0.Add(5*time.Minute + time.Second)
	deleted, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, store.rowCount())
}

func TestGenerateCodeShapeAndRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
		assert.GreaterOrEqual(t, code, "100000")
		assert.LessOrEqual(t, code, "999999")
	}
}
