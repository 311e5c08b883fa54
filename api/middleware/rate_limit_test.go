package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (s *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeRateStore) RateLimitKey(scope string) string {
	return "athath:rate_limit:" + scope
}

func payRequest(subject string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/pay", nil)
	req.RemoteAddr = "203.0.113.7:40000"
	if subject != "" {
		req = req.WithContext(WithSubjectID(req.Context(), subject))
	}
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestPaymentRateLimitAllowsUnderLimit(t *testing.T) {
	t.Parallel()

	store := newFakeRateStore()
	handler := PaymentRateLimit(NewPaymentRateLimitPolicy(time.Minute, 5, 3), store, nil)(okHandler())

	subject := uuid.NewString()
	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, payRequest(subject))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestPaymentRateLimitBlocksSubject(t *testing.T) {
	t.Parallel()

	store := newFakeRateStore()
	handler := PaymentRateLimit(NewPaymentRateLimitPolicy(time.Minute, 0, 2), store, nil)(okHandler())

	subject := uuid.NewString()
	for i := range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, payRequest(subject))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}

	// A different customer is unaffected.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, payRequest(uuid.NewString()))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentRateLimitBlocksIP(t *testing.T) {
	t.Parallel()

	store := newFakeRateStore()
	handler := PaymentRateLimit(NewPaymentRateLimitPolicy(time.Minute, 2, 0), store, nil)(okHandler())

	// Different subjects, same address: the IP counter still trips.
	for i := range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, payRequest(uuid.NewString()))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestPaymentRateLimitDisabledPolicy(t *testing.T) {
	t.Parallel()

	handler := PaymentRateLimit(NewPaymentRateLimitPolicy(0, 0, 0), newFakeRateStore(), nil)(okHandler())

	for range 10 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, payRequest(uuid.NewString()))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	assert.Equal(t, "198.51.100.4", clientIP(req))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", clientIP(req))
}
