package rest

import (
	"bitunix/internal/logger"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testAPIKey = "test-key"
	testSecret = "test-secret"
	testNonce  = "0123456789abcdef0123456789abcdef"

	testLocalMs  int64 = 1_700_000_000_000
	testOffsetMs int64 = 500
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// fakeExchange serves the time endpoint and delegates every other path
// to handler.
type fakeExchange struct {
	timeHits atomic.Int32
	apiHits  atomic.Int32

	timeHandler http.HandlerFunc
	handler     http.HandlerFunc
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == DefaultTimePath {
		f.timeHits.Add(1)
		if f.timeHandler != nil {
			f.timeHandler(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"code": 0,
			"msg":  "Success",
			"data": map[string]any{"serverTime": testLocalMs + testOffsetMs},
		})
		return
	}

	f.apiHits.Add(1)
	f.handler(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func fixedNow() time.Time {
	return time.UnixMilli(testLocalMs)
}

func newTestClient(t *testing.T, fx *fakeExchange, opts ...Option) (*Client, *recordingSleeper) {
	t.Helper()

	srv := httptest.NewServer(fx)
	t.Cleanup(srv.Close)

	sleeper := &recordingSleeper{}
	base := []Option{
		WithHTTPClient(srv.Client()),
		WithSleeper(sleeper),
		WithNow(fixedNow),
		WithNonceFunc(func() string { return testNonce }),
		WithTimeout(2 * time.Second),
	}

	return New(srv.URL, testAPIKey, testSecret, logger.Nop(), append(base, opts...)...), sleeper
}
