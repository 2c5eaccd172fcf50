package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"rizqara-backend/internal/domain"
	infracache "rizqara-backend/internal/infrastructure/cache"
	"rizqara-backend/pkg/utils"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware(t *testing.T) {
	utils.SetSecret("mw-secret")

	var seen *domain.User
	h := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := utils.GenerateJWT("u-1", "a@b.com", domain.RoleCustomer, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u-1", seen.ID)
	assert.Equal(t, domain.RoleCustomer, seen.Role)
}

func TestAdminMiddleware(t *testing.T) {
	h := AdminMiddleware(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req = req.WithContext(WithUser(req.Context(), &domain.User{ID: "u", Role: domain.RoleCustomer}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req = req.WithContext(WithUser(req.Context(), &domain.User{ID: "a", Role: domain.RoleAdmin}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	h := NewCORSMiddleware("https://rizqara.com")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://rizqara.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://rizqara.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(context.Background(), rate.Every(time.Hour), 2, time.Minute, time.Minute)
	defer rl.Shutdown()
	h := rl.Middleware()(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	store := infracache.NewMemoryCache(time.Hour, time.Hour)
	calls := 0
	h := Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		utils.WriteJSON(w, http.StatusCreated, map[string]int{"n": calls})
	}))

	send := func(userID, key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set(IdempotencyHeader, key)
		req = req.WithContext(WithUser(req.Context(), &domain.User{ID: userID}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("u-1", "k1", `{"a":1}`)
	second := send("u-1", "k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayHeader))
	assert.Empty(t, first.Header().Get(ReplayHeader))
	assert.Equal(t, 1, calls)

	assert.Equal(t, http.StatusUnprocessableEntity, send("u-1", "k1", `{"a":2}`).Code)

	// keys are per user
	assert.Equal(t, http.StatusCreated, send("u-2", "k1", `{"a":1}`).Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_InFlightAndServerErrors(t *testing.T) {
	store := infracache.NewMemoryCache(time.Hour, time.Hour)
	release := make(chan struct{})
	entered := make(chan struct{})
	fail := true
	h := Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			close(entered)
			<-release
		}
		if r.URL.Path == "/flaky" && fail {
			fail = false
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(path, key string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
		req.Header.Set(IdempotencyHeader, key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		send("/slow", "slow-key")
	}()
	<-entered
	assert.Equal(t, http.StatusConflict, send("/slow", "slow-key"))
	close(release)
	wg.Wait()

	assert.Equal(t, http.StatusBadGateway, send("/flaky", "flaky-key"))
	assert.Equal(t, http.StatusCreated, send("/flaky", "flaky-key"))
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	calls := 0
	h := Idempotency(infracache.NewMemoryCache(time.Hour, time.Hour), time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))
	}
	assert.Equal(t, 2, calls)
}

type observed struct {
	method, route string
	status        int
}

type fakeObserver struct{ got []observed }

func (f *fakeObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	f.got = append(f.got, observed{method, route, status})
}

func TestMetricsMiddleware(t *testing.T) {
	obs := &fakeObserver{}
	h := Metrics(obs, "GET /api/v1/orders/{id}")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/abc", nil))

	require.Len(t, obs.got, 1)
	assert.Equal(t, observed{"GET", "GET /api/v1/orders/{id}", 404}, obs.got[0])
}
