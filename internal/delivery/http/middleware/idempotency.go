package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"rizqara-backend/pkg/cache"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "X-Idempotent-Replay"
	maxIdempotencyKey = 128
)

type idempotencyRecord struct {
	fingerprint string
	done        bool
	status      int
	header      http.Header
	body        []byte
}

// Idempotency replays the first response for a repeated Idempotency-Key. Keys are
// scoped to the authenticated user, so it must run after AuthMiddleware. Requests
// without the header pass through untouched. 5xx responses are not remembered.
func Idempotency(store cache.CacheService, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKey {
				utils.WriteError(w, http.StatusBadRequest, "Idempotency-Key is too long")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
			if err != nil {
				utils.WriteError(w, http.StatusBadRequest, "unable to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			owner := "anonymous"
			if user, ok := UserFromContext(r.Context()); ok {
				owner = user.ID
			}
			sum := sha256.Sum256(append([]byte(r.Method+" "+r.URL.Path+"\n"), body...))
			fingerprint := hex.EncodeToString(sum[:])
			cacheKey := "idem:" + owner + ":" + key

			if !store.Add(cacheKey, &idempotencyRecord{fingerprint: fingerprint}, ttl) {
				cached, ok := store.Get(cacheKey)
				rec, _ := cached.(*idempotencyRecord)
				switch {
				case !ok || rec == nil:
					utils.WriteError(w, http.StatusConflict, "request with this Idempotency-Key is in progress")
				case rec.fingerprint != fingerprint:
					utils.WriteError(w, http.StatusUnprocessableEntity, "Idempotency-Key was used with a different request")
				case !rec.done:
					utils.WriteError(w, http.StatusConflict, "request with this Idempotency-Key is in progress")
				default:
					replay(w, rec)
				}
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= 500 {
				store.Delete(cacheKey)
				return
			}
			store.Set(cacheKey, &idempotencyRecord{
				fingerprint: fingerprint,
				done:        true,
				status:      rec.status,
				header:      w.Header().Clone(),
				body:        rec.buf.Bytes(),
			}, ttl)
			logger.WithContext(r.Context()).Debug().Str("idempotency_key", key).Int("status", rec.status).Msg("Stored idempotent response")
		})
	}
}

func replay(w http.ResponseWriter, rec *idempotencyRecord) {
	for k, vals := range rec.header {
		if k == "X-Request-Id" {
			continue
		}
		w.Header()[k] = append([]string(nil), vals...)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(rec.status)
	_, _ = w.Write(rec.body)
}

// recorder tees the response to the client and a buffer.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}
