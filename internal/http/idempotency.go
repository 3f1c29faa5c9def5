package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/cache"
	"github.com/kriyptor/Market-Place-App/internal/logger"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

// Idempotency replays the first response for a repeated Idempotency-Key.
// Requests without the header pass straight through. Server errors release
// the key so the client can retry it.
func Idempotency(store cache.IdempotencyStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				respondError(r.Context(), log, w, apperr.Wrap(apperr.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			scope := buildScope(r)
			requestHash := hashBody(body)

			existing, acquired, err := store.Begin(ctx, scope, key, requestHash)
			switch {
			case errors.Is(err, cache.ErrRecordVanished):
				respondError(ctx, log, w, apperr.Wrap(apperr.CodeConflict, err, "Request with this Idempotency-Key is being retried, try again"))
				return
			case err != nil:
				respondError(ctx, log, w, apperr.Wrap(apperr.CodeDependency, err, "check idempotency"))
				return
			case !acquired:
				replay(ctx, log, w, existing, requestHash)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			storeCtx := context.WithoutCancel(ctx)
			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				if err := store.Release(storeCtx, scope, key); err != nil {
					log.Error(storeCtx, "release idempotency key", err)
				}
				return
			}

			record := cache.Record{
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				RequestHash: requestHash,
			}
			if err := store.Complete(storeCtx, scope, key, record); err != nil {
				log.Error(storeCtx, "persist idempotency record", err)
			}
		})
	}
}

func replay(ctx context.Context, log *logger.Logger, w http.ResponseWriter, record *cache.Record, requestHash string) {
	if record.RequestHash != requestHash {
		respondError(ctx, log, w, apperr.New(apperr.CodeIdempotency, "Idempotency-Key reused with a different request body"))
		return
	}
	if record.Pending {
		respondError(ctx, log, w, apperr.New(apperr.CodeConflict, "Request with this Idempotency-Key is still in progress"))
		return
	}
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

func buildScope(r *http.Request) string {
	parts := []string{"anonymous", r.Method, r.URL.Path}
	if identity, ok := IdentityFromContext(r.Context()); ok {
		parts[0] = identity.UserID.Hex()
	}
	return strings.Join(parts, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
