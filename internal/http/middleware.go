package http

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/auth"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/rs/zerolog"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// IdentityResolver turns a bearer token into a verified caller.
type IdentityResolver interface {
	Identity(ctx context.Context, token string) (domain.Identity, error)
}

func withIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, identity)
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(ctxIdentity).(domain.Identity)
	return identity, ok
}

// RequestLogger binds chi's request id to the logger context and echoes it
// back as X-Request-ID. It must run after middleware.RequestID.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())
			w.Header().Set(middleware.RequestIDHeader, requestID)

			ctx := log.WithFields(log.WithRequestID(r.Context(), requestID), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			rec := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := statusOf(rec)
			log.Event(ctx, levelForStatus(status)).
				Int("status", status).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("request.complete")
		})
	}
}

// Instrument records request latency by chi route pattern.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(rec, r)
			m.ObserveHTTPRequest(r.Method, routePattern(r), statusOf(rec), time.Since(start))
		})
	}
}

func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := fmt.Errorf("panic: %v", rec)
					respondError(r.Context(), log, w, apperr.Internal(err, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate verifies the bearer token and, when roles are given, requires
// the caller to hold one of them.
func Authenticate(resolver IdentityResolver, log *logger.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				respondError(r.Context(), log, w, apperr.New(apperr.CodeUnauthorized, "Access Denied. No token Provided!"))
				return
			}

			identity, err := resolver.Identity(r.Context(), token)
			if err != nil {
				respondError(r.Context(), log, w, err)
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, identity.Role) {
				respondError(r.Context(), log, w, apperr.New(apperr.CodeForbidden, "Insufficient permissions"))
				return
			}

			ctx := withIdentity(r.Context(), identity)
			ctx = log.WithFields(ctx, map[string]any{
				"user_id": identity.UserID.Hex(),
				"role":    string(identity.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func statusOf(rec middleware.WrapResponseWriter) int {
	if rec.Status() == 0 {
		return http.StatusOK
	}
	return rec.Status()
}

func levelForStatus(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
