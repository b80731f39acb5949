package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"restaurant-pos/internal/common/idempotency"
	"restaurant-pos/internal/common/logger"
)

type staffKey struct{}

// StaffFromContext returns the authenticated staff id, or "" when auth is off.
func StaffFromContext(ctx context.Context) string {
	s, _ := ctx.Value(staffKey{}).(string)
	return s
}

// requestContext copies chi's request id into the logger context.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Ctx(r.Context()).Debug("http_request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

// staffClaims are the bearer token claims. Subject is the staff id.
type staffClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Authenticate rejects requests without a valid HS256 bearer token and puts the
// token subject into the context as the acting staff member.
func Authenticate(secret []byte, issuer string) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeProblem(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
				return
			}
			claims := &staffClaims{}
			if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
				writeProblem(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token", nil)
				return
			}
			if claims.Subject == "" {
				writeProblem(w, http.StatusUnauthorized, "unauthorized", "token subject is required", nil)
				return
			}
			ctx := context.WithValue(r.Context(), staffKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// staffHeader trusts X-Staff-ID when authentication is disabled.
func staffHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Staff-ID"); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), staffKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

const IdempotencyHeader = "Idempotency-Key"

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotent replays the stored response for a repeated Idempotency-Key. Only
// successful responses are kept; a failed attempt releases the key.
func Idempotent(store idempotency.Store, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			key = r.Method + ":" + r.URL.Path + ":" + key
			lg := log.Ctx(r.Context())

			rec, found, err := store.Begin(r.Context(), key)
			switch {
			case errors.Is(err, idempotency.ErrInFlight):
				writeProblem(w, http.StatusConflict, "conflict", err.Error(), nil)
				return
			case err != nil:
				lg.Warn("idempotency_unavailable", map[string]any{"reason": err.Error()})
				next.ServeHTTP(w, r)
				return
			case found:
				w.Header().Set("Content-Type", rec.ContentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(rec.Status)
				_, _ = w.Write(rec.Body)
				return
			}

			rw := &recorder{ResponseWriter: w}
			// A panicking handler still releases the key; the panic goes on to the recoverer.
			defer func() {
				p := recover()
				ctx := context.WithoutCancel(r.Context())
				var err error
				if p == nil && rw.status >= 200 && rw.status < 300 {
					err = store.Complete(ctx, key, idempotency.Record{
						Status: rw.status, ContentType: rw.Header().Get("Content-Type"), Body: rw.body.Bytes(),
					})
				} else {
					err = store.Abandon(ctx, key)
				}
				if err != nil {
					lg.Warn("idempotency_store_failed", map[string]any{"reason": err.Error()})
				}
				if p != nil {
					panic(p)
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
