package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/itm-space/backend-resources/internal/authn"
	"github.com/itm-space/backend-resources/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// JWTMiddleware parses the JWT token and adds claims to the request context.
// The signature is not checked.
func JWTMiddleware(next http.Handler) http.Handler {
	return jwtMiddleware(authn.ParseClaims)(next)
}

// VerifyingJWTMiddleware is JWTMiddleware with signature and expiry checks.
func VerifyingJWTMiddleware(verifier *authn.Verifier) mux.MiddlewareFunc {
	return jwtMiddleware(verifier.Verify)
}

func jwtMiddleware(parse func(string) (authn.Claims, error)) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				logger := zerolog.Ctx(r.Context()).With().
					Str("handler", "JWTMiddleware").Logger()

				// Get the Authorization header
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					logger.Debug().Msg("authorization header missing")
					http.Error(w, "authorization header missing",
						http.StatusUnauthorized)
					return
				}

				// Check the Authorization header format
				token := strings.TrimPrefix(authHeader, "Bearer ")
				if token == authHeader {
					logger.Error().Msg("invalid token format")
					http.Error(w, "invalid token format", http.StatusUnauthorized)
					return
				}

				// Parse the token for JWT claims
				claims, err := parse(token)
				if err != nil {
					logger.Error().Err(err).Msg("invalid bearer jwt token")
					http.Error(w, "invalid bearer jwt token", http.StatusUnauthorized)
					return
				}

				// Add the claims to the context
				ctx := context.WithValue(r.Context(), ClaimsKey, claims)

				next.ServeHTTP(w, r.WithContext(ctx))
			},
		)
	}
}

// RequireRole rejects requests whose claims do not carry role, either as a
// realm role or as a role of clientID.
func RequireRole(clientID, role string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				logger := zerolog.Ctx(r.Context())

				claims, ok := r.Context().Value(ClaimsKey).(authn.Claims)
				if !ok {
					logger.Warn().Msg("Unauthorized request: missing claims")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}

				if !claims.HasRole(clientID, role) {
					logger.Warn().Str("principal", claims.Principal()).Str("required_role", role).Msg("Access denied: missing role")
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}

				next.ServeHTTP(w, r)
			},
		)
	}
}

// WithLogger adds a logger to the context and logs request information.
func WithLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			logger := log.With().
				Str("host", r.Host).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote_addr", r.RemoteAddr).
				Time("timestamp", time.Now()).
				Logger()

			// Add the logger to the context
			ctx := logger.WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument records request durations labelled with the matched route template.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestDuration.
				WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		},
	)
}
