package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"project-tracker/logging"
	"project-tracker/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	roleKey
)

// UserID returns the authenticated caller stored by JWTAuthMiddleware.
func UserID(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

func Role(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// WithUser is used by tests to fake an authenticated request.
func WithUser(ctx context.Context, id primitive.ObjectID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	return context.WithValue(ctx, roleKey, role)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// UserLookup reports whether a token subject still has an account.
type UserLookup func(ctx context.Context, id primitive.ObjectID) (bool, error)

// JWTAuthMiddleware rejects requests without a valid bearer token. When
// active is set, tokens whose user has been deleted are rejected too.
func JWTAuthMiddleware(tokens *utils.JWTManager, active UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
				unauthorized(w, "Authorization header missing")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				logging.Logger.Warnf("Event ID: JWT_AUTH_BEARER_PREFIX_MISSING, Description: Bearer prefix missing for request to %s %s", r.Method, r.URL.Path)
				unauthorized(w, "Invalid token")
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimSpace(tokenStr))
			if err != nil {
				logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token for request to %s %s: %v", r.Method, r.URL.Path, err)
				unauthorized(w, "Invalid token")
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}
			if active != nil {
				ok, err := active(r.Context(), userID)
				if err != nil {
					logging.Logger.Errorf("Event ID: JWT_AUTH_USER_LOOKUP_FAILED, Description: Could not check user %s: %v", userID.Hex(), err)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_ = json.NewEncoder(w).Encode(map[string]string{"message": "Service unavailable"})
					return
				}
				if !ok {
					logging.Logger.Warnf("Event ID: JWT_AUTH_USER_GONE, Description: Token presented for deleted user %s", userID.Hex())
					unauthorized(w, "Invalid token")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, claims.Role)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		entry := logging.Logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"bytes":    rec.bytes,
			"duration": time.Since(start).String(),
		})
		switch {
		case rec.status >= 500:
			entry.Error("Event ID: HTTP_REQUEST, Description: Request failed")
		case rec.status >= 400:
			entry.Warn("Event ID: HTTP_REQUEST, Description: Request rejected")
		default:
			entry.Info("Event ID: HTTP_REQUEST, Description: Request served")
		}
	})
}
