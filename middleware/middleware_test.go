package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"project-tracker/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestJWTAuthMiddleware(t *testing.T) {
	tokens := utils.NewJWTManager("secret", time.Hour)
	uid := primitive.NewObjectID()
	good, err := tokens.GenerateToken(uid.Hex(), "Member")
	require.NoError(t, err)
	bad, err := tokens.GenerateToken("not-an-id", "Member")
	require.NoError(t, err)

	var seen primitive.ObjectID
	h := JWTAuthMiddleware(tokens, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		assert.Equal(t, "Member", Role(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", good, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"bad subject", "Bearer " + bad, http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, uid, seen)
}

func TestJWTAuthMiddlewareRejectsDeletedUsers(t *testing.T) {
	tokens := utils.NewJWTManager("secret", time.Hour)
	live, gone, broken := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	active := func(_ context.Context, id primitive.ObjectID) (bool, error) {
		switch id {
		case live:
			return true, nil
		case broken:
			return false, errors.New("connection refused")
		}
		return false, nil
	}
	h := JWTAuthMiddleware(tokens, active)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		user   primitive.ObjectID
		status int
	}{
		{"active", live, http.StatusNoContent},
		{"deleted", gone, http.StatusUnauthorized},
		{"lookup error", broken, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := tokens.GenerateToken(tc.user.Hex(), "Member")
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestAccessLogKeepsStatus(t *testing.T) {
	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
