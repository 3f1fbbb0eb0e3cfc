package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rainwatch/rainhub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestMiddleware(t *testing.T) *AuthMiddleware {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthMiddleware(config.AuthConfig{
		DeviceToken:       "device-token-123",
		JWTSecret:         "jwt-test-secret",
		TokenTTL:          time.Hour,
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: string(hash),
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateDevice(t *testing.T) {
	m := newTestMiddleware(t)
	handler := m.AuthenticateDevice(okHandler())

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"valid token", "device-token-123", http.StatusOK},
		{"wrong token", "nope", http.StatusUnauthorized},
		{"missing token", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/heartbeat", nil)
			if tt.token != "" {
				req.Header.Set("X-Device-Token", tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestAuthenticateAdminRoundTrip(t *testing.T) {
	m := newTestMiddleware(t)

	var gotAdmin *AdminContext
	handler := m.AuthenticateAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdmin, _ = AdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token, err := m.SignAdminToken("admin@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/devices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotAdmin)
	assert.Equal(t, "admin@example.com", gotAdmin.Email)
	assert.Equal(t, []string{"admin"}, gotAdmin.Roles)
}

func TestAuthenticateAdminRejectsBadTokens(t *testing.T) {
	m := newTestMiddleware(t)
	handler := m.AuthenticateAdmin(okHandler())

	otherSecret := NewAuthMiddleware(config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	wrongKeyToken, err := otherSecret.SignAdminToken("admin@example.com")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong signing key", "Bearer " + wrongKeyToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/devices", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestAuthenticateAdminRequiresAdminRole(t *testing.T) {
	m := newTestMiddleware(t)
	handler := m.AuthenticateAdmin(okHandler())

	// a validly signed token without the admin role is forbidden
	claims := jwt.MapClaims{
		"email": "viewer@example.com",
		"role":  "viewer",
		"exp":   jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("jwt-test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/devices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticateAdminRejectsExpiredToken(t *testing.T) {
	m := newTestMiddleware(t)
	handler := m.AuthenticateAdmin(okHandler())

	claims := jwt.MapClaims{
		"email": "admin@example.com",
		"role":  "admin",
		"exp":   jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("jwt-test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/devices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyAdminLogin(t *testing.T) {
	m := newTestMiddleware(t)

	assert.NoError(t, m.VerifyAdminLogin("admin@example.com", "s3cret"))
	assert.Error(t, m.VerifyAdminLogin("admin@example.com", "wrong"))
	assert.Error(t, m.VerifyAdminLogin("other@example.com", "s3cret"))

	unconfigured := NewAuthMiddleware(config.AuthConfig{})
	assert.Error(t, unconfigured.VerifyAdminLogin("admin@example.com", "s3cret"))
}

func TestRolesFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, []string{"guest"}, RolesFromContext(req.Context()))
}
