package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rainwatch/rainhub/internal/config"
	"github.com/rainwatch/rainhub/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

const deviceTokenHeader = "X-Device-Token"

type contextKey string

const adminContextKey contextKey = "admin"

// AdminContext carries the authenticated admin identity through the
// request context
type AdminContext struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// AuthMiddleware validates device shared-secret tokens and admin JWTs
type AuthMiddleware struct {
	config config.AuthConfig
}

func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{config: cfg}
}

// AuthenticateDevice guards the ingestion endpoints with the shared
// device token. The comparison is constant-time.
func (m *AuthMiddleware) AuthenticateDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(deviceTokenHeader)
		if token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(m.config.DeviceToken)) != 1 {
			handleError(w, errors.NewAuthError("invalid device token", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthenticateAdmin validates the Bearer JWT and requires the admin role
func (m *AuthMiddleware) AuthenticateAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearerToken(r)
		if tokenString == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}

		claims, err := m.verifyToken(tokenString)
		if err != nil {
			handleError(w, errors.NewAuthError("invalid token", err))
			return
		}

		role, _ := claims["role"].(string)
		if role != "admin" {
			handleError(w, errors.NewAuthorizationError("insufficient permissions", nil))
			return
		}

		email, _ := claims["email"].(string)
		admin := &AdminContext{Email: email, Roles: []string{"admin"}}
		ctx := context.WithValue(r.Context(), adminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SignAdminToken issues a JWT with the admin role, valid for the
// configured TTL
func (m *AuthMiddleware) SignAdminToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"email": email,
		"role":  "admin",
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(m.config.TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.JWTSecret))
}

// VerifyAdminLogin checks the given credentials against the configured
// admin email and bcrypt password hash
func (m *AuthMiddleware) VerifyAdminLogin(email, password string) error {
	if m.config.AdminEmail == "" || m.config.AdminPasswordHash == "" {
		return errors.NewUnavailableError("admin credentials not configured", nil)
	}
	if email != m.config.AdminEmail {
		return errors.NewAuthError("invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.config.AdminPasswordHash), []byte(password)); err != nil {
		return errors.NewAuthError("invalid credentials", err)
	}
	return nil
}

func (m *AuthMiddleware) verifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claims, nil
}

// AdminFromContext retrieves the authenticated admin, if any
func AdminFromContext(ctx context.Context) (*AdminContext, bool) {
	admin, ok := ctx.Value(adminContextKey).(*AdminContext)
	return admin, ok
}

// RolesFromContext returns the caller's roles for field-level access
// checks; unauthenticated callers are guests
func RolesFromContext(ctx context.Context) []string {
	if admin, ok := AdminFromContext(ctx); ok {
		return admin.Roles
	}
	return []string{"guest"}
}

func extractBearerToken(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	parts := strings.Split(bearerToken, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func handleError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}
