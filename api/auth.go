package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/stamp"
)

// RoleTenantAdmin grants the tenant administration routes.
const RoleTenantAdmin = "tenant_admin"

// Claims is the bearer token payload. Subject carries the numeric user id.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey string

const claimsKey ctxKey = "claims"

func putClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func claimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// identityFrom builds the engine identity of an authenticated user.
func identityFrom(ctx context.Context) (stamp.Identity, error) {
	c, ok := claimsFrom(ctx)
	if !ok {
		return stamp.Identity{}, errors.New("no credentials")
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return stamp.Identity{}, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return stamp.Identity{UserID: userID, TenantID: c.TenantID}, nil
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TenantID == "" {
		return nil, errors.New("token has no tenant")
	}
	return claims, nil
}

// SignToken issues an HS256 token. Used by tests and operator tooling.
func SignToken(secret []byte, c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func Authenticate(log *slog.Logger, secret []byte) func(http.Handler) http.Handler {
	logger := log.With(sl.Module("api.authenticate"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeMessage(w, r, http.StatusUnauthorized, "not authenticated")
				return
			}

			claims, err := ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				logger.Debug("token rejected",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Secret("token", token),
					sl.Err(err),
				)
				writeMessage(w, r, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(putClaims(r.Context(), claims)))
		})
	}
}

// RequireTenantAdmin admits tenant administrators of the {tenantID} in the
// route. It must run after Authenticate.
func RequireTenantAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := claimsFrom(r.Context())
		if !ok {
			writeMessage(w, r, http.StatusUnauthorized, "not authenticated")
			return
		}
		if c.Role != RoleTenantAdmin {
			writeMessage(w, r, http.StatusForbidden, "not authorized")
			return
		}
		if c.TenantID != chi.URLParam(r, "tenantID") {
			writeMessage(w, r, http.StatusForbidden, "not authorized for this tenant")
			return
		}
		next.ServeHTTP(w, r)
	})
}
