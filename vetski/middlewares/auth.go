package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"vetski/vetski/config"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/utils/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
)

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "UNAUTHORIZED"})
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for websocket upgrades.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.Split(auth, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return ""
		}
		return parts[1]
	}
	return r.URL.Query().Get("access_token")
}

// AuthMiddleware accepts HS256 tokens whose sub claim is the user's uuid.
func AuthMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				unauthorized(w)
				return
			}
			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w)
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				unauthorized(w)
				return
			}
			sub, err := claims.GetSubject()
			if err != nil {
				unauthorized(w)
				return
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			if email, ok := claims["email"].(string); ok {
				ctx = context.WithValue(ctx, UserEmailKey, email)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user's id.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

// EnsureProfile creates the caller's profile row on first sight. Must run
// after AuthMiddleware.
func EnsureProfile(profiles *dao.ProfileDAO) func(http.Handler) http.Handler {
	var seen sync.Map
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := UserID(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if _, done := seen.Load(id); !done {
				email, _ := r.Context().Value(UserEmailKey).(string)
				if err := profiles.EnsureProfile(r.Context(), id, email); err != nil {
					logging.ErrorLogger.Error("ensure profile failed", zap.String("user_id", id.String()), zap.Error(err))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
					return
				}
				seen.Store(id, struct{}{})
			}
			next.ServeHTTP(w, r)
		})
	}
}
