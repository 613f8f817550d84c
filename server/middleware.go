package server

import (
	"context"
	"net/http"
	"strings"

	"cuetrainer/logger"
)

type contextKey string

const clientKey contextKey = "client"

// AuthMiddleware requires a bearer token on /api and /ws when auth is enabled.
// Websocket clients may pass the token as ?token= instead.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.auth.Enabled() || r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.URL.Query().Get("token")
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeFailure(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}
			token = parts[1]
		}
		if token == "" {
			writeFailure(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		claims, err := h.auth.ParseToken(token)
		if err != nil {
			logger.Debug("令牌校验失败", logger.ErrorField(err))
			writeFailure(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), clientKey, claims.Client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientFromContext returns the authenticated client name, if any.
func ClientFromContext(ctx context.Context) (string, bool) {
	client, ok := ctx.Value(clientKey).(string)
	return client, ok
}
