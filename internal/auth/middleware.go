package auth

import (
	"net/http"
	"strings"

	"github.com/pharmsource/sourcing-api/internal/config"
	"go.uber.org/zap"
)

// Middleware attaches user identity to requests
type Middleware struct {
	jwtValidator *JWTValidator
	logger       *zap.Logger
}

// NewMiddleware creates the auth middleware
func NewMiddleware(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwtValidator: NewJWTValidator(&cfg.Auth),
		logger:       logger,
	}
}

// Identify is middleware that attempts authentication but allows
// unauthenticated requests through. Identity only feeds audit fields
// (stage history actors, import requesters), so a missing or invalid
// token never blocks a request.
func (m *Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				userCtx, err := m.jwtValidator.ValidateToken(parts[1])
				if err == nil {
					ctx := WithUserContext(r.Context(), userCtx)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				m.logger.Debug("token validation failed, continuing unauthenticated",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
			}
		}

		next.ServeHTTP(w, r)
	})
}
